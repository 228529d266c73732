package rest

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"reflect"
	"sync/atomic"
	"testing"

	"github.com/mosquedir/mosqueadmin/pkg/backend"
	"github.com/mosquedir/mosqueadmin/pkg/directory"
	"github.com/tidwall/gjson"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := New(Config{BaseURL: srv.URL + "/", Token: "tok"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func TestListMosquesDecodesEnvelopeAndAliases(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/mosques" || r.URL.Query().Get("limit") != "1000" {
			t.Errorf("unexpected request %s", r.URL)
		}
		if r.Header.Get("Authorization") != "Bearer tok" {
			t.Errorf("missing bearer token")
		}
		w.Write([]byte(`{"data":{"mosques":[
			{"_id":"m1","name":"Al-Noor","address":"Leeds","contactEmail":"noor@example.com","verification_code":"ABC","created_at":"2024-05-01T10:00:00Z"},
			{"id":2,"name":"Al-Huda","contact_phone":"0123"}
		]}}`))
	})

	got, err := c.ListMosques(context.Background())
	if err != nil {
		t.Fatalf("ListMosques: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 mosques, got %d", len(got))
	}
	if got[0].ID != "m1" || got[0].Location != "Leeds" || got[0].ContactEmail != "noor@example.com" || got[0].VerificationCode != "ABC" {
		t.Errorf("unexpected first mosque: %+v", got[0])
	}
	if got[0].CreatedAt.IsZero() {
		t.Errorf("created_at not parsed")
	}
	if got[1].ID != "2" || got[1].ContactPhone != "0123" {
		t.Errorf("unexpected second mosque: %+v", got[1])
	}
}

func TestListAdminsNormalizesMosqueReferences(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/admins/approved":
			w.Write([]byte(`[{"id":"a1","name":"Ali","mosque_id":{"_id":" m1 ","name":"Al-Noor"}}]`))
		case "/api/admins/pending":
			w.Write([]byte(`{"admins":[{"id":"a2","name":"Sara","mosqueId":"m2"}]}`))
		case "/api/admins/rejected":
			w.Write([]byte(`{"items":[
				{"id":"a3","previous_mosque_ids":["m1",{"id":"m2"}]},
				{"id":"a4","mosque_id":"m3"}
			]}`))
		default:
			http.NotFound(w, r)
		}
	})
	ctx := context.Background()

	approved, err := c.ListApprovedAdmins(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if approved[0].MosqueID != "m1" || approved[0].Status != directory.AdminApproved {
		t.Errorf("approved admin not unwrapped: %+v", approved[0])
	}

	pending, err := c.ListPendingAdmins(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if pending[0].MosqueID != "m2" || pending[0].Status != directory.AdminPending {
		t.Errorf("pending admin: %+v", pending[0])
	}

	rejected, err := c.ListRejectedAdmins(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(rejected[0].PreviousMosqueIDs, []string{"m1", "m2"}) {
		t.Errorf("previous ids = %v", rejected[0].PreviousMosqueIDs)
	}
	if !reflect.DeepEqual(rejected[1].PreviousMosqueIDs, []string{"m3"}) {
		t.Errorf("fallback previous ids = %v", rejected[1].PreviousMosqueIDs)
	}
}

func TestAPIErrorFromJSONBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"error":{"code":"ACCOUNT_REJECTED","message":"Your application was rejected"}}`))
	})

	_, err := c.Login(context.Background(), "x@example.com", "pw")
	var apiErr *backend.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Status != http.StatusForbidden || apiErr.Code != backend.CodeAccountRejected || apiErr.Message != "Your application was rejected" {
		t.Fatalf("unexpected error: %+v", apiErr)
	}
}

func TestDeleteMosqueSendsReason(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete || r.URL.Path != "/api/mosques/m 1" {
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get("X-Request-ID") == "" {
			t.Errorf("missing request id")
		}
		body, _ := io.ReadAll(r.Body)
		if gjson.GetBytes(body, "reason").String() != "duplicate listing" {
			t.Errorf("body = %s", body)
		}
		w.WriteHeader(http.StatusNoContent)
	})

	if err := c.DeleteMosque(context.Background(), "m 1", "duplicate listing"); err != nil {
		t.Fatalf("DeleteMosque: %v", err)
	}
}

func TestBulkDeleteReportsPerID(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		if got := gjson.GetBytes(body, "ids.#").Int(); got != 2 {
			t.Errorf("ids count = %d", got)
		}
		w.Write([]byte(`{"results":[{"id":"m1","success":true},{"id":"m2","success":false,"message":"has active admin"}]}`))
	})

	res, err := c.BulkDeleteMosques(context.Background(), []string{"m1", "m2"}, "closing these two")
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(res.Deleted, []string{"m1"}) || res.Failed["m2"] != "has active admin" {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestLoginDecodesSession(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":{"token":"jwt-here","user":{"id":"u1","email":"a@example.com","role":"mosque_admin","mosque":{"id":"m1"}}}}`))
	})

	lr, err := c.Login(context.Background(), "a@example.com", "pw")
	if err != nil {
		t.Fatal(err)
	}
	want := backend.LoginResponse{Token: "jwt-here", User: backend.User{ID: "u1", Email: "a@example.com", Role: "mosque_admin", MosqueID: "m1"}}
	if !reflect.DeepEqual(lr, want) {
		t.Fatalf("got %+v", lr)
	}
}

func TestNewRequiresBaseURL(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Fatal("expected error for empty URL")
	}
}

func TestDeleteMosqueIsNotRetriedAfterGatewayError(t *testing.T) {
	var calls int32
	var deleted int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		if !atomic.CompareAndSwapInt32(&deleted, 0, 1) {
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"message":"mosque not found"}`))
			return
		}
		// Applied, but the gateway in front of the backend timed out.
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c, err := New(Config{BaseURL: srv.URL, Token: "tok", Retries: 3})
	if err != nil {
		t.Fatal(err)
	}

	err = c.DeleteMosque(context.Background(), "m1", "duplicate listing")
	var apiErr *backend.APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusBadGateway {
		t.Fatalf("DeleteMosque = %v, want the 502", err)
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Fatalf("delete sent %d times", got)
	}
}

func TestListIsRetriedAfterGatewayError(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`[{"id":"m1","name":"Al-Noor"}]`))
	}))
	defer srv.Close()

	c, err := New(Config{BaseURL: srv.URL, Retries: 2})
	if err != nil {
		t.Fatal(err)
	}
	got, err := c.ListMosques(context.Background())
	if err != nil || len(got) != 1 {
		t.Fatalf("ListMosques = %v, %v", got, err)
	}
	if atomic.LoadInt32(&calls) != 2 {
		t.Fatalf("calls = %d", atomic.LoadInt32(&calls))
	}
}

func TestListRejectsUnknownEnvelope(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"payload":{"rows":[{"id":"m1"}]}}`))
	})
	if _, err := c.ListMosques(context.Background()); err == nil {
		t.Fatal("expected an error for an unrecognised list shape")
	}
}

func TestListAcceptsEmptyEnvelope(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":[]}`))
	})
	got, err := c.ListMosques(context.Background())
	if err != nil || len(got) != 0 {
		t.Fatalf("ListMosques = %v, %v", got, err)
	}
}
