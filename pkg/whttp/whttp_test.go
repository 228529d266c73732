package whttp

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

func TestSendHTTPRequestRetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		if r.Header.Get("X-Test") != "yes" {
			t.Errorf("missing custom header")
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	client, err := NewClient(ClientOptions{RetryMax: 3})
	if err != nil {
		t.Fatal(err)
	}
	client.RetryWaitMin = 0
	client.RetryWaitMax = 0

	res, err := SendHTTPRequest(context.Background(), &WHTTPReq{
		Method:  http.MethodGet,
		URL:     srv.URL,
		Headers: []WHTTPHeader{{Name: "X-Test", Value: "yes"}},
	}, client)
	if err != nil {
		t.Fatalf("SendHTTPRequest: %v", err)
	}
	if res.StatusCode != http.StatusOK || res.BodyString != `{"ok":true}` {
		t.Fatalf("unexpected response: %+v", res)
	}
	if got := atomic.LoadInt32(&calls); got != 3 {
		t.Fatalf("expected 3 attempts, got %d", got)
	}
}

func TestSendHTTPRequestDoesNotRepeatAnsweredMutation(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		body, _ := io.ReadAll(r.Body)
		if string(body) != `{"a":1}` {
			t.Errorf("body = %q", body)
		}
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client, err := NewClient(ClientOptions{RetryMax: 3})
	if err != nil {
		t.Fatal(err)
	}
	client.RetryWaitMin = 0
	client.RetryWaitMax = 0

	for _, method := range []string{http.MethodPost, http.MethodDelete, http.MethodPatch} {
		atomic.StoreInt32(&calls, 0)
		res, err := SendHTTPRequest(context.Background(), &WHTTPReq{Method: method, URL: srv.URL, Body: `{"a":1}`}, client)
		if err != nil {
			t.Fatalf("%s: %v", method, err)
		}
		if res.StatusCode != http.StatusBadGateway {
			t.Fatalf("%s: status = %d", method, res.StatusCode)
		}
		if got := atomic.LoadInt32(&calls); got != 1 {
			t.Fatalf("%s: expected 1 attempt, got %d", method, got)
		}
	}
}

func TestRetryPolicyRetriesMutationWithoutResponse(t *testing.T) {
	retry, err := RetryPolicy(context.Background(), nil, errors.New("connection refused"))
	if err != nil || !retry {
		t.Fatalf("retry=%v err=%v", retry, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if retry, _ := RetryPolicy(ctx, nil, errors.New("connection refused")); retry {
		t.Fatal("retried after cancellation")
	}
}

func TestSendHTTPRequestPassesThroughFinalFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("<html><head><title>\n503 Service Unavailable\n</title></head><body></body></html>"))
	}))
	defer srv.Close()

	client, err := NewClient(ClientOptions{RetryMax: 1})
	if err != nil {
		t.Fatal(err)
	}
	client.RetryWaitMin = 0
	client.RetryWaitMax = 0

	res, err := SendHTTPRequest(context.Background(), &WHTTPReq{Method: http.MethodGet, URL: srv.URL}, client)
	if err != nil {
		t.Fatalf("SendHTTPRequest: %v", err)
	}
	if res.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("status = %d", res.StatusCode)
	}
	if res.HTTPTitle != "503 Service Unavailable" {
		t.Fatalf("title = %q", res.HTTPTitle)
	}
}

func TestNewClientRejectsBadProxy(t *testing.T) {
	if _, err := NewClient(ClientOptions{Proxy: "://bad"}); err == nil {
		t.Fatal("expected proxy parse error")
	}
}
