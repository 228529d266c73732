package actions

import (
	"context"
	"errors"
	"reflect"
	"sync/atomic"
	"testing"

	"github.com/mosquedir/mosqueadmin/pkg/backend"
	"github.com/mosquedir/mosqueadmin/pkg/backend/memory"
)

// countingMutator records how many calls reached the backend.
type countingMutator struct {
	*memory.Backend
	calls int32
}

func (c *countingMutator) DeleteMosque(ctx context.Context, id, reason string) error {
	atomic.AddInt32(&c.calls, 1)
	return c.Backend.DeleteMosque(ctx, id, reason)
}

func (c *countingMutator) BulkDeleteMosques(ctx context.Context, ids []string, reason string) (backend.BulkResult, error) {
	atomic.AddInt32(&c.calls, 1)
	return c.Backend.BulkDeleteMosques(ctx, ids, reason)
}

func TestValidateReason(t *testing.T) {
	tests := []struct {
		reason string
		ok     bool
	}{
		{"", false},
		{"   ", false},
		{"too short", false},
		{"  short    ", false},
		{"duplicate!", true},
		{"listing was created twice", true},
	}
	for _, tt := range tests {
		err := ValidateReason(tt.reason)
		if (err == nil) != tt.ok {
			t.Errorf("ValidateReason(%q) = %v, want ok=%t", tt.reason, err, tt.ok)
		}
		var ve *ValidationError
		if err != nil && (!errors.As(err, &ve) || ve.Field != "reason") {
			t.Errorf("ValidateReason(%q) returned %T %v", tt.reason, err, err)
		}
	}
}

func TestBulkDeleteValidationMakesNoRequest(t *testing.T) {
	m := &countingMutator{Backend: memory.NewSeeded()}

	_, err := BulkDelete(context.Background(), m, []string{"m1"}, "short", Options{})
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if ve.Message != "reason must be at least 10 characters" {
		t.Errorf("message = %q", ve.Message)
	}

	_, err = BulkDelete(context.Background(), m, []string{}, "a perfectly fine reason", Options{})
	if !errors.As(err, &ve) || ve.Field != "ids" {
		t.Fatalf("expected ids validation error, got %v", err)
	}

	if err := DeleteMosque(context.Background(), m, "m1", ""); err == nil {
		t.Fatal("expected error for empty reason")
	}
	if n := atomic.LoadInt32(&m.calls); n != 0 {
		t.Fatalf("%d requests made despite validation failure", n)
	}
}

func TestBulkDeleteReportsPerID(t *testing.T) {
	b := memory.NewSeeded()
	b.FailDelete("m2", errors.New("mosque has an open dispute"))

	r, err := BulkDelete(context.Background(), b, []string{"m1", "m2", "m3", "missing"}, "closing duplicate listings", Options{Concurrency: 2})
	if err != nil {
		t.Fatalf("BulkDelete: %v", err)
	}
	if !reflect.DeepEqual(r.Succeeded, []string{"m1", "m3"}) {
		t.Errorf("succeeded = %v", r.Succeeded)
	}
	if len(r.Failed) != 2 || r.Failed[0].ID != "m2" || r.Failed[1].ID != "missing" {
		t.Fatalf("failed = %+v", r.Failed)
	}
	var apiErr *backend.APIError
	if !errors.As(r.Failed[1].Err, &apiErr) || apiErr.Status != 404 {
		t.Errorf("missing id error = %v", r.Failed[1].Err)
	}
	if r.OK() {
		t.Error("report with failures must not be OK")
	}

	left, _ := b.ListMosques(context.Background())
	if len(left) != 2 {
		t.Errorf("expected 2 mosques left, got %d", len(left))
	}
}

func TestBulkDeleteBatched(t *testing.T) {
	b := memory.NewSeeded()
	b.FailDelete("m4", errors.New("locked"))
	m := &countingMutator{Backend: b}

	r, err := BulkDelete(context.Background(), m, []string{"m3", "m4"}, "merged into another listing", Options{Batched: true})
	if err != nil {
		t.Fatal(err)
	}
	if atomic.LoadInt32(&m.calls) != 1 {
		t.Errorf("batched delete made %d calls", m.calls)
	}
	if !reflect.DeepEqual(r.Succeeded, []string{"m3"}) || len(r.Failed) != 1 || r.Failed[0].ID != "m4" {
		t.Fatalf("report = %+v", r)
	}
}

type failingBulk struct{ *memory.Backend }

func (failingBulk) BulkDeleteMosques(context.Context, []string, string) (backend.BulkResult, error) {
	return backend.BulkResult{}, &backend.APIError{Status: 500, Message: "database unavailable"}
}

func TestBulkDeleteBatchedWholeFailure(t *testing.T) {
	r, err := BulkDelete(context.Background(), failingBulk{memory.NewSeeded()}, []string{"m1", "m2"}, "merged into another listing", Options{Batched: true})
	if err != nil {
		t.Fatal(err)
	}
	if len(r.Succeeded) != 0 || len(r.Failed) != 2 {
		t.Fatalf("report = %+v", r)
	}
}

func TestAssignApproveReject(t *testing.T) {
	ctx := context.Background()
	b := memory.NewSeeded()

	if err := AssignAdmin(ctx, b, "m3", "not-an-email"); err == nil {
		t.Fatal("expected invalid email error")
	}
	if err := AssignAdmin(ctx, b, "m3", " new@example.com "); err != nil {
		t.Fatalf("AssignAdmin: %v", err)
	}
	if err := ApproveAdmin(ctx, b, "a2"); err != nil {
		t.Fatalf("ApproveAdmin: %v", err)
	}
	if err := RejectAdmin(ctx, b, "a3", "nope"); err == nil {
		t.Fatal("expected short reason error")
	}
	if err := RejectAdmin(ctx, b, "a3", "could not verify identity"); err != nil {
		t.Fatalf("RejectAdmin: %v", err)
	}

	approved, _ := b.ListApprovedAdmins(ctx)
	if len(approved) != 3 {
		t.Errorf("approved admins = %d", len(approved))
	}
	rejected, _ := b.ListRejectedAdmins(ctx)
	if len(rejected) != 2 {
		t.Errorf("rejected admins = %d", len(rejected))
	}
}
