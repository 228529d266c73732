package utils

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func TestDBLockRoundTrip(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "state.sqlite")

	l, err := NewDBLock(dbPath)
	if err != nil {
		t.Fatalf("NewDBLock: %v", err)
	}
	if err := l.Lock(context.Background()); err != nil {
		t.Fatalf("Lock: %v", err)
	}
	if err := l.Unlock(); err != nil {
		t.Fatalf("Unlock: %v", err)
	}
	if l.path != dbPath+lockFileSuffix || l.dbPath != dbPath {
		t.Fatalf("paths = %q, %q", l.dbPath, l.path)
	}
}

func TestDBLockWaitHonoursContext(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "state.sqlite")

	holder, err := NewDBLock(dbPath)
	if err != nil {
		t.Fatal(err)
	}
	if err := holder.Lock(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer holder.Unlock()

	waiter, err := NewDBLock(dbPath)
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	if err := waiter.Lock(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Lock while held = %v", err)
	}
}

func TestGetAbsDBPathKeepsExplicitPath(t *testing.T) {
	p := filepath.Join(t.TempDir(), "x.sqlite")
	got, err := GetAbsDBPath(p)
	if err != nil {
		t.Fatal(err)
	}
	if got != p {
		t.Fatalf("got %q want %q", got, p)
	}
}
