package feed

import (
	"context"
	"errors"
	"testing"

	"github.com/mosquedir/mosqueadmin/pkg/backend/memory"
	"github.com/mosquedir/mosqueadmin/pkg/directory"
)

func TestLoadReturnsAllFeeds(t *testing.T) {
	f, err := Load(context.Background(), memory.NewSeeded())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(f.Mosques) != 4 || len(f.Approved) != 1 || len(f.Pending) != 2 || len(f.Rejected) != 1 {
		t.Fatalf("unexpected feed sizes: %d %d %d %d", len(f.Mosques), len(f.Approved), len(f.Pending), len(f.Rejected))
	}
}

func TestLoadEmptyFeedsAreNotFailures(t *testing.T) {
	f, err := Load(context.Background(), memory.New([]directory.Mosque{{ID: "m1"}}, nil))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(f.Mosques) != 1 || len(f.Approved) != 0 {
		t.Fatalf("unexpected feeds: %+v", f)
	}
}

func TestLoadFailsWhenAnyFeedFails(t *testing.T) {
	boom := errors.New("boom")
	for _, name := range []string{memory.FeedMosques, memory.FeedApproved, memory.FeedPending, memory.FeedRejected} {
		b := memory.NewSeeded()
		b.FailList(name, boom)

		f, err := Load(context.Background(), b)
		if !errors.Is(err, boom) {
			t.Fatalf("%s: expected boom, got %v", name, err)
		}
		var fe *Error
		if !errors.As(err, &fe) || fe.Feed == "" {
			t.Fatalf("%s: expected *feed.Error, got %T", name, err)
		}
		if f.Mosques != nil || f.Approved != nil || f.Pending != nil || f.Rejected != nil {
			t.Fatalf("%s: partial feeds returned: %+v", name, f)
		}
	}
}

// gatedSource blocks ListMosques until its gate is closed.
type gatedSource struct {
	*memory.Backend
	gate    chan struct{}
	started chan struct{}
}

func (g *gatedSource) ListMosques(ctx context.Context) ([]directory.Mosque, error) {
	close(g.started)
	<-g.gate
	return g.Backend.ListMosques(ctx)
}

func TestLoaderDiscardsSupersededCycle(t *testing.T) {
	slow := &gatedSource{Backend: memory.NewSeeded(), gate: make(chan struct{}), started: make(chan struct{})}
	l := NewLoader(slow, nil)

	type result struct {
		c   Cycle
		err error
	}
	first := make(chan result, 1)
	go func() {
		c, err := l.Load(context.Background())
		first <- result{c, err}
	}()
	<-slow.started

	// A second cycle starts and finishes while the first is still in flight.
	l.src = memory.NewSeeded()
	second, err := l.Load(context.Background())
	if err != nil {
		t.Fatalf("second load: %v", err)
	}
	close(slow.gate)

	r := <-first
	if !errors.Is(r.err, ErrSuperseded) {
		t.Fatalf("expected ErrSuperseded, got %v", r.err)
	}
	if second.Seq <= r.c.Seq || !l.IsLatest(second.Seq) {
		t.Fatalf("unexpected sequence numbers: first %d second %d", r.c.Seq, second.Seq)
	}
}
