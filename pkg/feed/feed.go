// Package feed loads the four backend collections the dashboard is built
// from.
package feed

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/mosquedir/mosqueadmin/pkg/backend"
	"github.com/mosquedir/mosqueadmin/pkg/directory"
	"golang.org/x/sync/errgroup"
)

// ErrSuperseded is returned for a load cycle that finished after a newer
// cycle had already been started.
var ErrSuperseded = errors.New("load superseded by a newer refresh")

// Logger abstracts logging so callers can use logrus, stdlib log, or any
// other logger that satisfies this interface.
type Logger interface {
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
	Debugf(format string, args ...interface{})
}

// NopLogger silently discards all messages.
type NopLogger struct{}

func (NopLogger) Infof(string, ...interface{})  {}
func (NopLogger) Warnf(string, ...interface{})  {}
func (NopLogger) Errorf(string, ...interface{}) {}
func (NopLogger) Debugf(string, ...interface{}) {}

// Feeds is one consistent snapshot of the four collections, as returned by
// a single load.
type Feeds struct {
	Mosques  []directory.Mosque
	Approved []directory.Admin
	Pending  []directory.Admin
	Rejected []directory.Admin
}

// Error reports which collection failed to load.
type Error struct {
	Feed string
	Err  error
}

func (e *Error) Error() string { return fmt.Sprintf("load %s: %v", e.Feed, e.Err) }

func (e *Error) Unwrap() error { return e.Err }

// Load fetches all four collections concurrently. It returns either all of
// them or the first error; the remaining requests are cancelled on failure.
func Load(ctx context.Context, src backend.Source) (Feeds, error) {
	var f Feeds
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		m, err := src.ListMosques(gctx)
		if err != nil {
			return &Error{Feed: "mosques", Err: err}
		}
		f.Mosques = m
		return nil
	})
	g.Go(func() error {
		a, err := src.ListApprovedAdmins(gctx)
		if err != nil {
			return &Error{Feed: "approved admins", Err: err}
		}
		f.Approved = a
		return nil
	})
	g.Go(func() error {
		a, err := src.ListPendingAdmins(gctx)
		if err != nil {
			return &Error{Feed: "pending admins", Err: err}
		}
		f.Pending = a
		return nil
	})
	g.Go(func() error {
		a, err := src.ListRejectedAdmins(gctx)
		if err != nil {
			return &Error{Feed: "rejected admins", Err: err}
		}
		f.Rejected = a
		return nil
	})

	if err := g.Wait(); err != nil {
		return Feeds{}, err
	}
	return f, nil
}

// Cycle is the result of one Loader run.
type Cycle struct {
	Seq   uint64
	Feeds Feeds
}

// Loader numbers every load so that a slow, older load can never overwrite
// the result of a newer one.
type Loader struct {
	src backend.Source
	log Logger
	seq atomic.Uint64
}

func NewLoader(src backend.Source, log Logger) *Loader {
	if log == nil {
		log = NopLogger{}
	}
	return &Loader{src: src, log: log}
}

// Load starts a new cycle. If another cycle starts before this one
// finishes, the result is discarded and ErrSuperseded is returned.
func (l *Loader) Load(ctx context.Context) (Cycle, error) {
	seq := l.seq.Add(1)
	l.log.Debugf("Load cycle %d started", seq)

	f, err := Load(ctx, l.src)
	if !l.IsLatest(seq) {
		l.log.Debugf("Load cycle %d superseded by cycle %d", seq, l.seq.Load())
		return Cycle{Seq: seq}, ErrSuperseded
	}
	if err != nil {
		return Cycle{Seq: seq}, err
	}
	l.log.Debugf("Load cycle %d: %d mosques, %d approved, %d pending, %d rejected", seq, len(f.Mosques), len(f.Approved), len(f.Pending), len(f.Rejected))
	return Cycle{Seq: seq, Feeds: f}, nil
}

// IsLatest reports whether seq is the most recently started cycle.
func (l *Loader) IsLatest(seq uint64) bool {
	return l.seq.Load() == seq
}
