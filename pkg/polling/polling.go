package polling

import (
	"context"
	"errors"
	"time"

	"github.com/mosquedir/mosqueadmin/pkg/feed"
)

// Refresher is anything that reloads the directory, usually a
// *dashboard.Dashboard.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// Config holds everything Run needs.
type Config struct {
	Target   Refresher
	Interval time.Duration
	Log      feed.Logger // optional; nil = no logging

	// OnError is called for every failed refresh except superseded ones.
	OnError func(err error)
}

// Poll runs a single refresh. A refresh overtaken by a newer one is not an
// error.
func Poll(ctx context.Context, cfg Config) error {
	log := cfg.Log
	if log == nil {
		log = feed.NopLogger{}
	}
	err := cfg.Target.Refresh(ctx)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, feed.ErrSuperseded):
		log.Debugf("Refresh superseded by a newer one")
		return nil
	case ctx.Err() != nil:
		return ctx.Err()
	}
	log.Warnf("Refresh failed: %v", err)
	if cfg.OnError != nil {
		cfg.OnError(err)
	}
	return err
}

// Run refreshes every Interval until ctx is done. Failed refreshes do not
// stop the loop.
func Run(ctx context.Context, cfg Config) error {
	if cfg.Interval <= 0 {
		return errors.New("polling interval must be positive")
	}
	log := cfg.Log
	if log == nil {
		log = feed.NopLogger{}
	}
	log.Infof("Refreshing the directory every %s", cfg.Interval)

	ticker := time.NewTicker(cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := Poll(ctx, cfg); err != nil && ctx.Err() != nil {
				return ctx.Err()
			}
		}
	}
}
