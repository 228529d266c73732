package utils

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
)

const (
	lockFileSuffix = ".lock"
	lockRetryDelay = 250 * time.Millisecond
)

// DBLock serialises access to one snapshot database between mosqueadmin
// processes. A running `serve` holds it for its whole lifetime.
type DBLock struct {
	lock   *flock.Flock
	dbPath string
	path   string
}

// NewDBLock creates the lock guarding dbPath. The lock file sits next to it.
func NewDBLock(dbPath string) (*DBLock, error) {
	absPath, err := GetAbsDBPath(dbPath)
	if err != nil {
		return nil, fmt.Errorf("could not resolve database path: %w", err)
	}
	lockPath := absPath + lockFileSuffix
	return &DBLock{
		lock:   flock.New(lockPath),
		dbPath: absPath,
		path:   lockPath,
	}, nil
}

// Lock acquires the lock, waiting until it is free or ctx is done.
func (l *DBLock) Lock(ctx context.Context) error {
	locked, err := l.lock.TryLock()
	if err != nil {
		return fmt.Errorf("failed to lock %s: %w", l.dbPath, err)
	}
	if locked {
		return nil
	}

	Log.Infof("Database %s is in use by another mosqueadmin process (a running serve?), waiting...", l.dbPath)
	locked, err = l.lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return fmt.Errorf("gave up waiting for %s: %w", l.dbPath, err)
	}
	if !locked {
		return fmt.Errorf("could not lock %s", l.dbPath)
	}
	return nil
}

func (l *DBLock) Unlock() error {
	if err := l.lock.Unlock(); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to unlock %s: %w", l.dbPath, err)
	}
	return nil
}

// GetAbsDBPath resolves the database path. An empty path selects the
// per-user default under ~/.config/mosqueadmin, creating the directory.
func GetAbsDBPath(dbPath string) (string, error) {
	if dbPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		dir := filepath.Join(home, ".config", "mosqueadmin")
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return "", err
		}
		return filepath.Join(dir, "mosqueadmin.sqlite"), nil
	}
	return filepath.Abs(dbPath)
}
