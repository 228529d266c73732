package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/mosquedir/mosqueadmin/internal/utils"
	"github.com/mosquedir/mosqueadmin/pkg/backend"
	"github.com/mosquedir/mosqueadmin/pkg/backend/memory"
	"github.com/mosquedir/mosqueadmin/pkg/backend/rest"
	"github.com/mosquedir/mosqueadmin/pkg/directory"
	"github.com/mosquedir/mosqueadmin/pkg/notify"
	"github.com/mosquedir/mosqueadmin/pkg/session"
	"github.com/mosquedir/mosqueadmin/pkg/storage"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// env is everything a command needs: the backend, the local database and
// the logged-in session.
type env struct {
	backend  backend.Client
	db       *storage.DB
	lock     *utils.DBLock
	sessions *session.Manager
	session  *session.Session
	notify   *notify.Notifier
}

func (e *env) Close() {
	if e.db != nil {
		e.db.Close()
	}
	if e.lock != nil {
		if err := e.lock.Unlock(); err != nil {
			utils.Log.Warnf("%v", err)
		}
	}
}

func newNotifier(cmd *cobra.Command) *notify.Notifier {
	noColor, _ := cmd.Flags().GetBool("no-color")
	return notify.New(cmd.OutOrStdout(), noColor)
}

func newBackend(cmd *cobra.Command) (backend.Client, error) {
	if dev, _ := cmd.Flags().GetBool("dev"); dev {
		utils.Log.Debug("Using the in-memory development directory")
		return memory.NewSeeded(), nil
	}
	proxy, _ := cmd.Flags().GetString("proxy")
	return rest.New(rest.Config{
		BaseURL:  viper.GetString("api.url"),
		PageSize: viper.GetInt("api.page_size"),
		Proxy:    proxy,
		Retries:  viper.GetInt("api.retries"),
		Timeout:  viper.GetDuration("api.timeout"),
		Logger:   utils.RetryLogger{},
	})
}

// openEnv builds the backend and opens the database under its file lock.
func openEnv(cmd *cobra.Command) (*env, error) {
	e := &env{notify: newNotifier(cmd)}

	b, err := newBackend(cmd)
	if err != nil {
		return nil, err
	}
	e.backend = b

	dbPath, err := utils.GetAbsDBPath(viper.GetString("db.path"))
	if err != nil {
		return nil, err
	}
	lock, err := utils.NewDBLock(dbPath)
	if err != nil {
		return nil, err
	}
	if err := lock.Lock(cmd.Context()); err != nil {
		return nil, err
	}
	e.lock = lock

	db, err := storage.Open(dbPath)
	if err != nil {
		e.Close()
		return nil, fmt.Errorf("open database %s: %w", dbPath, err)
	}
	e.db = db
	e.sessions = session.NewManager(b, db)
	return e, nil
}

// openAuthedEnv is openEnv plus a valid super admin session, whose token is
// used for every backend call.
func openAuthedEnv(cmd *cobra.Command) (*env, error) {
	e, err := openEnv(cmd)
	if err != nil {
		return nil, err
	}
	s, err := e.sessions.Current(cmd.Context())
	if err != nil {
		e.Close()
		if errors.Is(err, session.ErrNoSession) || errors.Is(err, session.ErrSessionExpired) {
			return nil, fmt.Errorf("%w (run 'mosqueadmin login')", err)
		}
		return nil, err
	}
	if !s.IsSuperAdmin() {
		e.Close()
		return nil, fmt.Errorf("%s is not a super admin; this console needs a super admin account", s.Email)
	}
	if ts, ok := e.backend.(interface{ SetToken(string) }); ok {
		ts.SetToken(s.Token)
	}
	e.session = s
	return e, nil
}

// snapshotHook records every applied load in the local history.
func snapshotHook(db *storage.DB, n *notify.Notifier) func(context.Context, []directory.MosqueView) {
	return func(ctx context.Context, views []directory.MosqueView) {
		changes, err := db.SyncSnapshot(ctx, views, storage.SyncOptions{})
		if err != nil {
			utils.Log.Warnf("Could not record snapshot: %v", err)
			return
		}
		if len(changes) > 0 {
			n.Info("%d change(s) since the last snapshot (see 'mosqueadmin changes')", len(changes))
		}
	}
}
