// Package notify prints classified notices for the operator.
package notify

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/fatih/color"
	"github.com/mosquedir/mosqueadmin/pkg/actions"
	"github.com/mosquedir/mosqueadmin/pkg/backend"
	"github.com/mosquedir/mosqueadmin/pkg/feed"
	"github.com/mosquedir/mosqueadmin/pkg/session"
)

type Notifier struct {
	mu      sync.Mutex
	w       io.Writer
	success *color.Color
	warn    *color.Color
	err     *color.Color
	info    *color.Color
}

func New(w io.Writer, noColor bool) *Notifier {
	n := &Notifier{
		w:       w,
		success: color.New(color.FgGreen),
		warn:    color.New(color.FgYellow),
		err:     color.New(color.FgRed, color.Bold),
		info:    color.New(color.FgCyan),
	}
	if noColor {
		for _, c := range []*color.Color{n.success, n.warn, n.err, n.info} {
			c.DisableColor()
		}
	}
	return n
}

func (n *Notifier) print(c *color.Color, prefix, format string, args ...interface{}) {
	n.mu.Lock()
	defer n.mu.Unlock()
	c.Fprintf(n.w, "%s %s\n", prefix, fmt.Sprintf(format, args...))
}

func (n *Notifier) Success(format string, args ...interface{}) {
	n.print(n.success, "[ok]", format, args...)
}

func (n *Notifier) Warn(format string, args ...interface{}) {
	n.print(n.warn, "[warn]", format, args...)
}

func (n *Notifier) Error(format string, args ...interface{}) {
	n.print(n.err, "[error]", format, args...)
}

func (n *Notifier) Info(format string, args ...interface{}) {
	n.print(n.info, "[info]", format, args...)
}

// LoadFailed reports a failed directory load with a retry hint.
func (n *Notifier) LoadFailed(err error) {
	var fe *feed.Error
	if errors.As(err, &fe) {
		n.Error("Could not load %s: %s", fe.Feed, describe(fe.Err))
	} else {
		n.Error("Could not load the directory: %s", describe(err))
	}
	n.Info("The list is empty until a reload succeeds. Run the command again to retry.")
}

// Report prints the outcome of a bulk action, one line per failure.
func (n *Notifier) Report(verb string, r actions.Report) {
	switch {
	case r.OK():
		n.Success("%s %d mosque(s)", verb, len(r.Succeeded))
	case len(r.Succeeded) == 0:
		n.Error("%s none of %d mosque(s)", verb, len(r.Failed))
	default:
		n.Warn("%s %d of %d mosque(s)", verb, len(r.Succeeded), len(r.Succeeded)+len(r.Failed))
	}
	for _, f := range r.Failed {
		n.Error("  %s: %s", f.ID, describe(f.Err))
	}
}

// Login prints the outcome of a login attempt.
func (n *Notifier) Login(o session.Outcome) {
	switch o := o.(type) {
	case session.Authenticated:
		n.Success("Logged in as %s (%s), session valid until %s", o.Session.Email, o.Session.Role, o.Session.ExpiresAt.Local().Format("2006-01-02 15:04"))
	case session.Rejected:
		n.Error("Your admin application was rejected. %s", o.Reason)
	case session.Pending:
		n.Warn("Your admin application is still awaiting approval.")
	case session.Removed:
		n.Error("You were removed as admin of your mosque. %s", o.Reason)
	case session.MosqueDeleted:
		n.Error("Your mosque was deleted from the directory. %s", o.Reason)
	case session.Failed:
		n.Error("Login failed: %s", o.Message)
	}
}

func describe(err error) string {
	var apiErr *backend.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return strings.TrimSpace(apiErr.Message)
	}
	return err.Error()
}
