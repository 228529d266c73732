// Package dashboard holds the state of one admin console: the reconciled
// directory, the active query and the selection. All methods are safe for
// concurrent use.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/mosquedir/mosqueadmin/pkg/actions"
	"github.com/mosquedir/mosqueadmin/pkg/backend"
	"github.com/mosquedir/mosqueadmin/pkg/directory"
	"github.com/mosquedir/mosqueadmin/pkg/feed"
	"github.com/mosquedir/mosqueadmin/pkg/query"
	"github.com/mosquedir/mosqueadmin/pkg/reconcile"
)

// ErrNotVisible is returned when selecting a mosque the current query hides.
var ErrNotVisible = errors.New("mosque is not in the current view")

// Backend is what the dashboard needs from the server.
type Backend interface {
	backend.Source
	backend.Mutator
}

type Options struct {
	Log    feed.Logger
	Query  query.State
	Delete actions.Options
	// OnLoad, when set, is called with every successfully applied load.
	OnLoad func(ctx context.Context, views []directory.MosqueView)
}

type Dashboard struct {
	loader *feed.Loader
	mut    backend.Mutator
	rec    reconcile.Reconciler
	log    feed.Logger
	opts   Options

	mu       sync.Mutex
	views    []directory.MosqueView
	visible  []directory.MosqueView
	state    query.State
	sel      *query.Selection
	loadedAt time.Time
	loadErr  error
}

func New(b Backend, opts Options) *Dashboard {
	if opts.Log == nil {
		opts.Log = feed.NopLogger{}
	}
	if opts.Query == (query.State{}) {
		opts.Query = query.DefaultState()
	}
	return &Dashboard{
		loader: feed.NewLoader(b, opts.Log),
		mut:    b,
		rec:    reconcile.Reconciler{Log: opts.Log},
		log:    opts.Log,
		opts:   opts,
		views:  []directory.MosqueView{},
		state:  opts.Query,
		sel:    query.NewSelection(),
	}
}

// Refresh reloads every feed. A failed load clears the list. A load that
// was overtaken by a newer Refresh changes nothing and returns
// feed.ErrSuperseded.
func (d *Dashboard) Refresh(ctx context.Context) error {
	cycle, err := d.loader.Load(ctx)
	if errors.Is(err, feed.ErrSuperseded) {
		return err
	}

	d.mu.Lock()
	if !d.loader.IsLatest(cycle.Seq) {
		d.mu.Unlock()
		return feed.ErrSuperseded
	}
	if err != nil {
		d.views = []directory.MosqueView{}
		d.loadErr = err
		d.applyLocked()
		d.mu.Unlock()
		d.log.Errorf("Failed to load the directory: %v", err)
		return err
	}
	d.views = d.rec.Reconcile(cycle.Feeds)
	d.loadErr = nil
	d.loadedAt = time.Now()
	d.applyLocked()
	views := append([]directory.MosqueView(nil), d.views...)
	d.mu.Unlock()

	if d.opts.OnLoad != nil {
		d.opts.OnLoad(ctx, views)
	}
	return nil
}

// applyLocked recomputes the visible list and drops selected ids that are
// no longer visible.
func (d *Dashboard) applyLocked() {
	d.visible = query.Apply(d.views, d.state)
	if n := d.sel.Prune(d.visible); n > 0 {
		d.log.Debugf("Deselected %d mosques hidden by the current query", n)
	}
}

// SetQuery replaces the whole query.
func (d *Dashboard) SetQuery(s query.State) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if s.Status == "" {
		s.Status = query.All
	}
	if s.Admin == "" {
		s.Admin = query.AdminAny
	}
	d.state = s
	d.applyLocked()
}

func (d *Dashboard) SetSearch(term string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.state.Search = term
	d.applyLocked()
}

func (d *Dashboard) SetStatusFilter(status string) error {
	st, err := query.ParseStatusFilter(status)
	if err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.state.Status = st
	d.applyLocked()
	return nil
}

func (d *Dashboard) SetAdminFilter(filter string) error {
	f, err := query.ParseAdminFilter(filter)
	if err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.state.Admin = f
	d.applyLocked()
	return nil
}

func (d *Dashboard) Query() query.State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Visible returns the mosques matching the current query, in directory
// order.
func (d *Dashboard) Visible() []directory.MosqueView {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]directory.MosqueView{}, d.visible...)
}

// All returns the whole reconciled directory.
func (d *Dashboard) All() []directory.MosqueView {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]directory.MosqueView{}, d.views...)
}

// SelectAll toggles between selecting every visible mosque and none. It
// returns the number selected afterwards.
func (d *Dashboard) SelectAll() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sel.SelectAll(d.visible)
	return d.sel.Len()
}

// Toggle flips the selection of one visible mosque.
func (d *Dashboard) Toggle(id string) (bool, error) {
	id = directory.NormalizeID(id)
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, v := range d.visible {
		if v.ID == id {
			return d.sel.Toggle(id), nil
		}
	}
	return false, fmt.Errorf("%w: %s", ErrNotVisible, id)
}

// Selected returns the selected ids in display order.
func (d *Dashboard) Selected() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.sel.OrderedIDs(d.visible)
}

// DeleteSelected deletes every selected mosque. Mosques the server
// confirmed are removed from the list and the selection; failed ones stay
// selected so they can be retried.
func (d *Dashboard) DeleteSelected(ctx context.Context, reason string) (actions.Report, error) {
	ids := d.Selected()
	report, err := actions.BulkDelete(ctx, d.mut, ids, reason, d.opts.Delete)
	if err != nil {
		return report, err
	}
	d.removeLocal(report.Succeeded)
	for _, f := range report.Failed {
		d.log.Warnf("Could not delete mosque %s: %v", f.ID, f.Err)
	}
	return report, nil
}

// Delete deletes a single mosque.
func (d *Dashboard) Delete(ctx context.Context, id, reason string) error {
	id = directory.NormalizeID(id)
	if err := actions.DeleteMosque(ctx, d.mut, id, reason); err != nil {
		return err
	}
	d.removeLocal([]string{id})
	return nil
}

func (d *Dashboard) removeLocal(ids []string) {
	if len(ids) == 0 {
		return
	}
	gone := make(map[string]bool, len(ids))
	for _, id := range ids {
		gone[id] = true
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	kept := make([]directory.MosqueView, 0, len(d.views))
	for _, v := range d.views {
		if !gone[v.ID] {
			kept = append(kept, v)
		}
	}
	d.views = kept
	d.sel.Remove(ids...)
	d.applyLocked()
}

// Stats summarises the loaded directory.
type Stats struct {
	Total          int       `json:"total"`
	Approved       int       `json:"approved"`
	NoAdmin        int       `json:"no_admin"`
	PendingAdmins  int       `json:"pending_admins"`
	RejectedAdmins int       `json:"rejected_admins"`
	Visible        int       `json:"visible"`
	Selected       int       `json:"selected"`
	LoadedAt       time.Time `json:"loaded_at,omitempty"`
	LoadError      string    `json:"load_error,omitempty"`
}

func (d *Dashboard) Stats() Stats {
	d.mu.Lock()
	defer d.mu.Unlock()
	s := Stats{
		Total:    len(d.views),
		Visible:  len(d.visible),
		Selected: d.sel.Len(),
		LoadedAt: d.loadedAt,
	}
	for _, v := range d.views {
		if v.Status == directory.StatusApproved {
			s.Approved++
		} else {
			s.NoAdmin++
		}
		s.PendingAdmins += len(v.PendingAdmins)
		s.RejectedAdmins += len(v.RejectedAdmins)
	}
	if d.loadErr != nil {
		s.LoadError = d.loadErr.Error()
	}
	return s
}
