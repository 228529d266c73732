// Package reconcile merges the mosque feed with the approved, pending and
// rejected admin feeds into one view per mosque.
package reconcile

import (
	"github.com/mosquedir/mosqueadmin/pkg/directory"
	"github.com/mosquedir/mosqueadmin/pkg/feed"
)

// Reconciler builds MosqueViews. The zero value is ready to use.
type Reconciler struct {
	Log feed.Logger

	// OnDuplicateApproved is called when a second approved admin references
	// a mosque that already has one. The later record replaces the earlier.
	OnDuplicateApproved func(mosqueID string, replaced, kept directory.Admin)
}

// Reconcile is Reconciler{}.Reconcile.
func Reconcile(f feed.Feeds) []directory.MosqueView {
	return Reconciler{}.Reconcile(f)
}

// Reconcile returns exactly one view per mosque, in mosque feed order.
// Admin records whose mosque reference matches no mosque contribute to no
// view. The inputs are not modified.
func (r Reconciler) Reconcile(f feed.Feeds) []directory.MosqueView {
	log := r.Log
	if log == nil {
		log = feed.NopLogger{}
	}

	approved := make(map[string]directory.Admin, len(f.Approved))
	for _, a := range f.Approved {
		id := directory.NormalizeID(a.MosqueID)
		if id == "" {
			continue
		}
		if prev, ok := approved[id]; ok {
			log.Warnf("Mosque %s has more than one approved admin (%s, %s); keeping %s", id, prev.ID, a.ID, a.ID)
			if r.OnDuplicateApproved != nil {
				r.OnDuplicateApproved(id, prev, a)
			}
		}
		approved[id] = a
	}

	pending := make(map[string][]directory.Admin)
	for _, a := range f.Pending {
		id := directory.NormalizeID(a.MosqueID)
		if id == "" {
			continue
		}
		pending[id] = append(pending[id], a)
	}

	rejected := make(map[string][]directory.Admin)
	for _, a := range f.Rejected {
		seen := make(map[string]bool, len(a.PreviousMosqueIDs))
		for _, raw := range a.PreviousMosqueIDs {
			id := directory.NormalizeID(raw)
			if id == "" || seen[id] {
				continue
			}
			seen[id] = true
			rejected[id] = append(rejected[id], a)
		}
	}

	views := make([]directory.MosqueView, 0, len(f.Mosques))
	for _, m := range f.Mosques {
		id := directory.NormalizeID(m.ID)
		v := directory.MosqueView{
			Mosque:         m,
			Status:         directory.StatusNoAdmin,
			PendingAdmins:  copyAdmins(pending[id]),
			RejectedAdmins: copyAdmins(rejected[id]),
		}
		if a, ok := approved[id]; ok {
			a := a
			v.Status = directory.StatusApproved
			v.ApprovedAdmin = &a
		}
		views = append(views, v)
	}
	return views
}

// copyAdmins never returns nil so that views always carry empty lists.
func copyAdmins(in []directory.Admin) []directory.Admin {
	out := make([]directory.Admin, len(in))
	copy(out, in)
	return out
}
