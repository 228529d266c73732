package query

import (
	"sort"

	"github.com/mosquedir/mosqueadmin/pkg/directory"
)

// Selection is the set of mosque ids chosen for a bulk action.
type Selection struct {
	ids map[string]struct{}
}

func NewSelection() *Selection {
	return &Selection{ids: map[string]struct{}{}}
}

// SelectAll clears the selection when it already has as many entries as
// visible, and otherwise replaces it with exactly the visible ids.
func (s *Selection) SelectAll(visible []directory.MosqueView) {
	if len(s.ids) == len(visible) {
		s.Clear()
		return
	}
	s.ids = make(map[string]struct{}, len(visible))
	for _, v := range visible {
		s.ids[v.ID] = struct{}{}
	}
}

// Toggle adds id if absent and removes it if present. It reports whether
// id is selected afterwards.
func (s *Selection) Toggle(id string) bool {
	if _, ok := s.ids[id]; ok {
		delete(s.ids, id)
		return false
	}
	s.ids[id] = struct{}{}
	return true
}

// Prune drops every selected id that is not in visible and returns how
// many were dropped.
func (s *Selection) Prune(visible []directory.MosqueView) int {
	keep := make(map[string]struct{}, len(visible))
	for _, v := range visible {
		keep[v.ID] = struct{}{}
	}
	dropped := 0
	for id := range s.ids {
		if _, ok := keep[id]; !ok {
			delete(s.ids, id)
			dropped++
		}
	}
	return dropped
}

// Remove deselects ids.
func (s *Selection) Remove(ids ...string) {
	for _, id := range ids {
		delete(s.ids, id)
	}
}

func (s *Selection) Has(id string) bool {
	_, ok := s.ids[id]
	return ok
}

func (s *Selection) Len() int { return len(s.ids) }

func (s *Selection) Clear() { s.ids = map[string]struct{}{} }

// IDs returns the selected ids in sorted order.
func (s *Selection) IDs() []string {
	out := make([]string, 0, len(s.ids))
	for id := range s.ids {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// OrderedIDs returns the selected ids in the order they appear in views.
func (s *Selection) OrderedIDs(views []directory.MosqueView) []string {
	var out []string
	for _, v := range views {
		if s.Has(v.ID) {
			out = append(out, v.ID)
		}
	}
	return out
}
