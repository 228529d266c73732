// Package query filters reconciled mosque views by free-text search and
// categorical filters, and tracks the selection used for bulk actions.
package query

import (
	"fmt"
	"strings"

	"github.com/mosquedir/mosqueadmin/pkg/directory"
)

// All disables a categorical filter.
const All = "all"

// AdminFilter selects mosques by whether they have an approved admin.
type AdminFilter string

const (
	AdminAny  AdminFilter = All
	AdminHas  AdminFilter = "has"
	AdminNone AdminFilter = "none"
)

// ParseAdminFilter accepts "all", "has"/"yes"/"with", "none"/"no"/"without".
func ParseAdminFilter(s string) (AdminFilter, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", All, "any":
		return AdminAny, nil
	case "has", "yes", "with", "true":
		return AdminHas, nil
	case "none", "no", "without", "false":
		return AdminNone, nil
	}
	return "", fmt.Errorf("invalid admin filter %q (want all, has or none)", s)
}

// ParseStatusFilter accepts "all" or any spelling directory.ParseStatus knows.
func ParseStatusFilter(s string) (string, error) {
	t := strings.ToLower(strings.TrimSpace(s))
	if t == "" || t == All {
		return All, nil
	}
	st, ok := directory.ParseStatus(t)
	if !ok {
		return "", fmt.Errorf("invalid status filter %q (want all, approved or no_admin)", s)
	}
	return string(st), nil
}

// synonyms are search phrases that describe admin presence rather than
// text to look for.
var synonyms = map[string]AdminFilter{
	"admin":         AdminHas,
	"admins":        AdminHas,
	"has admin":     AdminHas,
	"with admin":    AdminHas,
	"has_admin":     AdminHas,
	"no admin":      AdminNone,
	"no_admin":      AdminNone,
	"no-admin":      AdminNone,
	"noadmin":       AdminNone,
	"without admin": AdminNone,
}

// Synonym reports whether term is an admin-status phrase and which admin
// presence it stands for.
func Synonym(term string) (AdminFilter, bool) {
	f, ok := synonyms[normalizeTerm(term)]
	return f, ok
}

// State is the query a dashboard session is currently showing.
type State struct {
	Search string `json:"search"`
	// Status is All or a directory.MosqueStatus value.
	Status string      `json:"status"`
	Admin  AdminFilter `json:"admin"`
	// SynonymShortcut makes an admin-status phrase match every record.
	// When false the phrase is applied as an admin-presence filter instead.
	SynonymShortcut bool `json:"synonym_shortcut"`
}

// DefaultState shows everything.
func DefaultState() State {
	return State{Status: All, Admin: AdminAny}
}

func normalizeTerm(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// MatchesSearch reports whether v matches the free-text term. An empty term
// matches everything.
func MatchesSearch(v directory.MosqueView, term string) bool {
	t := normalizeTerm(term)
	if t == "" {
		return true
	}
	contains := func(s string) bool { return strings.Contains(strings.ToLower(s), t) }

	if contains(v.Name) || contains(v.Location) || contains(v.VerificationCode) ||
		contains(v.Description) || contains(v.ContactEmail) || contains(v.ContactPhone) {
		return true
	}
	adminMatches := func(a directory.Admin) bool {
		return contains(a.Name) || contains(a.Email) || contains(a.Phone)
	}
	for _, a := range v.PendingAdmins {
		if adminMatches(a) {
			return true
		}
	}
	for _, a := range v.RejectedAdmins {
		if adminMatches(a) {
			return true
		}
	}
	return v.ApprovedAdmin != nil && adminMatches(*v.ApprovedAdmin)
}

// MatchesStatus reports whether v passes the status filter.
func MatchesStatus(v directory.MosqueView, status string) bool {
	return status == "" || status == All || string(v.Status) == status
}

// MatchesAdmin reports whether v passes the admin-presence filter.
func MatchesAdmin(v directory.MosqueView, f AdminFilter) bool {
	switch f {
	case AdminHas:
		return v.HasApprovedAdmin()
	case AdminNone:
		return !v.HasApprovedAdmin()
	}
	return true
}

// Matches applies the search predicate and both filters; all must hold.
func (s State) Matches(v directory.MosqueView) bool {
	search := s.Search
	if f, ok := Synonym(search); ok {
		search = ""
		if !s.SynonymShortcut && !MatchesAdmin(v, f) {
			return false
		}
	}
	return MatchesSearch(v, search) && MatchesStatus(v, s.Status) && MatchesAdmin(v, s.Admin)
}

// Apply returns the views matching s, in input order.
func Apply(views []directory.MosqueView, s State) []directory.MosqueView {
	out := make([]directory.MosqueView, 0, len(views))
	for _, v := range views {
		if s.Matches(v) {
			out = append(out, v)
		}
	}
	return out
}
