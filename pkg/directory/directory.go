package directory

import (
	"strings"
	"time"
)

// AdminStatus is the lifecycle state of an admin application.
type AdminStatus string

const (
	AdminApproved AdminStatus = "approved"
	AdminPending  AdminStatus = "pending"
	AdminRejected AdminStatus = "rejected"
)

// MosqueStatus is the admin state derived for a mosque during reconciliation.
type MosqueStatus string

const (
	StatusApproved MosqueStatus = "approved"
	StatusNoAdmin  MosqueStatus = "no_admin"
)

// Mosque is a directory entry as returned by the backend. It is never
// modified locally.
type Mosque struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	Location         string    `json:"location"`
	Description      string    `json:"description"`
	ContactEmail     string    `json:"contact_email"`
	ContactPhone     string    `json:"contact_phone"`
	VerificationCode string    `json:"verification_code"`
	CreatedAt        time.Time `json:"created_at"`
}

// Admin is a user account that holds or requested management rights.
// Approved and pending admins reference a single mosque through MosqueID;
// rejected admins carry every mosque they were rejected from in
// PreviousMosqueIDs.
type Admin struct {
	ID                string      `json:"id"`
	Name              string      `json:"name"`
	Email             string      `json:"email"`
	Phone             string      `json:"phone"`
	MosqueID          string      `json:"mosque_id,omitempty"`
	PreviousMosqueIDs []string    `json:"previous_mosque_ids,omitempty"`
	Status            AdminStatus `json:"status"`
}

// MosqueView is the per-mosque projection of the mosque feed and the three
// admin feeds.
type MosqueView struct {
	Mosque
	Status         MosqueStatus `json:"status"`
	PendingAdmins  []Admin      `json:"pending_admins"`
	RejectedAdmins []Admin      `json:"rejected_admins"`
	ApprovedAdmin  *Admin       `json:"approved_admin,omitempty"`
}

// HasApprovedAdmin reports whether an approved admin is attached.
func (v MosqueView) HasApprovedAdmin() bool {
	return v.ApprovedAdmin != nil
}

// NormalizeID canonicalises an identifier before it is used as a lookup key.
func NormalizeID(id string) string {
	return strings.TrimSpace(id)
}

// IDs returns the identifiers of views in order.
func IDs(views []MosqueView) []string {
	out := make([]string, 0, len(views))
	for _, v := range views {
		out = append(out, v.ID)
	}
	return out
}
