package storage

import (
	"time"

	"github.com/mosquedir/mosqueadmin/pkg/directory"
)

const (
	ChangeAdded          = "added"
	ChangeRemoved        = "removed"
	ChangeApproved       = "approved"
	ChangeUnassigned     = "unassigned"
	ChangePendingChanged = "pending_changed"
)

// Entry is the recorded state of one mosque as of the last sync.
type Entry struct {
	MosqueID      string
	Name          string
	Status        directory.MosqueStatus
	ApprovedAdmin string // email, empty when unassigned
	PendingCount  int
	RejectedCount int
	LastSeenAt    time.Time
}

// Change captures a single change event for auditing or printing.
type Change struct {
	OccurredAt time.Time `json:"occurred_at"`
	MosqueID   string    `json:"mosque_id"`
	Name       string    `json:"name"`
	ChangeType string    `json:"change_type"` // added | removed | approved | unassigned | pending_changed
	Detail     string    `json:"detail,omitempty"`
}

// EntryFromView flattens a reconciled view into what the snapshot keeps.
func EntryFromView(v directory.MosqueView) Entry {
	e := Entry{
		MosqueID:      v.ID,
		Name:          v.Name,
		Status:        v.Status,
		PendingCount:  len(v.PendingAdmins),
		RejectedCount: len(v.RejectedAdmins),
	}
	if v.ApprovedAdmin != nil {
		e.ApprovedAdmin = v.ApprovedAdmin.Email
		if e.ApprovedAdmin == "" {
			e.ApprovedAdmin = v.ApprovedAdmin.ID
		}
	}
	return e
}
