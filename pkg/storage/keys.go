package storage

import (
	"fmt"
	"time"

	"github.com/mosquedir/mosqueadmin/pkg/directory"
)

// Fixed-width UTC layout so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	if t, err := time.Parse(timeLayout, s); err == nil {
		return t
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t
	}
	// CURRENT_TIMESTAMP format
	if t, err := time.Parse("2006-01-02 15:04:05", s); err == nil {
		return t
	}
	return time.Time{}
}

// diffEntry returns the changes between the recorded and the current state
// of the same mosque.
func diffEntry(old, cur Entry, now time.Time) []Change {
	var out []Change
	mk := func(typ, detail string) {
		out = append(out, Change{OccurredAt: now, MosqueID: cur.MosqueID, Name: cur.Name, ChangeType: typ, Detail: detail})
	}

	switch {
	case cur.Status == directory.StatusApproved && (old.Status != directory.StatusApproved || old.ApprovedAdmin != cur.ApprovedAdmin):
		if old.ApprovedAdmin != "" {
			mk(ChangeApproved, fmt.Sprintf("%s -> %s", old.ApprovedAdmin, cur.ApprovedAdmin))
		} else {
			mk(ChangeApproved, cur.ApprovedAdmin)
		}
	case cur.Status != directory.StatusApproved && old.Status == directory.StatusApproved:
		mk(ChangeUnassigned, old.ApprovedAdmin)
	}
	if old.PendingCount != cur.PendingCount {
		mk(ChangePendingChanged, fmt.Sprintf("%d -> %d", old.PendingCount, cur.PendingCount))
	}
	return out
}
