package session

import (
	"net/http"

	"github.com/mosquedir/mosqueadmin/pkg/backend"
)

// Outcome is the result of a login attempt. It is one of Authenticated,
// Rejected, Pending, Removed, MosqueDeleted or Failed.
type Outcome interface {
	isOutcome()
}

// Authenticated carries the newly created session.
type Authenticated struct{ Session *Session }

// Rejected means the admin application was turned down.
type Rejected struct{ Reason string }

// Pending means the application has not been reviewed yet.
type Pending struct{}

// Removed means the admin was removed from their mosque.
type Removed struct{ Reason string }

// MosqueDeleted means the admin's mosque no longer exists.
type MosqueDeleted struct{ Reason string }

// Failed covers wrong credentials and any other refusal.
type Failed struct{ Message string }

func (Authenticated) isOutcome() {}
func (Rejected) isOutcome()      {}
func (Pending) isOutcome()       {}
func (Removed) isOutcome()       {}
func (MosqueDeleted) isOutcome() {}
func (Failed) isOutcome()        {}

// Classify maps a backend refusal to an Outcome by its error code.
func Classify(e *backend.APIError) Outcome {
	switch e.Code {
	case backend.CodeAccountRejected:
		return Rejected{Reason: e.Message}
	case backend.CodePendingApproval:
		return Pending{}
	case backend.CodeAdminRemoved:
		return Removed{Reason: e.Message}
	case backend.CodeMosqueDeleted:
		return MosqueDeleted{Reason: e.Message}
	}
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	return Failed{Message: msg}
}
