package backend

import (
	"context"
	"fmt"
	"net/http"

	"github.com/mosquedir/mosqueadmin/pkg/directory"
)

// Error codes the backend attaches to login failures.
const (
	CodeAccountRejected = "ACCOUNT_REJECTED"
	CodePendingApproval = "PENDING_APPROVAL"
	CodeAdminRemoved    = "ADMIN_REMOVED"
	CodeMosqueDeleted   = "MOSQUE_DELETED"
)

// Source lists the four feeds the dashboard is built from. Every call
// returns the whole collection.
type Source interface {
	ListMosques(ctx context.Context) ([]directory.Mosque, error)
	ListApprovedAdmins(ctx context.Context) ([]directory.Admin, error)
	ListPendingAdmins(ctx context.Context) ([]directory.Admin, error)
	ListRejectedAdmins(ctx context.Context) ([]directory.Admin, error)
}

// BulkResult is the outcome of a batched delete as reported by the backend.
type BulkResult struct {
	Deleted []string
	Failed  map[string]string
}

// Mutator performs write operations. Reasons are validated by callers
// before they reach a Mutator; the backend validates them again.
type Mutator interface {
	DeleteMosque(ctx context.Context, id, reason string) error
	BulkDeleteMosques(ctx context.Context, ids []string, reason string) (BulkResult, error)
	AssignAdmin(ctx context.Context, mosqueID, email string) error
	ApproveAdmin(ctx context.Context, adminID string) error
	RejectAdmin(ctx context.Context, adminID, reason string) error
}

// User is the account returned by a successful login.
type User struct {
	ID       string
	Name     string
	Email    string
	Role     string
	MosqueID string
}

type LoginResponse struct {
	Token string
	User  User
}

type Authenticator interface {
	Login(ctx context.Context, email, password string) (LoginResponse, error)
	Logout(ctx context.Context, token string) error
}

// Client is everything the console needs from the backend.
type Client interface {
	Source
	Mutator
	Authenticator
}

// APIError is returned for any non-2xx backend response.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	if e.Code != "" {
		return fmt.Sprintf("backend error %d (%s): %s", e.Status, e.Code, msg)
	}
	return fmt.Sprintf("backend error %d: %s", e.Status, msg)
}
