package memory

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mosquedir/mosqueadmin/pkg/backend"
	"github.com/mosquedir/mosqueadmin/pkg/directory"
)

// Feed names accepted by FailList.
const (
	FeedMosques  = "mosques"
	FeedApproved = "approved"
	FeedPending  = "pending"
	FeedRejected = "rejected"
)

// Account is a login known to the in-memory backend.
type Account struct {
	Password string
	User     backend.User
	// Code, when set, makes logins fail with that backend error code.
	Code string
}

// Backend is an in-process stand-in for the REST backend, used by --dev
// mode and tests.
type Backend struct {
	mu       sync.Mutex
	mosques  []directory.Mosque
	admins   []directory.Admin
	accounts map[string]Account
	tokens   map[string]bool

	listErr   map[string]error
	deleteErr map[string]error
}

var _ backend.Client = (*Backend)(nil)

func New(mosques []directory.Mosque, admins []directory.Admin) *Backend {
	return &Backend{
		mosques:   append([]directory.Mosque(nil), mosques...),
		admins:    append([]directory.Admin(nil), admins...),
		accounts:  map[string]Account{},
		tokens:    map[string]bool{},
		listErr:   map[string]error{},
		deleteErr: map[string]error{},
	}
}

// NewSeeded returns a backend with a small fixed directory.
func NewSeeded() *Backend {
	created := time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC)
	b := New(
		[]directory.Mosque{
			{ID: "m1", Name: "Al-Noor Mosque", Location: "Leeds", ContactEmail: "info@alnoor.example", ContactPhone: "0113 000 0001", VerificationCode: "NOOR-7781", CreatedAt: created},
			{ID: "m2", Name: "Al-Huda Centre", Location: "Bradford", ContactEmail: "office@alhuda.example", VerificationCode: "HUDA-1120", CreatedAt: created},
			{ID: "m3", Name: "Masjid Ar-Rahman", Location: "Manchester", Description: "Friday prayers in two sessions", VerificationCode: "RAHM-5531", CreatedAt: created},
			{ID: "m4", Name: "East End Masjid", Location: "London", ContactPhone: "020 0000 0004", VerificationCode: "EAST-0917", CreatedAt: created},
		},
		[]directory.Admin{
			{ID: "a1", Name: "Ali Hassan", Email: "ali@example.com", Phone: "07000 000001", MosqueID: "m1", Status: directory.AdminApproved},
			{ID: "a2", Name: "Sara Khan", Email: "sara@example.com", MosqueID: "m2", Status: directory.AdminPending},
			{ID: "a3", Name: "Yusuf Patel", Email: "yusuf@example.com", MosqueID: "m2", Status: directory.AdminPending},
			{ID: "a4", Name: "Omar Farouk", Email: "omar@example.com", PreviousMosqueIDs: []string{"m2", "m3"}, Status: directory.AdminRejected},
		},
	)
	b.AddAccount("super@example.com", Account{Password: "admin", User: backend.User{ID: "u0", Name: "Super Admin", Email: "super@example.com", Role: "super_admin"}})
	b.AddAccount("ali@example.com", Account{Password: "ali", User: backend.User{ID: "a1", Name: "Ali Hassan", Email: "ali@example.com", Role: "mosque_admin", MosqueID: "m1"}})
	b.AddAccount("sara@example.com", Account{Password: "sara", Code: backend.CodePendingApproval})
	b.AddAccount("omar@example.com", Account{Password: "omar", Code: backend.CodeAccountRejected})
	return b
}

func (b *Backend) AddAccount(email string, a Account) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.accounts[strings.ToLower(email)] = a
}

// FailList makes every subsequent list call for feed return err. A nil err
// clears the failure.
func (b *Backend) FailList(feed string, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err == nil {
		delete(b.listErr, feed)
		return
	}
	b.listErr[feed] = err
}

// FailDelete makes deleting mosque id fail with err.
func (b *Backend) FailDelete(id string, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.deleteErr[id] = err
}

func (b *Backend) ListMosques(ctx context.Context) ([]directory.Mosque, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.listErr[FeedMosques]; err != nil {
		return nil, err
	}
	return append([]directory.Mosque(nil), b.mosques...), nil
}

func (b *Backend) listAdmins(feed string, status directory.AdminStatus) ([]directory.Admin, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.listErr[feed]; err != nil {
		return nil, err
	}
	var out []directory.Admin
	for _, a := range b.admins {
		if a.Status == status {
			out = append(out, a)
		}
	}
	return out, nil
}

func (b *Backend) ListApprovedAdmins(ctx context.Context) ([]directory.Admin, error) {
	return b.listAdmins(FeedApproved, directory.AdminApproved)
}

func (b *Backend) ListPendingAdmins(ctx context.Context) ([]directory.Admin, error) {
	return b.listAdmins(FeedPending, directory.AdminPending)
}

func (b *Backend) ListRejectedAdmins(ctx context.Context) ([]directory.Admin, error) {
	return b.listAdmins(FeedRejected, directory.AdminRejected)
}

func (b *Backend) DeleteMosque(ctx context.Context, id, reason string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.deleteLocked(id, reason)
}

func (b *Backend) deleteLocked(id, reason string) error {
	if err := b.deleteErr[id]; err != nil {
		return err
	}
	if len(strings.TrimSpace(reason)) < 10 {
		return &backend.APIError{Status: http.StatusBadRequest, Message: "reason must be at least 10 characters"}
	}
	for i, m := range b.mosques {
		if m.ID == id {
			b.mosques = append(b.mosques[:i], b.mosques[i+1:]...)
			return nil
		}
	}
	return &backend.APIError{Status: http.StatusNotFound, Message: fmt.Sprintf("mosque %s not found", id)}
}

func (b *Backend) BulkDeleteMosques(ctx context.Context, ids []string, reason string) (backend.BulkResult, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	res := backend.BulkResult{Failed: map[string]string{}}
	for _, id := range ids {
		if err := b.deleteLocked(id, reason); err != nil {
			res.Failed[id] = err.Error()
			continue
		}
		res.Deleted = append(res.Deleted, id)
	}
	return res, nil
}

func (b *Backend) AssignAdmin(ctx context.Context, mosqueID, email string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.hasMosqueLocked(mosqueID) {
		return &backend.APIError{Status: http.StatusNotFound, Message: fmt.Sprintf("mosque %s not found", mosqueID)}
	}
	for _, a := range b.admins {
		if a.Status == directory.AdminApproved && a.MosqueID == mosqueID {
			return &backend.APIError{Status: http.StatusConflict, Message: "mosque already has an approved admin"}
		}
	}
	b.admins = append(b.admins, directory.Admin{ID: uuid.NewString(), Email: email, MosqueID: mosqueID, Status: directory.AdminApproved})
	return nil
}

func (b *Backend) ApproveAdmin(ctx context.Context, adminID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, a := range b.admins {
		if a.ID == adminID && a.Status == directory.AdminPending {
			b.admins[i].Status = directory.AdminApproved
			return nil
		}
	}
	return &backend.APIError{Status: http.StatusNotFound, Message: fmt.Sprintf("pending admin %s not found", adminID)}
}

func (b *Backend) RejectAdmin(ctx context.Context, adminID, reason string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, a := range b.admins {
		if a.ID == adminID && a.Status == directory.AdminPending {
			b.admins[i].Status = directory.AdminRejected
			b.admins[i].PreviousMosqueIDs = append(b.admins[i].PreviousMosqueIDs, a.MosqueID)
			b.admins[i].MosqueID = ""
			return nil
		}
	}
	return &backend.APIError{Status: http.StatusNotFound, Message: fmt.Sprintf("pending admin %s not found", adminID)}
}

func (b *Backend) Login(ctx context.Context, email, password string) (backend.LoginResponse, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	acc, ok := b.accounts[strings.ToLower(strings.TrimSpace(email))]
	if !ok || acc.Password != password {
		return backend.LoginResponse{}, &backend.APIError{Status: http.StatusUnauthorized, Message: "invalid email or password"}
	}
	if acc.Code != "" {
		return backend.LoginResponse{}, &backend.APIError{Status: http.StatusForbidden, Code: acc.Code, Message: strings.ToLower(strings.ReplaceAll(acc.Code, "_", " "))}
	}
	token := uuid.NewString()
	b.tokens[token] = true
	return backend.LoginResponse{Token: token, User: acc.User}, nil
}

func (b *Backend) Logout(ctx context.Context, token string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.tokens, token)
	return nil
}

func (b *Backend) hasMosqueLocked(id string) bool {
	for _, m := range b.mosques {
		if m.ID == id {
			return true
		}
	}
	return false
}
