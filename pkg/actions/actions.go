// Package actions runs the write operations of the console: deleting
// mosques and managing admin assignments.
package actions

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/mosquedir/mosqueadmin/pkg/backend"
)

// MinReasonLength is the shortest deletion or rejection reason accepted.
const MinReasonLength = 10

var validate = validator.New()

type deleteInput struct {
	IDs    []string `validate:"required,min=1,dive,required"`
	Reason string   `validate:"required,min=10"`
}

type assignInput struct {
	MosqueID string `validate:"required"`
	Email    string `validate:"required,email"`
}

type rejectInput struct {
	AdminID string `validate:"required"`
	Reason  string `validate:"required,min=10"`
}

// ValidationError is returned before any request is made when user input
// is unacceptable.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func check(in interface{}) error {
	err := validate.Struct(in)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	fe := verrs[0]
	field := strings.ToLower(fe.StructField())
	switch fe.Tag() {
	case "required":
		return &ValidationError{Field: field, Message: field + " is required"}
	case "min":
		if fe.Kind().String() == "slice" {
			return &ValidationError{Field: field, Message: "at least one " + strings.TrimSuffix(field, "s") + " is required"}
		}
		return &ValidationError{Field: field, Message: fmt.Sprintf("%s must be at least %s characters", field, fe.Param())}
	case "email":
		return &ValidationError{Field: field, Message: fmt.Sprintf("%q is not a valid email address", fe.Value())}
	}
	return &ValidationError{Field: field, Message: fmt.Sprintf("%s is invalid (%s)", field, fe.Tag())}
}

// ValidateReason checks a deletion or rejection reason.
func ValidateReason(reason string) error {
	return check(rejectInput{AdminID: "-", Reason: strings.TrimSpace(reason)})
}

// Failure is one id that could not be processed.
type Failure struct {
	ID  string
	Err error
}

// Report lists, per identifier, what a bulk operation did. Ids appear in
// the order they were requested.
type Report struct {
	Succeeded []string
	Failed    []Failure
}

// OK reports whether every id succeeded.
func (r Report) OK() bool { return len(r.Failed) == 0 }

// Options controls BulkDelete.
type Options struct {
	// Batched sends one bulk-delete request instead of one request per id.
	Batched bool
	// Concurrency bounds parallel per-id requests; defaults to 4.
	Concurrency int
}

// DeleteMosque deletes a single mosque after validating the reason.
func DeleteMosque(ctx context.Context, m backend.Mutator, id, reason string) error {
	reason = strings.TrimSpace(reason)
	if err := check(deleteInput{IDs: []string{id}, Reason: reason}); err != nil {
		return err
	}
	return m.DeleteMosque(ctx, id, reason)
}

// BulkDelete deletes every id and reports success or failure per id. The
// returned error is non-nil only for validation failures, in which case no
// request was made.
func BulkDelete(ctx context.Context, m backend.Mutator, ids []string, reason string, opts Options) (Report, error) {
	reason = strings.TrimSpace(reason)
	if err := check(deleteInput{IDs: ids, Reason: reason}); err != nil {
		return Report{}, err
	}
	if opts.Batched {
		return batchDelete(ctx, m, ids, reason), nil
	}

	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = 4
	}

	errs := make([]error, len(ids))
	idxChan := make(chan int, len(ids))
	for i := range ids {
		idxChan <- i
	}
	close(idxChan)

	var wg sync.WaitGroup
	for w := 0; w < concurrency && w < len(ids); w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range idxChan {
				errs[i] = m.DeleteMosque(ctx, ids[i], reason)
			}
		}()
	}
	wg.Wait()

	var r Report
	for i, id := range ids {
		if errs[i] != nil {
			r.Failed = append(r.Failed, Failure{ID: id, Err: errs[i]})
			continue
		}
		r.Succeeded = append(r.Succeeded, id)
	}
	return r, nil
}

func batchDelete(ctx context.Context, m backend.Mutator, ids []string, reason string) Report {
	var r Report
	res, err := m.BulkDeleteMosques(ctx, ids, reason)
	if err != nil {
		// The request as a whole failed; nothing is known to be deleted.
		for _, id := range ids {
			r.Failed = append(r.Failed, Failure{ID: id, Err: err})
		}
		return r
	}

	deleted := make(map[string]bool, len(res.Deleted))
	for _, id := range res.Deleted {
		deleted[id] = true
	}
	for _, id := range ids {
		switch {
		case deleted[id]:
			r.Succeeded = append(r.Succeeded, id)
		case res.Failed[id] != "":
			r.Failed = append(r.Failed, Failure{ID: id, Err: errors.New(res.Failed[id])})
		default:
			r.Failed = append(r.Failed, Failure{ID: id, Err: errors.New("not confirmed by server")})
		}
	}
	return r
}

// AssignAdmin assigns the account with email as the approved admin of a
// mosque.
func AssignAdmin(ctx context.Context, m backend.Mutator, mosqueID, email string) error {
	in := assignInput{MosqueID: strings.TrimSpace(mosqueID), Email: strings.TrimSpace(email)}
	if err := check(in); err != nil {
		return err
	}
	return m.AssignAdmin(ctx, in.MosqueID, in.Email)
}

// ApproveAdmin approves a pending admin application.
func ApproveAdmin(ctx context.Context, m backend.Mutator, adminID string) error {
	adminID = strings.TrimSpace(adminID)
	if adminID == "" {
		return &ValidationError{Field: "adminid", Message: "adminid is required"}
	}
	return m.ApproveAdmin(ctx, adminID)
}

// RejectAdmin rejects a pending admin application.
func RejectAdmin(ctx context.Context, m backend.Mutator, adminID, reason string) error {
	in := rejectInput{AdminID: strings.TrimSpace(adminID), Reason: strings.TrimSpace(reason)}
	if err := check(in); err != nil {
		return err
	}
	return m.RejectAdmin(ctx, in.AdminID, in.Reason)
}
