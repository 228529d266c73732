package rest

import (
	"net/http"
	"strings"
	"time"

	"github.com/mosquedir/mosqueadmin/pkg/backend"
	"github.com/mosquedir/mosqueadmin/pkg/directory"
	"github.com/mosquedir/mosqueadmin/pkg/whttp"
	"github.com/tidwall/gjson"
)

// envelopeKeys are the wrapper fields list endpoints have been seen to use.
var envelopeKeys = []string{"data", "items", "results"}

// records extracts the list payload from body. A bare array is returned as
// is; otherwise the first envelope key holding an array wins. ok is false
// when no array was found at all.
func records(body string, extraKeys ...string) (items []gjson.Result, ok bool) {
	root := gjson.Parse(body)
	if root.IsArray() {
		return root.Array(), true
	}
	keys := append(append([]string{}, extraKeys...), envelopeKeys...)
	for _, k := range keys {
		v := root.Get(k)
		if v.IsArray() {
			return v.Array(), true
		}
		// {"data": {"mosques": [...]}}
		if v.IsObject() {
			for _, inner := range keys {
				if iv := v.Get(inner); iv.IsArray() {
					return iv.Array(), true
				}
			}
		}
	}
	return nil, false
}

func first(r gjson.Result, paths ...string) gjson.Result {
	for _, p := range paths {
		if v := r.Get(p); v.Exists() && v.Type != gjson.Null {
			return v
		}
	}
	return gjson.Result{}
}

// refID returns the identifier in r, which is either a bare id (string or
// number) or an embedded object carrying one.
func refID(r gjson.Result) string {
	if r.IsObject() {
		return directory.NormalizeID(first(r, "id", "_id", "mosque_id").String())
	}
	return directory.NormalizeID(r.String())
}

func decodeMosque(r gjson.Result) directory.Mosque {
	m := directory.Mosque{
		ID:               refID(first(r, "id", "_id")),
		Name:             first(r, "name").String(),
		Location:         first(r, "location", "address", "city").String(),
		Description:      first(r, "description").String(),
		ContactEmail:     first(r, "contact_email", "contactEmail", "email").String(),
		ContactPhone:     first(r, "contact_phone", "contactPhone", "phone").String(),
		VerificationCode: first(r, "verification_code", "verificationCode", "code").String(),
	}
	if ts := first(r, "created_at", "createdAt"); ts.Exists() {
		if t, err := time.Parse(time.RFC3339, ts.String()); err == nil {
			m.CreatedAt = t
		}
	}
	return m
}

func decodeAdmin(r gjson.Result, status directory.AdminStatus) directory.Admin {
	a := directory.Admin{
		ID:     refID(first(r, "id", "_id")),
		Name:   first(r, "name", "full_name", "fullName").String(),
		Email:  first(r, "email").String(),
		Phone:  first(r, "phone", "phone_number", "phoneNumber").String(),
		Status: status,
	}

	mosqueRef := first(r, "mosque_id", "mosqueId", "mosque")
	if status != directory.AdminRejected {
		a.MosqueID = refID(mosqueRef)
		return a
	}

	for _, p := range first(r, "previous_mosque_ids", "previousMosqueIds", "previous_mosques", "previousMosques").Array() {
		if id := refID(p); id != "" {
			a.PreviousMosqueIDs = append(a.PreviousMosqueIDs, id)
		}
	}
	// Older rejection records only kept the single mosque reference.
	if len(a.PreviousMosqueIDs) == 0 {
		if id := refID(mosqueRef); id != "" {
			a.PreviousMosqueIDs = []string{id}
		}
	}
	return a
}

func decodeLogin(body string) backend.LoginResponse {
	root := gjson.Parse(body)
	if d := root.Get("data"); d.IsObject() {
		root = d
	}
	u := first(root, "user", "admin")
	return backend.LoginResponse{
		Token: first(root, "token", "access_token", "accessToken").String(),
		User: backend.User{
			ID:       refID(first(u, "id", "_id")),
			Name:     first(u, "name").String(),
			Email:    first(u, "email").String(),
			Role:     first(u, "role").String(),
			MosqueID: refID(first(u, "mosque_id", "mosqueId", "mosque")),
		},
	}
}

// decodeBulk reads a per-id result list when the backend provides one.
func decodeBulk(body string, ids []string) backend.BulkResult {
	res := backend.BulkResult{Failed: map[string]string{}}
	items, _ := records(body)
	if len(items) == 0 {
		res.Deleted = append(res.Deleted, ids...)
		return res
	}
	for _, it := range items {
		id := refID(first(it, "id", "_id", "mosque_id"))
		if id == "" {
			continue
		}
		ok := first(it, "success", "ok", "deleted")
		if !ok.Exists() || ok.Bool() {
			res.Deleted = append(res.Deleted, id)
			continue
		}
		res.Failed[id] = first(it, "message", "error").String()
	}
	return res
}

// apiError turns a non-2xx response into a *backend.APIError. The message is
// taken from the JSON body if there is one, else from an HTML page title.
func apiError(res *whttp.WHTTPRes) *backend.APIError {
	e := &backend.APIError{Status: res.StatusCode}
	if gjson.Valid(res.BodyString) {
		root := gjson.Parse(res.BodyString)
		if nested := root.Get("error"); nested.IsObject() {
			root = nested
		}
		e.Code = first(root, "code", "error_code", "errorCode").String()
		e.Message = first(root, "message", "error", "detail").String()
	}
	if e.Message == "" && res.HTTPTitle != "" {
		e.Message = res.HTTPTitle
	}
	if e.Message == "" {
		e.Message = strings.TrimSpace(http.StatusText(res.StatusCode))
	}
	return e
}
