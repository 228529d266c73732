package rest

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/mosquedir/mosqueadmin/pkg/backend"
	"github.com/mosquedir/mosqueadmin/pkg/directory"
	"github.com/mosquedir/mosqueadmin/pkg/whttp"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// DefaultPageSize stands in for pagination: the backend is asked for one
// page large enough to hold every record.
const DefaultPageSize = 1000

const (
	mosquesPath        = "/api/mosques"
	approvedAdminsPath = "/api/admins/approved"
	pendingAdminsPath  = "/api/admins/pending"
	rejectedAdminsPath = "/api/admins/rejected"
	bulkDeletePath     = "/api/mosques/bulk-delete"
	loginPath          = "/api/auth/login"
	logoutPath         = "/api/auth/logout"
)

type Config struct {
	BaseURL  string
	Token    string
	PageSize int
	Proxy    string
	Retries  int
	Timeout  time.Duration
	// Logger is passed to the retrying HTTP client.
	Logger interface{}
}

// Client talks to the mosque-directory REST backend.
type Client struct {
	baseURL  string
	pageSize int
	http     *retryablehttp.Client

	mu    sync.RWMutex
	token string
}

var _ backend.Client = (*Client)(nil)

func New(cfg Config) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, fmt.Errorf("backend URL is not configured")
	}
	if _, err := url.ParseRequestURI(base); err != nil {
		return nil, fmt.Errorf("invalid backend URL %q: %w", cfg.BaseURL, err)
	}

	hc, err := whttp.NewClient(whttp.ClientOptions{
		Proxy:    cfg.Proxy,
		RetryMax: cfg.Retries,
		Timeout:  cfg.Timeout,
		Logger:   cfg.Logger,
	})
	if err != nil {
		return nil, err
	}

	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Client{baseURL: base, pageSize: pageSize, http: hc, token: cfg.Token}, nil
}

// SetToken replaces the bearer token used for subsequent calls.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

func (c *Client) do(ctx context.Context, method, path, body string) (*whttp.WHTTPRes, error) {
	return c.send(ctx, c.currentToken(), method, path, body)
}

func (c *Client) send(ctx context.Context, token, method, path, body string) (*whttp.WHTTPRes, error) {
	req := &whttp.WHTTPReq{Method: method, URL: c.baseURL + path, Body: body}
	if token != "" {
		req.Headers = append(req.Headers, whttp.WHTTPHeader{Name: "Authorization", Value: "Bearer " + token})
	}
	if method != http.MethodGet {
		req.Headers = append(req.Headers, whttp.WHTTPHeader{Name: "X-Request-ID", Value: uuid.NewString()})
	}

	res, err := whttp.SendHTTPRequest(ctx, req, c.http)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	if res.StatusCode < 200 || res.StatusCode > 299 {
		return nil, apiError(res)
	}
	return res, nil
}

func (c *Client) list(ctx context.Context, path string, envelope ...string) ([]gjson.Result, error) {
	res, err := c.do(ctx, http.MethodGet, fmt.Sprintf("%s?limit=%d", path, c.pageSize), "")
	if err != nil {
		return nil, err
	}
	if !gjson.Valid(res.BodyString) {
		return nil, fmt.Errorf("GET %s: response is not valid JSON", path)
	}
	items, ok := records(res.BodyString, envelope...)
	if !ok {
		return nil, fmt.Errorf("GET %s: no record list in response", path)
	}
	return items, nil
}

func (c *Client) ListMosques(ctx context.Context) ([]directory.Mosque, error) {
	items, err := c.list(ctx, mosquesPath, "mosques")
	if err != nil {
		return nil, err
	}
	out := make([]directory.Mosque, 0, len(items))
	for _, it := range items {
		out = append(out, decodeMosque(it))
	}
	return out, nil
}

func (c *Client) listAdmins(ctx context.Context, path string, status directory.AdminStatus) ([]directory.Admin, error) {
	items, err := c.list(ctx, path, "admins")
	if err != nil {
		return nil, err
	}
	out := make([]directory.Admin, 0, len(items))
	for _, it := range items {
		out = append(out, decodeAdmin(it, status))
	}
	return out, nil
}

func (c *Client) ListApprovedAdmins(ctx context.Context) ([]directory.Admin, error) {
	return c.listAdmins(ctx, approvedAdminsPath, directory.AdminApproved)
}

func (c *Client) ListPendingAdmins(ctx context.Context) ([]directory.Admin, error) {
	return c.listAdmins(ctx, pendingAdminsPath, directory.AdminPending)
}

func (c *Client) ListRejectedAdmins(ctx context.Context) ([]directory.Admin, error) {
	return c.listAdmins(ctx, rejectedAdminsPath, directory.AdminRejected)
}

func (c *Client) DeleteMosque(ctx context.Context, id, reason string) error {
	body, _ := sjson.Set("", "reason", reason)
	_, err := c.do(ctx, http.MethodDelete, mosquesPath+"/"+url.PathEscape(id), body)
	return err
}

func (c *Client) BulkDeleteMosques(ctx context.Context, ids []string, reason string) (backend.BulkResult, error) {
	body, _ := sjson.Set("", "ids", ids)
	body, _ = sjson.Set(body, "reason", reason)
	res, err := c.do(ctx, http.MethodPost, bulkDeletePath, body)
	if err != nil {
		return backend.BulkResult{}, err
	}
	return decodeBulk(res.BodyString, ids), nil
}

func (c *Client) AssignAdmin(ctx context.Context, mosqueID, email string) error {
	body, _ := sjson.Set("", "email", email)
	_, err := c.do(ctx, http.MethodPost, mosquesPath+"/"+url.PathEscape(mosqueID)+"/assign-admin", body)
	return err
}

func (c *Client) ApproveAdmin(ctx context.Context, adminID string) error {
	_, err := c.do(ctx, http.MethodPost, "/api/admins/"+url.PathEscape(adminID)+"/approve", "")
	return err
}

func (c *Client) RejectAdmin(ctx context.Context, adminID, reason string) error {
	body, _ := sjson.Set("", "reason", reason)
	_, err := c.do(ctx, http.MethodPost, "/api/admins/"+url.PathEscape(adminID)+"/reject", body)
	return err
}

func (c *Client) Login(ctx context.Context, email, password string) (backend.LoginResponse, error) {
	body, _ := sjson.Set("", "email", email)
	body, _ = sjson.Set(body, "password", password)
	res, err := c.do(ctx, http.MethodPost, loginPath, body)
	if err != nil {
		return backend.LoginResponse{}, err
	}
	lr := decodeLogin(res.BodyString)
	if lr.Token == "" {
		return backend.LoginResponse{}, fmt.Errorf("login response carried no token")
	}
	return lr, nil
}

func (c *Client) Logout(ctx context.Context, token string) error {
	_, err := c.send(ctx, token, http.MethodPost, logoutPath, "")
	return err
}

func (c *Client) currentToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}
