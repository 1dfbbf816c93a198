// Package portal is the HTTP client for the hosting portal's REST API.
// The portal wraps every response in a {"result": ...} envelope and reports
// failures in-band as {"error", "error_description"}; this package translates
// that convention into typed results and *APIError values.
package portal

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"
)

const defaultCallTimeout = 10 * time.Second

var _ Directory = (*Client)(nil)

// Client talks to a portal instance over REST. The target portal is chosen
// per call by the credential's domain, so one client serves both embedded
// and installer credentials.
type Client struct {
	httpClient *http.Client
	timeout    time.Duration
	logger     *slog.Logger
}

// ClientOption configures the portal client.
type ClientOption func(*Client)

// WithTimeout sets the per-call timeout (default 10s).
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) { c.timeout = d }
}

// WithHTTPClient replaces the underlying HTTP client (used by tests).
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = hc }
}

// NewClient creates a portal REST client.
func NewClient(logger *slog.Logger, opts ...ClientOption) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		timeout:    defaultCallTimeout,
		logger:     logger.With(slog.String("component", "portal_client")),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// envelope is the portal's uniform response wrapper.
type envelope struct {
	Result           json.RawMessage `json:"result"`
	Error            string          `json:"error"`
	ErrorDescription string          `json:"error_description"`
}

// baseURL normalizes a credential domain into a callable base URL.
// Bare hostnames get https; explicit schemes (test servers) pass through.
func baseURL(domain string) string {
	if strings.Contains(domain, "://") {
		return strings.TrimRight(domain, "/")
	}
	return "https://" + strings.TrimRight(domain, "/")
}

// call performs one REST method invocation and decodes the result payload
// into out. Portal-reported errors come back as *APIError.
func (c *Client) call(ctx context.Context, cred Credential, method string, params url.Values, out any) error {
	if cred.Domain == "" {
		return &APIError{Code: "INVALID_CREDENTIALS", Description: "credential has no portal domain"}
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if params == nil {
		params = url.Values{}
	}
	params.Set("auth", cred.Token)

	reqURL := fmt.Sprintf("%s/rest/%s.json?%s", baseURL(cred.Domain), method, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("build %s request: %w", method, err)
	}
	// Large directory listings are worth compressing; handling the encoding
	// ourselves keeps the gzip reader under our control.
	req.Header.Set("Accept-Encoding", "gzip")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("portal %s call: %w", method, err)
	}
	defer resp.Body.Close()

	var body io.Reader = resp.Body
	if resp.Header.Get("Content-Encoding") == "gzip" {
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return fmt.Errorf("portal %s gzip response: %w", method, err)
		}
		defer gz.Close()
		body = gz
	}

	var env envelope
	if err := json.NewDecoder(body).Decode(&env); err != nil {
		return fmt.Errorf("decode portal %s response: %w", method, err)
	}

	if env.Error != "" {
		apiErr := &APIError{
			Code:        env.Error,
			Description: env.ErrorDescription,
			HTTPStatus:  resp.StatusCode,
		}
		c.logger.Debug("portal call failed",
			slog.String("method", method),
			slog.String("code", apiErr.Code),
		)
		return apiErr
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{
			Code:       "HTTP_" + strconv.Itoa(resp.StatusCode),
			HTTPStatus: resp.StatusCode,
		}
	}

	if out != nil && len(env.Result) > 0 {
		if err := json.Unmarshal(env.Result, out); err != nil {
			return fmt.Errorf("decode portal %s result: %w", method, err)
		}
	}
	return nil
}

// userPayload mirrors the portal's user record field naming. IDs arrive as
// strings or numbers depending on the portal version.
type userPayload struct {
	ID          any    `json:"ID"`
	Name        string `json:"NAME"`
	LastName    string `json:"LAST_NAME"`
	Email       string `json:"EMAIL"`
	Admin       any    `json:"ADMIN"`
	IsAdmin     any    `json:"IS_ADMIN"`
	Departments []any  `json:"UF_DEPARTMENT"`
}

func (p *userPayload) displayName() string {
	name := strings.TrimSpace(p.Name + " " + p.LastName)
	if name == "" {
		name = p.Email
	}
	return name
}

// parseID normalizes the portal's string-or-number IDs.
func parseID(v any) int64 {
	switch val := v.(type) {
	case string:
		n, err := strconv.ParseInt(val, 10, 64)
		if err != nil {
			return 0
		}
		return n
	case float64:
		return int64(val)
	case int64:
		return val
	case int:
		return int64(val)
	default:
		return 0
	}
}

// CurrentIdentity resolves the owner of the credential via user.current.
func (c *Client) CurrentIdentity(ctx context.Context, cred Credential) (*Identity, error) {
	var payload userPayload
	if err := c.call(ctx, cred, "user.current", nil, &payload); err != nil {
		return nil, err
	}

	id := parseID(payload.ID)
	if id <= 0 {
		return nil, &APIError{Code: "INVALID_RESULT", Description: "user.current returned no usable ID"}
	}

	identity := &Identity{
		ID:          id,
		Name:        payload.displayName(),
		Email:       payload.Email,
		AdminMarker: payload.Admin,
		IsAdminFlag: payload.IsAdmin,
	}
	for _, d := range payload.Departments {
		if dep := parseID(d); dep > 0 {
			identity.Departments = append(identity.Departments, dep)
		}
	}
	return identity, nil
}

// CheckIsAdmin asks the portal whether the credential's owner is an
// administrator via user.admin. The result is boolean-ish and may be
// list-wrapped; normalization happens here, not at call sites.
func (c *Client) CheckIsAdmin(ctx context.Context, cred Credential) (bool, error) {
	var result any
	if err := c.call(ctx, cred, "user.admin", nil, &result); err != nil {
		return false, err
	}
	return AffirmativeResult(result), nil
}

type departmentPayload struct {
	ID   any    `json:"ID"`
	Name string `json:"NAME"`
}

// GetDepartment fetches one department by ID. Returns nil (no error) when
// the portal reports no such department.
func (c *Client) GetDepartment(ctx context.Context, id int64, cred Credential) (*Department, error) {
	params := url.Values{}
	params.Set("ID", strconv.FormatInt(id, 10))

	var payload []departmentPayload
	if err := c.call(ctx, cred, "department.get", params, &payload); err != nil {
		return nil, err
	}
	if len(payload) == 0 {
		return nil, nil
	}
	return &Department{ID: parseID(payload[0].ID), Name: payload[0].Name}, nil
}

// ListDepartments returns the portal's full org chart.
func (c *Client) ListDepartments(ctx context.Context, cred Credential) ([]Department, error) {
	var payload []departmentPayload
	if err := c.call(ctx, cred, "department.get", nil, &payload); err != nil {
		return nil, err
	}
	departments := make([]Department, 0, len(payload))
	for _, p := range payload {
		departments = append(departments, Department{ID: parseID(p.ID), Name: p.Name})
	}
	return departments, nil
}

// ListUsers returns active portal users, optionally narrowed by a search
// term the portal matches against name and email fields.
func (c *Client) ListUsers(ctx context.Context, cred Credential, search string) ([]DirectoryUser, error) {
	params := url.Values{}
	if search != "" {
		params.Set("FILTER[FIND]", search)
	}

	var payload []userPayload
	if err := c.call(ctx, cred, "user.search", params, &payload); err != nil {
		return nil, err
	}
	users := make([]DirectoryUser, 0, len(payload))
	for _, p := range payload {
		id := parseID(p.ID)
		if id <= 0 {
			continue
		}
		users = append(users, DirectoryUser{ID: id, Name: p.displayName(), Email: p.Email})
	}
	return users, nil
}
