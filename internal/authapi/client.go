// Package authapi is a client for the external authentication API.
//
// The portal never authenticates users itself. It forwards registration,
// login and logout to the upstream API and keeps whatever session material
// the API hands back (cookies, or a bearer token) in domain.Credentials,
// which the caller persists per browser session and passes back in on the
// next call.
package authapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/DukeRupert/authportal/internal/domain"
	"github.com/DukeRupert/authportal/internal/metrics"
)

const (
	registerPath = "/auth/register"
	tokenPath    = "/auth/token"
	logoutPath   = "/auth/logout"

	// maxResponseBytes caps how much of an upstream body is read.
	maxResponseBytes = 1 << 20
)

// Config contains configuration for the auth API client.
type Config struct {
	// BaseURL is the API root, e.g. "https://api.example.com".
	BaseURL string

	// HTTPClient is used for all requests. When nil a client with Timeout
	// is created.
	HTTPClient *http.Client

	// Timeout applies only when HTTPClient is nil. Zero leaves the
	// transport defaults in place.
	Timeout time.Duration

	// SessionMode selects the login contract. Defaults to cookie.
	SessionMode SessionMode

	Logger *slog.Logger

	// Now is used for cookie expiry; defaults to time.Now.
	Now func() time.Time
}

// Client talks to the upstream auth API.
type Client struct {
	baseURL string
	mode    SessionMode
	client  *http.Client
	logger  *slog.Logger
	now     func() time.Time
}

// New creates a new auth API client.
func New(cfg Config) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, fmt.Errorf("auth API base URL is required")
	}
	u, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("parse auth API base URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("auth API base URL must be http or https, got %q", base)
	}

	mode := cfg.SessionMode
	if mode == "" {
		mode = SessionModeCookie
	}
	if _, ok := ParseSessionMode(string(mode)); !ok {
		return nil, fmt.Errorf("unknown session mode %q", mode)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Client{
		baseURL: base,
		mode:    mode,
		client:  httpClient,
		logger:  logger,
		now:     now,
	}, nil
}

// SessionMode returns the login contract in use.
func (c *Client) SessionMode() SessionMode {
	return c.mode
}

// Register creates a user account.
func (c *Client) Register(ctx context.Context, creds domain.Credentials, req RegisterRequest) (*RegisterResponse, domain.Credentials, error) {
	const op = "authapi.register"

	body, err := json.Marshal(req)
	if err != nil {
		return nil, creds, domain.Internal(err, op, "encode register request")
	}

	res, creds, err := c.do(ctx, op, registerPath, "application/json", body, creds)
	if err != nil {
		return nil, creds, err
	}

	var out RegisterResponse
	if err := c.decode(op, res, &out); err != nil {
		return nil, creds, err
	}
	return &out, creds, nil
}

// Login exchanges a username and password for an upstream session.
func (c *Client) Login(ctx context.Context, creds domain.Credentials, req LoginRequest) (*LoginResponse, domain.Credentials, error) {
	const op = "authapi.login"

	form := url.Values{}
	form.Set("username", req.Username)
	form.Set("password", req.Password)

	res, creds, err := c.do(ctx, op, tokenPath, "application/x-www-form-urlencoded", []byte(form.Encode()), creds)
	if err != nil {
		return nil, creds, err
	}

	var out LoginResponse
	if err := c.decode(op, res, &out); err != nil {
		return nil, creds, err
	}

	if c.mode == SessionModeBearer {
		if out.Access == "" {
			return nil, creds, domain.Unavailable(nil, op, "login response carried no access token")
		}
		creds.AccessToken = out.Access
		out.ExpiresAt = tokenExpiry(out.Access)
	}

	return &out, creds, nil
}

// Logout ends the upstream session. The request has an empty body but is
// sent as JSON.
func (c *Client) Logout(ctx context.Context, creds domain.Credentials) (*LogoutResponse, domain.Credentials, error) {
	const op = "authapi.logout"

	res, creds, err := c.do(ctx, op, logoutPath, "application/json", nil, creds)
	if err != nil {
		return nil, creds, err
	}

	var out LogoutResponse
	if err := c.decode(op, res, &out); err != nil {
		return nil, creds, err
	}
	return &out, creds, nil
}

// response is a fully read upstream reply.
type response struct {
	status int
	body   []byte
}

// do sends one POST and returns a 2xx response, or the error describing why
// not. Credentials are always returned updated with any Set-Cookie headers
// the API sent, even on failure.
func (c *Client) do(ctx context.Context, op, path, contentType string, body []byte, creds domain.Credentials) (*response, domain.Credentials, error) {
	start := time.Now()
	opName := strings.TrimPrefix(op, "authapi.")

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, reader)
	if err != nil {
		return nil, creds, domain.Internal(err, op, "create request")
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")
	for _, ck := range creds.HTTPCookies(c.now()) {
		req.AddCookie(ck)
	}
	if creds.AccessToken != "" {
		req.Header.Set("Authorization", "Bearer "+creds.AccessToken)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Warn("auth API request failed", "op", op, "error", err)
		metrics.AuthAPICallCompleted(opName, metrics.OutcomeUnavailable, time.Since(start))
		return nil, creds, domain.Unavailable(err, op, "auth API unreachable")
	}
	defer resp.Body.Close()

	creds = creds.Merge(resp.Cookies(), c.now())

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		c.logger.Warn("reading auth API response failed", "op", op, "status", resp.StatusCode, "error", err)
		metrics.AuthAPICallCompleted(opName, metrics.OutcomeUnavailable, time.Since(start))
		return nil, creds, domain.Unavailable(err, op, "read auth API response")
	}

	c.logger.Debug("auth API response", "op", op, "status", resp.StatusCode, "duration_ms", time.Since(start).Milliseconds())

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Op: op, Status: resp.StatusCode}
		detail, ok := parseErrorBody(resp.StatusCode, data)
		if !ok {
			c.logger.Warn("auth API returned a non-JSON error body", "op", op, "status", resp.StatusCode)
			metrics.AuthAPICallCompleted(opName, metrics.OutcomeUnavailable, time.Since(start))
			return nil, creds, domain.Unavailable(apiErr, op, "auth API returned an unreadable error response")
		}
		apiErr.Detail = detail
		metrics.AuthAPICallCompleted(opName, metrics.OutcomeRejected, time.Since(start))
		return nil, creds, apiErr
	}

	metrics.AuthAPICallCompleted(opName, metrics.OutcomeSuccess, time.Since(start))
	return &response{status: resp.StatusCode, body: data}, creds, nil
}

// decode unmarshals a success body. A malformed body is a transport-level
// failure from the caller's point of view.
func (c *Client) decode(op string, res *response, v interface{}) error {
	if err := json.Unmarshal(res.body, v); err != nil {
		c.logger.Warn("auth API returned malformed JSON", "op", op, "status", res.status, "error", err)
		return domain.Unavailable(err, op, "auth API returned malformed JSON")
	}
	return nil
}
