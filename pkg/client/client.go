// Package client is the Go SDK for the Unearthify admin API. Every
// authenticated call goes through the session manager: a missing or expired
// token ends the session locally without touching the network, and a 401
// from the server ends it remotely.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	authmodels "unearthify/internal/auth/models"
	"unearthify/internal/catalog/models"
	"unearthify/internal/listing"
	"unearthify/internal/session"
)

// Record is a catalog record as returned by the API.
type Record map[string]any

// APIError is a non-2xx response.
type APIError struct {
	Status      int
	Code        string `json:"error"`
	Description string `json:"error_description"`
}

func (e *APIError) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("%s (%d): %s", e.Code, e.Status, e.Description)
	}
	return fmt.Sprintf("%s (%d)", e.Code, e.Status)
}

// IsStatus reports whether err is an APIError with the given status.
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == status
}

type Client struct {
	baseURL  string
	http     *http.Client
	sessions *session.Manager
	logger   *slog.Logger
}

type Option func(*Client)

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		c.http = h
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// New creates a client for the server at baseURL, e.g. "http://localhost:8080".
func New(baseURL string, sessions *session.Manager, opts ...Option) *Client {
	c := &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		http:     &http.Client{Timeout: 30 * time.Second},
		sessions: sessions,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type authResponse struct {
	Token string       `json:"token"`
	User  session.User `json:"user"`
}

// SignIn exchanges credentials for a token and stores the session.
func (c *Client) SignIn(ctx context.Context, email, password string) (*session.Session, error) {
	var res authResponse
	body := authmodels.SignInRequest{Email: email, Password: password}
	if err := c.do(ctx, http.MethodPost, "/api/auth/signin", body, &res, false); err != nil {
		return nil, err
	}
	return c.signedIn(ctx, res)
}

// SignUp checks the request locally before sending it, so malformed input
// never reaches the server.
func (c *Client) SignUp(ctx context.Context, req authmodels.SignUpRequest) (*session.Session, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}
	var res authResponse
	if err := c.do(ctx, http.MethodPost, "/api/auth/signup", req, &res, false); err != nil {
		return nil, err
	}
	return c.signedIn(ctx, res)
}

func (c *Client) signedIn(ctx context.Context, res authResponse) (*session.Session, error) {
	sess := session.Session{Token: res.Token, User: res.User}
	if err := c.sessions.SignedIn(ctx, sess); err != nil {
		return nil, err
	}
	return &sess, nil
}

// SignOut revokes the token server-side and ends the local session even when
// the server call fails.
func (c *Client) SignOut(ctx context.Context) error {
	err := c.do(ctx, http.MethodPost, "/api/auth/signout", nil, nil, true)
	if errors.Is(err, session.ErrUnauthenticated) {
		return nil
	}
	c.sessions.Logout(ctx, session.ReasonSignedOut)
	return err
}

func (c *Client) Me(ctx context.Context) (*session.User, error) {
	var u session.User
	if err := c.do(ctx, http.MethodGet, "/api/auth/me", nil, &u, true); err != nil {
		return nil, err
	}
	return &u, nil
}

// List fetches one page of kind. Zero fields of q are left to server defaults.
func (c *Client) List(ctx context.Context, kind models.Kind, q listing.Query) (*listing.Page[Record], error) {
	path := "/api/" + kind.String()
	if v := q.Values(); len(v) > 0 {
		path += "?" + v.Encode()
	}
	var page listing.Page[Record]
	if err := c.do(ctx, http.MethodGet, path, nil, &page, true); err != nil {
		return nil, err
	}
	return &page, nil
}

func (c *Client) Get(ctx context.Context, kind models.Kind, recordID string) (Record, error) {
	var rec Record
	if err := c.do(ctx, http.MethodGet, recordPath(kind, recordID, ""), nil, &rec, true); err != nil {
		return nil, err
	}
	return rec, nil
}

// Create posts body, typically one of the catalog model structs.
func (c *Client) Create(ctx context.Context, kind models.Kind, body any) (Record, error) {
	var rec Record
	if err := c.do(ctx, http.MethodPost, "/api/"+kind.String(), body, &rec, true); err != nil {
		return nil, err
	}
	return rec, nil
}

func (c *Client) Update(ctx context.Context, kind models.Kind, recordID string, body any) (Record, error) {
	var rec Record
	if err := c.do(ctx, http.MethodPut, recordPath(kind, recordID, ""), body, &rec, true); err != nil {
		return nil, err
	}
	return rec, nil
}

func (c *Client) Delete(ctx context.Context, kind models.Kind, recordID string) error {
	return c.do(ctx, http.MethodDelete, recordPath(kind, recordID, ""), nil, nil, true)
}

func (c *Client) Approve(ctx context.Context, kind models.Kind, recordID string) (Record, error) {
	return c.moderate(ctx, kind, recordID, "approve")
}

func (c *Client) Reject(ctx context.Context, kind models.Kind, recordID string) (Record, error) {
	return c.moderate(ctx, kind, recordID, "reject")
}

func (c *Client) Recover(ctx context.Context, kind models.Kind, recordID string) (Record, error) {
	return c.moderate(ctx, kind, recordID, "recover")
}

// Purge permanently deletes a record. Admin only.
func (c *Client) Purge(ctx context.Context, kind models.Kind, recordID string) error {
	return c.do(ctx, http.MethodDelete, recordPath(kind, recordID, "permanent"), nil, nil, true)
}

// Dashboard returns the landing-page counts.
func (c *Client) Dashboard(ctx context.Context) (map[string]any, error) {
	var stats map[string]any
	if err := c.do(ctx, http.MethodGet, "/api/dashboard", nil, &stats, true); err != nil {
		return nil, err
	}
	return stats, nil
}

func (c *Client) moderate(ctx context.Context, kind models.Kind, recordID, action string) (Record, error) {
	var rec Record
	if err := c.do(ctx, http.MethodPost, recordPath(kind, recordID, action), nil, &rec, true); err != nil {
		return nil, err
	}
	return rec, nil
}

func recordPath(kind models.Kind, recordID, action string) string {
	p := "/api/" + kind.String() + "/" + url.PathEscape(recordID)
	if action != "" {
		p += "/" + action
	}
	return p
}

// do sends one request. When authed, the token is checked before sending and
// a 401 ends the session.
func (c *Client) do(ctx context.Context, method, path string, body, out any, authed bool) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if authed {
		token, err := c.sessions.ValidToken(ctx)
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		apiErr := &APIError{Status: resp.StatusCode}
		if err := json.NewDecoder(resp.Body).Decode(apiErr); err != nil || apiErr.Code == "" {
			apiErr.Code = strings.ToLower(strings.ReplaceAll(http.StatusText(resp.StatusCode), " ", "_"))
		}
		if authed && resp.StatusCode == http.StatusUnauthorized {
			c.logger.InfoContext(ctx, "server rejected session", "path", path)
			c.sessions.Logout(ctx, session.ReasonUnauthorized)
		}
		return apiErr
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
