// Package api is the dashboard's backend client. Read endpoints consult the
// cache before the network and populate it after a successful response.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/apex/log"
	"golang.org/x/sync/singleflight"

	"github.com/kubdash/kubdash/pkg/cache"
	"github.com/kubdash/kubdash/pkg/storage"
)

// TokenKey is the storage key holding the bearer token. It lives outside
// the cache namespace so clearing the cache keeps the session.
const TokenKey = "token"

// ErrNotAuthenticated is returned by endpoints that need a token when none
// is stored.
var ErrNotAuthenticated = errors.New("not authenticated")

// Error is a non-2xx backend response.
type Error struct {
	Status int
	Detail string
}

func (e *Error) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("api: %d: %s", e.Status, e.Detail)
	}
	return fmt.Sprintf("api: %d %s", e.Status, http.StatusText(e.Status))
}

// TTLs are the tiers applied to cached responses.
type TTLs struct {
	Short  time.Duration
	Medium time.Duration
	Long   time.Duration
}

// DefaultTTLs mirrors the cache package tiers.
var DefaultTTLs = TTLs{Short: cache.TTLShort, Medium: cache.TTLMedium, Long: cache.TTLLong}

// Client talks to the dashboard backend.
type Client struct {
	baseURL string
	http    *http.Client
	cache   *cache.Cache
	tokens  storage.Storage
	ttl     TTLs
	log     log.Interface

	flight singleflight.Group
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces http.DefaultClient.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTokenStore sets where the bearer token is read from. It defaults to
// the cache's storage medium.
func WithTokenStore(s storage.Storage) Option {
	return func(c *Client) { c.tokens = s }
}

// WithTTLs overrides the TTL tiers.
func WithTTLs(t TTLs) Option {
	return func(c *Client) { c.ttl = t }
}

// WithLogger sets the logger.
func WithLogger(l log.Interface) Option {
	return func(c *Client) { c.log = l }
}

// New creates a Client for the backend at baseURL.
func New(baseURL string, c *cache.Cache, opts ...Option) *Client {
	cl := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    http.DefaultClient,
		cache:   c,
		tokens:  c.Storage(),
		ttl:     DefaultTTLs,
		log:     log.Log,
	}
	for _, opt := range opts {
		opt(cl)
	}
	return cl
}

// Cache returns the cache the client reads through.
func (c *Client) Cache() *cache.Cache { return c.cache }

// SetToken stores the bearer token used by the event endpoints.
func (c *Client) SetToken(token string) error {
	if token == "" {
		return errors.New("empty token")
	}
	if err := c.tokens.Set(TokenKey, token); err != nil {
		return fmt.Errorf("store token: %w", err)
	}
	return nil
}

// ClearToken removes the stored bearer token.
func (c *Client) ClearToken() error {
	if err := c.tokens.Remove(TokenKey); err != nil {
		return fmt.Errorf("remove token: %w", err)
	}
	return nil
}

func (c *Client) token() (string, error) {
	t, err := c.tokens.Get(TokenKey)
	if errors.Is(err, storage.ErrNotFound) || (err == nil && t == "") {
		return "", ErrNotAuthenticated
	}
	if err != nil {
		return "", fmt.Errorf("read token: %w", err)
	}
	return t, nil
}

// request describes a single backend call.
type request struct {
	method string
	path   string
	query  url.Values
	body   any
	auth   bool
}

// do performs r and decodes a 2xx JSON response into out when out is non-nil.
func (c *Client) do(ctx context.Context, r request, out any) error {
	target := c.baseURL + r.path
	if len(r.query) > 0 {
		target += "?" + r.query.Encode()
	}

	var body io.Reader
	if r.body != nil {
		data, err := json.Marshal(r.body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, r.method, target, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if r.auth {
		token, err := c.token()
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", r.method, r.path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp.StatusCode, data)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// decodeError extracts the backend's {"detail": "..."} message when present.
func decodeError(status int, data []byte) *Error {
	apiErr := &Error{Status: status}
	var payload struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(data, &payload); err != nil || len(payload.Detail) == 0 {
		return apiErr
	}
	var detail string
	if err := json.Unmarshal(payload.Detail, &detail); err == nil {
		apiErr.Detail = detail
	} else {
		// Validation errors carry a structured detail.
		apiErr.Detail = string(payload.Detail)
	}
	return apiErr
}
