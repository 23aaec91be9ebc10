// Package client is a typed client for the pistachio back office API.
//
// Reads are cached by entity tag and dropped after a mutation that touches
// the entity. Mutations run on a context detached from the caller's so a
// sent payment is never abandoned half way; the client timeout still bounds
// them. Nothing is retried automatically.
//
// Input the server would refuse for certain, such as a non-positive amount,
// is rejected locally with a *domain.ValidationError and never sent.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"pistachio-backend/internal/cache"
)

const (
	defaultTimeout  = 15 * time.Second
	defaultCacheTTL = 30 * time.Second

	idempotencyKeyHeader = "Idempotency-Key"
)

// Session is the caller identity used for every request.
type Session struct {
	BaseURL string
	Token   string
}

type Client struct {
	session  Session
	http     *http.Client
	timeout  time.Duration
	cacheTTL time.Duration
	cache    cache.Cache[[]byte]
	newKey   func() string
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithCacheTTL sets how long reads are cached. Zero disables the cache.
func WithCacheTTL(d time.Duration) Option {
	return func(c *Client) { c.cacheTTL = d }
}

func New(session Session, opts ...Option) *Client {
	c := &Client{
		session:  session,
		http:     &http.Client{},
		timeout:  defaultTimeout,
		cacheTTL: defaultCacheTTL,
		newKey:   uuid.NewString,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.session.BaseURL = strings.TrimRight(c.session.BaseURL, "/")
	if c.cacheTTL > 0 {
		c.cache = cache.NewTTLCache[[]byte]()
	} else {
		c.cache = cache.NoopCache[[]byte]{}
	}
	return c
}

// WithSession returns a client for another session. The read cache is not
// shared.
func (c *Client) WithSession(s Session) *Client {
	return New(s, WithHTTPClient(c.http), WithTimeout(c.timeout), WithCacheTTL(c.cacheTTL))
}

func customerTag(id int64) string     { return fmt.Sprintf("customer:%d", id) }
func transactionsTag(id int64) string { return fmt.Sprintf("transactions:%d", id) }

const ordersTag = "orders"

func (c *Client) invalidate(tags ...string) {
	for _, t := range tags {
		c.cache.InvalidateTag(t)
	}
}

// get reads path through the cache.
func (c *Client) get(ctx context.Context, path string, out any, tags ...string) error {
	if raw, ok := c.cache.Get(path); ok {
		return json.Unmarshal(raw, out)
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	raw, err := c.send(ctx, http.MethodGet, path, nil, nil)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	c.cache.Set(path, raw, c.cacheTTL, tags...)
	return nil
}

// mutate sends a write that must not be cancelled by the caller once it is
// on the wire.
func (c *Client) mutate(ctx context.Context, method, path string, body any, header http.Header, out any) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
	defer cancel()
	raw, err := c.send(ctx, method, path, body, header)
	if err != nil {
		return err
	}
	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func (c *Client) send(ctx context.Context, method, path string, body any, header http.Header) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.session.BaseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	for k, v := range header {
		req.Header[k] = v
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.session.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.session.Token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &NetworkError{Op: method + " " + path, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &NetworkError{Op: method + " " + path, Err: err}
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return nil, &ServerError{Status: resp.StatusCode, Message: errorMessage(raw)}
	}
	return raw, nil
}

func errorMessage(raw []byte) string {
	var body struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &body); err != nil || strings.TrimSpace(body.Message) == "" {
		return GenericErrorMessage
	}
	return body.Message
}
