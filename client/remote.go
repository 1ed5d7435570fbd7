// Package client talks to the flashcard API. Remote implements the
// collection store contract over HTTP and the live WebSocket streams, so the
// sync, draft and practice packages run unchanged against a server.
package client

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

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"

	"github.com/andrewpaige1/flashcardhero-api/generation"
	"github.com/andrewpaige1/flashcardhero-api/models"
	"github.com/andrewpaige1/flashcardhero-api/store"
)

const (
	defaultServerURL = "http://localhost:8080"
	defaultUserAgent = "flashcards/0.1"
	requestTimeout   = 30 * time.Second
	maxErrorBody     = 4 << 10
)

// ErrForeignOwner is returned when listing another user's collections by id;
// the API only lists the caller's own collections by owner.
var ErrForeignOwner = errors.New("only the caller's own collections can be listed by owner")

// HTTPError is a non-2xx API response.
type HTTPError struct {
	Status  int
	Message string
}

func (e *HTTPError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api returned status %d", e.Status)
	}
	return fmt.Sprintf("api returned status %d: %s", e.Status, e.Message)
}

var (
	_ store.CollectionStore = (*Remote)(nil)
	_ generation.Generator  = (*Remote)(nil)
)

// Remote is an API client for one caller.
type Remote struct {
	baseURL   *url.URL
	token     string
	subject   string
	http      *http.Client
	dialer    *websocket.Dialer
	retry     time.Duration
	reconnect bool
	userAgent string
}

// Option configures a Remote.
type Option func(*Remote)

// WithHTTPClient replaces the HTTP client used for plain requests.
func WithHTTPClient(c *http.Client) Option {
	return func(r *Remote) { r.http = c }
}

// WithReconnect makes live streams redial after a dropped connection,
// starting at base and doubling up to 30s. Zero keeps the one second
// default. Without it a stream reports the drop to onError and stops, and
// the caller subscribes again when it wants to.
func WithReconnect(base time.Duration) Option {
	return func(r *Remote) {
		r.reconnect = true
		if base > 0 {
			r.retry = base
		}
	}
}

// New builds a Remote for serverURL. token may be empty for anonymous use.
func New(serverURL, token string, opts ...Option) (*Remote, error) {
	base, err := parseBaseURL(serverURL)
	if err != nil {
		return nil, err
	}
	r := &Remote{
		baseURL:   base,
		token:     strings.TrimSpace(token),
		http:      &http.Client{Timeout: requestTimeout},
		dialer:    websocket.DefaultDialer,
		retry:     time.Second,
		userAgent: defaultUserAgent,
	}
	if r.token != "" {
		if r.subject, err = subjectOf(r.token); err != nil {
			return nil, err
		}
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Subject returns the caller's user id, or "" when anonymous.
func (r *Remote) Subject() string {
	return r.subject
}

// subjectOf reads the subject claim. The server verifies the signature; the
// client only needs to know who it is acting as.
func subjectOf(token string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return "", fmt.Errorf("parse token: %w", err)
	}
	if claims.Subject == "" {
		return "", fmt.Errorf("token has no subject")
	}
	return claims.Subject, nil
}

func (r *Remote) Create(ctx context.Context, ownerID string, in models.CollectionInput) (string, error) {
	if ownerID != r.subject {
		return "", &store.StoreError{Op: "create", Err: ErrForeignOwner}
	}
	var out struct {
		ID string `json:"id"`
	}
	if err := r.do(ctx, http.MethodPost, "/api/collections", nil, in, &out); err != nil {
		return "", storeError("create", err)
	}
	return out.ID, nil
}

func (r *Remote) Update(ctx context.Context, id string, patch models.CollectionPatch) error {
	return storeError("update", r.do(ctx, http.MethodPut, "/api/collections/"+url.PathEscape(id), nil, patch, nil))
}

func (r *Remote) Delete(ctx context.Context, id string) error {
	return storeError("delete", r.do(ctx, http.MethodDelete, "/api/collections/"+url.PathEscape(id), nil, nil, nil))
}

func (r *Remote) Get(ctx context.Context, id string) (*models.Collection, error) {
	var c models.Collection
	if err := r.do(ctx, http.MethodGet, "/api/collections/"+url.PathEscape(id), nil, nil, &c); err != nil {
		return nil, storeError("get", err)
	}
	return &c, nil
}

func (r *Remote) List(ctx context.Context, filter store.Filter) ([]models.Collection, error) {
	path, err := r.listPath(filter)
	if err != nil {
		return nil, err
	}
	var list []models.Collection
	if err := r.do(ctx, http.MethodGet, path, nil, nil, &list); err != nil {
		return nil, storeError("list", err)
	}
	return limit(filter, list), nil
}

// Browse fetches a random sample of at most size public collections
// matching query. size zero returns every public collection.
func (r *Remote) Browse(ctx context.Context, query string, size int) ([]models.Collection, error) {
	values := url.Values{}
	if q := strings.TrimSpace(query); q != "" {
		values.Set("q", q)
	}
	if size > 0 {
		values.Set("sample", fmt.Sprint(size))
	}
	var list []models.Collection
	if err := r.do(ctx, http.MethodGet, "/api/collections/public", values, nil, &list); err != nil {
		return nil, storeError("browse", err)
	}
	return list, nil
}

// Login signs in through the development login endpoint and returns a
// Remote acting as that user along with its token.
func (r *Remote) Login(ctx context.Context, nickname string) (*Remote, string, error) {
	var out struct {
		Token string `json:"token"`
	}
	body := map[string]string{"nickname": nickname}
	if err := r.do(ctx, http.MethodPost, "/api/dev/login", nil, body, &out); err != nil {
		return nil, "", err
	}
	dup := *r
	dup.token = out.Token
	subject, err := subjectOf(out.Token)
	if err != nil {
		return nil, "", err
	}
	dup.subject = subject
	return &dup, out.Token, nil
}

// listPath picks the endpoint serving filter. Owner filters are answered
// from the caller's own listing and narrowed client-side.
func (r *Remote) listPath(filter store.Filter) (string, error) {
	if err := filter.Validate(); err != nil {
		return "", err
	}
	if filter.OwnerID == "" {
		return "/api/collections/public", nil
	}
	if filter.OwnerID != r.subject {
		return "", &store.StoreError{Op: "list", Err: ErrForeignOwner}
	}
	return "/api/collections/mine", nil
}

func limit(filter store.Filter, list []models.Collection) []models.Collection {
	out := list[:0]
	for _, c := range list {
		if filter.Matches(c) {
			out = append(out, c)
		}
	}
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out
}

func (r *Remote) do(ctx context.Context, method, path string, query url.Values, body, dest any) error {
	rel := &url.URL{Path: path, RawQuery: query.Encode()}
	reqURL := r.baseURL.ResolveReference(rel)

	var rd io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		rd = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, reqURL.String(), rd)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", r.userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if r.token != "" {
		req.Header.Set("Authorization", "Bearer "+r.token)
	}

	resp, err := r.http.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		return readHTTPError(resp)
	}
	if dest == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func readHTTPError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	message := strings.TrimSpace(string(raw))
	var payload struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(raw, &payload) == nil && payload.Message != "" {
		message = payload.Message
	}
	return &HTTPError{Status: resp.StatusCode, Message: message}
}

// storeError maps API failures onto the store's sentinels.
func storeError(op string, err error) error {
	if err == nil {
		return nil
	}
	var herr *HTTPError
	if errors.As(err, &herr) {
		switch herr.Status {
		case http.StatusNotFound:
			return store.ErrNotFound
		case http.StatusForbidden:
			return &store.StoreError{Op: op, Err: store.ErrForbidden}
		}
	}
	return &store.StoreError{Op: op, Err: err}
}

func parseBaseURL(serverURL string) (*url.URL, error) {
	trimmed := strings.TrimSpace(serverURL)
	if trimmed == "" {
		trimmed = defaultServerURL
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "http://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse server_url %q: %w", serverURL, err)
	}
	u.Path = ""
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}
