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

	"github.com/MrEthical07/gatekeeper"
	"github.com/MrEthical07/gatekeeper/middleware"
)

// Fetcher is the manager's view of the server.
type Fetcher interface {
	// FetchIdentity re-reads the identity behind sess. The returned session may carry
	// a newer access token.
	FetchIdentity(ctx context.Context, sess Session) (Session, error)
	// Authorize asks the server whether sess holds permission.
	Authorize(ctx context.Context, sess Session, permission string) (bool, error)
	// Logout revokes sess on the server.
	Logout(ctx context.Context, sess Session) error
}

// APIError is a non-401, non-5xx error answer.
type APIError struct {
	Status  int
	Kind    gatekeeper.ErrorKind
	Code    string
	Message string
	Fields  map[string]string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("gatekeeper api: %d %s: %s", e.Status, e.Code, e.Message)
}

// HTTPFetcher implements Fetcher against the gatekeeper HTTP API.
type HTTPFetcher struct {
	baseURL string
	http    *http.Client
	now     func() time.Time
	// RefreshWithin sends the refresh token when the access token expires within this window.
	RefreshWithin time.Duration
}

// NewHTTPFetcher targets baseURL, e.g. "https://api.example.com". A nil client uses a
// 10s-timeout default.
func NewHTTPFetcher(baseURL string, hc *http.Client) *HTTPFetcher {
	if hc == nil {
		hc = &http.Client{Timeout: 10 * time.Second}
	}
	return &HTTPFetcher{
		baseURL:       strings.TrimRight(baseURL, "/"),
		http:          hc,
		now:           time.Now,
		RefreshWithin: 2 * time.Minute,
	}
}

// WithClock replaces the clock used to judge access-token expiry.
func (f *HTTPFetcher) WithClock(now func() time.Time) *HTTPFetcher {
	if now != nil {
		f.now = now
	}
	return f
}

type envelope struct {
	Success bool                  `json:"success"`
	Data    json.RawMessage       `json:"data"`
	Error   *middleware.ErrorBody `json:"error"`
}

// Login exchanges credentials for a complete session.
func (f *HTTPFetcher) Login(ctx context.Context, identifier, secret string) (Session, error) {
	body := map[string]string{"identifier": identifier, "secret": secret}
	var res gatekeeper.LoginResult
	if _, err := f.do(ctx, http.MethodPost, "/auth/login", body, nil, &res); err != nil {
		return Session{}, err
	}
	user := res.User
	return Session{
		AccessToken:  res.AccessToken,
		RefreshToken: res.RefreshToken,
		ExpiresAt:    res.ExpiresAt,
		User:         &user,
	}, nil
}

// Register creates an account.
func (f *HTTPFetcher) Register(ctx context.Context, req gatekeeper.RegisterRequest) (gatekeeper.UserProjection, error) {
	var user gatekeeper.UserProjection
	_, err := f.do(ctx, http.MethodPost, "/auth/register", req, nil, &user)
	return user, err
}

func (f *HTTPFetcher) FetchIdentity(ctx context.Context, sess Session) (Session, error) {
	if !sess.HasToken() {
		return Session{}, ErrNotAuthenticated
	}

	headers := f.authHeaders(sess, f.shouldRefresh(sess))
	var user gatekeeper.UserProjection
	resp, err := f.do(ctx, http.MethodGet, "/auth/me", nil, headers, &user)

	// An expired access token is rejected even when the exchange succeeded; retry
	// once with the new token.
	if errors.Is(err, ErrUnauthorized) && resp != nil && resp.Header.Get(middleware.NewAccessTokenHeader) != "" {
		sess = applyNewToken(sess, resp.Header)
		resp, err = f.do(ctx, http.MethodGet, "/auth/me", nil, f.authHeaders(sess, false), &user)
	}
	if err != nil {
		return Session{}, err
	}

	sess = applyNewToken(sess, resp.Header)
	sess.User = &user
	return sess, nil
}

func (f *HTTPFetcher) Authorize(ctx context.Context, sess Session, permission string) (bool, error) {
	if !sess.HasToken() {
		return false, ErrNotAuthenticated
	}
	var out struct {
		Allowed bool `json:"allowed"`
	}
	path := "/auth/authorize?permission=" + url.QueryEscape(permission)
	if _, err := f.do(ctx, http.MethodGet, path, nil, f.authHeaders(sess, false), &out); err != nil {
		return false, err
	}
	return out.Allowed, nil
}

func (f *HTTPFetcher) Logout(ctx context.Context, sess Session) error {
	_, err := f.do(ctx, http.MethodPost, "/auth/logout", nil, f.authHeaders(sess, true), nil)
	return err
}

func (f *HTTPFetcher) shouldRefresh(sess Session) bool {
	if sess.RefreshToken == "" {
		return false
	}
	if sess.ExpiresAt.IsZero() {
		return true
	}
	return !f.now().Add(f.RefreshWithin).Before(sess.ExpiresAt)
}

func (f *HTTPFetcher) authHeaders(sess Session, withRefresh bool) map[string]string {
	h := map[string]string{}
	if sess.AccessToken != "" {
		h["Authorization"] = "Bearer " + sess.AccessToken
	}
	if withRefresh && sess.RefreshToken != "" {
		h[middleware.RefreshTokenHeader] = sess.RefreshToken
	}
	return h
}

func applyNewToken(sess Session, h http.Header) Session {
	token := h.Get(middleware.NewAccessTokenHeader)
	if token == "" {
		return sess
	}
	sess.AccessToken = token
	if exp, err := time.Parse(time.RFC3339, h.Get(middleware.NewAccessTokenExpiresHeader)); err == nil {
		sess.ExpiresAt = exp
	}
	return sess
}

func (f *HTTPFetcher) do(ctx context.Context, method, path string, body any, headers map[string]string, out any) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, f.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := f.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	var env envelope
	decodeErr := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&env)

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return resp, ErrUnauthorized
	case resp.StatusCode >= 500:
		return resp, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	case resp.StatusCode >= 400:
		apiErr := &APIError{Status: resp.StatusCode}
		if decodeErr == nil && env.Error != nil {
			apiErr.Kind = env.Error.Kind
			apiErr.Code = env.Error.Code
			apiErr.Message = env.Error.Message
			apiErr.Fields = env.Error.Fields
		}
		return resp, apiErr
	}

	if decodeErr != nil {
		return resp, fmt.Errorf("decode response: %w", decodeErr)
	}
	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return resp, fmt.Errorf("decode data: %w", err)
		}
	}
	return resp, nil
}
