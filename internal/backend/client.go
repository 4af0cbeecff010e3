// Package backend talks to the job-seeking REST backend. Every call carries
// the caller's bearer token; the backend is the authority on whether it is
// still valid.
package backend

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

	"github.com/cenkalti/backoff/v5"
	"github.com/rs/zerolog"

	"jobfolio/web/internal/export"
)

// ErrLoginRequired means the backend rejected the token. Callers clear the
// stored credentials and send the user to the login page.
var ErrLoginRequired = errors.New("login required")

// ExternalServiceError is any other non-success answer from the backend.
type ExternalServiceError struct {
	Status  int
	Message string
}

func (e *ExternalServiceError) Error() string {
	return fmt.Sprintf("backend responded %d: %s", e.Status, e.Message)
}

type Options struct {
	BaseURL    string
	Retries    int
	Timeout    time.Duration
	HTTPClient *http.Client
	// InitialInterval overrides the first retry delay.
	InitialInterval time.Duration
}

type Client struct {
	baseURL         string
	http            *http.Client
	retries         uint
	initialInterval time.Duration
}

func NewClient(opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	retries := opts.Retries
	if retries < 0 {
		retries = 0
	}
	return &Client{
		baseURL:         strings.TrimRight(opts.BaseURL, "/"),
		http:            httpClient,
		retries:         uint(retries),
		initialInterval: opts.InitialInterval,
	}
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type User struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Role string `json:"role"`
}

type LoginResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

// Login exchanges credentials for a token.
func (c *Client) Login(ctx context.Context, req LoginRequest) (LoginResponse, error) {
	var out LoginResponse
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", "", req, &out); err != nil {
		return LoginResponse{}, err
	}
	if out.Token == "" || out.User.ID == "" {
		return LoginResponse{}, &ExternalServiceError{Status: http.StatusBadGateway, Message: "login response missing token or user"}
	}
	return out, nil
}

// Me returns the user that owns token.
func (c *Client) Me(ctx context.Context, token string) (User, error) {
	var out User
	if err := c.do(ctx, http.MethodGet, "/api/auth/me", token, nil, &out); err != nil {
		return User{}, err
	}
	if out.ID == "" {
		return User{}, &ExternalServiceError{Status: http.StatusBadGateway, Message: "identity response missing user id"}
	}
	return out, nil
}

func (c *Client) Logout(ctx context.Context, token string) error {
	return c.do(ctx, http.MethodPost, "/api/auth/logout", token, nil, nil)
}

// GetIntroduce loads a saved self-introduction as an exportable document.
func (c *Client) GetIntroduce(ctx context.Context, token, id string) (export.Document, error) {
	var doc export.Document
	if err := c.do(ctx, http.MethodGet, "/api/introduce/"+url.PathEscape(id), token, nil, &doc); err != nil {
		return export.Document{}, err
	}
	return doc, nil
}

type errorBody struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

func (c *Client) do(ctx context.Context, method, path, token string, in, out any) error {
	var payload []byte
	if in != nil {
		var err error
		payload, err = json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
	}

	attempt := 0
	operation := func() (struct{}, error) {
		attempt++
		err := c.once(ctx, method, path, token, payload, out)
		if err == nil {
			return struct{}{}, nil
		}
		var ext *ExternalServiceError
		if errors.As(err, &ext) && ext.Status < 500 {
			return struct{}{}, backoff.Permanent(err)
		}
		if errors.Is(err, ErrLoginRequired) {
			return struct{}{}, backoff.Permanent(err)
		}
		zerolog.Ctx(ctx).Debug().Err(err).Str("path", path).Int("attempt", attempt).Msg("backend call failed")
		return struct{}{}, err
	}

	b := backoff.NewExponentialBackOff()
	if c.initialInterval > 0 {
		b.InitialInterval = c.initialInterval
	}
	_, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(b),
		backoff.WithMaxTries(c.retries+1),
	)
	return err
}

func (c *Client) once(ctx context.Context, method, path, token string, payload []byte, out any) error {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 300 {
		message := errorMessage(raw, resp.Status)
		if resp.StatusCode == http.StatusUnauthorized || isLoginRequired(message) {
			return ErrLoginRequired
		}
		return &ExternalServiceError{Status: resp.StatusCode, Message: message}
	}

	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &ExternalServiceError{Status: http.StatusBadGateway, Message: "invalid response body"}
	}
	return nil
}

func errorMessage(raw []byte, fallback string) string {
	var body errorBody
	if err := json.Unmarshal(raw, &body); err == nil {
		if body.Message != "" {
			return body.Message
		}
		if body.Error != "" {
			return body.Error
		}
	}
	if text := strings.TrimSpace(string(raw)); text != "" && len(text) < 200 {
		return text
	}
	return fallback
}

func isLoginRequired(message string) bool {
	lower := strings.ToLower(message)
	return strings.Contains(lower, "login required") || strings.Contains(lower, "로그인이 필요")
}
