package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/boardflow/core/internal/infrastructure/logger"
	"github.com/boardflow/core/internal/ports"
)

// TokenMirror is the persisted token backend the client writes through.
// Satisfied by state.LocalState.
type TokenMirror interface {
	SetToken(token string) error
	Token() string
	VerifyToken(token string) error
	ClearToken() error
}

// APIError is a non-2xx response from the backend
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("api error %d", e.Status)
}

// errorBody is the JSON error envelope the backend may return
type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// Client issues authenticated JSON requests against the backend.
// There are no retries and no backoff; failures surface immediately.
type Client struct {
	baseURL    string
	httpClient *http.Client
	mirror     TokenMirror
	logger     *logger.Logger

	mu    sync.RWMutex
	token string
}

// New creates a resource client. The timeout may be zero, in which
// case only caller contexts bound request lifetime. A token already
// persisted in the mirror is picked up.
func New(baseURL string, timeout time.Duration, mirror TokenMirror, log *logger.Logger) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		mirror:     mirror,
		logger:     log.WithComponent("rest"),
	}
	if mirror != nil {
		c.token = mirror.Token()
	}
	return c
}

// Token returns the bearer token currently held in memory
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// SetToken replaces the in-memory token and mirrors it
func (c *Client) SetToken(token string) error {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()

	if c.mirror == nil {
		return nil
	}
	if token == "" {
		return c.mirror.ClearToken()
	}
	return c.mirror.SetToken(token)
}

// do performs one request. A non-nil body is JSON-encoded; a non-nil
// out receives the decoded response. Empty response bodies decode to
// nothing, matching the "empty body is {}" contract.
func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.LogAPICall(method, path, 0, float64(time.Since(start).Microseconds())/1000, err)
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode}
		if raw, readErr := io.ReadAll(resp.Body); readErr == nil && len(raw) > 0 {
			var eb errorBody
			if json.Unmarshal(raw, &eb) == nil {
				if eb.Error != "" {
					apiErr.Message = eb.Error
				} else {
					apiErr.Message = eb.Message
				}
			}
		}
		c.logger.LogAPICall(method, path, resp.StatusCode, float64(time.Since(start).Microseconds())/1000, apiErr)
		return apiErr
	}

	c.logger.LogAPICall(method, path, resp.StatusCode, float64(time.Since(start).Microseconds())/1000, nil)

	if out == nil {
		return nil
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response body: %w", err)
	}
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("invalid server response: %w", err)
	}
	return nil
}

var _ ports.AuthAPI = (*Client)(nil)
var _ ports.FolderAPI = (*Client)(nil)
var _ ports.BoardAPI = (*Client)(nil)
var _ ports.ItemAPI = (*Client)(nil)
var _ ports.AnalyticsAPI = (*Client)(nil)
