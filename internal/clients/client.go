// internal/clients/client.go

// Package clients talks to the circulation service over HTTP.
package clients

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"libralend/internal/errs"
	"libralend/internal/httpx"
)

// Client is an HTTP client for the circulation service API. Failures reported
// by the server come back as *APIError, which matches the errs kinds with
// errors.Is.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

type ClientOption func(*Client)

// WithHTTPClient replaces the default client with a 10s timeout.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(cl *Client) { cl.httpClient = c }
}

func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// APIError is a failure response from the service.
type APIError struct {
	StatusCode int
	Code       errs.Code
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%d %s: %s", e.StatusCode, e.Code, e.Message)
}

// Unwrap maps the status code back to the errs kind the server reported.
func (e *APIError) Unwrap() error {
	switch e.StatusCode {
	case http.StatusBadRequest:
		return errs.ErrValidation
	case http.StatusNotFound:
		return errs.ErrNotFound
	case http.StatusConflict:
		return errs.ErrConflict
	case http.StatusUnprocessableEntity:
		return errs.ErrIneligible
	case http.StatusForbidden:
		return errs.ErrOwnershipMismatch
	case http.StatusTooManyRequests:
		return errs.ErrRateLimited
	default:
		return nil
	}
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := httpx.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var er httpx.ErrorResponse
		if err := httpx.Unmarshal(data, &er); err == nil {
			apiErr.Code = errs.Code(er.Code)
			apiErr.Message = er.Message
		} else {
			apiErr.Message = strings.TrimSpace(string(data))
		}
		return apiErr
	}

	if out == nil || len(data) == 0 {
		return nil
	}
	if err := httpx.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
