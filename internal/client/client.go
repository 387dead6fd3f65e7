// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package client calls a remote occurrence linkage API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pdiddy/epandda/internal/annotation"
	"github.com/pdiddy/epandda/internal/occurrence"
	apperrors "github.com/pdiddy/epandda/pkg/errors"
)

// StatusError is a non-validation error response from the API.
type StatusError struct {
	StatusCode int
	Errors     map[string][]string
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	if msgs := e.Errors[apperrors.GeneralField]; len(msgs) > 0 {
		return fmt.Sprintf("api returned %d: %s", e.StatusCode, strings.Join(msgs, "; "))
	}
	return fmt.Sprintf("api returned %d", e.StatusCode)
}

// Client talks to one API endpoint.
type Client struct {
	baseURL    string
	http       *http.Client
	maxRetries int
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithMaxRetries sets the retry budget for 429 and 503 responses.
func WithMaxRetries(n int) Option {
	return func(c *Client) { c.maxRetries = n }
}

// New returns a client for the API rooted at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 60 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Occurrences runs one occurrence query.
func (c *Client) Occurrences(ctx context.Context, params url.Values) (occurrence.Envelope, error) {
	var env occurrence.Envelope
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/occurrences?"+params.Encode(), nil)
	if err != nil {
		return env, fmt.Errorf("building request: %w", err)
	}
	err = c.do(ctx, req, &env)
	return env, err
}

// Batch runs several occurrence queries in one request.
func (c *Client) Batch(ctx context.Context, queries []map[string]any) ([]occurrence.Envelope, error) {
	var resp struct {
		Queries []occurrence.Envelope `json:"queries"`
	}
	req, err := c.jsonRequest(ctx, "/occurrences/batch", map[string]any{"queries": queries})
	if err != nil {
		return nil, err
	}
	if err := c.do(ctx, req, &resp); err != nil {
		return nil, err
	}
	return resp.Queries, nil
}

// Annotate asks the API to build an annotation linking target to body.
func (c *Client) Annotate(ctx context.Context, target annotation.Target, body annotation.Body) (annotation.OpenAnnotation, error) {
	var a annotation.OpenAnnotation
	req, err := c.jsonRequest(ctx, "/annotations", map[string]any{"target": target, "body": body})
	if err != nil {
		return a, err
	}
	err = c.do(ctx, req, &a)
	return a, err
}

func (c *Client) jsonRequest(ctx context.Context, path string, payload any) (*http.Request, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

// do sends req and decodes a 2xx body into out. Error bodies become a
// *errors.ValidationError for 400 and a *StatusError otherwise.
func (c *Client) do(ctx context.Context, req *http.Request, out any) error {
	req.Header.Set("Accept", "application/json")
	resp, err := DoWithRetry(ctx, c.http, req, c.maxRetries)
	if err != nil {
		return fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var eb struct {
			Errors map[string][]string `json:"errors"`
		}
		_ = json.Unmarshal(body, &eb)
		if resp.StatusCode == http.StatusBadRequest && len(eb.Errors) > 0 {
			return &apperrors.ValidationError{Fields: eb.Errors}
		}
		return &StatusError{StatusCode: resp.StatusCode, Errors: eb.Errors}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
