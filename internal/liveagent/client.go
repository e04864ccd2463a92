// Copyright (c) 2026 John Earle
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package liveagent is a small client for the LiveAgent v3 REST API covering
// the ticket, message, agent and contact listings the QA pipeline reads.
package liveagent

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/time/rate"
)

// ErrNotFound is returned when the API answers 404.
var ErrNotFound = errors.New("liveagent: not found")

// StatusError is a non-2xx response.
type StatusError struct {
	StatusCode int
	Path       string
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("liveagent %s returned HTTP %d: %s", e.Path, e.StatusCode, e.Body)
}

// Temporary reports whether retrying the request may succeed.
func (e *StatusError) Temporary() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// Config holds client settings.
type Config struct {
	BaseURL  string
	APIKey   string
	AgentURL string // ticket deep link prefix

	Timeout   time.Duration // per attempt; default 30s
	RateLimit float64       // requests per second; <= 0 disables pacing
	Burst     int

	MaxAttempts  int           // default 3
	RetryInitial time.Duration // first backoff interval; default 1s, doubling

	HTTPClient *http.Client
}

// Client talks to the LiveAgent API. It is safe for concurrent use.
type Client struct {
	baseURL      string
	apiKey       string
	agentURL     string
	timeout      time.Duration
	maxAttempts  int
	retryInitial time.Duration
	limiter      *rate.Limiter
	httpClient   *http.Client
}

// NewClient creates a LiveAgent API client.
func NewClient(cfg Config) *Client {
	c := &Client{
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:       cfg.APIKey,
		agentURL:     cfg.AgentURL,
		timeout:      cfg.Timeout,
		maxAttempts:  cfg.MaxAttempts,
		retryInitial: cfg.RetryInitial,
		httpClient:   cfg.HTTPClient,
	}
	if c.timeout <= 0 {
		c.timeout = 30 * time.Second
	}
	if c.maxAttempts <= 0 {
		c.maxAttempts = 3
	}
	if c.retryInitial <= 0 {
		c.retryInitial = time.Second
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{}
	}

	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
	}
	c.limiter = rate.NewLimiter(limit, burst)

	return c
}

// TicketLink returns the agent panel URL for a ticket.
func (c *Client) TicketLink(ticketID string) string {
	return c.agentURL + ticketID
}

func (c *Client) newBackOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.retryInitial
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxElapsedTime = 0
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(c.maxAttempts-1)), ctx)
}

// get performs a paced GET with retries on transient failures and returns
// the response body.
func (c *Client) get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	endpoint := c.baseURL + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	attempt := 0
	var body []byte
	op := func() error {
		attempt++
		if err := c.limiter.Wait(ctx); err != nil {
			return backoff.Permanent(err)
		}

		b, err := c.do(ctx, path, endpoint)
		if err == nil {
			body = b
			return nil
		}

		var se *StatusError
		switch {
		case ctx.Err() != nil, errors.Is(err, ErrNotFound):
			return backoff.Permanent(err)
		case errors.As(err, &se) && !se.Temporary():
			return backoff.Permanent(err)
		}

		slog.Warn("liveagent request failed",
			"path", path,
			"attempt", attempt,
			"error", err,
		)
		return err
	}

	if err := backoff.Retry(op, c.newBackOff(ctx)); err != nil {
		return nil, fmt.Errorf("GET %s: %w", path, err)
	}
	return body, nil
}

func (c *Client) do(ctx context.Context, path, endpoint string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("apikey", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrNotFound
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, &StatusError{StatusCode: resp.StatusCode, Path: path, Body: truncate(string(body), 256)}
	}
	return body, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
