// Copyright 2025 Calyptra Labs
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


package jira

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const defaultAPIVersion = "2"

// Config tunes the search client.
type Config struct {
	Timeout     time.Duration // http client timeout, default 60s
	InsecureTLS bool
	Logger      *slog.Logger
}

// SearchRequest describes one JQL search against a specific Jira instance.
// The instance is addressed per request because callers route queries to
// different Jira deployments from a single service.
type SearchRequest struct {
	APIPrefix  string // e.g. https://jira.example.com
	APIVersion string // REST API version, default "2"
	Token      string // bearer token, optional
	JQL        string // raw JSON body for the search endpoint
}

type Client struct {
	http   *http.Client
	logger *slog.Logger
}

func NewClient(cfg Config) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		http: &http.Client{
			Timeout:   timeout,
			Transport: newTransport(cfg.InsecureTLS, logger),
		},
		logger: logger,
	}
}

// Search runs a JQL query and returns the raw search result body. Non-2xx
// responses return ErrSearchFailed with the status and a body excerpt.
func (c *Client) Search(ctx context.Context, req SearchRequest) ([]byte, error) {
	if strings.TrimSpace(req.APIPrefix) == "" {
		return nil, ErrMissingAPIPrefix
	}
	if strings.TrimSpace(req.JQL) == "" {
		return nil, ErrMissingJQL
	}
	version := req.APIVersion
	if version == "" {
		version = defaultAPIVersion
	}

	searchURL := fmt.Sprintf("%s/rest/api/%s/search", strings.TrimRight(req.APIPrefix, "/"), version)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, searchURL, strings.NewReader(req.JQL))
	if err != nil {
		return nil, fmt.Errorf("build search request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if req.Token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+req.Token)
	}

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("jira search: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read search response: %w", err)
	}

	c.logger.Info("jira search completed",
		"url", searchURL,
		"status", resp.StatusCode,
		"bytes", len(body),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)

	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("%w: status %d: %s", ErrSearchFailed, resp.StatusCode, excerpt(body))
	}
	return body, nil
}

// excerpt truncates an error body so upstream failures stay loggable.
func excerpt(body []byte) string {
	const limit = 200
	s := strings.TrimSpace(string(body))
	if len(s) > limit {
		return s[:limit] + "..."
	}
	return s
}
