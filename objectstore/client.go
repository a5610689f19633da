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


// Package objectstore ships upload items to an HTTP object store. Each item
// becomes one PUT of its content at its destination path under the configured
// bucket. The client performs no retries of its own; callers own retry
// policy.
package objectstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/calyptra/shipmark/core"
)

var (
	// ErrMissingEndpoint indicates the client was built without a store URL.
	ErrMissingEndpoint = errors.New("object store endpoint is required")

	// ErrMissingBucket indicates the client was built without a bucket.
	ErrMissingBucket = errors.New("object store bucket is required")

	// ErrPutFailed indicates the store rejected an object.
	ErrPutFailed = errors.New("object put failed")
)

// Config tunes the store client.
type Config struct {
	Endpoint string // e.g. https://store.example.com
	Bucket   string
	Token    string // bearer token, optional
	Timeout  time.Duration
	Logger   *slog.Logger
}

type Client struct {
	baseURL string
	token   string
	http    *http.Client
	logger  *slog.Logger
}

func NewClient(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.Endpoint) == "" {
		return nil, ErrMissingEndpoint
	}
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, ErrMissingBucket
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.Endpoint, "/") + "/" + cfg.Bucket,
		token:   cfg.Token,
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
	}, nil
}

// PushAll uploads every item in order. The first failure aborts the batch so
// the caller can retry it as a unit; objects written before the failure are
// overwritten on the next attempt.
func (c *Client) PushAll(ctx context.Context, items []core.UploadItem) error {
	for i := range items {
		if err := c.put(ctx, &items[i]); err != nil {
			return err
		}
	}
	return nil
}

func (c *Client) put(ctx context.Context, item *core.UploadItem) error {
	objectURL := c.baseURL + "/" + item.Path

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, objectURL, strings.NewReader(item.Content))
	if err != nil {
		return fmt.Errorf("build put request: %w", err)
	}
	req.Header.Set("Content-Type", contentType(item.Path))
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("put %s: %w", item.Path, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("%w: %s: status %d", ErrPutFailed, item.Path, resp.StatusCode)
	}

	c.logger.Debug("object stored", "path", item.Path, "bytes", len(item.Content))
	return nil
}

func contentType(path string) string {
	if strings.HasSuffix(path, ".metadata") {
		return "application/json"
	}
	if strings.HasSuffix(path, ".md") {
		return "text/markdown"
	}
	return "application/octet-stream"
}
