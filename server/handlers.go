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


package server

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/calyptra/shipmark/core"
	"github.com/calyptra/shipmark/jira"
	"github.com/calyptra/shipmark/markdown"
	"github.com/calyptra/shipmark/storage"
	"github.com/calyptra/shipmark/upload"
	"github.com/labstack/echo/v4"
)

// Searcher runs JQL queries against an upstream Jira instance.
type Searcher interface {
	Search(ctx context.Context, req jira.SearchRequest) ([]byte, error)
}

// Submitter accepts upload items for asynchronous delivery and reports
// pipeline counters.
type Submitter interface {
	Submit(items []core.UploadItem) error
	Snapshot() upload.Stats
}

// Handler serves the API endpoints.
type Handler struct {
	searcher   Searcher
	cache      storage.CacheRepository
	writer     *storage.AsyncCacheWriter
	dispatcher Submitter
	version    string
	logger     *slog.Logger
}

// Dependencies holds everything the handlers need.
type Dependencies struct {
	Searcher   Searcher
	Cache      storage.CacheRepository
	Writer     *storage.AsyncCacheWriter
	Dispatcher Submitter
	Version    string
	Logger     *slog.Logger
}

func NewHandler(deps Dependencies) *Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		searcher:   deps.Searcher,
		cache:      deps.Cache,
		writer:     deps.Writer,
		dispatcher: deps.Dispatcher,
		version:    deps.Version,
		logger:     logger,
	}
}

type jqlRequest struct {
	APIPrefix  string `json:"apiPrefix"`
	APIVersion string `json:"apiVersion"`
	Token      string `json:"token"`
	JQL        string `json:"jql"`
}

// HandleJQLSearch runs a JQL search, optionally through the checksum cache,
// and optionally converts the result to Markdown. Converting a multi-issue
// result submits the rendered documents to the upload pipeline.
func (h *Handler) HandleJQLSearch(c echo.Context) error {
	var req jqlRequest
	if err := c.Bind(&req); err != nil {
		return newBadRequestError("invalid request body", err)
	}
	if req.APIPrefix == "" || req.JQL == "" {
		return newBadRequestError("apiPrefix and jql are required", nil)
	}

	useCache := c.QueryParam("useCache") == "true"
	toMarkdown := c.QueryParam("toMarkdown") == "true"

	rawKey := req.APIPrefix + "|" + req.JQL
	key := core.CacheKey(rawKey)

	var raw []byte
	if useCache {
		entry, err := h.cache.GetCacheEntry(c.Request().Context(), key)
		switch {
		case err == nil:
			h.logger.Debug("search cache hit", "key", key)
			raw = []byte(entry.Details)
		case errors.Is(err, storage.ErrNotFound):
			// fall through to upstream
		default:
			return newInternalError("cache lookup failed", err)
		}
	}

	if raw == nil {
		body, err := h.searcher.Search(c.Request().Context(), jira.SearchRequest{
			APIPrefix:  req.APIPrefix,
			APIVersion: req.APIVersion,
			Token:      req.Token,
			JQL:        req.JQL,
		})
		if err != nil {
			if errors.Is(err, jira.ErrMissingAPIPrefix) || errors.Is(err, jira.ErrMissingJQL) {
				return newBadRequestError("invalid search request", err)
			}
			return newUpstreamError("jira search failed", err)
		}
		raw = body

		if useCache {
			if err := h.writer.Publish(&storage.CacheEntry{
				Key:     key,
				RawKey:  rawKey,
				Details: string(raw),
			}); err != nil {
				h.logger.Warn("search result not cached", "key", key, "err", err)
			}
		}
	}

	if !toMarkdown {
		return c.Blob(http.StatusOK, echo.MIMEApplicationJSON, raw)
	}
	return h.convert(c, raw, true)
}

// HandleMarkdown converts caller-provided search JSON to Markdown. With
// upload=true the rendered documents are also submitted to the pipeline.
func (h *Handler) HandleMarkdown(c echo.Context) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return newBadRequestError("unreadable request body", err)
	}
	return h.convert(c, body, c.QueryParam("upload") == "true")
}

func (h *Handler) convert(c echo.Context, raw []byte, submit bool) error {
	conv, err := markdown.Convert(raw)
	if err != nil {
		return newBadRequestError("conversion failed", err)
	}

	if submit && len(conv.Items) > 0 {
		if err := h.dispatcher.Submit(conv.Items); err != nil {
			// Conversion still succeeded; report the result and log the
			// submission problem instead of failing the request.
			h.logger.Error("upload submission rejected", "items", len(conv.Items), "err", err)
		}
	}

	return c.Blob(http.StatusOK, "text/markdown; charset=UTF-8", []byte(conv.Markdown))
}

// HandleHealth reports service status.
func (h *Handler) HandleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "ok",
		"version": h.version,
	})
}

// HandleStats reports the upload pipeline counters.
func (h *Handler) HandleStats(c echo.Context) error {
	return c.JSON(http.StatusOK, h.dispatcher.Snapshot())
}
