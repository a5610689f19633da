package jira

import "errors"

var (
	// ErrMissingAPIPrefix indicates the request did not name a Jira instance.
	ErrMissingAPIPrefix = errors.New("jira api prefix is required")

	// ErrMissingJQL indicates an empty search query.
	ErrMissingJQL = errors.New("jql query is required")

	// ErrSearchFailed indicates the upstream returned a non-2xx status.
	ErrSearchFailed = errors.New("jira search failed")
)
