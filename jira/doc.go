// Package jira is a minimal client for the Jira REST search API. It covers
// exactly what the conversion pipeline needs: run a JQL query against an
// arbitrary Jira instance and hand back the raw search result body.
package jira
