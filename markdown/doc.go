// Package markdown renders issue-tracker search results into Markdown
// documents and metadata sidecars ready for upload.
//
// The input is the raw JSON body of a Jira search response (an "issues"
// array). Every field access is defensive: missing or null fields render as
// empty strings rather than failing the conversion.
package markdown
