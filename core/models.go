package core

import (
	"strings"
)

// UnknownTaskKey is assigned to items whose destination path does not carry
// a correlation segment.
const UnknownTaskKey = "unknown"

// Source identifies the system an upload item originated from.
type Source int

const (
	// SourceMisc is the catch-all source for uncategorized artifacts.
	SourceMisc Source = iota + 1
	// SourceUpload marks artifacts submitted directly by a caller.
	SourceUpload
	// SourceJiraALM marks artifacts derived from the ALM Jira instance.
	SourceJiraALM
	// SourceJiraIWPB marks artifacts derived from the IWPB Jira instance.
	SourceJiraIWPB
	// SourceConfluenceALM marks artifacts derived from the ALM Confluence space.
	SourceConfluenceALM
	// SourceConfluenceIWPB marks artifacts derived from the IWPB Confluence space.
	SourceConfluenceIWPB
)

var sourceValues = map[Source]string{
	SourceMisc:           "misc",
	SourceUpload:         "upload",
	SourceJiraALM:        "Jira-A",
	SourceJiraIWPB:       "Jira-W",
	SourceConfluenceALM:  "Confluence-A",
	SourceConfluenceIWPB: "Confluence-W",
}

// String returns the wire value of the source tag.
func (s Source) String() string {
	if v, ok := sourceValues[s]; ok {
		return v
	}
	return ""
}

// ParseSource resolves a wire value to a Source, case-insensitively.
func ParseSource(value string) (Source, error) {
	for s, v := range sourceValues {
		if strings.EqualFold(v, value) {
			return s, nil
		}
	}
	return 0, ErrInvalidSource
}

// FileMetadata describes an uploaded document for downstream indexing.
// Field names follow the sidecar JSON format consumed by the ingestion
// platform.
type FileMetadata struct {
	Level            int    `json:"level"`
	Title            string `json:"title"`
	FileName         string `json:"file_name"`
	FileRecordID     string `json:"file_record_id"`
	FileOriginalName string `json:"file_original_name,omitempty"`
	FileOriginalPath string `json:"file_original_path,omitempty"`
	Source           string `json:"source,omitempty"`
	ValueStream      string `json:"value_stream,omitempty"`
	Categories       string `json:"categories,omitempty"`
	ParentFileName   string `json:"parent_file_name,omitempty"`
	AttachmentType   string `json:"attachment_type,omitempty"`
	Owner            string `json:"owner,omitempty"`
}

// UploadItem is one deliverable unit: a text payload bound for a destination
// path in the object store, plus the metadata describing it.
// Items are treated as immutable once handed to the upload pipeline.
type UploadItem struct {
	Content string
	Path    string // <namespace>/<taskKey>/<fileID>.<ext>
	Source  Source
	Meta    FileMetadata
}

// TaskKeyFromPath extracts the correlation key from a destination path.
// The key is the second slash-delimited segment; paths without one are
// assigned UnknownTaskKey rather than rejected.
func TaskKeyFromPath(path string) string {
	if !strings.Contains(path, "/") {
		return UnknownTaskKey
	}
	parts := strings.Split(path, "/")
	if len(parts) >= 2 {
		return parts[1]
	}
	return UnknownTaskKey
}
