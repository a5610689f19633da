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


package markdown

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/calyptra/shipmark/core"
	"github.com/google/uuid"
)

const (
	uploadNamespace = "jira"
	sidecarSource   = "jira-iwpb"
	taskSeparator   = "\n\n---\n\n"
)

// Conversion is the outcome of converting a search result: the combined
// Markdown returned to the caller, plus the per-issue upload items destined
// for the object store.
type Conversion struct {
	Markdown string
	Items    []core.UploadItem
}

// Convert renders a search result to Markdown.
//
// A single-issue result renders one document with any trailing issues as its
// sub tasks and produces no upload items, preserving the behavior of the
// caller-facing conversion endpoint. A multi-issue result renders every issue
// as a standalone document, joined by a separator, and produces a Markdown
// item plus a metadata sidecar item per issue.
func Convert(data []byte) (*Conversion, error) {
	result, err := parseSearchResult(data)
	if err != nil {
		return nil, err
	}

	if len(result.Issues) == 1 {
		issue := result.Issues[0].info()
		return &Conversion{Markdown: Render(issue, nil)}, nil
	}

	var parts []string
	var items []core.UploadItem
	for i := range result.Issues {
		node := &result.Issues[i]
		issue := node.info()
		doc := Render(issue, nil)
		parts = append(parts, doc)

		docItems, err := buildUploadItems(issue, doc)
		if err != nil {
			slog.Error("error building upload items", "key", issue.Key, "err", err)
			continue
		}
		items = append(items, docItems...)
	}

	return &Conversion{
		Markdown: strings.Join(parts, taskSeparator),
		Items:    items,
	}, nil
}

// ConvertWithSubTasks renders the first issue as the main document and the
// remaining issues as its sub tasks.
func ConvertWithSubTasks(data []byte) (string, error) {
	result, err := parseSearchResult(data)
	if err != nil {
		return "", err
	}

	issue := result.Issues[0].info()
	var subTasks []SubTaskInfo
	for i := 1; i < len(result.Issues); i++ {
		subTasks = append(subTasks, result.Issues[i].subTask())
	}
	return Render(issue, subTasks), nil
}

// ConvertWithoutSubTasks renders the first issue only, ignoring any trailing
// issues entirely.
func ConvertWithoutSubTasks(data []byte) (string, error) {
	result, err := parseSearchResult(data)
	if err != nil {
		return "", err
	}
	return Render(result.Issues[0].info(), nil), nil
}

// Render produces the Markdown document for one issue.
func Render(issue IssueInfo, subTasks []SubTaskInfo) string {
	var md strings.Builder

	md.WriteString("# Summary\n")
	md.WriteString(issue.Summary)
	md.WriteString("\n## Description\n")
	md.WriteString(issue.Description)
	md.WriteString("\n## Task Info\n")
	md.WriteString("* Status: " + issue.Status + "\n")
	md.WriteString("* Updated: " + issue.Updated + "\n")
	md.WriteString("* Issuetype: " + issue.IssueType + "\n")
	md.WriteString("## Labels\n")
	md.WriteString(issue.Labels)
	md.WriteString("\n## Market Affected Field Name\n")
	md.WriteString(issue.MarketAffected)
	md.WriteString("\n## Acceptance Criteria Field Name\n")
	md.WriteString(issue.AcceptanceCriteria)
	md.WriteString("\n")

	if len(issue.Attachments) > 0 {
		md.WriteString("## Attachment\n")
		for _, att := range issue.Attachments {
			md.WriteString(att.FileName + "\n")
			md.WriteString("* ID: " + att.ID + "\n")
			md.WriteString("* Created: " + att.Created + "\n")
			md.WriteString("* File Size: " + att.Size + "\n")
			md.WriteString("* Download URL: " + att.URL + "\n")
			md.WriteString("---\n")
		}
	}

	if len(subTasks) > 0 {
		md.WriteString("## Sub Tasks\n")
		for _, sub := range subTasks {
			md.WriteString(sub.Summary + "\n")
			md.WriteString("* Key: " + sub.Key + "\n")
			md.WriteString("* URL: " + sub.URL + "\n")
			md.WriteString("---\n")
		}
	}

	return md.String()
}

// buildUploadItems produces the Markdown item and its metadata sidecar for
// one rendered issue. Record IDs are time-ordered UUIDs so object listings
// sort by creation time.
func buildUploadItems(issue IssueInfo, doc string) ([]core.UploadItem, error) {
	recordID, err := uuid.NewV7()
	if err != nil {
		return nil, err
	}
	record := recordID.String()

	fileName := issue.Key + ".md"
	meta := core.FileMetadata{
		Level:            1,
		Title:            issue.Summary,
		FileName:         fileName,
		FileRecordID:     record,
		FileOriginalName: issue.Summary,
		FileOriginalPath: issue.SelfURL + "/" + fileName,
		Source:           sidecarSource,
		AttachmentType:   "file",
	}

	docItem := core.UploadItem{
		Content: doc,
		Path:    fmt.Sprintf("%s/%s/%s.md", uploadNamespace, issue.Key, record),
		Source:  core.SourceJiraIWPB,
		Meta:    meta,
	}

	sidecar, err := json.Marshal(meta)
	if err != nil {
		return nil, err
	}
	sidecarItem := core.UploadItem{
		Content: string(sidecar),
		Path:    fmt.Sprintf("%s/%s/%s.metadata", uploadNamespace, issue.Key, record),
		Source:  core.SourceJiraIWPB,
		Meta: core.FileMetadata{
			Level:        1,
			Title:        "Metadata for " + issue.Summary,
			FileName:     issue.Key + ".metadata",
			FileRecordID: record,
			Source:       sidecarSource,
		},
	}

	return []core.UploadItem{docItem, sidecarItem}, nil
}
