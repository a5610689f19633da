package markdown

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/calyptra/shipmark/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const twoIssuePayload = `{
	"issues": [
		{
			"key": "SHIP-1",
			"self": "https://jira.example.com/rest/api/2/issue/10001",
			"fields": {
				"summary": "Ship the thing",
				"description": "Do it",
				"status": {"name": "Open"},
				"updated": "2025-06-01",
				"issuetype": {"name": "Story"},
				"labels": ["alpha"]
			}
		},
		{
			"key": "SHIP-2",
			"self": "https://jira.example.com/rest/api/2/issue/10002",
			"fields": {
				"summary": "Ship the other thing",
				"description": "Do it too",
				"status": {"name": "Open"},
				"updated": "2025-06-02",
				"issuetype": {"name": "Task"}
			}
		}
	]
}`

func TestRenderSections(t *testing.T) {
	issue := IssueInfo{
		Key:                "SHIP-1",
		Summary:            "Ship the thing",
		Description:        "Do it",
		Status:             "Open",
		Updated:            "2025-06-01",
		IssueType:          "Story",
		Labels:             "alpha, beta",
		MarketAffected:     "EU",
		AcceptanceCriteria: "Given X",
		Attachments: []AttachmentInfo{
			{ID: "9001", FileName: "diagram.png", Created: "2025-05-30", Size: "2048", URL: "https://jira.example.com/attach/9001"},
		},
	}
	subTasks := []SubTaskInfo{
		{Summary: "Sub work", Key: "SHIP-3", URL: "https://jira.example.com/rest/api/2/issue/10003"},
	}

	doc := Render(issue, subTasks)

	assert.True(t, strings.HasPrefix(doc, "# Summary\nShip the thing\n"))
	for _, want := range []string{
		"## Description\nDo it\n",
		"## Task Info\n* Status: Open\n* Updated: 2025-06-01\n* Issuetype: Story\n",
		"## Labels\nalpha, beta\n",
		"## Market Affected Field Name\nEU\n",
		"## Acceptance Criteria Field Name\nGiven X\n",
		"## Attachment\ndiagram.png\n* ID: 9001\n",
		"* Download URL: https://jira.example.com/attach/9001\n",
		"## Sub Tasks\nSub work\n* Key: SHIP-3\n",
	} {
		assert.Contains(t, doc, want)
	}
}

func TestRenderOmitsEmptySections(t *testing.T) {
	doc := Render(IssueInfo{Summary: "Bare"}, nil)
	assert.NotContains(t, doc, "## Attachment")
	assert.NotContains(t, doc, "## Sub Tasks")
}

func TestConvertSingleIssueProducesNoItems(t *testing.T) {
	conv, err := Convert([]byte(singleIssuePayload))
	require.NoError(t, err)

	assert.Contains(t, conv.Markdown, "# Summary\nShip the thing")
	assert.Empty(t, conv.Items)
}

func TestConvertMultiIssue(t *testing.T) {
	conv, err := Convert([]byte(twoIssuePayload))
	require.NoError(t, err)

	docs := strings.Split(conv.Markdown, taskSeparator)
	require.Len(t, docs, 2)
	assert.Contains(t, docs[0], "Ship the thing")
	assert.Contains(t, docs[1], "Ship the other thing")

	// One Markdown item and one metadata sidecar per issue.
	require.Len(t, conv.Items, 4)

	doc := conv.Items[0]
	sidecar := conv.Items[1]
	assert.True(t, strings.HasPrefix(doc.Path, "jira/SHIP-1/"))
	assert.True(t, strings.HasSuffix(doc.Path, ".md"))
	assert.Equal(t, core.SourceJiraIWPB, doc.Source)
	assert.Equal(t, "Ship the thing", doc.Meta.Title)
	assert.Equal(t, "SHIP-1.md", doc.Meta.FileName)
	assert.Equal(t, "jira-iwpb", doc.Meta.Source)

	assert.True(t, strings.HasPrefix(sidecar.Path, "jira/SHIP-1/"))
	assert.True(t, strings.HasSuffix(sidecar.Path, ".metadata"))
	assert.Equal(t, doc.Meta.FileRecordID, sidecar.Meta.FileRecordID)
	assert.Equal(t, "Metadata for Ship the thing", sidecar.Meta.Title)

	// The sidecar body is the document metadata serialized as JSON.
	var meta core.FileMetadata
	require.NoError(t, json.Unmarshal([]byte(sidecar.Content), &meta))
	assert.Equal(t, doc.Meta, meta)

	// Paths of the pair share the record id.
	docRecord := strings.TrimSuffix(strings.TrimPrefix(doc.Path, "jira/SHIP-1/"), ".md")
	sidecarRecord := strings.TrimSuffix(strings.TrimPrefix(sidecar.Path, "jira/SHIP-1/"), ".metadata")
	assert.Equal(t, docRecord, sidecarRecord)
	assert.Equal(t, docRecord, doc.Meta.FileRecordID)
}

func TestConvertWithSubTasks(t *testing.T) {
	doc, err := ConvertWithSubTasks([]byte(twoIssuePayload))
	require.NoError(t, err)

	assert.Contains(t, doc, "# Summary\nShip the thing")
	assert.Contains(t, doc, "## Sub Tasks\nShip the other thing\n* Key: SHIP-2\n")
	assert.NotContains(t, doc, taskSeparator)
}

func TestConvertWithoutSubTasks(t *testing.T) {
	doc, err := ConvertWithoutSubTasks([]byte(twoIssuePayload))
	require.NoError(t, err)

	assert.Contains(t, doc, "Ship the thing")
	assert.NotContains(t, doc, "Ship the other thing")
	assert.NotContains(t, doc, "## Sub Tasks")
}
