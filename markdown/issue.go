package markdown

import (
	"encoding/json"
	"strings"
)

// IssueInfo is the flattened view of one issue used for rendering.
type IssueInfo struct {
	Key                string
	SelfURL            string
	Summary            string
	Description        string
	Status             string
	Updated            string
	IssueType          string
	Labels             string
	MarketAffected     string
	AcceptanceCriteria string
	Attachments        []AttachmentInfo
}

// AttachmentInfo describes one issue attachment.
type AttachmentInfo struct {
	ID       string
	FileName string
	Created  string
	Size     string
	URL      string
}

// SubTaskInfo describes one sub task reference.
type SubTaskInfo struct {
	Summary string
	Key     string
	URL     string
}

// Wire shapes. Custom fields arrive with unpredictable types, so anything
// uncertain is decoded through json.RawMessage and coerced best-effort.
type searchResult struct {
	Issues []issueNode `json:"issues"`
}

type issueNode struct {
	Key    string      `json:"key"`
	Self   string      `json:"self"`
	Fields *fieldsNode `json:"fields"`
}

type fieldsNode struct {
	Summary            string           `json:"summary"`
	Description        string           `json:"description"`
	Status             *namedValue      `json:"status"`
	Updated            string           `json:"updated"`
	IssueType          *namedValue      `json:"issuetype"`
	Labels             []string         `json:"labels"`
	AcceptanceCriteria json.RawMessage  `json:"customfield_27708"`
	MarketAffected     json.RawMessage  `json:"customfield_26615"`
	Attachments        []attachmentNode `json:"attachment"`
}

type namedValue struct {
	Name string `json:"name"`
}

type valueEntry struct {
	Value string `json:"value"`
}

type attachmentNode struct {
	ID       flexString `json:"id"`
	Filename string     `json:"filename"`
	Created  string     `json:"created"`
	Size     flexString `json:"size"`
	Content  string     `json:"content"`
}

// flexString decodes a JSON string, number or null into a string.
// Jira serves attachment ids and sizes inconsistently across versions.
type flexString string

func (s *flexString) UnmarshalJSON(b []byte) error {
	if len(b) == 0 || string(b) == "null" {
		*s = ""
		return nil
	}
	if b[0] == '"' {
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return err
		}
		*s = flexString(str)
		return nil
	}
	*s = flexString(string(b))
	return nil
}

func parseSearchResult(data []byte) (*searchResult, error) {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" {
		return nil, ErrEmptyInput
	}

	// Detect the issues array before committing to the full shape so that
	// arbitrary JSON yields a format error instead of a zero-value result.
	var probe map[string]json.RawMessage
	if err := json.Unmarshal([]byte(trimmed), &probe); err != nil {
		return nil, err
	}
	if _, ok := probe["issues"]; !ok {
		return nil, ErrUnsupportedFormat
	}

	var result searchResult
	if err := json.Unmarshal([]byte(trimmed), &result); err != nil {
		return nil, err
	}
	if len(result.Issues) == 0 {
		return nil, ErrNoIssues
	}
	return &result, nil
}

// info flattens an issue node, applying the defensive defaults the renderer
// relies on.
func (n *issueNode) info() IssueInfo {
	info := IssueInfo{
		Key:     n.Key,
		SelfURL: n.Self,
	}
	f := n.Fields
	if f == nil {
		return info
	}

	info.Summary = f.Summary
	info.Description = collapseLines(f.Description, " ")
	info.Updated = f.Updated
	if f.Status != nil {
		info.Status = f.Status.Name
	}
	if f.IssueType != nil {
		info.IssueType = f.IssueType.Name
	}

	labels := make([]string, 0, len(f.Labels))
	for _, label := range f.Labels {
		if strings.TrimSpace(label) != "" {
			labels = append(labels, label)
		}
	}
	info.Labels = strings.Join(labels, ", ")

	info.AcceptanceCriteria = collapseLines(rawString(f.AcceptanceCriteria), "\n")
	info.MarketAffected = firstValue(f.MarketAffected)

	for _, att := range f.Attachments {
		info.Attachments = append(info.Attachments, AttachmentInfo{
			ID:       string(att.ID),
			FileName: att.Filename,
			Created:  att.Created,
			Size:     string(att.Size),
			URL:      att.Content,
		})
	}
	return info
}

// subTask flattens an issue node into a sub-task reference.
func (n *issueNode) subTask() SubTaskInfo {
	sub := SubTaskInfo{
		Key: n.Key,
		URL: n.Self,
	}
	if n.Fields != nil {
		sub.Summary = n.Fields.Summary
	}
	return sub
}

// collapseLines drops blank lines and joins the rest with sep.
func collapseLines(text, sep string) string {
	if strings.TrimSpace(text) == "" {
		return ""
	}
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, sep)
}

// rawString coerces a raw custom field to a string, tolerating null and
// non-string values.
func rawString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return ""
}

// firstValue extracts the "value" of the first element of a raw option
// array, tolerating null and malformed shapes.
func firstValue(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var entries []valueEntry
	if err := json.Unmarshal(raw, &entries); err != nil || len(entries) == 0 {
		return ""
	}
	return entries[0].Value
}
