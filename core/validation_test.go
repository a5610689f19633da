package core

import (
	"errors"
	"testing"
)

func TestValidateUploadItem(t *testing.T) {
	tests := []struct {
		name    string
		item    *UploadItem
		wantErr error
	}{
		{
			name: "valid item",
			item: &UploadItem{
				Content: "# Summary\nhello\n",
				Path:    "jira/TFX-101/0198c2a4.md",
				Source:  SourceJiraIWPB,
			},
			wantErr: nil,
		},
		{
			name: "valid item with sparse metadata",
			item: &UploadItem{
				Content: "{}",
				Path:    "jira/TFX-101/0198c2a4.metadata",
				Source:  SourceJiraIWPB,
				Meta:    FileMetadata{},
			},
			wantErr: nil,
		},
		{
			name: "valid item without correlation segment",
			item: &UploadItem{
				Content: "payload",
				Path:    "orphan.md",
				Source:  SourceMisc,
			},
			wantErr: nil,
		},
		{
			name:    "nil item",
			item:    nil,
			wantErr: ErrInvalidUploadItem,
		},
		{
			name: "empty content",
			item: &UploadItem{
				Content: "",
				Path:    "jira/TFX-101/file.md",
				Source:  SourceJiraIWPB,
			},
			wantErr: ErrEmptyContent,
		},
		{
			name: "empty path",
			item: &UploadItem{
				Content: "payload",
				Path:    "",
				Source:  SourceJiraIWPB,
			},
			wantErr: ErrEmptyPath,
		},
		{
			name: "invalid source",
			item: &UploadItem{
				Content: "payload",
				Path:    "jira/TFX-101/file.md",
				Source:  Source(999),
			},
			wantErr: ErrInvalidSource,
		},
		{
			name: "zero source",
			item: &UploadItem{
				Content: "payload",
				Path:    "jira/TFX-101/file.md",
			},
			wantErr: ErrInvalidSource,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateUploadItem(tt.item)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidateUploadItem() error = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateUploadItem() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateSource(t *testing.T) {
	for _, s := range []Source{SourceMisc, SourceUpload, SourceJiraALM, SourceJiraIWPB, SourceConfluenceALM, SourceConfluenceIWPB} {
		if err := ValidateSource(s); err != nil {
			t.Errorf("ValidateSource(%v) = %v, want nil", s, err)
		}
	}
	if err := ValidateSource(Source(0)); !errors.Is(err, ErrInvalidSource) {
		t.Errorf("ValidateSource(0) = %v, want ErrInvalidSource", err)
	}
}
