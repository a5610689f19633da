package upload

import (
	"time"

	"github.com/calyptra/shipmark/core"
)

// Task is a group of upload items sharing a correlation key, delivered to
// the sink as one atomic batch. A task is owned exclusively by the pipeline
// from submission until it completes or is dropped; only the retry path
// mutates RetryCount.
type Task struct {
	Key        string
	Items      []core.UploadItem
	RetryCount int
	CreatedAt  time.Time
}

// Attempts reports how many delivery attempts the task has been through,
// counting the initial attempt.
func (t *Task) Attempts() int {
	return t.RetryCount + 1
}
