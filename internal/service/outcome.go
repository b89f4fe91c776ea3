package service

import "fmt"

// Status is the terminal state of one file-task.
type Status string

const (
	// StatusStored: metadata record created and bytes written as <id>.pdf.
	StatusStored Status = "stored"
	// StatusStoredWithoutRecord: persisting metadata failed, bytes written under the original name.
	StatusStoredWithoutRecord Status = "stored_without_record"
	// StatusParseFailed: the input was not a readable PDF; nothing was created.
	StatusParseFailed Status = "parse_failed"
	// StatusWriteFailed: writing the bytes failed. RecordID is set if the record was already created.
	StatusWriteFailed Status = "write_failed"
	// StatusRejected: the task could not be submitted to the worker pool.
	StatusRejected Status = "rejected"
	// StatusFailed: the task aborted unexpectedly.
	StatusFailed Status = "failed"
)

// Outcome reports what happened to one uploaded file. Index is the file's
// position in the submitted batch.
type Outcome struct {
	Index            int      `json:"index"`
	FileName         string   `json:"file_name"`
	Status           Status   `json:"status"`
	RecordID         string   `json:"record_id,omitempty"`
	StoredAs         string   `json:"stored_as,omitempty"`
	Pages            int      `json:"pages"`
	ThumbnailSkipped bool     `json:"thumbnail_skipped"`
	Error            string   `json:"error,omitempty"`
	Warnings         []string `json:"warnings,omitempty"`

	// Err is the error behind a failed status, for errors.Is checks.
	Err error `json:"-"`
	// Degraded holds the errors of fail-soft stages (render, persist).
	Degraded []error `json:"-"`
}

// Succeeded reports whether the file's bytes reached storage.
func (o Outcome) Succeeded() bool {
	return o.Status == StatusStored || o.Status == StatusStoredWithoutRecord
}

func (o *Outcome) fail(status Status, err error) {
	o.Status = status
	o.Err = err
	o.Error = err.Error()
}

func (o *Outcome) degrade(err error) {
	o.Degraded = append(o.Degraded, err)
	o.Warnings = append(o.Warnings, err.Error())
}

func rejectedOutcome(index int, name string, err error) Outcome {
	o := Outcome{Index: index, FileName: name}
	o.fail(StatusRejected, fmt.Errorf("%w: %w", ErrSubmit, err))
	return o
}
