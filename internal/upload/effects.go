package upload

import "github.com/desertthunder/pdfx/internal/models"

// Effect is an instruction emitted by a transition.
type Effect interface {
	effect()
}

// SendRequest asks the caller to upload Files, in order, and report back with Attempt.
type SendRequest struct {
	Attempt uint64
	Files   []models.SelectedFile
}

// SaveResult asks the caller to save Blob under Name.
type SaveResult struct {
	Blob models.Blob
	Name string
}

// LogError asks the caller to log Err for developers.
type LogError struct {
	Err error
}

// ReportFailure asks the caller to tell the user the upload failed.
type ReportFailure struct {
	Err error
}

// ClearFiles asks the caller to empty the file list.
type ClearFiles struct{}

func (SendRequest) effect()   {}
func (SaveResult) effect()    {}
func (LogError) effect()      {}
func (ReportFailure) effect() {}
func (ClearFiles) effect()    {}
