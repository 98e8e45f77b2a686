package shared

import "fmt"

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig = fmt.Errorf("configuration not found")
	ErrInvalidConfig = fmt.Errorf("invalid configuration")

	// Upload and merge errors
	ErrUploadFailed       = fmt.Errorf("upload failed")
	ErrMergeFailed        = fmt.Errorf("merge request failed")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")
	ErrInvalidTransition  = fmt.Errorf("invalid state transition")
	ErrNothingToSave      = fmt.Errorf("no merged document available")

	// File selection errors
	ErrNoFiles      = fmt.Errorf("no files selected")
	ErrNotPDF       = fmt.Errorf("not a PDF document")
	ErrFileNotFound = fmt.Errorf("file not found")

	// Persistence errors
	ErrRecordNotFound = fmt.Errorf("record not found")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
	ErrInvalidFlag     = fmt.Errorf("invalid flag value")
)
