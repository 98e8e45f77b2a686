package tasks

import (
	"fmt"

	"github.com/desertthunder/pdfx/internal/shared"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	Prepare Phase = iota
	Upload
	Save
	Record
	Batch
)

func (p Phase) String() string {
	switch p {
	case Prepare:
		return "prepare"
	case Upload:
		return "upload"
	case Save:
		return "save"
	case Record:
		return "record"
	case Batch:
		return "batch"
	default:
		return ""
	}
}

func prepareUpdate(files int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Prepare,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Preparing %d files...", files),
	}
}

// uploadUpdate carries the whole-number percentage in Step (out of 100).
func uploadUpdate(percent, files int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Upload,
		Step:    percent,
		Total:   100,
		Message: fmt.Sprintf("Uploading %d files... %d%%", files, percent),
		Data:    percent,
	}
}

func saveUpdate(path string, size int64) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Save,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Saved %s (%s)", path, shared.FormatBytes(size)),
		Data:    path,
	}
}

func failedUpdate(err error) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Upload,
		Step:    0,
		Total:   100,
		Message: fmt.Sprintf("✗ %v", err),
		Data:    err,
	}
}

func batchStartedUpdate(step, total int, name string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Batch,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Merging: %s...", step, total, name),
	}
}

func batchCompletedUpdate(step, total int, name string, files int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Batch,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✓ %s (%d files)", step, total, name, files),
	}
}

func batchFailedUpdate(step, total int, name string, err error) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Batch,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✗ %s: %v", step, total, name, err),
	}
}
