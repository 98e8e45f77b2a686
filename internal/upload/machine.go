package upload

import (
	"fmt"
	"math"

	"github.com/desertthunder/pdfx/internal/models"
	"github.com/desertthunder/pdfx/internal/shared"
)

// DefaultOutputName is the file name used for the merged document.
const DefaultOutputName = "generated.pdf"

// State is the phase of the upload lifecycle.
type State int

const (
	Idle State = iota
	Uploading
	Succeeded
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Uploading:
		return "uploading"
	case Succeeded:
		return "succeeded"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Machine is the upload state. The zero value is an idle machine saving as [DefaultOutputName].
//
// Machine is a value; transitions return a new one and leave the receiver untouched.
type Machine struct {
	state      State
	attempt    uint64
	percent    int
	result     models.Blob
	outputName string
}

// New returns an idle machine that saves results under outputName.
func New(outputName string) Machine {
	return Machine{outputName: outputName}
}

func (m Machine) State() State        { return m.state }
func (m Machine) Attempt() uint64     { return m.attempt }
func (m Machine) Percent() int        { return m.percent }
func (m Machine) Result() models.Blob { return m.result }

// OutputName returns the name results are saved under.
func (m Machine) OutputName() string {
	if m.outputName == "" {
		return DefaultOutputName
	}
	return m.outputName
}

// Start begins a new attempt with files in their current order.
func (m Machine) Start(files []models.SelectedFile) (Machine, []Effect, error) {
	if m.state != Idle {
		return m, nil, m.invalid("start")
	}
	if len(files) == 0 {
		return m, nil, shared.ErrNoFiles
	}

	next := m
	next.state = Uploading
	next.attempt++
	next.percent = 0
	next.result = nil

	snapshot := append([]models.SelectedFile(nil), files...)
	return next, []Effect{SendRequest{Attempt: next.attempt, Files: snapshot}}, nil
}

// Progress records sent of total bytes uploaded for attempt.
//
// The percentage never decreases within an attempt. Unknown totals (total <= 0) are ignored.
func (m Machine) Progress(attempt uint64, sent, total int64) (Machine, []Effect, error) {
	if m.stale(attempt) {
		return m, nil, nil
	}
	if m.state != Uploading {
		return m, nil, m.invalid("progress")
	}
	if total <= 0 {
		return m, nil, nil
	}

	pct := Percent(sent, total)
	next := m
	if pct > next.percent {
		next.percent = pct
	}
	return next, nil, nil
}

// Complete stores the merged document and asks for it to be saved once.
func (m Machine) Complete(attempt uint64, result models.Blob) (Machine, []Effect, error) {
	if m.stale(attempt) {
		return m, nil, nil
	}
	if m.state != Uploading {
		return m, nil, m.invalid("complete")
	}
	if result == nil {
		return m, nil, fmt.Errorf("%w: empty response", shared.ErrInvalidInput)
	}

	next := m
	next.state = Succeeded
	next.percent = 100
	next.result = result
	return next, []Effect{SaveResult{Blob: result, Name: next.OutputName()}}, nil
}

// Fail returns to idle, discarding progress. The file list is kept for a retry.
func (m Machine) Fail(attempt uint64, cause error) (Machine, []Effect, error) {
	if m.stale(attempt) {
		return m, nil, nil
	}
	if m.state != Uploading {
		return m, nil, m.invalid("fail")
	}

	next := m
	next.state = Idle
	next.percent = 0
	next.result = nil

	reported := shared.ErrUploadFailed
	if cause != nil {
		reported = fmt.Errorf("%w: %w", shared.ErrUploadFailed, cause)
	}
	return next, []Effect{LogError{Err: cause}, ReportFailure{Err: reported}}, nil
}

// Cancel discards the result or abandons the in-flight attempt and clears the file list.
//
// The request itself is not aborted; its later events carry the old attempt number and are ignored.
func (m Machine) Cancel() (Machine, []Effect, error) {
	if m.state == Idle {
		return m, nil, m.invalid("cancel")
	}

	next := m
	next.state = Idle
	next.percent = 0
	next.result = nil
	if m.state == Uploading {
		next.attempt++
	}
	return next, []Effect{ClearFiles{}}, nil
}

// Download asks for the stored result to be saved again.
func (m Machine) Download() (Machine, []Effect, error) {
	if m.state != Succeeded {
		return m, nil, m.invalid("download")
	}
	return m, []Effect{SaveResult{Blob: m.result, Name: m.OutputName()}}, nil
}

// stale reports whether attempt belongs to an earlier, abandoned request.
func (m Machine) stale(attempt uint64) bool {
	return attempt != m.attempt
}

func (m Machine) invalid(op string) error {
	return fmt.Errorf("%w: cannot %s while %s", shared.ErrInvalidTransition, op, m.state)
}

// Percent converts a byte count to a whole percentage clamped to [0, 100].
func Percent(sent, total int64) int {
	if total <= 0 {
		return 0
	}
	pct := int(math.Round(float64(sent) * 100 / float64(total)))
	return min(max(pct, 0), 100)
}
