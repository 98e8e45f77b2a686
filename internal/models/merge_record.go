package models

import (
	"fmt"
	"time"
)

// MergeStatus is the outcome of a merge attempt.
type MergeStatus string

const (
	MergeSucceeded MergeStatus = "succeeded"
	MergeFailed    MergeStatus = "failed"
)

// MergeRecord is a persisted merge attempt.
type MergeRecord struct {
	id           string
	sequence     int
	status       MergeStatus
	outputPath   string
	fileCount    int
	byteSize     int64
	sourceNames  []string
	errorMessage string
	createdAt    time.Time
	updatedAt    time.Time
	deletedAt    *time.Time
}

var _ Model = (*MergeRecord)(nil)

// NewMergeRecord creates an unsaved record for a merge of the given source file names.
func NewMergeRecord(sequence int, status MergeStatus, sourceNames []string) *MergeRecord {
	now := time.Now()
	names := append([]string(nil), sourceNames...)
	return &MergeRecord{
		sequence:    sequence,
		status:      status,
		fileCount:   len(names),
		sourceNames: names,
		createdAt:   now,
		updatedAt:   now,
	}
}

// RestoreMergeRecord rebuilds a record from stored columns.
func RestoreMergeRecord(
	id string, sequence int, status MergeStatus, outputPath string, fileCount int, byteSize int64,
	sourceNames []string, errorMessage string, createdAt, updatedAt time.Time, deletedAt *time.Time,
) *MergeRecord {
	return &MergeRecord{
		id:           id,
		sequence:     sequence,
		status:       status,
		outputPath:   outputPath,
		fileCount:    fileCount,
		byteSize:     byteSize,
		sourceNames:  sourceNames,
		errorMessage: errorMessage,
		createdAt:    createdAt,
		updatedAt:    updatedAt,
		deletedAt:    deletedAt,
	}
}

func (m *MergeRecord) ID() string               { return m.id }
func (m *MergeRecord) Sequence() int            { return m.sequence }
func (m *MergeRecord) Status() MergeStatus      { return m.status }
func (m *MergeRecord) OutputPath() string       { return m.outputPath }
func (m *MergeRecord) FileCount() int           { return m.fileCount }
func (m *MergeRecord) ByteSize() int64          { return m.byteSize }
func (m *MergeRecord) SourceNames() []string    { return m.sourceNames }
func (m *MergeRecord) ErrorMessage() string     { return m.errorMessage }
func (m *MergeRecord) CreatedAt() time.Time     { return m.createdAt }
func (m *MergeRecord) UpdatedAt() time.Time     { return m.updatedAt }
func (m *MergeRecord) DeletedAt() *time.Time    { return m.deletedAt }
func (m *MergeRecord) SetID(id string)          { m.id = id }
func (m *MergeRecord) SetSequence(seq int)      { m.sequence = seq }
func (m *MergeRecord) SetUpdatedAt(t time.Time) { m.updatedAt = t }

// SetOutput records where the merged document was saved and its size.
func (m *MergeRecord) SetOutput(path string, size int64) {
	m.outputPath = path
	m.byteSize = size
}

// SetError records a failure message.
func (m *MergeRecord) SetError(msg string) {
	m.errorMessage = msg
}

// Validate checks status consistency.
func (m *MergeRecord) Validate() error {
	switch m.status {
	case MergeSucceeded:
		if m.outputPath == "" {
			return fmt.Errorf("succeeded merge requires an output path")
		}
	case MergeFailed:
		if m.errorMessage == "" {
			return fmt.Errorf("failed merge requires an error message")
		}
	default:
		return fmt.Errorf("invalid merge status %q", m.status)
	}
	if m.fileCount < 0 {
		return fmt.Errorf("file count cannot be negative")
	}
	return nil
}
