package models

import "time"

// MergeOutcome is the result of one merge attempt before it is persisted.
type MergeOutcome struct {
	Status      MergeStatus
	SourceNames []string
	OutputPath  string
	ByteSize    int64
	Error       string
}

// Record builds an unsaved [MergeRecord] from the outcome.
func (o MergeOutcome) Record(sequence int) *MergeRecord {
	r := NewMergeRecord(sequence, o.Status, o.SourceNames)
	r.SetOutput(o.OutputPath, o.ByteSize)
	r.SetError(o.Error)
	return r
}

// BatchJobResult is the outcome of one job in a batch merge.
type BatchJobResult struct {
	Name       string        `json:"name"`
	Sources    []string      `json:"sources"`
	OutputPath string        `json:"output_path,omitempty"`
	ByteSize   int64         `json:"byte_size"`
	Duration   time.Duration `json:"duration_ns"`
	Success    bool          `json:"success"`
	Error      error         `json:"-"`
	ErrorText  string        `json:"error,omitempty"`
}

// BatchResult summarises a batch merge.
type BatchResult struct {
	TotalJobs       int              `json:"total_jobs"`
	Succeeded       int              `json:"succeeded"`
	Failed          int              `json:"failed"`
	OutputDirectory string           `json:"output_directory"`
	ManifestPath    string           `json:"-"`
	Results         []BatchJobResult `json:"results"`
}
