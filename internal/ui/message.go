package ui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/pdfx/internal/files"
	"github.com/desertthunder/pdfx/internal/services"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgFilesIngested MsgKind = iota
	MsgUploadProgress
	MsgUploadDone
	MsgResultSaved
)

// uploadStream carries the messages of one upload attempt.
type uploadStream chan Msg

type uploadProgress struct {
	attempt uint64
	sent    int64
	total   int64
	stream  uploadStream
}

type uploadDone struct {
	attempt uint64
	resp    *services.MergeResponse
	err     error
}

type resultSaved struct {
	path string
	size int64
	err  error
}

// filesIngestedMsg is the constructor for [MsgFilesIngested]
func filesIngestedMsg(result files.IngestResult) Msg {
	return Msg{kind: MsgFilesIngested, data: result}
}

// uploadProgressMsg is the constructor for [MsgUploadProgress]
func uploadProgressMsg(attempt uint64, sent, total int64, stream uploadStream) Msg {
	return Msg{kind: MsgUploadProgress, data: uploadProgress{attempt, sent, total, stream}}
}

// uploadDoneMsg is the constructor for [MsgUploadDone]
func uploadDoneMsg(attempt uint64, resp *services.MergeResponse, err error) Msg {
	return Msg{kind: MsgUploadDone, data: uploadDone{attempt, resp, err}}
}

// resultSavedMsg is the constructor for [MsgResultSaved]
func resultSavedMsg(path string, size int64, err error) Msg {
	return Msg{kind: MsgResultSaved, data: resultSaved{path, size, err}}
}
