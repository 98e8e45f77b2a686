package ui

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"

	"github.com/desertthunder/pdfx/internal/dropzone"
	"github.com/desertthunder/pdfx/internal/files"
	"github.com/desertthunder/pdfx/internal/models"
	"github.com/desertthunder/pdfx/internal/shared"
	"github.com/desertthunder/pdfx/internal/tasks"
	"github.com/desertthunder/pdfx/internal/upload"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	FileListView ViewState = iota
	DropZoneView
	UploadView
	ResultView
)

// Options configures a [Model].
type Options struct {
	Paths     []string              // Ingested on start, e.g. CLI arguments
	Numbering *models.PageNumbering // Page numbers requested from the merge service, nil for none
	Ingest    files.IngestOptions
	Logger    *log.Logger // Must not write to the terminal the TUI draws on
}

// Model represents the TUI application state.
type Model struct {
	ctx       context.Context
	engine    *tasks.MergeEngine
	logger    *log.Logger
	files     *files.List
	machine   upload.Machine
	zone      dropzone.Zone
	paths     []string
	numbering *models.PageNumbering
	ingest    files.IngestOptions
	fileList  list.Model
	input     textinput.Model
	bar       progress.Model
	saved     []string
	notice    string
	err       error
	width     int
	height    int
	help      help.Model
	keys      keyMap
}

// NewModel creates a new TUI model with the provided dependencies.
func NewModel(ctx context.Context, engine *tasks.MergeEngine, opts Options) *Model {
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}

	fileList := list.New(nil, list.NewDefaultDelegate(), 80, 20)
	fileList.Title = "Selected files"
	fileList.SetFilteringEnabled(false)
	fileList.SetShowHelp(false)
	fileList.SetStatusBarItemName("file", "files")
	fileList.KeyMap.Quit.SetEnabled(false)

	input := textinput.New()
	input.Placeholder = "paste paths or drop files here"
	input.Prompt = "› "
	input.Width = 60

	return &Model{
		ctx:       ctx,
		engine:    engine,
		logger:    opts.Logger,
		files:     files.NewList(),
		machine:   upload.New(engine.OutputName()),
		paths:     opts.Paths,
		numbering: opts.Numbering,
		ingest:    opts.Ingest,
		fileList:  fileList,
		input:     input,
		bar:       progress.New(progress.WithDefaultGradient(), progress.WithWidth(60)),
		help:      help.New(),
		keys:      newKeyMap(),
	}
}

// Init ingests the paths given on the command line, if any.
func (m *Model) Init() tea.Cmd {
	if len(m.paths) == 0 {
		return nil
	}
	return m.ingestPaths(m.paths)
}

// CurrentView reports which view is rendered, derived from the drop zone and the upload machine.
func (m *Model) CurrentView() ViewState {
	switch {
	case m.zone.State().Visible():
		return DropZoneView
	case m.machine.State() == upload.Uploading:
		return UploadView
	case m.machine.State() == upload.Succeeded:
		return ResultView
	default:
		return FileListView
	}
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.fileList.SetSize(max(msg.Width-4, 20), max(msg.Height-8, 5))
		m.bar.Width = min(max(msg.Width-8, 10), 80)
		m.input.Width = max(msg.Width-16, 10)
		return m, nil

	case tea.KeyMsg:
		switch m.CurrentView() {
		case FileListView:
			return m.handleFileListKeys(msg)
		case DropZoneView:
			return m.handleDropZoneKeys(msg)
		case UploadView:
			return m.handleUploadKeys(msg)
		case ResultView:
			return m.handleResultKeys(msg)
		}

	case Msg:
		return m.handleMsg(msg)
	}

	if m.CurrentView() == DropZoneView {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgFilesIngested:
		res := msg.data.(files.IngestResult)
		m.files.Add(res.Accepted...)
		m.syncItems(m.files.Len() - 1)
		m.err = nil
		m.notice = fmt.Sprintf("Added %d file(s)", len(res.Accepted))
		if len(res.Rejected) > 0 {
			skipped := make([]string, len(res.Rejected))
			for i, r := range res.Rejected {
				m.logger.Warn("file not added", "path", r.Path, "err", r.Err)
				skipped[i] = r.Err.Error()
			}
			m.notice += fmt.Sprintf(", skipped %d: %s", len(res.Rejected), strings.Join(skipped, "; "))
		}
		return m, nil

	case MsgUploadProgress:
		p := msg.data.(uploadProgress)
		cmd := m.apply(m.machine.Progress(p.attempt, p.sent, p.total))
		return m, tea.Batch(cmd, waitForUpload(p.stream))

	case MsgUploadDone:
		d := msg.data.(uploadDone)
		if d.err != nil {
			return m, m.apply(m.machine.Fail(d.attempt, d.err))
		}
		if d.attempt == m.machine.Attempt() && !d.resp.IsPDF {
			m.logger.Warn("merge response is not a PDF", "content_type", d.resp.ContentType)
		}
		blob := files.NewMemFile(m.machine.OutputName(), d.resp.Body)
		return m, m.apply(m.machine.Complete(d.attempt, blob))

	case MsgResultSaved:
		s := msg.data.(resultSaved)
		if s.err != nil {
			m.err = s.err
			return m, nil
		}
		m.saved = append(m.saved, s.path)
		m.notice = fmt.Sprintf("Saved %s (%s)", s.path, shared.FormatBytes(s.size))
		return m, nil
	}
	return m, nil
}

// apply adopts the next machine and performs its effects. Invalid transitions are surfaced to the user; stale ones
// produce no effects and change nothing.
func (m *Model) apply(next upload.Machine, effects []upload.Effect, err error) tea.Cmd {
	if err != nil {
		m.logger.Debug("transition rejected", "state", m.machine.State(), "err", err)
		m.err = err
		return nil
	}

	firstSave := m.machine.State() == upload.Uploading && next.State() == upload.Succeeded
	m.machine = next

	var cmds []tea.Cmd
	for _, eff := range effects {
		cmds = append(cmds, m.perform(eff, firstSave))
	}
	return tea.Batch(cmds...)
}

func (m *Model) perform(eff upload.Effect, firstSave bool) tea.Cmd {
	switch eff := eff.(type) {
	case upload.SendRequest:
		m.err = nil
		m.notice = ""
		m.saved = nil
		return m.startUpload(eff)

	case upload.SaveResult:
		return m.saveResult(eff, firstSave)

	case upload.LogError:
		m.logger.Error("upload failed", "files", m.files.Len(), "err", eff.Err)

	case upload.ReportFailure:
		m.err = eff.Err
		outcome := models.MergeOutcome{Status: models.MergeFailed, SourceNames: m.files.Names(), Error: eff.Err.Error()}
		return func() tea.Msg {
			m.engine.Record(outcome)
			return nil
		}

	case upload.ClearFiles:
		m.files.Clear()
		m.syncItems(0)
		m.saved = nil
		m.err = nil
		m.notice = "Cleared selection"
	}
	return nil
}

// startUpload sends the request in the background and streams its progress back tagged with the attempt.
func (m *Model) startUpload(req upload.SendRequest) tea.Cmd {
	stream := make(uploadStream, 64)

	go func() {
		defer close(stream)
		resp, err := m.engine.Send(m.ctx, req.Files, m.numbering, func(sent, total int64) {
			select {
			case stream <- uploadProgressMsg(req.Attempt, sent, total, stream):
			default:
			}
		})
		// Nobody reads the stream once the program is shutting down.
		if m.ctx.Err() != nil {
			return
		}
		select {
		case stream <- uploadDoneMsg(req.Attempt, resp, err):
		case <-m.ctx.Done():
		}
	}()

	return waitForUpload(stream)
}

func waitForUpload(stream uploadStream) tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-stream
		if !ok {
			return nil
		}
		return msg
	}
}

// saveResult writes the blob to disk. Only the automatic save after a merge is recorded in history.
func (m *Model) saveResult(eff upload.SaveResult, record bool) tea.Cmd {
	names := m.files.Names()
	return func() tea.Msg {
		path, size, err := m.engine.Save(eff.Blob, eff.Name)
		if record {
			outcome := models.MergeOutcome{Status: models.MergeSucceeded, SourceNames: names, OutputPath: path, ByteSize: size}
			if err != nil {
				outcome = models.MergeOutcome{Status: models.MergeFailed, SourceNames: names, Error: err.Error()}
			}
			m.engine.Record(outcome)
		}
		if err == nil {
			m.engine.Open(path)
		}
		return resultSavedMsg(path, size, err)
	}
}

func (m *Model) ingestPaths(paths []string) tea.Cmd {
	opts := m.ingest
	return func() tea.Msg {
		return filesIngestedMsg(files.Ingest(paths, opts))
	}
}

// syncItems rebuilds the list items from the file list and selects index.
func (m *Model) syncItems(index int) {
	m.fileList.SetItems(fileItems(m.files.Files()))
	if n := m.files.Len(); n > 0 {
		m.fileList.Select(min(max(index, 0), n-1))
	}
}

func (m *Model) selected() (models.SelectedFile, bool) {
	return m.files.At(m.fileList.Index())
}

func (m *Model) handleFileListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.add):
		m.zone.Handle(dropzone.WindowDragEnter)
		m.zone.Handle(dropzone.ZoneDragEnter)
		m.input.Reset()
		return m, m.input.Focus()

	case key.Matches(msg, m.keys.remove):
		if f, ok := m.selected(); ok {
			index := m.fileList.Index()
			m.files.Remove(f.ID)
			m.syncItems(index)
			m.notice = fmt.Sprintf("Removed %s", f.Name())
		}
		return m, nil

	case key.Matches(msg, m.keys.moveUp), key.Matches(msg, m.keys.moveDown):
		delta := 1
		if key.Matches(msg, m.keys.moveUp) {
			delta = -1
		}
		if f, ok := m.selected(); ok && m.files.MoveBy(f.ID, delta) {
			m.syncItems(m.files.Position(f.ID))
		}
		return m, nil

	case key.Matches(msg, m.keys.upload):
		return m, m.apply(m.machine.Start(m.files.Files()))
	}

	var cmd tea.Cmd
	m.fileList, cmd = m.fileList.Update(msg)
	return m, cmd
}

// handleDropZoneKeys maps terminal input onto drag events: tab moves focus in and out of the drop region,
// esc leaves the window, and enter or a paste drops.
func (m *Model) handleDropZoneKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Paste {
		return m, m.drop(m.input.Value() + string(msg.Runes))
	}

	switch {
	case msg.Type == tea.KeyCtrlC:
		return m, tea.Quit

	case key.Matches(msg, m.keys.back):
		m.zone.Handle(dropzone.WindowDragLeave)
		m.input.Blur()
		return m, nil

	case key.Matches(msg, m.keys.drop):
		return m, m.drop(m.input.Value())

	case key.Matches(msg, m.keys.focus):
		if m.input.Focused() {
			m.zone.Handle(dropzone.ZoneDragLeave)
			m.input.Blur()
			return m, nil
		}
		m.zone.Handle(dropzone.ZoneDragEnter)
		return m, m.input.Focus()
	}

	if !m.input.Focused() {
		return m, nil
	}
	m.zone.Handle(dropzone.ZoneDragOver)

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) drop(text string) tea.Cmd {
	paths := m.zone.Drop(shared.ParsePastedPaths(text))
	m.input.Blur()
	m.input.Reset()
	if len(paths) == 0 {
		return nil
	}
	return m.ingestPaths(paths)
}

func (m *Model) handleUploadKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.cancel):
		return m, m.apply(m.machine.Cancel())
	}
	return m, nil
}

func (m *Model) handleResultKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.download):
		return m, m.apply(m.machine.Download())
	case key.Matches(msg, m.keys.cancel):
		return m, m.apply(m.machine.Cancel())
	}
	return m, nil
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	switch m.CurrentView() {
	case FileListView:
		return m.renderFileList()
	case DropZoneView:
		return m.renderDropZone()
	case UploadView:
		return m.renderUpload()
	case ResultView:
		return m.renderResult()
	default:
		return ""
	}
}

func (m *Model) renderStatus() string {
	switch {
	case m.err != nil:
		return styles.err.Render(fmt.Sprintf("Error: %v", m.err))
	case m.notice != "":
		return styles.help.Render(m.notice)
	default:
		return ""
	}
}

func (m *Model) renderFileList() string {
	var body string
	if m.files.Len() == 0 {
		body = styles.title.Render("Selected files") + "\n" + styles.warn.Render("No files selected. Press a to add PDFs.")
	} else {
		body = m.fileList.View()
	}

	helpKeys := []key.Binding{m.keys.add, m.keys.remove, m.keys.moveUp, m.keys.moveDown, m.keys.upload, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)
	return fmt.Sprintf("%s\n\n%s\n%s", body, m.renderStatus(), helpView)
}

func (m *Model) renderDropZone() string {
	box := styles.zone
	if m.zone.State() == dropzone.Highlighted {
		box = styles.hot
	}
	content := fmt.Sprintf("Drop PDF files here\n\n%s", m.input.View())

	helpKeys := []key.Binding{m.keys.drop, m.keys.focus, m.keys.back}
	helpView := m.help.ShortHelpView(helpKeys)
	return fmt.Sprintf("%s\n%s\n\n%s", styles.title.Render("Add files"), box.Render(content), helpView)
}

func (m *Model) renderUpload() string {
	title := styles.title.Render(fmt.Sprintf("Merging %d file(s)", m.files.Len()))
	pct := m.machine.Percent()
	bar := m.bar.ViewAs(float64(pct) / 100)

	helpKeys := []key.Binding{m.keys.cancel, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)
	return fmt.Sprintf("%s\n%s %3d%%\n\n%s", title, bar, pct, helpView)
}

func (m *Model) renderResult() string {
	title := styles.ok.Render(fmt.Sprintf("✓ Merged %d file(s)", m.files.Len()))

	var info strings.Builder
	if blob := m.machine.Result(); blob != nil {
		fmt.Fprintf(&info, "\n%s (%s)", blob.Name(), shared.FormatBytes(blob.Size()))
	}
	for _, path := range m.saved {
		fmt.Fprintf(&info, "\nSaved to %s", path)
	}

	helpKeys := []key.Binding{m.keys.download, m.keys.cancel, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)
	return fmt.Sprintf("%s\n%s\n\n%s\n%s", title, info.String(), m.renderStatus(), helpView)
}
