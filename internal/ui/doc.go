// Package ui implements an interactive terminal interface using bubbletea's Elm architecture.
//
// The TUI provides a multi-view workflow for merging PDFs:
//  1. [FileListView] : Review, reorder and remove the selected files
//  2. [DropZoneView] : Add files by pasting or dropping paths onto the terminal
//  3. [UploadView] : Monitor upload progress
//  4. [ResultView] : Save the merged document again or start over
//
// The (view) [Model] implements bubbletea/Elm's standard Init/Update/View pattern, receiving messages via the Msg union type.
// Which view is shown follows from the [upload.Machine] and the [dropzone.Zone] held by the model, so the two state
// machines stay the single source of truth. Upload progress flows through a per-attempt channel; messages from an
// attempt that was cancelled are drained and ignored.
//
// Keyboard navigation uses vim-style bindings (j/k, J/K to move, a/x/u/d/c, q) with contextual help displayed via charmbracelet/bubbles/help.
package ui
