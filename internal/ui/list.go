package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"

	"github.com/desertthunder/pdfx/internal/models"
	"github.com/desertthunder/pdfx/internal/shared"
)

var _ list.Item = fileItem{}

// fileItem wraps [models.SelectedFile] to implement [list.Item].
type fileItem struct {
	file     models.SelectedFile
	position int
}

func (i fileItem) FilterValue() string { return i.file.Name() }
func (i fileItem) Title() string       { return fmt.Sprintf("%d. %s", i.position+1, i.file.Name()) }
func (i fileItem) Description() string {
	if i.file.File == nil || i.file.File.Size() < 0 {
		return fmt.Sprintf("id %d", i.file.ID)
	}
	return fmt.Sprintf("%s • id %d", shared.FormatBytes(i.file.File.Size()), i.file.ID)
}

func fileItems(selected []models.SelectedFile) []list.Item {
	items := make([]list.Item, len(selected))
	for i, f := range selected {
		items[i] = fileItem{file: f, position: i}
	}
	return items
}
