package files

import (
	"github.com/desertthunder/pdfx/internal/models"
)

// NotFound is returned by [List.Position] for unknown ids.
const NotFound = -1

// List is the ordered set of files to merge. The order is the merge order.
//
// List is not safe for concurrent use; callers mutate it from a single goroutine (the UI loop or a command).
type List struct {
	items []models.SelectedFile
	next  models.FileID
}

// NewList creates an empty list whose first id is 0.
func NewList() *List {
	return &List{}
}

// Add appends blobs in the given order and returns the new entries.
func (l *List) Add(blobs ...models.Blob) []models.SelectedFile {
	added := make([]models.SelectedFile, 0, len(blobs))
	for _, b := range blobs {
		if b == nil {
			continue
		}
		f := models.SelectedFile{ID: l.next, File: b}
		l.next++
		l.items = append(l.items, f)
		added = append(added, f)
	}
	return added
}

// Remove deletes the entry with id. Reports whether anything was removed.
func (l *List) Remove(id models.FileID) bool {
	pos := l.Position(id)
	if pos == NotFound {
		return false
	}
	l.items = append(l.items[:pos], l.items[pos+1:]...)
	return true
}

// Reorder moves the source entry to the target entry's position, shifting the entries in between by one.
//
// Equal ids and unknown ids leave the list untouched; the return value reports whether the order changed.
func (l *List) Reorder(source, target models.FileID) bool {
	if source == target {
		return false
	}
	from, to := l.Position(source), l.Position(target)
	if from == NotFound || to == NotFound {
		return false
	}
	l.items = arrayMove(l.items, from, to)
	return true
}

// MoveBy shifts the entry with id by delta positions, clamped to the list bounds.
func (l *List) MoveBy(id models.FileID, delta int) bool {
	from := l.Position(id)
	if from == NotFound {
		return false
	}
	to := min(max(from+delta, 0), len(l.items)-1)
	if to == from {
		return false
	}
	return l.Reorder(id, l.items[to].ID)
}

// Position returns the zero-based index of id, or [NotFound].
func (l *List) Position(id models.FileID) int {
	for i, f := range l.items {
		if f.ID == id {
			return i
		}
	}
	return NotFound
}

// At returns the entry at index i.
func (l *List) At(i int) (models.SelectedFile, bool) {
	if i < 0 || i >= len(l.items) {
		return models.SelectedFile{}, false
	}
	return l.items[i], true
}

// Files returns a copy of the entries in merge order.
func (l *List) Files() []models.SelectedFile {
	return append([]models.SelectedFile(nil), l.items...)
}

// Names returns the blob names in merge order.
func (l *List) Names() []string {
	names := make([]string, len(l.items))
	for i, f := range l.items {
		names[i] = f.Name()
	}
	return names
}

// Len returns the number of entries.
func (l *List) Len() int {
	return len(l.items)
}

// Clear removes every entry. Ids handed out before are not reused.
func (l *List) Clear() {
	l.items = nil
}

// arrayMove removes the element at from and reinserts it at to.
func arrayMove[T any](s []T, from, to int) []T {
	out := make([]T, 0, len(s))
	item := s[from]
	rest := append(append(make([]T, 0, len(s)-1), s[:from]...), s[from+1:]...)
	out = append(out, rest[:to]...)
	out = append(out, item)
	out = append(out, rest[to:]...)
	return out
}
