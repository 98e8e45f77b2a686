package files

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/desertthunder/pdfx/internal/models"
	"github.com/desertthunder/pdfx/internal/shared"
)

var (
	_ models.Blob = (*DiskFile)(nil)
	_ models.Blob = (*MemFile)(nil)
)

// DiskFile is a [models.Blob] backed by a file on disk, opened lazily at upload time.
type DiskFile struct {
	path string
	size int64
}

// NewDiskFile stats path and returns a blob for it.
func NewDiskFile(path string) (*DiskFile, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", shared.ErrFileNotFound, path)
		}
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("%w: %s is not a regular file", shared.ErrInvalidInput, path)
	}
	return &DiskFile{path: path, size: info.Size()}, nil
}

func (d *DiskFile) Name() string { return filepath.Base(d.path) }
func (d *DiskFile) Size() int64  { return d.size }
func (d *DiskFile) Path() string { return d.path }

func (d *DiskFile) Open() (io.ReadCloser, error) {
	f, err := os.Open(d.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", d.path, err)
	}
	return f, nil
}

// MemFile is an in-memory [models.Blob].
type MemFile struct {
	name string
	data []byte
}

// NewMemFile wraps data under name.
func NewMemFile(name string, data []byte) *MemFile {
	return &MemFile{name: name, data: data}
}

func (m *MemFile) Name() string { return m.name }
func (m *MemFile) Size() int64  { return int64(len(m.data)) }

func (m *MemFile) Open() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(m.data)), nil
}
