package files

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gabriel-vasile/mimetype"

	"github.com/desertthunder/pdfx/internal/models"
	"github.com/desertthunder/pdfx/internal/shared"
)

// PDFMIME is the only content type accepted by default.
const PDFMIME = "application/pdf"

// IngestOptions controls which candidates [Ingest] accepts.
type IngestOptions struct {
	AcceptNonPDF bool // Skip content sniffing and accept any regular file
}

// Rejection records a path that was not added and why.
type Rejection struct {
	Path string
	Err  error
}

// IngestResult splits the candidates into accepted blobs (input order preserved) and rejections.
type IngestResult struct {
	Accepted []models.Blob
	Rejected []Rejection
}

// Ingest resolves paths into blobs for [List.Add].
//
// A directory contributes its regular files one level deep in name order; non-PDF entries inside a directory are skipped
// silently, while an explicitly named non-PDF file is reported as rejected.
func Ingest(paths []string, opts IngestOptions) IngestResult {
	var res IngestResult

	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			if os.IsNotExist(err) {
				err = fmt.Errorf("%w: %s", shared.ErrFileNotFound, p)
			}
			res.Rejected = append(res.Rejected, Rejection{Path: p, Err: err})
			continue
		}

		if !info.IsDir() {
			blob, err := ingestFile(p, opts)
			if err != nil {
				res.Rejected = append(res.Rejected, Rejection{Path: p, Err: err})
				continue
			}
			res.Accepted = append(res.Accepted, blob)
			continue
		}

		entries, err := os.ReadDir(p)
		if err != nil {
			res.Rejected = append(res.Rejected, Rejection{Path: p, Err: fmt.Errorf("failed to read directory: %w", err)})
			continue
		}
		for _, entry := range entries {
			if !entry.Type().IsRegular() {
				continue
			}
			child := filepath.Join(p, entry.Name())
			blob, err := ingestFile(child, opts)
			if errors.Is(err, shared.ErrNotPDF) {
				continue
			}
			if err != nil {
				res.Rejected = append(res.Rejected, Rejection{Path: child, Err: err})
				continue
			}
			res.Accepted = append(res.Accepted, blob)
		}
	}

	return res
}

func ingestFile(path string, opts IngestOptions) (models.Blob, error) {
	blob, err := NewDiskFile(path)
	if err != nil {
		return nil, err
	}
	if opts.AcceptNonPDF {
		return blob, nil
	}
	if err := SniffPDFFile(path); err != nil {
		return nil, err
	}
	return blob, nil
}

// SniffPDFFile reports [shared.ErrNotPDF] unless the file content is detected as a PDF.
func SniffPDFFile(path string) error {
	mtype, err := mimetype.DetectFile(path)
	if err != nil {
		return fmt.Errorf("failed to detect content type: %w", err)
	}
	if !mtype.Is(PDFMIME) {
		return fmt.Errorf("%w: %s is %s", shared.ErrNotPDF, filepath.Base(path), mtype.String())
	}
	return nil
}

// DetectPDF sniffs data and reports the detected content type and whether it is a PDF document.
func DetectPDF(data []byte) (string, bool) {
	mtype := mimetype.Detect(data)
	return mtype.String(), mtype.Is(PDFMIME)
}
