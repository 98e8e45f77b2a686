// package formatter renders merge history and batch manifests in various formats (CSV, Markdown, plain text, JSON)
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/pdfx/internal/models"
	"github.com/desertthunder/pdfx/internal/shared"
)

const timeLayout = "2006-01-02 15:04:05"

// Formats lists the names accepted by [FormatHistory].
var Formats = []string{"text", "csv", "markdown", "json"}

// recordJSON is the JSON shape of a [models.MergeRecord].
type recordJSON struct {
	ID          string    `json:"id"`
	Sequence    int       `json:"sequence"`
	Status      string    `json:"status"`
	OutputPath  string    `json:"output_path,omitempty"`
	FileCount   int       `json:"file_count"`
	ByteSize    int64     `json:"byte_size"`
	SourceNames []string  `json:"source_names"`
	Error       string    `json:"error,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// FormatHistory renders records in the named format (text, csv, markdown/md, json).
func FormatHistory(records []*models.MergeRecord, format string) ([]byte, error) {
	switch strings.ToLower(format) {
	case "", "text", "txt":
		return HistoryToText(records)
	case "csv":
		return HistoryToCSV(records)
	case "markdown", "md":
		return HistoryToMarkdown(records)
	case "json":
		return HistoryToJSON(records)
	default:
		return nil, fmt.Errorf("%w: unknown format %q (want one of %s)", shared.ErrInvalidFlag, format, strings.Join(Formats, ", "))
	}
}

// HistoryToCSV converts records to CSV with columns: Sequence, ID, Status, Files, Bytes, Output, Sources, Error, Created
func HistoryToCSV(records []*models.MergeRecord) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Sequence", "ID", "Status", "Files", "Bytes", "Output", "Sources", "Error", "Created"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, r := range records {
		record := []string{
			strconv.Itoa(r.Sequence()),
			r.ID(),
			string(r.Status()),
			strconv.Itoa(r.FileCount()),
			strconv.FormatInt(r.ByteSize(), 10),
			r.OutputPath(),
			strings.Join(r.SourceNames(), ";"),
			r.ErrorMessage(),
			r.CreatedAt().UTC().Format(time.RFC3339),
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// HistoryToMarkdown converts records to a Markdown table
func HistoryToMarkdown(records []*models.MergeRecord) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString("# Merge History\n\n")
	buf.WriteString(fmt.Sprintf("**Merges**: %d\n\n", len(records)))

	if len(records) == 0 {
		buf.WriteString("_No merges recorded._\n")
		return buf.Bytes(), nil
	}

	buf.WriteString("| # | Status | Files | Size | Output | Created |\n")
	buf.WriteString("|---|--------|-------|------|--------|---------|\n")
	for _, r := range records {
		output := r.OutputPath()
		if r.Status() == models.MergeFailed {
			output = r.ErrorMessage()
		}
		buf.WriteString(fmt.Sprintf("| %d | %s | %d | %s | %s | %s |\n",
			r.Sequence(), r.Status(), r.FileCount(), shared.FormatBytes(r.ByteSize()),
			escapeCell(output), r.CreatedAt().Local().Format(timeLayout)))
	}

	return buf.Bytes(), nil
}

// HistoryToText converts records to plain text, one merge per block
func HistoryToText(records []*models.MergeRecord) ([]byte, error) {
	var buf bytes.Buffer

	if len(records) == 0 {
		buf.WriteString("No merges recorded.\n")
		return buf.Bytes(), nil
	}

	for i, r := range records {
		if i > 0 {
			buf.WriteString("\n")
		}
		mark := "✓"
		if r.Status() == models.MergeFailed {
			mark = "✗"
		}
		buf.WriteString(fmt.Sprintf("%s #%d %s (%d files) %s\n", mark, r.Sequence(), r.CreatedAt().Local().Format(timeLayout), r.FileCount(), r.ID()))
		if r.Status() == models.MergeSucceeded {
			buf.WriteString(fmt.Sprintf("  Output: %s (%s)\n", r.OutputPath(), shared.FormatBytes(r.ByteSize())))
		} else {
			buf.WriteString(fmt.Sprintf("  Error: %s\n", r.ErrorMessage()))
		}
		for j, name := range r.SourceNames() {
			buf.WriteString(fmt.Sprintf("  %d. %s\n", j+1, name))
		}
	}

	return buf.Bytes(), nil
}

// HistoryToJSON converts records to an indented JSON array
func HistoryToJSON(records []*models.MergeRecord) ([]byte, error) {
	out := make([]recordJSON, 0, len(records))
	for _, r := range records {
		names := r.SourceNames()
		if names == nil {
			names = []string{}
		}
		out = append(out, recordJSON{
			ID:          r.ID(),
			Sequence:    r.Sequence(),
			Status:      string(r.Status()),
			OutputPath:  r.OutputPath(),
			FileCount:   r.FileCount(),
			ByteSize:    r.ByteSize(),
			SourceNames: names,
			Error:       r.ErrorMessage(),
			CreatedAt:   r.CreatedAt().UTC(),
		})
	}
	return shared.MarshalJSON(out, true)
}

// WriteBatchManifest writes the batch result as indented JSON to path, creating parent directories as needed.
func WriteBatchManifest(result *models.BatchResult, path string) error {
	if result == nil {
		return fmt.Errorf("%w: nil batch result", shared.ErrInvalidInput)
	}

	data, err := shared.MarshalJSON(result, true)
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}

	return nil
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", "\\|")
}
