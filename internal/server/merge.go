package server

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/pdfx/internal/files"
	"github.com/desertthunder/pdfx/internal/models"
)

// formMemory is how much of a multipart form is kept in memory before spilling to temp files.
const formMemory = 32 << 20

// MergeHandler serves POST /pdf/merge.
type MergeHandler struct {
	merger     Merger
	fieldName  string
	outputName string
	maxBytes   int64
	logger     *log.Logger
}

// MergeHandlerOpts configures [NewMergeHandler]. Zero values fall back to the defaults.
type MergeHandlerOpts struct {
	FieldName  string // Multipart field carrying the files (default "files")
	OutputName string // Suggested download name (default generated.pdf)
	MaxBytes   int64  // Request body limit (default 64 MiB)
}

// NewMergeHandler creates a merge handler.
func NewMergeHandler(merger Merger, logger *log.Logger, opts MergeHandlerOpts) *MergeHandler {
	if opts.FieldName == "" {
		opts.FieldName = "files"
	}
	if opts.OutputName == "" {
		opts.OutputName = "generated.pdf"
	}
	if opts.MaxBytes <= 0 {
		opts.MaxBytes = 64 << 20
	}
	return &MergeHandler{
		merger:     merger,
		fieldName:  opts.FieldName,
		outputName: opts.OutputName,
		maxBytes:   opts.MaxBytes,
		logger:     logger,
	}
}

func (h *MergeHandler) Routes() []string {
	return []string{"/pdf/merge"}
}

func (h *MergeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes)
	if err := r.ParseMultipartForm(formMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("request body exceeds %d bytes", h.maxBytes))
			return
		}
		writeError(w, http.StatusBadRequest, "invalid multipart form: "+err.Error())
		return
	}
	defer r.MultipartForm.RemoveAll()

	headers := r.MultipartForm.File[h.fieldName]
	if len(headers) == 0 {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("no %q parts in request", h.fieldName))
		return
	}

	docs, status, err := readDocuments(headers)
	if err != nil {
		writeError(w, status, err.Error())
		return
	}

	numbering, err := parseNumbering(r.MultipartForm.Value)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	logger := h.logger.With("request_id", r.Header.Get(RequestIDHeader))
	logger.Debug("merging", "files", len(docs), "numbering", numbering != nil)

	merged, err := h.merger.Merge(r.Context(), docs, numbering)
	if err != nil {
		logger.Warn("merge failed", "err", err)
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", h.outputName))
	w.Header().Set("Content-Length", strconv.Itoa(len(merged)))
	w.WriteHeader(http.StatusOK)
	w.Write(merged)
}

// readDocuments loads every part in order and rejects anything that does not sniff as a PDF.
func readDocuments(headers []*multipart.FileHeader) ([]Document, int, error) {
	docs := make([]Document, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			return nil, http.StatusBadRequest, fmt.Errorf("failed to open part %s: %w", fh.Filename, err)
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			return nil, http.StatusBadRequest, fmt.Errorf("failed to read part %s: %w", fh.Filename, err)
		}

		if detected, ok := files.DetectPDF(data); !ok {
			return nil, http.StatusUnsupportedMediaType, fmt.Errorf("%s is %s, not %s", fh.Filename, detected, files.PDFMIME)
		}
		docs = append(docs, Document{Name: fh.Filename, Data: data})
	}
	return docs, http.StatusOK, nil
}

// parseNumbering reads the optional startingPageNo / pageNoPosition fields. Both absent means no numbering.
func parseNumbering(values map[string][]string) (*models.PageNumbering, error) {
	start := firstValue(values, "startingPageNo")
	position := firstValue(values, "pageNoPosition")
	if start == "" && position == "" {
		return nil, nil
	}

	numbering := models.DefaultPageNumbering()
	if start != "" {
		n, err := strconv.Atoi(start)
		if err != nil {
			return nil, fmt.Errorf("invalid startingPageNo %q", start)
		}
		numbering.StartingPageNo = n
	}
	if position != "" {
		pos, err := models.ParsePageNoPosition(position)
		if err != nil {
			return nil, err
		}
		numbering.Position = pos
	}
	if err := numbering.Validate(); err != nil {
		return nil, err
	}
	return &numbering, nil
}

func firstValue(values map[string][]string, key string) string {
	if v := values[key]; len(v) > 0 {
		return strings.TrimSpace(v[0])
	}
	return ""
}

// NewMergeRouter wires the merge and health handlers with request ID, logging and recovery middleware.
func NewMergeRouter(merger Merger, logger *log.Logger, version string, opts MergeHandlerOpts) *BasicRouter {
	router := NewBasicRouter()
	router.Use(RequestID(), Logger(logger), Recoverer(logger))
	router.Handler(NewMergeHandler(merger, logger, opts))
	router.Handler(NewHealthHandler(version))
	return router
}
