package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"

	filespkg "github.com/desertthunder/pdfx/internal/files"
	"github.com/desertthunder/pdfx/internal/models"
	"github.com/desertthunder/pdfx/internal/shared"
)

const (
	DefaultBaseURL   = "http://127.0.0.1:8080"
	DefaultEndpoint  = "/pdf/merge"
	DefaultFieldName = "files"

	// DefaultProgressInterval is the minimum gap between two progress reports.
	DefaultProgressInterval = 100 * time.Millisecond

	maxErrorBody = 512
)

var _ Merger = (*MergeService)(nil)

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// MergeServiceOpts configures [NewMergeService]. Zero values fall back to the defaults.
type MergeServiceOpts struct {
	BaseURL          string
	Endpoint         string
	FieldName        string
	Client           *http.Client
	Logger           *log.Logger
	ProgressInterval time.Duration
}

// MergeService talks to the remote merge endpoint.
type MergeService struct {
	baseURL    string
	endpoint   string
	fieldName  string
	httpClient *http.Client
	logger     *log.Logger
	interval   time.Duration
}

// NewMergeService creates a merge client.
func NewMergeService(opts MergeServiceOpts) *MergeService {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Endpoint == "" {
		opts.Endpoint = DefaultEndpoint
	}
	if opts.FieldName == "" {
		opts.FieldName = DefaultFieldName
	}
	if opts.Client == nil {
		opts.Client = http.DefaultClient
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.ProgressInterval <= 0 {
		opts.ProgressInterval = DefaultProgressInterval
	}

	return &MergeService{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		endpoint:   "/" + strings.TrimLeft(opts.Endpoint, "/"),
		fieldName:  opts.FieldName,
		httpClient: opts.Client,
		logger:     opts.Logger,
		interval:   opts.ProgressInterval,
	}
}

// NewMergeServiceFromConfig builds a client from the [merge] config section.
func NewMergeServiceFromConfig(cfg shared.MergeConfig, client *http.Client, logger *log.Logger) *MergeService {
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout()}
	}
	return NewMergeService(MergeServiceOpts{
		BaseURL:   cfg.BaseURL,
		Endpoint:  cfg.Endpoint,
		FieldName: cfg.FieldName,
		Client:    client,
		Logger:    logger,
	})
}

// Name returns the merge URL.
func (s *MergeService) Name() string {
	return s.baseURL + s.endpoint
}

// Merge uploads files as one multipart request and returns the merged document.
func (s *MergeService) Merge(ctx context.Context, files []models.SelectedFile, numbering *models.PageNumbering, onProgress ProgressFunc) (*MergeResponse, error) {
	if len(files) == 0 {
		return nil, shared.ErrNoFiles
	}

	body, contentType, err := s.encode(files, numbering)
	if err != nil {
		return nil, err
	}

	total := int64(body.Len())
	var reader io.Reader = body
	if onProgress != nil {
		reader = newProgressReader(body, total, s.interval, onProgress)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.Name(), reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	requestID := shared.GenerateID()
	req.ContentLength = total
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/pdf")
	req.Header.Set("X-Request-ID", requestID)

	logger := shared.WithLogger(s.logger, "request_id", requestID)
	logger.Debug("uploading files", "url", s.Name(), "files", len(files), "bytes", total)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: status %d: %s", shared.ErrMergeFailed, resp.StatusCode, trimBody(data))
	}

	detected, isPDF := filespkg.DetectPDF(data)
	out := &MergeResponse{
		StatusCode:  resp.StatusCode,
		Headers:     resp.Header,
		Body:        data,
		ContentType: resp.Header.Get("Content-Type"),
		RequestID:   requestID,
		IsPDF:       isPDF,
	}
	if !out.IsPDF {
		logger.Warn("merge response is not a PDF", "detected", detected, "content_type", out.ContentType, "bytes", len(data))
	}

	logger.Debug("merge complete", "status", resp.StatusCode, "bytes", len(data))
	return out, nil
}

// encode writes the multipart body. Files are read eagerly so the size is known before sending.
func (s *MergeService) encode(files []models.SelectedFile, numbering *models.PageNumbering) (*bytes.Buffer, string, error) {
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)

	for _, f := range files {
		if f.File == nil {
			return nil, "", fmt.Errorf("%w: file %d has no content", shared.ErrInvalidInput, f.ID)
		}
		if err := s.writeFilePart(w, f.File); err != nil {
			return nil, "", err
		}
	}

	if numbering != nil {
		if err := numbering.Validate(); err != nil {
			return nil, "", fmt.Errorf("%w: %w", shared.ErrInvalidInput, err)
		}
		if err := w.WriteField("startingPageNo", strconv.Itoa(numbering.StartingPageNo)); err != nil {
			return nil, "", fmt.Errorf("failed to write field: %w", err)
		}
		if err := w.WriteField("pageNoPosition", strings.ToUpper(numbering.Position.String())); err != nil {
			return nil, "", fmt.Errorf("failed to write field: %w", err)
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to finalize body: %w", err)
	}
	return body, w.FormDataContentType(), nil
}

func (s *MergeService) writeFilePart(w *multipart.Writer, blob models.Blob) error {
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
		quoteEscaper.Replace(s.fieldName), quoteEscaper.Replace(blob.Name())))
	h.Set("Content-Type", "application/pdf")

	part, err := w.CreatePart(h)
	if err != nil {
		return fmt.Errorf("failed to create part for %s: %w", blob.Name(), err)
	}

	rc, err := blob.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	if _, err := io.Copy(part, rc); err != nil {
		return fmt.Errorf("failed to read %s: %w", blob.Name(), err)
	}
	return nil
}

// Health calls GET {base_url}/health.
func (s *MergeService) Health(ctx context.Context) (*HealthStatus, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/health", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", shared.ErrServiceUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", shared.ErrServiceUnavailable, resp.StatusCode)
	}

	var status HealthStatus
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return nil, fmt.Errorf("failed to decode health response: %w", err)
	}
	return &status, nil
}

func trimBody(data []byte) string {
	s := strings.TrimSpace(string(data))
	if len(s) > maxErrorBody {
		cut := maxErrorBody
		for cut > 0 && !utf8.RuneStart(s[cut]) {
			cut--
		}
		s = s[:cut] + "..."
	}
	if s == "" {
		return "empty response"
	}
	return s
}

// progressReader counts bytes read by the transport and reports them through a throttle.
type progressReader struct {
	r          io.Reader
	total      int64
	sent       int64
	reported   int64
	sometimes  *rate.Sometimes
	onProgress ProgressFunc
}

func newProgressReader(r io.Reader, total int64, interval time.Duration, fn ProgressFunc) *progressReader {
	return &progressReader{
		r:          r,
		total:      total,
		reported:   -1,
		sometimes:  &rate.Sometimes{First: 1, Interval: interval},
		onProgress: fn,
	}
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.sent += int64(n)
		p.sometimes.Do(p.report)
		if p.sent >= p.total && p.reported != p.sent {
			p.report()
		}
	}
	return n, err
}

func (p *progressReader) report() {
	p.reported = p.sent
	p.onProgress(p.sent, p.total)
}
