package services

import (
	"context"
	"net/http"

	"github.com/desertthunder/pdfx/internal/models"
)

// Merger uploads an ordered set of documents and returns the merged result.
type Merger interface {
	// Merge uploads files in order and returns the merged document.
	// onProgress may be nil.
	Merge(ctx context.Context, files []models.SelectedFile, numbering *models.PageNumbering, onProgress ProgressFunc) (*MergeResponse, error)

	// Name returns a short label for logs, usually the endpoint URL.
	Name() string
}

// ProgressFunc receives the number of request body bytes sent so far and the body size.
type ProgressFunc func(sent, total int64)

// MergeResponse is the merged document returned by the service.
type MergeResponse struct {
	StatusCode  int
	Headers     http.Header
	Body        []byte
	ContentType string
	RequestID   string
	IsPDF       bool
}

// HealthStatus is the decoded body of the health endpoint.
type HealthStatus struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
}
