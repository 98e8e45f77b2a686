package server

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	"github.com/desertthunder/pdfx/internal/models"
)

// Document is one uploaded part.
type Document struct {
	Name string
	Data []byte
}

// Merger combines documents in order into a single PDF.
type Merger interface {
	Merge(ctx context.Context, docs []Document, numbering *models.PageNumbering) ([]byte, error)
}

// PDFCPUMerger merges with pdfcpu using relaxed validation.
type PDFCPUMerger struct {
	FontSize int // Page number font size in points (default 10)
	Margin   int // Page number distance from the page edge in points (default 20)
}

var _ Merger = (*PDFCPUMerger)(nil)

func (p *PDFCPUMerger) config() *model.Configuration {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return conf
}

// Merge concatenates docs and stamps page numbers when numbering is set.
func (p *PDFCPUMerger) Merge(ctx context.Context, docs []Document, numbering *models.PageNumbering) ([]byte, error) {
	if len(docs) == 0 {
		return nil, fmt.Errorf("no documents to merge")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	conf := p.config()
	readers := make([]io.ReadSeeker, len(docs))
	for i, d := range docs {
		readers[i] = bytes.NewReader(d.Data)
	}

	var merged bytes.Buffer
	if len(docs) == 1 {
		if err := api.Optimize(readers[0], &merged, conf); err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", docs[0].Name, err)
		}
	} else if err := api.MergeRaw(readers, &merged, false, conf); err != nil {
		return nil, fmt.Errorf("failed to merge PDFs: %w", err)
	}

	if numbering == nil {
		return merged.Bytes(), nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return p.stampPageNumbers(merged.Bytes(), *numbering, conf)
}

// stampPageNumbers writes StartingPageNo, StartingPageNo+1, ... onto consecutive pages.
func (p *PDFCPUMerger) stampPageNumbers(data []byte, numbering models.PageNumbering, conf *model.Configuration) ([]byte, error) {
	pages, err := api.PageCount(bytes.NewReader(data), conf)
	if err != nil {
		return nil, fmt.Errorf("failed to count pages: %w", err)
	}

	desc := p.stampDescription(numbering.Position)
	stamps := make(map[int]*model.Watermark, pages)
	for page := 1; page <= pages; page++ {
		text := strconv.Itoa(numbering.StartingPageNo + page - 1)
		wm, err := api.TextWatermark(text, desc, true, false, types.POINTS)
		if err != nil {
			return nil, fmt.Errorf("failed to build page number stamp: %w", err)
		}
		stamps[page] = wm
	}

	var out bytes.Buffer
	if err := api.AddWatermarksMap(bytes.NewReader(data), &out, stamps, conf); err != nil {
		return nil, fmt.Errorf("failed to stamp page numbers: %w", err)
	}
	return out.Bytes(), nil
}

// stampDescription builds the pdfcpu stamp description for a position, offset inwards by the margin.
func (p *PDFCPUMerger) stampDescription(pos models.PageNoPosition) string {
	size, margin := p.FontSize, p.Margin
	if size <= 0 {
		size = 10
	}
	if margin <= 0 {
		margin = 20
	}

	dx, dy := 0, margin
	switch pos {
	case models.TopLeft, models.BottomLeft:
		dx = margin
	case models.TopRight, models.BottomRight:
		dx = -margin
	}
	switch pos {
	case models.TopLeft, models.TopCenter, models.TopRight:
		dy = -margin
	}

	return fmt.Sprintf("position:%s, offset:%d %d, rotation:0, scalefactor:1 abs, points:%d, opacity:1",
		pos.Anchor(), dx, dy, size)
}
