package models

import (
	"fmt"
	"strings"
)

// PageNoPosition is the page corner/edge where page numbers are stamped.
type PageNoPosition int

const (
	TopLeft PageNoPosition = iota
	TopCenter
	TopRight
	BottomLeft
	BottomCenter
	BottomRight
)

var positionNames = []string{"top_left", "top_center", "top_right", "bottom_left", "bottom_center", "bottom_right"}

func (p PageNoPosition) String() string {
	if p < TopLeft || int(p) >= len(positionNames) {
		return ""
	}
	return positionNames[p]
}

// Anchor returns the short position code understood by pdfcpu stamp descriptions.
func (p PageNoPosition) Anchor() string {
	switch p {
	case TopLeft:
		return "tl"
	case TopCenter:
		return "tc"
	case TopRight:
		return "tr"
	case BottomLeft:
		return "bl"
	case BottomCenter:
		return "bc"
	case BottomRight:
		return "br"
	default:
		return "bc"
	}
}

// ParsePageNoPosition accepts snake_case, kebab-case or UPPER_CASE names and the short anchors (tl, br, ...).
func ParsePageNoPosition(s string) (PageNoPosition, error) {
	norm := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_")
	for i, name := range positionNames {
		if norm == name || norm == PageNoPosition(i).Anchor() {
			return PageNoPosition(i), nil
		}
	}
	return TopLeft, fmt.Errorf("unknown page number position %q", s)
}

// PageNumbering asks the merge service to stamp page numbers on the merged document.
type PageNumbering struct {
	StartingPageNo int
	Position       PageNoPosition
}

// DefaultPageNumbering mirrors the merge page defaults: start at 1, top left.
func DefaultPageNumbering() PageNumbering {
	return PageNumbering{StartingPageNo: 1, Position: TopLeft}
}

// Validate checks the starting page number.
func (p PageNumbering) Validate() error {
	if p.StartingPageNo < 1 {
		return fmt.Errorf("starting page number must be at least 1, got %d", p.StartingPageNo)
	}
	return nil
}
