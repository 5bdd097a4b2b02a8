// Package detection defines the contract between the scan lifecycle and
// the document-analysis engine. The real engine is expected to run
// out-of-process; PatternDetector is the built-in stand-in that keeps
// the pipeline end-to-end runnable.
package detection

import (
	"context"
	"io"
)

// Finding is one detected instance of a sensitive-data category.
type Finding struct {
	Type       string         `json:"type"`
	Confidence float64        `json:"confidence"`
	Location   map[string]any `json:"location,omitempty"`
	Count      int            `json:"count"`
}

// Report is the outcome of analyzing a single document.
type Report struct {
	RiskLevel  string         `json:"riskLevel"`
	Confidence float64        `json:"confidence"`
	Findings   []Finding      `json:"findings"`
	Summary    map[string]any `json:"summary,omitempty"`
}

// Detector analyzes a document stream for sensitive content.
type Detector interface {
	Detect(ctx context.Context, r io.Reader, contentType string) (Report, error)
}
