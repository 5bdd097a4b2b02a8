package detection

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/ledongthuc/pdf"
)

var patternRules = []struct {
	infoType   string
	confidence float64
	re         *regexp.Regexp
}{
	{"ssn", 0.95, regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`)},
	{"credit_card", 0.90, regexp.MustCompile(`\b(?:\d[ -]?){13,16}\b`)},
	{"email", 0.98, regexp.MustCompile(`\b[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}\b`)},
	{"phone", 0.80, regexp.MustCompile(`\b(?:\+?1[ .-]?)?\(?\d{3}\)?[ .-]?\d{3}[ .-]?\d{4}\b`)},
	{"date_of_birth", 0.60, regexp.MustCompile(`\b(?:0?[1-9]|1[0-2])[/-](?:0?[1-9]|[12]\d|3[01])[/-](?:19|20)\d{2}\b`)},
}

// PatternDetector matches well-known sensitive-data patterns against the
// text content of a document. PDFs get their text extracted; image
// formats carry no extractable text and complete with an empty report.
type PatternDetector struct{}

// NewPatternDetector returns a ready-to-use pattern detector.
func NewPatternDetector() PatternDetector {
	return PatternDetector{}
}

// Detect analyzes the stream and reports findings with a graded risk level.
func (PatternDetector) Detect(ctx context.Context, r io.Reader, contentType string) (Report, error) {
	if err := ctx.Err(); err != nil {
		return Report{}, err
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return Report{}, fmt.Errorf("read document: %w", err)
	}

	var text string
	switch normalizeContentType(contentType) {
	case "application/pdf":
		text, err = extractPDFText(data)
		if err != nil {
			return Report{}, fmt.Errorf("extract pdf text: %w", err)
		}
	case "text/plain":
		text = string(data)
	default:
		// jpeg/png: no OCR in the built-in detector.
		return Report{
			RiskLevel:  "low",
			Confidence: 1.0,
			Findings:   nil,
			Summary:    map[string]any{"analyzed": false, "reason": "no text content"},
		}, nil
	}

	findings := matchPatterns(text)
	return Report{
		RiskLevel:  gradeRisk(findings),
		Confidence: aggregateConfidence(findings),
		Findings:   findings,
		Summary: map[string]any{
			"analyzed":      true,
			"textLength":    len(text),
			"findingsCount": len(findings),
		},
	}, nil
}

func matchPatterns(text string) []Finding {
	var findings []Finding
	for _, rule := range patternRules {
		locs := rule.re.FindAllStringIndex(text, -1)
		if len(locs) == 0 {
			continue
		}
		findings = append(findings, Finding{
			Type:       rule.infoType,
			Confidence: rule.confidence,
			Location: map[string]any{
				"firstOffset": locs[0][0],
				"offsets":     flattenOffsets(locs),
			},
			Count: len(locs),
		})
	}
	return findings
}

func flattenOffsets(locs [][]int) []int {
	out := make([]int, 0, len(locs))
	for _, loc := range locs {
		out = append(out, loc[0])
	}
	return out
}

// gradeRisk ranks the overall report by its most severe category.
func gradeRisk(findings []Finding) string {
	if len(findings) == 0 {
		return "low"
	}
	severe := 0
	moderate := 0
	for _, f := range findings {
		switch f.Type {
		case "ssn", "credit_card", "passport":
			severe += f.Count
		default:
			moderate += f.Count
		}
	}
	switch {
	case severe > 3:
		return "critical"
	case severe > 0:
		return "high"
	case moderate > 5:
		return "medium"
	default:
		return "low"
	}
}

func aggregateConfidence(findings []Finding) float64 {
	if len(findings) == 0 {
		return 1.0
	}
	total := 0.0
	for _, f := range findings {
		total += f.Confidence
	}
	return total / float64(len(findings))
}

func extractPDFText(data []byte) (string, error) {
	reader := bytes.NewReader(data)
	pdfReader, err := pdf.NewReader(reader, int64(len(data)))
	if err != nil {
		return "", err
	}
	plain, err := pdfReader.GetPlainText()
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plain); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func normalizeContentType(raw string) string {
	return strings.ToLower(strings.TrimSpace(strings.Split(raw, ";")[0]))
}

var _ Detector = PatternDetector{}
