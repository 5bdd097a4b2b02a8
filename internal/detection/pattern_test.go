package detection

import (
	"context"
	"strings"
	"testing"
)

func TestPatternDetectorFindsSensitiveText(t *testing.T) {
	text := strings.Join([]string{
		"Contact: jane.doe@example.com",
		"SSN: 123-45-6789",
		"Call me at (555) 867-5309",
	}, "\n")

	report, err := NewPatternDetector().Detect(context.Background(), strings.NewReader(text), "text/plain")
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}

	byType := map[string]Finding{}
	for _, f := range report.Findings {
		byType[f.Type] = f
	}
	if _, ok := byType["email"]; !ok {
		t.Fatalf("expected email finding, got %+v", report.Findings)
	}
	ssn, ok := byType["ssn"]
	if !ok {
		t.Fatalf("expected ssn finding, got %+v", report.Findings)
	}
	if ssn.Count != 1 {
		t.Fatalf("expected 1 ssn match, got %d", ssn.Count)
	}
	if ssn.Confidence != 0.95 {
		t.Fatalf("expected ssn confidence 0.95, got %v", ssn.Confidence)
	}
	if report.RiskLevel != "high" {
		t.Fatalf("expected high risk with an ssn present, got %s", report.RiskLevel)
	}
	if report.Summary["analyzed"] != true {
		t.Fatalf("expected analyzed summary, got %v", report.Summary)
	}
}

func TestPatternDetectorGradesRisk(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{name: "clean text", text: "nothing to see here", want: "low"},
		{name: "single email", text: "a@b.com", want: "low"},
		{
			name: "many moderate findings",
			text: "a@b.com c@d.com e@f.com g@h.com i@j.com k@l.com",
			want: "medium",
		},
		{name: "one ssn", text: "123-45-6789", want: "high"},
		{
			name: "many severe findings",
			text: "111-11-1111 222-22-2222 333-33-3333 444-44-4444",
			want: "critical",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report, err := PatternDetector{}.Detect(context.Background(), strings.NewReader(tt.text), "text/plain")
			if err != nil {
				t.Fatalf("Detect: %v", err)
			}
			if report.RiskLevel != tt.want {
				t.Fatalf("expected %s, got %s (findings %+v)", tt.want, report.RiskLevel, report.Findings)
			}
		})
	}
}

func TestPatternDetectorSkipsImages(t *testing.T) {
	report, err := PatternDetector{}.Detect(context.Background(), strings.NewReader("binary-ish"), "image/png")
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if report.RiskLevel != "low" {
		t.Fatalf("expected low risk for image, got %s", report.RiskLevel)
	}
	if len(report.Findings) != 0 {
		t.Fatalf("expected no findings for image, got %d", len(report.Findings))
	}
	if report.Summary["analyzed"] != false {
		t.Fatalf("expected analyzed=false, got %v", report.Summary)
	}
}

func TestNormalizeContentType(t *testing.T) {
	if got := normalizeContentType("Application/PDF; charset=binary"); got != "application/pdf" {
		t.Fatalf("normalizeContentType: got %q", got)
	}
}
