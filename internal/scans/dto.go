package scans

import "time"

// SensitiveInformationResponse is the outward-facing form of a finding.
type SensitiveInformationResponse struct {
	ID          string         `json:"id"`
	Type        InfoType       `json:"type"`
	TypeDisplay string         `json:"typeDisplay"`
	Confidence  float64        `json:"confidence"`
	Location    map[string]any `json:"location,omitempty"`
	Count       int            `json:"count"`
	Redacted    bool           `json:"redacted"`
}

// ScanResponse is the outward-facing representation of a scan.
type ScanResponse struct {
	ID                   string                         `json:"id"`
	DocumentID           string                         `json:"documentId"`
	Status               Status                         `json:"status"`
	RiskLevel            *RiskLevel                     `json:"riskLevel"`
	RiskLevelDisplay     string                         `json:"riskLevelDisplay,omitempty"`
	ProcessedFileKey     string                         `json:"processedFileKey,omitempty"`
	ProcessingTime       *float64                       `json:"processingTime"`
	ScanDate             time.Time                      `json:"scanDate"`
	Results              map[string]any                 `json:"results,omitempty"`
	ConfidenceScore      *float64                       `json:"confidenceScore"`
	ErrorMessage         string                         `json:"errorMessage,omitempty"`
	SensitiveInformation []SensitiveInformationResponse `json:"sensitiveInformation,omitempty"`
}

// toResponse builds the read model; findings are an opt-in expansion
// rather than a separate serializer.
func toResponse(scan Scan, includeFindings bool) ScanResponse {
	resp := ScanResponse{
		ID:               scan.ID,
		DocumentID:       scan.DocumentID,
		Status:           scan.Status,
		RiskLevel:        scan.RiskLevel,
		ProcessedFileKey: scan.ProcessedFileKey,
		ProcessingTime:   scan.ProcessingTime,
		ScanDate:         scan.ScanDate,
		Results:          scan.Results,
		ConfidenceScore:  scan.ConfidenceScore,
		ErrorMessage:     scan.ErrorMessage,
	}
	if scan.RiskLevel != nil {
		resp.RiskLevelDisplay = scan.RiskLevel.Display()
	}
	if includeFindings {
		resp.SensitiveInformation = make([]SensitiveInformationResponse, 0, len(scan.Findings))
		for _, f := range scan.Findings {
			resp.SensitiveInformation = append(resp.SensitiveInformation, SensitiveInformationResponse{
				ID:          f.ID,
				Type:        f.Type,
				TypeDisplay: f.Type.Display(),
				Confidence:  f.Confidence,
				Location:    f.Location,
				Count:       f.Count,
				Redacted:    f.Redacted,
			})
		}
	}
	return resp
}
