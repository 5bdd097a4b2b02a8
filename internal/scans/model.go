package scans

import "time"

// Status is the closed set of scan lifecycle states.
//
//	pending --(worker starts)--> processing
//	processing --(worker succeeds)--> completed
//	processing --(worker fails)--> failed
//	failed --(owner retries)--> pending
//
// Only the failed->pending transition is reachable from the API surface;
// everything else belongs to the detection worker.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// ParseStatus validates a raw status value.
func ParseStatus(raw string) (Status, bool) {
	switch Status(raw) {
	case StatusPending, StatusProcessing, StatusCompleted, StatusFailed:
		return Status(raw), true
	}
	return "", false
}

// RiskLevel grades the overall sensitivity of a completed scan.
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

// ParseRiskLevel validates a raw risk level value.
func ParseRiskLevel(raw string) (RiskLevel, bool) {
	switch RiskLevel(raw) {
	case RiskLow, RiskMedium, RiskHigh, RiskCritical:
		return RiskLevel(raw), true
	}
	return "", false
}

// Display returns the human-readable label for the risk level.
func (r RiskLevel) Display() string {
	switch r {
	case RiskLow:
		return "Low Risk"
	case RiskMedium:
		return "Medium Risk"
	case RiskHigh:
		return "High Risk"
	case RiskCritical:
		return "Critical Risk"
	}
	return string(r)
}

// InfoType categorizes a detected piece of sensitive information.
type InfoType string

const (
	InfoEmail      InfoType = "email"
	InfoPhone      InfoType = "phone"
	InfoSSN        InfoType = "ssn"
	InfoCreditCard InfoType = "credit_card"
	InfoAddress    InfoType = "address"
	InfoName       InfoType = "name"
	InfoDOB        InfoType = "date_of_birth"
	InfoPassport   InfoType = "passport"
)

// Display returns the human-readable label for the category code.
func (t InfoType) Display() string {
	switch t {
	case InfoEmail:
		return "Email Address"
	case InfoPhone:
		return "Phone Number"
	case InfoSSN:
		return "Social Security Number"
	case InfoCreditCard:
		return "Credit Card Number"
	case InfoAddress:
		return "Physical Address"
	case InfoName:
		return "Personal Name"
	case InfoDOB:
		return "Date of Birth"
	case InfoPassport:
		return "Passport Number"
	}
	return string(t)
}

// SensitiveInformation is one detected instance of a sensitive-data
// category within a scan. Rows are written only by the detection worker.
type SensitiveInformation struct {
	ID         string
	ScanID     string
	Type       InfoType
	Confidence float64
	Location   map[string]any
	Count      int
	Redacted   bool
}

// Scan is one attempt to analyze a document for sensitive content.
// Its effective owner is the owner of its document.
type Scan struct {
	ID               string
	DocumentID       string
	Status           Status
	RiskLevel        *RiskLevel
	ProcessedFileKey string
	ProcessingTime   *float64 // seconds
	ScanDate         time.Time
	Results          map[string]any
	ConfidenceScore  *float64
	ErrorMessage     string
	StartedAt        *time.Time
	CompletedAt      *time.Time
	Findings         []SensitiveInformation
}

// Result carries everything the worker reports for a finished scan.
type Result struct {
	RiskLevel        RiskLevel
	ConfidenceScore  float64
	Results          map[string]any
	ProcessingTime   float64
	ProcessedFileKey string
	Findings         []SensitiveInformation
}
