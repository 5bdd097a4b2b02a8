package scans

import "context"

// ListQuery narrows and orders a user's scan listing.
type ListQuery struct {
	RiskLevel *RiskLevel
	Ascending bool // default is newest scan_date first
	Limit     int
	Offset    int
}

// Repo defines persistence operations for scans. Owner-facing reads are
// scoped through the scan's document owner; the worker-facing methods
// (GetAnyByID, MarkProcessing, Complete, Fail, ListPending) are unscoped
// because the detection worker is trusted.
type Repo interface {
	// CreateForDocument inserts the scan after verifying, atomically with
	// the insert, that the document exists and belongs to ownerID. It
	// returns ErrDocumentNotFound or ErrPermissionDenied otherwise.
	CreateForDocument(ctx context.Context, scan Scan, ownerID string) error
	GetByID(ctx context.Context, userID, scanID string) (Scan, error)
	ListByUser(ctx context.Context, userID string, q ListQuery) ([]Scan, error)
	ListByDocument(ctx context.Context, documentID string) ([]Scan, error)
	// TransitionRetry flips failed->pending and reports whether this call
	// performed the transition. Concurrent retries observe at most one true.
	TransitionRetry(ctx context.Context, scanID string) (bool, error)
	DeleteByDocument(ctx context.Context, documentID string) error

	GetAnyByID(ctx context.Context, scanID string) (Scan, error)
	// MarkProcessing claims a pending scan for the worker; it reports false
	// when the scan was not pending (already claimed or finished).
	MarkProcessing(ctx context.Context, scanID string) (bool, error)
	Complete(ctx context.Context, scanID string, res Result) error
	Fail(ctx context.Context, scanID, message string) error
	ListPending(ctx context.Context, limit int) ([]Scan, error)
}
