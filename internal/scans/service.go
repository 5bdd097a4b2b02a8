package scans

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"protectedvision-backend/internal/documents"
	"protectedvision-backend/internal/queue"
	"protectedvision-backend/internal/shared/metrics"
	"protectedvision-backend/internal/shared/telemetry"
)

// Service contains business logic for scans. The detection work itself
// happens in the external worker; this service only owns the bookkeeping
// and the one API-reachable transition (failed -> pending).
type Service struct {
	Repo     Repo
	Docs     documents.DocumentsRepo
	JobQueue queue.Client
}

// Create records a pending scan for a document owned by the caller.
func (s *Service) Create(ctx context.Context, userID, documentID string) (Scan, error) {
	if userID == "" {
		return Scan{}, errors.New("user id required")
	}
	if documentID == "" {
		return Scan{}, ErrDocumentNotFound
	}

	scan := Scan{
		ID:         uuid.NewString(),
		DocumentID: documentID,
		Status:     StatusPending,
		ScanDate:   time.Now().UTC(),
	}

	if err := s.Repo.CreateForDocument(ctx, scan, userID); err != nil {
		return Scan{}, err
	}

	metrics.IncScanRequested()
	s.notify(ctx, scan.ID)
	return scan, nil
}

// Get returns a scan if its document belongs to the caller.
func (s *Service) Get(ctx context.Context, userID, scanID string) (Scan, error) {
	if userID == "" || scanID == "" {
		return Scan{}, ErrNotFound
	}
	return s.Repo.GetByID(ctx, userID, scanID)
}

// List returns scans whose documents belong to the caller.
func (s *Service) List(ctx context.Context, userID string, q ListQuery) ([]Scan, error) {
	if userID == "" {
		return []Scan{}, nil
	}
	return s.Repo.ListByUser(ctx, userID, q)
}

// ListForDocument resolves the document with the caller's visibility and
// returns all of its scans.
func (s *Service) ListForDocument(ctx context.Context, userID, documentID string) ([]Scan, error) {
	if _, err := s.Docs.GetByID(ctx, userID, documentID); err != nil {
		if errors.Is(err, documents.ErrNotFound) {
			return nil, ErrDocumentNotFound
		}
		return nil, err
	}
	return s.Repo.ListByDocument(ctx, documentID)
}

// Retry transitions a failed scan back to pending. Any other current
// status is ErrInvalidState; concurrent retries succeed at most once.
func (s *Service) Retry(ctx context.Context, userID, scanID string) (Scan, error) {
	if _, err := s.Repo.GetByID(ctx, userID, scanID); err != nil {
		return Scan{}, err
	}

	ok, err := s.Repo.TransitionRetry(ctx, scanID)
	if err != nil {
		return Scan{}, err
	}
	if !ok {
		return Scan{}, ErrInvalidState
	}

	metrics.IncScanRetried()
	s.notify(ctx, scanID)
	return s.Repo.GetByID(ctx, userID, scanID)
}

// ScansForDocument satisfies the documents package's ScanSource so scan
// summaries can be nested under a document detail response.
func (s *Service) ScansForDocument(ctx context.Context, documentID string) (any, error) {
	list, err := s.Repo.ListByDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}
	resp := make([]ScanResponse, 0, len(list))
	for _, scan := range list {
		resp = append(resp, toResponse(scan, true))
	}
	return resp, nil
}

// notify tells the worker queue about new pending work. Best-effort: the
// worker also discovers pending scans on its own, so a send failure only
// delays processing.
func (s *Service) notify(ctx context.Context, scanID string) {
	if s.JobQueue == nil {
		return
	}
	msg := queue.Message{
		ScanID:     scanID,
		EnqueuedAt: time.Now().UTC().Format(time.RFC3339),
		Version:    1,
	}
	if err := s.JobQueue.Send(ctx, msg); err != nil {
		telemetry.Error("scans.enqueue_failed", map[string]any{
			"scan_id": scanID,
			"error":   err.Error(),
		})
	}
}
