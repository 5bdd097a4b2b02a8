package scans

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"protectedvision-backend/internal/documents"
)

// MemoryRepo stores scans in memory and is safe for concurrent use.
// Ownership checks resolve through the documents repo, mirroring the
// join the Postgres implementation performs.
type MemoryRepo struct {
	mu   sync.RWMutex
	byID map[string]Scan
	docs documents.DocumentsRepo
}

// NewMemoryRepo constructs a MemoryRepo backed by the given documents repo.
func NewMemoryRepo(docs documents.DocumentsRepo) *MemoryRepo {
	return &MemoryRepo{
		byID: make(map[string]Scan),
		docs: docs,
	}
}

// CreateForDocument verifies document ownership and stores the scan.
func (r *MemoryRepo) CreateForDocument(ctx context.Context, scan Scan, ownerID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	// The lock spans the ownership check and the insert so a concurrent
	// document delete cannot strand an orphan scan.
	r.mu.Lock()
	defer r.mu.Unlock()

	doc, err := r.docs.GetAnyByID(ctx, scan.DocumentID)
	if err != nil {
		if errors.Is(err, documents.ErrNotFound) {
			return ErrDocumentNotFound
		}
		return err
	}
	if doc.UserID != ownerID {
		return ErrPermissionDenied
	}

	r.byID[scan.ID] = scan
	return nil
}

// GetByID returns a scan if its document belongs to the user.
func (r *MemoryRepo) GetByID(ctx context.Context, userID, scanID string) (Scan, error) {
	if err := ctx.Err(); err != nil {
		return Scan{}, err
	}
	r.mu.RLock()
	scan, ok := r.byID[scanID]
	r.mu.RUnlock()
	if !ok {
		return Scan{}, ErrNotFound
	}
	doc, err := r.docs.GetAnyByID(ctx, scan.DocumentID)
	if err != nil || doc.UserID != userID {
		return Scan{}, ErrNotFound
	}
	return scan, nil
}

// ListByUser returns scans whose documents belong to the user.
func (r *MemoryRepo) ListByUser(ctx context.Context, userID string, q ListQuery) ([]Scan, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	all := make([]Scan, 0, len(r.byID))
	for _, scan := range r.byID {
		all = append(all, scan)
	}
	r.mu.RUnlock()

	out := make([]Scan, 0, len(all))
	for _, scan := range all {
		doc, err := r.docs.GetAnyByID(ctx, scan.DocumentID)
		if err != nil || doc.UserID != userID {
			continue
		}
		if q.RiskLevel != nil && (scan.RiskLevel == nil || *scan.RiskLevel != *q.RiskLevel) {
			continue
		}
		out = append(out, scan)
	}

	sort.Slice(out, func(i, j int) bool {
		if q.Ascending {
			return out[i].ScanDate.Before(out[j].ScanDate)
		}
		return out[i].ScanDate.After(out[j].ScanDate)
	})

	offset := q.Offset
	if offset < 0 {
		offset = 0
	}
	if offset >= len(out) {
		return []Scan{}, nil
	}
	end := len(out)
	if q.Limit > 0 && offset+q.Limit < end {
		end = offset + q.Limit
	}
	return out[offset:end], nil
}

// ListByDocument returns all scans for a document, newest first.
func (r *MemoryRepo) ListByDocument(ctx context.Context, documentID string) ([]Scan, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Scan, 0)
	for _, scan := range r.byID {
		if scan.DocumentID == documentID {
			out = append(out, scan)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ScanDate.After(out[j].ScanDate)
	})
	return out, nil
}

// TransitionRetry flips a failed scan back to pending.
func (r *MemoryRepo) TransitionRetry(ctx context.Context, scanID string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	scan, ok := r.byID[scanID]
	if !ok {
		return false, ErrNotFound
	}
	if scan.Status != StatusFailed {
		return false, nil
	}
	scan.Status = StatusPending
	scan.ErrorMessage = ""
	scan.StartedAt = nil
	scan.CompletedAt = nil
	r.byID[scanID] = scan
	return true, nil
}

// DeleteByDocument removes all scans for a document.
func (r *MemoryRepo) DeleteByDocument(ctx context.Context, documentID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, scan := range r.byID {
		if scan.DocumentID == documentID {
			delete(r.byID, id)
		}
	}
	return nil
}

// GetAnyByID returns a scan regardless of owner, for the worker.
func (r *MemoryRepo) GetAnyByID(ctx context.Context, scanID string) (Scan, error) {
	if err := ctx.Err(); err != nil {
		return Scan{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	scan, ok := r.byID[scanID]
	if !ok {
		return Scan{}, ErrNotFound
	}
	return scan, nil
}

// MarkProcessing claims a pending scan.
func (r *MemoryRepo) MarkProcessing(ctx context.Context, scanID string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	scan, ok := r.byID[scanID]
	if !ok {
		return false, ErrNotFound
	}
	if scan.Status != StatusPending {
		return false, nil
	}
	now := time.Now().UTC()
	scan.Status = StatusProcessing
	scan.StartedAt = &now
	r.byID[scanID] = scan
	return true, nil
}

// Complete records the worker's result for a scan.
func (r *MemoryRepo) Complete(ctx context.Context, scanID string, res Result) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	scan, ok := r.byID[scanID]
	if !ok {
		return ErrNotFound
	}
	now := time.Now().UTC()
	risk := res.RiskLevel
	confidence := res.ConfidenceScore
	processingTime := res.ProcessingTime
	scan.Status = StatusCompleted
	scan.RiskLevel = &risk
	scan.ConfidenceScore = &confidence
	scan.ProcessingTime = &processingTime
	scan.ProcessedFileKey = res.ProcessedFileKey
	scan.Results = res.Results
	scan.CompletedAt = &now
	scan.ErrorMessage = ""
	scan.Findings = append([]SensitiveInformation(nil), res.Findings...)
	for i := range scan.Findings {
		scan.Findings[i].ScanID = scanID
	}
	r.byID[scanID] = scan
	return nil
}

// Fail marks a scan as failed with the worker's error message.
func (r *MemoryRepo) Fail(ctx context.Context, scanID, message string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	scan, ok := r.byID[scanID]
	if !ok {
		return ErrNotFound
	}
	now := time.Now().UTC()
	scan.Status = StatusFailed
	scan.ErrorMessage = message
	scan.CompletedAt = &now
	r.byID[scanID] = scan
	return nil
}

// ListPending returns pending scans, oldest first.
func (r *MemoryRepo) ListPending(ctx context.Context, limit int) ([]Scan, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Scan, 0)
	for _, scan := range r.byID {
		if scan.Status == StatusPending {
			out = append(out, scan)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ScanDate.Before(out[j].ScanDate)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

var _ Repo = (*MemoryRepo)(nil)
