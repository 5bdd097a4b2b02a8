package documents

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

// MemoryRepo is an in-memory implementation of DocumentsRepo.
type MemoryRepo struct {
	mu   sync.RWMutex
	byID map[string]Document
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{byID: make(map[string]Document)}
}

// Create stores a new document.
func (r *MemoryRepo) Create(ctx context.Context, doc Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[doc.ID] = doc
	return nil
}

// GetByID returns a document by ID if it belongs to the user.
func (r *MemoryRepo) GetByID(ctx context.Context, userID, documentID string) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	doc, ok := r.byID[documentID]
	if !ok || doc.UserID != userID {
		return Document{}, ErrNotFound
	}
	return doc, nil
}

// GetAnyByID returns a document by ID regardless of owner.
func (r *MemoryRepo) GetAnyByID(ctx context.Context, documentID string) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	doc, ok := r.byID[documentID]
	if !ok {
		return Document{}, ErrNotFound
	}
	return doc, nil
}

// ListByUser returns a user's documents honoring filters, search and ordering.
func (r *MemoryRepo) ListByUser(ctx context.Context, userID string, q ListQuery) ([]Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	docs := make([]Document, 0, len(r.byID))
	for _, doc := range r.byID {
		if doc.UserID != userID {
			continue
		}
		if q.FileType != nil && doc.FileType != *q.FileType {
			continue
		}
		if q.Processed != nil && doc.Processed != *q.Processed {
			continue
		}
		if q.Search != "" && !strings.Contains(strings.ToLower(doc.Title), strings.ToLower(q.Search)) {
			continue
		}
		docs = append(docs, doc)
	}
	r.mu.RUnlock()

	sort.Slice(docs, func(i, j int) bool {
		var less bool
		switch q.OrderBy {
		case "updated_at":
			less = docs[i].UpdatedAt.Before(docs[j].UpdatedAt)
		case "title":
			less = docs[i].Title < docs[j].Title
		default:
			less = docs[i].CreatedAt.Before(docs[j].CreatedAt)
		}
		if q.Ascending {
			return less
		}
		return !less
	})

	offset := q.Offset
	if offset < 0 {
		offset = 0
	}
	if offset >= len(docs) {
		return []Document{}, nil
	}
	end := len(docs)
	if q.Limit > 0 && offset+q.Limit < end {
		end = offset + q.Limit
	}
	return docs[offset:end], nil
}

// Delete removes a document.
func (r *MemoryRepo) Delete(ctx context.Context, documentID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[documentID]; !ok {
		return ErrNotFound
	}
	delete(r.byID, documentID)
	return nil
}

// MarkProcessed flags a document as processed and bumps updated_at.
func (r *MemoryRepo) MarkProcessed(ctx context.Context, documentID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.byID[documentID]
	if !ok {
		return ErrNotFound
	}
	doc.Processed = true
	doc.UpdatedAt = time.Now().UTC()
	r.byID[documentID] = doc
	return nil
}

var _ DocumentsRepo = (*MemoryRepo)(nil)
