package documents

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"protectedvision-backend/internal/shared/storage/object"
	"protectedvision-backend/internal/shared/telemetry"
)

// ScanPurger removes a document's scans. The Postgres repo relies on
// ON DELETE CASCADE instead, so this is only wired for in-memory stores.
type ScanPurger interface {
	DeleteByDocument(ctx context.Context, documentID string) error
}

// Service contains business logic for documents.
type Service struct {
	Store           object.ObjectStore
	Repo            DocumentsRepo
	StorageProvider string
	Scans           ScanPurger
}

// UploadInput carries the caller-supplied fields of an upload.
type UploadInput struct {
	Title       string
	Description string
	FileName    string
	Body        io.Reader
}

// Upload validates the file, saves it to object storage and records the document.
// Files over 10 MiB or outside pdf/jpeg/png are rejected and the blob is discarded.
func (s *Service) Upload(ctx context.Context, userID string, in UploadInput) (Document, error) {
	if userID == "" {
		return Document{}, errors.New("user id required")
	}
	if in.FileName == "" {
		return Document{}, fmt.Errorf("%w: file is required", ErrInvalidInput)
	}

	// One extra byte past the limit is enough to detect an oversized upload
	// without buffering the whole stream.
	limited := io.LimitReader(in.Body, MaxFileSizeBytes+1)
	storageKey, size, mimeType, err := s.Store.Save(ctx, userID, in.FileName, limited)
	if err != nil {
		return Document{}, err
	}

	if size > MaxFileSizeBytes {
		s.discard(ctx, storageKey)
		return Document{}, fmt.Errorf("%w: file size cannot exceed 10MB", ErrInvalidInput)
	}
	fileType, ok := FileTypeForContentType(mimeType)
	if !ok {
		s.discard(ctx, storageKey)
		return Document{}, fmt.Errorf("%w: only PDF, JPEG, and PNG files are allowed", ErrInvalidInput)
	}

	title := in.Title
	if title == "" {
		title = in.FileName
	}

	now := time.Now().UTC()
	doc := Document{
		ID:              uuid.NewString(),
		UserID:          userID,
		Title:           title,
		Description:     in.Description,
		FileName:        in.FileName,
		ContentType:     mimeType,
		FileType:        fileType,
		SizeBytes:       size,
		StorageProvider: s.StorageProvider,
		StorageKey:      storageKey,
		Processed:       false,
		UploadDate:      now,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := s.Repo.Create(ctx, doc); err != nil {
		s.discard(ctx, storageKey)
		return Document{}, err
	}

	return doc, nil
}

// Get returns a document if it exists and belongs to the user.
func (s *Service) Get(ctx context.Context, userID, documentID string) (Document, error) {
	if userID == "" || documentID == "" {
		return Document{}, ErrNotFound
	}
	return s.Repo.GetByID(ctx, userID, documentID)
}

// List returns the user's documents. An empty user ID yields an empty set.
func (s *Service) List(ctx context.Context, userID string, q ListQuery) ([]Document, error) {
	if userID == "" {
		return []Document{}, nil
	}
	return s.Repo.ListByUser(ctx, userID, q)
}

// Delete removes a document owned by the user along with its scans.
// A non-owner gets ErrPermissionDenied, not ErrNotFound: the attempt is
// visible, the action refused.
func (s *Service) Delete(ctx context.Context, userID, documentID string) error {
	doc, err := s.Repo.GetAnyByID(ctx, documentID)
	if err != nil {
		return err
	}
	if doc.UserID != userID {
		return ErrPermissionDenied
	}

	// The document row goes first so a racing scan create fails its
	// ownership lookup; the purge then sweeps any scan that landed
	// before the row went away.
	if err := s.Repo.Delete(ctx, documentID); err != nil {
		return err
	}
	if s.Scans != nil {
		if err := s.Scans.DeleteByDocument(ctx, documentID); err != nil {
			return err
		}
	}

	s.discard(ctx, doc.StorageKey)
	return nil
}

// MarkProcessed flags a document as processed after a completed scan.
func (s *Service) MarkProcessed(ctx context.Context, documentID string) error {
	if documentID == "" {
		return ErrNotFound
	}
	return s.Repo.MarkProcessed(ctx, documentID)
}

func (s *Service) discard(ctx context.Context, storageKey string) {
	if storageKey == "" {
		return
	}
	if err := s.Store.Delete(ctx, storageKey); err != nil {
		telemetry.Error("documents.blob_delete_failed", map[string]any{
			"storage_key": storageKey,
			"error":       err.Error(),
		})
	}
}
