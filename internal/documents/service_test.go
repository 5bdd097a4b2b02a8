package documents_test

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"protectedvision-backend/internal/documents"
	"protectedvision-backend/internal/scans"
	"protectedvision-backend/internal/shared/storage/object/local"
)

// racingPurger injects a scan create between the document-row delete and
// the scan purge, the interleaving where an orphan could survive.
type racingPurger struct {
	repo      *scans.MemoryRepo
	ownerID   string
	createErr error
}

func (p *racingPurger) DeleteByDocument(ctx context.Context, documentID string) error {
	scan := scans.Scan{
		ID:         "racing-scan",
		DocumentID: documentID,
		Status:     scans.StatusPending,
		ScanDate:   time.Now().UTC(),
	}
	p.createErr = p.repo.CreateForDocument(ctx, scan, p.ownerID)
	return p.repo.DeleteByDocument(ctx, documentID)
}

func TestDeleteLeavesNoOrphanScans(t *testing.T) {
	ctx := context.Background()

	docs := documents.NewMemoryRepo()
	scanRepo := scans.NewMemoryRepo(docs)
	purger := &racingPurger{repo: scanRepo, ownerID: "user-1"}

	svc := &documents.Service{
		Store:           local.New(t.TempDir()),
		Repo:            docs,
		StorageProvider: "local",
		Scans:           purger,
	}

	doc, err := svc.Upload(ctx, "user-1", documents.UploadInput{
		Title:    "tax form",
		FileName: "upload.png",
		Body:     bytes.NewReader(pngBytes),
	})
	if err != nil {
		t.Fatalf("upload: %v", err)
	}

	existing := scans.Scan{
		ID:         "scan-before-delete",
		DocumentID: doc.ID,
		Status:     scans.StatusPending,
		ScanDate:   time.Now().UTC(),
	}
	if err := scanRepo.CreateForDocument(ctx, existing, "user-1"); err != nil {
		t.Fatalf("create scan: %v", err)
	}

	if err := svc.Delete(ctx, "user-1", doc.ID); err != nil {
		t.Fatalf("delete document: %v", err)
	}

	// The create that raced the purge must have lost its document first.
	if !errors.Is(purger.createErr, scans.ErrDocumentNotFound) {
		t.Fatalf("expected racing create to fail with ErrDocumentNotFound, got %v", purger.createErr)
	}

	for _, scanID := range []string{"scan-before-delete", "racing-scan"} {
		if _, err := scanRepo.GetAnyByID(ctx, scanID); !errors.Is(err, scans.ErrNotFound) {
			t.Fatalf("scan %s survived document delete: %v", scanID, err)
		}
	}
	pending, err := scanRepo.ListPending(ctx, 10)
	if err != nil {
		t.Fatalf("list pending: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("expected no pending scans after delete, got %d", len(pending))
	}
}
