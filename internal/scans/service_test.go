package scans

import (
	"context"
	"errors"
	"testing"
	"time"

	"protectedvision-backend/internal/documents"
)

func seedDocument(t *testing.T, docs *documents.MemoryRepo, userID string) documents.Document {
	t.Helper()
	now := time.Now().UTC()
	doc := documents.Document{
		ID:         "doc-" + userID,
		UserID:     userID,
		Title:      "seeded",
		FileName:   "seeded.png",
		FileType:   documents.FileTypePNG,
		UploadDate: now,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := docs.Create(context.Background(), doc); err != nil {
		t.Fatalf("seed document: %v", err)
	}
	return doc
}

func TestServiceRetryOnlyFromFailed(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		prepare func(t *testing.T, repo *MemoryRepo, scanID string)
		wantErr error
	}{
		{
			name:    "pending scan",
			prepare: func(t *testing.T, repo *MemoryRepo, scanID string) {},
			wantErr: ErrInvalidState,
		},
		{
			name: "processing scan",
			prepare: func(t *testing.T, repo *MemoryRepo, scanID string) {
				if _, err := repo.MarkProcessing(ctx, scanID); err != nil {
					t.Fatalf("mark processing: %v", err)
				}
			},
			wantErr: ErrInvalidState,
		},
		{
			name: "completed scan",
			prepare: func(t *testing.T, repo *MemoryRepo, scanID string) {
				if _, err := repo.MarkProcessing(ctx, scanID); err != nil {
					t.Fatalf("mark processing: %v", err)
				}
				if err := repo.Complete(ctx, scanID, Result{RiskLevel: RiskLow}); err != nil {
					t.Fatalf("complete: %v", err)
				}
			},
			wantErr: ErrInvalidState,
		},
		{
			name: "failed scan",
			prepare: func(t *testing.T, repo *MemoryRepo, scanID string) {
				if err := repo.Fail(ctx, scanID, "boom"); err != nil {
					t.Fatalf("fail: %v", err)
				}
			},
			wantErr: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			docs := documents.NewMemoryRepo()
			doc := seedDocument(t, docs, "user-1")
			repo := NewMemoryRepo(docs)
			svc := &Service{Repo: repo, Docs: docs}

			scan, err := svc.Create(ctx, "user-1", doc.ID)
			if err != nil {
				t.Fatalf("create scan: %v", err)
			}
			tt.prepare(t, repo, scan.ID)

			got, err := svc.Retry(ctx, "user-1", scan.ID)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("retry: %v", err)
			}
			if got.Status != StatusPending {
				t.Fatalf("expected pending after retry, got %s", got.Status)
			}
			if got.ErrorMessage != "" {
				t.Fatalf("expected cleared error message, got %q", got.ErrorMessage)
			}
		})
	}
}

func TestServiceRetryUnknownOrForeignScan(t *testing.T) {
	ctx := context.Background()
	docs := documents.NewMemoryRepo()
	doc := seedDocument(t, docs, "user-1")
	repo := NewMemoryRepo(docs)
	svc := &Service{Repo: repo, Docs: docs}

	scan, err := svc.Create(ctx, "user-1", doc.ID)
	if err != nil {
		t.Fatalf("create scan: %v", err)
	}
	if err := repo.Fail(ctx, scan.ID, "boom"); err != nil {
		t.Fatalf("fail: %v", err)
	}

	if _, err := svc.Retry(ctx, "user-1", "no-such-scan"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown scan, got %v", err)
	}
	// Another user's scan is indistinguishable from a missing one.
	if _, err := svc.Retry(ctx, "user-2", scan.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for foreign scan, got %v", err)
	}
}

func TestServiceCreateChecksDocumentOwnership(t *testing.T) {
	ctx := context.Background()
	docs := documents.NewMemoryRepo()
	doc := seedDocument(t, docs, "user-1")
	repo := NewMemoryRepo(docs)
	svc := &Service{Repo: repo, Docs: docs}

	if _, err := svc.Create(ctx, "user-2", doc.ID); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("expected ErrPermissionDenied, got %v", err)
	}
	if _, err := svc.Create(ctx, "user-1", "no-such-doc"); !errors.Is(err, ErrDocumentNotFound) {
		t.Fatalf("expected ErrDocumentNotFound, got %v", err)
	}
}

func TestServiceListForDocumentResolvesVisibility(t *testing.T) {
	ctx := context.Background()
	docs := documents.NewMemoryRepo()
	doc := seedDocument(t, docs, "user-1")
	repo := NewMemoryRepo(docs)
	svc := &Service{Repo: repo, Docs: docs}

	if _, err := svc.Create(ctx, "user-1", doc.ID); err != nil {
		t.Fatalf("create scan: %v", err)
	}

	list, err := svc.ListForDocument(ctx, "user-1", doc.ID)
	if err != nil {
		t.Fatalf("list for document: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("expected 1 scan, got %d", len(list))
	}

	if _, err := svc.ListForDocument(ctx, "user-2", doc.ID); !errors.Is(err, ErrDocumentNotFound) {
		t.Fatalf("expected ErrDocumentNotFound for foreign document, got %v", err)
	}
}

func TestMemoryRepoListByUserRiskFilter(t *testing.T) {
	ctx := context.Background()
	docs := documents.NewMemoryRepo()
	doc := seedDocument(t, docs, "user-1")
	repo := NewMemoryRepo(docs)

	first := Scan{ID: "scan-1", DocumentID: doc.ID, Status: StatusPending, ScanDate: time.Now().UTC().Add(-time.Hour)}
	second := Scan{ID: "scan-2", DocumentID: doc.ID, Status: StatusPending, ScanDate: time.Now().UTC()}
	for _, scan := range []Scan{first, second} {
		if err := repo.CreateForDocument(ctx, scan, "user-1"); err != nil {
			t.Fatalf("create: %v", err)
		}
	}
	if _, err := repo.MarkProcessing(ctx, "scan-2"); err != nil {
		t.Fatalf("mark processing: %v", err)
	}
	if err := repo.Complete(ctx, "scan-2", Result{RiskLevel: RiskHigh, ConfidenceScore: 0.9}); err != nil {
		t.Fatalf("complete: %v", err)
	}

	high := RiskHigh
	list, err := repo.ListByUser(ctx, "user-1", ListQuery{RiskLevel: &high, Limit: 10})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 || list[0].ID != "scan-2" {
		t.Fatalf("expected only scan-2, got %+v", list)
	}

	all, err := repo.ListByUser(ctx, "user-1", ListQuery{Limit: 10})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 2 || all[0].ID != "scan-2" {
		t.Fatalf("expected newest first, got %+v", all)
	}
}
