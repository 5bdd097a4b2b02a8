package documents

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestPGRepoDeleteMissingDocument(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	repo := &PGRepo{DB: db}

	mock.ExpectExec("DELETE FROM documents").
		WithArgs("doc-1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := repo.Delete(context.Background(), "doc-1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoListByUserBuildsFilters(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	repo := &PGRepo{DB: db}
	ft := FileTypePDF
	processed := true

	mock.ExpectQuery("SELECT (.+) FROM documents").
		WithArgs("user-1", "pdf", true, "%tax%", 20, 0).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "user_id", "title", "description", "file_name", "content_type", "file_type",
			"size_bytes", "storage_provider", "storage_key", "processed", "upload_date", "created_at", "updated_at",
		}))

	_, err = repo.ListByUser(context.Background(), "user-1", ListQuery{
		FileType:  &ft,
		Processed: &processed,
		Search:    "tax",
		Limit:     20,
	})
	if err != nil {
		t.Fatalf("ListByUser: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}
