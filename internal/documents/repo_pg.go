package documents

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// PGRepo implements DocumentsRepo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

const documentColumns = `id, user_id, title, description, file_name, content_type, file_type, size_bytes, storage_provider, storage_key, processed, upload_date, created_at, updated_at`

// Create inserts a new document.
func (r *PGRepo) Create(ctx context.Context, doc Document) error {
	const query = `
INSERT INTO documents (
    id,
    user_id,
    title,
    description,
    file_name,
    content_type,
    file_type,
    size_bytes,
    storage_provider,
    storage_key,
    processed,
    upload_date,
    created_at,
    updated_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

	storageProvider := doc.StorageProvider
	if storageProvider == "" {
		storageProvider = "local"
	}

	var storageKey sql.NullString
	if doc.StorageKey != "" {
		storageKey = sql.NullString{String: doc.StorageKey, Valid: true}
	}
	var description sql.NullString
	if doc.Description != "" {
		description = sql.NullString{String: doc.Description, Valid: true}
	}

	_, err := r.DB.ExecContext(
		ctx,
		query,
		doc.ID,
		doc.UserID,
		doc.Title,
		description,
		doc.FileName,
		doc.ContentType,
		string(doc.FileType),
		doc.SizeBytes,
		storageProvider,
		storageKey,
		doc.Processed,
		doc.UploadDate,
		doc.CreatedAt,
		doc.UpdatedAt,
	)
	return err
}

// GetByID fetches a document by ID for a user.
func (r *PGRepo) GetByID(ctx context.Context, userID, documentID string) (Document, error) {
	query := `
SELECT ` + documentColumns + `
FROM documents
WHERE user_id = $1 AND id = $2
LIMIT 1`
	return r.scanOne(r.DB.QueryRowContext(ctx, query, userID, documentID))
}

// GetAnyByID fetches a document by ID regardless of owner.
func (r *PGRepo) GetAnyByID(ctx context.Context, documentID string) (Document, error) {
	query := `
SELECT ` + documentColumns + `
FROM documents
WHERE id = $1
LIMIT 1`
	return r.scanOne(r.DB.QueryRowContext(ctx, query, documentID))
}

// ListByUser lists a user's documents honoring filters, search and ordering.
func (r *PGRepo) ListByUser(ctx context.Context, userID string, q ListQuery) ([]Document, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}

	where := []string{"user_id = $1"}
	args := []any{userID}
	if q.FileType != nil {
		args = append(args, string(*q.FileType))
		where = append(where, fmt.Sprintf("file_type = $%d", len(args)))
	}
	if q.Processed != nil {
		args = append(args, *q.Processed)
		where = append(where, fmt.Sprintf("processed = $%d", len(args)))
	}
	if q.Search != "" {
		args = append(args, "%"+q.Search+"%")
		where = append(where, fmt.Sprintf("title ILIKE $%d", len(args)))
	}

	orderColumn := "created_at"
	switch q.OrderBy {
	case "updated_at":
		orderColumn = "updated_at"
	case "title":
		orderColumn = "title"
	}
	direction := "DESC"
	if q.Ascending {
		direction = "ASC"
	}

	args = append(args, limit, offset)
	query := fmt.Sprintf(`
SELECT %s
FROM documents
WHERE %s
ORDER BY %s %s
LIMIT $%d OFFSET $%d`,
		documentColumns,
		strings.Join(where, " AND "),
		orderColumn,
		direction,
		len(args)-1,
		len(args),
	)

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Document
	for rows.Next() {
		doc, err := r.scanRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	return out, rows.Err()
}

// Delete removes a document. Scans and their findings go with it via
// ON DELETE CASCADE.
func (r *PGRepo) Delete(ctx context.Context, documentID string) error {
	const query = `DELETE FROM documents WHERE id = $1`
	res, err := r.DB.ExecContext(ctx, query, documentID)
	if err != nil {
		return err
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkProcessed flags a document as processed and bumps updated_at.
func (r *PGRepo) MarkProcessed(ctx context.Context, documentID string) error {
	const query = `
UPDATE documents
SET processed = TRUE, updated_at = NOW()
WHERE id = $1`
	_, err := r.DB.ExecContext(ctx, query, documentID)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *PGRepo) scanOne(row *sql.Row) (Document, error) {
	doc, err := r.scanRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Document{}, ErrNotFound
		}
		return Document{}, err
	}
	return doc, nil
}

func (r *PGRepo) scanRow(row rowScanner) (Document, error) {
	var doc Document
	var description sql.NullString
	var storageProvider sql.NullString
	var storageKey sql.NullString
	var fileType string
	if err := row.Scan(
		&doc.ID,
		&doc.UserID,
		&doc.Title,
		&description,
		&doc.FileName,
		&doc.ContentType,
		&fileType,
		&doc.SizeBytes,
		&storageProvider,
		&storageKey,
		&doc.Processed,
		&doc.UploadDate,
		&doc.CreatedAt,
		&doc.UpdatedAt,
	); err != nil {
		return Document{}, err
	}
	if description.Valid {
		doc.Description = description.String
	}
	if storageProvider.Valid {
		doc.StorageProvider = storageProvider.String
	}
	if storageKey.Valid {
		doc.StorageKey = storageKey.String
	}
	doc.FileType = FileType(fileType)
	return doc, nil
}

var _ DocumentsRepo = (*PGRepo)(nil)
