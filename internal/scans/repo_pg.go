package scans

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

const scanColumns = `id, document_id, status, risk_level, processed_file_key, processing_time, scan_date, results, confidence_score, error_message, started_at, completed_at`

// CreateForDocument inserts the scan inside a transaction that locks the
// parent document row, so a concurrent document delete cannot race the
// insert into an orphaned scan.
func (r *PGRepo) CreateForDocument(ctx context.Context, scan Scan, ownerID string) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var docOwner string
	err = tx.QueryRowContext(ctx, `SELECT user_id FROM documents WHERE id = $1 FOR UPDATE`, scan.DocumentID).Scan(&docOwner)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrDocumentNotFound
		}
		return err
	}
	if docOwner != ownerID {
		return ErrPermissionDenied
	}

	const query = `
INSERT INTO document_scans (
    id,
    document_id,
    status,
    scan_date
) VALUES ($1, $2, $3, $4)`
	if _, err := tx.ExecContext(ctx, query, scan.ID, scan.DocumentID, string(scan.Status), scan.ScanDate); err != nil {
		return err
	}

	return tx.Commit()
}

// GetByID returns a scan, with findings, if its document belongs to the user.
func (r *PGRepo) GetByID(ctx context.Context, userID, scanID string) (Scan, error) {
	const query = `
SELECT s.id, s.document_id, s.status, s.risk_level, s.processed_file_key, s.processing_time, s.scan_date, s.results, s.confidence_score, s.error_message, s.started_at, s.completed_at
FROM document_scans s
JOIN documents d ON d.id = s.document_id
WHERE s.id = $1 AND d.user_id = $2
LIMIT 1`
	scan, err := scanScanRow(r.DB.QueryRowContext(ctx, query, scanID, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Scan{}, ErrNotFound
		}
		return Scan{}, err
	}
	if err := r.attachFindings(ctx, &scan); err != nil {
		return Scan{}, err
	}
	return scan, nil
}

// ListByUser returns scans whose documents belong to the user.
func (r *PGRepo) ListByUser(ctx context.Context, userID string, q ListQuery) ([]Scan, error) {
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
	direction := "DESC"
	if q.Ascending {
		direction = "ASC"
	}

	query := `
SELECT s.id, s.document_id, s.status, s.risk_level, s.processed_file_key, s.processing_time, s.scan_date, s.results, s.confidence_score, s.error_message, s.started_at, s.completed_at
FROM document_scans s
JOIN documents d ON d.id = s.document_id
WHERE d.user_id = $1`
	args := []any{userID}
	if q.RiskLevel != nil {
		args = append(args, string(*q.RiskLevel))
		query += ` AND s.risk_level = $2`
	}
	query += ` ORDER BY s.scan_date ` + direction
	if q.RiskLevel != nil {
		query += ` LIMIT $3 OFFSET $4`
	} else {
		query += ` LIMIT $2 OFFSET $3`
	}
	args = append(args, limit, offset)

	return r.queryScans(ctx, query, args...)
}

// ListByDocument returns all scans for a document, newest first.
func (r *PGRepo) ListByDocument(ctx context.Context, documentID string) ([]Scan, error) {
	query := `
SELECT ` + scanColumns + `
FROM document_scans
WHERE document_id = $1
ORDER BY scan_date DESC`
	return r.queryScans(ctx, query, documentID)
}

// TransitionRetry flips failed->pending. The conditional update makes
// concurrent retries collapse to a single observable transition.
func (r *PGRepo) TransitionRetry(ctx context.Context, scanID string) (bool, error) {
	const query = `
UPDATE document_scans
SET status = 'pending', error_message = NULL, started_at = NULL, completed_at = NULL
WHERE id = $1 AND status = 'failed'`
	res, err := r.DB.ExecContext(ctx, query, scanID)
	if err != nil {
		return false, err
	}
	affected, _ := res.RowsAffected()
	if affected > 0 {
		return true, nil
	}

	var exists bool
	if err := r.DB.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM document_scans WHERE id = $1)`, scanID).Scan(&exists); err != nil {
		return false, err
	}
	if !exists {
		return false, ErrNotFound
	}
	return false, nil
}

// DeleteByDocument removes all scans for a document. Normally the FK
// cascade covers this; kept for parity with the in-memory repo.
func (r *PGRepo) DeleteByDocument(ctx context.Context, documentID string) error {
	_, err := r.DB.ExecContext(ctx, `DELETE FROM document_scans WHERE document_id = $1`, documentID)
	return err
}

// GetAnyByID returns a scan regardless of owner, for the worker.
func (r *PGRepo) GetAnyByID(ctx context.Context, scanID string) (Scan, error) {
	query := `
SELECT ` + scanColumns + `
FROM document_scans
WHERE id = $1
LIMIT 1`
	scan, err := scanScanRow(r.DB.QueryRowContext(ctx, query, scanID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Scan{}, ErrNotFound
		}
		return Scan{}, err
	}
	if err := r.attachFindings(ctx, &scan); err != nil {
		return Scan{}, err
	}
	return scan, nil
}

// MarkProcessing claims a pending scan for the worker.
func (r *PGRepo) MarkProcessing(ctx context.Context, scanID string) (bool, error) {
	const query = `
UPDATE document_scans
SET status = 'processing', started_at = NOW()
WHERE id = $1 AND status = 'pending'`
	res, err := r.DB.ExecContext(ctx, query, scanID)
	if err != nil {
		return false, err
	}
	affected, _ := res.RowsAffected()
	if affected > 0 {
		return true, nil
	}

	var exists bool
	if err := r.DB.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM document_scans WHERE id = $1)`, scanID).Scan(&exists); err != nil {
		return false, err
	}
	if !exists {
		return false, ErrNotFound
	}
	return false, nil
}

// Complete records the worker's result and replaces any prior findings.
func (r *PGRepo) Complete(ctx context.Context, scanID string, res Result) error {
	resultsPayload, err := marshalJSONB(res.Results)
	if err != nil {
		return err
	}

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	const update = `
UPDATE document_scans
SET status = 'completed',
    risk_level = $2,
    confidence_score = $3,
    results = $4,
    processing_time = $5,
    processed_file_key = $6,
    error_message = NULL,
    completed_at = NOW()
WHERE id = $1`
	var processedKey sql.NullString
	if res.ProcessedFileKey != "" {
		processedKey = sql.NullString{String: res.ProcessedFileKey, Valid: true}
	}
	out, err := tx.ExecContext(ctx, update, scanID, string(res.RiskLevel), res.ConfidenceScore, resultsPayload, res.ProcessingTime, processedKey)
	if err != nil {
		return err
	}
	if affected, _ := out.RowsAffected(); affected == 0 {
		return ErrNotFound
	}

	// Findings from a previous attempt are superseded wholesale.
	if _, err := tx.ExecContext(ctx, `DELETE FROM sensitive_information WHERE scan_id = $1`, scanID); err != nil {
		return err
	}

	const insertFinding = `
INSERT INTO sensitive_information (id, scan_id, info_type, confidence, location, count, redacted)
VALUES ($1, $2, $3, $4, $5, $6, $7)`
	for _, finding := range res.Findings {
		id := finding.ID
		if id == "" {
			id = uuid.NewString()
		}
		locationPayload, err := marshalJSONB(finding.Location)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, insertFinding, id, scanID, string(finding.Type), finding.Confidence, locationPayload, finding.Count, finding.Redacted); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// Fail marks a scan as failed with the worker's error message.
func (r *PGRepo) Fail(ctx context.Context, scanID, message string) error {
	const query = `
UPDATE document_scans
SET status = 'failed', error_message = $2, completed_at = NOW()
WHERE id = $1`
	res, err := r.DB.ExecContext(ctx, query, scanID, message)
	if err != nil {
		return err
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return ErrNotFound
	}
	return nil
}

// ListPending returns pending scans, oldest first.
func (r *PGRepo) ListPending(ctx context.Context, limit int) ([]Scan, error) {
	if limit <= 0 {
		limit = 10
	}
	query := `
SELECT ` + scanColumns + `
FROM document_scans
WHERE status = 'pending'
ORDER BY scan_date ASC
LIMIT $1`
	return r.queryScans(ctx, query, limit)
}

func (r *PGRepo) queryScans(ctx context.Context, query string, args ...any) ([]Scan, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Scan
	for rows.Next() {
		scan, err := scanScanRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, scan)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range out {
		if err := r.attachFindings(ctx, &out[i]); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (r *PGRepo) attachFindings(ctx context.Context, scan *Scan) error {
	const query = `
SELECT id, scan_id, info_type, confidence, location, count, redacted
FROM sensitive_information
WHERE scan_id = $1
ORDER BY seq ASC`
	rows, err := r.DB.QueryContext(ctx, query, scan.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	var findings []SensitiveInformation
	for rows.Next() {
		var f SensitiveInformation
		var infoType string
		var location sql.NullString
		if err := rows.Scan(&f.ID, &f.ScanID, &infoType, &f.Confidence, &location, &f.Count, &f.Redacted); err != nil {
			return err
		}
		f.Type = InfoType(infoType)
		if location.Valid {
			f.Location = map[string]any{}
			if err := json.Unmarshal([]byte(location.String), &f.Location); err != nil {
				f.Location = nil
			}
		}
		findings = append(findings, f)
	}
	if err := rows.Err(); err != nil {
		return err
	}
	scan.Findings = findings
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanScanRow(row rowScanner) (Scan, error) {
	var s Scan
	var status string
	var riskLevel sql.NullString
	var processedKey sql.NullString
	var processingTime sql.NullFloat64
	var results sql.NullString
	var confidence sql.NullFloat64
	var errorMessage sql.NullString
	var startedAt sql.NullTime
	var completedAt sql.NullTime
	if err := row.Scan(
		&s.ID,
		&s.DocumentID,
		&status,
		&riskLevel,
		&processedKey,
		&processingTime,
		&s.ScanDate,
		&results,
		&confidence,
		&errorMessage,
		&startedAt,
		&completedAt,
	); err != nil {
		return Scan{}, err
	}
	s.Status = Status(status)
	if riskLevel.Valid {
		risk := RiskLevel(riskLevel.String)
		s.RiskLevel = &risk
	}
	if processedKey.Valid {
		s.ProcessedFileKey = processedKey.String
	}
	if processingTime.Valid {
		s.ProcessingTime = &processingTime.Float64
	}
	if results.Valid {
		s.Results = map[string]any{}
		if err := json.Unmarshal([]byte(results.String), &s.Results); err != nil {
			s.Results = nil
		}
	}
	if confidence.Valid {
		s.ConfidenceScore = &confidence.Float64
	}
	if errorMessage.Valid {
		s.ErrorMessage = errorMessage.String
	}
	if startedAt.Valid {
		s.StartedAt = &startedAt.Time
	}
	if completedAt.Valid {
		s.CompletedAt = &completedAt.Time
	}
	return s, nil
}

func marshalJSONB(payload map[string]any) (any, error) {
	if payload == nil {
		return nil, nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return data, nil
}

var _ Repo = (*PGRepo)(nil)
