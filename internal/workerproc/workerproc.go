// Package workerproc drives the worker-owned side of the scan state
// machine: claim a pending scan, run the detector over the stored blob,
// and persist the completed or failed outcome.
package workerproc

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"path"
	"strings"
	"time"

	"protectedvision-backend/internal/detection"
	"protectedvision-backend/internal/documents"
	"protectedvision-backend/internal/queue"
	"protectedvision-backend/internal/scans"
	"protectedvision-backend/internal/shared/metrics"
	"protectedvision-backend/internal/shared/storage/object"
	"protectedvision-backend/internal/shared/telemetry"
)

// MessageMeta captures details useful for logging and diagnostics.
type MessageMeta struct {
	BodyLen int
	BodySHA string
}

// ComputeMeta returns the body length and SHA-256 hash.
func ComputeMeta(body string) MessageMeta {
	if body == "" {
		return MessageMeta{}
	}
	sum := sha256.Sum256([]byte(body))
	return MessageMeta{BodyLen: len(body), BodySHA: hex.EncodeToString(sum[:])}
}

// ErrEmptyBody indicates an empty queue payload.
type ErrEmptyBody struct {
	Meta MessageMeta
}

func (e ErrEmptyBody) Error() string { return "empty message body" }

// ErrDecode indicates a JSON decode failure.
type ErrDecode struct {
	Meta MessageMeta
	Err  error
}

func (e ErrDecode) Error() string {
	if e.Err == nil {
		return "decode message"
	}
	return "decode message: " + e.Err.Error()
}

// ErrMissingScanID indicates a message missing the scan id.
type ErrMissingScanID struct {
	Meta      MessageMeta
	RequestID string
}

func (e ErrMissingScanID) Error() string { return "missing scan id" }

// ErrProcess indicates processing failed after successful parsing.
type ErrProcess struct {
	ScanID    string
	RequestID string
	Err       error
}

func (e ErrProcess) Error() string {
	if e.Err == nil {
		return "process scan"
	}
	return "process scan: " + e.Err.Error()
}

func (e ErrProcess) Unwrap() error { return e.Err }

// ParseMessage validates and decodes the queue payload.
func ParseMessage(body string) (queue.Message, MessageMeta, error) {
	meta := ComputeMeta(body)
	if strings.TrimSpace(body) == "" {
		return queue.Message{}, meta, ErrEmptyBody{Meta: meta}
	}

	msg, err := queue.DecodeMessage([]byte(body))
	if err != nil {
		return queue.Message{}, meta, ErrDecode{Meta: meta, Err: err}
	}
	if strings.TrimSpace(msg.ScanID) == "" {
		return msg, meta, ErrMissingScanID{Meta: meta, RequestID: msg.RequestID}
	}
	return msg, meta, nil
}

// Processor executes one scan end to end.
type Processor struct {
	Repo     scans.Repo
	Docs     documents.DocumentsRepo
	Store    object.ObjectStore
	Detector detection.Detector
}

// ProcessScan claims a pending scan and records the detector's outcome.
// A scan that is no longer pending is left alone, which makes redelivered
// queue messages harmless.
func (p *Processor) ProcessScan(ctx context.Context, scanID string) error {
	scan, err := p.Repo.GetAnyByID(ctx, scanID)
	if err != nil {
		return err
	}

	claimed, err := p.Repo.MarkProcessing(ctx, scanID)
	if err != nil {
		return err
	}
	if !claimed {
		telemetry.Info("worker.scan.skipped", map[string]any{
			"scan_id": scanID,
			"status":  string(scan.Status),
		})
		return nil
	}

	start := time.Now()

	doc, err := p.Docs.GetAnyByID(ctx, scan.DocumentID)
	if err != nil {
		return p.fail(ctx, scanID, "document no longer exists", err)
	}

	body, err := p.Store.Open(ctx, doc.StorageKey)
	if err != nil {
		return p.fail(ctx, scanID, "unable to read stored document", err)
	}
	defer body.Close()

	report, err := p.Detector.Detect(ctx, body, doc.ContentType)
	if err != nil {
		return p.fail(ctx, scanID, "detection failed", err)
	}

	elapsed := time.Since(start)
	res := buildResult(report, elapsed)
	res.ProcessedFileKey = p.saveReport(ctx, scanID, report)
	if err := p.Repo.Complete(ctx, scanID, res); err != nil {
		return err
	}

	if err := p.Docs.MarkProcessed(ctx, doc.ID); err != nil && !errors.Is(err, documents.ErrNotFound) {
		telemetry.Error("worker.document.mark_processed_failed", map[string]any{
			"document_id": doc.ID,
			"error":       err.Error(),
		})
	}

	metrics.IncScanCompleted()
	metrics.ObserveScanDurationMs(float64(elapsed.Milliseconds()))
	telemetry.Info("worker.scan.completed", map[string]any{
		"scan_id":     scanID,
		"document_id": doc.ID,
		"risk_level":  res.RiskLevel,
		"findings":    len(res.Findings),
		"duration_ms": elapsed.Milliseconds(),
	})
	return nil
}

// saveReport stores the full detection report as a JSON artifact next to
// the original blob. Best-effort: a storage hiccup costs the artifact,
// not the scan.
func (p *Processor) saveReport(ctx context.Context, scanID string, report detection.Report) string {
	payload, err := json.Marshal(report)
	if err != nil {
		return ""
	}
	key := path.Join("processed", scanID+".json")
	if _, err := p.Store.SaveWithKey(ctx, key, "application/json", bytes.NewReader(payload)); err != nil {
		telemetry.Error("worker.scan.report_save_failed", map[string]any{
			"scan_id": scanID,
			"error":   err.Error(),
		})
		return ""
	}
	return key
}

func (p *Processor) fail(ctx context.Context, scanID, message string, cause error) error {
	if err := p.Repo.Fail(ctx, scanID, message); err != nil {
		return err
	}
	metrics.IncScanFailed()
	telemetry.Error("worker.scan.failed", map[string]any{
		"scan_id": scanID,
		"message": message,
		"error":   cause.Error(),
	})
	return nil
}

func buildResult(report detection.Report, elapsed time.Duration) scans.Result {
	risk, ok := scans.ParseRiskLevel(report.RiskLevel)
	if !ok {
		risk = scans.RiskLow
	}

	findings := make([]scans.SensitiveInformation, 0, len(report.Findings))
	for _, f := range report.Findings {
		findings = append(findings, scans.SensitiveInformation{
			Type:       scans.InfoType(f.Type),
			Confidence: f.Confidence,
			Location:   f.Location,
			Count:      f.Count,
		})
	}

	results := map[string]any{}
	for k, v := range report.Summary {
		results[k] = v
	}
	results["riskLevel"] = report.RiskLevel

	return scans.Result{
		RiskLevel:       risk,
		ConfidenceScore: report.Confidence,
		Results:         results,
		ProcessingTime:  elapsed.Seconds(),
		Findings:        findings,
	}
}

// HandleMessage parses, validates and processes one queue payload.
func HandleMessage(ctx context.Context, p *Processor, body string) error {
	if p == nil {
		return errors.New("scan processor not configured")
	}

	msg, _, err := ParseMessage(body)
	if err != nil {
		return err
	}

	if err := p.ProcessScan(ctx, msg.ScanID); err != nil {
		return ErrProcess{ScanID: msg.ScanID, RequestID: msg.RequestID, Err: err}
	}
	return nil
}
