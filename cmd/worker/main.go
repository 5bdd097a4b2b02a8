package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"

	"protectedvision-backend/internal/bootstrap"
	"protectedvision-backend/internal/shared/config"
	"protectedvision-backend/internal/shared/metrics"
	"protectedvision-backend/internal/shared/telemetry"
	"protectedvision-backend/internal/workerproc"
)

const (
	sqsRegion                 = "us-east-1"
	defaultVisibilitySeconds  = 1200
	defaultWorkerConcurrency  = 4
	defaultShutdownTimeoutSec = 30
	defaultPollIntervalSec    = 5
	defaultPollBatchSize      = 10
)

func main() {
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.Build(cfg)
	if err != nil {
		log.Fatalf("bootstrap build: %v", err)
	}

	queueURL := strings.TrimSpace(os.Getenv("PV_SQS_QUEUE_URL"))
	if queueURL == "" {
		log.Printf("PV_SQS_QUEUE_URL empty; polling database for pending scans")
		runDBPoller(ctx, app)
		return
	}

	visibilitySeconds := envInt("PV_SQS_VISIBILITY_TIMEOUT_SECONDS", defaultVisibilitySeconds)
	concurrency := envInt("PV_WORKER_CONCURRENCY", defaultWorkerConcurrency)
	shutdownTimeout := time.Duration(envInt("PV_SHUTDOWN_TIMEOUT_SECONDS", defaultShutdownTimeoutSec)) * time.Second

	region := strings.TrimSpace(os.Getenv("AWS_REGION"))
	if region == "" {
		region = sqsRegion
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		log.Fatalf("load aws config: %v", err)
	}
	var sqsClient sqsAPI = sqs.NewFromConfig(awsCfg)

	sem := make(chan struct{}, max(1, concurrency))
	var wg sync.WaitGroup

	log.Printf("worker started queue=%s concurrency=%d visibility=%ds", queueURL, concurrency, visibilitySeconds)

pollLoop:
	for {
		select {
		case <-ctx.Done():
			break pollLoop
		default:
		}

		resp, err := sqsClient.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
			QueueUrl:            aws.String(queueURL),
			MaxNumberOfMessages: 10,
			WaitTimeSeconds:     20,
			VisibilityTimeout:   int32(visibilitySeconds),
			AttributeNames:      []sqstypes.QueueAttributeName{sqstypes.QueueAttributeName("ApproximateReceiveCount")},
		})
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
				break pollLoop
			}
			log.Printf("receive message: %v", err)
			continue
		}

		for _, msg := range resp.Messages {
			select {
			case <-ctx.Done():
				break pollLoop
			case sem <- struct{}{}:
			}
			metrics.IncScanJobsReceived()
			wg.Add(1)
			go func(m sqstypes.Message) {
				defer wg.Done()
				defer func() { <-sem }()
				handleMessage(ctx, app, sqsClient, queueURL, m)
			}(msg)
		}
	}

	log.Printf("shutdown requested, waiting up to %s for in-flight jobs", shutdownTimeout)
	waitDone := make(chan struct{})
	go func() {
		wg.Wait()
		close(waitDone)
	}()
	select {
	case <-waitDone:
	case <-time.After(shutdownTimeout):
		log.Printf("shutdown timeout reached; exiting with in-flight jobs")
	}
}

type sqsAPI interface {
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
}

func handleMessage(ctx context.Context, app *bootstrap.App, client sqsAPI, queueURL string, msg sqstypes.Message) {
	body := aws.ToString(msg.Body)

	decoded, meta, err := workerproc.ParseMessage(body)
	if err != nil {
		fields := baseFields(msg, decoded.ScanID, decoded.RequestID)
		fields["body_len"] = meta.BodyLen
		if meta.BodySHA != "" {
			fields["body_sha256"] = meta.BodySHA
		}
		fields["error"] = err.Error()
		telemetry.Error("worker.scan.decode_failed", fields)
		if deleteMessage(ctx, client, queueURL, msg, decoded.ScanID, decoded.RequestID) {
			metrics.IncScanJobsDropped()
		}
		return
	}

	telemetry.Info("worker.scan.received", baseFields(msg, decoded.ScanID, decoded.RequestID))

	if err := app.ScanProcessor.ProcessScan(ctx, decoded.ScanID); err != nil {
		fields := baseFields(msg, decoded.ScanID, decoded.RequestID)
		fields["error"] = err.Error()
		telemetry.Error("worker.scan.process_failed", fields)
		return
	}

	if deleteMessage(ctx, client, queueURL, msg, decoded.ScanID, decoded.RequestID) {
		telemetry.Info("worker.scan.done", baseFields(msg, decoded.ScanID, decoded.RequestID))
	}
}

func deleteMessage(ctx context.Context, client sqsAPI, queueURL string, msg sqstypes.Message, scanID, requestID string) bool {
	receipt := aws.ToString(msg.ReceiptHandle)
	if receipt == "" {
		fields := baseFields(msg, scanID, requestID)
		fields["error"] = "missing receipt handle"
		telemetry.Error("worker.scan.delete_failed", fields)
		return false
	}
	if _, err := client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(queueURL),
		ReceiptHandle: aws.String(receipt),
	}); err != nil {
		fields := baseFields(msg, scanID, requestID)
		fields["error"] = err.Error()
		telemetry.Error("worker.scan.delete_failed", fields)
		return false
	}
	return true
}

// runDBPoller drives scans directly from the pending rows. Used in dev and
// in deployments without a queue.
func runDBPoller(ctx context.Context, app *bootstrap.App) {
	interval := time.Duration(envInt("PV_POLL_INTERVAL_SECONDS", defaultPollIntervalSec)) * time.Second
	batch := envInt("PV_POLL_BATCH_SIZE", defaultPollBatchSize)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		pending, err := app.ScansRepo.ListPending(ctx, batch)
		if err != nil {
			log.Printf("list pending scans: %v", err)
		}
		for _, scan := range pending {
			if ctx.Err() != nil {
				return
			}
			metrics.IncScanJobsReceived()
			if err := app.ScanProcessor.ProcessScan(ctx, scan.ID); err != nil {
				telemetry.Error("worker.scan.process_failed", map[string]any{
					"scan_id": scan.ID,
					"error":   err.Error(),
				})
			}
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func baseFields(msg sqstypes.Message, scanID, requestID string) map[string]any {
	fields := map[string]any{
		"scan_id":        scanID,
		"sqs_message_id": aws.ToString(msg.MessageId),
		"receive_count":  receiveCount(msg),
	}
	if strings.TrimSpace(requestID) != "" {
		fields["request_id"] = requestID
	}
	return fields
}

func receiveCount(msg sqstypes.Message) int {
	if msg.Attributes == nil {
		return 0
	}
	raw := msg.Attributes["ApproximateReceiveCount"]
	if raw == "" {
		return 0
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return parsed
}

func envInt(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return val
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
