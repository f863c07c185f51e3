package handlers

import (
	"net/http"
	"time"

	"github.com/alialfonick-commits/loru/internal/aws"
)

// HandlerConfig groups dependencies for the webhook routes. Clients are
// process-wide singletons constructed once at startup and injected here;
// handlers never build their own.
type HandlerConfig struct {
	DynamoDBClient   aws.DynamoDBAPI
	S3Client         aws.S3API
	SQSClient        aws.SQSAPI
	CloudWatchClient aws.CloudWatchAPI
	HTTPClient       *http.Client

	OrdersTable string
	Bucket      string
	Region      string

	AddpipeAPIKey  string
	AddpipeBaseURL string // optional override, defaults to the public API

	FulfillmentToken   string
	FulfillmentSecret  string
	FulfillmentBaseURL string // optional override

	// WebhookSecret verifies fulfillment-status callbacks. Empty disables
	// verification.
	WebhookSecret string

	// CleanupQueueURL, when set, routes capture-media deletion through SQS
	// to the worker; otherwise deletion runs in a detached goroutine.
	CleanupQueueURL string

	MetricsNamespace string

	// Download retry policy overrides; zero values keep the defaults
	// (5 attempts, 2s base delay).
	DownloadRetries   int
	DownloadBaseDelay time.Duration
}
