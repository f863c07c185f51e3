package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	ginadapter "github.com/awslabs/aws-lambda-go-api-proxy/gin"
	"github.com/gin-gonic/gin"

	"github.com/alialfonick-commits/loru/internal/aws"
	"github.com/alialfonick-commits/loru/internal/handlers"
)

func setupRouter(cfg handlers.HandlerConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	// health
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	handlers.RegisterOrderWebhook(r, cfg)
	handlers.RegisterStatusWebhook(r, cfg)

	return r
}

func main() {
	clients, err := aws.NewAWSClients(context.Background())

	if err != nil {
		log.Fatalf("failed to init aws clients: %v", err)
	}

	cfg := handlers.HandlerConfig{
		DynamoDBClient:     clients.DynamoDB,
		S3Client:           clients.S3,
		SQSClient:          clients.SQS,
		CloudWatchClient:   clients.CloudWatch,
		HTTPClient:         &http.Client{Timeout: 60 * time.Second},
		OrdersTable:        os.Getenv("ORDERS_TABLE"),
		Bucket:             os.Getenv("AWS_BUCKET_NAME"),
		Region:             aws.Region(),
		AddpipeAPIKey:      os.Getenv("ADDPIPE_API_KEY"),
		AddpipeBaseURL:     os.Getenv("ADDPIPE_BASE_URL"),
		FulfillmentToken:   os.Getenv("SITEFLOW_TOKEN"),
		FulfillmentSecret:  os.Getenv("SITEFLOW_SECRET"),
		FulfillmentBaseURL: os.Getenv("SITEFLOW_BASE_URL"),
		WebhookSecret:      os.Getenv("WEBHOOK_SECRET"),
		CleanupQueueURL:    os.Getenv("CLEANUP_QUEUE_URL"),
		MetricsNamespace:   "Keepr/Pipeline",
	}

	if cfg.OrdersTable == "" || cfg.Bucket == "" || cfg.AddpipeAPIKey == "" {
		log.Fatalf("missing required env vars: ORDERS_TABLE, AWS_BUCKET_NAME, ADDPIPE_API_KEY")
	}

	r := setupRouter(cfg)

	// if environment variable RUN_LOCAL is set to "true", run local HTTP server for development.
	if os.Getenv("RUN_LOCAL") == "true" {
		addr := ":8080"
		log.Printf("running local server on %s", addr)
		if err := r.Run(addr); err != nil {
			log.Fatalf("failed to run local server: %v", err)
		}
		return
	}

	// lambda adapter
	adapter := ginadapter.New(r)

	lambda.Start(func(ctx context.Context, req events.APIGatewayProxyRequest) (interface{}, error) {
		return adapter.ProxyWithContext(ctx, req)
	})
}
