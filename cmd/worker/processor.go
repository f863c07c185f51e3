package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/aws/aws-lambda-go/events"

	"github.com/alialfonick-commits/loru/internal/addpipe"
)

// Processor consumes cleanup messages and deletes capture-service originals
// whose durable copies already exist. Deletion is best-effort: a failure is
// logged and the message is not retried, because the recording will expire
// on its own anyway.
type Processor struct {
	capture *addpipe.Client
}

// NewProcessor creates a worker processor around a capture-service client.
func NewProcessor(capture *addpipe.Client) *Processor {
	return &Processor{capture: capture}
}

// Handle receives an SQS batch event and processes each message.
func (p *Processor) Handle(ctx context.Context, ev events.SQSEvent) error {
	for _, rec := range ev.Records {
		if err := p.processMessage(ctx, rec); err != nil {
			// malformed messages go back for the DLQ; cleanup failures
			// never do
			log.Printf("worker error: %v", err)
			return err
		}
	}
	return nil
}

func (p *Processor) processMessage(ctx context.Context, rec events.SQSMessage) error {
	var msg CleanupMessage
	if err := json.Unmarshal([]byte(rec.Body), &msg); err != nil {
		return fmt.Errorf("invalid message body: %w", err)
	}
	if msg.VideoID == "" {
		return fmt.Errorf("cleanup message missing video_id: %s", rec.Body)
	}

	log.Printf("[worker] cleanup video=%s order=%s", msg.VideoID, msg.OrderID)

	if err := p.capture.Delete(ctx, msg.VideoID); err != nil {
		log.Printf("[worker] delete video=%s failed: %v", msg.VideoID, err)
		return nil
	}

	log.Printf("[worker] deleted video=%s", msg.VideoID)
	return nil
}
