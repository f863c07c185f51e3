package main

// CleanupMessage is the payload sent from the ingest API -> SQS -> worker
// to delete an already-uploaded recording from the capture service.
type CleanupMessage struct {
	VideoID string `json:"video_id"`
	OrderID string `json:"order_id,omitempty"`
}
