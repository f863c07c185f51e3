package orders

import (
	"time"

	"github.com/alialfonick-commits/loru/internal/shopify"
)

// Order statuses. After "submitted" the value tracks the fulfillment
// partner's callback vocabulary verbatim, so unknown partner statuses are
// stored as-is.
const (
	StatusCreated    = "created"
	StatusSubmitted  = "submitted"
	StatusReceived   = "received"
	StatusPrintReady = "printready"
	StatusShipped    = "shipped"
	StatusError      = "error"
)

// LineItem is one normalized commerce line item. The video id, once
// resolved at ingestion, is never changed.
type LineItem struct {
	LineItemID   string `dynamodbav:"line_item_id"`
	Name         string `dynamodbav:"name,omitempty"`
	SKU          string `dynamodbav:"sku,omitempty"`
	Quantity     int    `dynamodbav:"quantity"`
	VideoID      string `dynamodbav:"video_id,omitempty"`
	StreamName   string `dynamodbav:"stream_name,omitempty"`
	SourceItemID string `dynamodbav:"source_item_id,omitempty"`
}

// MediaFile records one durable copy of a recording. Append-only:
// reprocessing appends a new entry rather than mutating an old one.
type MediaFile struct {
	LineItemID  string    `dynamodbav:"line_item_id"`
	VideoID     string    `dynamodbav:"video_id"`
	StreamName  string    `dynamodbav:"stream_name,omitempty"`
	URL         string    `dynamodbav:"uploaded_file_url"`
	ArtifactURL string    `dynamodbav:"qrcode_url,omitempty"`
	CreatedAt   time.Time `dynamodbav:"created_at"`
}

// FulfillmentRef links a line item to the partner order that prints it.
type FulfillmentRef struct {
	LineItemID    string    `dynamodbav:"line_item_id"`
	FulfillmentID string    `dynamodbav:"fulfillment_id,omitempty"`
	TrackingURL   string    `dynamodbav:"tracking_url,omitempty"`
	CreatedAt     time.Time `dynamodbav:"created_at"`
}

// StatusEvent is one partner callback, append-only.
type StatusEvent struct {
	Status     string    `dynamodbav:"status"`
	ReceivedAt time.Time `dynamodbav:"received_at"`
	Payload    string    `dynamodbav:"payload,omitempty"`
}

// ShipmentEvent records a tracking number from a partner callback.
type ShipmentEvent struct {
	TrackingNumber string    `dynamodbav:"tracking_number"`
	ReceivedAt     time.Time `dynamodbav:"received_at"`
	Payload        string    `dynamodbav:"payload,omitempty"`
}

// Order is the single document kept per commerce order. Looked up by
// order_id (PK), by the partner-echoed source_order_id, or by the
// storage-assigned doc_id as a last resort.
type Order struct {
	OrderID         string                  `dynamodbav:"order_id"` // PK
	DocID           string                  `dynamodbav:"doc_id"`   // storage-assigned, GSI
	SourceOrderID   string                  `dynamodbav:"source_order_id,omitempty"`
	Email           string                  `dynamodbav:"email,omitempty"`
	CustomerName    string                  `dynamodbav:"customer_name,omitempty"`
	ShippingAddress shopify.ShippingAddress `dynamodbav:"shipping_address"`
	RawPayload      string                  `dynamodbav:"raw_payload,omitempty"`
	LineItems       []LineItem              `dynamodbav:"line_items,omitempty"`
	Files           []MediaFile             `dynamodbav:"files,omitempty"`
	FulfillmentRefs []FulfillmentRef        `dynamodbav:"fulfillment_refs,omitempty"`
	Status          string                  `dynamodbav:"status"`
	StatusHistory   []StatusEvent           `dynamodbav:"status_history,omitempty"`
	Shipments       []ShipmentEvent         `dynamodbav:"shipments,omitempty"`
	CreatedAt       time.Time               `dynamodbav:"created_at"`
	UpdatedAt       time.Time               `dynamodbav:"updated_at"`
}

// LastStatus returns the most recently recorded callback status, or ""
// when no callback has been recorded yet.
func (o *Order) LastStatus() string {
	if len(o.StatusHistory) == 0 {
		return ""
	}
	return o.StatusHistory[len(o.StatusHistory)-1].Status
}
