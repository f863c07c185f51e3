package fulfillment

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/alialfonick-commits/loru/internal/shopify"
)

const (
	// DefaultBaseURL is the print partner's order API endpoint.
	DefaultBaseURL = "https://orders.oneflow.io"

	orderPath   = "/api/order"
	defaultSKU  = "keepr_hardback_210x210_staging"
	destination = "pureprint"
	carrier     = "standard"
)

// RejectedError is returned on any non-success response from the partner.
// Fatal for the whole batch; never retried automatically.
type RejectedError struct {
	StatusCode int
	Body       string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("fulfillment order rejected: status %d: %s", e.StatusCode, e.Body)
}

// Item is one fulfilled line item going into the batched partner order.
type Item struct {
	LineItemID  string
	Name        string
	Quantity    int
	ArtifactURL string // printable identifier placed on the interior's text component
}

// Result is the partner's answer to a successful submission.
type Result struct {
	ID            string
	URL           string
	SourceOrderID string
}

// Client builds, signs, and submits partner orders. One partner order per
// commerce order: the partner bills and ships per-order, so sibling line
// items must not fragment into separate shipments.
type Client struct {
	HTTP      *http.Client
	BaseURL   string
	Token     string
	Secret    string
	SKU       string
	Templates map[string]Templates

	nowFunc func() time.Time
}

func NewClient(httpClient *http.Client, token, secret string) *Client {
	return &Client{
		HTTP:      httpClient,
		BaseURL:   DefaultBaseURL,
		Token:     token,
		Secret:    secret,
		SKU:       defaultSKU,
		Templates: productTemplates,
		nowFunc:   time.Now,
	}
}

type componentBody struct {
	Code       string            `json:"code"`
	Fetch      bool              `json:"fetch"`
	Path       string            `json:"path,omitempty"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

type itemBody struct {
	SKU          string          `json:"sku"`
	Name         string          `json:"name"`
	SourceItemID string          `json:"sourceItemId"`
	Quantity     int             `json:"quantity"`
	Components   []componentBody `json:"components"`
}

type shipToBody struct {
	Name       string `json:"name"`
	Address1   string `json:"address1"`
	Address2   string `json:"address2"`
	Town       string `json:"town"`
	Postcode   string `json:"postcode"`
	IsoCountry string `json:"isoCountry"`
	Email      string `json:"email"`
}

type shipmentBody struct {
	ShipTo  shipToBody        `json:"shipTo"`
	Carrier map[string]string `json:"carrier"`
}

type orderDataBody struct {
	SourceOrderID string         `json:"sourceOrderId"`
	Items         []itemBody     `json:"items"`
	Shipments     []shipmentBody `json:"shipments"`
}

type orderRequestBody struct {
	Destination map[string]string `json:"destination"`
	OrderData   orderDataBody     `json:"orderData"`
}

type orderResponseBody struct {
	MongoID string `json:"_id"`
	ID      string `json:"id"`
	URL     string `json:"url"`
}

// ItemSuffix returns the per-item sourceItemId suffix: empty for single-item
// orders, "-A"/"-B"/... otherwise, so single-item ids stay stable.
func ItemSuffix(index, total int) string {
	if total <= 1 {
		return ""
	}
	return "-" + string(rune('A'+index))
}

// Submit sends one batched partner order covering all items and returns the
// partner's reference. Any non-2xx response is a *RejectedError.
func (c *Client) Submit(ctx context.Context, items []Item, addr shopify.ShippingAddress, orderNumber string) (*Result, error) {
	sourceOrderID := "Keepr_" + orderNumber

	reqItems := make([]itemBody, 0, len(items))
	for i, it := range items {
		name := it.Name
		if name == "" {
			name = "Keepr Book"
		}
		qty := it.Quantity
		if qty < 1 {
			qty = 1
		}

		// Unknown product names degrade to empty template paths rather
		// than blocking the rest of the order.
		tpl := c.Templates[it.Name]

		text := componentBody{
			Code:       "text",
			Fetch:      true,
			Path:       tpl.Interior,
			Attributes: map[string]string{"keepr_qrcode": it.ArtifactURL},
		}

		reqItems = append(reqItems, itemBody{
			SKU:          c.SKU,
			Name:         name,
			SourceItemID: it.LineItemID + ItemSuffix(i, len(items)),
			Quantity:     qty,
			Components: []componentBody{
				{Code: "cover", Fetch: true, Path: tpl.Cover},
				text,
			},
		})
	}

	body := orderRequestBody{
		Destination: map[string]string{"name": destination},
		OrderData: orderDataBody{
			SourceOrderID: sourceOrderID,
			Items:         reqItems,
			Shipments: []shipmentBody{
				{
					ShipTo: shipToBody{
						Name:       addr.Name(),
						Address1:   addr.Address1,
						Address2:   addr.Address2,
						Town:       addr.City,
						Postcode:   addr.Zip,
						IsoCountry: addr.CountryCode,
						Email:      addr.Email,
					},
					Carrier: map[string]string{"alias": carrier},
				},
			},
		},
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal order request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+orderPath, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	ts := c.nowFunc().Unix()
	req.Header.Set("x-oneflow-authorization", c.Token+":"+c.sign(http.MethodPost, orderPath, ts))
	req.Header.Set("x-oneflow-date", strconv.FormatInt(ts, 10))
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")

	res, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("submit order: %w", err)
	}
	defer res.Body.Close()

	resBody, _ := io.ReadAll(res.Body)
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return nil, &RejectedError{StatusCode: res.StatusCode, Body: string(resBody)}
	}

	var parsed orderResponseBody
	if err := json.Unmarshal(resBody, &parsed); err != nil {
		return nil, fmt.Errorf("decode partner response: %w", err)
	}

	id := parsed.MongoID
	if id == "" {
		id = parsed.ID
	}
	return &Result{ID: id, URL: parsed.URL, SourceOrderID: sourceOrderID}, nil
}

// sign computes the timestamped request signature the partner expects:
// HMAC-SHA1 over "<METHOD> <PATH> <unix_timestamp>", hex encoded.
func (c *Client) sign(method, path string, ts int64) string {
	mac := hmac.New(sha1.New, []byte(c.Secret))
	fmt.Fprintf(mac, "%s %s %d", method, path, ts)
	return hex.EncodeToString(mac.Sum(nil))
}
