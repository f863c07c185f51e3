package shopify

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// FlexString decodes any JSON scalar into its string form. Storefront
// payloads are inconsistent about whether ids, quantities and property
// values arrive as numbers or strings.
type FlexString string

func (f *FlexString) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*f = FlexString(s)
		return nil
	}
	trimmed := string(bytes.TrimSpace(b))
	if trimmed == "null" {
		*f = ""
		return nil
	}
	*f = FlexString(trimmed)
	return nil
}

func (f FlexString) String() string { return string(f) }

// IntOr parses the value as an integer, returning def when it is absent or
// not numeric.
func (f FlexString) IntOr(def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(string(f)))
	if err != nil {
		return def
	}
	return n
}

// Property is one entry of a line item's property list. Two shapes occur in
// the wild: {name, value} and {first, last}.
type Property struct {
	Name  string     `json:"name"`
	Value FlexString `json:"value"`
	First string     `json:"first"`
	Last  FlexString `json:"last"`
}

// NoteAttribute is an order-level key/value pair (legacy media reference
// carrier for orders placed before per-item properties existed).
type NoteAttribute struct {
	Name  string     `json:"name"`
	Value FlexString `json:"value"`
}

type LineItem struct {
	ID         FlexString `json:"id"`
	Name       string     `json:"name"`
	Title      string     `json:"title"`
	SKU        string     `json:"sku"`
	Quantity   FlexString `json:"quantity"`
	Properties []Property `json:"properties"`
}

// DisplayName prefers the variant-qualified name over the bare title.
func (li LineItem) DisplayName() string {
	if li.Name != "" {
		return li.Name
	}
	return li.Title
}

// Qty returns the ordered quantity, never less than 1.
func (li LineItem) Qty() int {
	q := li.Quantity.IntOr(1)
	if q < 1 {
		return 1
	}
	return q
}

type Customer struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

type ShippingAddress struct {
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Address1    string `json:"address1"`
	Address2    string `json:"address2"`
	City        string `json:"city"`
	Zip         string `json:"zip"`
	Province    string `json:"province"`
	Country     string `json:"country"`
	CountryCode string `json:"country_code"`
	Phone       string `json:"phone"`
	Company     string `json:"company"`
	Email       string `json:"email"`
}

// Name returns the recipient name as "First Last", trimmed.
func (a ShippingAddress) Name() string {
	return strings.TrimSpace(a.FirstName + " " + a.LastName)
}

// OrderWebhook is the inbound commerce order payload. Only structurally
// required fields are validated; everything else is optional.
type OrderWebhook struct {
	ID              FlexString      `json:"id" validate:"required"`
	Email           string          `json:"email"`
	Name            string          `json:"name"`
	OrderNumber     FlexString      `json:"order_number"`
	CreatedAt       string          `json:"created_at"`
	Customer        *Customer       `json:"customer"`
	ShippingAddress ShippingAddress `json:"shipping_address"`
	LineItems       []LineItem      `json:"line_items"`
	NoteAttributes  []NoteAttribute `json:"note_attributes"`
}

// OrderID returns the order identifier as a string.
func (o *OrderWebhook) OrderID() string { return o.ID.String() }

// OrderNumber resolution: prefer order_number, then the display name with a
// leading '#' stripped, then the raw id.
func (o *OrderWebhook) Number() string {
	if s := o.OrderNumber.String(); s != "" {
		return s
	}
	if o.Name != "" {
		return strings.TrimPrefix(o.Name, "#")
	}
	return o.OrderID()
}

// CustomerName assembles "First Last" from the customer block, trimmed.
func (o *OrderWebhook) CustomerName() string {
	if o.Customer == nil {
		return ""
	}
	return strings.TrimSpace(o.Customer.FirstName + " " + o.Customer.LastName)
}
