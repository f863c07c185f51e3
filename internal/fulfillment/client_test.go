package fulfillment

import (
	"context"
	"crypto/hmac"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alialfonick-commits/loru/internal/shopify"
)

func testAddress() shopify.ShippingAddress {
	return shopify.ShippingAddress{
		FirstName:   "Ada",
		LastName:    "Lovelace",
		Address1:    "1 Analytical Way",
		City:        "London",
		Zip:         "N1 9GU",
		CountryCode: "GB",
		Email:       "ada@example.com",
	}
}

func TestSubmit_BatchesItemsWithSuffixes(t *testing.T) {
	var calls int
	var got orderRequestBody
	var gotAuth, gotDate string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		gotAuth = r.Header.Get("x-oneflow-authorization")
		gotDate = r.Header.Get("x-oneflow-date")
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		fmt.Fprint(w, `{"_id":"pf-1","url":"https://partner.example/orders/pf-1"}`)
	}))
	defer srv.Close()

	c := NewClient(srv.Client(), "token-1", "secret-1")
	c.BaseURL = srv.URL
	fixed := time.Unix(1700000000, 0)
	c.nowFunc = func() time.Time { return fixed }

	items := []Item{
		{LineItemID: "11", Name: "Born To Be Loved", Quantity: 1, ArtifactURL: "https://b/q1.png"},
		{LineItemID: "22", Name: "Unmapped Product", Quantity: 2, ArtifactURL: "https://b/q2.png"},
		{LineItemID: "33", Name: "I Will Always Love You", Quantity: 1, ArtifactURL: "https://b/q3.png"},
	}

	res, err := c.Submit(context.Background(), items, testAddress(), "1042")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected exactly one partner request, got %d", calls)
	}
	if res.ID != "pf-1" || res.URL != "https://partner.example/orders/pf-1" {
		t.Fatalf("result: %+v", res)
	}
	if res.SourceOrderID != "Keepr_1042" {
		t.Fatalf("source order id: %s", res.SourceOrderID)
	}
	if got.OrderData.SourceOrderID != "Keepr_1042" {
		t.Fatalf("request source order id: %s", got.OrderData.SourceOrderID)
	}

	if len(got.OrderData.Items) != 3 {
		t.Fatalf("expected 3 sub-items, got %d", len(got.OrderData.Items))
	}
	for i, want := range []string{"11-A", "22-B", "33-C"} {
		if got.OrderData.Items[i].SourceItemID != want {
			t.Fatalf("item %d source id %q, want %q", i, got.OrderData.Items[i].SourceItemID, want)
		}
	}

	// mapped product carries its templates, unmapped degrades to empty paths
	if got.OrderData.Items[0].Components[0].Path == "" {
		t.Fatalf("mapped product should have a cover template")
	}
	if got.OrderData.Items[1].Components[0].Path != "" || got.OrderData.Items[1].Components[1].Path != "" {
		t.Fatalf("unmapped product should have empty template paths")
	}
	if got.OrderData.Items[1].Components[1].Attributes["keepr_qrcode"] != "https://b/q2.png" {
		t.Fatalf("artifact address missing from text component")
	}

	// shipment built from the shipping address
	if len(got.OrderData.Shipments) != 1 {
		t.Fatalf("expected 1 shipment")
	}
	ship := got.OrderData.Shipments[0]
	if ship.ShipTo.Name != "Ada Lovelace" || ship.ShipTo.IsoCountry != "GB" {
		t.Fatalf("ship to: %+v", ship.ShipTo)
	}
	if ship.Carrier["alias"] != "standard" {
		t.Fatalf("carrier: %+v", ship.Carrier)
	}

	// signature: HMAC-SHA1 over "POST /api/order <ts>"
	if gotDate != "1700000000" {
		t.Fatalf("date header: %s", gotDate)
	}
	mac := hmac.New(sha1.New, []byte("secret-1"))
	fmt.Fprintf(mac, "POST /api/order %d", fixed.Unix())
	wantAuth := "token-1:" + hex.EncodeToString(mac.Sum(nil))
	if gotAuth != wantAuth {
		t.Fatalf("auth header %q, want %q", gotAuth, wantAuth)
	}
}

func TestSubmit_SingleItemHasNoSuffix(t *testing.T) {
	var got orderRequestBody
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&got)
		fmt.Fprint(w, `{"id":"pf-2"}`)
	}))
	defer srv.Close()

	c := NewClient(srv.Client(), "t", "s")
	c.BaseURL = srv.URL

	res, err := c.Submit(context.Background(), []Item{{LineItemID: "77", Name: "Born To Be Loved", Quantity: 1}}, testAddress(), "7")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if got.OrderData.Items[0].SourceItemID != "77" {
		t.Fatalf("single-item source id must be unsuffixed, got %q", got.OrderData.Items[0].SourceItemID)
	}
	if res.ID != "pf-2" {
		t.Fatalf("id fallback to \"id\" field failed: %+v", res)
	}
}

func TestSubmit_RejectedOnNonSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		fmt.Fprint(w, `{"error":"bad sku"}`)
	}))
	defer srv.Close()

	c := NewClient(srv.Client(), "t", "s")
	c.BaseURL = srv.URL

	_, err := c.Submit(context.Background(), []Item{{LineItemID: "1"}}, testAddress(), "8")
	var rejected *RejectedError
	if !errors.As(err, &rejected) {
		t.Fatalf("expected RejectedError, got %v", err)
	}
	if rejected.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("status %d", rejected.StatusCode)
	}
}

func TestItemSuffix(t *testing.T) {
	if ItemSuffix(0, 1) != "" {
		t.Fatalf("single item must have empty suffix")
	}
	if ItemSuffix(0, 2) != "-A" || ItemSuffix(1, 2) != "-B" {
		t.Fatalf("unexpected suffixes: %q %q", ItemSuffix(0, 2), ItemSuffix(1, 2))
	}
}
