package reconcile

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Historical field-name variants for each logical callback field, matched
// case-insensitively in order. All spellings the partner has ever sent live
// here and nowhere else.
var fieldAliases = map[string][]string{
	"status":          {"orderstatus", "status", "order_status"},
	"source_order_id": {"sourceorderid", "source_order_id"},
	"order_id":        {"orderid", "order_id"},
	"tracking_number": {"trackingnumber", "tracking_number"},
}

// Keys whose presence marks the "Order Submission Error" payload family,
// which arrives without a status field.
var submissionErrorKeys = []string{"errorsclean", "errors", "description"}

const partnerIDPrefix = "Keepr_"

// Callback is one parsed partner status event.
type Callback struct {
	Status         string // normalized
	RawStatus      string
	TrackingNumber string
	Candidates     []string // identifier candidates in precedence order
	Raw            string   // raw body, persisted with the event
}

// ParseCallback decodes a partner callback body and resolves its aliased
// fields. Returns an error only for malformed JSON.
func ParseCallback(raw []byte) (*Callback, error) {
	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("invalid callback payload: %w", err)
	}

	fields := lowerKeys(payload)

	rawStatus := lookupAlias(fields, "status")
	status := NormalizeStatus(rawStatus)
	if status == "" && hasAnyKey(fields, submissionErrorKeys) {
		status = "error"
	}

	cb := &Callback{
		Status:         status,
		RawStatus:      rawStatus,
		TrackingNumber: lookupAlias(fields, "tracking_number"),
		Raw:            string(raw),
	}

	addCandidate(cb, lookupAlias(fields, "source_order_id"))
	addCandidate(cb, lookupAlias(fields, "order_id"))
	addCandidate(cb, nestedSourceOrderID(fields))

	return cb, nil
}

// NormalizeStatus lower-cases and trims the raw status and collapses the
// "submission error" family to "error". Unrecognized statuses pass through
// verbatim; the partner's vocabulary may grow and unknown events must not be
// dropped.
func NormalizeStatus(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	if strings.Contains(s, "submission error") {
		return "error"
	}
	return s
}

// addCandidate appends a candidate identifier, and for partner-constructed
// ids of the form Keepr_<rest> also appends the stripped form, since the
// partner echoes our sourceOrderId back unmodified.
func addCandidate(cb *Callback, id string) {
	if id == "" {
		return
	}
	for _, existing := range cb.Candidates {
		if existing == id {
			return
		}
	}
	cb.Candidates = append(cb.Candidates, id)
	if rest, ok := strings.CutPrefix(id, partnerIDPrefix); ok && rest != "" {
		addCandidate(cb, rest)
	}
}

func lowerKeys(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[strings.ToLower(k)] = v
	}
	return out
}

func lookupAlias(fields map[string]any, logical string) string {
	for _, alias := range fieldAliases[logical] {
		if v, ok := fields[alias]; ok {
			if s := scalarString(v); s != "" {
				return s
			}
		}
	}
	return ""
}

func hasAnyKey(fields map[string]any, keys []string) bool {
	for _, k := range keys {
		if _, ok := fields[k]; ok {
			return true
		}
	}
	return false
}

// nestedSourceOrderID digs out data.orderData.sourceOrderId, which some
// partner payloads carry instead of a top-level field.
func nestedSourceOrderID(fields map[string]any) string {
	data, ok := fields["data"].(map[string]any)
	if !ok {
		return ""
	}
	orderData, ok := lowerKeys(data)["orderdata"].(map[string]any)
	if !ok {
		return ""
	}
	return lookupAlias(lowerKeys(orderData), "source_order_id")
}

func scalarString(v any) string {
	switch s := v.(type) {
	case string:
		return strings.TrimSpace(s)
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case json.Number:
		return s.String()
	default:
		return ""
	}
}
