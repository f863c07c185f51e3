package shopify

import (
	"log"
	"strings"
)

// Property key prefixes searched for on each line item, in precedence order.
// The machine key wins over the human-entered fallback.
const (
	machineKeyPrefix  = "addpipe_video_id"
	friendlyKeyPrefix = "audio id"
	streamKeyPrefix   = "addpipe_stream"
)

// Legacy order-level note-attribute keys that historically carried the video
// id, in the order they were tried.
var legacyVideoKeys = []string{"addpipe_video_id", "addpipe_video", "addpipe_videoid"}

// ParsedItem is a line item with its property list flattened to a map and
// any capture-service media reference resolved.
type ParsedItem struct {
	Item       LineItem
	Props      map[string]string
	VideoID    string
	StreamName string
}

// Eligible reports whether the item carries a media reference and should go
// through the download/upload stage.
func (p ParsedItem) Eligible() bool { return p.VideoID != "" }

// propPair is one normalized property, keeping the payload's order so
// prefix lookups resolve the same key on every run.
type propPair struct {
	name  string
	value string
}

// propsToPairs flattens a property list, accepting both {name,value} and
// {first,last} shapes.
func propsToPairs(props []Property) []propPair {
	pairs := make([]propPair, 0, len(props))
	for _, p := range props {
		name := p.Name
		value := p.Value.String()
		if name == "" {
			name = p.First
			value = p.Last.String()
		}
		if name != "" {
			pairs = append(pairs, propPair{name: name, value: value})
		}
	}
	return pairs
}

func pairsToMap(pairs []propPair) map[string]string {
	m := make(map[string]string, len(pairs))
	for _, p := range pairs {
		m[p.name] = p.value
	}
	return m
}

// findByPrefix returns the value of the first property, in payload order,
// whose lower-cased key starts with prefix.
func findByPrefix(pairs []propPair, prefix string) (string, bool) {
	for _, p := range pairs {
		if strings.HasPrefix(strings.ToLower(p.name), prefix) {
			return p.value, true
		}
	}
	return "", false
}

// ExtractLineItems normalizes the order's line items and resolves their
// media references. If no item carries one, order-level note attributes are
// merged into the first item as a legacy fallback; ineligible items are
// retained so the caller can report them as skipped.
func ExtractLineItems(o *OrderWebhook) []ParsedItem {
	parsed := make([]ParsedItem, 0, len(o.LineItems))
	for _, li := range o.LineItems {
		pairs := propsToPairs(li.Properties)

		p := ParsedItem{Item: li, Props: pairsToMap(pairs)}
		if v, ok := findByPrefix(pairs, machineKeyPrefix); ok {
			p.VideoID = v
		} else if v, ok := findByPrefix(pairs, friendlyKeyPrefix); ok {
			p.VideoID = v
		}
		if v, ok := findByPrefix(pairs, streamKeyPrefix); ok {
			p.StreamName = v
		}
		parsed = append(parsed, p)
	}

	if !anyEligible(parsed) && len(o.NoteAttributes) > 0 && len(parsed) > 0 {
		attrs := make(map[string]string, len(o.NoteAttributes))
		for _, n := range o.NoteAttributes {
			if n.Name != "" {
				attrs[n.Name] = n.Value.String()
			}
		}
		if len(attrs) > 0 {
			log.Printf("[extract] order=%s no line-item media reference found, falling back to order-level note attributes for the first line item", o.OrderID())
			first := &parsed[0]
			for k, v := range attrs {
				first.Props[k] = v
			}
			for _, key := range legacyVideoKeys {
				if first.VideoID != "" {
					break
				}
				first.VideoID = attrs[key]
			}
			if first.StreamName == "" {
				first.StreamName = attrs["addpipe_stream"]
			}
		}
	}

	return parsed
}

func anyEligible(items []ParsedItem) bool {
	for _, p := range items {
		if p.Eligible() {
			return true
		}
	}
	return false
}
