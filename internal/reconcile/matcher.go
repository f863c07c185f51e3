package reconcile

import (
	"context"

	"github.com/google/uuid"

	"github.com/alialfonick-commits/loru/internal/orders"
)

// Lookup is the read side of the order store the matchers need.
type Lookup interface {
	GetByOrderID(ctx context.Context, orderID string) (*orders.Order, error)
	GetBySourceOrderID(ctx context.Context, sourceOrderID string) (*orders.Order, error)
	GetByDocID(ctx context.Context, docID string) (*orders.Order, error)
}

// Matcher is one identifier-resolution strategy. Implementations return
// (nil, nil) when no candidate resolves.
type Matcher interface {
	TryMatch(ctx context.Context, candidates []string) (*orders.Order, error)
}

// Chain runs matchers in precedence order; the first hit wins.
type Chain []Matcher

// NewChain builds the documented resolution order: partner-echoed source
// order id, then commerce order id, then storage-assigned document id.
func NewChain(store Lookup) Chain {
	return Chain{
		sourceOrderIDMatcher{store},
		orderIDMatcher{store},
		docIDMatcher{store},
	}
}

func (c Chain) Match(ctx context.Context, candidates []string) (*orders.Order, error) {
	for _, m := range c {
		o, err := m.TryMatch(ctx, candidates)
		if err != nil {
			return nil, err
		}
		if o != nil {
			return o, nil
		}
	}
	return nil, nil
}

type sourceOrderIDMatcher struct{ store Lookup }

func (m sourceOrderIDMatcher) TryMatch(ctx context.Context, candidates []string) (*orders.Order, error) {
	for _, c := range candidates {
		o, err := m.store.GetBySourceOrderID(ctx, c)
		if err != nil {
			return nil, err
		}
		if o != nil {
			return o, nil
		}
	}
	return nil, nil
}

type orderIDMatcher struct{ store Lookup }

func (m orderIDMatcher) TryMatch(ctx context.Context, candidates []string) (*orders.Order, error) {
	for _, c := range candidates {
		o, err := m.store.GetByOrderID(ctx, c)
		if err != nil {
			return nil, err
		}
		if o != nil {
			return o, nil
		}
	}
	return nil, nil
}

// docIDMatcher is the last resort: only candidates that are structurally
// valid storage identifiers are tried against the document id.
type docIDMatcher struct{ store Lookup }

func (m docIDMatcher) TryMatch(ctx context.Context, candidates []string) (*orders.Order, error) {
	for _, c := range candidates {
		if _, err := uuid.Parse(c); err != nil {
			continue
		}
		o, err := m.store.GetByDocID(ctx, c)
		if err != nil {
			return nil, err
		}
		if o != nil {
			return o, nil
		}
	}
	return nil, nil
}
