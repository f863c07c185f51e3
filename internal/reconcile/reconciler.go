package reconcile

import (
	"context"
	"log"
	"time"

	"github.com/alialfonick-commits/loru/internal/orders"
)

// Store is the order-store surface the reconciler needs.
type Store interface {
	Lookup
	ApplyCallback(ctx context.Context, orderID string, u orders.CallbackUpdate) error
}

// Reconciler matches partner callbacks onto order documents and applies
// their status and shipment updates.
type Reconciler struct {
	store   Store
	chain   Chain
	nowFunc func() time.Time
}

func NewReconciler(store Store) *Reconciler {
	return &Reconciler{
		store:   store,
		chain:   NewChain(store),
		nowFunc: time.Now,
	}
}

// Apply resolves the callback to an order and writes its updates. Returns
// the matched order id, or "" when no candidate resolved; an unmatched
// callback is not an error, since retrying it can never change the outcome.
func (r *Reconciler) Apply(ctx context.Context, cb *Callback) (string, error) {
	o, err := r.chain.Match(ctx, cb.Candidates)
	if err != nil {
		return "", err
	}
	if o == nil {
		log.Printf("[reconcile] no matching order for candidates %v (status %q)", cb.Candidates, cb.Status)
		return "", nil
	}

	now := r.nowFunc().UTC()
	update := orders.CallbackUpdate{Status: cb.Status}

	// a tracking-only callback carries no status; keep the order's current
	// one rather than overwriting it with the empty string
	if cb.Status == "" {
		update.Status = o.Status
	}

	// dedup on exact repeat of the status only; changed tracking metadata
	// alone does not warrant a history entry
	if cb.Status != "" && cb.Status != o.LastStatus() {
		update.Event = &orders.StatusEvent{
			Status:     cb.Status,
			ReceivedAt: now,
			Payload:    cb.Raw,
		}
	}
	if cb.TrackingNumber != "" {
		update.Shipment = &orders.ShipmentEvent{
			TrackingNumber: cb.TrackingNumber,
			ReceivedAt:     now,
			Payload:        cb.Raw,
		}
	}

	if err := r.store.ApplyCallback(ctx, o.OrderID, update); err != nil {
		return "", err
	}
	return o.OrderID, nil
}
