package order

import (
	"context"

	"github.com/ariefcatur/toy-session-engine/internal/apperr"
	"github.com/ariefcatur/toy-session-engine/internal/events"
	"github.com/ariefcatur/toy-session-engine/internal/model"
	"github.com/ariefcatur/toy-session-engine/internal/saga"
)

// ChangeStatus is the admin table's optimistic update. The local order shows
// the new status at once; if the backend refuses, the old status comes back
// and the list is re-fetched. The returned state says which happened.
func (o *Orchestrator) ChangeStatus(ctx context.Context, orderID string, status model.OrderStatus, notes string) (saga.State, error) {
	u, err := o.admin()
	if err != nil {
		return "", err
	}
	if !status.Valid() {
		return "", apperr.Validation("unknown order status %q", status)
	}

	o.mu.Lock()
	i := o.indexLocked(orderID)
	if i < 0 {
		o.mu.Unlock()
		return "", apperr.NotFound("order %s not found", orderID)
	}
	from := o.orders[i].Status
	o.mu.Unlock()

	cmd := &saga.Command{
		Name:  "order-status",
		Log:   o.log,
		Apply: func() { o.setStatus(orderID, status) },
		Commit: func(ctx context.Context) error {
			_, err := o.api.UpdateOrderStatus(ctx, orderID, status, notes, u.ID)
			return err
		},
		Revert: func() { o.setStatus(orderID, from) },
		Reconcile: func(ctx context.Context) error {
			list, err := o.api.ListOrders(ctx)
			if err != nil {
				return err
			}
			o.mu.Lock()
			o.orders = list
			o.mu.Unlock()
			return nil
		},
	}
	err = cmd.Run(ctx)

	o.events.Emit(ctx, events.EventOrderStatusChanged, orderID, events.OrderStatusChangedPayload{
		OrderID: orderID, From: string(from), To: string(status), Outcome: string(cmd.State()),
	})
	return cmd.State(), err
}

func (o *Orchestrator) setStatus(orderID string, s model.OrderStatus) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if i := o.indexLocked(orderID); i >= 0 {
		o.orders[i].Status = s
	}
}

func (o *Orchestrator) indexLocked(orderID string) int {
	for i := range o.orders {
		if o.orders[i].ID == orderID {
			return i
		}
	}
	return -1
}
