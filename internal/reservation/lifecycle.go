// Package reservation runs the borrow lifecycle: confirm a cart into a
// pending reservation, pick it up, extend a borrowed item once, or cancel
// while still pending.
//
// Stock accounting is local. Confirm takes quantities off the cached
// catalog and Cancel puts them back; nothing is reserved on the backend, so
// two sessions can both reserve the last unit until the next catalog
// refresh shows the real count.
package reservation

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ariefcatur/toy-session-engine/internal/apperr"
	"github.com/ariefcatur/toy-session-engine/internal/cart"
	"github.com/ariefcatur/toy-session-engine/internal/events"
	"github.com/ariefcatur/toy-session-engine/internal/model"
	"github.com/ariefcatur/toy-session-engine/internal/saga"
	"github.com/ariefcatur/toy-session-engine/internal/store"
)

type Catalog interface {
	Product(id string) (model.Product, bool)
	Apply(ctx context.Context, changed []model.Product) error
}

type Cart interface {
	Clear(ctx context.Context) error
	Restore(ctx context.Context, lines []cart.Line) error
}

type Lifecycle struct {
	catalog Catalog
	cart    Cart
	kv      store.KV
	keys    store.Keys
	events  *events.Emitter
	log     *slog.Logger
	now     func() time.Time

	mu            sync.Mutex
	reservations  []Reservation // newest first
	totalBorrowed int
}

func NewLifecycle(catalog Catalog, c Cart, kv store.KV, keys store.Keys, em *events.Emitter, log *slog.Logger) *Lifecycle {
	if log == nil {
		log = slog.Default()
	}
	return &Lifecycle{catalog: catalog, cart: c, kv: kv, keys: keys, events: em, log: log, now: time.Now}
}

// WithClock replaces the time source; tests pin it.
func (l *Lifecycle) WithClock(now func() time.Time) *Lifecycle {
	l.now = now
	return l
}

func (l *Lifecycle) Load(ctx context.Context) error {
	var (
		rs    []Reservation
		total int
	)
	if _, err := store.Load(ctx, l.kv, l.keys.Reservations(), &rs); err != nil {
		return err
	}
	if _, err := store.Load(ctx, l.kv, l.keys.TotalBorrowed(), &total); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.reservations = rs
	l.totalBorrowed = total
	return nil
}

func (l *Lifecycle) List() []Reservation {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Reservation, 0, len(l.reservations))
	for _, r := range l.reservations {
		out = append(out, r.clone())
	}
	return out
}

func (l *Lifecycle) Get(id string) (Reservation, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if i := l.indexLocked(id); i >= 0 {
		return l.reservations[i].clone(), true
	}
	return Reservation{}, false
}

func (l *Lifecycle) TotalBorrowed() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.totalBorrowed
}

// Confirm turns the cart lines into a pending reservation. Stock drops by
// each line's quantity, floored at zero, and a product left with none shows
// as Reserved. Each item records how many units it actually took so Cancel
// gives back exactly that. The stock write, the reservation write and the cart clear
// succeed together or are all undone.
func (l *Lifecycle) Confirm(ctx context.Context, lines []cart.Line, plan Plan) (string, error) {
	if len(lines) == 0 {
		return "", apperr.Validation("cart is empty")
	}

	now := l.now().UTC()
	res := Reservation{
		ID:        uuid.NewString(),
		Status:    StatusPending,
		CreatedAt: now,
	}
	before := make([]model.Product, 0, len(lines))
	after := make([]model.Product, 0, len(lines))
	for _, ln := range lines {
		p, ok := l.catalog.Product(ln.ProductID)
		if !ok {
			return "", apperr.NotFound("product %s not found", ln.ProductID)
		}
		pe, ok := plan.lookup(ln.ProductID)
		if !ok || pe.PickupDate.IsZero() {
			return "", apperr.Validation("pickup date required for %s", p.Name)
		}
		if pe.Duration < 1 {
			return "", apperr.Validation("duration for %s must be at least one day", p.Name)
		}
		qty := ln.Quantity
		if qty < 1 {
			qty = 1
		}
		held := min(qty, max(0, p.Stock))
		res.Items = append(res.Items, Item{
			ProductID:  ln.ProductID,
			Quantity:   qty,
			Held:       held,
			PickupDate: pe.PickupDate,
			Duration:   pe.Duration,
			DueDate:    DueDate(pe.PickupDate, pe.Duration),
			Status:     ItemPending,
		})

		before = append(before, p)
		p.Stock = max(0, p.Stock-held)
		if p.Stock > 0 {
			p.Availability = model.Available
		} else {
			p.Availability = model.Reserved
		}
		after = append(after, p)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	prev := l.reservations
	next := append([]Reservation{res}, prev...)
	err := saga.NewOrchestrator(l.log,
		l.stockStep("reserve-stock", before, after),
		l.recordStep("record-reservation", prev, next),
		saga.Func{
			StepName: "clear-cart",
			Do:       l.cart.Clear,
			Undo:     func(ctx context.Context) error { return l.cart.Restore(ctx, lines) },
		},
	).Run(ctx)
	if err != nil {
		return "", err
	}

	items := make([]events.ItemQty, 0, len(res.Items))
	for _, it := range res.Items {
		items = append(items, events.ItemQty{ProductID: it.ProductID, Qty: it.Quantity})
	}
	l.events.Emit(ctx, events.EventReservationConfirmed, res.ID, events.ReservationConfirmedPayload{
		ReservationID: res.ID, Items: items,
	})
	l.log.InfoContext(ctx, "reservation confirmed", "reservation_id", res.ID, "items", len(res.Items))
	return res.ID, nil
}

// Pickup moves a pending reservation to picked-up and every item to
// borrowed. The products show as Borrowed and the borrowed counter grows by
// the number of items.
func (l *Lifecycle) Pickup(ctx context.Context, id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	i := l.indexLocked(id)
	if i < 0 {
		return apperr.NotFound("reservation %s not found", id)
	}
	res := l.reservations[i].clone()
	if !CanTransition(res.Status, StatusPickedUp) {
		return apperr.InvalidState("reservation %s already processed (%s)", id, res.Status)
	}

	now := l.now().UTC()
	res.Status = StatusPickedUp
	res.PickedAt = &now
	var before, after []model.Product
	for j := range res.Items {
		if !CanTransitionItem(res.Items[j].Status, ItemBorrowed) {
			return apperr.InvalidState("item %s is %s", res.Items[j].ProductID, res.Items[j].Status)
		}
		res.Items[j].Status = ItemBorrowed
		res.Items[j].BorrowedAt = &now
		if p, ok := l.catalog.Product(res.Items[j].ProductID); ok {
			before = append(before, p)
			p.Availability = model.Borrowed
			after = append(after, p)
		}
	}

	prev := l.reservations
	next := l.replaceLocked(i, res)
	prevTotal := l.totalBorrowed
	nextTotal := prevTotal + len(res.Items)

	err := saga.NewOrchestrator(l.log,
		l.recordStep("record-pickup", prev, next),
		l.stockStep("mark-borrowed", before, after),
		saga.Func{
			StepName: "count-borrowed",
			Do: func(ctx context.Context) error {
				if err := store.Save(ctx, l.kv, l.keys.TotalBorrowed(), nextTotal); err != nil {
					return err
				}
				l.totalBorrowed = nextTotal
				return nil
			},
		},
	).Run(ctx)
	if err != nil {
		return err
	}

	l.events.Emit(ctx, events.EventReservationPickedUp, id, events.ReservationPickedUpPayload{
		ReservationID: id, PickedAt: now, TotalBorrowed: nextTotal,
	})
	return nil
}

// Extend pushes one borrowed item's due date by ExtensionDays. Each item can
// be extended once, and not while another reservation holds the product.
func (l *Lifecycle) Extend(ctx context.Context, id, productID string) (time.Time, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	i := l.indexLocked(id)
	if i < 0 {
		return time.Time{}, apperr.NotFound("reservation %s not found", id)
	}
	res := l.reservations[i].clone()
	j := res.item(productID)
	if j < 0 {
		return time.Time{}, apperr.NotFound("product %s not in reservation %s", productID, id)
	}
	it := &res.Items[j]
	if it.Extended {
		return time.Time{}, apperr.InvalidState("extension already used for %s", productID)
	}
	if it.Status != ItemBorrowed {
		return time.Time{}, apperr.InvalidState("can only extend after pickup")
	}
	for k, other := range l.reservations {
		if k != i && other.Status.Active() && other.item(productID) >= 0 {
			return time.Time{}, apperr.InvalidState("cannot extend: reservation %s holds %s", other.ID, productID)
		}
	}

	it.Extended = true
	it.DueDate = DueDate(it.DueDate, ExtensionDays)
	due := it.DueDate

	next := l.replaceLocked(i, res)
	if err := l.saveLocked(ctx, next); err != nil {
		return time.Time{}, err
	}

	l.events.Emit(ctx, events.EventReservationExtended, id, events.ReservationExtendedPayload{
		ReservationID: id, ProductID: productID, DueDate: due,
	})
	return due, nil
}

// Cancel gives back the units a pending reservation took from stock and
// drops the record, so the same id can never restore stock twice.
func (l *Lifecycle) Cancel(ctx context.Context, id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	i := l.indexLocked(id)
	if i < 0 {
		return apperr.NotFound("reservation %s not found", id)
	}
	res := l.reservations[i]
	if !CanTransition(res.Status, StatusCancelled) {
		return apperr.InvalidState("only pending reservations can be cancelled (%s)", res.Status)
	}

	var before, after []model.Product
	restored := make([]events.ItemQty, 0, len(res.Items))
	for _, it := range res.Items {
		restored = append(restored, events.ItemQty{ProductID: it.ProductID, Qty: it.Held})
		p, ok := l.catalog.Product(it.ProductID)
		if !ok {
			// dropped from the catalog since; nothing to give back
			continue
		}
		before = append(before, p)
		p.Stock += it.Held
		p.Availability = model.Available
		after = append(after, p)
	}

	prev := l.reservations
	next := make([]Reservation, 0, len(prev)-1)
	next = append(next, prev[:i]...)
	next = append(next, prev[i+1:]...)

	err := saga.NewOrchestrator(l.log,
		l.stockStep("restore-stock", before, after),
		l.recordStep("drop-reservation", prev, next),
	).Run(ctx)
	if err != nil {
		return err
	}

	l.events.Emit(ctx, events.EventReservationCancelled, id, events.ReservationCancelledPayload{
		ReservationID: id, Restored: restored,
	})
	return nil
}

func (l *Lifecycle) stockStep(name string, before, after []model.Product) saga.Step {
	return saga.Func{
		StepName: name,
		Do:       func(ctx context.Context) error { return l.catalog.Apply(ctx, after) },
		Undo:     func(ctx context.Context) error { return l.catalog.Apply(ctx, before) },
	}
}

// recordStep persists next as the reservation list and restores prev on
// compensation. Callers hold l.mu.
func (l *Lifecycle) recordStep(name string, prev, next []Reservation) saga.Step {
	return saga.Func{
		StepName: name,
		Do:       func(ctx context.Context) error { return l.saveLocked(ctx, next) },
		Undo:     func(ctx context.Context) error { return l.saveLocked(ctx, prev) },
	}
}

func (l *Lifecycle) saveLocked(ctx context.Context, next []Reservation) error {
	if next == nil {
		next = []Reservation{}
	}
	if err := store.Save(ctx, l.kv, l.keys.Reservations(), next); err != nil {
		return err
	}
	l.reservations = next
	return nil
}

func (l *Lifecycle) replaceLocked(i int, r Reservation) []Reservation {
	next := append([]Reservation(nil), l.reservations...)
	next[i] = r
	return next
}

func (l *Lifecycle) indexLocked(id string) int {
	for i, r := range l.reservations {
		if r.ID == id {
			return i
		}
	}
	return -1
}
