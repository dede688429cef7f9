// Package order prices a cart, places it with the backend and serves order
// lookups and admin status changes.
package order

import (
	"context"
	"log/slog"
	"regexp"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/ariefcatur/toy-session-engine/internal/apperr"
	"github.com/ariefcatur/toy-session-engine/internal/cart"
	"github.com/ariefcatur/toy-session-engine/internal/events"
	"github.com/ariefcatur/toy-session-engine/internal/model"
)

type API interface {
	CreateOrder(ctx context.Context, d model.OrderDraft) (model.Order, error)
	ListOrders(ctx context.Context) ([]model.Order, error)
	GetOrder(ctx context.Context, orderID string) (model.Order, error)
	GetOrderByTrackingNumber(ctx context.Context, trackingNumber string) (model.Order, error)
	GetOrderTracking(ctx context.Context, orderID string) ([]model.TrackingEntry, error)
	UpdateOrderStatus(ctx context.Context, orderID string, status model.OrderStatus, notes, updatedBy string) (model.Order, error)
	ListGiftWraps(ctx context.Context) ([]model.GiftWrap, error)
}

type Catalog interface {
	Product(id string) (model.Product, bool)
	Refresh(ctx context.Context) error
}

type Cart interface {
	Clear(ctx context.Context) error
}

type Identity interface {
	Current() (model.User, bool)
}

// Placed is what a successful checkout hands back to the shopper.
type Placed struct {
	ID             string `json:"id"`
	TrackingNumber string `json:"trackingNumber"`
	Quote          Quote  `json:"quote"`
}

// Lookup is an order together with its tracking history.
type Lookup struct {
	Order    model.Order           `json:"order"`
	Tracking []model.TrackingEntry `json:"tracking"`
}

type Orchestrator struct {
	api     API
	catalog Catalog
	cart    Cart
	who     Identity
	pricing Pricing
	events  *events.Emitter
	log     *slog.Logger

	mu     sync.Mutex
	orders []model.Order // admin view, newest as served
}

func New(api API, catalog Catalog, c Cart, who Identity, pricing Pricing, em *events.Emitter, log *slog.Logger) *Orchestrator {
	if log == nil {
		log = slog.Default()
	}
	return &Orchestrator{api: api, catalog: catalog, cart: c, who: who, pricing: pricing, events: em, log: log}
}

// Quote prices lines against the cached catalog.
func (o *Orchestrator) Quote(ctx context.Context, lines []cart.Line, giftWrapID string) (Quote, error) {
	ls, err := o.orderLines(lines)
	if err != nil {
		return Quote{}, err
	}
	wrap, err := o.giftWrap(ctx, giftWrapID)
	if err != nil {
		return Quote{}, err
	}
	return o.pricing.Price(ls, wrap), nil
}

func (o *Orchestrator) orderLines(lines []cart.Line) ([]model.OrderLine, error) {
	if len(lines) == 0 {
		return nil, apperr.Validation("cart is empty")
	}
	out := make([]model.OrderLine, 0, len(lines))
	for _, l := range lines {
		p, ok := o.catalog.Product(l.ProductID)
		if !ok {
			return nil, apperr.Validation("product %s is no longer available", l.ProductID)
		}
		qty := l.Quantity
		if qty < 1 {
			qty = 1
		}
		out = append(out, model.OrderLine{Name: p.Name, Qty: qty, Image: p.Image, Price: p.Price, ProductID: p.ID})
	}
	return out, nil
}

func (o *Orchestrator) giftWrap(ctx context.Context, id string) (*model.GiftWrap, error) {
	if id == "" {
		return nil, nil
	}
	wraps, err := o.api.ListGiftWraps(ctx)
	if err != nil {
		return nil, err
	}
	for i := range wraps {
		if wraps[i].ID == id {
			return &wraps[i], nil
		}
	}
	return nil, apperr.Validation("unknown gift wrap %s", id)
}

// CreateOrder places lines for the signed in user. Everything that can be
// checked locally is checked before the backend is contacted; a rejected
// order leaves the cart as it was.
func (o *Orchestrator) CreateOrder(ctx context.Context, d model.Delivery, lines []cart.Line, giftWrapID string) (Placed, error) {
	u, ok := o.who.Current()
	if !ok {
		return Placed{}, apperr.AuthRequired("please log in to place an order")
	}
	if err := ValidateDelivery(d); err != nil {
		return Placed{}, err
	}
	d.PhoneNumber = NormalizePhone(d.PhoneNumber)
	ls, err := o.orderLines(lines)
	if err != nil {
		return Placed{}, err
	}
	wrap, err := o.giftWrap(ctx, giftWrapID)
	if err != nil {
		return Placed{}, err
	}
	q := o.pricing.Price(ls, wrap)

	created, err := o.api.CreateOrder(ctx, q.draft(u.ID, d))
	if err != nil {
		o.log.WarnContext(ctx, "order rejected", "user_id", u.ID, "err", err)
		return Placed{}, err
	}

	if err := o.cart.Clear(ctx); err != nil {
		o.log.ErrorContext(ctx, "clear cart after order", "order_id", created.ID, "err", err)
	}
	if err := o.catalog.Refresh(ctx); err != nil {
		o.log.WarnContext(ctx, "catalog refresh after order", "order_id", created.ID, "err", err)
	}

	o.events.Emit(ctx, events.EventOrderPlaced, created.ID, events.OrderPlacedPayload{
		OrderID:        created.ID,
		TrackingNumber: created.TrackingNumber,
		UserID:         u.ID,
		TotalPrice:     q.TotalPrice.StringFixed(2),
		Lines:          len(q.Lines),
	})
	o.log.InfoContext(ctx, "order placed", "order_id", created.ID, "tracking", created.TrackingNumber)
	return Placed{ID: created.ID, TrackingNumber: created.TrackingNumber, Quote: q}, nil
}

func (o *Orchestrator) GetOrderByID(ctx context.Context, id string) (model.Order, error) {
	return o.api.GetOrder(ctx, id)
}

func (o *Orchestrator) GetOrderByTrackingNumber(ctx context.Context, tn string) (model.Order, error) {
	return o.api.GetOrderByTrackingNumber(ctx, tn)
}

func (o *Orchestrator) GetOrderTracking(ctx context.Context, id string) ([]model.TrackingEntry, error) {
	return o.api.GetOrderTracking(ctx, id)
}

var objectIDPattern = regexp.MustCompile(`^[0-9a-fA-F]{24}$`)

// Lookup resolves identifier as an order id when it looks like one and as a
// tracking number otherwise.
func (o *Orchestrator) Lookup(ctx context.Context, identifier string) (Lookup, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return Lookup{}, apperr.Validation("order id or tracking number is required")
	}

	if !objectIDPattern.MatchString(identifier) {
		ord, err := o.api.GetOrderByTrackingNumber(ctx, identifier)
		if err != nil {
			return Lookup{}, err
		}
		tr, err := o.api.GetOrderTracking(ctx, ord.ID)
		if err != nil {
			return Lookup{}, err
		}
		return Lookup{Order: ord, Tracking: tr}, nil
	}

	var out Lookup
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		ord, err := o.api.GetOrder(gctx, identifier)
		out.Order = ord
		return err
	})
	g.Go(func() error {
		tr, err := o.api.GetOrderTracking(gctx, identifier)
		out.Tracking = tr
		return err
	})
	if err := g.Wait(); err != nil {
		return Lookup{}, err
	}
	return out, nil
}

func (o *Orchestrator) GiftWraps(ctx context.Context) ([]model.GiftWrap, error) {
	return o.api.ListGiftWraps(ctx)
}

func (o *Orchestrator) admin() (model.User, error) {
	u, ok := o.who.Current()
	if !ok || !u.IsAdmin() {
		return model.User{}, apperr.AuthRequired("admin access required")
	}
	return u, nil
}

// ListOrders fetches every order and keeps them as the admin view.
func (o *Orchestrator) ListOrders(ctx context.Context) ([]model.Order, error) {
	if _, err := o.admin(); err != nil {
		return nil, err
	}
	list, err := o.api.ListOrders(ctx)
	if err != nil {
		return nil, err
	}
	o.mu.Lock()
	o.orders = list
	o.mu.Unlock()
	return append([]model.Order(nil), list...), nil
}

// Orders is the admin view as last fetched or optimistically changed.
func (o *Orchestrator) Orders() []model.Order {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]model.Order(nil), o.orders...)
}

func (o *Orchestrator) UpdateOrderStatus(ctx context.Context, orderID string, status model.OrderStatus, notes string) (model.Order, error) {
	u, err := o.admin()
	if err != nil {
		return model.Order{}, err
	}
	if !status.Valid() {
		return model.Order{}, apperr.Validation("unknown order status %q", status)
	}
	return o.api.UpdateOrderStatus(ctx, orderID, status, notes, u.ID)
}
