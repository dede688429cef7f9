// Package engine assembles one shopper session out of the components and
// restores it from the store.
package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/ariefcatur/toy-session-engine/internal/backend"
	"github.com/ariefcatur/toy-session-engine/internal/cart"
	"github.com/ariefcatur/toy-session-engine/internal/catalog"
	"github.com/ariefcatur/toy-session-engine/internal/events"
	"github.com/ariefcatur/toy-session-engine/internal/model"
	"github.com/ariefcatur/toy-session-engine/internal/order"
	"github.com/ariefcatur/toy-session-engine/internal/reservation"
	"github.com/ariefcatur/toy-session-engine/internal/review"
	"github.com/ariefcatur/toy-session-engine/internal/session"
	"github.com/ariefcatur/toy-session-engine/internal/store"
	"github.com/ariefcatur/toy-session-engine/internal/wishlist"
)

// CatalogMaxAge is how old the cached catalog may be at startup before it is
// fetched again.
const CatalogMaxAge = 15 * time.Minute

type Deps struct {
	Backend   *backend.Client
	Store     store.KV
	Namespace string
	Publisher events.Publisher // nil disables events
	Producer  string
	Pricing   order.Pricing
	Log       *slog.Logger
}

type Engine struct {
	Catalog      *catalog.Cache
	Cart         *cart.Manager
	Reservations *reservation.Lifecycle
	Wishlist     *wishlist.Syncer
	Session      *session.Session
	Orders       *order.Orchestrator
	Reviews      *review.Service

	log *slog.Logger
}

func New(d Deps) *Engine {
	log := d.Log
	if log == nil {
		log = slog.Default()
	}
	keys := store.Keys{Namespace: d.Namespace}
	var em *events.Emitter
	if d.Publisher != nil {
		em = &events.Emitter{Pub: d.Publisher, Producer: d.Producer, Log: log}
	}

	cat := catalog.New(d.Backend, d.Store, keys, log.With("component", "catalog"))
	c := cart.NewManager(cat, d.Store, keys, log.With("component", "cart"))
	wl := wishlist.New(d.Backend, log.With("component", "wishlist"))
	sess := session.New(d.Backend, wl, c, d.Store, keys, log.With("component", "session"))
	wl.Bind(sess)

	return &Engine{
		Catalog:      cat,
		Cart:         c,
		Reservations: reservation.NewLifecycle(cat, c, d.Store, keys, em, log.With("component", "reservation")),
		Wishlist:     wl,
		Session:      sess,
		Orders:       order.New(d.Backend, cat, c, sess, d.Pricing, em, log.With("component", "order")),
		Reviews:      review.New(d.Backend, sess),
		log:          log,
	}
}

// Load restores persisted state. A catalog that is missing or older than
// CatalogMaxAge is refreshed and the wishlist of a restored user re-fetched;
// failures of either are logged and the session starts from what it has.
func (e *Engine) Load(ctx context.Context) error {
	for _, load := range []func(context.Context) error{
		e.Catalog.Load,
		e.Cart.Load,
		e.Reservations.Load,
		e.Session.Load,
	} {
		if err := load(ctx); err != nil {
			return err
		}
	}

	if e.Catalog.Stale(CatalogMaxAge) {
		if err := e.Catalog.Refresh(ctx); err != nil {
			e.log.WarnContext(ctx, "startup catalog refresh", "err", err)
		}
	}
	if _, ok := e.Session.Current(); ok {
		if _, err := e.Wishlist.Fetch(ctx); err != nil {
			e.log.WarnContext(ctx, "startup wishlist fetch", "err", err)
		}
	}
	return nil
}

// Reserve confirms the current cart with the given pickup plan.
func (e *Engine) Reserve(ctx context.Context, plan reservation.Plan) (string, error) {
	return e.Reservations.Confirm(ctx, e.Cart.Lines(), plan)
}

// Quote prices the current cart.
func (e *Engine) Quote(ctx context.Context, giftWrapID string) (order.Quote, error) {
	return e.Orders.Quote(ctx, e.Cart.Lines(), giftWrapID)
}

// Checkout places the current cart as an order.
func (e *Engine) Checkout(ctx context.Context, d model.Delivery, giftWrapID string) (order.Placed, error) {
	return e.Orders.CreateOrder(ctx, d, e.Cart.Lines(), giftWrapID)
}
