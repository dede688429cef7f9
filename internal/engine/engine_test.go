package engine

import (
	"context"
	"testing"
	"time"

	"github.com/ariefcatur/toy-session-engine/internal/backend"
	"github.com/ariefcatur/toy-session-engine/internal/backend/backendtest"
	"github.com/ariefcatur/toy-session-engine/internal/events"
	"github.com/ariefcatur/toy-session-engine/internal/logger"
	"github.com/ariefcatur/toy-session-engine/internal/model"
	"github.com/ariefcatur/toy-session-engine/internal/order"
	"github.com/ariefcatur/toy-session-engine/internal/reservation"
	"github.com/ariefcatur/toy-session-engine/internal/store"
)

func newBackend(t *testing.T) *backendtest.Server {
	t.Helper()
	srv := backendtest.New()
	t.Cleanup(srv.Close)
	srv.Products = []backendtest.Product{
		{ID: "p1", Name: "Blocks", Price: 1500, CountInStock: 3, Category: "c1"},
		{ID: "p2", Name: "Bear", Price: 900, CountInStock: 1, Category: "c1"},
	}
	srv.Categories = []backendtest.Category{{ID: "c1", Name: "Toys", Slug: "toys"}}
	srv.Users = []*backendtest.User{{ID: "u1", Name: "Ali", Email: "ali@example.com", Password: "pw", Wishlist: []string{"p2"}}}
	return srv
}

func newEngine(srv *backendtest.Server, kv store.KV, pub events.Publisher) *Engine {
	return New(Deps{
		Backend:   backend.New(srv.URL, 2*time.Second, logger.Discard()),
		Store:     kv,
		Namespace: "test",
		Publisher: pub,
		Producer:  "test",
		Pricing:   order.DefaultPricing(),
		Log:       logger.Discard(),
	})
}

func TestSessionEndToEnd(t *testing.T) {
	ctx := context.Background()
	srv := newBackend(t)
	kv := store.NewMemory()
	rec := &events.Recorder{}
	e := newEngine(srv, kv, rec)

	if err := e.Load(ctx); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(e.Catalog.Products()) != 2 {
		t.Fatal("catalog not refreshed on first load")
	}
	if _, err := e.Session.Login(ctx, "ali@example.com", "pw"); err != nil {
		t.Fatalf("Login: %v", err)
	}
	if !e.Wishlist.Contains("p2") {
		t.Fatal("wishlist not seeded from login")
	}

	if _, err := e.Cart.AddToCart(ctx, "p1"); err != nil {
		t.Fatal(err)
	}
	pickup := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	resID, err := e.Reserve(ctx, reservation.Plan{{ProductID: "p1", PickupDate: pickup, Duration: 7}})
	if err != nil {
		t.Fatalf("Reserve: %v", err)
	}
	if p, _ := e.Catalog.Product("p1"); p.Stock != 2 {
		t.Fatalf("local stock = %d, want 2", p.Stock)
	}

	if _, err := e.Cart.AddToCart(ctx, "p1"); err != nil {
		t.Fatal(err)
	}
	if _, err := e.Cart.UpdateQuantity(ctx, "p1", 1); err != nil {
		t.Fatal(err)
	}
	placed, err := e.Checkout(ctx, model.Delivery{PhoneNumber: "03001234567", Address: "1 Main", City: "Karachi", PostalCode: "75500"}, "")
	if err != nil {
		t.Fatalf("Checkout: %v", err)
	}
	if placed.TrackingNumber == "" || len(e.Cart.Lines()) != 0 {
		t.Fatalf("placed = %+v, cart = %v", placed, e.Cart.Lines())
	}
	if p, _ := e.Catalog.Product("p1"); p.Stock != 1 {
		t.Fatalf("stock after refresh = %d, want backend value 1", p.Stock)
	}

	want := []string{events.EventReservationConfirmed, events.EventOrderPlaced}
	if got := rec.Types(); len(got) != 2 || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("events = %v", got)
	}

	restored := newEngine(srv, kv, nil)
	if err := restored.Load(ctx); err != nil {
		t.Fatalf("reload: %v", err)
	}
	if _, ok := restored.Session.Current(); !ok {
		t.Fatal("session not restored")
	}
	if _, ok := restored.Reservations.Get(resID); !ok {
		t.Fatal("reservation not restored")
	}
	if !restored.Wishlist.Contains("p2") {
		t.Fatal("wishlist not re-fetched for restored user")
	}
}

func TestLoadToleratesBackendOutage(t *testing.T) {
	srv := newBackend(t)
	srv.Fail("GET /api/products", 503, "maintenance")
	e := newEngine(srv, store.NewMemory(), nil)

	if err := e.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(e.Catalog.Products()) != 0 {
		t.Fatal("catalog populated during outage")
	}
}
