package order

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ariefcatur/toy-session-engine/internal/apperr"
	"github.com/ariefcatur/toy-session-engine/internal/backend"
	"github.com/ariefcatur/toy-session-engine/internal/backend/backendtest"
	"github.com/ariefcatur/toy-session-engine/internal/cart"
	"github.com/ariefcatur/toy-session-engine/internal/events"
	"github.com/ariefcatur/toy-session-engine/internal/logger"
	"github.com/ariefcatur/toy-session-engine/internal/model"
	"github.com/ariefcatur/toy-session-engine/internal/saga"
)

type fakeCatalog struct {
	products   map[string]model.Product
	refreshes  int
	refreshErr error
}

func (f *fakeCatalog) Product(id string) (model.Product, bool) {
	p, ok := f.products[id]
	return p, ok
}

func (f *fakeCatalog) Refresh(context.Context) error {
	f.refreshes++
	return f.refreshErr
}

type fakeCart struct{ cleared int }

func (f *fakeCart) Clear(context.Context) error { f.cleared++; return nil }

type identity struct{ u *model.User }

func (i *identity) Current() (model.User, bool) {
	if i.u == nil {
		return model.User{}, false
	}
	return *i.u, true
}

var (
	shopper = &model.User{ID: "u1", Name: "Ali", Role: model.RoleUser}
	admin   = &model.User{ID: "a1", Name: "Admin", Role: model.RoleAdmin}
	home    = model.Delivery{PhoneNumber: "0300-1234567", Address: "12 Mall Road", City: "Lahore", PostalCode: "54000"}
)

type fixture struct {
	srv  *backendtest.Server
	cat  *fakeCatalog
	cart *fakeCart
	who  *identity
	rec  *events.Recorder
	o    *Orchestrator
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	srv := backendtest.New()
	t.Cleanup(srv.Close)
	srv.Products = []backendtest.Product{{ID: "p1", Name: "Blocks", Price: 1500, CountInStock: 3}}
	srv.Users = []*backendtest.User{{ID: "u1", Name: "Ali"}, {ID: "a1", Name: "Admin", IsAdmin: true}}
	srv.GiftWraps = []backendtest.GiftWrap{{ID: "g1", Name: "Ribbon", Price: 150}}

	f := &fixture{
		srv: srv,
		cat: &fakeCatalog{products: map[string]model.Product{
			"p1": {ID: "p1", Name: "Blocks", Price: decimal.NewFromInt(1500), Stock: 3},
		}},
		cart: &fakeCart{},
		who:  &identity{u: shopper},
		rec:  &events.Recorder{},
	}
	api := backend.New(srv.URL, 2*time.Second, logger.Discard())
	em := &events.Emitter{Pub: f.rec, Producer: "test", Log: logger.Discard()}
	f.o = New(api, f.cat, f.cart, f.who, DefaultPricing(), em, logger.Discard())
	return f
}

func (f *fixture) place(t *testing.T) Placed {
	t.Helper()
	p, err := f.o.CreateOrder(context.Background(), home, []cart.Line{{ProductID: "p1", Quantity: 2}}, "")
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}
	return p
}

func TestPricing(t *testing.T) {
	p := DefaultPricing()
	line := func(price, qty int64) model.OrderLine {
		return model.OrderLine{Price: decimal.NewFromInt(price), Qty: int(qty)}
	}
	tests := []struct {
		name     string
		lines    []model.OrderLine
		wrap     *model.GiftWrap
		shipping int64
		total    int64
	}{
		{"below threshold pays fee", []model.OrderLine{line(1500, 2)}, nil, 200, 3200},
		{"exactly threshold pays fee", []model.OrderLine{line(2500, 2)}, nil, 200, 5200},
		{"above threshold ships free", []model.OrderLine{line(2500, 2), line(1, 1)}, nil, 0, 5001},
		{"gift wrap added to total", []model.OrderLine{line(1000, 1)}, &model.GiftWrap{ID: "g1", Price: decimal.NewFromInt(150)}, 200, 1350},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := p.Price(tt.lines, tt.wrap)
			if !q.ShippingPrice.Equal(decimal.NewFromInt(tt.shipping)) {
				t.Errorf("shipping = %s, want %d", q.ShippingPrice, tt.shipping)
			}
			if !q.TotalPrice.Equal(decimal.NewFromInt(tt.total)) {
				t.Errorf("total = %s, want %d", q.TotalPrice, tt.total)
			}
		})
	}
}

func TestValidateDelivery(t *testing.T) {
	tests := []struct {
		name string
		mut  func(*model.Delivery)
		ok   bool
	}{
		{"local format with dash", func(*model.Delivery) {}, true},
		{"international with spaces", func(d *model.Delivery) { d.PhoneNumber = "+92 300 1234567" }, true},
		{"bare mobile", func(d *model.Delivery) { d.PhoneNumber = "3001234567" }, true},
		{"missing phone", func(d *model.Delivery) { d.PhoneNumber = "" }, false},
		{"landline", func(d *model.Delivery) { d.PhoneNumber = "042-35761234" }, false},
		{"too short", func(d *model.Delivery) { d.PhoneNumber = "0300123" }, false},
		{"missing address", func(d *model.Delivery) { d.Address = " " }, false},
		{"missing city", func(d *model.Delivery) { d.City = "" }, false},
		{"missing postal code", func(d *model.Delivery) { d.PostalCode = "" }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := home
			tt.mut(&d)
			err := ValidateDelivery(d)
			if tt.ok && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !tt.ok && !apperr.Is(err, apperr.KindValidation) {
				t.Fatalf("err = %v, want ValidationError", err)
			}
		})
	}
}

func TestCreateOrderRejectedLocally(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name  string
		user  *model.User
		d     model.Delivery
		lines []cart.Line
		kind  apperr.Kind
	}{
		{"anonymous", nil, home, []cart.Line{{ProductID: "p1", Quantity: 1}}, apperr.KindAuthRequired},
		{"bad phone", shopper, model.Delivery{PhoneNumber: "123", Address: "a", City: "b", PostalCode: "c"}, []cart.Line{{ProductID: "p1", Quantity: 1}}, apperr.KindValidation},
		{"empty cart", shopper, home, nil, apperr.KindValidation},
		{"unknown product", shopper, home, []cart.Line{{ProductID: "ghost", Quantity: 1}}, apperr.KindValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.who.u = tt.user
			if _, err := f.o.CreateOrder(ctx, tt.d, tt.lines, ""); !apperr.Is(err, tt.kind) {
				t.Fatalf("err = %v, want %s", err, tt.kind)
			}
			if n := f.srv.Calls("POST /api/orders"); n != 0 {
				t.Fatalf("backend called %d times", n)
			}
		})
	}
}

func TestCreateOrderSuccess(t *testing.T) {
	f := newFixture(t)
	f.cat.refreshErr = errors.New("refresh down")

	placed := f.place(t)
	if placed.ID == "" || placed.TrackingNumber != "TRK00000001" {
		t.Fatalf("placed = %+v", placed)
	}
	if !placed.Quote.TotalPrice.Equal(decimal.NewFromInt(3200)) {
		t.Fatalf("total = %s", placed.Quote.TotalPrice)
	}
	if f.srv.Stock("p1") != 1 {
		t.Fatalf("backend stock = %d, want 1", f.srv.Stock("p1"))
	}
	if f.cart.cleared != 1 || f.cat.refreshes != 1 {
		t.Fatalf("cart cleared %d, catalog refreshed %d", f.cart.cleared, f.cat.refreshes)
	}
	if got := f.rec.Types(); len(got) != 1 || got[0] != events.EventOrderPlaced {
		t.Fatalf("events = %v", got)
	}
}

func TestCreateOrderWithGiftWrap(t *testing.T) {
	f := newFixture(t)
	placed, err := f.o.CreateOrder(context.Background(), home, []cart.Line{{ProductID: "p1", Quantity: 1}}, "g1")
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}
	if placed.Quote.GiftWrapID != "g1" || !placed.Quote.TotalPrice.Equal(decimal.NewFromInt(1850)) {
		t.Fatalf("quote = %+v", placed.Quote)
	}

	if _, err := f.o.CreateOrder(context.Background(), home, []cart.Line{{ProductID: "p1", Quantity: 1}}, "nope"); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("unknown wrap err = %v", err)
	}
}

func TestCreateOrderBackendRejection(t *testing.T) {
	f := newFixture(t)
	f.srv.Products[0].CountInStock = 0

	_, err := f.o.CreateOrder(context.Background(), home, []cart.Line{{ProductID: "p1", Quantity: 2}}, "")
	if err == nil {
		t.Fatal("order accepted with no stock")
	}
	if apperr.Message(err) != "Insufficient stock for Blocks" {
		t.Fatalf("message = %q", apperr.Message(err))
	}
	if f.cart.cleared != 0 || f.cat.refreshes != 0 || len(f.rec.Sent) != 0 {
		t.Fatalf("side effects after rejection: cart %d refresh %d events %d", f.cart.cleared, f.cat.refreshes, len(f.rec.Sent))
	}
}

func TestLookup(t *testing.T) {
	f := newFixture(t)
	placed := f.place(t)
	ctx := context.Background()

	for _, ident := range []string{placed.ID, placed.TrackingNumber} {
		got, err := f.o.Lookup(ctx, ident)
		if err != nil {
			t.Fatalf("Lookup(%s): %v", ident, err)
		}
		if got.Order.ID != placed.ID || len(got.Tracking) != 1 || got.Tracking[0].Status != model.OrderPending {
			t.Fatalf("Lookup(%s) = %+v", ident, got)
		}
	}
	if _, err := f.o.Lookup(ctx, "TRK99999999"); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("unknown tracking err = %v", err)
	}
}

func TestAdminOperationsRequireAdmin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if _, err := f.o.ListOrders(ctx); !apperr.Is(err, apperr.KindAuthRequired) {
		t.Fatalf("ListOrders err = %v", err)
	}
	if _, err := f.o.UpdateOrderStatus(ctx, "x", model.OrderBooked, ""); !apperr.Is(err, apperr.KindAuthRequired) {
		t.Fatalf("UpdateOrderStatus err = %v", err)
	}
	if _, err := f.o.ChangeStatus(ctx, "x", model.OrderBooked, ""); !apperr.Is(err, apperr.KindAuthRequired) {
		t.Fatalf("ChangeStatus err = %v", err)
	}

	f.who.u = admin
	if _, err := f.o.UpdateOrderStatus(ctx, "x", "Lost", ""); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("unknown status err = %v", err)
	}
}

func TestChangeStatusApplied(t *testing.T) {
	f := newFixture(t)
	placed := f.place(t)
	ctx := context.Background()
	f.who.u = admin
	if _, err := f.o.ListOrders(ctx); err != nil {
		t.Fatalf("ListOrders: %v", err)
	}

	state, err := f.o.ChangeStatus(ctx, placed.ID, model.OrderBooked, "packed")
	if err != nil || state != saga.StateApplied {
		t.Fatalf("ChangeStatus = %s, %v", state, err)
	}
	if got := f.o.Orders()[0].Status; got != model.OrderBooked {
		t.Fatalf("local status = %s", got)
	}
	tr, _ := f.o.GetOrderTracking(ctx, placed.ID)
	if len(tr) != 2 || tr[1].Status != model.OrderBooked {
		t.Fatalf("tracking = %+v", tr)
	}
}

func TestChangeStatusRollsBackAndReconciles(t *testing.T) {
	f := newFixture(t)
	placed := f.place(t)
	ctx := context.Background()
	f.who.u = admin
	if _, err := f.o.ListOrders(ctx); err != nil {
		t.Fatal(err)
	}
	listsBefore := f.srv.Calls("GET /api/orders")
	f.srv.Fail("PUT /api/orders/{id}/status", http.StatusInternalServerError, "status service down")

	state, err := f.o.ChangeStatus(ctx, placed.ID, model.OrderDelivered, "")
	if state != saga.StateRolledBack || apperr.Message(err) != "status service down" {
		t.Fatalf("ChangeStatus = %s, %v", state, err)
	}
	if got := f.o.Orders()[0].Status; got != model.OrderPending {
		t.Fatalf("local status = %s, want Pending", got)
	}
	if f.srv.Calls("GET /api/orders") != listsBefore+1 {
		t.Fatal("rollback did not re-fetch the order list")
	}

	sent := f.rec.Sent[len(f.rec.Sent)-1]
	if sent.EventType != events.EventOrderStatusChanged {
		t.Fatalf("last event = %s", sent.EventType)
	}
}

func TestChangeStatusUnknownOrder(t *testing.T) {
	f := newFixture(t)
	f.who.u = admin
	if _, err := f.o.ChangeStatus(context.Background(), "missing", model.OrderBooked, ""); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("err = %v", err)
	}
}
