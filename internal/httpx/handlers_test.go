package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ariefcatur/toy-session-engine/internal/apperr"
	"github.com/ariefcatur/toy-session-engine/internal/backend"
	"github.com/ariefcatur/toy-session-engine/internal/backend/backendtest"
	"github.com/ariefcatur/toy-session-engine/internal/engine"
	"github.com/ariefcatur/toy-session-engine/internal/logger"
	"github.com/ariefcatur/toy-session-engine/internal/order"
	"github.com/ariefcatur/toy-session-engine/internal/store"
)

func newServer(t *testing.T) (*backendtest.Server, *httptest.Server) {
	t.Helper()
	be := backendtest.New()
	t.Cleanup(be.Close)
	be.Products = []backendtest.Product{
		{ID: "p1", Name: "Blocks", Price: 1500, CountInStock: 3},
		{ID: "p2", Name: "Bear", Price: 900, CountInStock: 0},
	}
	be.Users = []*backendtest.User{{ID: "u1", Name: "Ali", Email: "ali@example.com", Password: "pw"}}

	e := engine.New(engine.Deps{
		Backend: backend.New(be.URL, 2*time.Second, logger.Discard()),
		Store:   store.NewMemory(),
		Pricing: order.DefaultPricing(),
		Log:     logger.Discard(),
	})
	if err := e.Load(context.Background()); err != nil {
		t.Fatalf("engine load: %v", err)
	}

	r := NewRouter()
	(&SessionHandler{Engine: e, Log: logger.Discard()}).Register(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return be, srv
}

func call(t *testing.T, srv *httptest.Server, method, path, body string) (int, map[string]any) {
	t.Helper()
	req, err := http.NewRequest(method, srv.URL+path, strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := srv.Client().Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var out map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp.StatusCode, out
}

func TestStatusFor(t *testing.T) {
	tests := map[apperr.Kind]int{
		apperr.KindNotFound:     404,
		apperr.KindInvalidState: 409,
		apperr.KindOutOfStock:   409,
		apperr.KindAuthRequired: 401,
		apperr.KindValidation:   400,
		apperr.KindNetwork:      502,
		apperr.KindInternal:     500,
	}
	for kind, want := range tests {
		if got := StatusFor(kind); got != want {
			t.Errorf("StatusFor(%s) = %d, want %d", kind, got, want)
		}
	}
}

func TestErrorResponses(t *testing.T) {
	be, srv := newServer(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		status int
		kind   string
	}{
		{"unknown product", http.MethodPost, "/cart/ghost", "", 404, "NotFound"},
		{"out of stock", http.MethodPost, "/cart/p2", "", 409, "OutOfStock"},
		{"wishlist needs login", http.MethodPost, "/wishlist/p1/toggle", "", 401, "AuthRequired"},
		{"bad json", http.MethodPatch, "/cart/p1", "{", 400, "ValidationError"},
		{"empty reservation", http.MethodPost, "/reservations", `{"plan":[]}`, 400, "ValidationError"},
		{"unknown reservation", http.MethodDelete, "/reservations/nope", "", 404, "NotFound"},
		{"admin only", http.MethodGet, "/orders", "", 401, "AuthRequired"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, body := call(t, srv, tt.method, tt.path, tt.body)
			if code != tt.status || body["kind"] != tt.kind {
				t.Fatalf("%s %s = %d %v, want %d %s", tt.method, tt.path, code, body, tt.status, tt.kind)
			}
		})
	}

	t.Run("backend outage", func(t *testing.T) {
		be.Fail("GET /api/products", http.StatusServiceUnavailable, "maintenance")
		code, body := call(t, srv, http.MethodPost, "/catalog/refresh", "")
		if code != http.StatusBadGateway || body["error"] != "maintenance" {
			t.Fatalf("refresh = %d %v", code, body)
		}
	})
}

func TestCartAndReservationFlow(t *testing.T) {
	_, srv := newServer(t)

	if code, _ := call(t, srv, http.MethodGet, "/healthz", ""); code != http.StatusOK {
		t.Fatalf("healthz = %d", code)
	}
	if code, body := call(t, srv, http.MethodPost, "/cart/p1", ""); code != http.StatusOK || body["alreadyInCart"] != false {
		t.Fatalf("add = %d %v", code, body)
	}
	if code, body := call(t, srv, http.MethodPatch, "/cart/p1", `{"delta":5}`); code != http.StatusOK || body["quantity"] != float64(3) {
		t.Fatalf("patch = %d %v", code, body)
	}

	code, body := call(t, srv, http.MethodPost, "/reservations",
		`{"plan":[{"productId":"p1","pickupDate":"2026-03-02T00:00:00Z","duration":3}]}`)
	if code != http.StatusCreated {
		t.Fatalf("reserve = %d %v", code, body)
	}
	id, _ := body["id"].(string)

	if code, body := call(t, srv, http.MethodPost, "/reservations/"+id+"/pickup", ""); code != http.StatusOK || body["status"] != "picked-up" {
		t.Fatalf("pickup = %d %v", code, body)
	}
	if code, body := call(t, srv, http.MethodDelete, "/reservations/"+id, ""); code != http.StatusConflict || body["kind"] != "InvalidState" {
		t.Fatalf("cancel after pickup = %d %v", code, body)
	}
	if code, body := call(t, srv, http.MethodPost, "/reservations/"+id+"/items/p1/extend", ""); code != http.StatusOK || body["dueDate"] != "2026-03-12T00:00:00Z" {
		t.Fatalf("extend = %d %v", code, body)
	}
}

func TestSessionRoutes(t *testing.T) {
	_, srv := newServer(t)

	if code, body := call(t, srv, http.MethodPost, "/session/login", `{"email":"ali@example.com","password":"bad"}`); code != http.StatusUnauthorized {
		t.Fatalf("bad login = %d %v", code, body)
	}
	if code, body := call(t, srv, http.MethodPost, "/session/login", `{"email":"ali@example.com","password":"pw"}`); code != http.StatusOK || body["id"] != "u1" {
		t.Fatalf("login = %d %v", code, body)
	}
	if code, body := call(t, srv, http.MethodPost, "/wishlist/p1/toggle", ""); code != http.StatusOK || body["added"] != true {
		t.Fatalf("toggle = %d %v", code, body)
	}
	if code, _ := call(t, srv, http.MethodDelete, "/session", ""); code != http.StatusNoContent {
		t.Fatalf("logout = %d", code)
	}
	if _, body := call(t, srv, http.MethodGet, "/session", ""); body["user"] != nil {
		t.Fatalf("session after logout = %v", body)
	}
}
