// Package backendtest runs an in-memory imitation of the toy store service
// on an httptest server.
package backendtest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

type Product struct {
	ID           string  `json:"_id"`
	Name         string  `json:"name"`
	Price        float64 `json:"price"`
	CountInStock int     `json:"countInStock"`
	Category     any     `json:"category,omitempty"`
	Rating       float64 `json:"rating"`
	Image        string  `json:"image,omitempty"`
}

type Category struct {
	ID   string `json:"_id"`
	Name string `json:"name"`
	Slug string `json:"slug,omitempty"`
}

type User struct {
	ID       string
	Name     string
	Email    string
	Password string
	IsAdmin  bool
	Wishlist []string
}

type GiftWrap struct {
	ID    string  `json:"_id"`
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

type failure struct {
	status  int
	message string
}

// Server is safe for concurrent use. Its fixture fields may be set directly
// before the first request.
type Server struct {
	*httptest.Server

	mu         sync.Mutex
	Products   []Product
	Categories []Category
	Users      []*User
	GiftWraps  []GiftWrap
	Orders     []map[string]any
	Tracking   map[string][]map[string]any
	Reviews    map[string][]map[string]any

	fail  map[string]failure
	calls map[string]int
}

func New() *Server {
	s := &Server{
		Tracking: map[string][]map[string]any{},
		Reviews:  map[string][]map[string]any{},
		fail:     map[string]failure{},
		calls:    map[string]int{},
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/api/products", s.guard("GET /api/products", s.listProducts))
	r.Get("/api/categories", s.guard("GET /api/categories", s.listCategories))
	r.Get("/api/products/{id}/reviews", s.guard("GET /api/products/{id}/reviews", s.listReviews))
	r.Post("/api/products/{id}/reviews", s.guard("POST /api/products/{id}/reviews", s.addReview))
	r.Post("/api/users/login", s.guard("POST /api/users/login", s.login))
	r.Post("/api/users", s.guard("POST /api/users", s.register))
	r.Get("/api/users/{id}/wishlist", s.guard("GET /api/users/{id}/wishlist", s.getWishlist))
	r.Post("/api/users/{id}/wishlist", s.guard("POST /api/users/{id}/wishlist", s.addWishlist))
	r.Delete("/api/users/{id}/wishlist/{pid}", s.guard("DELETE /api/users/{id}/wishlist/{pid}", s.removeWishlist))
	r.Get("/api/orders", s.guard("GET /api/orders", s.listOrders))
	r.Post("/api/orders", s.guard("POST /api/orders", s.createOrder))
	r.Get("/api/orders/track/{tn}", s.guard("GET /api/orders/track/{tn}", s.orderByTracking))
	r.Get("/api/orders/{id}", s.guard("GET /api/orders/{id}", s.getOrder))
	r.Get("/api/orders/{id}/tracking", s.guard("GET /api/orders/{id}/tracking", s.orderTracking))
	r.Put("/api/orders/{id}/status", s.guard("PUT /api/orders/{id}/status", s.updateStatus))
	r.Get("/api/giftwraps", s.guard("GET /api/giftwraps", s.listGiftWraps))

	s.Server = httptest.NewServer(r)
	return s
}

// Fail makes every request to route (for example "POST /api/orders") answer
// with status and message until Recover is called.
func (s *Server) Fail(route string, status int, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail[route] = failure{status: status, message: message}
}

func (s *Server) Recover(route string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.fail, route)
}

func (s *Server) Calls(route string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[route]
}

func (s *Server) Stock(productID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.Products {
		if p.ID == productID {
			return p.CountInStock
		}
	}
	return -1
}

func (s *Server) Wishlist(userID string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u := s.userByID(userID); u != nil {
		return append([]string(nil), u.Wishlist...)
	}
	return nil
}

func (s *Server) guard(route string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.calls[route]++
		f, failing := s.fail[route]
		s.mu.Unlock()
		if failing {
			writeJSON(w, f.status, map[string]string{"message": f.message})
			return
		}
		h(w, r)
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func objectID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:24]
}

func (s *Server) listProducts(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, http.StatusOK, s.Products)
}

func (s *Server) listCategories(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, http.StatusOK, s.Categories)
}

func (s *Server) listGiftWraps(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, http.StatusOK, s.GiftWraps)
}

func (s *Server) listReviews(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.Reviews[chi.URLParam(r, "id")]
	if list == nil {
		list = []map[string]any{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) addReview(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Rating  int    `json:"rating"`
		Comment string `json:"comment"`
		UserID  string `json:"userId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "invalid json"})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.userByID(body.UserID)
	if u == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Not authorized"})
		return
	}
	pid := chi.URLParam(r, "id")
	rev := map[string]any{
		"_id": objectID(), "name": u.Name, "rating": body.Rating, "comment": body.Comment,
		"createdAt": time.Now().UTC().Format(time.RFC3339),
	}
	s.Reviews[pid] = append(s.Reviews[pid], rev)
	writeJSON(w, http.StatusCreated, rev)
}

func (s *Server) userByID(id string) *User {
	for _, u := range s.Users {
		if u.ID == id {
			return u
		}
	}
	return nil
}

func (s *Server) userJSON(u *User, populated bool) map[string]any {
	wl := []any{}
	for _, id := range u.Wishlist {
		if populated {
			wl = append(wl, map[string]any{"_id": id})
		} else {
			wl = append(wl, id)
		}
	}
	return map[string]any{
		"_id": u.ID, "name": u.Name, "email": u.Email, "isAdmin": u.IsAdmin,
		"token": "tok-" + u.ID, "wishlist": wl,
	}
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var body struct{ Email, Password string }
	_ = json.NewDecoder(r.Body).Decode(&body)
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.Users {
		if u.Email == body.Email && u.Password == body.Password {
			writeJSON(w, http.StatusOK, s.userJSON(u, true))
			return
		}
	}
	writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Invalid email or password"})
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var body struct{ Name, Email, Password string }
	_ = json.NewDecoder(r.Body).Decode(&body)
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.Users {
		if u.Email == body.Email {
			writeJSON(w, http.StatusBadRequest, map[string]string{"message": "User already exists"})
			return
		}
	}
	u := &User{ID: objectID(), Name: body.Name, Email: body.Email, Password: body.Password}
	s.Users = append(s.Users, u)
	writeJSON(w, http.StatusCreated, s.userJSON(u, false))
}

func (s *Server) getWishlist(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.userByID(chi.URLParam(r, "id"))
	if u == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "User not found"})
		return
	}
	writeJSON(w, http.StatusOK, s.userJSON(u, false)["wishlist"])
}

// addWishlist answers with populated documents, removeWishlist with bare ids,
// the same mix the real service produces.
func (s *Server) addWishlist(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ProductID string `json:"productId"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.userByID(chi.URLParam(r, "id"))
	if u == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "User not found"})
		return
	}
	found := false
	for _, id := range u.Wishlist {
		found = found || id == body.ProductID
	}
	if !found {
		u.Wishlist = append(u.Wishlist, body.ProductID)
	}
	writeJSON(w, http.StatusOK, s.userJSON(u, true)["wishlist"])
}

func (s *Server) removeWishlist(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.userByID(chi.URLParam(r, "id"))
	if u == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "User not found"})
		return
	}
	pid := chi.URLParam(r, "pid")
	kept := u.Wishlist[:0]
	for _, id := range u.Wishlist {
		if id != pid {
			kept = append(kept, id)
		}
	}
	u.Wishlist = kept
	writeJSON(w, http.StatusOK, s.userJSON(u, false)["wishlist"])
}

func (s *Server) createOrder(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "invalid json"})
		return
	}
	items, _ := body["orderItems"].([]any)
	if len(items) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "No order items"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	idx := map[string]int{}
	for i, p := range s.Products {
		idx[p.ID] = i
	}
	for _, raw := range items {
		it, _ := raw.(map[string]any)
		pid, _ := it["product"].(string)
		qty, _ := it["qty"].(float64)
		i, ok := idx[pid]
		if !ok {
			writeJSON(w, http.StatusNotFound, map[string]string{"message": "Product not found"})
			return
		}
		if float64(s.Products[i].CountInStock) < qty {
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"message": fmt.Sprintf("Insufficient stock for %s", s.Products[i].Name),
			})
			return
		}
	}
	for _, raw := range items {
		it := raw.(map[string]any)
		s.Products[idx[it["product"].(string)]].CountInStock -= int(it["qty"].(float64))
	}

	id := objectID()
	now := time.Now().UTC().Format(time.RFC3339)
	body["_id"] = id
	body["trackingNumber"] = fmt.Sprintf("TRK%08d", len(s.Orders)+1)
	body["orderStatus"] = "Pending"
	body["createdAt"] = now
	s.Orders = append(s.Orders, body)
	s.Tracking[id] = append(s.Tracking[id], map[string]any{
		"status": "Pending", "notes": "Order placed", "createdAt": now,
	})
	writeJSON(w, http.StatusCreated, body)
}

func (s *Server) findOrder(match func(map[string]any) bool) map[string]any {
	for _, o := range s.Orders {
		if match(o) {
			return o
		}
	}
	return nil
}

func (s *Server) listOrders(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.Orders
	if out == nil {
		out = []map[string]any{}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) getOrder(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.mu.Lock()
	defer s.mu.Unlock()
	if o := s.findOrder(func(o map[string]any) bool { return o["_id"] == id }); o != nil {
		writeJSON(w, http.StatusOK, o)
		return
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"message": "Order not found"})
}

func (s *Server) orderByTracking(w http.ResponseWriter, r *http.Request) {
	tn := chi.URLParam(r, "tn")
	s.mu.Lock()
	defer s.mu.Unlock()
	if o := s.findOrder(func(o map[string]any) bool { return o["trackingNumber"] == tn }); o != nil {
		writeJSON(w, http.StatusOK, o)
		return
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"message": "Order not found"})
}

func (s *Server) orderTracking(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.Tracking[chi.URLParam(r, "id")]
	if list == nil {
		list = []map[string]any{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) updateStatus(w http.ResponseWriter, r *http.Request) {
	var body struct{ Status, Notes, UpdatedBy string }
	_ = json.NewDecoder(r.Body).Decode(&body)
	id := chi.URLParam(r, "id")

	s.mu.Lock()
	defer s.mu.Unlock()
	if u := s.userByID(body.UpdatedBy); u == nil || !u.IsAdmin {
		writeJSON(w, http.StatusForbidden, map[string]string{"message": "Not authorized as an admin"})
		return
	}
	o := s.findOrder(func(o map[string]any) bool { return o["_id"] == id })
	if o == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "Order not found"})
		return
	}
	o["orderStatus"] = body.Status
	s.Tracking[id] = append(s.Tracking[id], map[string]any{
		"status": body.Status, "notes": body.Notes, "updatedBy": body.UpdatedBy,
		"createdAt": time.Now().UTC().Format(time.RFC3339),
	})
	writeJSON(w, http.StatusOK, map[string]any{"message": "Order status updated", "order": o})
}
