package httpx

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ariefcatur/toy-session-engine/internal/apperr"
	"github.com/ariefcatur/toy-session-engine/internal/engine"
	"github.com/ariefcatur/toy-session-engine/internal/model"
	"github.com/ariefcatur/toy-session-engine/internal/reservation"
)

type SessionHandler struct {
	Engine *engine.Engine
	Log    *slog.Logger
}

func (h *SessionHandler) Register(r chi.Router) {
	r.Get("/products", h.listProducts)
	r.Get("/categories", h.listCategories)
	r.Get("/categories/{id}/products", h.productsByCategory)
	r.Post("/catalog/refresh", h.refreshCatalog)

	r.Get("/cart", h.getCart)
	r.Post("/cart/{productID}", h.addToCart)
	r.Patch("/cart/{productID}", h.updateQuantity)
	r.Delete("/cart/{productID}", h.removeFromCart)

	r.Get("/reservations", h.listReservations)
	r.Post("/reservations", h.reserve)
	r.Post("/reservations/{id}/pickup", h.pickup)
	r.Post("/reservations/{id}/items/{productID}/extend", h.extend)
	r.Delete("/reservations/{id}", h.cancelReservation)

	r.Get("/wishlist", h.getWishlist)
	r.Post("/wishlist/{productID}/toggle", h.toggleWishlist)
	r.Post("/wishlist/refresh", h.refreshWishlist)

	r.Post("/session/login", h.login)
	r.Post("/session/register", h.register)
	r.Delete("/session", h.logout)
	r.Get("/session", h.currentSession)

	r.Post("/orders/quote", h.quote)
	r.Post("/orders", h.checkout)
	r.Get("/orders", h.listOrders)
	r.Get("/orders/lookup/{identifier}", h.lookupOrder)
	r.Put("/orders/{id}/status", h.updateOrderStatus)
	r.Get("/giftwraps", h.giftWraps)

	r.Get("/products/{id}/reviews", h.listReviews)
	r.Post("/products/{id}/reviews", h.submitReview)
}

func (h *SessionHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	log := h.Log
	if log == nil {
		log = slog.Default()
	}
	writeError(w, r, log, err)
}

// catalog

func (h *SessionHandler) listProducts(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.Engine.Catalog.Products())
}

func (h *SessionHandler) listCategories(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.Engine.Catalog.Categories())
}

func (h *SessionHandler) productsByCategory(w http.ResponseWriter, r *http.Request) {
	ps, err := h.Engine.Catalog.ByCategory(chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if ps == nil {
		ps = []model.Product{}
	}
	writeJSON(w, http.StatusOK, ps)
}

func (h *SessionHandler) refreshCatalog(w http.ResponseWriter, r *http.Request) {
	if err := h.Engine.Catalog.Refresh(r.Context()); err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"products":  len(h.Engine.Catalog.Products()),
		"fetchedAt": h.Engine.Catalog.FetchedAt(),
	})
}

// cart

func (h *SessionHandler) getCart(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.Engine.Cart.Lines())
}

func (h *SessionHandler) addToCart(w http.ResponseWriter, r *http.Request) {
	res, err := h.Engine.Cart.AddToCart(r.Context(), chi.URLParam(r, "productID"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *SessionHandler) updateQuantity(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Delta int `json:"delta"`
	}
	if err := decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	q, err := h.Engine.Cart.UpdateQuantity(r.Context(), chi.URLParam(r, "productID"), req.Delta)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"quantity": q})
}

func (h *SessionHandler) removeFromCart(w http.ResponseWriter, r *http.Request) {
	if err := h.Engine.Cart.RemoveFromCart(r.Context(), chi.URLParam(r, "productID")); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// reservations

func (h *SessionHandler) listReservations(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"reservations":  h.Engine.Reservations.List(),
		"totalBorrowed": h.Engine.Reservations.TotalBorrowed(),
	})
}

func (h *SessionHandler) reserve(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Plan reservation.Plan `json:"plan"`
	}
	if err := decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	id, err := h.Engine.Reserve(r.Context(), req.Plan)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

func (h *SessionHandler) pickup(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.Engine.Reservations.Pickup(r.Context(), id); err != nil {
		h.fail(w, r, err)
		return
	}
	res, _ := h.Engine.Reservations.Get(id)
	writeJSON(w, http.StatusOK, res)
}

func (h *SessionHandler) extend(w http.ResponseWriter, r *http.Request) {
	due, err := h.Engine.Reservations.Extend(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "productID"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]time.Time{"dueDate": due})
}

func (h *SessionHandler) cancelReservation(w http.ResponseWriter, r *http.Request) {
	if err := h.Engine.Reservations.Cancel(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// wishlist

func (h *SessionHandler) getWishlist(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.Engine.Wishlist.IDs())
}

func (h *SessionHandler) toggleWishlist(w http.ResponseWriter, r *http.Request) {
	added, err := h.Engine.Wishlist.Toggle(r.Context(), chi.URLParam(r, "productID"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"added": added, "wishlist": h.Engine.Wishlist.IDs()})
}

func (h *SessionHandler) refreshWishlist(w http.ResponseWriter, r *http.Request) {
	ids, err := h.Engine.Wishlist.Fetch(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ids)
}

// session

type credentials struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *SessionHandler) login(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if err := decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	u, err := h.Engine.Session.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (h *SessionHandler) register(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if err := decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	u, err := h.Engine.Session.Register(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, u)
}

func (h *SessionHandler) logout(w http.ResponseWriter, r *http.Request) {
	if err := h.Engine.Session.Logout(r.Context()); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *SessionHandler) currentSession(w http.ResponseWriter, _ *http.Request) {
	u, ok := h.Engine.Session.Current()
	if !ok {
		writeJSON(w, http.StatusOK, map[string]any{"user": nil})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": u})
}

// orders

type checkoutReq struct {
	model.Delivery
	GiftWrapID string `json:"giftWrapId"`
}

func (h *SessionHandler) quote(w http.ResponseWriter, r *http.Request) {
	var req checkoutReq
	if err := decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	q, err := h.Engine.Quote(r.Context(), req.GiftWrapID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

func (h *SessionHandler) checkout(w http.ResponseWriter, r *http.Request) {
	var req checkoutReq
	if err := decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	placed, err := h.Engine.Checkout(r.Context(), req.Delivery, req.GiftWrapID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, placed)
}

func (h *SessionHandler) listOrders(w http.ResponseWriter, r *http.Request) {
	list, err := h.Engine.Orders.ListOrders(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *SessionHandler) lookupOrder(w http.ResponseWriter, r *http.Request) {
	res, err := h.Engine.Orders.Lookup(r.Context(), chi.URLParam(r, "identifier"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// updateOrderStatus runs the optimistic change when the order is in the
// admin view and a plain update otherwise.
func (h *SessionHandler) updateOrderStatus(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Status model.OrderStatus `json:"status"`
		Notes  string            `json:"notes"`
	}
	if err := decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	id := chi.URLParam(r, "id")
	state, err := h.Engine.Orders.ChangeStatus(r.Context(), id, req.Status, req.Notes)
	if err == nil {
		writeJSON(w, http.StatusOK, map[string]string{"id": id, "status": string(req.Status), "state": string(state)})
		return
	}
	if state != "" || !apperr.Is(err, apperr.KindNotFound) {
		h.fail(w, r, err)
		return
	}
	o, err := h.Engine.Orders.UpdateOrderStatus(r.Context(), id, req.Status, req.Notes)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (h *SessionHandler) giftWraps(w http.ResponseWriter, r *http.Request) {
	list, err := h.Engine.Orders.GiftWraps(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// reviews

func (h *SessionHandler) listReviews(w http.ResponseWriter, r *http.Request) {
	list, err := h.Engine.Reviews.List(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *SessionHandler) submitReview(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Rating  int    `json:"rating"`
		Comment string `json:"comment"`
	}
	if err := decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	rev, err := h.Engine.Reviews.Submit(r.Context(), chi.URLParam(r, "id"), req.Rating, req.Comment)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, rev)
}
