package cart

import (
	"context"
	"log/slog"
	"sync"

	"github.com/ariefcatur/toy-session-engine/internal/apperr"
	"github.com/ariefcatur/toy-session-engine/internal/model"
	"github.com/ariefcatur/toy-session-engine/internal/store"
)

// Catalog is the stock source quantities are bounded by.
type Catalog interface {
	Product(id string) (model.Product, bool)
}

type Line struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

type AddResult struct {
	AlreadyInCart bool `json:"alreadyInCart"`
}

// Manager owns the session cart. Lines are unique by product id and every
// mutation is persisted before it becomes visible.
type Manager struct {
	catalog Catalog
	kv      store.KV
	key     string
	log     *slog.Logger

	mu    sync.Mutex
	lines []Line
}

func NewManager(catalog Catalog, kv store.KV, keys store.Keys, log *slog.Logger) *Manager {
	if log == nil {
		log = slog.Default()
	}
	return &Manager{catalog: catalog, kv: kv, key: keys.Cart(), log: log}
}

func (m *Manager) Load(ctx context.Context) error {
	var lines []Line
	if _, err := store.Load(ctx, m.kv, m.key, &lines); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lines = lines
	return nil
}

func (m *Manager) AddToCart(ctx context.Context, productID string) (AddResult, error) {
	p, ok := m.catalog.Product(productID)
	if !ok {
		return AddResult{}, apperr.NotFound("product %s not found", productID)
	}
	if p.Stock <= 0 {
		return AddResult{}, apperr.OutOfStock("%s is currently out of stock", p.Name)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.indexLocked(productID) >= 0 {
		return AddResult{AlreadyInCart: true}, nil
	}
	next := append(m.snapshotLocked(), Line{ProductID: productID, Quantity: 1})
	if err := m.commitLocked(ctx, next); err != nil {
		return AddResult{}, err
	}
	return AddResult{}, nil
}

// UpdateQuantity moves a line's quantity by delta and clamps the result into
// [1, stock]. A line never drops below one here; removal is RemoveFromCart.
func (m *Manager) UpdateQuantity(ctx context.Context, productID string, delta int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := m.indexLocked(productID)
	if i < 0 {
		return 0, apperr.NotFound("product %s is not in the cart", productID)
	}
	stock := 0
	if p, ok := m.catalog.Product(productID); ok {
		stock = p.Stock
	}
	q := Clamp(step(m.lines[i].Quantity, delta, stock), stock)

	next := m.snapshotLocked()
	next[i].Quantity = q
	if err := m.commitLocked(ctx, next); err != nil {
		return 0, err
	}
	return q, nil
}

// step adds delta to cur without overflowing, saturating at the bounds
// Clamp would apply anyway.
func step(cur, delta, stock int) int {
	switch {
	case delta > 0 && delta > stock-cur:
		return stock
	case delta < 0 && delta < 1-cur:
		return 1
	}
	return cur + delta
}

// Clamp bounds q into [1, stock]. With no stock left the floor wins.
func Clamp(q, stock int) int {
	if q > stock {
		q = stock
	}
	if q < 1 {
		q = 1
	}
	return q
}

func (m *Manager) RemoveFromCart(ctx context.Context, productID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := m.indexLocked(productID)
	if i < 0 {
		return nil
	}
	next := m.snapshotLocked()
	next = append(next[:i], next[i+1:]...)
	return m.commitLocked(ctx, next)
}

func (m *Manager) IsInCart(productID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.indexLocked(productID) >= 0
}

func (m *Manager) Lines() []Line {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

func (m *Manager) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.commitLocked(ctx, nil)
}

// Restore puts back a previously taken Lines() snapshot. It compensates a
// Clear inside a larger operation that failed later.
func (m *Manager) Restore(ctx context.Context, lines []Line) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.commitLocked(ctx, append([]Line(nil), lines...))
}

func (m *Manager) indexLocked(productID string) int {
	for i, l := range m.lines {
		if l.ProductID == productID {
			return i
		}
	}
	return -1
}

func (m *Manager) snapshotLocked() []Line {
	return append([]Line(nil), m.lines...)
}

func (m *Manager) commitLocked(ctx context.Context, next []Line) error {
	if next == nil {
		next = []Line{}
	}
	if err := store.Save(ctx, m.kv, m.key, next); err != nil {
		m.log.ErrorContext(ctx, "persist cart", "err", err)
		return err
	}
	m.lines = next
	return nil
}
