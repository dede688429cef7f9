// Package catalog caches the product list the session validates against.
//
// Staleness contract: stock held here is advisory. It is the last fetched
// value, adjusted by reservation flows run in this session. The backend is
// the final arbiter, and callers refresh after any operation the backend may
// have changed stock for (order placement). Nothing here locks anything
// server side.
package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ariefcatur/toy-session-engine/internal/apperr"
	"github.com/ariefcatur/toy-session-engine/internal/model"
	"github.com/ariefcatur/toy-session-engine/internal/store"
)

type Source interface {
	ListProducts(ctx context.Context) ([]model.Product, error)
	ListCategories(ctx context.Context) ([]model.Category, error)
}

// snapshot is the single persisted document, so products and categories
// can never be written out of step with each other.
type snapshot struct {
	Products   []model.Product  `json:"products"`
	Categories []model.Category `json:"categories"`
	FetchedAt  time.Time        `json:"fetched_at"`
}

type Cache struct {
	src  Source
	kv   store.KV
	keys store.Keys
	log  *slog.Logger
	now  func() time.Time

	mu         sync.RWMutex
	products   []model.Product
	index      map[string]int
	categories []model.Category
	fetchedAt  time.Time
}

func New(src Source, kv store.KV, keys store.Keys, log *slog.Logger) *Cache {
	if log == nil {
		log = slog.Default()
	}
	return &Cache{src: src, kv: kv, keys: keys, log: log, now: time.Now, index: map[string]int{}}
}

// Load restores the snapshot persisted by a previous run.
func (c *Cache) Load(ctx context.Context) error {
	var snap snapshot
	ok, err := store.Load(ctx, c.kv, c.keys.Catalog(), &snap)
	if err != nil || !ok {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.setProductsLocked(snap.Products)
	c.categories = snap.Categories
	c.fetchedAt = snap.FetchedAt
	return nil
}

// Refresh fetches products and categories together. Either failing leaves
// the cache as it was.
func (c *Cache) Refresh(ctx context.Context) error {
	var (
		products   []model.Product
		categories []model.Category
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		products, err = c.src.ListProducts(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		categories, err = c.src.ListCategories(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		if apperr.KindOf(err) == apperr.KindInternal {
			return apperr.Network(err, "refresh catalog")
		}
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// a product still out on loan keeps showing as borrowed
	for i := range products {
		if j, ok := c.index[products[i].ID]; ok && c.products[j].Availability == model.Borrowed {
			products[i].Availability = model.Borrowed
		}
	}
	snap := snapshot{Products: products, Categories: categories, FetchedAt: c.now().UTC()}
	if err := store.Save(ctx, c.kv, c.keys.Catalog(), snap); err != nil {
		return err
	}
	c.setProductsLocked(products)
	c.categories = categories
	c.fetchedAt = snap.FetchedAt
	c.log.InfoContext(ctx, "catalog refreshed", "products", len(products), "categories", len(categories))
	return nil
}

func (c *Cache) setProductsLocked(ps []model.Product) {
	c.products = ps
	c.index = make(map[string]int, len(ps))
	for i, p := range ps {
		c.index[p.ID] = i
	}
}

func (c *Cache) Product(id string) (model.Product, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	i, ok := c.index[id]
	if !ok {
		return model.Product{}, false
	}
	return c.products[i], true
}

func (c *Cache) Products() []model.Product {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]model.Product(nil), c.products...)
}

func (c *Cache) Categories() []model.Category {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]model.Category(nil), c.categories...)
}

// ByCategory accepts a category id or slug and matches products whose
// category reference is that category's id or name.
func (c *Cache) ByCategory(idOrSlug string) ([]model.Product, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var cat *model.Category
	for i := range c.categories {
		if c.categories[i].ID == idOrSlug || c.categories[i].Slug == idOrSlug {
			cat = &c.categories[i]
			break
		}
	}
	if cat == nil {
		return nil, apperr.NotFound("category %s not found", idOrSlug)
	}
	var out []model.Product
	for _, p := range c.products {
		if p.Category == cat.ID || strings.EqualFold(p.Category, cat.Name) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (c *Cache) FetchedAt() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.fetchedAt
}

// Stale reports whether the cache is older than maxAge or was never filled.
func (c *Cache) Stale(maxAge time.Duration) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.fetchedAt.IsZero() || c.now().Sub(c.fetchedAt) > maxAge
}

// Apply replaces the given products by id. The snapshot is written first and
// memory is only swapped once the write succeeded, so a failed Apply changes
// nothing.
func (c *Cache) Apply(ctx context.Context, changed []model.Product) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	next := append([]model.Product(nil), c.products...)
	for _, p := range changed {
		i, ok := c.index[p.ID]
		if !ok {
			return apperr.NotFound("product %s not found", p.ID)
		}
		next[i] = p
	}
	if err := store.Save(ctx, c.kv, c.keys.Catalog(), snapshot{Products: next, Categories: c.categories, FetchedAt: c.fetchedAt}); err != nil {
		return fmt.Errorf("catalog: persist: %w", err)
	}
	c.products = next
	return nil
}
