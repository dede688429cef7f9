package wishlist

import (
	"context"
	"log/slog"
	"slices"
	"sync"

	"github.com/ariefcatur/toy-session-engine/internal/apperr"
	"github.com/ariefcatur/toy-session-engine/internal/model"
)

type API interface {
	GetWishlist(ctx context.Context, userID string) ([]string, error)
	AddToWishlist(ctx context.Context, userID, productID string) ([]string, error)
	RemoveFromWishlist(ctx context.Context, userID, productID string) ([]string, error)
}

// Identity tells the synchronizer who is signed in.
type Identity interface {
	Current() (model.User, bool)
}

// Syncer mirrors the signed in user's wishlist. The local list only changes
// to whatever the server answered with.
type Syncer struct {
	api API
	who Identity
	log *slog.Logger

	mu  sync.RWMutex
	ids []string
}

func New(api API, log *slog.Logger) *Syncer {
	if log == nil {
		log = slog.Default()
	}
	return &Syncer{api: api, log: log}
}

// Bind sets the identity source. It is separate from New because the session
// needs the syncer before it exists.
func (s *Syncer) Bind(who Identity) { s.who = who }

func (s *Syncer) user() (model.User, error) {
	if s.who != nil {
		if u, ok := s.who.Current(); ok {
			return u, nil
		}
	}
	return model.User{}, apperr.AuthRequired("please log in to use your wishlist")
}

// Toggle adds productID when it is not listed and removes it otherwise.
// added reports the new membership.
func (s *Syncer) Toggle(ctx context.Context, productID string) (added bool, err error) {
	u, err := s.user()
	if err != nil {
		return false, err
	}

	var ids []string
	if s.Contains(productID) {
		ids, err = s.api.RemoveFromWishlist(ctx, u.ID, productID)
	} else {
		ids, err = s.api.AddToWishlist(ctx, u.ID, productID)
	}
	if err != nil {
		s.log.WarnContext(ctx, "wishlist toggle failed", "product_id", productID, "err", err)
		return false, err
	}
	s.Replace(ids)
	return slices.Contains(ids, productID), nil
}

func (s *Syncer) Fetch(ctx context.Context) ([]string, error) {
	u, err := s.user()
	if err != nil {
		return nil, err
	}
	ids, err := s.api.GetWishlist(ctx, u.ID)
	if err != nil {
		return nil, err
	}
	s.Replace(ids)
	return s.IDs(), nil
}

// Replace seeds the list, keeping the first occurrence of a repeated id.
func (s *Syncer) Replace(ids []string) {
	out := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ids = out
}

func (s *Syncer) Contains(productID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Contains(s.ids, productID)
}

func (s *Syncer) IDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string{}, s.ids...)
}

func (s *Syncer) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ids = nil
}
