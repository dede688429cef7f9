package session

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/ariefcatur/toy-session-engine/internal/apperr"
	"github.com/ariefcatur/toy-session-engine/internal/model"
	"github.com/ariefcatur/toy-session-engine/internal/store"
)

type API interface {
	Login(ctx context.Context, email, password string) (model.User, []string, error)
	Register(ctx context.Context, name, email, password string) (model.User, []string, error)
}

type Wishlist interface {
	Replace(ids []string)
	Clear()
}

type CartClearer interface {
	Clear(ctx context.Context) error
}

type Session struct {
	api      API
	wishlist Wishlist
	cart     CartClearer
	kv       store.KV
	keys     store.Keys
	log      *slog.Logger

	mu   sync.RWMutex
	user *model.User
}

func New(api API, wl Wishlist, c CartClearer, kv store.KV, keys store.Keys, log *slog.Logger) *Session {
	if log == nil {
		log = slog.Default()
	}
	return &Session{api: api, wishlist: wl, cart: c, kv: kv, keys: keys, log: log}
}

func (s *Session) Load(ctx context.Context) error {
	var u model.User
	found, err := store.Load(ctx, s.kv, s.keys.User(), &u)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if found && u.ID != "" {
		s.user = &u
	} else {
		s.user = nil
	}
	return nil
}

// Current returns the signed in user.
func (s *Session) Current() (model.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return model.User{}, false
	}
	return *s.user, true
}

func (s *Session) Login(ctx context.Context, email, password string) (model.User, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return model.User{}, apperr.Validation("email and password are required")
	}
	u, wl, err := s.api.Login(ctx, email, password)
	if err != nil {
		return model.User{}, err
	}
	return u, s.establish(ctx, u, wl)
}

func (s *Session) Register(ctx context.Context, name, email, password string) (model.User, error) {
	name, email = strings.TrimSpace(name), strings.TrimSpace(email)
	if name == "" || email == "" || password == "" {
		return model.User{}, apperr.Validation("name, email and password are required")
	}
	u, wl, err := s.api.Register(ctx, name, email, password)
	if err != nil {
		return model.User{}, err
	}
	return u, s.establish(ctx, u, wl)
}

func (s *Session) establish(ctx context.Context, u model.User, wishlist []string) error {
	if err := store.Save(ctx, s.kv, s.keys.User(), u); err != nil {
		return err
	}
	s.mu.Lock()
	s.user = &u
	s.mu.Unlock()

	s.wishlist.Replace(wishlist)
	s.log.InfoContext(ctx, "session started", "user_id", u.ID, "role", u.Role)
	return nil
}

// Logout drops the cart first, then forgets the user and the wishlist. A
// failed cart clear leaves the session signed in so Logout can be retried.
func (s *Session) Logout(ctx context.Context) error {
	if err := s.cart.Clear(ctx); err != nil {
		return err
	}
	if err := store.Remove(ctx, s.kv, s.keys.User()); err != nil {
		return err
	}
	s.mu.Lock()
	s.user = nil
	s.mu.Unlock()

	s.wishlist.Clear()
	return nil
}
