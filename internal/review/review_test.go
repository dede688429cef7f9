package review

import (
	"context"
	"testing"
	"time"

	"github.com/ariefcatur/toy-session-engine/internal/apperr"
	"github.com/ariefcatur/toy-session-engine/internal/backend"
	"github.com/ariefcatur/toy-session-engine/internal/backend/backendtest"
	"github.com/ariefcatur/toy-session-engine/internal/logger"
	"github.com/ariefcatur/toy-session-engine/internal/model"
)

type who struct{ u *model.User }

func (w who) Current() (model.User, bool) {
	if w.u == nil {
		return model.User{}, false
	}
	return *w.u, true
}

func TestSubmit(t *testing.T) {
	srv := backendtest.New()
	t.Cleanup(srv.Close)
	srv.Users = []*backendtest.User{{ID: "u1", Name: "Ali"}}
	api := backend.New(srv.URL, 2*time.Second, logger.Discard())
	ctx := context.Background()

	tests := []struct {
		name   string
		user   *model.User
		rating int
		kind   apperr.Kind
	}{
		{"anonymous", nil, 4, apperr.KindAuthRequired},
		{"rating too low", &model.User{ID: "u1"}, 0, apperr.KindValidation},
		{"rating too high", &model.User{ID: "u1"}, 6, apperr.KindValidation},
		{"accepted", &model.User{ID: "u1"}, 5, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := New(api, who{tt.user})
			r, err := svc.Submit(ctx, "p1", tt.rating, "  great  ")
			if apperr.KindOf(err) != tt.kind {
				t.Fatalf("err = %v, want kind %q", err, tt.kind)
			}
			if err == nil && (r.Rating != 5 || r.Comment != "great" || r.Name != "Ali") {
				t.Fatalf("review = %+v", r)
			}
		})
	}

	list, err := New(api, who{}).List(ctx, "p1")
	if err != nil || len(list) != 1 {
		t.Fatalf("List = %v, %v", list, err)
	}
	if n := srv.Calls("POST /api/products/{id}/reviews"); n != 1 {
		t.Fatalf("backend saw %d submissions, want 1", n)
	}
}
