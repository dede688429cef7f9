package review

import (
	"context"
	"strings"

	"github.com/ariefcatur/toy-session-engine/internal/apperr"
	"github.com/ariefcatur/toy-session-engine/internal/model"
)

const (
	MinRating = 1
	MaxRating = 5
)

type API interface {
	ListReviews(ctx context.Context, productID string) ([]model.Review, error)
	AddReview(ctx context.Context, productID, userID string, rating int, comment string) (model.Review, error)
}

type Identity interface {
	Current() (model.User, bool)
}

type Service struct {
	api API
	who Identity
}

func New(api API, who Identity) *Service {
	return &Service{api: api, who: who}
}

func (s *Service) List(ctx context.Context, productID string) ([]model.Review, error) {
	return s.api.ListReviews(ctx, productID)
}

func (s *Service) Submit(ctx context.Context, productID string, rating int, comment string) (model.Review, error) {
	u, ok := s.who.Current()
	if !ok {
		return model.Review{}, apperr.AuthRequired("please log in to write a review")
	}
	if rating < MinRating || rating > MaxRating {
		return model.Review{}, apperr.Validation("rating must be between %d and %d", MinRating, MaxRating)
	}
	return s.api.AddReview(ctx, productID, u.ID, rating, strings.TrimSpace(comment))
}
