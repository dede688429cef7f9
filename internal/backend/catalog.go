package backend

import (
	"context"
	"net/http"
	"net/url"

	"github.com/ariefcatur/toy-session-engine/internal/model"
)

func (c *Client) ListProducts(ctx context.Context) ([]model.Product, error) {
	var dtos []productDTO
	if err := c.do(ctx, "products.list", http.MethodGet, "/api/products", nil, &dtos); err != nil {
		return nil, err
	}
	out := make([]model.Product, 0, len(dtos))
	for _, d := range dtos {
		out = append(out, d.toModel())
	}
	return out, nil
}

func (c *Client) ListCategories(ctx context.Context) ([]model.Category, error) {
	var dtos []categoryDTO
	if err := c.do(ctx, "categories.list", http.MethodGet, "/api/categories", nil, &dtos); err != nil {
		return nil, err
	}
	out := make([]model.Category, 0, len(dtos))
	for _, d := range dtos {
		out = append(out, model.Category{ID: d.ID, Name: d.Name, Slug: d.Slug})
	}
	return out, nil
}

func (c *Client) ListReviews(ctx context.Context, productID string) ([]model.Review, error) {
	var dtos []reviewDTO
	path := "/api/products/" + url.PathEscape(productID) + "/reviews"
	if err := c.do(ctx, "reviews.list", http.MethodGet, path, nil, &dtos); err != nil {
		return nil, err
	}
	out := make([]model.Review, 0, len(dtos))
	for _, d := range dtos {
		out = append(out, d.toModel())
	}
	return out, nil
}

func (c *Client) AddReview(ctx context.Context, productID, userID string, rating int, comment string) (model.Review, error) {
	body := map[string]any{"rating": rating, "comment": comment, "userId": userID}
	var dto reviewDTO
	path := "/api/products/" + url.PathEscape(productID) + "/reviews"
	if err := c.do(ctx, "reviews.add", http.MethodPost, path, body, &dto); err != nil {
		return model.Review{}, err
	}
	r := dto.toModel()
	if r.Rating == 0 {
		r.Rating, r.Comment = rating, comment
	}
	return r, nil
}
