package backend

import (
	"context"
	"net/http"
	"net/url"

	"github.com/ariefcatur/toy-session-engine/internal/model"
)

// Login returns the user and the wishlist ids the service embeds in the
// login response.
func (c *Client) Login(ctx context.Context, email, password string) (model.User, []string, error) {
	var dto userDTO
	body := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, "users.login", http.MethodPost, "/api/users/login", body, &dto); err != nil {
		return model.User{}, nil, err
	}
	return dto.toModel(), refsToIDs(dto.Wishlist), nil
}

func (c *Client) Register(ctx context.Context, name, email, password string) (model.User, []string, error) {
	var dto userDTO
	body := map[string]string{"name": name, "email": email, "password": password}
	if err := c.do(ctx, "users.register", http.MethodPost, "/api/users", body, &dto); err != nil {
		return model.User{}, nil, err
	}
	return dto.toModel(), refsToIDs(dto.Wishlist), nil
}

func wishlistPath(userID string) string {
	return "/api/users/" + url.PathEscape(userID) + "/wishlist"
}

func (c *Client) GetWishlist(ctx context.Context, userID string) ([]string, error) {
	var refs []ref
	if err := c.do(ctx, "wishlist.get", http.MethodGet, wishlistPath(userID), nil, &refs); err != nil {
		return nil, err
	}
	return refsToIDs(refs), nil
}

func (c *Client) AddToWishlist(ctx context.Context, userID, productID string) ([]string, error) {
	var refs []ref
	body := map[string]string{"productId": productID}
	if err := c.do(ctx, "wishlist.add", http.MethodPost, wishlistPath(userID), body, &refs); err != nil {
		return nil, err
	}
	return refsToIDs(refs), nil
}

func (c *Client) RemoveFromWishlist(ctx context.Context, userID, productID string) ([]string, error) {
	var refs []ref
	path := wishlistPath(userID) + "/" + url.PathEscape(productID)
	if err := c.do(ctx, "wishlist.remove", http.MethodDelete, path, nil, &refs); err != nil {
		return nil, err
	}
	return refsToIDs(refs), nil
}
