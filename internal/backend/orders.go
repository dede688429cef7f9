package backend

import (
	"context"
	"net/http"
	"net/url"

	"github.com/ariefcatur/toy-session-engine/internal/model"
)

func (c *Client) CreateOrder(ctx context.Context, d model.OrderDraft) (model.Order, error) {
	var dto orderDTO
	if err := c.do(ctx, "orders.create", http.MethodPost, "/api/orders", newCreateOrderBody(d), &dto); err != nil {
		return model.Order{}, err
	}
	return dto.toModel(), nil
}

func (c *Client) ListOrders(ctx context.Context) ([]model.Order, error) {
	var dtos []orderDTO
	if err := c.do(ctx, "orders.list", http.MethodGet, "/api/orders", nil, &dtos); err != nil {
		return nil, err
	}
	out := make([]model.Order, 0, len(dtos))
	for _, d := range dtos {
		out = append(out, d.toModel())
	}
	return out, nil
}

func (c *Client) GetOrder(ctx context.Context, orderID string) (model.Order, error) {
	var dto orderDTO
	if err := c.do(ctx, "orders.get", http.MethodGet, "/api/orders/"+url.PathEscape(orderID), nil, &dto); err != nil {
		return model.Order{}, err
	}
	return dto.toModel(), nil
}

func (c *Client) GetOrderByTrackingNumber(ctx context.Context, trackingNumber string) (model.Order, error) {
	var dto orderDTO
	path := "/api/orders/track/" + url.PathEscape(trackingNumber)
	if err := c.do(ctx, "orders.track", http.MethodGet, path, nil, &dto); err != nil {
		return model.Order{}, err
	}
	return dto.toModel(), nil
}

func (c *Client) GetOrderTracking(ctx context.Context, orderID string) ([]model.TrackingEntry, error) {
	var dtos []trackingDTO
	path := "/api/orders/" + url.PathEscape(orderID) + "/tracking"
	if err := c.do(ctx, "orders.tracking", http.MethodGet, path, nil, &dtos); err != nil {
		return nil, err
	}
	out := make([]model.TrackingEntry, 0, len(dtos))
	for _, d := range dtos {
		out = append(out, model.TrackingEntry{
			Status:    model.OrderStatus(d.Status),
			Notes:     d.Notes,
			UpdatedBy: string(d.UpdatedBy),
			CreatedAt: d.CreatedAt,
		})
	}
	return out, nil
}

// UpdateOrderStatus returns the updated order when the service echoes it.
func (c *Client) UpdateOrderStatus(ctx context.Context, orderID string, status model.OrderStatus, notes, updatedBy string) (model.Order, error) {
	var resp struct {
		Order orderDTO `json:"order"`
	}
	body := map[string]string{"status": string(status), "notes": notes, "updatedBy": updatedBy}
	path := "/api/orders/" + url.PathEscape(orderID) + "/status"
	if err := c.do(ctx, "orders.status", http.MethodPut, path, body, &resp); err != nil {
		return model.Order{}, err
	}
	return resp.Order.toModel(), nil
}

func (c *Client) ListGiftWraps(ctx context.Context) ([]model.GiftWrap, error) {
	var dtos []giftWrapDTO
	if err := c.do(ctx, "giftwraps.list", http.MethodGet, "/api/giftwraps", nil, &dtos); err != nil {
		return nil, err
	}
	out := make([]model.GiftWrap, 0, len(dtos))
	for _, d := range dtos {
		out = append(out, model.GiftWrap{ID: d.ID, Name: d.Name, Description: d.Description, Price: d.Price, Image: d.Image})
	}
	return out, nil
}
