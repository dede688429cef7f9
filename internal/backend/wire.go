package backend

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ariefcatur/toy-session-engine/internal/model"
)

// ref is a document reference the service sends either as a bare id string
// or as a populated object carrying _id.
type ref string

func (r *ref) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		*r = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*r = ref(s)
		return nil
	}
	var obj struct {
		ID    string `json:"_id"`
		AltID string `json:"id"`
		Name  string `json:"name"`
	}
	if err := json.Unmarshal(b, &obj); err != nil {
		return err
	}
	switch {
	case obj.ID != "":
		*r = ref(obj.ID)
	case obj.AltID != "":
		*r = ref(obj.AltID)
	default:
		*r = ref(obj.Name)
	}
	return nil
}

func refsToIDs(rs []ref) []string {
	out := make([]string, 0, len(rs))
	seen := make(map[string]bool, len(rs))
	for _, r := range rs {
		id := string(r)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

type productDTO struct {
	ID           string          `json:"_id"`
	AltID        string          `json:"id"`
	Name         string          `json:"name"`
	Title        string          `json:"title"`
	Price        decimal.Decimal `json:"price"`
	CountInStock *int            `json:"countInStock"`
	Copies       *int            `json:"copies"`
	Category     ref             `json:"category"`
	Rating       float64         `json:"rating"`
	Image        string          `json:"image"`
	Cover        string          `json:"cover"`
}

func (p productDTO) toModel() model.Product {
	out := model.Product{
		ID:       firstNonEmpty(p.ID, p.AltID),
		Name:     firstNonEmpty(p.Name, p.Title),
		Price:    p.Price,
		Category: string(p.Category),
		Rating:   p.Rating,
		Image:    firstNonEmpty(p.Image, p.Cover),
	}
	switch {
	case p.CountInStock != nil:
		out.Stock = *p.CountInStock
	case p.Copies != nil:
		out.Stock = *p.Copies
	}
	if out.Stock < 0 {
		out.Stock = 0
	}
	out.Availability = model.AvailabilityFromStock(out.Stock)
	return out
}

type categoryDTO struct {
	ID   string `json:"_id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

type userDTO struct {
	ID       string `json:"_id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	IsAdmin  bool   `json:"isAdmin"`
	Token    string `json:"token"`
	Wishlist []ref  `json:"wishlist"`
}

func (u userDTO) toModel() model.User {
	role := model.RoleUser
	if u.IsAdmin {
		role = model.RoleAdmin
	}
	return model.User{ID: u.ID, Name: u.Name, Email: u.Email, Role: role, Token: u.Token}
}

type orderItemDTO struct {
	Name    string          `json:"name"`
	Qty     int             `json:"qty"`
	Image   string          `json:"image,omitempty"`
	Price   decimal.Decimal `json:"price"`
	Product ref             `json:"product"`
}

type addressDTO struct {
	Address    string `json:"address"`
	City       string `json:"city"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country"`
}

type orderDTO struct {
	ID                string          `json:"_id"`
	TrackingNumber    string          `json:"trackingNumber"`
	User              ref             `json:"user"`
	OrderItems        []orderItemDTO  `json:"orderItems"`
	ShippingAddress   addressDTO      `json:"shippingAddress"`
	PhoneNumber       string          `json:"phoneNumber"`
	ItemsPrice        decimal.Decimal `json:"itemsPrice"`
	ShippingPrice     decimal.Decimal `json:"shippingPrice"`
	GiftWrapping      ref             `json:"giftWrapping"`
	GiftWrappingPrice decimal.Decimal `json:"giftWrappingPrice"`
	TotalPrice        decimal.Decimal `json:"totalPrice"`
	OrderStatus       string          `json:"orderStatus"`
	CreatedAt         time.Time       `json:"createdAt"`
}

func (o orderDTO) toModel() model.Order {
	lines := make([]model.OrderLine, 0, len(o.OrderItems))
	for _, it := range o.OrderItems {
		lines = append(lines, model.OrderLine{
			Name: it.Name, Qty: it.Qty, Image: it.Image, Price: it.Price, ProductID: string(it.Product),
		})
	}
	return model.Order{
		ID:              o.ID,
		TrackingNumber:  o.TrackingNumber,
		UserID:          string(o.User),
		Lines:           lines,
		ShippingAddress: model.Address(o.ShippingAddress),
		PhoneNumber:     o.PhoneNumber,
		ItemsPrice:      o.ItemsPrice,
		ShippingPrice:   o.ShippingPrice,
		GiftWrapID:      string(o.GiftWrapping),
		GiftWrapPrice:   o.GiftWrappingPrice,
		TotalPrice:      o.TotalPrice,
		Status:          model.OrderStatus(o.OrderStatus),
		CreatedAt:       o.CreatedAt,
	}
}

// createOrderBody mirrors what the storefront posts to /api/orders. Money is
// sent as JSON numbers.
type createOrderBody struct {
	User         string `json:"user"`
	CustomerInfo struct {
		PhoneNumber string `json:"phoneNumber"`
		Address     string `json:"address"`
		City        string `json:"city"`
		PostalCode  string `json:"postalCode"`
	} `json:"customerInfo"`
	OrderItems        []orderItemBody `json:"orderItems"`
	ShippingAddress   addressDTO      `json:"shippingAddress"`
	PhoneNumber       string          `json:"phoneNumber"`
	ItemsPrice        float64         `json:"itemsPrice"`
	ShippingPrice     float64         `json:"shippingPrice"`
	GiftWrapping      *string         `json:"giftWrapping"`
	GiftWrappingPrice float64         `json:"giftWrappingPrice"`
	TotalPrice        float64         `json:"totalPrice"`
}

type orderItemBody struct {
	Name    string  `json:"name"`
	Qty     int     `json:"qty"`
	Image   string  `json:"image,omitempty"`
	Price   float64 `json:"price"`
	Product string  `json:"product"`
}

const shippingCountry = "Pakistan"

func newCreateOrderBody(d model.OrderDraft) createOrderBody {
	var b createOrderBody
	b.User = d.UserID
	b.CustomerInfo.PhoneNumber = d.Delivery.PhoneNumber
	b.CustomerInfo.Address = d.Delivery.Address
	b.CustomerInfo.City = d.Delivery.City
	b.CustomerInfo.PostalCode = d.Delivery.PostalCode
	b.ShippingAddress = addressDTO{
		Address:    d.Delivery.Address,
		City:       d.Delivery.City,
		PostalCode: d.Delivery.PostalCode,
		Country:    shippingCountry,
	}
	b.PhoneNumber = d.Delivery.PhoneNumber
	for _, l := range d.Lines {
		b.OrderItems = append(b.OrderItems, orderItemBody{
			Name: l.Name, Qty: l.Qty, Image: l.Image, Price: l.Price.InexactFloat64(), Product: l.ProductID,
		})
	}
	b.ItemsPrice = d.ItemsPrice.InexactFloat64()
	b.ShippingPrice = d.ShippingPrice.InexactFloat64()
	if d.GiftWrapID != "" {
		id := d.GiftWrapID
		b.GiftWrapping = &id
	}
	b.GiftWrappingPrice = d.GiftWrapPrice.InexactFloat64()
	b.TotalPrice = d.TotalPrice.InexactFloat64()
	return b
}

type trackingDTO struct {
	Status    string    `json:"status"`
	Notes     string    `json:"notes"`
	UpdatedBy ref       `json:"updatedBy"`
	CreatedAt time.Time `json:"createdAt"`
}

type giftWrapDTO struct {
	ID          string          `json:"_id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Image       string          `json:"image"`
}

type reviewDTO struct {
	ID        string    `json:"_id"`
	Name      string    `json:"name"`
	User      ref       `json:"user"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"createdAt"`
}

func (r reviewDTO) toModel() model.Review {
	return model.Review{
		ID:        r.ID,
		Name:      firstNonEmpty(r.Name, string(r.User)),
		Rating:    r.Rating,
		Comment:   r.Comment,
		CreatedAt: r.CreatedAt,
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
