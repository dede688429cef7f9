package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Availability is the display state of a product in the session's view.
type Availability string

const (
	Available Availability = "Available"
	Reserved  Availability = "Reserved"
	Borrowed  Availability = "Borrowed"
)

type Product struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Price        decimal.Decimal `json:"price"`
	Stock        int             `json:"stock"`
	Category     string          `json:"category"`
	Rating       float64         `json:"rating"`
	Image        string          `json:"image,omitempty"`
	Availability Availability    `json:"availability"`
}

// AvailabilityFromStock is the state a product takes when nothing else
// (a pickup) has marked it.
func AvailabilityFromStock(stock int) Availability {
	if stock > 0 {
		return Available
	}
	return Reserved
}

type Category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug,omitempty"`
}

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  Role   `json:"role"`
	Token string `json:"token,omitempty"`
}

func (u *User) IsAdmin() bool { return u != nil && u.Role == RoleAdmin }

type OrderStatus string

const (
	OrderPending   OrderStatus = "Pending"
	OrderBooked    OrderStatus = "Booked"
	OrderInRoute   OrderStatus = "In Route"
	OrderDelivered OrderStatus = "Delivered"
)

var orderStatuses = []OrderStatus{OrderPending, OrderBooked, OrderInRoute, OrderDelivered}

func (s OrderStatus) Valid() bool {
	for _, k := range orderStatuses {
		if s == k {
			return true
		}
	}
	return false
}

type Address struct {
	Address    string `json:"address"`
	City       string `json:"city"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country"`
}

type OrderLine struct {
	Name      string          `json:"name"`
	Qty       int             `json:"qty"`
	Image     string          `json:"image,omitempty"`
	Price     decimal.Decimal `json:"price"`
	ProductID string          `json:"product"`
}

type Order struct {
	ID              string          `json:"id"`
	TrackingNumber  string          `json:"trackingNumber"`
	UserID          string          `json:"user,omitempty"`
	Lines           []OrderLine     `json:"orderItems"`
	ShippingAddress Address         `json:"shippingAddress"`
	PhoneNumber     string          `json:"phoneNumber"`
	ItemsPrice      decimal.Decimal `json:"itemsPrice"`
	ShippingPrice   decimal.Decimal `json:"shippingPrice"`
	GiftWrapID      string          `json:"giftWrapping,omitempty"`
	GiftWrapPrice   decimal.Decimal `json:"giftWrappingPrice"`
	TotalPrice      decimal.Decimal `json:"totalPrice"`
	Status          OrderStatus     `json:"orderStatus"`
	CreatedAt       time.Time       `json:"createdAt"`
}

type TrackingEntry struct {
	Status    OrderStatus `json:"status"`
	Notes     string      `json:"notes,omitempty"`
	UpdatedBy string      `json:"updatedBy,omitempty"`
	CreatedAt time.Time   `json:"createdAt"`
}

type GiftWrap struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Price       decimal.Decimal `json:"price"`
	Image       string          `json:"image,omitempty"`
}

type Review struct {
	ID        string    `json:"id,omitempty"`
	Name      string    `json:"name,omitempty"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"createdAt"`
}

// Delivery is what the shopper types at checkout.
type Delivery struct {
	PhoneNumber string `json:"phoneNumber"`
	Address     string `json:"address"`
	City        string `json:"city"`
	PostalCode  string `json:"postalCode"`
}

// OrderDraft is a priced order ready to be submitted.
type OrderDraft struct {
	UserID        string
	Delivery      Delivery
	Lines         []OrderLine
	ItemsPrice    decimal.Decimal
	ShippingPrice decimal.Decimal
	GiftWrapID    string
	GiftWrapPrice decimal.Decimal
	TotalPrice    decimal.Decimal
}
