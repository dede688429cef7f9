package events

import (
	"encoding/json"
	"time"
)

const (
	EventReservationConfirmed = "ReservationConfirmed"
	EventReservationPickedUp  = "ReservationPickedUp"
	EventReservationExtended  = "ReservationExtended"
	EventReservationCancelled = "ReservationCancelled"
	EventOrderPlaced          = "OrderPlaced"
	EventOrderStatusChanged   = "OrderStatusChanged"
)

type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"` // reservation or order id
	Payload       json.RawMessage `json:"payload"`
}

type ItemQty struct {
	ProductID string `json:"product_id"`
	Qty       int    `json:"qty"`
}

type ReservationConfirmedPayload struct {
	ReservationID string    `json:"reservation_id"`
	Items         []ItemQty `json:"items"`
}

type ReservationPickedUpPayload struct {
	ReservationID string    `json:"reservation_id"`
	PickedAt      time.Time `json:"picked_at"`
	TotalBorrowed int       `json:"total_borrowed"`
}

type ReservationExtendedPayload struct {
	ReservationID string    `json:"reservation_id"`
	ProductID     string    `json:"product_id"`
	DueDate       time.Time `json:"due_date"`
}

type ReservationCancelledPayload struct {
	ReservationID string    `json:"reservation_id"`
	Restored      []ItemQty `json:"restored"`
}

type OrderPlacedPayload struct {
	OrderID        string `json:"order_id"`
	TrackingNumber string `json:"tracking_number"`
	UserID         string `json:"user_id"`
	TotalPrice     string `json:"total_price"`
	Lines          int    `json:"lines"`
}

type OrderStatusChangedPayload struct {
	OrderID string `json:"order_id"`
	From    string `json:"from"`
	To      string `json:"to"`
	Outcome string `json:"outcome"` // applied | rolled-back
}
