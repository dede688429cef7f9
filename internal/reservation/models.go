package reservation

import "time"

// ExtensionDays is how far a single extension pushes an item's due date.
const ExtensionDays = 7

type Item struct {
	ProductID  string     `json:"productId"`
	Quantity   int        `json:"quantity"`
	Held       int        `json:"held"` // units actually taken off stock at confirm
	PickupDate time.Time  `json:"pickupDate"`
	Duration   int        `json:"duration"` // days
	DueDate    time.Time  `json:"dueDate"`
	Extended   bool       `json:"extended"`
	Status     ItemStatus `json:"status"`
	BorrowedAt *time.Time `json:"borrowedAt,omitempty"`
}

type Reservation struct {
	ID        string     `json:"id"`
	Items     []Item     `json:"items"`
	Status    Status     `json:"status"`
	CreatedAt time.Time  `json:"createdAt"`
	PickedAt  *time.Time `json:"pickedAt,omitempty"`
}

func (r Reservation) clone() Reservation {
	r.Items = append([]Item(nil), r.Items...)
	return r
}

func (r Reservation) item(productID string) int {
	for i, it := range r.Items {
		if it.ProductID == productID {
			return i
		}
	}
	return -1
}

// PlanEntry is the shopper's pickup choice for one cart line.
type PlanEntry struct {
	ProductID  string    `json:"productId"`
	PickupDate time.Time `json:"pickupDate"`
	Duration   int       `json:"duration"`
}

type Plan []PlanEntry

func (p Plan) lookup(productID string) (PlanEntry, bool) {
	for _, e := range p {
		if e.ProductID == productID {
			return e, true
		}
	}
	return PlanEntry{}, false
}

// DueDate is pickup plus the given number of calendar days.
func DueDate(pickup time.Time, days int) time.Time {
	return pickup.AddDate(0, 0, days)
}
