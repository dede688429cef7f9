package reservation

type Status string

const (
	StatusPending   Status = "pending"
	StatusPickedUp  Status = "picked-up"
	StatusCancelled Status = "cancelled"
)

var validNext = map[Status]map[Status]bool{
	StatusPending:   {StatusPickedUp: true, StatusCancelled: true},
	StatusPickedUp:  {},
	StatusCancelled: {},
}

func CanTransition(from, to Status) bool {
	return validNext[from][to]
}

// Active reservations still hold their products.
func (s Status) Active() bool {
	return s == StatusPending || s == StatusPickedUp
}

type ItemStatus string

const (
	ItemPending  ItemStatus = "pending"
	ItemBorrowed ItemStatus = "borrowed"
)

var validItemNext = map[ItemStatus]map[ItemStatus]bool{
	ItemPending:  {ItemBorrowed: true},
	ItemBorrowed: {},
}

func CanTransitionItem(from, to ItemStatus) bool {
	return validItemNext[from][to]
}
