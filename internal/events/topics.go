package events

const (
	TopicReservation = "session.reservation"
	TopicOrder       = "session.order"
)

// TopicFor routes an event type to its topic family.
func TopicFor(eventType string) string {
	switch eventType {
	case EventOrderPlaced, EventOrderStatusChanged:
		return TopicOrder
	default:
		return TopicReservation
	}
}

// PartitionKey keeps all events of one reservation or order in order.
func PartitionKey(id string) []byte { return []byte(id) }
