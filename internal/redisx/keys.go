package redisx

import (
	"fmt"
	"time"
)

const (
	// dedup:{consumer}:{event_id}
	KeyDedup = "dedup:%s:%s"
)

var TTLDedup = 48 * time.Hour

func DedupKey(consumer, eventID string) string {
	return fmt.Sprintf(KeyDedup, consumer, eventID)
}
