package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
)

// Publisher is the transport the emitter writes envelopes to.
type Publisher interface {
	Publish(topic string, key, value []byte, headers map[string]string)
}

// Emitter builds envelopes for engine events. A nil Emitter is valid and
// drops everything.
type Emitter struct {
	Pub      Publisher
	Producer string
	Log      *slog.Logger
}

func (e *Emitter) Emit(ctx context.Context, eventType, correlationID string, payload any) {
	if e == nil || e.Pub == nil {
		return
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		e.logger().ErrorContext(ctx, "encode event payload", "event_type", eventType, "err", err)
		return
	}
	env := Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      e.Producer,
		CorrelationID: correlationID,
		Payload:       raw,
	}
	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		env.TraceID = sc.TraceID().String()
	}
	b, err := json.Marshal(env)
	if err != nil {
		e.logger().ErrorContext(ctx, "encode envelope", "event_type", eventType, "err", err)
		return
	}
	e.Pub.Publish(TopicFor(eventType), PartitionKey(correlationID), b, map[string]string{
		"x-event-type":    eventType,
		"x-event-version": fmt.Sprint(env.EventVersion),
	})
}

func (e *Emitter) logger() *slog.Logger {
	if e.Log != nil {
		return e.Log
	}
	return slog.Default()
}

// Recorder is an in-memory Publisher that keeps every envelope it receives.
type Recorder struct {
	mu   sync.Mutex
	Sent []Envelope
}

func (r *Recorder) Publish(_ string, _, value []byte, _ map[string]string) {
	var env Envelope
	if err := json.Unmarshal(value, &env); err != nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Sent = append(r.Sent, env)
}

func (r *Recorder) Types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.Sent))
	for _, env := range r.Sent {
		out = append(out, env.EventType)
	}
	return out
}
