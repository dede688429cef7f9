// Package ledger consumes the engine's domain events and keeps an
// append-only record of them.
package ledger

import (
	"context"
	"log/slog"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/ariefcatur/toy-session-engine/internal/events"
	kafkax "github.com/ariefcatur/toy-session-engine/internal/kafka"
)

type Recorder interface {
	Record(ctx context.Context, env events.Envelope) (bool, error)
}

type Dedup interface {
	Claim(ctx context.Context, eventID string) (bool, error)
	Release(ctx context.Context, eventID string) error
}

var known = map[string]bool{
	events.EventReservationConfirmed: true,
	events.EventReservationPickedUp:  true,
	events.EventReservationExtended:  true,
	events.EventReservationCancelled: true,
	events.EventOrderPlaced:          true,
	events.EventOrderStatusChanged:   true,
}

type Service struct {
	Repo  Recorder
	Dedup Dedup
	Log   *slog.Logger
}

// HandleEvent is installed as the consumer handler for both topics.
func (s *Service) HandleEvent(ctx context.Context, m kafkago.Message) error {
	env, err := kafkax.DecodeEnvelope(m.Value)
	if err != nil {
		// poison message: committing it is the only way past it
		s.log().ErrorContext(ctx, "drop undecodable message", "topic", m.Topic, "offset", m.Offset, "err", err)
		return nil
	}
	if !known[env.EventType] {
		return nil
	}

	if s.Dedup != nil {
		claimed, err := s.Dedup.Claim(ctx, env.EventID)
		if err != nil {
			// fall through; the insert is idempotent on event_id anyway
			s.log().WarnContext(ctx, "dedup claim", "event_id", env.EventID, "err", err)
		} else if !claimed {
			return nil
		}
	}

	inserted, err := s.Repo.Record(ctx, env)
	if err != nil {
		if s.Dedup != nil {
			if rerr := s.Dedup.Release(context.WithoutCancel(ctx), env.EventID); rerr != nil {
				s.log().WarnContext(ctx, "dedup release", "event_id", env.EventID, "err", rerr)
			}
		}
		return err
	}

	s.log().InfoContext(ctx, "event recorded",
		"event_id", env.EventID,
		"event_type", env.EventType,
		"correlation_id", env.CorrelationID,
		"trace_id", env.TraceID,
		"inserted", inserted,
		"summary", summarize(env),
	)
	return nil
}

// summarize pulls the one detail worth logging out of each payload.
func summarize(env events.Envelope) string {
	switch env.EventType {
	case events.EventOrderStatusChanged:
		p, err := kafkax.UnwrapPayload[events.OrderStatusChangedPayload](env.Payload)
		if err != nil {
			return ""
		}
		return p.From + "->" + p.To + " " + p.Outcome
	case events.EventOrderPlaced:
		p, err := kafkax.UnwrapPayload[events.OrderPlacedPayload](env.Payload)
		if err != nil {
			return ""
		}
		return p.TrackingNumber + " " + p.TotalPrice
	case events.EventReservationExtended:
		p, err := kafkax.UnwrapPayload[events.ReservationExtendedPayload](env.Payload)
		if err != nil {
			return ""
		}
		return p.ProductID + " due " + p.DueDate.Format("2006-01-02")
	}
	return ""
}

func (s *Service) log() *slog.Logger {
	if s.Log != nil {
		return s.Log
	}
	return slog.Default()
}
