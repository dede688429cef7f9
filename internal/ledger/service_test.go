package ledger

import (
	"context"
	"errors"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/ariefcatur/toy-session-engine/internal/events"
	kafkax "github.com/ariefcatur/toy-session-engine/internal/kafka"
	"github.com/ariefcatur/toy-session-engine/internal/logger"
)

type fakeRepo struct {
	rows map[string]events.Envelope
	err  error
}

func (f *fakeRepo) Record(_ context.Context, env events.Envelope) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	if _, dup := f.rows[env.EventID]; dup {
		return false, nil
	}
	f.rows[env.EventID] = env
	return true, nil
}

type fakeDedup struct {
	claimed  map[string]bool
	released []string
}

func (f *fakeDedup) Claim(_ context.Context, id string) (bool, error) {
	if f.claimed[id] {
		return false, nil
	}
	f.claimed[id] = true
	return true, nil
}

func (f *fakeDedup) Release(_ context.Context, id string) error {
	delete(f.claimed, id)
	f.released = append(f.released, id)
	return nil
}

func message(t *testing.T, id, eventType string, payload any) kafkago.Message {
	t.Helper()
	env := events.Envelope{
		EventID:       id,
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      "test",
		CorrelationID: "r1",
		Payload:       kafkax.MustMarshal(payload),
	}
	return kafkago.Message{Topic: events.TopicFor(eventType), Value: kafkax.MustMarshal(env)}
}

func newService() (*Service, *fakeRepo, *fakeDedup) {
	repo := &fakeRepo{rows: map[string]events.Envelope{}}
	dd := &fakeDedup{claimed: map[string]bool{}}
	return &Service{Repo: repo, Dedup: dd, Log: logger.Discard()}, repo, dd
}

func TestHandleEventRecordsOnce(t *testing.T) {
	svc, repo, _ := newService()
	ctx := context.Background()
	m := message(t, "e1", events.EventReservationExtended, events.ReservationExtendedPayload{
		ReservationID: "r1", ProductID: "p1", DueDate: time.Date(2026, 3, 16, 0, 0, 0, 0, time.UTC),
	})

	for i := 0; i < 2; i++ {
		if err := svc.HandleEvent(ctx, m); err != nil {
			t.Fatalf("delivery %d: %v", i, err)
		}
	}
	if len(repo.rows) != 1 {
		t.Fatalf("rows = %d, want 1", len(repo.rows))
	}
}

func TestHandleEventSkipsUnknownAndGarbage(t *testing.T) {
	svc, repo, _ := newService()
	ctx := context.Background()

	if err := svc.HandleEvent(ctx, kafkago.Message{Value: []byte("{not json")}); err != nil {
		t.Fatalf("garbage: %v", err)
	}
	if err := svc.HandleEvent(ctx, message(t, "e2", "SomethingElse", struct{}{})); err != nil {
		t.Fatalf("unknown type: %v", err)
	}
	if len(repo.rows) != 0 {
		t.Fatalf("rows = %d, want 0", len(repo.rows))
	}
}

func TestHandleEventFailureReleasesClaim(t *testing.T) {
	svc, repo, dd := newService()
	ctx := context.Background()
	repo.err = errors.New("db down")
	m := message(t, "e3", events.EventOrderPlaced, events.OrderPlacedPayload{OrderID: "o1"})

	if err := svc.HandleEvent(ctx, m); err == nil {
		t.Fatal("want error so the offset is not committed")
	}
	if len(dd.released) != 1 || dd.released[0] != "e3" {
		t.Fatalf("released = %v", dd.released)
	}

	repo.err = nil
	if err := svc.HandleEvent(ctx, m); err != nil {
		t.Fatalf("redelivery: %v", err)
	}
	if len(repo.rows) != 1 {
		t.Fatal("redelivered event was skipped")
	}
}

func TestSummarize(t *testing.T) {
	env := events.Envelope{
		EventType: events.EventOrderStatusChanged,
		Payload:   kafkax.MustMarshal(events.OrderStatusChangedPayload{From: "Pending", To: "Booked", Outcome: "applied"}),
	}
	if got := summarize(env); got != "Pending->Booked applied" {
		t.Fatalf("summarize = %q", got)
	}
}
