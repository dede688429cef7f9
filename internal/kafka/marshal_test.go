package kafka

import (
	"testing"

	"github.com/ariefcatur/toy-session-engine/internal/events"
)

func TestDecodeEnvelopeAndPayload(t *testing.T) {
	raw := MustMarshal(events.Envelope{
		EventID:   "e1",
		EventType: events.EventReservationExtended,
		Payload:   MustMarshal(events.ReservationExtendedPayload{ReservationID: "r1", ProductID: "p1"}),
	})

	env, err := DecodeEnvelope(raw)
	if err != nil {
		t.Fatalf("DecodeEnvelope: %v", err)
	}
	p, err := UnwrapPayload[events.ReservationExtendedPayload](env.Payload)
	if err != nil {
		t.Fatalf("UnwrapPayload: %v", err)
	}
	if p.ProductID != "p1" || env.EventType != events.EventReservationExtended {
		t.Fatalf("got %+v / %+v", env, p)
	}
}

func TestDecodeEnvelopeRejectsGarbage(t *testing.T) {
	if _, err := DecodeEnvelope([]byte("nope")); err == nil {
		t.Fatal("expected error")
	}
}

func TestMustMarshalPanicsOnUnsupported(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic")
		}
	}()
	MustMarshal(make(chan int))
}
