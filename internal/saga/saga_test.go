package saga

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/ariefcatur/toy-session-engine/internal/logger"
)

func recordingStep(name string, trace *[]string, fail bool) Step {
	return Func{
		StepName: name,
		Do: func(context.Context) error {
			*trace = append(*trace, "do:"+name)
			if fail {
				return errors.New(name + " failed")
			}
			return nil
		},
		Undo: func(context.Context) error {
			*trace = append(*trace, "undo:"+name)
			return nil
		},
	}
}

func TestOrchestratorCompensatesInReverse(t *testing.T) {
	var trace []string
	o := NewOrchestrator(logger.Discard(),
		recordingStep("a", &trace, false),
		recordingStep("b", &trace, false),
		recordingStep("c", &trace, true),
	)

	err := o.Run(context.Background())
	if err == nil || err.Error() != "c failed" {
		t.Fatalf("Run = %v, want c failed", err)
	}
	want := []string{"do:a", "do:b", "do:c", "undo:b", "undo:a"}
	if !reflect.DeepEqual(trace, want) {
		t.Fatalf("trace = %v, want %v", trace, want)
	}
}

func TestOrchestratorSuccessRunsNoCompensation(t *testing.T) {
	var trace []string
	o := NewOrchestrator(logger.Discard(), recordingStep("a", &trace, false), Func{
		StepName: "no-undo",
		Do:       func(context.Context) error { return nil },
	})
	if err := o.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !reflect.DeepEqual(trace, []string{"do:a"}) {
		t.Fatalf("trace = %v", trace)
	}
}

func TestCommandStates(t *testing.T) {
	t.Run("commit ok -> applied", func(t *testing.T) {
		v := "old"
		c := &Command{
			Name:   "set",
			Apply:  func() { v = "new" },
			Commit: func(context.Context) error { return nil },
			Revert: func() { v = "old" },
		}
		if err := c.Run(context.Background()); err != nil {
			t.Fatalf("Run: %v", err)
		}
		if c.State() != StateApplied || v != "new" {
			t.Fatalf("state = %s, v = %s", c.State(), v)
		}
		if err := c.Run(context.Background()); err == nil {
			t.Fatal("second Run must be refused")
		}
	})

	t.Run("commit fails -> rolled-back and reconciled", func(t *testing.T) {
		v := "old"
		reconciled := false
		boom := errors.New("boom")
		c := &Command{
			Name:      "set",
			Apply:     func() { v = "new" },
			Commit:    func(context.Context) error { return boom },
			Revert:    func() { v = "old" },
			Reconcile: func(context.Context) error { reconciled = true; return errors.New("offline") },
			Log:       logger.Discard(),
		}
		if err := c.Run(context.Background()); !errors.Is(err, boom) {
			t.Fatalf("Run = %v", err)
		}
		if c.State() != StateRolledBack || v != "old" || !reconciled || !errors.Is(c.Err(), boom) {
			t.Fatalf("state = %s, v = %s, reconciled = %v", c.State(), v, reconciled)
		}
	})
}
