package saga

import (
	"context"
	"log/slog"
)

// Step is one unit of a multi-write operation. Compensate undoes Execute.
type Step interface {
	Name() string
	Execute(ctx context.Context) error
	Compensate(ctx context.Context) error
}

// Func adapts two closures into a Step.
type Func struct {
	StepName string
	Do       func(ctx context.Context) error
	Undo     func(ctx context.Context) error
}

func (f Func) Name() string { return f.StepName }

func (f Func) Execute(ctx context.Context) error { return f.Do(ctx) }

func (f Func) Compensate(ctx context.Context) error {
	if f.Undo == nil {
		return nil
	}
	return f.Undo(ctx)
}

type Orchestrator struct {
	steps []Step
	log   *slog.Logger
}

func NewOrchestrator(log *slog.Logger, steps ...Step) *Orchestrator {
	if log == nil {
		log = slog.Default()
	}
	return &Orchestrator{steps: steps, log: log}
}

// Run executes the steps in order. When one fails, the steps that already
// succeeded are compensated in reverse order and the failing error returned.
func (o *Orchestrator) Run(ctx context.Context) error {
	done := make([]Step, 0, len(o.steps))
	for _, step := range o.steps {
		o.log.DebugContext(ctx, "saga step", "step", step.Name())
		if err := step.Execute(ctx); err != nil {
			o.log.WarnContext(ctx, "saga step failed, rolling back", "step", step.Name(), "err", err)
			o.rollback(ctx, done)
			return err
		}
		done = append(done, step)
	}
	return nil
}

func (o *Orchestrator) rollback(ctx context.Context, done []Step) {
	// compensation must run even if the caller's context is already gone
	ctx = context.WithoutCancel(ctx)
	for i := len(done) - 1; i >= 0; i-- {
		if err := done[i].Compensate(ctx); err != nil {
			o.log.ErrorContext(ctx, "compensation failed", "step", done[i].Name(), "err", err)
		}
	}
}
