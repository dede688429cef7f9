package saga

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

type State string

const (
	StatePending    State = "pending"
	StateApplied    State = "applied"
	StateRolledBack State = "rolled-back"
)

// Command is an optimistic change: Apply shows it locally straight away,
// Commit makes it real remotely. If Commit fails, Revert undoes the local
// change and Reconcile re-reads the remote truth.
type Command struct {
	Name      string
	Apply     func()
	Commit    func(ctx context.Context) error
	Revert    func()
	Reconcile func(ctx context.Context) error
	Log       *slog.Logger

	mu    sync.Mutex
	state State
	err   error
}

func (c *Command) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Err is the Commit error of a rolled-back command.
func (c *Command) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Run may be called once. It returns the Commit error; a Reconcile failure
// is logged, since the rollback already restored a consistent local view.
func (c *Command) Run(ctx context.Context) error {
	c.mu.Lock()
	if c.state != "" {
		c.mu.Unlock()
		return fmt.Errorf("saga: command %s already ran (%s)", c.Name, c.state)
	}
	c.state = StatePending
	c.mu.Unlock()

	if c.Apply != nil {
		c.Apply()
	}
	err := c.Commit(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err == nil {
		c.state = StateApplied
		return nil
	}
	c.err = err
	if c.Revert != nil {
		c.Revert()
	}
	c.state = StateRolledBack
	if c.Reconcile != nil {
		if rerr := c.Reconcile(context.WithoutCancel(ctx)); rerr != nil {
			c.logger().WarnContext(ctx, "reconcile after rollback failed", "command", c.Name, "err", rerr)
		}
	}
	return err
}

func (c *Command) logger() *slog.Logger {
	if c.Log != nil {
		return c.Log
	}
	return slog.Default()
}
