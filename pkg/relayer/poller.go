package relayer

import (
	"context"
	"fmt"
	"time"

	"github.com/PolyEmperion/PolyEmperion-sdk/pkg/types"
)

// ConfirmationOptions bounds a confirmation poll. Zero fields fall back to
// the defaults below.
type ConfirmationOptions struct {
	// DesiredStates are the terminal-success states
	DesiredStates []types.TransactionState
	// FailState is the terminal-failure state
	FailState types.TransactionState
	// MaxPolls bounds the number of status queries
	MaxPolls int
	// PollInterval is the fixed wait between queries
	PollInterval time.Duration
}

// DefaultConfirmationOptions is a two-minute confirmation budget: 60 polls
// spaced 2 seconds apart, waiting for STATE_CONFIRMED.
func DefaultConfirmationOptions() *ConfirmationOptions {
	return &ConfirmationOptions{
		DesiredStates: []types.TransactionState{types.StateConfirmed},
		FailState:     types.StateFailed,
		MaxPolls:      60,
		PollInterval:  2 * time.Second,
	}
}

func (o *ConfirmationOptions) withDefaults() *ConfirmationOptions {
	defaults := DefaultConfirmationOptions()
	if o == nil {
		return defaults
	}
	merged := *o
	if len(merged.DesiredStates) == 0 {
		merged.DesiredStates = defaults.DesiredStates
	}
	if merged.FailState == "" {
		merged.FailState = defaults.FailState
	}
	if merged.MaxPolls <= 0 {
		merged.MaxPolls = defaults.MaxPolls
	}
	if merged.PollInterval <= 0 {
		merged.PollInterval = defaults.PollInterval
	}
	return &merged
}

// AwaitConfirmation polls the relay for the transaction's state until it
// reaches a desired state, the fail state, or the poll budget is exhausted.
//
// The boolean result reports whether a desired state was reached. A false
// result with a nil error is not a transport failure: the transaction either
// hit the fail state or is still pending when the budget ran out, and the
// last observed record is returned either way. Transport errors mid-loop are
// propagated rather than silently retried. Cancelling ctx interrupts the wait
// between polls and surfaces ctx.Err().
//
// The poller is read-only and idempotent; re-invoking after a prior terminal
// result simply re-observes.
func (c *Client) AwaitConfirmation(ctx context.Context, id string, opts *ConfirmationOptions) (*types.TransactionRecord, bool, error) {
	opts = opts.withDefaults()

	var last *types.TransactionRecord
	for poll := 0; poll < opts.MaxPolls; poll++ {
		if poll > 0 {
			timer := time.NewTimer(opts.PollInterval)
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				return nil, false, ctx.Err()
			}
		}

		record, err := c.latestRecord(ctx, id)
		if err != nil {
			return nil, false, fmt.Errorf("await confirmation of %s: %w", id, err)
		}
		last = record

		c.logger.Sugar().Debugw("Polled transaction state",
			"transaction_id", id,
			"state", record.State,
			"poll", poll+1,
		)

		if stateIn(record.State, opts.DesiredStates) {
			c.observeState(record)
			return record, true, nil
		}
		if record.State == opts.FailState {
			c.observeState(record)
			return record, false, nil
		}
	}

	c.logger.Sugar().Infow("Confirmation budget exhausted",
		"transaction_id", id,
		"polls", opts.MaxPolls,
		"last_state", last.State,
	)
	return last, false, nil
}

func stateIn(state types.TransactionState, set []types.TransactionState) bool {
	for _, s := range set {
		if state == s {
			return true
		}
	}
	return false
}
