// Package runstate tracks the lifecycle of a remote assistant run.
//
// Observed statuses are fired into a state machine so that an impossible
// sequence (a terminal run coming back to life, a started run going back to
// the queue) is reported instead of silently rendered.
package runstate

import (
	"context"
	"fmt"

	"github.com/qmuntal/stateless"
	"github.com/sashabaranov/go-openai"

	"github.com/comigor/azoai-go/internal/logger"
)

var terminal = map[openai.RunStatus]bool{
	openai.RunStatusCompleted:  true,
	openai.RunStatusFailed:     true,
	openai.RunStatusCancelled:  true,
	openai.RunStatusExpired:    true,
	openai.RunStatusIncomplete: true,
}

// IsTerminal reports whether no further transition can follow status.
func IsTerminal(status openai.RunStatus) bool {
	return terminal[status]
}

// NeedsAction reports whether the run waits on tool outputs from us.
func NeedsAction(status openai.RunStatus) bool {
	return status == openai.RunStatusRequiresAction
}

var allStatuses = []openai.RunStatus{
	openai.RunStatusQueued,
	openai.RunStatusInProgress,
	openai.RunStatusRequiresAction,
	openai.RunStatusCancelling,
	openai.RunStatusCompleted,
	openai.RunStatusFailed,
	openai.RunStatusCancelled,
	openai.RunStatusExpired,
	openai.RunStatusIncomplete,
}

// successors lists where each non-terminal status may go. Polling can skip
// intermediate states, so a fast run may go straight from queued to completed.
var successors = map[openai.RunStatus][]openai.RunStatus{
	openai.RunStatusQueued: {
		openai.RunStatusInProgress, openai.RunStatusRequiresAction, openai.RunStatusCancelling,
		openai.RunStatusCompleted, openai.RunStatusFailed, openai.RunStatusCancelled,
		openai.RunStatusExpired, openai.RunStatusIncomplete,
	},
	openai.RunStatusInProgress: {
		openai.RunStatusRequiresAction, openai.RunStatusCancelling,
		openai.RunStatusCompleted, openai.RunStatusFailed, openai.RunStatusCancelled,
		openai.RunStatusExpired, openai.RunStatusIncomplete,
	},
	openai.RunStatusRequiresAction: {
		openai.RunStatusQueued, openai.RunStatusInProgress, openai.RunStatusCancelling,
		openai.RunStatusCompleted, openai.RunStatusFailed, openai.RunStatusCancelled,
		openai.RunStatusExpired, openai.RunStatusIncomplete,
	},
	openai.RunStatusCancelling: {
		openai.RunStatusCompleted, openai.RunStatusFailed, openai.RunStatusCancelled,
		openai.RunStatusExpired,
	},
}

// Tracker follows one run's status.
type Tracker struct {
	runID string
	fsm   *stateless.StateMachine
	seen  int
}

// NewTracker starts tracking a run in its initial status.
func NewTracker(runID string, initial openai.RunStatus) *Tracker {
	fsm := stateless.NewStateMachine(initial)

	for _, status := range allStatuses {
		sc := fsm.Configure(status).Ignore(status)
		for _, next := range successors[status] {
			sc.Permit(next, next)
		}
	}

	fsm.OnTransitioned(func(_ context.Context, tr stateless.Transition) {
		logger.L.Debug("run status changed", "run_id", runID, "from", tr.Source, "to", tr.Destination)
	})

	return &Tracker{runID: runID, fsm: fsm}
}

// Observe records a freshly fetched status. It fails when the status cannot
// follow the current one.
func (t *Tracker) Observe(ctx context.Context, status openai.RunStatus) error {
	t.seen++
	current := t.Status(ctx)
	ok, err := t.fsm.CanFireCtx(ctx, status)
	if err != nil {
		return fmt.Errorf("runstate: run %s: %w", t.runID, err)
	}
	if !ok {
		return &TransitionError{RunID: t.runID, From: current, To: status}
	}
	if err := t.fsm.FireCtx(ctx, status); err != nil {
		return fmt.Errorf("runstate: run %s: %w", t.runID, err)
	}
	return nil
}

// Status returns the last accepted status.
func (t *Tracker) Status(ctx context.Context) openai.RunStatus {
	st, err := t.fsm.State(ctx)
	if err != nil {
		return ""
	}
	s, _ := st.(openai.RunStatus)
	return s
}

// Observations returns how many statuses were observed.
func (t *Tracker) Observations() int { return t.seen }

// TransitionError is an impossible status sequence.
type TransitionError struct {
	RunID    string
	From, To openai.RunStatus
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("runstate: run %s cannot move from %s to %s", e.RunID, e.From, e.To)
}

// RunError is a run that finished without completing.
type RunError struct {
	RunID   string
	Status  openai.RunStatus
	Code    string
	Message string
}

func (e *RunError) Error() string {
	msg := fmt.Sprintf("run %s ended %s", e.RunID, e.Status)
	if e.Code != "" || e.Message != "" {
		msg += fmt.Sprintf(": %s %s", e.Code, e.Message)
	}
	return msg
}

// Outcome is nil for a completed run and a *RunError for any other terminal
// status. Non-terminal runs are errors too; they have no outcome yet.
func Outcome(run openai.Run) error {
	if run.Status == openai.RunStatusCompleted {
		return nil
	}
	e := &RunError{RunID: run.ID, Status: run.Status}
	if run.LastError != nil {
		e.Code = string(run.LastError.Code)
		e.Message = run.LastError.Message
	}
	if !IsTerminal(run.Status) {
		e.Message = "run has not finished"
	}
	return e
}
