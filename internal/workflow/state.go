// Package workflow drives one CSV import session through its states:
// preview, duplicate check, commit, and the compensating cancel. State is
// an explicit value transitioned by pure rules, so each session instance
// is independent and testable without any I/O.
package workflow

import "fmt"

type State int

const (
	StateIdle State = iota
	StatePreviewing
	StatePreviewed
	StateImporting
	StateImported
	StateCancelling
	StateErrored
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePreviewing:
		return "previewing"
	case StatePreviewed:
		return "previewed"
	case StateImporting:
		return "importing"
	case StateImported:
		return "imported"
	case StateCancelling:
		return "cancelling"
	case StateErrored:
		return "errored"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

type Event int

const (
	EventPreviewStart Event = iota
	EventPreviewDone
	EventCommitStart
	EventCommitDone
	EventCancelStart
	EventCancelDone
	EventFail
	EventReset
)

func (e Event) String() string {
	switch e {
	case EventPreviewStart:
		return "preview_start"
	case EventPreviewDone:
		return "preview_done"
	case EventCommitStart:
		return "commit_start"
	case EventCommitDone:
		return "commit_done"
	case EventCancelStart:
		return "cancel_start"
	case EventCancelDone:
		return "cancel_done"
	case EventFail:
		return "fail"
	case EventReset:
		return "reset"
	default:
		return fmt.Sprintf("event(%d)", int(e))
	}
}

// InvalidTransitionError reports an event that is not legal in the
// session's current state.
type InvalidTransitionError struct {
	From  State
	Event Event
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot %s while %s", e.Event, e.From)
}

// transitions lists every legal (state, event) -> state edge. Reset is
// handled separately: it is allowed from any state.
var transitions = map[State]map[Event]State{
	StateIdle: {
		EventPreviewStart: StatePreviewing,
	},
	StatePreviewing: {
		EventPreviewDone: StatePreviewed,
		EventFail:        StateErrored,
	},
	StatePreviewed: {
		// Re-previewing after a source switch is a fresh preview pass.
		EventPreviewStart: StatePreviewing,
		EventCommitStart:  StateImporting,
		// A batch from an earlier commit stays cancellable until reset.
		EventCancelStart: StateCancelling,
	},
	StateImporting: {
		EventCommitDone: StateImported,
		EventFail:       StateErrored,
	},
	StateImported: {
		// A new preview does not implicitly cancel the outstanding batch.
		EventPreviewStart: StatePreviewing,
		EventCancelStart:  StateCancelling,
	},
	StateCancelling: {
		EventCancelDone: StateIdle,
		EventFail:       StateErrored,
	},
	StateErrored: {},
}

// Next applies event to state. Any state resets to idle; every other edge
// must be listed in the transition table.
func Next(state State, event Event) (State, error) {
	if event == EventReset {
		return StateIdle, nil
	}
	if to, ok := transitions[state][event]; ok {
		return to, nil
	}
	return state, &InvalidTransitionError{From: state, Event: event}
}
