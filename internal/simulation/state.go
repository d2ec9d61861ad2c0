package simulation

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/trace"
)

type State string

const (
	StateStarted         State = "STARTED"
	StateCloned          State = "CLONED"
	StateScenarioApplied State = "SCENARIO_APPLIED"
	StateRecalculated    State = "RECALCULATED"
	StateScanned         State = "SCANNED"
	StateRecommended     State = "RECOMMENDED"
	StatePersisted       State = "PERSISTED"
	StateCompleted       State = "COMPLETED"
	StateFailed          State = "FAILED"
)

// runStates is the only legal order. FAILED is reachable from any state
// except COMPLETED.
var runStates = []State{
	StateStarted,
	StateCloned,
	StateScenarioApplied,
	StateRecalculated,
	StateScanned,
	StateRecommended,
	StatePersisted,
	StateCompleted,
}

func nextState(s State) (State, bool) {
	for i, st := range runStates {
		if st == s && i+1 < len(runStates) {
			return runStates[i+1], true
		}
	}
	return "", false
}

// stateMachine tracks one run. Every transition is logged at debug and
// recorded as a span event.
type stateMachine struct {
	current State
	history []State
	logger  *slog.Logger
	span    trace.Span
}

func newStateMachine(logger *slog.Logger, span trace.Span) *stateMachine {
	return &stateMachine{current: StateStarted, history: []State{StateStarted}, logger: logger, span: span}
}

func (m *stateMachine) advance(ctx context.Context, to State) error {
	want, ok := nextState(m.current)
	if !ok || want != to {
		return fmt.Errorf("illegal simulation transition %s -> %s", m.current, to)
	}
	m.move(ctx, to)
	return nil
}

// fail moves to FAILED and returns the state the run failed in.
func (m *stateMachine) fail(ctx context.Context) State {
	from := m.current
	if from != StateCompleted && from != StateFailed {
		m.move(ctx, StateFailed)
	}
	return from
}

func (m *stateMachine) move(ctx context.Context, to State) {
	m.logger.DebugContext(ctx, "simulation state transition", "from", string(m.current), "to", string(to))
	m.span.AddEvent(string(to))
	m.current = to
	m.history = append(m.history, to)
}
