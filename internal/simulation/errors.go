package simulation

import (
	"errors"
	"fmt"

	"github.com/portops/portsim/internal/repository"
	"github.com/portops/portsim/internal/scenario"
)

var (
	ErrNotFound          = repository.ErrNotFound
	ErrInvalidScenario   = scenario.ErrInvalidScenario
	ErrValidationFailure = scenario.ErrValidationFailure
	// ErrInfrastructure marks store, cache, or transaction failures.
	ErrInfrastructure = errors.New("infrastructure failure")
)

type ErrorCode string

const (
	CodeNotFound          ErrorCode = "NOT_FOUND"
	CodeInvalidScenario   ErrorCode = "INVALID_SCENARIO"
	CodeValidationFailure ErrorCode = "VALIDATION_FAILURE"
	CodeInfra             ErrorCode = "INFRA"
)

// Error is returned by every Orchestrator operation. errors.Is matches it
// against the sentinel for its code as well as anything it wraps.
type Error struct {
	Code ErrorCode
	Op   string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Code, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.Code == CodeNotFound
	case ErrInvalidScenario:
		return e.Code == CodeInvalidScenario
	case ErrValidationFailure:
		return e.Code == CodeValidationFailure
	case ErrInfrastructure:
		return e.Code == CodeInfra
	default:
		return false
	}
}

// CodeOf returns the code of the first *Error in err's chain, or "" when
// there is none.
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// classify wraps err with the code its cause implies. Anything that is not
// a known client error counts as infrastructure.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	code := CodeInfra
	switch {
	case errors.Is(err, ErrNotFound):
		code = CodeNotFound
	case errors.Is(err, ErrInvalidScenario):
		code = CodeInvalidScenario
	case errors.Is(err, ErrValidationFailure):
		code = CodeValidationFailure
	}
	return &Error{Code: code, Op: op, Err: err}
}

func invalid(op, msg string) error {
	return &Error{Code: CodeInvalidScenario, Op: op, Err: fmt.Errorf("%w: %s", ErrInvalidScenario, msg)}
}
