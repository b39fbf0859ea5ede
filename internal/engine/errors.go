package engine

import (
	"errors"
	"fmt"
	"strconv"
)

// RuntimeError is a coded error raised while loading, running, or rendering
// a program.
//
// The code decides how the error propagates:
//   - BUDGET_EXCEEDED: expected; the partial log is replayed and graded
//   - USER_PROGRAM_ERROR: the learner's program faulted; run is incomplete
//   - CONFIGURATION: bad level data; blocks entering the level
//   - RENDERING_UNAVAILABLE: no drawing surface; aborts before interpretation
type RuntimeError struct {
	// Code identifies the error category.
	Code RuntimeErrorCode

	// Message is a human-readable description.
	Message string

	// NodeID identifies the program node involved, if any.
	NodeID string

	// Details contains additional context.
	Details map[string]string

	// Err is the underlying cause, if any.
	Err error
}

// RuntimeErrorCode categorizes runtime errors.
type RuntimeErrorCode string

const (
	ErrCodeBudgetExceeded       RuntimeErrorCode = "BUDGET_EXCEEDED"
	ErrCodeUserProgram          RuntimeErrorCode = "USER_PROGRAM_ERROR"
	ErrCodeConfiguration        RuntimeErrorCode = "CONFIGURATION"
	ErrCodeRenderingUnavailable RuntimeErrorCode = "RENDERING_UNAVAILABLE"
)

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	if e.NodeID != "" {
		return fmt.Sprintf("%s: %s (node=%s)", e.Code, e.Message, e.NodeID)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *RuntimeError) Unwrap() error {
	return e.Err
}

func hasCode(err error, code RuntimeErrorCode) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == code
	}
	return false
}

// IsBudgetError reports whether err is a budget overrun.
// Matches both RuntimeError with ErrCodeBudgetExceeded and BudgetExceededError.
func IsBudgetError(err error) bool {
	if hasCode(err, ErrCodeBudgetExceeded) {
		return true
	}
	return IsBudgetExceededError(err)
}

// IsUserProgramError reports whether err is a learner program fault.
func IsUserProgramError(err error) bool {
	return hasCode(err, ErrCodeUserProgram)
}

// IsConfigurationError reports whether err is a level configuration error.
func IsConfigurationError(err error) bool {
	return hasCode(err, ErrCodeConfiguration)
}

// IsRenderingUnavailable reports whether err means no drawing surface exists.
func IsRenderingUnavailable(err error) bool {
	return hasCode(err, ErrCodeRenderingUnavailable)
}

// NewBudgetError creates a RuntimeError for a budget overrun.
func NewBudgetError(nodeID string, ticks, limit int) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeBudgetExceeded,
		Message: fmt.Sprintf("program exceeded %d ticks", limit),
		NodeID:  nodeID,
		Details: map[string]string{
			"ticks":     strconv.Itoa(ticks),
			"max_ticks": strconv.Itoa(limit),
		},
	}
}

// NewUserProgramError wraps a fault raised while running learner code.
func NewUserProgramError(nodeID string, cause error) *RuntimeError {
	msg := "program failed"
	if cause != nil {
		msg = cause.Error()
	}
	return &RuntimeError{
		Code:    ErrCodeUserProgram,
		Message: msg,
		NodeID:  nodeID,
		Err:     cause,
	}
}

// NewConfigurationError reports malformed or contradictory level data.
func NewConfigurationError(levelID, format string, args ...any) *RuntimeError {
	re := &RuntimeError{
		Code:    ErrCodeConfiguration,
		Message: fmt.Sprintf(format, args...),
	}
	if levelID != "" {
		re.Details = map[string]string{"level_id": levelID}
	}
	return re
}

// NewRenderingUnavailable reports a missing or unready drawing surface.
func NewRenderingUnavailable(message string) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeRenderingUnavailable,
		Message: message,
	}
}
