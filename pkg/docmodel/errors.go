package docmodel

import (
	"errors"
	"fmt"
)

// Error taxonomy kinds from spec.md §7. These are sentinels, not types,
// mirroring the teacher's pkg/services/errors.go; callers classify with
// errors.Is. DocumentSource and fulfillment client failures wrap
// ErrSourceUnavailable, SynthesizeIDs wraps ErrInputInvalid, executor
// cancellation wraps ErrCancelled, and StageError matches ErrStageFailed.
// ErrPersistence and ErrBudgetExhausted are not returned by any code in this
// module, and pkg/store and pkg/indexsink errors wrap none of these.
var (
	// ErrInputInvalid: record malformed or missing internal_id after
	// synthesis. Fatal for that record only; not persisted.
	ErrInputInvalid = errors.New("input error")

	// ErrSourceUnavailable: upstream HTTP or auth failure from DocumentSource.
	ErrSourceUnavailable = errors.New("source error")

	// ErrStageFailed: an enrichment stage raised an error. Always captured as
	// a StageOutcome; never propagates out of the executor.
	ErrStageFailed = errors.New("stage error")

	// ErrPersistence: a row-level persistence failure. Captured per-row; the
	// batch continues.
	ErrPersistence = errors.New("persistence error")

	// ErrBudgetExhausted: paid-source cost limit reached for the run.
	ErrBudgetExhausted = errors.New("budget error")

	// ErrCancelled: cooperative cancellation of a record or run.
	ErrCancelled = errors.New("cancelled")
)

// StageError wraps a stage-boundary failure with the stage it occurred in and
// the reason code recorded on the StageOutcome.
type StageError struct {
	Stage  StageID
	Reason string
	Cause  error
}

func (e *StageError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("stage %s failed: %s: %v", e.Stage, e.Reason, e.Cause)
	}
	return fmt.Sprintf("stage %s failed: %s", e.Stage, e.Reason)
}

func (e *StageError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is the ErrStageFailed sentinel, so callers can
// write errors.Is(err, docmodel.ErrStageFailed) without unwrapping to Cause.
func (e *StageError) Is(target error) bool {
	return target == ErrStageFailed
}

// NewStageError builds a StageError. cause may be nil when the reason alone
// is descriptive enough (e.g. a timeout).
func NewStageError(stage StageID, reason string, cause error) *StageError {
	return &StageError{Stage: stage, Reason: reason, Cause: cause}
}
