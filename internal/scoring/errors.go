package scoring

import (
	"errors"
	"fmt"
)

// Precondition and state errors. All are recoverable by the judge.
var (
	ErrNoRoundSelected     = errors.New("no round selected")
	ErrNoCandidateSelected = errors.New("no candidate selected")
	ErrRoundNotFound       = errors.New("round not found")
	ErrCandidateNotFound   = errors.New("candidate not found in round")
	ErrRoundInactive       = errors.New("round not active, cannot score")
	ErrIncompleteRubric    = errors.New("incomplete rubric")
	ErrZeroScoreDeclined   = errors.New("zero score not confirmed")
	ErrResetDeclined       = errors.New("reset not confirmed")
	ErrSubmissionInFlight  = errors.New("a submission is already in progress")
	ErrQuestionOutOfRange  = errors.New("question index out of range")
	ErrUnknownCriterion    = errors.New("unknown criterion")
	ErrIllegalValue        = errors.New("value not allowed for criterion")
)

// DefaultSubmissionReason is reported when the scoring service gives no reason.
const DefaultSubmissionReason = "score submission failed"

// SubmissionError is a failure reported by the scoring service. Reason is
// shown to the judge verbatim.
type SubmissionError struct {
	Reason string
	Err    error
}

func (e *SubmissionError) Error() string {
	if e.Err == nil {
		return e.Reason
	}
	return fmt.Sprintf("%s: %v", e.Reason, e.Err)
}

func (e *SubmissionError) Unwrap() error { return e.Err }

// reasoner is implemented by collaborator errors that carry a
// human-readable reason, such as competition API errors.
type reasoner interface {
	Reason() string
}

func newSubmissionError(err error) *SubmissionError {
	reason := DefaultSubmissionReason
	var r reasoner
	if errors.As(err, &r) && r.Reason() != "" {
		reason = r.Reason()
	}
	return &SubmissionError{Reason: reason, Err: err}
}
