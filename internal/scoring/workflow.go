package scoring

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/stemsi/mtq-judge/internal/model"
	"github.com/stemsi/mtq-judge/internal/rubric"
)

// ZeroScorePrompt is asked before a submission whose total is 0.
const ZeroScorePrompt = "The total score is 0. Submit a zero score for this candidate?"

// ResetPrompt is asked before clearing all scores of the current candidate.
const ResetPrompt = "Clear all scores and comments for this candidate?"

// ScoreSubmitter persists a complete submission. It is the only write
// boundary of a scoring session.
type ScoreSubmitter interface {
	SubmitScores(ctx context.Context, sub model.ScoreSubmission) (*model.ScoreAck, error)
}

// Confirmer answers a yes/no prompt.
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) bool
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(ctx context.Context, prompt string) bool

func (f ConfirmFunc) Confirm(ctx context.Context, prompt string) bool { return f(ctx, prompt) }

// Preconfirmed answers every prompt with a fixed answer given up front, as
// when the confirmation travels with the request.
func Preconfirmed(answer bool) Confirmer {
	return ConfirmFunc(func(context.Context, string) bool { return answer })
}

// Invalidator drops cached candidate and score listings of a round.
type Invalidator interface {
	Invalidate(ctx context.Context, roundID int)
}

// Outcome describes a successful submission and where the session moved.
type Outcome struct {
	Ack           model.ScoreAck        `json:"ack"`
	Submission    model.ScoreSubmission `json:"submission"`
	Next          *model.Candidate      `json:"next_candidate,omitempty"`
	RoundComplete bool                  `json:"round_complete"`
}

// Workflow validates and submits a session. At most one submission runs at
// a time; a second attempt while one is pending fails with
// ErrSubmissionInFlight.
type Workflow struct {
	submitter   ScoreSubmitter
	invalidator Invalidator
	inFlight    atomic.Bool
}

// NewWorkflow creates a Workflow. invalidator may be nil.
func NewWorkflow(submitter ScoreSubmitter, invalidator Invalidator) *Workflow {
	return &Workflow{submitter: submitter, invalidator: invalidator}
}

// InFlight reports whether a submission is pending.
func (w *Workflow) InFlight() bool { return w.inFlight.Load() }

// Submit runs the full workflow against s.
func (w *Workflow) Submit(ctx context.Context, s *Session, confirm Confirmer) (*Outcome, error) {
	if !w.acquire() {
		return nil, ErrSubmissionInFlight
	}
	defer w.release()
	return w.submit(ctx, s, confirm)
}

func (w *Workflow) acquire() bool { return w.inFlight.CompareAndSwap(false, true) }

func (w *Workflow) release() { w.inFlight.Store(false) }

func (w *Workflow) submit(ctx context.Context, s *Session, confirm Confirmer) (*Outcome, error) {
	if err := CheckSubmittable(s); err != nil {
		return nil, err
	}

	if s.scores.Total() == 0 {
		if confirm == nil || !confirm.Confirm(ctx, ZeroScorePrompt) {
			return nil, ErrZeroScoreDeclined
		}
	}

	sub := BuildSubmission(s)

	ack, err := w.submitter.SubmitScores(ctx, sub)
	if err != nil {
		return nil, newSubmissionError(err)
	}
	if ack == nil {
		ack = &model.ScoreAck{Success: true}
	}
	if !ack.Success {
		reason := ack.Message
		if reason == "" {
			reason = DefaultSubmissionReason
		}
		return nil, &SubmissionError{Reason: reason, Err: errors.New("rejected by scoring service")}
	}

	if w.invalidator != nil {
		w.invalidator.Invalidate(ctx, sub.RoundID)
	}

	next, done := s.advance()
	return &Outcome{
		Ack:           *ack,
		Submission:    sub,
		Next:          next,
		RoundComplete: done,
	}, nil
}

// CheckSubmittable evaluates the submission preconditions in order:
// a candidate and round are selected, the round is active, and every
// question is fully scored.
func CheckSubmittable(s *Session) error {
	if s.round == nil || s.candidateIdx < 0 {
		return ErrNoCandidateSelected
	}
	if !s.round.IsActive {
		return ErrRoundInactive
	}
	if !s.scores.Complete() {
		return ErrIncompleteRubric
	}
	return nil
}

// BuildSubmission converts the session into the submission payload. Any
// residual unscored criterion is sent as 0. The session must have a round
// and candidate selected.
func BuildSubmission(s *Session) model.ScoreSubmission {
	cand := s.candidates[s.candidateIdx]
	qs := s.scores.Questions()

	records := make([]model.QuestionRecord, len(qs))
	var total float64
	for i, q := range qs {
		qt := rubric.QuestionTotal(q)
		records[i] = model.QuestionRecord{
			QuestionNumber: i + 1,
			Recitation:     q.Recitation.OrZero(),
			Siffat:         q.Siffat.OrZero(),
			Makharij:       q.Makharij.OrZero(),
			MinorError:     q.MinorError.OrZero(),
			Total:          qt,
			Comment:        q.Comment,
		}
		total += qt
	}

	return model.ScoreSubmission{
		CandidateID: cand.ID,
		RoundID:     s.round.ID,
		Questions:   records,
		Total:       total,
	}
}
