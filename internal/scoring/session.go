// Package scoring implements a judge's in-progress scoring session: the five
// question scores, navigation over candidates and questions, and the
// submission workflow that hands a complete rubric to the scoring service.
package scoring

import (
	"github.com/stemsi/mtq-judge/internal/model"
	"github.com/stemsi/mtq-judge/internal/rubric"
)

// State is the position of a session in its lifecycle.
type State string

const (
	StateNoRound           State = "NO_ROUND_SELECTED"
	StateRoundSelected     State = "ROUND_SELECTED"
	StateCandidateSelected State = "CANDIDATE_SELECTED"
)

// Session is the in-memory scoring state of one judge. It is not safe for
// concurrent use; Console serializes access.
type Session struct {
	round        *model.Round
	candidates   []model.Candidate
	candidateIdx int
	current      int
	showComments bool
	scores       QuestionSet
}

// NewSession returns a session with no round selected.
func NewSession() *Session {
	return &Session{candidateIdx: -1}
}

// State derives the lifecycle state from the selections.
func (s *Session) State() State {
	switch {
	case s.round == nil:
		return StateNoRound
	case s.candidateIdx < 0:
		return StateRoundSelected
	default:
		return StateCandidateSelected
	}
}

// Round returns the selected round, if any.
func (s *Session) Round() (model.Round, bool) {
	if s.round == nil {
		return model.Round{}, false
	}
	return *s.round, true
}

// Candidate returns the selected candidate, if any.
func (s *Session) Candidate() (model.Candidate, bool) {
	if s.candidateIdx < 0 {
		return model.Candidate{}, false
	}
	return s.candidates[s.candidateIdx], true
}

// Candidates returns the ordered candidate list of the selected round.
func (s *Session) Candidates() []model.Candidate {
	return append([]model.Candidate(nil), s.candidates...)
}

// CurrentQuestion returns the 0-based index of the question being scored.
func (s *Session) CurrentQuestion() int { return s.current }

// Scores exposes the question set for reading and mutation.
func (s *Session) Scores() *QuestionSet { return &s.scores }

// ShowComments reports the comment-visibility flag.
func (s *Session) ShowComments() bool { return s.showComments }

// ToggleComments flips the comment-visibility flag.
func (s *Session) ToggleComments() { s.showComments = !s.showComments }

// SelectRound switches to round r with its ordered candidate list. Scores are
// reset and the candidate selection is cleared, whatever the prior state.
func (s *Session) SelectRound(r model.Round, candidates []model.Candidate) {
	s.round = &r
	s.candidates = append([]model.Candidate(nil), candidates...)
	s.clearCandidate()
}

// SyncRound refreshes the selected round's attributes (notably IsActive)
// without resetting anything. Rounds other than the selected one are ignored.
func (s *Session) SyncRound(r model.Round) {
	if s.round != nil && s.round.ID == r.ID {
		s.round = &r
	}
}

// SelectCandidate starts scoring the candidate with the given id. Scores are
// reset even if the same candidate was already selected.
func (s *Session) SelectCandidate(candidateID int) error {
	if s.round == nil {
		return ErrNoRoundSelected
	}
	for i, c := range s.candidates {
		if c.ID == candidateID {
			s.selectIndex(i)
			return nil
		}
	}
	return ErrCandidateNotFound
}

// NextCandidate moves to the following candidate. It is a no-op at the end
// of the list and reports whether the selection changed.
func (s *Session) NextCandidate() bool {
	if s.candidateIdx < 0 || s.candidateIdx+1 >= len(s.candidates) {
		return false
	}
	s.selectIndex(s.candidateIdx + 1)
	return true
}

// PrevCandidate moves to the preceding candidate. It is a no-op at the start
// of the list and reports whether the selection changed.
func (s *Session) PrevCandidate() bool {
	if s.candidateIdx <= 0 {
		return false
	}
	s.selectIndex(s.candidateIdx - 1)
	return true
}

// NextQuestion advances the current question, clamped to the last one.
func (s *Session) NextQuestion() error { return s.JumpToQuestion(s.current + 1) }

// PrevQuestion moves back one question, clamped to the first one.
func (s *Session) PrevQuestion() error { return s.JumpToQuestion(s.current - 1) }

// JumpToQuestion moves to question i, clamped to the valid range. Scores are
// never reset by question navigation.
func (s *Session) JumpToQuestion(i int) error {
	if s.candidateIdx < 0 {
		return ErrNoCandidateSelected
	}
	switch {
	case i < 0:
		i = 0
	case i >= rubric.QuestionCount:
		i = rubric.QuestionCount - 1
	}
	s.current = i
	return nil
}

// Reset clears all scores and comments, keeping the selections.
func (s *Session) Reset() {
	s.scores.ResetAll()
}

// advance moves to the next candidate after a successful submission. When
// the list is exhausted the candidate is cleared and roundComplete is true.
func (s *Session) advance() (next *model.Candidate, roundComplete bool) {
	if s.NextCandidate() {
		c := s.candidates[s.candidateIdx]
		return &c, false
	}
	s.clearCandidate()
	return nil, true
}

func (s *Session) selectIndex(i int) {
	s.candidateIdx = i
	s.current = 0
	s.scores.ResetAll()
}

func (s *Session) clearCandidate() {
	s.candidateIdx = -1
	s.current = 0
	s.scores.ResetAll()
}
