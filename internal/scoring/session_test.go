package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stemsi/mtq-judge/internal/model"
	"github.com/stemsi/mtq-judge/internal/rubric"
)

var (
	roundA     = model.Round{ID: 1, Name: "Penyisihan", Order: 1, IsActive: true}
	roundB     = model.Round{ID: 2, Name: "Final", Order: 2, IsActive: false}
	candidateA = model.Candidate{ID: 10, Name: "Ahmad", RegistrationNumber: "MTQ-010", Category: "Dewasa Putra"}
	candidateB = model.Candidate{ID: 11, Name: "Fatimah", RegistrationNumber: "MTQ-011", Category: "Dewasa Putri"}
)

func scoreAll(t *testing.T, qs *QuestionSet, r, s, m, e float64) {
	t.Helper()
	for i := 0; i < rubric.QuestionCount; i++ {
		require.NoError(t, qs.SetCriterion(i, rubric.Recitation, r))
		require.NoError(t, qs.SetCriterion(i, rubric.Siffat, s))
		require.NoError(t, qs.SetCriterion(i, rubric.Makharij, m))
		require.NoError(t, qs.SetCriterion(i, rubric.MinorError, e))
	}
}

func assertAllUnscored(t *testing.T, s *Session) {
	t.Helper()
	for i, q := range s.Scores().Questions() {
		assert.Truef(t, rubric.IsBlank(q), "question %d not blank", i+1)
		assert.Emptyf(t, q.Comment, "question %d comment", i+1)
	}
}

func TestNewSessionStartsWithoutRound(t *testing.T) {
	s := NewSession()
	assert.Equal(t, StateNoRound, s.State())
	_, ok := s.Round()
	assert.False(t, ok)
	assert.ErrorIs(t, s.SelectCandidate(candidateA.ID), ErrNoRoundSelected)
	assert.ErrorIs(t, s.NextQuestion(), ErrNoCandidateSelected)
}

func TestSelectRoundResetsEverything(t *testing.T) {
	s := NewSession()
	s.SelectRound(roundA, []model.Candidate{candidateA, candidateB})
	require.NoError(t, s.SelectCandidate(candidateA.ID))
	scoreAll(t, s.Scores(), 2, 1, 2, 1)
	require.NoError(t, s.Scores().SetComment(2, "mad kurang"))
	require.NoError(t, s.JumpToQuestion(3))

	s.SelectRound(roundB, []model.Candidate{candidateB})

	assert.Equal(t, StateRoundSelected, s.State())
	_, ok := s.Candidate()
	assert.False(t, ok)
	assert.Equal(t, 0, s.CurrentQuestion())
	assertAllUnscored(t, s)
	r, _ := s.Round()
	assert.Equal(t, roundB.ID, r.ID)
}

func TestSelectCandidateAlwaysStartsFresh(t *testing.T) {
	s := NewSession()
	s.SelectRound(roundA, []model.Candidate{candidateA, candidateB})
	require.NoError(t, s.SelectCandidate(candidateA.ID))
	require.NoError(t, s.Scores().SetCriterion(0, rubric.Recitation, 1.5))
	require.NoError(t, s.JumpToQuestion(4))

	require.NoError(t, s.SelectCandidate(candidateA.ID))

	assert.Equal(t, StateCandidateSelected, s.State())
	assert.Equal(t, 0, s.CurrentQuestion())
	assertAllUnscored(t, s)
}

func TestSelectCandidateUnknown(t *testing.T) {
	s := NewSession()
	s.SelectRound(roundA, []model.Candidate{candidateA})
	assert.ErrorIs(t, s.SelectCandidate(999), ErrCandidateNotFound)
	assert.Equal(t, StateRoundSelected, s.State())
}

func TestQuestionNavigationClampsAndKeepsScores(t *testing.T) {
	s := NewSession()
	s.SelectRound(roundA, []model.Candidate{candidateA})
	require.NoError(t, s.SelectCandidate(candidateA.ID))
	require.NoError(t, s.Scores().SetCriterion(0, rubric.Siffat, 0.75))

	require.NoError(t, s.PrevQuestion())
	assert.Equal(t, 0, s.CurrentQuestion())

	for i := 0; i < 10; i++ {
		require.NoError(t, s.NextQuestion())
	}
	assert.Equal(t, rubric.QuestionCount-1, s.CurrentQuestion())

	require.NoError(t, s.JumpToQuestion(-3))
	assert.Equal(t, 0, s.CurrentQuestion())
	require.NoError(t, s.JumpToQuestion(2))
	assert.Equal(t, 2, s.CurrentQuestion())

	q, err := s.Scores().Question(0)
	require.NoError(t, err)
	assert.Equal(t, rubric.Score(0.75), q.Siffat)
}

func TestCandidateNavigation(t *testing.T) {
	s := NewSession()
	s.SelectRound(roundA, []model.Candidate{candidateA, candidateB})

	t.Run("noop_without_selection", func(t *testing.T) {
		assert.False(t, s.NextCandidate())
		assert.False(t, s.PrevCandidate())
	})

	require.NoError(t, s.SelectCandidate(candidateA.ID))

	t.Run("prev_at_start_is_noop", func(t *testing.T) {
		require.NoError(t, s.Scores().SetCriterion(1, rubric.Makharij, 2))
		assert.False(t, s.PrevCandidate())
		q, _ := s.Scores().Question(1)
		assert.True(t, q.Makharij.IsScored())
	})

	t.Run("next_resets_scores", func(t *testing.T) {
		require.NoError(t, s.JumpToQuestion(3))
		assert.True(t, s.NextCandidate())
		c, _ := s.Candidate()
		assert.Equal(t, candidateB.ID, c.ID)
		assert.Equal(t, 0, s.CurrentQuestion())
		assertAllUnscored(t, s)
	})

	t.Run("next_at_end_is_noop", func(t *testing.T) {
		assert.False(t, s.NextCandidate())
		c, _ := s.Candidate()
		assert.Equal(t, candidateB.ID, c.ID)
	})
}

func TestEmptyCandidateList(t *testing.T) {
	s := NewSession()
	s.SelectRound(roundA, nil)

	assert.Equal(t, StateRoundSelected, s.State())
	assert.Empty(t, s.Candidates())
	assert.False(t, s.NextCandidate())
	assert.ErrorIs(t, s.SelectCandidate(candidateA.ID), ErrCandidateNotFound)

	v := Snapshot(s)
	assert.NotNil(t, v.Candidates)
	assert.Equal(t, "no_candidate", v.SubmitBlocker)
}

func TestSyncRoundOnlyTouchesSelectedRound(t *testing.T) {
	s := NewSession()
	s.SelectRound(roundA, []model.Candidate{candidateA})
	require.NoError(t, s.SelectCandidate(candidateA.ID))
	require.NoError(t, s.Scores().SetCriterion(0, rubric.Recitation, 2))

	closed := roundA
	closed.IsActive = false
	s.SyncRound(closed)
	s.SyncRound(model.Round{ID: 99, IsActive: true})

	r, _ := s.Round()
	assert.False(t, r.IsActive)
	q, _ := s.Scores().Question(0)
	assert.True(t, q.Recitation.IsScored())
}

func TestQuestionSetValidation(t *testing.T) {
	var qs QuestionSet

	assert.ErrorIs(t, qs.SetCriterion(5, rubric.Recitation, 1), ErrQuestionOutOfRange)
	assert.ErrorIs(t, qs.SetCriterion(-1, rubric.Recitation, 1), ErrQuestionOutOfRange)
	assert.ErrorIs(t, qs.SetCriterion(0, rubric.Recitation, 0.25), ErrIllegalValue)
	assert.ErrorIs(t, qs.SetCriterion(0, rubric.Criterion("tartil"), 1), ErrUnknownCriterion)
	assert.ErrorIs(t, qs.SetComment(7, "x"), ErrQuestionOutOfRange)

	require.NoError(t, qs.SetCriterion(2, rubric.MinorError, 0.25))
	for i, q := range qs.Questions() {
		if i == 2 {
			assert.Equal(t, rubric.Score(0.25), q.MinorError)
			continue
		}
		assert.True(t, rubric.IsBlank(q))
	}

	require.NoError(t, qs.SetComment(2, "waqaf tepat"))
	qs.ResetAll()
	assert.Equal(t, 0, qs.ScoredCount())
	q, _ := qs.Question(2)
	assert.Empty(t, q.Comment)
}

func TestSnapshotQuestionTotals(t *testing.T) {
	s := NewSession()
	s.SelectRound(roundA, []model.Candidate{candidateA})
	require.NoError(t, s.SelectCandidate(candidateA.ID))
	require.NoError(t, s.Scores().SetCriterion(0, rubric.Recitation, 0))

	v := Snapshot(s)
	require.Len(t, v.Questions, rubric.QuestionCount)

	require.NotNil(t, v.Questions[0].Total)
	assert.Equal(t, 0.0, *v.Questions[0].Total)
	assert.False(t, v.Questions[0].Scored)
	assert.Equal(t, rubric.TierZero, v.Questions[0].Tiers[rubric.Recitation])
	assert.Equal(t, rubric.TierUnscored, v.Questions[0].Tiers[rubric.Siffat])

	assert.Nil(t, v.Questions[1].Total)
	assert.Equal(t, "incomplete_rubric", v.SubmitBlocker)
	assert.Equal(t, 30.0, v.MaxTotal)
}
