package rubric

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fullQuestion(r, s, m, e float64) Question {
	return Question{
		Recitation: Score(r),
		Siffat:     Score(s),
		Makharij:   Score(m),
		MinorError: Score(e),
	}
}

func TestQuestionTotalBoundsOverAllLegalValues(t *testing.T) {
	defs := Definitions()
	require.Len(t, defs, 4)

	for _, r := range defs[0].Values {
		for _, s := range defs[1].Values {
			for _, m := range defs[2].Values {
				for _, e := range defs[3].Values {
					total := QuestionTotal(fullQuestion(r, s, m, e))
					assert.GreaterOrEqual(t, total, 0.0)
					assert.LessOrEqual(t, total, 6.0)
				}
			}
		}
	}
}

func TestQuestionMaxIsSix(t *testing.T) {
	assert.Equal(t, 6.0, QuestionMax())
	assert.Equal(t, 30.0, SessionMax())
}

func TestQuestionTotalTreatsUnscoredAsZero(t *testing.T) {
	assert.Equal(t, 0.0, QuestionTotal(Question{}))

	q := Question{Recitation: Score(1.5), Siffat: Score(0.25)}
	assert.Equal(t, 1.75, QuestionTotal(q))
}

func TestIsScored(t *testing.T) {
	t.Run("all_zero_is_scored", func(t *testing.T) {
		assert.True(t, IsScored(fullQuestion(0, 0, 0, 0)))
	})

	t.Run("missing_one_criterion", func(t *testing.T) {
		q := fullQuestion(2, 1, 2, 1)
		q.MinorError = Unscored()
		assert.False(t, IsScored(q))
	})

	t.Run("comment_is_irrelevant", func(t *testing.T) {
		q := Question{Comment: "lancar"}
		assert.False(t, IsScored(q))

		q = fullQuestion(1, 0.5, 1, 0.5)
		q.Comment = ""
		assert.True(t, IsScored(q))
	})
}

func TestIsBlank(t *testing.T) {
	assert.True(t, IsBlank(Question{Comment: "x"}))
	assert.False(t, IsBlank(Question{Siffat: Score(0)}))
}

func TestSessionTotalMaximum(t *testing.T) {
	qs := make([]Question, QuestionCount)
	for i := range qs {
		qs[i] = fullQuestion(2, 1, 2, 1)
	}
	assert.True(t, AllScored(qs))
	assert.Equal(t, 30.0, SessionTotal(qs))
}

func TestIsLegal(t *testing.T) {
	cases := []struct {
		c     Criterion
		v     float64
		legal bool
	}{
		{Recitation, 1.5, true},
		{Recitation, 0.25, false},
		{Recitation, 2.5, false},
		{Siffat, 0.75, true},
		{Siffat, 2, false},
		{Makharij, 0, true},
		{MinorError, 0.25, true},
		{MinorError, -0.25, false},
		{Criterion("tajwid"), 1, false},
	}
	for _, tc := range cases {
		assert.Equalf(t, tc.legal, IsLegal(tc.c, tc.v), "%s=%g", tc.c, tc.v)
	}
}

func TestParseCriterion(t *testing.T) {
	c, err := ParseCriterion("makharij")
	require.NoError(t, err)
	assert.Equal(t, Makharij, c)

	_, err = ParseCriterion("minorError")
	assert.Error(t, err)
}

func TestValueJSON(t *testing.T) {
	q := Question{Recitation: Score(0), Comment: "ok"}
	raw, err := json.Marshal(q)
	require.NoError(t, err)
	assert.JSONEq(t, `{"recitation":0,"siffat":null,"makharij":null,"minor_error":null,"comment":"ok"}`, string(raw))

	var back Question
	require.NoError(t, json.Unmarshal(raw, &back))
	assert.True(t, back.Recitation.IsScored())
	assert.False(t, back.Siffat.IsScored())
}

func TestClassifyBreakpoints(t *testing.T) {
	cases := []struct {
		v    Value
		max  float64
		want Tier
	}{
		{Unscored(), 2, TierUnscored},
		{Score(0), 2, TierZero},
		{Score(0.1), 2, TierLow},
		{Score(0.5), 2, TierLow},
		{Score(1), 2, TierMedium},
		{Score(1.5), 2, TierHigh},
		{Score(2), 2, TierMax},
		{Score(0.25), 1, TierLow},
		{Score(0.5), 1, TierMedium},
		{Score(0.75), 1, TierHigh},
		{Score(1), 1, TierMax},
	}
	for _, tc := range cases {
		assert.Equalf(t, tc.want, Classify(tc.v, tc.max), "%s of %g", tc.v, tc.max)
	}
	assert.Equal(t, TierHigh, ClassifyCriterion(Siffat, Score(0.75)))
}

func TestRescale(t *testing.T) {
	got, err := Rescale(30, 30, 20)
	require.NoError(t, err)
	assert.Equal(t, 20.0, got)

	got, err = Rescale(15, 30, 20)
	require.NoError(t, err)
	assert.Equal(t, 10.0, got)

	_, err = Rescale(25, 20, 30)
	assert.Error(t, err)

	_, err = Rescale(10, 0, 20)
	assert.Error(t, err)
}
