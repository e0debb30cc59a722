package scoring

import (
	"fmt"

	"github.com/stemsi/mtq-judge/internal/rubric"
)

// QuestionSet holds the five in-progress question scores of a session.
type QuestionSet struct {
	questions [rubric.QuestionCount]rubric.Question
}

// SetCriterion stores a legal value for one criterion of one question.
// No other question is affected.
func (qs *QuestionSet) SetCriterion(index int, c rubric.Criterion, value float64) error {
	if err := checkIndex(index); err != nil {
		return err
	}
	if _, ok := rubric.Lookup(c); !ok {
		return fmt.Errorf("%w: %q", ErrUnknownCriterion, c)
	}
	if !rubric.IsLegal(c, value) {
		return fmt.Errorf("%w: %g for %s", ErrIllegalValue, value, c)
	}
	qs.questions[index].Set(c, rubric.Score(value))
	return nil
}

// SetComment replaces the comment of one question.
func (qs *QuestionSet) SetComment(index int, text string) error {
	if err := checkIndex(index); err != nil {
		return err
	}
	qs.questions[index].Comment = text
	return nil
}

// ResetAll returns every question to fully unscored with an empty comment.
func (qs *QuestionSet) ResetAll() {
	qs.questions = [rubric.QuestionCount]rubric.Question{}
}

// Question returns a copy of the question at index.
func (qs *QuestionSet) Question(index int) (rubric.Question, error) {
	if err := checkIndex(index); err != nil {
		return rubric.Question{}, err
	}
	return qs.questions[index], nil
}

// Questions returns a copy of all questions in order.
func (qs *QuestionSet) Questions() []rubric.Question {
	out := make([]rubric.Question, rubric.QuestionCount)
	copy(out, qs.questions[:])
	return out
}

// Total is the session total with unscored criteria counted as 0.
func (qs *QuestionSet) Total() float64 {
	return rubric.SessionTotal(qs.questions[:])
}

// Complete reports whether all five questions are fully scored.
func (qs *QuestionSet) Complete() bool {
	return rubric.AllScored(qs.questions[:])
}

// ScoredCount returns how many questions are fully scored.
func (qs *QuestionSet) ScoredCount() int {
	n := 0
	for _, q := range qs.questions {
		if rubric.IsScored(q) {
			n++
		}
	}
	return n
}

func checkIndex(index int) error {
	if index < 0 || index >= rubric.QuestionCount {
		return fmt.Errorf("%w: %d", ErrQuestionOutOfRange, index)
	}
	return nil
}
