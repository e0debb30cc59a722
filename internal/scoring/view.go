package scoring

import (
	"errors"

	"github.com/stemsi/mtq-judge/internal/model"
	"github.com/stemsi/mtq-judge/internal/rubric"
)

// QuestionView is the display form of one question.
type QuestionView struct {
	Number int `json:"number"`
	rubric.Question
	Tiers  map[rubric.Criterion]rubric.Tier `json:"tiers"`
	Scored bool                             `json:"scored"`
	// Total is nil while the question is entirely unscored.
	Total *float64 `json:"total"`
}

// View is an immutable snapshot of a session, safe to hand to other goroutines.
type View struct {
	State           State             `json:"state"`
	Round           *model.Round      `json:"round,omitempty"`
	Candidate       *model.Candidate  `json:"candidate,omitempty"`
	CandidateIndex  int               `json:"candidate_index"`
	Candidates      []model.Candidate `json:"candidates"`
	CurrentQuestion int               `json:"current_question"`
	ShowComments    bool              `json:"show_comments"`
	Questions       []QuestionView    `json:"questions"`
	Total           float64           `json:"total"`
	MaxTotal        float64           `json:"max_total"`
	ScoredCount     int               `json:"scored_count"`
	Complete        bool              `json:"complete"`
	CanSubmit       bool              `json:"can_submit"`
	SubmitBlocker   string            `json:"submit_blocker,omitempty"`
	Submitting      bool              `json:"submitting"`
}

// Snapshot builds a View of s.
func Snapshot(s *Session) View {
	v := View{
		State:           s.State(),
		CandidateIndex:  s.candidateIdx,
		Candidates:      s.Candidates(),
		CurrentQuestion: s.current,
		ShowComments:    s.showComments,
		Total:           s.scores.Total(),
		MaxTotal:        rubric.SessionMax(),
		ScoredCount:     s.scores.ScoredCount(),
		Complete:        s.scores.Complete(),
	}
	if v.Candidates == nil {
		v.Candidates = []model.Candidate{}
	}
	if r, ok := s.Round(); ok {
		v.Round = &r
	}
	if c, ok := s.Candidate(); ok {
		v.Candidate = &c
	}

	for i, q := range s.scores.Questions() {
		qv := QuestionView{
			Number:   i + 1,
			Question: q,
			Tiers:    make(map[rubric.Criterion]rubric.Tier, 4),
			Scored:   rubric.IsScored(q),
		}
		for _, c := range rubric.Criteria() {
			qv.Tiers[c] = rubric.ClassifyCriterion(c, q.Get(c))
		}
		if !rubric.IsBlank(q) {
			total := rubric.QuestionTotal(q)
			qv.Total = &total
		}
		v.Questions = append(v.Questions, qv)
	}

	if err := CheckSubmittable(s); err != nil {
		v.SubmitBlocker = blockerCode(err)
	} else {
		v.CanSubmit = true
	}
	return v
}

func blockerCode(err error) string {
	switch {
	case errors.Is(err, ErrNoCandidateSelected):
		return "no_candidate"
	case errors.Is(err, ErrRoundInactive):
		return "round_inactive"
	case errors.Is(err, ErrIncompleteRubric):
		return "incomplete_rubric"
	}
	return err.Error()
}
