package model

import (
	"time"

	"github.com/google/uuid"
)

// QuestionRecord is one question of a score submission. Values are concrete;
// unscored criteria are sent as 0.
type QuestionRecord struct {
	QuestionNumber int     `json:"question_number"`
	Recitation     float64 `json:"recitation"`
	Siffat         float64 `json:"siffat"`
	Makharij       float64 `json:"makharij"`
	MinorError     float64 `json:"minor_error"`
	Total          float64 `json:"total"`
	Comment        string  `json:"comment"`
}

// ScoreSubmission is the write payload sent to the competition API,
// keyed by (CandidateID, RoundID).
type ScoreSubmission struct {
	CandidateID int              `json:"candidate_id"`
	RoundID     int              `json:"round_id"`
	Questions   []QuestionRecord `json:"questions"`
	Total       float64          `json:"total"`
}

// ScoreAck is the competition API's acknowledgment of a submission.
type ScoreAck struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// ScoreDetail is a candidate's recorded result in one round. ScaleMax states
// the scale Total is expressed in; it is required to convert the total.
type ScoreDetail struct {
	CandidateID int              `json:"candidate_id"`
	RoundID     int              `json:"round_id"`
	Total       float64          `json:"total"`
	ScaleMax    float64          `json:"scale_max"`
	Questions   []QuestionRecord `json:"questions,omitempty"`
	Qualified   *bool            `json:"qualified,omitempty"`
}

// SubmissionRecord is the local audit entry of a successful submission.
// Key is assigned when the entry is queued and makes persisting idempotent.
type SubmissionRecord struct {
	ID          int64            `json:"id"`
	Key         uuid.UUID        `json:"key"`
	JudgeID     int              `json:"judge_id"`
	CandidateID int              `json:"candidate_id"`
	RoundID     int              `json:"round_id"`
	Total       float64          `json:"total"`
	Questions   []QuestionRecord `json:"questions"`
	Message     string           `json:"message,omitempty"`
	SubmittedAt time.Time        `json:"submitted_at"`
}

// SetCriterionRequest sets one criterion of one question.
type SetCriterionRequest struct {
	Criterion string   `json:"criterion" binding:"required,rubric_criterion"`
	Value     *float64 `json:"value" binding:"required,min=0,max=2"`
}

// SetCommentRequest replaces one question's comment.
type SetCommentRequest struct {
	Comment string `json:"comment" binding:"max=2000"`
}

// JumpQuestionRequest moves to an explicit question index (0-based).
type JumpQuestionRequest struct {
	Index *int `json:"index" binding:"required"`
}

// ResetSessionRequest carries the answer to the reset confirmation prompt.
type ResetSessionRequest struct {
	Confirm bool `json:"confirm"`
}

// SubmitScoresRequest carries the answer to the zero-score confirmation prompt.
type SubmitScoresRequest struct {
	ConfirmZero bool `json:"confirm_zero"`
}

// SubmissionFilter narrows a judge's audit listing.
type SubmissionFilter struct {
	RoundID int `form:"round_id" binding:"omitempty,min=1"`
	Page    int `form:"page" binding:"omitempty,min=1"`
	PerPage int `form:"per_page" binding:"omitempty,min=1,max=100"`
}

// Normalize fills paging defaults.
func (f *SubmissionFilter) Normalize() {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PerPage < 1 {
		f.PerPage = 20
	}
}
