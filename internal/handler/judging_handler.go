package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/stemsi/mtq-judge/internal/middleware"
	"github.com/stemsi/mtq-judge/internal/model"
	"github.com/stemsi/mtq-judge/internal/response"
	"github.com/stemsi/mtq-judge/internal/rubric"
	"github.com/stemsi/mtq-judge/internal/scoring"
	"github.com/stemsi/mtq-judge/internal/service"
	"github.com/stemsi/mtq-judge/internal/validator"
)

// JudgingHandler exposes the judge's scoring console over HTTP.
// Every route runs behind CheckSingleDeviceSession.
type JudgingHandler struct {
	judging *service.JudgingService
	results *service.ResultService
	log     zerolog.Logger
}

// NewJudgingHandler creates a new JudgingHandler.
func NewJudgingHandler(judging *service.JudgingService, results *service.ResultService, log zerolog.Logger) *JudgingHandler {
	return &JudgingHandler{
		judging: judging,
		results: results,
		log:     log.With().Str("component", "judging_handler").Logger(),
	}
}

func (h *JudgingHandler) console(c *gin.Context) (*service.JudgeSession, *scoring.Console, bool) {
	sess := middleware.GetJudgeSession(c)
	if sess == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return nil, nil, false
	}
	return sess, h.judging.Console(sess), true
}

// respond writes the snapshot or maps err.
func respond(c *gin.Context, v scoring.View, err error) {
	if err != nil {
		failJudging(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"session": v})
}

// ListRounds godoc
// GET /api/v1/judging/rounds
// Lists rounds in order and refreshes the active flag of the selected round.
func (h *JudgingHandler) ListRounds(c *gin.Context) {
	_, con, ok := h.console(c)
	if !ok {
		return
	}
	rounds, err := con.Rounds(c.Request.Context())
	if err != nil {
		failJudging(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"rounds": rounds})
}

// ListActiveCandidates godoc
// GET /api/v1/judging/candidates/active
func (h *JudgingHandler) ListActiveCandidates(c *gin.Context) {
	sess, _, ok := h.console(c)
	if !ok {
		return
	}
	candidates, err := h.judging.ActiveCandidates(c.Request.Context(), sess)
	if err != nil {
		failJudging(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"candidates": candidates})
}

// GetSession godoc
// GET /api/v1/judging/session
func (h *JudgingHandler) GetSession(c *gin.Context) {
	_, con, ok := h.console(c)
	if !ok {
		return
	}
	respond(c, con.View(), nil)
}

// SelectRound godoc
// PUT /api/v1/judging/session/round
// Switches to a round. Its candidate list is loaded and all scores are cleared.
func (h *JudgingHandler) SelectRound(c *gin.Context) {
	var req model.SelectRoundRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}
	_, con, ok := h.console(c)
	if !ok {
		return
	}
	v, err := con.SelectRound(c.Request.Context(), req.RoundID)
	respond(c, v, err)
}

// SelectCandidate godoc
// PUT /api/v1/judging/session/candidate
func (h *JudgingHandler) SelectCandidate(c *gin.Context) {
	var req model.SelectCandidateRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}
	_, con, ok := h.console(c)
	if !ok {
		return
	}
	v, err := con.SelectCandidate(req.CandidateID)
	respond(c, v, err)
}

// NextCandidate godoc
// POST /api/v1/judging/session/candidate/next
func (h *JudgingHandler) NextCandidate(c *gin.Context) {
	if _, con, ok := h.console(c); ok {
		respond(c, con.NextCandidate(), nil)
	}
}

// PrevCandidate godoc
// POST /api/v1/judging/session/candidate/prev
func (h *JudgingHandler) PrevCandidate(c *gin.Context) {
	if _, con, ok := h.console(c); ok {
		respond(c, con.PrevCandidate(), nil)
	}
}

// JumpQuestion godoc
// PUT /api/v1/judging/session/question
func (h *JudgingHandler) JumpQuestion(c *gin.Context) {
	var req model.JumpQuestionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}
	_, con, ok := h.console(c)
	if !ok {
		return
	}
	v, err := con.JumpToQuestion(*req.Index)
	respond(c, v, err)
}

// NextQuestion godoc
// POST /api/v1/judging/session/question/next
func (h *JudgingHandler) NextQuestion(c *gin.Context) {
	if _, con, ok := h.console(c); ok {
		v, err := con.NextQuestion()
		respond(c, v, err)
	}
}

// PrevQuestion godoc
// POST /api/v1/judging/session/question/prev
func (h *JudgingHandler) PrevQuestion(c *gin.Context) {
	if _, con, ok := h.console(c); ok {
		v, err := con.PrevQuestion()
		respond(c, v, err)
	}
}

// SetCriterion godoc
// PUT /api/v1/judging/session/questions/:number/criteria
// Records one criterion value of a question (1-based number).
func (h *JudgingHandler) SetCriterion(c *gin.Context) {
	q, ok := questionIndex(c)
	if !ok {
		return
	}
	var req model.SetCriterionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}
	_, con, ok := h.console(c)
	if !ok {
		return
	}
	v, err := con.SetCriterion(q, rubric.Criterion(req.Criterion), *req.Value)
	respond(c, v, err)
}

// SetComment godoc
// PUT /api/v1/judging/session/questions/:number/comment
func (h *JudgingHandler) SetComment(c *gin.Context) {
	q, ok := questionIndex(c)
	if !ok {
		return
	}
	var req model.SetCommentRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}
	_, con, ok := h.console(c)
	if !ok {
		return
	}
	v, err := con.SetComment(q, req.Comment)
	respond(c, v, err)
}

// ToggleComments godoc
// POST /api/v1/judging/session/comments/toggle
func (h *JudgingHandler) ToggleComments(c *gin.Context) {
	if _, con, ok := h.console(c); ok {
		respond(c, con.ToggleComments(), nil)
	}
}

// ResetSession godoc
// POST /api/v1/judging/session/reset
// Clears every score of the current candidate. Requires {"confirm": true}.
func (h *JudgingHandler) ResetSession(c *gin.Context) {
	var req model.ResetSessionRequest
	if fields := validator.BindOptional(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}
	_, con, ok := h.console(c)
	if !ok {
		return
	}
	v, err := con.Reset(c.Request.Context(), scoring.Preconfirmed(req.Confirm))
	respond(c, v, err)
}

// SubmitScores godoc
// POST /api/v1/judging/session/submit
// Sends the scores to the competition API and moves to the next candidate.
// A zero total is only sent with {"confirm_zero": true}.
func (h *JudgingHandler) SubmitScores(c *gin.Context) {
	var req model.SubmitScoresRequest
	if fields := validator.BindOptional(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}
	sess, _, ok := h.console(c)
	if !ok {
		return
	}

	out, v, err := h.judging.Submit(c.Request.Context(), sess, scoring.Preconfirmed(req.ConfirmZero))
	if err != nil {
		failJudging(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{
		"outcome": out,
		"session": v,
	})
}

type scoreDetailQuery struct {
	Scale int `form:"scale" binding:"omitempty,oneof=20 30"`
}

// GetScoreDetail godoc
// GET /api/v1/judging/scores/:candidate_id/rounds/:round_id?scale=
// Returns a recorded result, optionally converted to a 20 or 30 point scale.
func (h *JudgingHandler) GetScoreDetail(c *gin.Context) {
	candidateID, ok := paramID(c, "candidate_id")
	if !ok {
		return
	}
	roundID, ok := paramID(c, "round_id")
	if !ok {
		return
	}
	var q scoreDetailQuery
	if fields := validator.BindQuery(c, &q); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrInvalidScale, fields)
		return
	}
	sess, _, ok := h.console(c)
	if !ok {
		return
	}

	detail, err := h.results.ScoreDetail(c.Request.Context(), sess, candidateID, roundID, float64(q.Scale))
	if err != nil {
		failJudging(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"score": detail})
}
