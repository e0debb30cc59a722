package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/stemsi/mtq-judge/internal/competition"
	"github.com/stemsi/mtq-judge/internal/response"
	"github.com/stemsi/mtq-judge/internal/rubric"
	"github.com/stemsi/mtq-judge/internal/scoring"
	"github.com/stemsi/mtq-judge/internal/service"
)

// failure is how a judging error is reported to the client.
type failure struct {
	status  int
	code    response.ErrCode
	message string
}

var judgingFailures = []struct {
	err  error
	fail failure
}{
	{scoring.ErrNoRoundSelected, failure{http.StatusConflict, response.ErrNoRoundSelected, ""}},
	{scoring.ErrNoCandidateSelected, failure{http.StatusConflict, response.ErrNoCandidateSelected, ""}},
	{scoring.ErrRoundNotFound, failure{http.StatusNotFound, response.ErrRoundNotFound, ""}},
	{scoring.ErrCandidateNotFound, failure{http.StatusNotFound, response.ErrCandidateNotFound, ""}},
	{scoring.ErrRoundInactive, failure{http.StatusConflict, response.ErrRoundNotActive, ""}},
	{scoring.ErrIncompleteRubric, failure{http.StatusUnprocessableEntity, response.ErrIncompleteRubric, ""}},
	{scoring.ErrZeroScoreDeclined, failure{http.StatusConflict, response.ErrZeroScoreConfirmation, ""}},
	{scoring.ErrResetDeclined, failure{http.StatusConflict, response.ErrResetConfirmation, ""}},
	{scoring.ErrSubmissionInFlight, failure{http.StatusConflict, response.ErrSubmissionInFlight, ""}},
	{scoring.ErrQuestionOutOfRange, failure{http.StatusBadRequest, response.ErrValidation, "Nomor soal di luar jangkauan."}},
	{scoring.ErrUnknownCriterion, failure{http.StatusUnprocessableEntity, response.ErrIllegalValue, ""}},
	{scoring.ErrIllegalValue, failure{http.StatusUnprocessableEntity, response.ErrIllegalValue, ""}},
	{service.ErrScaleUnknown, failure{http.StatusBadGateway, response.ErrInvalidScale, ""}},
	{competition.ErrUnauthorized, failure{http.StatusUnauthorized, response.ErrSessionInvalidated, ""}},
}

// classify maps errors of the scoring console and the competition API.
func classify(err error) failure {
	var subErr *scoring.SubmissionError
	if errors.As(err, &subErr) {
		if errors.Is(subErr, competition.ErrUnauthorized) {
			return failure{http.StatusUnauthorized, response.ErrSessionInvalidated, ""}
		}
		return failure{http.StatusBadGateway, response.ErrSubmissionFailed, subErr.Reason}
	}

	for _, m := range judgingFailures {
		if errors.Is(err, m.err) {
			return m.fail
		}
	}

	var apiErr *competition.APIError
	if errors.As(err, &apiErr) {
		if apiErr.Status == http.StatusNotFound {
			return failure{http.StatusNotFound, response.ErrNotFound, apiErr.Message}
		}
		return failure{http.StatusBadGateway, response.ErrCompetitionUnavailable, apiErr.Message}
	}
	return failure{http.StatusBadGateway, response.ErrCompetitionUnavailable, ""}
}

func failJudging(c *gin.Context, err error) {
	f := classify(err)
	response.FailWithMessage(c, f.status, f.code, f.message)
}

// paramID parses a positive integer path parameter.
func paramID(c *gin.Context, name string) (int, bool) {
	id, err := strconv.Atoi(c.Param(name))
	if err != nil || id <= 0 {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return 0, false
	}
	return id, true
}

// questionIndex reads the 1-based :number parameter as a question index.
func questionIndex(c *gin.Context) (int, bool) {
	n, err := strconv.Atoi(c.Param("number"))
	if err != nil || n < 1 || n > rubric.QuestionCount {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return 0, false
	}
	return n - 1, true
}
