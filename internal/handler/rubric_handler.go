package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/stemsi/mtq-judge/internal/response"
	"github.com/stemsi/mtq-judge/internal/rubric"
)

// RubricHandler serves the scoring rubric so clients can render the form.
type RubricHandler struct{}

func NewRubricHandler() *RubricHandler {
	return &RubricHandler{}
}

// GetRubric godoc
// GET /api/v1/rubric
func (h *RubricHandler) GetRubric(c *gin.Context) {
	response.Success(c, http.StatusOK, gin.H{
		"question_count": rubric.QuestionCount,
		"question_max":   rubric.QuestionMax(),
		"session_max":    rubric.SessionMax(),
		"criteria":       rubric.Definitions(),
	})
}
