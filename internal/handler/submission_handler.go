package handler

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/stemsi/mtq-judge/internal/middleware"
	"github.com/stemsi/mtq-judge/internal/model"
	"github.com/stemsi/mtq-judge/internal/response"
	"github.com/stemsi/mtq-judge/internal/service"
	"github.com/stemsi/mtq-judge/internal/validator"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// SubmissionHandler serves the judge's local audit trail.
type SubmissionHandler struct {
	export *service.ExportService
	log    zerolog.Logger
}

// NewSubmissionHandler creates a new SubmissionHandler.
func NewSubmissionHandler(export *service.ExportService, log zerolog.Logger) *SubmissionHandler {
	return &SubmissionHandler{
		export: export,
		log:    log.With().Str("component", "submission_handler").Logger(),
	}
}

// ListSubmissions godoc
// GET /api/v1/judging/submissions?round_id=&page=&per_page=
func (h *SubmissionHandler) ListSubmissions(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	var f model.SubmissionFilter
	if fields := validator.BindQuery(c, &f); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}
	f.Normalize()

	records, total, err := h.export.List(c.Request.Context(), claims.JudgeID, f)
	if err != nil {
		h.log.Error().Err(err).Int("judge_id", claims.JudgeID).Msg("Failed to list submissions")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.SuccessWithPagination(c, http.StatusOK, records, response.NewPagination(f.Page, f.PerPage, total))
}

// ExportSubmissions godoc
// GET /api/v1/judging/submissions/export
// Downloads every submission of the judge as an xlsx workbook.
func (h *SubmissionHandler) ExportSubmissions(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	// Buffered so a failure can still be reported as JSON.
	var buf bytes.Buffer
	if err := h.export.Export(c.Request.Context(), claims.JudgeID, &buf); err != nil {
		h.log.Error().Err(err).Int("judge_id", claims.JudgeID).Msg("Failed to export submissions")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	filename := fmt.Sprintf("penilaian-juri-%d-%s.xlsx", claims.JudgeID, time.Now().Format("20060102-150405"))
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}
