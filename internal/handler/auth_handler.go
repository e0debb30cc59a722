package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/stemsi/mtq-judge/internal/middleware"
	"github.com/stemsi/mtq-judge/internal/model"
	"github.com/stemsi/mtq-judge/internal/response"
	"github.com/stemsi/mtq-judge/internal/service"
	"github.com/stemsi/mtq-judge/internal/validator"
)

// AuthHandler handles judge authentication endpoints.
type AuthHandler struct {
	authService *service.AuthService
	judging     *service.JudgingService
	log         zerolog.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService *service.AuthService, judging *service.JudgingService, log zerolog.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		judging:     judging,
		log:         log.With().Str("component", "auth_handler").Logger(),
	}
}

// JudgeLogin godoc
// POST /api/v1/auth/judge/login
// Verifies the credentials with the competition API and returns a JWT.
// Any earlier session of the same judge stops working.
func (h *AuthHandler) JudgeLogin(c *gin.Context) {
	var req model.JudgeLoginRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	res, err := h.authService.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			response.Fail(c, http.StatusUnauthorized, response.ErrInvalidCredentials)
			return
		}
		h.log.Error().Err(err).Str("username", req.Username).Msg("Judge login failed")
		response.Fail(c, http.StatusBadGateway, response.ErrCompetitionUnavailable)
		return
	}

	// The previous console belongs to the replaced session.
	h.judging.Drop(res.Judge.ID)

	h.log.Info().Int("judge_id", res.Judge.ID).Msg("Judge logged in")
	response.Success(c, http.StatusOK, res)
}

// JudgeLogout godoc
// POST /api/v1/auth/judge/logout
// Ends the session and discards the judge's scoring console.
func (h *AuthHandler) JudgeLogout(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	if err := h.authService.Logout(c.Request.Context(), claims.JudgeID); err != nil {
		h.log.Error().Err(err).Int("judge_id", claims.JudgeID).Msg("Failed to remove session")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	h.judging.Drop(claims.JudgeID)

	response.Success(c, http.StatusOK, gin.H{})
}

// GetJudgeProfile godoc
// GET /api/v1/auth/judge/me
func (h *AuthHandler) GetJudgeProfile(c *gin.Context) {
	sess := middleware.GetJudgeSession(c)
	if sess == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"judge": sess.Judge})
}
