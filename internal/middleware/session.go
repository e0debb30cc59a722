package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/stemsi/mtq-judge/internal/response"
	"github.com/stemsi/mtq-judge/internal/service"
)

// ContextKeyJudgeSession is the Gin context key for the judge's active session.
const ContextKeyJudgeSession = "judge_session"

// CheckSingleDeviceSession validates the JWT's JTI against the judge's
// session in Redis. A token from an older login, or from before logout,
// is rejected.
func CheckSingleDeviceSession(authService *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := GetClaims(c)
		if claims == nil {
			response.AbortFail(c, http.StatusUnauthorized, response.ErrTokenRequired)
			return
		}

		sess, err := authService.ValidateSession(c.Request.Context(), claims.JudgeID, claims.ID)
		if err != nil {
			if errors.Is(err, service.ErrNoActiveSession) || errors.Is(err, service.ErrSessionInvalidated) {
				response.AbortFail(c, http.StatusUnauthorized, response.ErrSessionInvalidated)
				return
			}
			response.AbortFail(c, http.StatusServiceUnavailable, response.ErrInternal)
			return
		}

		c.Set(ContextKeyJudgeSession, sess)
		c.Next()
	}
}

// GetJudgeSession retrieves the session stored by CheckSingleDeviceSession.
func GetJudgeSession(c *gin.Context) *service.JudgeSession {
	val, exists := c.Get(ContextKeyJudgeSession)
	if !exists {
		return nil
	}
	sess, _ := val.(*service.JudgeSession)
	return sess
}
