package router

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/stemsi/mtq-judge/internal/config"
	"github.com/stemsi/mtq-judge/internal/handler"
	"github.com/stemsi/mtq-judge/internal/metrics"
	"github.com/stemsi/mtq-judge/internal/middleware"
	"github.com/stemsi/mtq-judge/internal/response"
	"github.com/stemsi/mtq-judge/internal/service"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Auth        *handler.AuthHandler
	Rubric      *handler.RubricHandler
	Judging     *handler.JudgingHandler
	Submissions *handler.SubmissionHandler
	WS          *handler.WSHandler
	System      *handler.SystemHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
// uncompressedRoutes stream or serve binary bodies: the xlsx export, the SSE
// status feed, the websocket handshake and promhttp, which encodes its own.
var uncompressedRoutes = []string{
	"/api/v1/judging/submissions/export",
	"/api/v1/system/status",
	"/ws/v1/judging/stream",
	"/metrics",
}

// loginLimiter may be nil.
func SetupRouter(
	authService *service.AuthService,
	handlers *Handlers,
	loginLimiter *middleware.RateLimiter,
	cfg *config.Config,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.Default()

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining", "Content-Disposition"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Apply request ID middleware globally so every response includes metadata.
	router.Use(response.RequestIDMiddleware())
	router.Use(middleware.Metrics())
	router.Use(middleware.Brotli(uncompressedRoutes...))

	router.GET("/health", handlers.System.Health)
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	// ─── 1. Auth Group ─────────────────────────────────────────────────
	auth := router.Group("/api/v1/auth/judge")
	{
		login := []gin.HandlerFunc{handlers.Auth.JudgeLogin}
		if loginLimiter != nil {
			login = append([]gin.HandlerFunc{loginLimiter.Middleware()}, login...)
		}
		auth.POST("/login", login...)

		auth.POST("/logout", middleware.RequireJudgeJWT(authService), handlers.Auth.JudgeLogout)
		auth.GET("/me",
			middleware.RequireJudgeJWT(authService),
			middleware.CheckSingleDeviceSession(authService),
			handlers.Auth.GetJudgeProfile,
		)
	}

	// ─── 2. Public reference data ──────────────────────────────────────
	router.GET("/api/v1/rubric", middleware.CacheControl(3600), handlers.Rubric.GetRubric)

	// ─── 3. Judging Group (JWT + Single Device) ────────────────────────
	judging := router.Group("/api/v1/judging")
	judging.Use(
		middleware.RequireJudgeJWT(authService),
		middleware.CheckSingleDeviceSession(authService),
		middleware.NoStore(),
	)
	{
		judging.GET("/rounds", handlers.Judging.ListRounds)
		judging.GET("/candidates/active", handlers.Judging.ListActiveCandidates)

		session := judging.Group("/session")
		{
			session.GET("", handlers.Judging.GetSession)
			session.PUT("/round", handlers.Judging.SelectRound)
			session.PUT("/candidate", handlers.Judging.SelectCandidate)
			session.POST("/candidate/next", handlers.Judging.NextCandidate)
			session.POST("/candidate/prev", handlers.Judging.PrevCandidate)
			session.PUT("/question", handlers.Judging.JumpQuestion)
			session.POST("/question/next", handlers.Judging.NextQuestion)
			session.POST("/question/prev", handlers.Judging.PrevQuestion)
			session.PUT("/questions/:number/criteria", handlers.Judging.SetCriterion)
			session.PUT("/questions/:number/comment", handlers.Judging.SetComment)
			session.POST("/comments/toggle", handlers.Judging.ToggleComments)
			session.POST("/reset", handlers.Judging.ResetSession)
			session.POST("/submit", handlers.Judging.SubmitScores)
		}

		judging.GET("/scores/:candidate_id/rounds/:round_id", handlers.Judging.GetScoreDetail)
		judging.GET("/submissions", handlers.Submissions.ListSubmissions)
		judging.GET("/submissions/export", handlers.Submissions.ExportSubmissions)
	}

	// ─── 4. System Group (JWT) ─────────────────────────────────────────
	system := router.Group("/api/v1/system")
	system.Use(middleware.RequireJudgeJWT(authService))
	{
		system.GET("/status", handlers.System.StatusSSE)
	}

	// ─── 5. WebSocket Group (Judge WS Auth) ────────────────────────────
	ws := router.Group("/ws/v1")
	ws.Use(
		middleware.RequireJudgeWSAuth(authService),
		middleware.CheckSingleDeviceSession(authService),
	)
	{
		ws.GET("/judging/stream", handlers.WS.JudgingStream)
	}

	return router
}
