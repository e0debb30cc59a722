package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stemsi/mtq-judge/internal/config"
	"github.com/stemsi/mtq-judge/internal/response"
	"github.com/stemsi/mtq-judge/internal/service"
)

const testSecret = "middleware-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

func signToken(t *testing.T, judgeID int, expiresIn time.Duration) string {
	t.Helper()
	now := time.Now()
	claims := service.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        "jti",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(expiresIn)),
		},
		JudgeID: judgeID,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

func newAuth() *service.AuthService {
	return service.NewAuthService(&config.Config{JWTSecret: testSecret, JWTExpiry: time.Hour}, nil, nil)
}

func perform(r http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRequireJudgeJWT(t *testing.T) {
	r := gin.New()
	r.GET("/me", RequireJudgeJWT(newAuth()), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"judge_id": GetClaims(c).JudgeID})
	})

	cases := []struct {
		name   string
		header string
		status int
		code   response.ErrCode
	}{
		{"missing", "", http.StatusUnauthorized, response.ErrTokenRequired},
		{"garbage", "Bearer nope", http.StatusUnauthorized, response.ErrTokenInvalid},
		{"expired", "Bearer " + signToken(t, 3, -time.Minute), http.StatusUnauthorized, response.ErrTokenExpired},
		{"valid", "bearer " + signToken(t, 3, time.Hour), http.StatusOK, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			w := perform(r, req)
			assert.Equal(t, tc.status, w.Code)
			if tc.code != "" {
				assert.Contains(t, w.Body.String(), string(tc.code))
			} else {
				assert.JSONEq(t, `{"judge_id":3}`, w.Body.String())
			}
		})
	}
}

func TestRequireJudgeWSAuthReadsQuery(t *testing.T) {
	r := gin.New()
	r.GET("/ws", RequireJudgeWSAuth(newAuth()), func(c *gin.Context) { c.Status(http.StatusNoContent) })

	w := perform(r, httptest.NewRequest(http.MethodGet, "/ws", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = perform(r, httptest.NewRequest(http.MethodGet, "/ws?token="+signToken(t, 3, time.Hour), nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestRateLimiterFailsOpen(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 50 * time.Millisecond, MaxRetries: -1})
	defer rdb.Close()

	r := gin.New()
	r.POST("/login", NewRateLimiter(rdb, 1, time.Minute, zerolog.Nop()).Middleware(), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	for i := 0; i < 3; i++ {
		w := perform(r, httptest.NewRequest(http.MethodPost, "/login", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	}
}

func TestNoStoreAndCacheControl(t *testing.T) {
	r := gin.New()
	r.GET("/rubric", CacheControl(300), func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/session", NoStore(), func(c *gin.Context) { c.Status(http.StatusOK) })

	assert.Equal(t, "public, max-age=300", perform(r, httptest.NewRequest(http.MethodGet, "/rubric", nil)).Header().Get("Cache-Control"))
	assert.Equal(t, "no-store", perform(r, httptest.NewRequest(http.MethodGet, "/session", nil)).Header().Get("Cache-Control"))
}

func brotliRequest(path string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.Header.Set("Accept-Encoding", "gzip, br;q=1.0")
	return req
}

func TestBrotliCompressesLargeJSONButNotSkippedRoutes(t *testing.T) {
	r := gin.New()
	r.Use(Brotli("/judging/submissions/export", "/judging/scores/:candidate_id"))
	payload := strings.Repeat("a", 4096)
	r.GET("/judging/session", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"note": payload}) })
	r.GET("/judging/submissions/export", func(c *gin.Context) { c.String(http.StatusOK, payload) })
	r.GET("/judging/scores/:candidate_id", func(c *gin.Context) { c.String(http.StatusOK, payload) })

	w := perform(r, brotliRequest("/judging/session"))
	assert.Equal(t, "br", w.Header().Get("Content-Encoding"))
	assert.Equal(t, "Accept-Encoding", w.Header().Get("Vary"))
	assert.Less(t, w.Body.Len(), len(payload))

	for _, path := range []string{"/judging/submissions/export", "/judging/scores/10"} {
		w = perform(r, brotliRequest(path))
		assert.Empty(t, w.Header().Get("Content-Encoding"), path)
		assert.Equal(t, payload, w.Body.String(), path)
	}
}

func TestBrotliLeavesSmallAndBinaryBodiesAlone(t *testing.T) {
	r := gin.New()
	r.Use(Brotli())
	blob := []byte(strings.Repeat("x", 4096))
	r.GET("/small", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": true}) })
	r.GET("/blob", func(c *gin.Context) {
		c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", blob)
	})

	w := perform(r, brotliRequest("/small"))
	assert.Empty(t, w.Header().Get("Content-Encoding"))
	assert.JSONEq(t, `{"ok":true}`, w.Body.String())

	w = perform(r, brotliRequest("/blob"))
	assert.Empty(t, w.Header().Get("Content-Encoding"))
	assert.Equal(t, blob, w.Body.Bytes())
}

func TestBrotliRequiresAcceptEncoding(t *testing.T) {
	r := gin.New()
	r.Use(Brotli())
	payload := strings.Repeat("b", 4096)
	r.GET("/judging/session", func(c *gin.Context) { c.String(http.StatusOK, payload) })

	req := httptest.NewRequest(http.MethodGet, "/judging/session", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	w := perform(r, req)
	assert.Empty(t, w.Header().Get("Content-Encoding"))
	assert.Equal(t, payload, w.Body.String())
}
