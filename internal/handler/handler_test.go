package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stemsi/mtq-judge/internal/competition"
	"github.com/stemsi/mtq-judge/internal/middleware"
	"github.com/stemsi/mtq-judge/internal/model"
	"github.com/stemsi/mtq-judge/internal/repository"
	"github.com/stemsi/mtq-judge/internal/response"
	"github.com/stemsi/mtq-judge/internal/rubric"
	"github.com/stemsi/mtq-judge/internal/scoring"
	"github.com/stemsi/mtq-judge/internal/service"
	"github.com/stemsi/mtq-judge/internal/validator"
	ws "github.com/stemsi/mtq-judge/internal/websocket"
)

func init() {
	gin.SetMode(gin.TestMode)
	validator.Setup()
}

type fakeAPI struct {
	roundActive bool
	submitErr   error
	detail      *model.ScoreDetail
	submitted   []model.ScoreSubmission
}

func (f *fakeAPI) ListRounds(context.Context) ([]model.Round, error) {
	return []model.Round{{ID: 1, Name: "Penyisihan", Order: 1, IsActive: f.roundActive}}, nil
}

func (f *fakeAPI) ListCandidates(context.Context, int) ([]model.Candidate, error) {
	return []model.Candidate{{ID: 10, Name: "Ahmad"}, {ID: 11, Name: "Fatimah"}}, nil
}

func (f *fakeAPI) ListActiveCandidates(context.Context) ([]model.Candidate, error) {
	return []model.Candidate{{ID: 11, Name: "Fatimah"}}, nil
}

func (f *fakeAPI) SubmitScores(_ context.Context, sub model.ScoreSubmission) (*model.ScoreAck, error) {
	if f.submitErr != nil {
		return nil, f.submitErr
	}
	f.submitted = append(f.submitted, sub)
	return &model.ScoreAck{Success: true, Message: "Nilai tersimpan"}, nil
}

func (f *fakeAPI) GetScoreDetail(context.Context, int, int) (*model.ScoreDetail, error) {
	if f.detail == nil {
		return nil, &competition.APIError{Status: http.StatusNotFound, Message: "Belum ada nilai"}
	}
	return f.detail, nil
}

type testEnv struct {
	api     *fakeAPI
	judging *service.JudgingService
	router  *gin.Engine
}

func newEnv(t *testing.T) *testEnv {
	t.Helper()
	api := &fakeAPI{roundActive: true}
	dial := func(string) service.CompetitionAPI { return api }
	cache := repository.NewListingCache(nil, 0, zerolog.Nop())
	judging := service.NewJudgingService(dial, cache, nil, zerolog.Nop())

	sess := &service.JudgeSession{JTI: "jti", RemoteToken: "remote", Judge: model.Judge{ID: 7, Name: "Ust. Hasan"}}
	authenticated := func(c *gin.Context) {
		c.Set(middleware.ContextKeyClaims, &service.Claims{JudgeID: 7, Name: "Ust. Hasan"})
		c.Set(middleware.ContextKeyJudgeSession, sess)
		c.Next()
	}

	jh := NewJudgingHandler(judging, service.NewResultService(judging), zerolog.Nop())
	wh := NewWSHandler(judging, zerolog.Nop(), nil)

	r := gin.New()
	r.GET("/rubric", NewRubricHandler().GetRubric)
	g := r.Group("/judging", authenticated)
	g.GET("/rounds", jh.ListRounds)
	g.GET("/candidates/active", jh.ListActiveCandidates)
	g.GET("/session", jh.GetSession)
	g.PUT("/session/round", jh.SelectRound)
	g.PUT("/session/candidate", jh.SelectCandidate)
	g.POST("/session/candidate/next", jh.NextCandidate)
	g.PUT("/session/question", jh.JumpQuestion)
	g.POST("/session/question/next", jh.NextQuestion)
	g.PUT("/session/questions/:number/criteria", jh.SetCriterion)
	g.PUT("/session/questions/:number/comment", jh.SetComment)
	g.POST("/session/comments/toggle", jh.ToggleComments)
	g.POST("/session/reset", jh.ResetSession)
	g.POST("/session/submit", jh.SubmitScores)
	g.GET("/scores/:candidate_id/rounds/:round_id", jh.GetScoreDetail)
	r.GET("/ws", authenticated, wh.JudgingStream)

	return &testEnv{api: api, judging: judging, router: r}
}

type envelope struct {
	Data  json.RawMessage     `json:"data"`
	Error *response.ErrorBody `json:"error"`
}

func (e *testEnv) do(t *testing.T, method, path string, body any) (int, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w.Code, env
}

func sessionOf(t *testing.T, env envelope) scoring.View {
	t.Helper()
	var data struct {
		Session scoring.View `json:"session"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	return data.Session
}

func (e *testEnv) scoreAll(t *testing.T, value map[string]float64) {
	t.Helper()
	for q := 1; q <= rubric.QuestionCount; q++ {
		for crit, v := range value {
			v := v
			code, env := e.do(t, http.MethodPut, "/judging/session/questions/"+string(rune('0'+q))+"/criteria",
				gin.H{"criterion": crit, "value": &v})
			require.Equal(t, http.StatusOK, code, env.Error)
		}
	}
}

var fullMarks = map[string]float64{"recitation": 2, "siffat": 1, "makharij": 2, "minor_error": 1}

func TestGetRubric(t *testing.T) {
	e := newEnv(t)
	code, env := e.do(t, http.MethodGet, "/rubric", nil)
	require.Equal(t, http.StatusOK, code)

	var data struct {
		QuestionCount int                 `json:"question_count"`
		SessionMax    float64             `json:"session_max"`
		Criteria      []rubric.Definition `json:"criteria"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Equal(t, 5, data.QuestionCount)
	assert.Equal(t, 30.0, data.SessionMax)
	assert.Len(t, data.Criteria, 4)
}

func TestJudgingFlowSubmitsAndAdvances(t *testing.T) {
	e := newEnv(t)

	code, env := e.do(t, http.MethodPut, "/judging/session/candidate", gin.H{"candidate_id": 10})
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, response.ErrNoRoundSelected, env.Error.Code)

	code, env = e.do(t, http.MethodPut, "/judging/session/round", gin.H{"round_id": 1})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, scoring.StateRoundSelected, sessionOf(t, env).State)

	code, env = e.do(t, http.MethodPut, "/judging/session/candidate", gin.H{"candidate_id": 10})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Ahmad", sessionOf(t, env).Candidate.Name)

	code, env = e.do(t, http.MethodPost, "/judging/session/submit", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, code)
	assert.Equal(t, response.ErrIncompleteRubric, env.Error.Code)

	e.scoreAll(t, fullMarks)

	code, env = e.do(t, http.MethodPost, "/judging/session/submit", nil)
	require.Equal(t, http.StatusOK, code, env.Error)

	var data struct {
		Outcome scoring.Outcome `json:"outcome"`
		Session scoring.View    `json:"session"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Equal(t, 30.0, data.Outcome.Submission.Total)
	assert.Equal(t, "Fatimah", data.Session.Candidate.Name)
	assert.Equal(t, 0, data.Session.ScoredCount)
	require.Len(t, e.api.submitted, 1)
}

func TestSetCriterionValidation(t *testing.T) {
	e := newEnv(t)
	e.do(t, http.MethodPut, "/judging/session/round", gin.H{"round_id": 1})
	e.do(t, http.MethodPut, "/judging/session/candidate", gin.H{"candidate_id": 10})

	tests := []struct {
		name string
		path string
		body gin.H
		code int
		err  response.ErrCode
	}{
		{"illegal value", "/judging/session/questions/1/criteria", gin.H{"criterion": "siffat", "value": 0.3}, http.StatusUnprocessableEntity, response.ErrIllegalValue},
		{"unknown criterion", "/judging/session/questions/1/criteria", gin.H{"criterion": "tartil", "value": 1}, http.StatusBadRequest, response.ErrValidation},
		{"missing value", "/judging/session/questions/1/criteria", gin.H{"criterion": "siffat"}, http.StatusBadRequest, response.ErrValidation},
		{"question out of range", "/judging/session/questions/6/criteria", gin.H{"criterion": "siffat", "value": 1}, http.StatusBadRequest, response.ErrInvalidID},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, env := e.do(t, http.MethodPut, tt.path, tt.body)
			assert.Equal(t, tt.code, code)
			require.NotNil(t, env.Error)
			assert.Equal(t, tt.err, env.Error.Code)
		})
	}
}

func TestZeroScoreAndResetNeedConfirmation(t *testing.T) {
	e := newEnv(t)
	e.do(t, http.MethodPut, "/judging/session/round", gin.H{"round_id": 1})
	e.do(t, http.MethodPut, "/judging/session/candidate", gin.H{"candidate_id": 10})
	e.scoreAll(t, map[string]float64{"recitation": 0, "siffat": 0, "makharij": 0, "minor_error": 0})

	code, env := e.do(t, http.MethodPost, "/judging/session/submit", gin.H{"confirm_zero": false})
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, response.ErrZeroScoreConfirmation, env.Error.Code)
	assert.Empty(t, e.api.submitted)

	code, env = e.do(t, http.MethodPost, "/judging/session/reset", nil)
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, response.ErrResetConfirmation, env.Error.Code)

	code, env = e.do(t, http.MethodPost, "/judging/session/reset", gin.H{"confirm": true})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 0, sessionOf(t, env).ScoredCount)
}

func TestSubmitFailureKeepsSessionAndShowsReason(t *testing.T) {
	e := newEnv(t)
	e.api.submitErr = &competition.APIError{Status: http.StatusConflict, Message: "Nilai untuk peserta ini sudah ada"}
	e.do(t, http.MethodPut, "/judging/session/round", gin.H{"round_id": 1})
	e.do(t, http.MethodPut, "/judging/session/candidate", gin.H{"candidate_id": 10})
	e.scoreAll(t, fullMarks)

	code, env := e.do(t, http.MethodPost, "/judging/session/submit", nil)
	assert.Equal(t, http.StatusBadGateway, code)
	assert.Equal(t, response.ErrSubmissionFailed, env.Error.Code)
	assert.Equal(t, "Nilai untuk peserta ini sudah ada", env.Error.Message)

	_, env = e.do(t, http.MethodGet, "/judging/session", nil)
	v := sessionOf(t, env)
	assert.Equal(t, "Ahmad", v.Candidate.Name)
	assert.Equal(t, 30.0, v.Total)
}

func TestInactiveRoundBlocksSubmission(t *testing.T) {
	e := newEnv(t)
	e.api.roundActive = false
	e.do(t, http.MethodPut, "/judging/session/round", gin.H{"round_id": 1})
	e.do(t, http.MethodPut, "/judging/session/candidate", gin.H{"candidate_id": 10})
	e.scoreAll(t, fullMarks)

	code, env := e.do(t, http.MethodPost, "/judging/session/submit", nil)
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, response.ErrRoundNotActive, env.Error.Code)
}

func TestScoreDetail(t *testing.T) {
	e := newEnv(t)

	code, env := e.do(t, http.MethodGet, "/judging/scores/10/rounds/1", nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "Belum ada nilai", env.Error.Message)

	e.api.detail = &model.ScoreDetail{CandidateID: 10, RoundID: 1, Total: 24, ScaleMax: 30}

	code, env = e.do(t, http.MethodGet, "/judging/scores/10/rounds/1?scale=25", nil)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, response.ErrInvalidScale, env.Error.Code)

	code, env = e.do(t, http.MethodGet, "/judging/scores/10/rounds/1?scale=20", nil)
	require.Equal(t, http.StatusOK, code)
	var data struct {
		Score model.ScoreDetail `json:"score"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.InDelta(t, 16.0, data.Score.Total, 1e-9)
	assert.Equal(t, 20.0, data.Score.ScaleMax)

	e.api.detail = &model.ScoreDetail{CandidateID: 10, RoundID: 1, Total: 24}
	code, env = e.do(t, http.MethodGet, "/judging/scores/10/rounds/1", nil)
	assert.Equal(t, http.StatusBadGateway, code)
	assert.Equal(t, response.ErrInvalidScale, env.Error.Code)

	code, _ = e.do(t, http.MethodGet, "/judging/scores/abc/rounds/1", nil)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code response.ErrCode
		msg  string
	}{
		{"wrapped sentinel", errors.Join(errors.New("ctx"), scoring.ErrCandidateNotFound), response.ErrCandidateNotFound, ""},
		{"remote token expired", &scoring.SubmissionError{Reason: "x", Err: &competition.APIError{Status: 401}}, response.ErrSessionInvalidated, ""},
		{"listing unauthorized", &competition.APIError{Status: 401}, response.ErrSessionInvalidated, ""},
		{"remote outage", &competition.APIError{Status: 503, Message: "maintenance"}, response.ErrCompetitionUnavailable, "maintenance"},
		{"network", errors.New("dial tcp: refused"), response.ErrCompetitionUnavailable, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := classify(tt.err)
			assert.Equal(t, tt.code, f.code)
			assert.Equal(t, tt.msg, f.message)
		})
	}
}

func TestJudgingStream(t *testing.T) {
	e := newEnv(t)
	srv := httptest.NewServer(e.router)
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	defer conn.Close()

	read := func(v any) {
		t.Helper()
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		require.NoError(t, conn.ReadJSON(v))
	}

	var first ws.SessionEvent
	read(&first)
	assert.Equal(t, ws.EventSession, first.Event)
	assert.Equal(t, scoring.StateNoRound, first.Session.State)

	require.NoError(t, conn.WriteJSON(ws.Request{Action: ws.ActionPing}))
	var pong ws.PongResponse
	read(&pong)
	assert.Equal(t, ws.EventPong, pong.Event)

	index := 2
	require.NoError(t, conn.WriteJSON(ws.Request{Action: ws.ActionJumpQuestion, Index: &index}))
	var failed ws.ErrorResponse
	read(&failed)
	assert.Equal(t, ws.EventError, failed.Event)
	assert.Equal(t, string(response.ErrNoCandidateSelected), failed.Code)

	// Changes made over HTTP reach the stream too.
	code, _ := e.do(t, http.MethodPut, "/judging/session/round", gin.H{"round_id": 1})
	require.Equal(t, http.StatusOK, code)
	var pushed ws.SessionEvent
	read(&pushed)
	assert.Equal(t, scoring.StateRoundSelected, pushed.Session.State)
}

func TestStreamDropsRepliesToSlowClient(t *testing.T) {
	var logs bytes.Buffer
	log := zerolog.New(&logs)
	h := NewWSHandler(nil, zerolog.Nop(), nil)
	api := &fakeAPI{roundActive: true}
	con := scoring.NewConsole(api, api, nil)

	out := ws.NewOutbox(nil, 1)
	require.NoError(t, out.Push(ws.PongResponse{Event: ws.EventPong}))

	h.handle(con, out, &ws.Request{Action: ws.ActionPing}, log)
	assert.Contains(t, logs.String(), "Dropping reply to slow client")
	assert.NotContains(t, logs.String(), string(response.ErrCompetitionUnavailable))

	logs.Reset()
	index := 1
	h.handle(con, out, &ws.Request{Action: ws.ActionJumpQuestion, Index: &index}, log)
	assert.Contains(t, logs.String(), "Dropping error reply to slow client")
	assert.Contains(t, logs.String(), string(response.ErrNoCandidateSelected))

	logs.Reset()
	out.Close()
	h.handle(con, out, &ws.Request{Action: ws.ActionPing}, log)
	assert.Contains(t, logs.String(), "Dropping reply to slow client")
}
