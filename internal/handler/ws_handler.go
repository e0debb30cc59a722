package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/stemsi/mtq-judge/internal/metrics"
	"github.com/stemsi/mtq-judge/internal/middleware"
	"github.com/stemsi/mtq-judge/internal/response"
	"github.com/stemsi/mtq-judge/internal/rubric"
	"github.com/stemsi/mtq-judge/internal/scoring"
	"github.com/stemsi/mtq-judge/internal/service"
	ws "github.com/stemsi/mtq-judge/internal/websocket"
)

const outboxSize = 16

// buildUpgrader creates a WebSocket upgrader with origin validation.
// allowedOrigins comes from config.Config.AllowedOrigins.
// An empty slice permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// WSHandler streams a judge's scoring session.
type WSHandler struct {
	judging  *service.JudgingService
	log      zerolog.Logger
	upgrader websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(judging *service.JudgingService, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		judging:  judging,
		log:      log.With().Str("component", "ws_handler").Logger(),
		upgrader: buildUpgrader(allowedOrigins),
	}
}

// JudgingStream godoc
// WS /ws/v1/judging/stream?token=
// Sends a session snapshot on connect and after every change, including
// changes made through the HTTP routes. Accepts scoring actions.
func (h *WSHandler) JudgingStream(c *gin.Context) {
	sess := middleware.GetJudgeSession(c)
	if sess == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	wsLog := h.log.With().Int("judge_id", sess.Judge.ID).Logger()
	con := h.judging.Console(sess)

	out := ws.NewOutbox(conn, outboxSize)
	defer out.Close()

	unsubscribe := con.Subscribe(func(v scoring.View) {
		if err := out.Push(ws.SessionEvent{Event: ws.EventSession, Session: v}); err != nil {
			wsLog.Warn().Err(err).Msg("Dropped session snapshot")
		}
	})
	defer unsubscribe()

	metrics.StreamClients.Inc()
	defer metrics.StreamClients.Dec()

	go func() {
		if err := out.Run(); err != nil {
			wsLog.Debug().Err(err).Msg("Stream writer stopped")
		}
	}()
	_ = out.Push(ws.SessionEvent{Event: ws.EventSession, Session: con.View()})

	wsLog.Info().Msg("Judge connected")

	for {
		var msg ws.Request
		err := ws.ReadJSON(conn, &msg)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsLog.Warn().Err(err).Msg("Unexpected close")
			} else {
				wsLog.Debug().Msg("Connection closed")
			}
			break
		}

		h.handle(con, out, &msg, wsLog)
	}
}

// handle runs one action and reports its failure to the client. A reply
// that cannot be queued is dropped: the client is either gone or will catch
// up from the next session snapshot.
func (h *WSHandler) handle(con *scoring.Console, out *ws.Outbox, msg *ws.Request, log zerolog.Logger) {
	err := h.dispatch(con, out, msg)
	if err == nil {
		return
	}
	if undeliverable(err) {
		log.Warn().Err(err).Str("action", string(msg.Action)).Msg("Dropping reply to slow client")
		return
	}

	f := classify(err)
	msgText := f.message
	if msgText == "" {
		msgText = response.GetMessage(f.code)
	}
	if err := out.Error(string(f.code), msgText); undeliverable(err) {
		log.Warn().Err(err).Str("code", string(f.code)).Msg("Dropping error reply to slow client")
	}
}

func undeliverable(err error) bool {
	return errors.Is(err, ws.ErrOutboxFull) || errors.Is(err, websocket.ErrCloseSent)
}

// dispatch applies one action. Successful mutations reach the client
// through the console subscription.
func (h *WSHandler) dispatch(con *scoring.Console, out *ws.Outbox, msg *ws.Request) error {
	var err error
	switch msg.Action {
	case ws.ActionPing:
		return out.Push(ws.PongResponse{Event: ws.EventPong})
	case ws.ActionSetCriterion:
		if msg.Value == nil {
			return scoring.ErrIllegalValue
		}
		_, err = con.SetCriterion(msg.Question-1, rubric.Criterion(msg.Criterion), *msg.Value)
	case ws.ActionSetComment:
		_, err = con.SetComment(msg.Question-1, msg.Comment)
	case ws.ActionNextQuestion:
		_, err = con.NextQuestion()
	case ws.ActionPrevQuestion:
		_, err = con.PrevQuestion()
	case ws.ActionJumpQuestion:
		if msg.Index == nil {
			return scoring.ErrQuestionOutOfRange
		}
		_, err = con.JumpToQuestion(*msg.Index)
	default:
		h.log.Warn().Str("action", string(msg.Action)).Msg("Unknown action")
		return out.Error(string(response.ErrInvalidPayload), "unknown action: "+string(msg.Action))
	}
	return err
}
