package websocket

import "github.com/stemsi/mtq-judge/internal/scoring"

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionPing         Action = "ping"
	ActionSetCriterion Action = "set_criterion"
	ActionSetComment   Action = "set_comment"
	ActionNextQuestion Action = "next_question"
	ActionPrevQuestion Action = "prev_question"
	ActionJumpQuestion Action = "jump_question"
)

// Request is the union of all client messages. Question is 1-based.
type Request struct {
	Action    Action   `json:"action"`
	Question  int      `json:"question,omitempty"`
	Criterion string   `json:"criterion,omitempty"`
	Value     *float64 `json:"value,omitempty"`
	Comment   string   `json:"comment,omitempty"`
	Index     *int     `json:"index,omitempty"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventSession Event = "session"
	EventError   Event = "error"
	EventPong    Event = "pong"
)

// SessionEvent carries a fresh snapshot after every change of the console.
type SessionEvent struct {
	Event   Event        `json:"event"`
	Session scoring.View `json:"session"`
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Code  string `json:"code,omitempty"`
	Error string `json:"error"`
}

type PongResponse struct {
	Event Event `json:"event"`
}
