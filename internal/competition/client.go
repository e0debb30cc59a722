// Package competition is the HTTP client of the remote competition API, which
// owns rounds, candidates and persisted scores.
package competition

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/stemsi/mtq-judge/internal/model"
)

// ErrUnauthorized is matched by APIErrors with status 401.
var ErrUnauthorized = errors.New("competition api: unauthorized")

// APIError is a non-2xx answer of the competition API.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("competition api: status %d", e.Status)
	}
	return fmt.Sprintf("competition api: status %d: %s", e.Status, e.Message)
}

// Reason is the human-readable message returned by the API, if any.
func (e *APIError) Reason() string { return e.Message }

func (e *APIError) Is(target error) bool {
	return target == ErrUnauthorized && e.Status == http.StatusUnauthorized
}

// envelope is the API's response wrapper.
type envelope struct {
	Success *bool           `json:"success,omitempty"`
	Message string          `json:"message,omitempty"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data"`
}

// Client talks to the competition API. It holds no credentials; use
// Session to bind a judge's token.
type Client struct {
	baseURL string
	http    *http.Client
	log     zerolog.Logger
}

// New creates a Client for baseURL.
func New(baseURL string, timeout time.Duration, log zerolog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		log:     log.With().Str("component", "competition_client").Logger(),
	}
}

// LoginResult is the API's answer to a successful judge login.
type LoginResult struct {
	Token string      `json:"token"`
	Judge model.Judge `json:"judge"`
}

// Login exchanges judge credentials for an API token.
func (c *Client) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	var out LoginResult
	body := map[string]string{"username": username, "password": password}
	if _, err := c.do(ctx, "", http.MethodPost, "/auth/login", body, &out); err != nil {
		return nil, err
	}
	if out.Token == "" {
		return nil, errors.New("competition api: login returned no token")
	}
	return &out, nil
}

// Session binds a judge's API token to the client.
func (c *Client) Session(token string) *Session {
	return &Session{client: c, token: token}
}

// Session is a token-bound view of the API. It implements the scoring
// listing and submission collaborators.
type Session struct {
	client *Client
	token  string
}

// ListRounds returns rounds ordered by their position.
func (s *Session) ListRounds(ctx context.Context) ([]model.Round, error) {
	var rounds []model.Round
	if _, err := s.client.do(ctx, s.token, http.MethodGet, "/rounds", nil, &rounds); err != nil {
		return nil, err
	}
	sortRounds(rounds)
	return rounds, nil
}

// ListCandidates returns the ordered candidates of a round.
func (s *Session) ListCandidates(ctx context.Context, roundID int) ([]model.Candidate, error) {
	var out []model.Candidate
	path := fmt.Sprintf("/rounds/%d/candidates", roundID)
	if _, err := s.client.do(ctx, s.token, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []model.Candidate{}
	}
	return out, nil
}

// ListActiveCandidates returns candidates still in competition, regardless of round.
func (s *Session) ListActiveCandidates(ctx context.Context) ([]model.Candidate, error) {
	var out []model.Candidate
	if _, err := s.client.do(ctx, s.token, http.MethodGet, "/candidates/active", nil, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []model.Candidate{}
	}
	return out, nil
}

// SubmitScores persists a submission keyed by candidate and round.
func (s *Session) SubmitScores(ctx context.Context, sub model.ScoreSubmission) (*model.ScoreAck, error) {
	env, err := s.client.do(ctx, s.token, http.MethodPost, "/scores", sub, nil)
	if err != nil {
		return nil, err
	}
	ack := &model.ScoreAck{Success: true, Message: env.Message}
	if env.Success != nil && !*env.Success {
		ack.Success = false
		if ack.Message == "" {
			ack.Message = env.Error
		}
	}
	return ack, nil
}

// GetScoreDetail returns the recorded result of a candidate in a round.
func (s *Session) GetScoreDetail(ctx context.Context, candidateID, roundID int) (*model.ScoreDetail, error) {
	var out model.ScoreDetail
	path := fmt.Sprintf("/scores/%d/rounds/%d", candidateID, roundID)
	if _, err := s.client.do(ctx, s.token, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, token, method, path string, body, out any) (*envelope, error) {
	u, err := url.JoinPath(c.baseURL, path)
	if err != nil {
		return nil, fmt.Errorf("build url: %w", err)
	}

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	res, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer res.Body.Close()

	c.log.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", res.StatusCode).
		Dur("took", time.Since(start)).
		Msg("Competition API call")

	raw, err := io.ReadAll(io.LimitReader(res.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var env envelope
	if len(bytes.TrimSpace(raw)) > 0 {
		if err := json.Unmarshal(raw, &env); err != nil && res.StatusCode/100 == 2 {
			return nil, fmt.Errorf("decode response: %w", err)
		}
	}

	if res.StatusCode/100 != 2 {
		msg := env.Message
		if msg == "" {
			msg = env.Error
		}
		return nil, &APIError{Status: res.StatusCode, Message: msg}
	}

	if out != nil && len(env.Data) > 0 && string(env.Data) != "null" {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return nil, fmt.Errorf("decode data: %w", err)
		}
	}
	return &env, nil
}

func sortRounds(rounds []model.Round) {
	sort.SliceStable(rounds, func(i, j int) bool { return rounds[i].Order < rounds[j].Order })
}
