package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/stemsi/mtq-judge/internal/metrics"
	"github.com/stemsi/mtq-judge/internal/model"
	"github.com/stemsi/mtq-judge/internal/observability"
	"github.com/stemsi/mtq-judge/internal/repository"
	"github.com/stemsi/mtq-judge/internal/scoring"
)

// CompetitionAPI is the competition service as seen by one judge.
type CompetitionAPI interface {
	repository.ListingSource
	scoring.ScoreSubmitter
	GetScoreDetail(ctx context.Context, candidateID, roundID int) (*model.ScoreDetail, error)
}

// CompetitionDialer binds a judge's remote token to the competition API.
type CompetitionDialer func(remoteToken string) CompetitionAPI

// SubmissionQueue hands accepted submissions to the audit trail.
type SubmissionQueue interface {
	Enqueue(ctx context.Context, rec model.SubmissionRecord) error
}

type judgeConsole struct {
	token    string
	api      CompetitionAPI
	console  *scoring.Console
	lastUsed time.Time
}

// JudgingService keeps one scoring console per logged-in judge.
type JudgingService struct {
	dial  CompetitionDialer
	cache *repository.ListingCache
	queue SubmissionQueue
	log   zerolog.Logger
	now   func() time.Time

	mu       sync.Mutex
	consoles map[int]*judgeConsole
}

// NewJudgingService creates a new JudgingService. queue may be nil.
func NewJudgingService(dial CompetitionDialer, cache *repository.ListingCache, queue SubmissionQueue, log zerolog.Logger) *JudgingService {
	return &JudgingService{
		dial:     dial,
		cache:    cache,
		queue:    queue,
		log:      log.With().Str("component", "judging_service").Logger(),
		now:      time.Now,
		consoles: make(map[int]*judgeConsole),
	}
}

// Console returns the judge's console, creating it on first use. A console
// opened under an older remote token is replaced by a fresh one.
func (s *JudgingService) Console(sess *JudgeSession) *scoring.Console {
	return s.entry(sess).console
}

func (s *JudgingService) entry(sess *JudgeSession) *judgeConsole {
	s.mu.Lock()
	defer s.mu.Unlock()

	if jc, ok := s.consoles[sess.Judge.ID]; ok && jc.token == sess.RemoteToken {
		jc.lastUsed = s.now()
		return jc
	}

	api := s.dial(sess.RemoteToken)
	jc := &judgeConsole{
		token:    sess.RemoteToken,
		api:      api,
		console:  scoring.NewConsole(s.cache.Wrap(api), api, s.cache),
		lastUsed: s.now(),
	}
	s.consoles[sess.Judge.ID] = jc
	metrics.ActiveConsoles.Set(float64(len(s.consoles)))

	s.log.Info().Int("judge_id", sess.Judge.ID).Msg("Scoring console opened")
	return jc
}

// API returns the judge's competition API binding.
func (s *JudgingService) API(sess *JudgeSession) CompetitionAPI {
	return s.entry(sess).api
}

// ActiveCandidates lists candidates still in competition.
func (s *JudgingService) ActiveCandidates(ctx context.Context, sess *JudgeSession) ([]model.Candidate, error) {
	return s.cache.Wrap(s.API(sess)).ListActiveCandidates(ctx)
}

// Submit runs the judge's submission and records the result.
func (s *JudgingService) Submit(ctx context.Context, sess *JudgeSession, confirm scoring.Confirmer) (*scoring.Outcome, scoring.View, error) {
	start := time.Now()
	out, v, err := s.Console(sess).Submit(ctx, confirm)

	log := s.log.With().Int("judge_id", sess.Judge.ID).Logger()

	var subErr *scoring.SubmissionError
	switch {
	case err == nil:
		metrics.ObserveSubmission("accepted", time.Since(start))
		log.Info().
			Int("candidate_id", out.Submission.CandidateID).
			Int("round_id", out.Submission.RoundID).
			Float64("total", out.Submission.Total).
			Bool("round_complete", out.RoundComplete).
			Msg("Scores submitted")
		s.audit(ctx, sess.Judge.ID, out)
	case errors.As(err, &subErr):
		metrics.ObserveSubmission("rejected", time.Since(start))
		observability.CaptureJudgeErr(err, sess.Judge.ID, "submit_scores")
		log.Warn().Err(err).Str("reason", subErr.Reason).Msg("Score submission failed")
	default:
		metrics.ObserveSubmission("blocked", 0)
		log.Debug().Err(err).Msg("Score submission blocked")
	}
	return out, v, err
}

func (s *JudgingService) audit(ctx context.Context, judgeID int, out *scoring.Outcome) {
	if s.queue == nil {
		return
	}
	rec := model.SubmissionRecord{
		JudgeID:     judgeID,
		CandidateID: out.Submission.CandidateID,
		RoundID:     out.Submission.RoundID,
		Total:       out.Submission.Total,
		Questions:   out.Submission.Questions,
		Message:     out.Ack.Message,
		SubmittedAt: time.Now().UTC(),
	}
	if err := s.queue.Enqueue(context.WithoutCancel(ctx), rec); err != nil {
		observability.CaptureJudgeErr(err, judgeID, "audit_enqueue")
		s.log.Error().Err(err).Int("judge_id", judgeID).Msg("Failed to queue submission audit")
	}
}

// Drop discards the judge's console.
func (s *JudgingService) Drop(judgeID int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.consoles[judgeID]; !ok {
		return
	}
	delete(s.consoles, judgeID)
	metrics.ActiveConsoles.Set(float64(len(s.consoles)))
	s.log.Info().Int("judge_id", judgeID).Msg("Scoring console closed")
}

// Evict drops consoles unused for longer than idle and returns how many
// were dropped. With idle set to the token lifetime, this reclaims the
// consoles of judges whose login expired without a logout.
func (s *JudgingService) Evict(idle time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-idle)
	evicted := 0
	for judgeID, jc := range s.consoles {
		if jc.lastUsed.Before(cutoff) {
			delete(s.consoles, judgeID)
			evicted++
			s.log.Info().Int("judge_id", judgeID).Msg("Idle scoring console evicted")
		}
	}
	if evicted > 0 {
		metrics.ActiveConsoles.Set(float64(len(s.consoles)))
	}
	return evicted
}

// StartEviction runs Evict every interval until ctx is done.
func (s *JudgingService) StartEviction(ctx context.Context, interval, idle time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Evict(idle)
		}
	}
}
