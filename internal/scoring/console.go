package scoring

import (
	"context"
	"fmt"
	"sync"

	"github.com/stemsi/mtq-judge/internal/model"
	"github.com/stemsi/mtq-judge/internal/rubric"
)

// Lister reads the round and candidate listings of the competition.
type Lister interface {
	ListRounds(ctx context.Context) ([]model.Round, error)
	ListCandidates(ctx context.Context, roundID int) ([]model.Candidate, error)
}

// Listener receives a snapshot after every change of a console's session.
// It must not block.
type Listener func(View)

// Console owns one judge's Session. Every mutation runs under a single lock,
// so mutations never interleave, and a pending submission holds that lock
// until the scoring service answers. Subscribers are notified after each
// successful mutation.
type Console struct {
	mu       sync.Mutex
	session  *Session
	workflow *Workflow
	lister   Lister

	subMu   sync.Mutex
	subs    map[int]Listener
	nextSub int
}

// NewConsole creates a console with a fresh session.
func NewConsole(lister Lister, submitter ScoreSubmitter, invalidator Invalidator) *Console {
	return &Console{
		session:  NewSession(),
		workflow: NewWorkflow(submitter, invalidator),
		lister:   lister,
		subs:     make(map[int]Listener),
	}
}

// Subscribe registers fn and returns a function that removes it.
func (c *Console) Subscribe(fn Listener) func() {
	c.subMu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn
	c.subMu.Unlock()

	return func() {
		c.subMu.Lock()
		delete(c.subs, id)
		c.subMu.Unlock()
	}
}

// View returns the current snapshot.
func (c *Console) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshot()
}

// Rounds lists the competition rounds and refreshes the selected round's
// attributes from the listing.
func (c *Console) Rounds(ctx context.Context) ([]model.Round, error) {
	rounds, err := c.lister.ListRounds(ctx)
	if err != nil {
		return nil, fmt.Errorf("list rounds: %w", err)
	}

	c.syncRounds(rounds)
	return rounds, nil
}

func (c *Console) syncRounds(rounds []model.Round) {
	c.mu.Lock()
	before, selected := c.session.Round()
	if selected {
		for _, r := range rounds {
			c.session.SyncRound(r)
		}
	}
	after, _ := c.session.Round()
	v := c.snapshot()
	c.mu.Unlock()

	if selected && before != after {
		c.publish(v)
	}
}

// refreshRound re-reads the selected round's flags. A failed listing keeps
// the last known flags.
func (c *Console) refreshRound(ctx context.Context) {
	c.mu.Lock()
	_, selected := c.session.Round()
	c.mu.Unlock()
	if !selected {
		return
	}
	if rounds, err := c.lister.ListRounds(ctx); err == nil {
		c.syncRounds(rounds)
	}
}

// SelectRound fetches the round and its candidates, then switches the
// session to it. On a listing error the session is left unchanged.
func (c *Console) SelectRound(ctx context.Context, roundID int) (View, error) {
	rounds, err := c.lister.ListRounds(ctx)
	if err != nil {
		return View{}, fmt.Errorf("list rounds: %w", err)
	}
	var round *model.Round
	for i := range rounds {
		if rounds[i].ID == roundID {
			round = &rounds[i]
			break
		}
	}
	if round == nil {
		return View{}, ErrRoundNotFound
	}

	candidates, err := c.lister.ListCandidates(ctx, roundID)
	if err != nil {
		return View{}, fmt.Errorf("list candidates: %w", err)
	}

	return c.mutate(func(s *Session) error {
		s.SelectRound(*round, candidates)
		return nil
	})
}

// SelectCandidate starts scoring a candidate of the selected round.
func (c *Console) SelectCandidate(candidateID int) (View, error) {
	return c.mutate(func(s *Session) error { return s.SelectCandidate(candidateID) })
}

// NextCandidate moves to the next candidate; no-op at the end of the list.
func (c *Console) NextCandidate() View {
	v, _ := c.mutate(func(s *Session) error { s.NextCandidate(); return nil })
	return v
}

// PrevCandidate moves to the previous candidate; no-op at the start of the list.
func (c *Console) PrevCandidate() View {
	v, _ := c.mutate(func(s *Session) error { s.PrevCandidate(); return nil })
	return v
}

// NextQuestion advances to the next question.
func (c *Console) NextQuestion() (View, error) {
	return c.mutate(func(s *Session) error { return s.NextQuestion() })
}

// PrevQuestion goes back one question.
func (c *Console) PrevQuestion() (View, error) {
	return c.mutate(func(s *Session) error { return s.PrevQuestion() })
}

// JumpToQuestion moves to question index i (clamped).
func (c *Console) JumpToQuestion(i int) (View, error) {
	return c.mutate(func(s *Session) error { return s.JumpToQuestion(i) })
}

// SetCriterion records a value for one criterion of question index q.
func (c *Console) SetCriterion(q int, crit rubric.Criterion, value float64) (View, error) {
	return c.mutate(func(s *Session) error { return s.Scores().SetCriterion(q, crit, value) })
}

// SetComment replaces the comment of question index q.
func (c *Console) SetComment(q int, text string) (View, error) {
	return c.mutate(func(s *Session) error { return s.Scores().SetComment(q, text) })
}

// ToggleComments flips comment visibility.
func (c *Console) ToggleComments() View {
	v, _ := c.mutate(func(s *Session) error { s.ToggleComments(); return nil })
	return v
}

// Reset clears all scores after the judge confirms.
func (c *Console) Reset(ctx context.Context, confirm Confirmer) (View, error) {
	return c.mutate(func(s *Session) error {
		if confirm == nil || !confirm.Confirm(ctx, ResetPrompt) {
			return ErrResetDeclined
		}
		s.Reset()
		return nil
	})
}

// Submit runs the submission workflow against the round's current active
// flag. A concurrent call while one is pending fails immediately with
// ErrSubmissionInFlight.
func (c *Console) Submit(ctx context.Context, confirm Confirmer) (*Outcome, View, error) {
	if !c.workflow.acquire() {
		return nil, View{}, ErrSubmissionInFlight
	}
	defer c.workflow.release()

	c.refreshRound(ctx)

	c.mu.Lock()
	out, err := c.workflow.submit(ctx, c.session, confirm)
	v := Snapshot(c.session)
	c.mu.Unlock()

	if err != nil {
		return nil, v, err
	}
	c.publish(v)
	return out, v, nil
}

func (c *Console) mutate(fn func(*Session) error) (View, error) {
	c.mu.Lock()
	err := fn(c.session)
	v := c.snapshot()
	c.mu.Unlock()

	if err != nil {
		return v, err
	}
	c.publish(v)
	return v, nil
}

func (c *Console) snapshot() View {
	v := Snapshot(c.session)
	v.Submitting = c.workflow.InFlight()
	if v.Submitting {
		v.CanSubmit = false
	}
	return v
}

func (c *Console) publish(v View) {
	c.subMu.Lock()
	listeners := make([]Listener, 0, len(c.subs))
	for _, fn := range c.subs {
		listeners = append(listeners, fn)
	}
	c.subMu.Unlock()

	for _, fn := range listeners {
		fn(v)
	}
}
