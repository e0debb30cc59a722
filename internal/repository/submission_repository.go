package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stemsi/mtq-judge/internal/model"
)

// SubmissionRepository stores the local audit trail of accepted submissions.
type SubmissionRepository struct {
	pool *pgxpool.Pool
}

// NewSubmissionRepository creates a new SubmissionRepository.
func NewSubmissionRepository(pool *pgxpool.Pool) *SubmissionRepository {
	return &SubmissionRepository{pool: pool}
}

// InsertBatch writes all records in one statement. Records whose key is
// already stored are skipped.
func (r *SubmissionRepository) InsertBatch(ctx context.Context, batch []model.SubmissionRecord) error {
	n := len(batch)
	if n == 0 {
		return nil
	}

	keys := make([]uuid.UUID, 0, n)
	judges := make([]int32, 0, n)
	candidates := make([]int32, 0, n)
	rounds := make([]int32, 0, n)
	totals := make([]float64, 0, n)
	questions := make([]string, 0, n)
	messages := make([]string, 0, n)
	submittedAts := make([]time.Time, 0, n)

	for _, rec := range batch {
		raw, err := json.Marshal(rec.Questions)
		if err != nil {
			return fmt.Errorf("encode questions: %w", err)
		}
		keys = append(keys, rec.Key)
		judges = append(judges, int32(rec.JudgeID))
		candidates = append(candidates, int32(rec.CandidateID))
		rounds = append(rounds, int32(rec.RoundID))
		totals = append(totals, rec.Total)
		questions = append(questions, string(raw))
		messages = append(messages, rec.Message)
		submittedAts = append(submittedAts, submittedAt(rec))
	}

	_, err := r.pool.Exec(ctx, `
		INSERT INTO score_submissions
			(submission_key, judge_id, candidate_id, round_id, total, questions, message, submitted_at)
		SELECT u.submission_key, u.judge_id, u.candidate_id, u.round_id, u.total,
		       u.questions::jsonb, u.message, u.submitted_at
		FROM UNNEST(
			$1::uuid[],
			$2::int[],
			$3::int[],
			$4::int[],
			$5::float8[],
			$6::text[],
			$7::text[],
			$8::timestamptz[]
		) AS u (submission_key, judge_id, candidate_id, round_id, total, questions, message, submitted_at)
		ON CONFLICT (submission_key) DO NOTHING`,
		keys, judges, candidates, rounds, totals, questions, messages, submittedAts,
	)
	return err
}

// Insert writes a single record; used when a batch insert fails.
func (r *SubmissionRepository) Insert(ctx context.Context, rec model.SubmissionRecord) error {
	raw, err := json.Marshal(rec.Questions)
	if err != nil {
		return fmt.Errorf("encode questions: %w", err)
	}
	_, err = r.pool.Exec(ctx,
		`INSERT INTO score_submissions
			(submission_key, judge_id, candidate_id, round_id, total, questions, message, submitted_at)
		 VALUES ($1, $2, $3, $4, $5, $6::jsonb, $7, $8)
		 ON CONFLICT (submission_key) DO NOTHING`,
		rec.Key, rec.JudgeID, rec.CandidateID, rec.RoundID, rec.Total, string(raw), rec.Message, submittedAt(rec),
	)
	return err
}

// ListByJudge returns a judge's submissions, newest first, and the total
// count matching the filter.
func (r *SubmissionRepository) ListByJudge(ctx context.Context, judgeID int, f model.SubmissionFilter) ([]model.SubmissionRecord, int, error) {
	f.Normalize()

	var roundID *int
	if f.RoundID > 0 {
		roundID = &f.RoundID
	}

	var total int
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM score_submissions
		 WHERE judge_id = $1 AND ($2::int IS NULL OR round_id = $2)`,
		judgeID, roundID,
	).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT id, submission_key, judge_id, candidate_id, round_id, total, questions, message, submitted_at
		 FROM score_submissions
		 WHERE judge_id = $1 AND ($2::int IS NULL OR round_id = $2)
		 ORDER BY submitted_at DESC, id DESC
		 LIMIT $3 OFFSET $4`,
		judgeID, roundID, f.PerPage, (f.Page-1)*f.PerPage,
	)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]model.SubmissionRecord, 0)
	for rows.Next() {
		var (
			rec model.SubmissionRecord
			raw []byte
		)
		if err := rows.Scan(&rec.ID, &rec.Key, &rec.JudgeID, &rec.CandidateID, &rec.RoundID,
			&rec.Total, &raw, &rec.Message, &rec.SubmittedAt); err != nil {
			return nil, 0, err
		}
		if err := json.Unmarshal(raw, &rec.Questions); err != nil {
			return nil, 0, fmt.Errorf("decode questions of submission %d: %w", rec.ID, err)
		}
		out = append(out, rec)
	}
	return out, total, rows.Err()
}

// ListAllByJudge returns every submission of a judge, oldest first, for export.
func (r *SubmissionRepository) ListAllByJudge(ctx context.Context, judgeID int) ([]model.SubmissionRecord, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, submission_key, judge_id, candidate_id, round_id, total, questions, message, submitted_at
		 FROM score_submissions
		 WHERE judge_id = $1
		 ORDER BY submitted_at, id`, judgeID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.SubmissionRecord, 0)
	for rows.Next() {
		var (
			rec model.SubmissionRecord
			raw []byte
		)
		if err := rows.Scan(&rec.ID, &rec.Key, &rec.JudgeID, &rec.CandidateID, &rec.RoundID,
			&rec.Total, &raw, &rec.Message, &rec.SubmittedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(raw, &rec.Questions); err != nil {
			return nil, fmt.Errorf("decode questions of submission %d: %w", rec.ID, err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func submittedAt(rec model.SubmissionRecord) time.Time {
	if rec.SubmittedAt.IsZero() {
		return time.Now().UTC()
	}
	return rec.SubmittedAt
}
