package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/stemsi/mtq-judge/internal/config"
	"github.com/stemsi/mtq-judge/internal/metrics"
	"github.com/stemsi/mtq-judge/internal/model"
	"github.com/stemsi/mtq-judge/internal/observability"
)

const (
	AuditBatchSize    = 50
	AuditBatchTimeout = 2 * time.Second
	AuditPollTimeout  = 1 * time.Second
)

// SubmissionStore persists audit records.
type SubmissionStore interface {
	InsertBatch(ctx context.Context, batch []model.SubmissionRecord) error
	Insert(ctx context.Context, rec model.SubmissionRecord) error
}

// AuditQueue is the Redis list between the judging service and AuditWorker.
type AuditQueue struct {
	rdb *redis.Client
	key string
}

func NewAuditQueue(rdb *redis.Client) *AuditQueue {
	return &AuditQueue{rdb: rdb, key: config.WorkerKey.PersistSubmissionsQueue}
}

// Enqueue pushes rec, assigning its key and timestamp when unset.
func (q *AuditQueue) Enqueue(ctx context.Context, rec model.SubmissionRecord) error {
	if rec.Key == uuid.Nil {
		rec.Key = uuid.New()
	}
	if rec.SubmittedAt.IsZero() {
		rec.SubmittedAt = time.Now().UTC()
	}
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode audit record: %w", err)
	}
	return q.rdb.RPush(ctx, q.key, raw).Err()
}

type AuditWorker struct {
	store SubmissionStore
	rdb   *redis.Client
	log   zerolog.Logger
}

func NewAuditWorker(store SubmissionStore, rdb *redis.Client, log zerolog.Logger) *AuditWorker {
	return &AuditWorker{
		store: store,
		rdb:   rdb,
		log:   log.With().Str("component", "audit_worker").Logger(),
	}
}

// ----------------------------------------------------------------
// Worker loop with batching
// ----------------------------------------------------------------

func (w *AuditWorker) Start(ctx context.Context) {
	w.log.Info().Msg("AuditWorker started")

	batch := make([]model.SubmissionRecord, 0, AuditBatchSize)
	lastFlush := time.Now()

	for {
		if len(batch) > 0 &&
			(len(batch) >= AuditBatchSize || time.Since(lastFlush) >= AuditBatchTimeout) {

			w.flushSafe(ctx, batch)
			batch = batch[:0]
			lastFlush = time.Now()
		}

		select {
		case <-ctx.Done():
			w.log.Info().Int("pending", len(batch)).Msg("Shutdown requested. Flushing remaining batch...")
			w.flushSafe(context.Background(), batch)
			return

		default:
			item, err := w.rdb.BLPop(ctx, AuditPollTimeout, config.WorkerKey.PersistSubmissionsQueue).Result()
			if err != nil {
				if !errors.Is(err, redis.Nil) && ctx.Err() == nil {
					w.log.Error().Err(err).Msg("BLPop error")
					time.Sleep(AuditPollTimeout)
				}
				continue
			}

			if len(item) < 2 {
				continue
			}

			var rec model.SubmissionRecord
			if err := json.Unmarshal([]byte(item[1]), &rec); err != nil {
				w.log.Error().Err(err).Msg("Invalid audit payload")
				continue
			}

			batch = append(batch, rec)
		}
	}
}

// ----------------------------------------------------------------
// Batch insert with per-row fallback
// ----------------------------------------------------------------

func (w *AuditWorker) flushSafe(ctx context.Context, batch []model.SubmissionRecord) {
	if len(batch) == 0 {
		return
	}

	err := w.store.InsertBatch(ctx, batch)
	if err == nil {
		metrics.AuditPersisted.Add(float64(len(batch)))
		return
	}
	w.log.Warn().Err(err).Int("size", len(batch)).Msg("bulk audit insert failed, using fallback")

	for _, rec := range batch {
		if err := w.store.Insert(ctx, rec); err != nil {
			metrics.AuditFailures.Inc()
			observability.CaptureJudgeErr(err, rec.JudgeID, "audit_persist")
			w.log.Error().Err(err).
				Str("key", rec.Key.String()).
				Int("judge_id", rec.JudgeID).
				Msg("audit insert failed, requeueing")
			w.requeue(rec)
			continue
		}
		metrics.AuditPersisted.Inc()
	}
}

func (w *AuditWorker) requeue(rec model.SubmissionRecord) {
	raw, err := json.Marshal(rec)
	if err != nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := w.rdb.RPush(ctx, config.WorkerKey.PersistSubmissionsQueue, raw).Err(); err != nil {
		w.log.Error().Err(err).Str("key", rec.Key.String()).Msg("requeue failed, audit record lost")
	}
}
