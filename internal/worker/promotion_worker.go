package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/coursiva/enroll-gateway/internal/config"
	"github.com/coursiva/enroll-gateway/internal/model"
	"github.com/coursiva/enroll-gateway/internal/service"
	"github.com/coursiva/enroll-gateway/internal/store"
	"github.com/coursiva/enroll-gateway/internal/upstream"
)

const (
	PromotePollTimeout = 1 * time.Second
	PromoteMaxAttempts = 5
	PromoteRetryDelay  = 3 * time.Second
)

// RedisPromotionQueue is the production PromotionQueue: payloads go to a
// Redis list and the PromotionWorker drains them.
type RedisPromotionQueue struct {
	rdb *redis.Client
}

func NewRedisPromotionQueue(rdb *redis.Client) *RedisPromotionQueue {
	return &RedisPromotionQueue{rdb: rdb}
}

func (q *RedisPromotionQueue) Enqueue(ctx context.Context, p service.PromotionPayload) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return q.rdb.RPush(ctx, config.WorkerKey.PromoteCompletionsQueue, raw).Err()
}

// PromotionWorker retries mark-complete calls that failed after a passing
// test submission. A student who passed keeps their credit even when the
// platform was briefly down at submit time.
type PromotionWorker struct {
	upstream *upstream.Client
	store    *store.EnrollmentStore
	rdb      *redis.Client
	log      zerolog.Logger
}

func NewPromotionWorker(client *upstream.Client, st *store.EnrollmentStore, rdb *redis.Client, log zerolog.Logger) *PromotionWorker {
	return &PromotionWorker{
		upstream: client,
		store:    st,
		rdb:      rdb,
		log:      log.With().Str("component", "promotion_worker").Logger(),
	}
}

// ----------------------------------------------------------------
// Worker loop
// ----------------------------------------------------------------

func (w *PromotionWorker) Start(ctx context.Context) {
	w.log.Info().Msg("PromotionWorker started")

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Shutdown requested. PromotionWorker stopping")
			return

		default:
			item, err := w.rdb.BLPop(ctx, PromotePollTimeout, config.WorkerKey.PromoteCompletionsQueue).Result()
			if err != nil {
				if err != redis.Nil && ctx.Err() == nil {
					w.log.Error().Err(err).Msg("BLPop error")
				}
				continue
			}

			if len(item) < 2 {
				continue
			}

			var p service.PromotionPayload
			if err := json.Unmarshal([]byte(item[1]), &p); err != nil {
				w.log.Error().Err(err).Msg("Invalid JSON payload")
				continue
			}

			w.promote(ctx, p)
		}
	}
}

// ----------------------------------------------------------------
// Single promotion attempt with capped requeue
// ----------------------------------------------------------------

func (w *PromotionWorker) promote(ctx context.Context, p service.PromotionPayload) {
	err := w.markComplete(ctx, p)
	if err == nil {
		w.log.Info().
			Str("enrollment_id", p.EnrollmentID.String()).
			Int("attempts", p.Attempts+1).
			Msg("Deferred completion promoted")

		if err := w.store.Refresh(ctx, p.StudentID); err != nil && err != store.ErrNotLoaded {
			w.log.Warn().Err(err).Msg("Snapshot refresh after promotion failed")
		}
		return
	}

	p.Attempts++
	if p.Attempts >= PromoteMaxAttempts {
		w.log.Error().Err(err).
			Str("enrollment_id", p.EnrollmentID.String()).
			Int("attempts", p.Attempts).
			Msg("Promotion abandoned after max attempts")
		return
	}

	w.log.Warn().Err(err).
		Str("enrollment_id", p.EnrollmentID.String()).
		Int("attempts", p.Attempts).
		Msg("Promotion failed — requeueing")

	select {
	case <-ctx.Done():
	case <-time.After(PromoteRetryDelay):
	}

	raw, _ := json.Marshal(p)
	if err := w.rdb.RPush(ctx, config.WorkerKey.PromoteCompletionsQueue, raw).Err(); err != nil {
		w.log.Error().Err(err).Msg("Requeue failed, payload dropped")
	}
}

func (w *PromotionWorker) markComplete(ctx context.Context, p service.PromotionPayload) error {
	completed := true
	passed := true
	now := time.Now()

	req := &model.CompleteRequest{
		Completed:      &completed,
		CompletionDate: &now,
		TestScore:      &p.TestScore,
		TotalQuestions: &p.TotalQuestions,
		Percentage:     &p.Percentage,
		Passed:         &passed,
	}

	_, err := w.upstream.Complete(ctx, p.EnrollmentID, req)
	return err
}
