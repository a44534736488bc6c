package mirror

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/anthanhphan/gosdk/logger"
	"github.com/fileledger/go-file-registry/internal/registry/domain"
	"github.com/fileledger/go-file-registry/pkg/resilience"
	"github.com/redis/go-redis/v9"
)

const (
	recordKeyPrefix = "file:"
	publicSetKey    = "files:public"

	applyTimeout = 2 * time.Second
)

// Mirror keeps a best-effort copy of record metadata in redis, fed from
// committed ledger events. It is a read-through cache for off-ledger
// consumers: the ledger never waits on it and never fails because of it,
// and any missed write is repaired by replaying the event log through
// Rebuild. The circuit breaker keeps a flapping redis from piling up
// blocked workers.
type Mirror struct {
	client  *redis.Client
	pool    *resilience.WorkerPool
	breaker *resilience.CircuitBreaker
}

func New(client *redis.Client, workers, queueSize int) *Mirror {
	return &Mirror{
		client: client,
		pool:   resilience.NewWorkerPool(workers, queueSize),
		breaker: resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
			Name:             "redis-mirror",
			FailureThreshold: 5,
			OpenTimeout:      15 * time.Second,
		}),
	}
}

// Apply asynchronously reflects one committed event into redis. Errors are
// logged, never returned: the mirror is not part of the mutation.
func (m *Mirror) Apply(ev *domain.Event) {
	submitCtx, cancel := context.WithTimeout(context.Background(), applyTimeout)
	defer cancel()

	err := m.pool.Submit(submitCtx, func() {
		applyErr := m.breaker.Execute(func() error {
			ctx, cancel := context.WithTimeout(context.Background(), applyTimeout)
			defer cancel()
			return m.write(ctx, ev)
		})
		if applyErr != nil {
			logger.Warnw("Mirror write failed",
				"seq", ev.Seq, "type", string(ev.Type), "error", applyErr.Error())
		}
	})
	if err != nil {
		logger.Warnw("Mirror apply not enqueued", "seq", ev.Seq, "error", err.Error())
	}
}

// Rebuild repopulates the mirror synchronously from a replayed event log.
func (m *Mirror) Rebuild(ctx context.Context, events []*domain.Event) error {
	for _, ev := range events {
		if err := m.write(ctx, ev); err != nil {
			return fmt.Errorf("rebuild mirror at seq %d: %w", ev.Seq, err)
		}
	}
	logger.Infow("Mirror rebuilt", "events", len(events))
	return nil
}

// Lookup returns the mirrored metadata hash for id, or redis.Nil-wrapped
// miss.
func (m *Mirror) Lookup(ctx context.Context, id domain.FileID) (map[string]string, error) {
	return m.client.HGetAll(ctx, recordKey(id)).Result()
}

// Close drains pending writes.
func (m *Mirror) Close() {
	m.pool.Close()
}

func (m *Mirror) write(ctx context.Context, ev *domain.Event) error {
	key := recordKey(ev.FileID)

	switch ev.Type {
	case domain.EventCreated:
		pipe := m.client.TxPipeline()
		pipe.HSet(ctx, key, map[string]interface{}{
			"name":            ev.Name,
			"mime_type":       ev.MimeType,
			"size_bytes":      strconv.FormatInt(ev.SizeBytes, 10),
			"content_address": ev.ContentAddress,
			"description":     ev.Description,
			"owner":           string(ev.Owner),
			"created_at":      ev.At.UTC().Format(time.RFC3339Nano),
			"is_public":       strconv.FormatBool(ev.IsPublic),
		})
		if ev.IsPublic {
			pipe.SAdd(ctx, publicSetKey, uint64(ev.FileID))
		}
		_, err := pipe.Exec(ctx)
		return err

	case domain.EventDeleted:
		pipe := m.client.TxPipeline()
		pipe.Del(ctx, key, grantsKey(ev.FileID))
		pipe.SRem(ctx, publicSetKey, uint64(ev.FileID))
		_, err := pipe.Exec(ctx)
		return err

	case domain.EventGranted:
		return m.client.SAdd(ctx, grantsKey(ev.FileID), string(ev.Recipient)).Err()

	case domain.EventRevoked:
		return m.client.SRem(ctx, grantsKey(ev.FileID), string(ev.Recipient)).Err()

	default:
		// FeeUpdated carries no record state.
		return nil
	}
}

func recordKey(id domain.FileID) string {
	return recordKeyPrefix + strconv.FormatUint(uint64(id), 10)
}

func grantsKey(id domain.FileID) string {
	return recordKey(id) + ":grants"
}
