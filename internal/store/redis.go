package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"threatdesk/internal/alerts"
	"threatdesk/internal/fieldcrypt"
)

const (
	alertKeyPrefix  = "threatdesk:alert:"
	publishedSetKey = "threatdesk:alerts:published"
)

// Redis is an alert store backed by a Redis instance. Alerts live as JSON
// blobs keyed by id, with a sorted set over PublishedAt for window queries.
// Filtering, sorting and pagination happen in-process after the window fetch.
type Redis struct {
	client *redis.Client
	cipher *fieldcrypt.Cipher
	logger *zap.Logger
}

// NewRedis creates a Redis-backed store. cipher may be nil to store
// descriptions in plaintext.
func NewRedis(client *redis.Client, cipher *fieldcrypt.Cipher, logger *zap.Logger) *Redis {
	return &Redis{client: client, cipher: cipher, logger: logger}
}

// Put inserts or replaces an alert.
func (r *Redis) Put(ctx context.Context, a alerts.Alert) error {
	if r.cipher != nil && a.Description != "" {
		sealed, err := r.cipher.Seal(a.Description)
		if err != nil {
			return fmt.Errorf("failed to encrypt description: %w", err)
		}
		a.Description = sealed
	}

	data, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("failed to marshal alert: %w", err)
	}

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, alertKeyPrefix+a.ID, data, 0)
	pipe.ZAdd(ctx, publishedSetKey, redis.Z{
		Score:  float64(a.PublishedAt.Unix()),
		Member: a.ID,
	})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to store alert: %w", err)
	}
	return nil
}

// Get returns a single alert by id, or nil when absent.
func (r *Redis) Get(ctx context.Context, id string) (*alerts.Alert, error) {
	data, err := r.client.Get(ctx, alertKeyPrefix+id).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch alert: %w", err)
	}

	a, err := r.decode(data)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// Query fetches the publication window from the sorted set, loads the alerts
// and applies the remaining filters in-process.
func (r *Redis) Query(ctx context.Context, p alerts.QueryParams) ([]alerts.Alert, int, error) {
	ids, err := r.client.ZRangeByScore(ctx, publishedSetKey, &redis.ZRangeBy{
		Min: windowMin(p.From),
		Max: windowMax(p.To),
	}).Result()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query alert window: %w", err)
	}
	if len(ids) == 0 {
		return nil, 0, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = alertKeyPrefix + id
	}
	blobs, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to load alerts: %w", err)
	}

	var hits []alerts.Alert
	for i, blob := range blobs {
		s, ok := blob.(string)
		if !ok {
			// Index entry without a backing blob: skip, but keep serving.
			r.logger.Warn("dangling alert index entry", zap.String("id", ids[i]))
			continue
		}
		a, err := r.decode([]byte(s))
		if err != nil {
			r.logger.Warn("undecodable alert blob", zap.String("id", ids[i]), zap.Error(err))
			continue
		}
		if matches(a, p) {
			hits = append(hits, a)
		}
	}

	sortAlerts(hits, p.SortBy, p.SortDir)
	total := len(hits)
	return paginate(hits, p.Page, p.PageSize), total, nil
}

// Ping reports Redis reachability.
func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *Redis) decode(data []byte) (alerts.Alert, error) {
	var a alerts.Alert
	if err := json.Unmarshal(data, &a); err != nil {
		return a, fmt.Errorf("failed to unmarshal alert: %w", err)
	}
	if r.cipher != nil && a.Description != "" {
		plain, err := r.cipher.Open(a.Description)
		if err != nil {
			return a, fmt.Errorf("failed to decrypt description: %w", err)
		}
		a.Description = plain
	}
	return a, nil
}

// windowMin renders the inclusive lower score bound.
func windowMin(from time.Time) string {
	if from.IsZero() {
		return "-inf"
	}
	return strconv.FormatInt(from.Unix(), 10)
}

// windowMax renders the exclusive upper score bound.
func windowMax(to time.Time) string {
	if to.IsZero() {
		return "+inf"
	}
	return "(" + strconv.FormatInt(to.Unix(), 10)
}

var _ alerts.Store = (*Redis)(nil)
