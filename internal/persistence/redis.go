package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/clube-quinze/club-api/internal/config"
)

// Redis holds the client behind the booking rate limiter and the reminder
// ledger. A Redis without a client makes both fall back to in-process state.
type Redis struct {
	Client *redis.Client
}

// NewRedis builds the client. An unreachable server is logged, not fatal: the
// limiter decides per request whether to fail open.
func NewRedis(cfg config.RedisConfig, logger *zap.Logger) *Redis {
	if cfg.Addr == "" {
		logger.Warn("REDIS_ADDR not provided; rate limiting and reminder ledger run in-process")
		return &Redis{}
	}
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  3 * time.Second,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("unable to reach redis", zap.String("addr", cfg.Addr), zap.Error(err))
	} else {
		logger.Info("connected to redis", zap.String("addr", cfg.Addr), zap.Int("db", cfg.DB))
	}
	return &Redis{Client: client}
}

// Close closes the client.
func (r *Redis) Close() {
	if r.Enabled() {
		_ = r.Client.Close()
	}
}

// Ping verifies Redis connectivity.
func (r *Redis) Ping(ctx context.Context) error {
	if !r.Enabled() {
		return errors.New("redis client not configured")
	}
	return r.Client.Ping(ctx).Err()
}

// Enabled reports whether a client was configured.
func (r *Redis) Enabled() bool {
	return r != nil && r.Client != nil
}

// RegisterMetrics exposes client pool counters. It is a no-op when disabled.
func (r *Redis) RegisterMetrics(reg prometheus.Registerer) error {
	if !r.Enabled() || reg == nil {
		return nil
	}
	hits := prometheus.NewCounterFunc(prometheus.CounterOpts{
		Name: "club_redis_pool_hits_total",
		Help: "Redis connections reused from the pool.",
	}, func() float64 { return float64(r.Client.PoolStats().Hits) })
	timeouts := prometheus.NewCounterFunc(prometheus.CounterOpts{
		Name: "club_redis_pool_timeouts_total",
		Help: "Redis pool waits that timed out.",
	}, func() float64 { return float64(r.Client.PoolStats().Timeouts) })
	idle := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "club_redis_pool_idle_conns",
		Help: "Idle Redis connections.",
	}, func() float64 { return float64(r.Client.PoolStats().IdleConns) })
	for _, c := range []prometheus.Collector{hits, timeouts, idle} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}
