package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/extra/redisotel/v8"
	goredis "github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

const maxBackoff = 30 * time.Second

// SlotRepository keeps each slot as a plain Redis string.
type SlotRepository struct {
	client *goredis.Client
	log    logrus.FieldLogger
}

// NewSlotRepository accepts either a redis:// URL or a bare host[:port].
func NewSlotRepository(addr string, log logrus.FieldLogger) (*SlotRepository, error) {
	if addr == "" {
		return nil, errors.New("redis address is required")
	}

	opts, err := goredis.ParseURL(addr)
	if err != nil {
		opts = &goredis.Options{
			Addr:         addr,
			MinIdleConns: 1,
			MaxRetries:   3,
			DialTimeout:  10 * time.Second,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 5 * time.Second,
			PoolSize:     10,
			PoolTimeout:  4 * time.Second,
			IdleTimeout:  3 * time.Minute,
		}
	}

	client := goredis.NewClient(opts)
	client.AddHook(redisotel.NewTracingHook())

	if log == nil {
		log = logrus.StandardLogger()
	}
	return &SlotRepository{client: client, log: log}, nil
}

// NewSlotRepositoryWithClient wraps an existing client.
func NewSlotRepositoryWithClient(client *goredis.Client, log logrus.FieldLogger) *SlotRepository {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &SlotRepository{client: client, log: log}
}

// WaitReady pings Redis until it answers, backing off exponentially up to
// 30s between attempts.
func (r *SlotRepository) WaitReady(ctx context.Context, attempts int) error {
	for i := 0; i < attempts; i++ {
		err := r.Ping(ctx)
		if err == nil {
			r.log.WithField("attempt", i+1).Info("redis is ready")
			return nil
		}
		r.log.WithError(err).WithField("attempt", i+1).Warn("redis ping failed")

		backoff := time.Duration(1<<uint(i)) * time.Second
		if backoff > maxBackoff || backoff <= 0 {
			backoff = maxBackoff
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
	}
	return fmt.Errorf("redis not ready after %d attempts", attempts)
}

func (r *SlotRepository) Get(ctx context.Context, key string) (string, bool, error) {
	value, err := r.client.Get(ctx, key).Result()
	if errors.Is(err, goredis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis GET: %w", err)
	}
	return value, true, nil
}

func (r *SlotRepository) Set(ctx context.Context, key, value string) error {
	if err := r.client.Set(ctx, key, value, 0).Err(); err != nil {
		return fmt.Errorf("redis SET: %w", err)
	}
	return nil
}

func (r *SlotRepository) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis DEL: %w", err)
	}
	return nil
}

func (r *SlotRepository) Ping(ctx context.Context) error {
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return r.client.Ping(pingCtx).Err()
}

func (r *SlotRepository) Close() error {
	return r.client.Close()
}
