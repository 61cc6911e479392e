package redis

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	redislib "github.com/redis/go-redis/v9"
	zlog "github.com/rs/zerolog/log"
)

var (
	client *redislib.Client
	once   sync.Once
)

type Config struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// Init connects the shared client, retrying with exponential backoff so a
// redis container that is still starting up does not fail the whole process.
func Init(cfg Config) (*redislib.Client, error) {
	var initErr error

	once.Do(func() {
		addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
		client = redislib.NewClient(&redislib.Options{
			Addr:     addr,
			Password: cfg.Password,
			DB:       cfg.DB,
		})

		attempts := 5
		backoff := 200 * time.Millisecond

		for attempt := 1; attempt <= attempts; attempt++ {
			ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			err := client.Ping(ctx).Err()
			cancel()

			if err == nil {
				initErr = nil
				zlog.Info().Str("addr", addr).Msg("redis connection established")
				return
			}

			initErr = errors.Wrapf(err, "ping redis at %s", addr)
			if attempt < attempts {
				zlog.Warn().Err(err).Str("addr", addr).
					Int("attempt", attempt).Dur("backoff", backoff).
					Msg("redis not reachable yet, retrying")
				time.Sleep(backoff)
				backoff *= 2
			}
		}

		zlog.Error().Err(initErr).Str("addr", addr).Msg("giving up on redis")
		_ = client.Close()
		client = nil
	})

	if client == nil && initErr == nil {
		return nil, errors.New("redis client not initialized")
	}

	return client, initErr
}

func Client() *redislib.Client {
	return client
}

func Close() error {
	if client == nil {
		return nil
	}
	return errors.Wrap(client.Close(), "close redis client")
}
