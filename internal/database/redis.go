package database

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/ruralpay/ledgersim/internal/config"
	"github.com/ruralpay/ledgersim/internal/services"
)

// InitRedis initializes Redis client with config
func InitRedis(cfg config.RedisConfig) *redis.Client {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Printf("Redis connection failed, continuing without Redis: %v", err)
		rdb.Close()
		return nil
	}

	log.Println("Redis connection established")
	return rdb
}

type publishedEvent struct {
	RunID string         `json:"run_id"`
	Seq   uint64         `json:"seq"`
	Event services.Event `json:"event"`
}

// RedisEventPublisher appends every engine event to a Redis list. It implements
// services.EventSink; publish failures are logged and do not stop the run.
type RedisEventPublisher struct {
	rdb     *redis.Client
	key     string
	runID   string
	seq     uint64
	timeout time.Duration
}

func NewRedisEventPublisher(rdb *redis.Client, key, runID string) *RedisEventPublisher {
	return &RedisEventPublisher{rdb: rdb, key: key, runID: runID, timeout: 2 * time.Second}
}

func (p *RedisEventPublisher) Emit(e services.Event) {
	data, err := json.Marshal(publishedEvent{RunID: p.runID, Seq: p.seq, Event: e})
	if err != nil {
		log.Printf("[REDIS] encode event %s: %v", e.Kind, err)
		return
	}
	p.seq++

	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()
	if err := p.rdb.RPush(ctx, p.key, string(data)).Err(); err != nil {
		log.Printf("[REDIS] publish event %s: %v", e.Kind, err)
	}
}

// Published returns how many events were handed to Redis.
func (p *RedisEventPublisher) Published() uint64 { return p.seq }
