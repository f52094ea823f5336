// Package workers runs the background consumers behind the memory
// store. Facts whose embedding could not be computed inline are queued
// on a Redis stream and retried here.
package workers

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/yoockh/yoobuddy/internal/providers/embed"
	pgrepo "github.com/yoockh/yoobuddy/internal/repositories/postgres"
)

const defaultBackfillStream = "embed:backfill"

// Queue enqueues facts whose embedding is still missing.
type Queue struct {
	Redis  *redis.Client
	Stream string
}

func NewQueue(rdb *redis.Client) *Queue {
	return &Queue{Redis: rdb, Stream: defaultBackfillStream}
}

func (q *Queue) Enqueue(ctx context.Context, username, fact string) error {
	return q.Redis.XAdd(ctx, &redis.XAddArgs{
		Stream: q.Stream,
		Values: map[string]interface{}{
			"username": username,
			"fact":     fact,
		},
	}).Err()
}

// EmbedWorkerPool consumes the backfill stream with a consumer group
// and writes computed vectors back to the knowledge store. Messages
// are acked even on permanent failure; transient embed errors leave
// the message unacked for redelivery.
type EmbedWorkerPool struct {
	Redis      *redis.Client
	Knowledge  pgrepo.KnowledgeRepository
	Embedder   embed.Embedder
	NumWorkers int

	Logger *logrus.Logger

	Stream         string
	Group          string
	ConsumerPrefix string
}

func (p *EmbedWorkerPool) Start(ctx context.Context) error {
	if p.Redis == nil || p.Knowledge == nil || p.Embedder == nil {
		return errors.New("EmbedWorkerPool missing dependency: Redis/Knowledge/Embedder must be set")
	}
	if p.Stream == "" {
		p.Stream = defaultBackfillStream
	}
	if p.Group == "" {
		p.Group = "embed-workers"
	}
	if p.ConsumerPrefix == "" {
		p.ConsumerPrefix = "c"
	}
	if p.NumWorkers <= 0 {
		p.NumWorkers = 2
	}
	if p.Logger == nil {
		p.Logger = logrus.New()
	}

	_ = p.Redis.XGroupCreateMkStream(ctx, p.Stream, p.Group, "0").Err() // ignore BUSYGROUP

	for i := 0; i < p.NumWorkers; i++ {
		consumer := p.ConsumerPrefix + "-" + strconv.Itoa(i+1)
		go p.runConsumer(ctx, consumer)
	}
	return nil
}

func (p *EmbedWorkerPool) runConsumer(ctx context.Context, consumer string) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		res, err := p.Redis.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    p.Group,
			Consumer: consumer,
			Streams:  []string{p.Stream, ">"},
			Count:    10,
			Block:    5 * time.Second,
		}).Result()

		if err != nil {
			if err == redis.Nil {
				continue
			}
			if ctx.Err() != nil {
				return
			}
			time.Sleep(500 * time.Millisecond)
			continue
		}

		for _, stream := range res {
			for _, msg := range stream.Messages {
				if p.handleMsg(ctx, msg) {
					_ = p.Redis.XAck(ctx, p.Stream, p.Group, msg.ID).Err()
				}
			}
		}
	}
}

// handleMsg reports whether the message should be acked.
func (p *EmbedWorkerPool) handleMsg(ctx context.Context, msg redis.XMessage) bool {
	getStr := func(k string) string {
		v, ok := msg.Values[k]
		if !ok || v == nil {
			return ""
		}
		s, _ := v.(string)
		return s
	}

	username := getStr("username")
	fact := getStr("fact")
	if username == "" || fact == "" {
		// malformed entry, nothing to retry
		return true
	}

	log := p.Logger.WithFields(logrus.Fields{
		"redis_id": msg.ID,
		"username": username,
	})

	vec, err := p.Embedder.Embed(ctx, fact)
	if err != nil {
		log.WithError(err).Warn("embed backfill failed, message left for redelivery")
		return false
	}

	if err := p.Knowledge.SetEmbedding(ctx, username, fact, vec); err != nil {
		log.WithError(err).Error("embedding write failed")
		return false
	}

	log.Debug("embedding backfilled")
	return true
}
