// Copyright (c) 2026 John Earle
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// Handler processes one alert event.
type Handler func(ctx context.Context, event AlertEvent) error

// ConsumerConfig holds consumer settings.
type ConsumerConfig struct {
	QueueName string
	// DeadLetter receives events that failed MaxAttempts times. Empty means
	// "<queue>:failed".
	DeadLetter  string
	MaxAttempts int           // default 3
	PollTimeout time.Duration // BRPOP block time; default 5s
}

// Consumer pops alert events and hands them to a Handler.
type Consumer struct {
	rdb         *redis.Client
	queueName   string
	deadLetter  string
	maxAttempts int
	pollTimeout time.Duration
}

// NewConsumer creates a queue consumer.
func NewConsumer(rdb *redis.Client, cfg ConsumerConfig) *Consumer {
	c := &Consumer{
		rdb:         rdb,
		queueName:   cfg.QueueName,
		deadLetter:  cfg.DeadLetter,
		maxAttempts: cfg.MaxAttempts,
		pollTimeout: cfg.PollTimeout,
	}
	if c.deadLetter == "" {
		c.deadLetter = c.queueName + ":failed"
	}
	if c.maxAttempts <= 0 {
		c.maxAttempts = 3
	}
	if c.pollTimeout <= 0 {
		c.pollTimeout = 5 * time.Second
	}
	return c
}

// Run consumes until ctx is cancelled.
func (c *Consumer) Run(ctx context.Context, handle Handler) {
	slog.Info("alert consumer started", "queue", c.queueName)

	for {
		if ctx.Err() != nil {
			slog.Info("alert consumer stopped")
			return
		}

		if _, err := c.ProcessOne(ctx, handle); err != nil && ctx.Err() == nil {
			slog.Error("alert consumer error", "error", err)
			select {
			case <-ctx.Done():
			case <-time.After(time.Second):
			}
		}
	}
}

// ProcessOne waits up to the poll timeout for one event and handles it.
// It reports whether an event was taken off the queue.
func (c *Consumer) ProcessOne(ctx context.Context, handle Handler) (bool, error) {
	res, err := c.rdb.BRPop(ctx, c.pollTimeout, c.queueName).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("redis BRPOP: %w", err)
	}

	// res is [queue, value].
	var event AlertEvent
	if err := json.Unmarshal([]byte(res[1]), &event); err != nil {
		slog.Warn("dropping malformed alert event", "error", err)
		return true, nil
	}

	if err := handle(ctx, event); err != nil {
		event.Attempts++
		target := c.queueName
		if event.Attempts >= c.maxAttempts {
			target = c.deadLetter
		}
		slog.Warn("alert delivery failed",
			"alert_id", event.ID,
			"ticket_id", event.TicketID,
			"attempts", event.Attempts,
			"requeue_to", target,
			"error", err,
		)
		data, mErr := json.Marshal(event)
		if mErr != nil {
			return true, fmt.Errorf("marshal alert event: %w", mErr)
		}
		// LPUSH puts it behind the alerts already waiting.
		if err := c.rdb.LPush(ctx, target, data).Err(); err != nil {
			return true, fmt.Errorf("redis LPUSH requeue: %w", err)
		}
	}
	return true, nil
}
