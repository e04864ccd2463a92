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

package jobstatus

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	statusKey = "deskqa:status"
	logsKey   = "deskqa:logs"
)

// Redis stores statuses in a hash and the log in a capped list, so every
// process sharing the Redis sees the same view.
type Redis struct {
	broadcaster

	rdb *redis.Client
	now func() time.Time
}

var (
	_ Reporter = (*Redis)(nil)
	_ Reader   = (*Redis)(nil)
)

// NewRedis creates a Redis-backed reporter.
func NewRedis(rdb *redis.Client) *Redis {
	return &Redis{rdb: rdb, now: time.Now}
}

// SetStatus records a job status and logs it.
func (r *Redis) SetStatus(ctx context.Context, job string, state State, progress int, msg string) {
	s := Status{Job: job, State: state, Progress: clampProgress(progress), Message: msg, UpdatedAt: r.now()}

	data, err := json.Marshal(s)
	if err == nil {
		err = r.rdb.HSet(ctx, statusKey, job, data).Err()
	}
	if err != nil {
		slog.Warn("failed to store job status", "job", job, "error", err)
	}

	r.Log(ctx, statusLine(job, state, msg))
	r.notify(s)
}

// Log pushes a line and trims the list to MaxLogLines.
func (r *Redis) Log(ctx context.Context, msg string) {
	pipe := r.rdb.TxPipeline()
	pipe.LPush(ctx, logsKey, formatLog(r.now(), msg))
	pipe.LTrim(ctx, logsKey, 0, MaxLogLines-1)
	if _, err := pipe.Exec(ctx); err != nil {
		slog.Warn("failed to append job log", "error", err)
	}
}

// Statuses reads all job statuses. Undecodable entries are skipped.
func (r *Redis) Statuses(ctx context.Context) (map[string]Status, error) {
	raw, err := r.rdb.HGetAll(ctx, statusKey).Result()
	if err != nil {
		return nil, fmt.Errorf("redis HGETALL: %w", err)
	}
	out := make(map[string]Status, len(raw))
	for job, v := range raw {
		var s Status
		if err := json.Unmarshal([]byte(v), &s); err != nil {
			slog.Warn("skipping malformed job status", "job", job, "error", err)
			continue
		}
		out[job] = s
	}
	return out, nil
}

// Logs returns log lines newest first.
func (r *Redis) Logs(ctx context.Context) ([]string, error) {
	lines, err := r.rdb.LRange(ctx, logsKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis LRANGE: %w", err)
	}
	return lines, nil
}

// ClearLogs removes the rolling log.
func (r *Redis) ClearLogs(ctx context.Context) error {
	if err := r.rdb.Del(ctx, logsKey).Err(); err != nil {
		return fmt.Errorf("redis DEL: %w", err)
	}
	return nil
}
