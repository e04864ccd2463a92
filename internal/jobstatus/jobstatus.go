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

// Package jobstatus tracks the state of background jobs and keeps a short
// rolling log that operators can read back.
package jobstatus

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

// MaxLogLines caps the rolling log.
const MaxLogLines = 100

// State of a job.
type State string

const (
	StateIdle      State = "idle"
	StateRunning   State = "running"
	StateCompleted State = "completed"
	StateError     State = "error"
)

// Status is the latest report for one job.
type Status struct {
	Job       string    `json:"job"`
	State     State     `json:"status"`
	Progress  int       `json:"progress"`
	Message   string    `json:"message"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Reporter receives progress from running jobs. Implementations never fail
// the caller; storage errors are logged.
type Reporter interface {
	SetStatus(ctx context.Context, job string, state State, progress int, msg string)
	Log(ctx context.Context, msg string)
}

// Reader exposes what a Reporter recorded.
type Reader interface {
	Statuses(ctx context.Context) (map[string]Status, error)
	Logs(ctx context.Context) ([]string, error)
}

// Listener is notified of every status change.
type Listener func(Status)

type broadcaster struct {
	lmu       sync.RWMutex
	next      int
	listeners map[int]Listener
}

// Subscribe registers l and returns a function that removes it.
func (b *broadcaster) Subscribe(l Listener) (unsubscribe func()) {
	b.lmu.Lock()
	defer b.lmu.Unlock()
	if b.listeners == nil {
		b.listeners = make(map[int]Listener)
	}
	id := b.next
	b.next++
	b.listeners[id] = l
	return func() {
		b.lmu.Lock()
		delete(b.listeners, id)
		b.lmu.Unlock()
	}
}

func (b *broadcaster) notify(s Status) {
	b.lmu.RLock()
	defer b.lmu.RUnlock()
	for _, l := range b.listeners {
		l(s)
	}
}

func formatLog(now time.Time, msg string) string {
	return fmt.Sprintf("[%s] %s", now.Format("15:04:05"), msg)
}

func statusLine(job string, state State, msg string) string {
	return fmt.Sprintf("[%s] %s: %s", job, strings.ToUpper(string(state)), msg)
}

func clampProgress(p int) int {
	switch {
	case p < 0:
		return 0
	case p > 100:
		return 100
	}
	return p
}

// Memory keeps statuses and logs in process.
type Memory struct {
	broadcaster

	mu       sync.Mutex
	statuses map[string]Status
	logs     []string // oldest first
	now      func() time.Time
}

var (
	_ Reporter = (*Memory)(nil)
	_ Reader   = (*Memory)(nil)
)

// NewMemory creates an in-process reporter.
func NewMemory() *Memory {
	return &Memory{statuses: make(map[string]Status), now: time.Now}
}

// SetStatus records a job status and logs it.
func (m *Memory) SetStatus(ctx context.Context, job string, state State, progress int, msg string) {
	s := Status{Job: job, State: state, Progress: clampProgress(progress), Message: msg, UpdatedAt: m.now()}
	m.mu.Lock()
	m.statuses[job] = s
	m.mu.Unlock()

	m.Log(ctx, statusLine(job, state, msg))
	m.notify(s)
}

// Log appends a line to the rolling log.
func (m *Memory) Log(_ context.Context, msg string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logs = append(m.logs, formatLog(m.now(), msg))
	if len(m.logs) > MaxLogLines {
		m.logs = m.logs[len(m.logs)-MaxLogLines:]
	}
}

// Statuses returns a copy of all job statuses.
func (m *Memory) Statuses(context.Context) (map[string]Status, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]Status, len(m.statuses))
	for k, v := range m.statuses {
		out[k] = v
	}
	return out, nil
}

// Logs returns log lines newest first.
func (m *Memory) Logs(context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.logs))
	for i, l := range m.logs {
		out[len(m.logs)-1-i] = l
	}
	return out, nil
}
