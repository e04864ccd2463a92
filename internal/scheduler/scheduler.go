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

package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"
)

var (
	// ErrUnknownJob is returned when triggering a job that was never added.
	ErrUnknownJob = errors.New("scheduler: unknown job")
	// ErrAlreadyRunning is returned when a job is triggered while it runs.
	ErrAlreadyRunning = errors.New("scheduler: job already running")
)

// Func is the body of a job.
type Func func(ctx context.Context) error

// Job is a named unit of work. A nil Schedule makes it manual-only.
type Job struct {
	Name     string
	Schedule *Schedule
	Run      Func
}

// JobInfo describes a registered job.
type JobInfo struct {
	Name    string    `json:"name"`
	Running bool      `json:"running"`
	NextRun time.Time `json:"next_run,omitempty"`
	LastRun time.Time `json:"last_run,omitempty"`
	LastErr string    `json:"last_error,omitempty"`
}

type jobState struct {
	job     Job
	running bool
	lastRun time.Time
	lastErr string
}

// Scheduler runs jobs on their schedules. The same job never runs twice at
// once; a fire time that lands while it is still running is skipped.
type Scheduler struct {
	loc *time.Location
	now func() time.Time

	mu   sync.Mutex
	ctx  context.Context
	jobs map[string]*jobState
	wg   sync.WaitGroup
}

// New creates a Scheduler evaluating schedules in loc.
func New(loc *time.Location) *Scheduler {
	if loc == nil {
		loc = time.Local
	}
	return &Scheduler{
		loc:  loc,
		now:  time.Now,
		ctx:  context.Background(),
		jobs: make(map[string]*jobState),
	}
}

// Add registers a job, replacing any job with the same name.
func (s *Scheduler) Add(job Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.Name] = &jobState{job: job}
}

// Trigger starts a job in the background now.
func (s *Scheduler) Trigger(name string) error {
	s.mu.Lock()
	ctx := s.ctx
	s.mu.Unlock()
	return s.start(ctx, name)
}

// Jobs lists registered jobs sorted by name.
func (s *Scheduler) Jobs() []JobInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().In(s.loc)
	out := make([]JobInfo, 0, len(s.jobs))
	for name, st := range s.jobs {
		info := JobInfo{Name: name, Running: st.running, LastRun: st.lastRun, LastErr: st.lastErr}
		if st.job.Schedule != nil {
			info.NextRun = st.job.Schedule.Next(now)
		}
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Run fires scheduled jobs until ctx is cancelled, then waits for running
// jobs to return.
func (s *Scheduler) Run(ctx context.Context) error {
	s.mu.Lock()
	s.ctx = ctx
	var scheduled []Job
	for _, st := range s.jobs {
		if st.job.Schedule != nil {
			scheduled = append(scheduled, st.job)
		}
	}
	s.mu.Unlock()

	slog.Info("scheduler started", "jobs", len(scheduled), "timezone", s.loc.String())

	var loops sync.WaitGroup
	for _, job := range scheduled {
		loops.Add(1)
		go func(job Job) {
			defer loops.Done()
			s.loop(ctx, job)
		}(job)
	}

	loops.Wait()
	s.wg.Wait()
	slog.Info("scheduler stopped")
	return ctx.Err()
}

// Wait blocks until every started job has returned.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

func (s *Scheduler) loop(ctx context.Context, job Job) {
	for {
		next := job.Schedule.Next(s.now().In(s.loc))
		if next.IsZero() {
			slog.Warn("job schedule never fires", "job", job.Name)
			return
		}
		slog.Debug("next run scheduled", "job", job.Name, "at", next)

		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		if err := s.start(ctx, job.Name); errors.Is(err, ErrAlreadyRunning) {
			slog.Warn("skipping scheduled run, previous still running", "job", job.Name)
		}
	}
}

func (s *Scheduler) start(ctx context.Context, name string) error {
	s.mu.Lock()
	st, ok := s.jobs[name]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownJob, name)
	}
	if st.running {
		s.mu.Unlock()
		return ErrAlreadyRunning
	}
	st.running = true
	st.lastRun = s.now()
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		err := s.safeRun(ctx, st.job)

		s.mu.Lock()
		st.running = false
		st.lastErr = ""
		if err != nil {
			st.lastErr = err.Error()
		}
		s.mu.Unlock()

		if err != nil {
			slog.Error("job failed", "job", name, "error", err)
		}
	}()
	return nil
}

func (s *Scheduler) safeRun(ctx context.Context, job Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job %s panicked: %v", job.Name, r)
		}
	}()
	slog.Info("job starting", "job", job.Name)
	start := time.Now()
	err = job.Run(ctx)
	slog.Info("job finished", "job", job.Name, "elapsed", time.Since(start))
	return err
}
