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

// DeskQA server
//
// Entry point for the long-running service. It:
//  1. Loads configuration from config.yaml
//  2. Connects to Redis and the row store (Sheets or PostgreSQL)
//  3. Schedules the ETL, analysis, aggregation and archive jobs
//  4. Consumes the alerts queue and mails critical tickets
//  5. Serves the operator API and websocket status stream
//  6. Handles graceful shutdown on SIGTERM/SIGINT
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	_ "time/tzdata"

	"github.com/deskqa/ingestion/internal/alerting"
	"github.com/deskqa/ingestion/internal/app"
	"github.com/deskqa/ingestion/internal/config"
	"github.com/deskqa/ingestion/internal/queue"
	"github.com/deskqa/ingestion/internal/scheduler"
	"github.com/deskqa/ingestion/internal/server"
)

func main() {
	// Structured JSON logging
	level := slog.LevelInfo
	if os.Getenv("LOG_LEVEL") == "debug" {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	slog.Info("starting DeskQA server")

	// --- Load Configuration ---
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("configuration loaded",
		"store", cfg.Store.Backend,
		"llm_provider", cfg.LLM.Provider,
		"timezone", cfg.Timezone,
		"recipients", len(cfg.Alerts.Recipients),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// --- Connect Redis, store and analyzer ---
	a, err := app.Build(ctx, cfg)
	if err != nil {
		slog.Error("failed to initialise service", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	// --- Scheduler ---
	sched := scheduler.New(cfg.Location())
	if err := a.Register(sched); err != nil {
		slog.Error("invalid job schedule", "error", err)
		os.Exit(1)
	}
	for _, j := range sched.Jobs() {
		slog.Info("job registered", "job", j.Name, "next_run", j.NextRun)
	}

	// --- Alert Dispatcher ---
	sender := alerting.NewSender(alerting.Config{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		Username: cfg.SMTP.Username,
		Password: cfg.SMTP.Password,
		From:     cfg.SMTP.From,
	})
	if !sender.Configured() {
		slog.Warn("smtp credentials missing, alerts will be dropped")
	}
	dispatcher := alerting.NewDispatcher(sender,
		alerting.Templates{Subject: cfg.Alerts.SubjectTemplate, Body: cfg.Alerts.BodyTemplate},
		cfg.Alerts.Recipients,
		func(ev queue.AlertEvent) {
			a.Status.Log(ctx, "Alert sent for ticket "+ev.TicketID)
		},
	)
	consumer := queue.NewConsumer(a.Redis, queue.ConsumerConfig{QueueName: cfg.AlertsQueue})
	consumerDone := make(chan struct{})
	go func() {
		defer close(consumerDone)
		consumer.Run(ctx, dispatcher.Handle)
	}()

	// --- Operator API ---
	hub := server.NewHub(0)
	unsubscribe := a.Status.Subscribe(hub.StatusListener())
	defer unsubscribe()

	handler := server.NewHandler(server.Config{
		Runner: sched,
		Status: a.Status,
		Hub:    hub,
		Checks: map[string]server.HealthCheck{
			"redis": a.Publisher.Ping,
			"store": func(ctx context.Context) error {
				_, err := a.Store.TicketIDs(ctx)
				return err
			},
		},
	})
	ready, err := server.Serve(ctx, cfg.Port, handler.Routes())
	if err != nil {
		slog.Error("failed to start http server", "error", err)
		os.Exit(1)
	}
	<-ready
	a.Status.Log(ctx, "Server started")

	// --- Graceful Shutdown ---
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
		sig := <-sigCh

		slog.Info("received shutdown signal", "signal", sig)
		cancel() // Stop scheduler, consumer and http server
	}()

	if err := sched.Run(ctx); err != nil && ctx.Err() == nil {
		slog.Error("scheduler stopped", "error", err)
	}
	<-consumerDone
	hub.Close()

	slog.Info("DeskQA server stopped")
}
