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

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/deskqa/ingestion/internal/app"
	"github.com/deskqa/ingestion/internal/jobstatus"
	"github.com/deskqa/ingestion/internal/pipeline"
)

func jobCommand(use, job, short string) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runJob(cmd, job)
		},
	}
}

func init() {
	rootCmd.AddCommand(
		jobCommand("etl", pipeline.JobETL, "Fetch recent tickets and store human transcripts"),
		jobCommand("analyze", pipeline.JobAnalysis, "Score unprocessed tickets and queue alerts"),
		jobCommand("aggregate", pipeline.JobAggregate, "Recompute per-agent daily statistics"),
		jobCommand("archive", pipeline.JobArchive, "Move old tickets into monthly archives"),
	)
}

// runJob builds the service graph and runs one job in the foreground,
// echoing its progress.
func runJob(cmd *cobra.Command, job string) error {
	ctx := cmd.Context()

	a, err := app.Build(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	unsubscribe := a.Status.Subscribe(func(s jobstatus.Status) {
		if s.Job == job {
			cmd.Printf("[%3d%%] %s\n", s.Progress, s.Message)
		}
	})
	defer unsubscribe()

	run, ok := a.Jobs()[job]
	if !ok {
		return fmt.Errorf("unknown job %q", job)
	}
	if err := run(ctx); err != nil {
		return fmt.Errorf("%s failed: %w", job, err)
	}
	cmd.Printf("%s finished\n", job)
	return nil
}
