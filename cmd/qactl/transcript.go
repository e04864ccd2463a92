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
)

var renderAll bool

var transcriptCmd = &cobra.Command{
	Use:   "transcript <ticket-id>",
	Short: "Classify one ticket and print its transcript",
	Long: `Fetches the ticket's messages and the agent/contact directory from
LiveAgent, reports whether the ticket contains a human interaction and
prints the transcript the ETL job would store. Nothing is written.

With --all the transcript is printed even when the ticket is classified
as automated.`,
	Args: cobra.ExactArgs(1),
	RunE: runTranscript,
}

func init() {
	transcriptCmd.Flags().BoolVar(&renderAll, "all", false, "render the transcript even for automated tickets")
	rootCmd.AddCommand(transcriptCmd)
}

func runTranscript(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	ticketID := args[0]

	source := app.NewSource(cfg)
	dir := source.Directory(ctx)

	entries, err := source.TicketMessages(ctx, ticketID)
	if err != nil {
		return fmt.Errorf("fetch ticket %s: %w", ticketID, err)
	}

	proc := app.NewProcessor(cfg)
	res := proc.Process(entries, dir)

	verdict := "no"
	if res.Human {
		verdict = "yes"
	}
	cmd.Printf("Ticket:          %s\n", ticketID)
	cmd.Printf("Link:            %s\n", source.TicketLink(ticketID))
	cmd.Printf("Entries:         %d\n", len(entries))
	cmd.Printf("Human:           %s\n", verdict)
	switch {
	case res.Human:
		cmd.Printf("Messages:        %d\n\n", res.Messages)
		cmd.Println(res.Transcript)
	case renderAll:
		cmd.Println()
		cmd.Println(proc.Transcript(entries, dir))
	}
	return nil
}
