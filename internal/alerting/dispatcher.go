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

package alerting

import (
	"context"
	"errors"
	"log/slog"

	"github.com/deskqa/ingestion/internal/queue"
)

// Mailer is the delivery side of a Dispatcher.
type Mailer interface {
	Send(ctx context.Context, recipients []string, subject, body string) error
}

// Dispatcher turns queued alert events into mail.
type Dispatcher struct {
	mailer     Mailer
	templates  Templates
	recipients []string
	onSent     func(queue.AlertEvent)
}

// NewDispatcher creates a Dispatcher. onSent, if non-nil, is called after
// each delivered alert.
func NewDispatcher(m Mailer, t Templates, recipients []string, onSent func(queue.AlertEvent)) *Dispatcher {
	return &Dispatcher{mailer: m, templates: t, recipients: recipients, onSent: onSent}
}

// Handle mails one event. A missing mail configuration drops the event
// since retrying cannot succeed.
func (d *Dispatcher) Handle(ctx context.Context, event queue.AlertEvent) error {
	subject, body := d.templates.Render(Alert{
		TicketID:  event.TicketID,
		AgentName: event.AgentName,
		Reason:    event.Reason,
		Link:      event.Link,
	})

	err := d.mailer.Send(ctx, d.recipients, subject, body)
	if errors.Is(err, ErrNotConfigured) {
		slog.Warn("mail not configured, skipping alert", "ticket_id", event.TicketID)
		return nil
	}
	if err != nil {
		return err
	}

	if d.onSent != nil {
		d.onSent(event)
	}
	return nil
}
