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

package liveagent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"

	"github.com/deskqa/ingestion/internal/models"
	"github.com/deskqa/ingestion/internal/transcript"
)

const (
	messagesPerPage = 300
	agentsPerPage   = 100
	contactsPerPage = 500
)

// ListTickets returns one page of tickets, most recently changed first.
// Pages are 1-based.
func (c *Client) ListTickets(ctx context.Context, page, perPage int) ([]models.Ticket, error) {
	params := url.Values{}
	params.Set("_page", strconv.Itoa(page))
	params.Set("_perPage", strconv.Itoa(perPage))
	params.Set("_sortField", "date_changed")
	params.Set("_sortDir", "DESC")

	body, err := c.get(ctx, "/tickets", params)
	if err != nil {
		return nil, fmt.Errorf("list tickets page %d: %w", page, err)
	}
	return decodeList[models.Ticket](body, "ticket"), nil
}

// TicketMessages returns the message payload of a ticket. A payload that is
// not a list yields no entries rather than an error.
func (c *Client) TicketMessages(ctx context.Context, ticketID string) ([]models.Entry, error) {
	params := url.Values{}
	params.Set("_perPage", strconv.Itoa(messagesPerPage))

	body, err := c.get(ctx, "/tickets/"+url.PathEscape(ticketID)+"/messages", params)
	if err != nil {
		return nil, fmt.Errorf("fetch messages for ticket %s: %w", ticketID, err)
	}
	return models.DecodeEntries(body), nil
}

// Agents lists helpdesk agents.
func (c *Client) Agents(ctx context.Context) ([]models.Agent, error) {
	params := url.Values{}
	params.Set("_perPage", strconv.Itoa(agentsPerPage))

	body, err := c.get(ctx, "/agents", params)
	if err != nil {
		return nil, fmt.Errorf("list agents: %w", err)
	}
	return decodeList[models.Agent](body, "agent"), nil
}

// Contacts lists customer contacts.
func (c *Client) Contacts(ctx context.Context) ([]models.Contact, error) {
	params := url.Values{}
	params.Set("_perPage", strconv.Itoa(contactsPerPage))

	body, err := c.get(ctx, "/contacts", params)
	if err != nil {
		return nil, fmt.Errorf("list contacts: %w", err)
	}
	return decodeList[models.Contact](body, "contact"), nil
}

// Directory fetches agents and contacts into a name directory. Either half
// failing leaves that half empty; names then fall back to placeholders.
func (c *Client) Directory(ctx context.Context) transcript.Directory {
	agents, err := c.Agents(ctx)
	if err != nil {
		slog.Warn("agent directory unavailable", "error", err)
	}
	contacts, err := c.Contacts(ctx)
	if err != nil {
		slog.Warn("contact directory unavailable", "error", err)
	}

	dir := transcript.NewDirectory(agents, contacts)
	slog.Debug("directory loaded", "agents", len(dir.Agents), "contacts", len(dir.Contacts))
	return dir
}

// decodeList decodes a JSON array element by element, dropping elements
// that do not decode. A non-array body yields nil.
func decodeList[T any](body []byte, kind string) []T {
	var raw []json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		slog.Warn("unexpected list payload", "kind", kind, "error", err)
		return nil
	}

	out := make([]T, 0, len(raw))
	for i, elem := range raw {
		var v T
		if err := json.Unmarshal(elem, &v); err != nil {
			slog.Debug("skipping malformed list element", "kind", kind, "index", i, "error", err)
			continue
		}
		out = append(out, v)
	}
	return out
}
