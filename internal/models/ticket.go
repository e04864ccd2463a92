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

package models

import "strings"

// Ticket is a ticket summary as listed by GET /tickets.
type Ticket struct {
	ID          FlexString `json:"id"`
	Code        FlexString `json:"code"`
	Subject     FlexString `json:"subject"`
	Status      FlexString `json:"status"`
	AgentID     FlexString `json:"agent_id"`
	AgentIDAlt  FlexString `json:"agentid"`
	AgentName   FlexString `json:"agent_name"`
	DateCreated FlexString `json:"date_created"`
	DateChanged FlexString `json:"date_changed"`
}

// AssignedAgentID returns the owning agent's id under either field name.
func (t Ticket) AssignedAgentID() string {
	if id := t.AgentID.String(); id != "" {
		return id
	}
	return t.AgentIDAlt.String()
}

// Agent is a helpdesk staff member from GET /agents.
type Agent struct {
	ID        FlexString `json:"id"`
	UserID    FlexString `json:"userid"`
	Name      FlexString `json:"name"`
	FullName  FlexString `json:"full_name"`
	FirstName FlexString `json:"firstname"`
	LastName  FlexString `json:"lastname"`
	Email     FlexString `json:"email"`
}

// Key returns the identifier messages refer to the agent by.
func (a Agent) Key() string {
	return firstNonEmpty(a.ID.String(), a.UserID.String())
}

// DisplayName resolves the agent's name, falling back to "Agent <id>".
func (a Agent) DisplayName() string {
	return displayName(a.Name, a.FullName, a.FirstName, a.LastName, a.Email, "Agent "+a.Key())
}

// Contact is a customer record from GET /contacts.
type Contact struct {
	ID        FlexString `json:"id"`
	ContactID FlexString `json:"contactid"`
	Name      FlexString `json:"name"`
	FullName  FlexString `json:"full_name"`
	FirstName FlexString `json:"firstname"`
	LastName  FlexString `json:"lastname"`
	Email     FlexString `json:"email"`
}

// Key returns the identifier messages refer to the contact by.
func (c Contact) Key() string {
	return firstNonEmpty(c.ID.String(), c.ContactID.String())
}

// DisplayName resolves the contact's name, falling back to "User <id>".
func (c Contact) DisplayName() string {
	return displayName(c.Name, c.FullName, c.FirstName, c.LastName, c.Email, "User "+c.Key())
}

func displayName(name, fullName, first, last, email FlexString, fallback string) string {
	if n := firstNonEmpty(name.String(), fullName.String()); n != "" {
		return n
	}
	if n := strings.TrimSpace(first.String() + " " + last.String()); n != "" {
		return n
	}
	if e := email.String(); e != "" {
		return e
	}
	return fallback
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
