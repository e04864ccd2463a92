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

// Package alerting mails critical-ticket alerts to the QA team.
package alerting

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strconv"
	"time"

	"github.com/emersion/go-message/mail"
	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"
)

// SubjectPrefix is prepended to every alert subject.
const SubjectPrefix = "[QA ALERT] "

// ErrNotConfigured is returned when credentials or recipients are missing.
var ErrNotConfigured = errors.New("alerting: smtp credentials or recipients not configured")

// Config holds SMTP delivery settings.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string // defaults to Username
}

// Sender delivers plain-text alert mail over SMTP.
type Sender struct {
	cfg Config
	now func() time.Time
}

// NewSender creates a Sender.
func NewSender(cfg Config) *Sender {
	if cfg.From == "" {
		cfg.From = cfg.Username
	}
	return &Sender{cfg: cfg, now: time.Now}
}

// Configured reports whether credentials are present.
func (s *Sender) Configured() bool {
	return s.cfg.Host != "" && s.cfg.Username != "" && s.cfg.Password != ""
}

// Send mails body to recipients. STARTTLS is used when the server offers
// it; port 465 uses implicit TLS.
func (s *Sender) Send(ctx context.Context, recipients []string, subject, body string) error {
	if !s.Configured() || len(recipients) == 0 {
		return ErrNotConfigured
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	msg, err := s.compose(recipients, SubjectPrefix+subject, body)
	if err != nil {
		return err
	}

	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
	auth := sasl.NewPlainClient("", s.cfg.Username, s.cfg.Password)

	send := smtp.SendMail
	if s.cfg.Port == 465 {
		send = smtp.SendMailTLS
	}
	if err := send(addr, auth, s.cfg.From, recipients, bytes.NewReader(msg)); err != nil {
		return fmt.Errorf("send mail via %s: %w", addr, err)
	}

	slog.Info("alert mail sent", "recipients", len(recipients), "subject", subject)
	return nil
}

func (s *Sender) compose(recipients []string, subject, body string) ([]byte, error) {
	var h mail.Header
	h.SetDate(s.now())
	h.SetSubject(subject)
	h.SetAddressList("From", []*mail.Address{{Address: s.cfg.From}})

	to := make([]*mail.Address, 0, len(recipients))
	for _, r := range recipients {
		to = append(to, &mail.Address{Address: r})
	}
	h.SetAddressList("To", to)
	h.SetContentType("text/plain", map[string]string{"charset": "utf-8"})
	if err := h.GenerateMessageID(); err != nil {
		return nil, fmt.Errorf("generate message id: %w", err)
	}

	var buf bytes.Buffer
	w, err := mail.CreateSingleInlineWriter(&buf, h)
	if err != nil {
		return nil, fmt.Errorf("create mail writer: %w", err)
	}
	if _, err := io.WriteString(w, body); err != nil {
		return nil, fmt.Errorf("write mail body: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("close mail writer: %w", err)
	}
	return buf.Bytes(), nil
}
