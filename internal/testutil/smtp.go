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

package testutil

import (
	"errors"
	"io"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"
)

// Credentials accepted by the test SMTP server.
const (
	SMTPUsername = "qa-bot"
	SMTPPassword = "qa-pass"
)

// Mail is one message received by the test server.
type Mail struct {
	From string
	To   []string
	Data []byte
}

type mailBackend struct {
	mu    sync.Mutex
	mails []Mail
}

func (b *mailBackend) NewSession(*smtp.Conn) (smtp.Session, error) {
	return &mailSession{backend: b}, nil
}

type mailSession struct {
	backend *mailBackend
	authed  bool
	from    string
	to      []string
}

func (s *mailSession) AuthMechanisms() []string {
	return []string{sasl.Plain}
}

func (s *mailSession) Auth(string) (sasl.Server, error) {
	return sasl.NewPlainServer(func(_, username, password string) error {
		if username != SMTPUsername || password != SMTPPassword {
			return errors.New("invalid credentials")
		}
		s.authed = true
		return nil
	}), nil
}

func (s *mailSession) Mail(from string, _ *smtp.MailOptions) error {
	if !s.authed {
		return smtp.ErrAuthRequired
	}
	s.from = from
	return nil
}

func (s *mailSession) Rcpt(to string, _ *smtp.RcptOptions) error {
	s.to = append(s.to, to)
	return nil
}

func (s *mailSession) Data(r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	s.backend.mu.Lock()
	defer s.backend.mu.Unlock()
	s.backend.mails = append(s.backend.mails, Mail{From: s.from, To: s.to, Data: data})
	return nil
}

func (s *mailSession) Reset() {
	s.from = ""
	s.to = nil
}

func (s *mailSession) Logout() error { return nil }

// SMTPServer is an in-memory SMTP server bound to a random local port.
type SMTPServer struct {
	Host    string
	Port    int
	backend *mailBackend
}

// NewSMTPServer starts an SMTP server that requires SMTPUsername and
// SMTPPassword over unencrypted PLAIN auth. It is closed with the test.
func NewSMTPServer(t *testing.T) *SMTPServer {
	t.Helper()

	be := &mailBackend{}
	s := smtp.NewServer(be)
	s.AllowInsecureAuth = true
	s.Domain = "localhost"
	s.ReadTimeout = 10 * time.Second
	s.WriteTimeout = 10 * time.Second

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	go func() {
		_ = s.Serve(listener)
	}()
	t.Cleanup(func() { _ = s.Close() })

	addr := listener.Addr().(*net.TCPAddr)
	return &SMTPServer{Host: "127.0.0.1", Port: addr.Port, backend: be}
}

// Mails returns a copy of every received message.
func (s *SMTPServer) Mails() []Mail {
	s.backend.mu.Lock()
	defer s.backend.mu.Unlock()
	return append([]Mail(nil), s.backend.mails...)
}
