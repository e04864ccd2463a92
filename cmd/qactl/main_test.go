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
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const humanMessages = `[
  {"id":"g1","type":"4","userid":"c1","messages":[
    {"id":"m1","type":"M","userid":"c1","message":"<p>Dobry den, nejde mi prihlasenie.</p>","datecreated":"2024-03-04 08:00:00"},
    {"id":"m2","type":"M","userid":"a1","message":"<p>Skuste prosim reset hesla.</p>","datecreated":"2024-03-04 08:05:00"}
  ]}
]`

const automatedMessages = `[
  {"id":"g1","type":"1","messages":[
    {"id":"m1","type":"M","userid":"c1","message":"<p>Ticket created</p>","datecreated":"2024-03-04 08:00:00"}
  ]}
]`

func fakeLiveAgent(t *testing.T, messages string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/agents":
			w.Write([]byte(`[{"id":"a1","firstname":"Jana","lastname":"Kovac"}]`))
		case "/contacts":
			w.Write([]byte(`[{"id":"c1","firstname":"Peter","lastname":"Novak"}]`))
		case "/tickets/T-1/messages":
			w.Write([]byte(messages))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func writeConfig(t *testing.T, baseURL string) {
	t.Helper()
	yaml := "liveagent:\n" +
		"  base_url: " + baseURL + "\n" +
		"  api_key: test-key\n" +
		"  agent_url: https://desk.example/agent/#/Ticket;\n" +
		"store:\n" +
		"  backend: postgres\n" +
		"  database_url: postgres://u:p@localhost/db\n"
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))
	t.Setenv("CONFIG_PATH", path)
	t.Setenv("APP_ENV", "test")
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(new(bytes.Buffer))
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		renderAll = false
	})
	err := rootCmd.Execute()
	return buf.String(), err
}

// TestTranscriptCmd_Human verifies a customer conversation is classified
// human and rendered with resolved names.
func TestTranscriptCmd_Human(t *testing.T) {
	srv := fakeLiveAgent(t, humanMessages)
	writeConfig(t, srv.URL)

	out, err := execute(t, "transcript", "T-1")
	require.NoError(t, err)

	assert.Contains(t, out, "Human:           yes")
	assert.Contains(t, out, "Messages:        2")
	assert.Contains(t, out, "https://desk.example/agent/#/Ticket;T-1")
	assert.Contains(t, out, "[AUTOR: Peter Novak")
	assert.Contains(t, out, "[AUTOR: Jana Kovac")
	assert.Contains(t, out, "nejde mi prihlasenie")
}

// TestTranscriptCmd_Automated verifies automated tickets print only the
// verdict unless --all is given.
func TestTranscriptCmd_Automated(t *testing.T) {
	srv := fakeLiveAgent(t, automatedMessages)
	writeConfig(t, srv.URL)

	out, err := execute(t, "transcript", "T-1")
	require.NoError(t, err)
	assert.Contains(t, out, "Human:           no")
	assert.NotContains(t, out, "Ticket created")

	out, err = execute(t, "transcript", "--all", "T-1")
	require.NoError(t, err)
	assert.Contains(t, out, "Human:           no")
	assert.Contains(t, out, "Ticket created")
}

// TestTranscriptCmd_RequiresTicketID verifies argument validation.
func TestTranscriptCmd_RequiresTicketID(t *testing.T) {
	srv := fakeLiveAgent(t, humanMessages)
	writeConfig(t, srv.URL)

	_, err := execute(t, "transcript")
	assert.Error(t, err)
}

// TestJobCommands verifies every pipeline job has a subcommand.
func TestJobCommands(t *testing.T) {
	for _, name := range []string{"etl", "analyze", "aggregate", "archive", "transcript"} {
		cmd, _, err := rootCmd.Find([]string{name})
		require.NoError(t, err, name)
		assert.Equal(t, name, cmd.Name())
	}
}
