package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()
	var out []map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(line), &m))
		out = append(out, m)
	}
	return out
}

func TestKeyValueFields(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf)

	log.Warn("feed failed", "source", "cta", "error", errors.New("connection refused"), "attempt", 1)

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "warn", lines[0]["level"])
	assert.Equal(t, "feed failed", lines[0]["message"])
	assert.Equal(t, "cta", lines[0]["source"])
	assert.Equal(t, "connection refused", lines[0]["error"])
	assert.EqualValues(t, 1, lines[0]["attempt"])
}

func TestMapFields(t *testing.T) {
	var buf bytes.Buffer
	New(&buf).Info("cycle", map[string]interface{}{"arrivals": 7})

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.EqualValues(t, 7, lines[0]["arrivals"])
}

func TestWithCarriesFields(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf).With("component", "refresh")
	log.Info("started")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "refresh", lines[0]["component"])
}

func TestNewFromConfigFiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	log := NewFromConfig(Config{Level: zerolog.WarnLevel, Console: &buf})

	log.Info("hidden")
	log.Debug("hidden")
	log.Error("shown")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "shown", lines[0]["message"])
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zerolog.DebugLevel, ParseLevel("DEBUG"))
	assert.Equal(t, zerolog.WarnLevel, ParseLevel(" warn "))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel(""))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel("loud"))
}

func TestDiscordHookForwardsErrors(t *testing.T) {
	received := make(chan string, 4)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		received <- string(body)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	log := NewFromConfig(Config{Level: zerolog.InfoLevel, Console: io.Discard, DiscordURL: srv.URL})
	log.Warn("not forwarded")
	log.Error("metra feed down")

	select {
	case body := <-received:
		assert.Contains(t, body, "metra feed down")
		assert.Contains(t, body, "ERROR")
	case <-time.After(2 * time.Second):
		t.Fatal("expected a webhook call for the error event")
	}

	select {
	case body := <-received:
		t.Fatalf("unexpected webhook call: %s", body)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestDiscordHookForwardsFields(t *testing.T) {
	received := make(chan []byte, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		received <- body
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	log := NewFromConfig(Config{Level: zerolog.InfoLevel, Console: io.Discard, DiscordURL: srv.URL})
	log.Error("Template render failed", "template", "board.html", "error", errors.New("missing key"))

	var body []byte
	select {
	case body = <-received:
	case <-time.After(2 * time.Second):
		t.Fatal("expected a webhook call for the error event")
	}

	var msg struct {
		Embeds []struct {
			Description string `json:"description"`
			Fields      []struct {
				Name  string `json:"name"`
				Value string `json:"value"`
			} `json:"fields"`
		} `json:"embeds"`
	}
	require.NoError(t, json.Unmarshal(body, &msg))
	require.Len(t, msg.Embeds, 1)
	assert.Equal(t, "Template render failed", msg.Embeds[0].Description)

	fields := map[string]string{}
	for _, f := range msg.Embeds[0].Fields {
		fields[f.Name] = f.Value
	}
	assert.Equal(t, map[string]string{"error": "missing key", "template": "board.html"}, fields)
}
