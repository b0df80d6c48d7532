package main

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"StandupPulse/api"
	"StandupPulse/db"
	"StandupPulse/logger"
	"StandupPulse/standup"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRouter(t *testing.T) http.Handler {
	t.Helper()
	tracker, err := standup.NewTracker(10, nil)
	require.NoError(t, err)
	mem, err := db.NewMemory(10)
	require.NoError(t, err)
	engine := standup.NewEngine(standup.Settings{ChannelID: "C1"}, nil, mem, tracker, logger.Discard())
	h := api.NewHandler(engine, api.Options{BotUserID: "UBOT"}, logger.Discard())
	return SetupRouter(h, logger.Discard())
}

func TestHealthRoute(t *testing.T) {
	rec := httptest.NewRecorder()
	testRouter(t).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "alive")
}

func TestSlackRoutesShareHandler(t *testing.T) {
	router := testRouter(t)
	for _, path := range []string{"/slack/events", "/slack/interactions"} {
		body := `{"type":"url_verification","challenge":"abc123"}`
		req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code, path)
		assert.Equal(t, "abc123", rec.Body.String(), path)
	}
}

func TestCommandsRoute(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/slack/commands", strings.NewReader("command=%2Fhelp&user_id=U1&channel_id=C1"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	testRouter(t).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"response_type":"ephemeral"`)
}

func TestUnknownRoute(t *testing.T) {
	rec := httptest.NewRecorder()
	testRouter(t).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/slack/install", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
