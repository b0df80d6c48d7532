package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"StandupPulse/db"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (f *fixture) command(t *testing.T, name, user, channel string) *httptest.ResponseRecorder {
	t.Helper()
	form := url.Values{
		"command":    {name},
		"user_id":    {user},
		"user_name":  {"name-" + user},
		"channel_id": {channel},
		"trigger_id": {"trig-1"},
		"text":       {""},
	}
	req := httptest.NewRequest(http.MethodPost, "/slack/commands", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	f.handler.HandleCommand(rec, req)
	f.handler.Wait()
	return rec
}

func ephemeral(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	require.Equal(t, http.StatusOK, rec.Code)
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, "ephemeral", out["response_type"])
	return out
}

func TestHelpCommandListsCommands(t *testing.T) {
	f := newFixture(t, Options{})
	out := ephemeral(t, f.command(t, "/help", "U1", "C1"))

	blocks, ok := out["blocks"].([]any)
	require.True(t, ok)
	assert.NotEmpty(t, blocks)
	raw, _ := json.Marshal(blocks)
	assert.Contains(t, string(raw), "/checkin")
	assert.Contains(t, string(raw), "/blocked")
}

func TestCheckinCommandStartsPersonalStandup(t *testing.T) {
	f := newFixture(t, Options{})
	out := ephemeral(t, f.command(t, "/checkin", "U7", "C1"))
	assert.Contains(t, out["text"], "DM")

	var prompt string
	for _, p := range f.gw.containing("daily standup") {
		if p.Channel == "U7" {
			prompt = p.Text
		}
	}
	require.NotEmpty(t, prompt)
	assert.Equal(t, 2, f.gw.count())

	f.sendEvent(t, "Ev30", threadReply("100.2", "U7", "200.1", "Today: docs\nOn Track: Yes\nBlockers: none"))
	assert.Len(t, f.gw.containing("Thanks <@U7>"), 1)
}

func TestHealthCommandPostsToInvokingChannel(t *testing.T) {
	f := newFixture(t, Options{})
	ephemeral(t, f.command(t, "/health", "U1", "C9"))

	posts := f.gw.containing("How are you feeling today?")
	require.Len(t, posts, 1)
	assert.Equal(t, "C9", posts[0].Channel)
}

func TestBlockedCommandOpensForm(t *testing.T) {
	f := newFixture(t, Options{})
	rec := f.command(t, "/blocked", "U1", "C1")
	assert.Equal(t, http.StatusOK, rec.Code)

	f.gw.mu.Lock()
	defer f.gw.mu.Unlock()
	require.Len(t, f.gw.views, 1)
	assert.Equal(t, "blocker_form", f.gw.views[0].CallbackID)
}

func TestBlockerCommandListsOwnBlockers(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()
	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	require.NoError(t, f.mem.Append(ctx, db.Record{Kind: db.KindBlocker, UserID: "U1", BlockerDescription: "waiting on API keys", Urgency: "high", Timestamp: now, Fingerprint: "b1"}))
	require.NoError(t, f.mem.Append(ctx, db.Record{Kind: db.KindBlocker, UserID: "U2", BlockerDescription: "laptop broken", Urgency: "low", Timestamp: now, Fingerprint: "b2"}))

	ephemeral(t, f.command(t, "/blocker", "U1", "C1"))

	lists := f.gw.containing("Your blockers")
	require.Len(t, lists, 1)
	assert.Equal(t, "U1", lists[0].Channel)
	assert.Contains(t, lists[0].Text, "waiting on API keys")
	assert.NotContains(t, lists[0].Text, "laptop broken")
}

func TestUnknownCommand(t *testing.T) {
	f := newFixture(t, Options{})
	out := ephemeral(t, f.command(t, "/nope", "U1", "C1"))
	assert.Contains(t, out["text"], "/nope")
	assert.Equal(t, 1, f.gw.count())
}

func TestCommandSignatureChecked(t *testing.T) {
	f := newFixture(t, Options{SigningSecret: "s3cret"})
	req := httptest.NewRequest(http.MethodPost, "/slack/commands", strings.NewReader("command=%2Fhelp&user_id=U1"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("X-Slack-Request-Timestamp", "1")
	req.Header.Set("X-Slack-Signature", "v0=deadbeef")
	rec := httptest.NewRecorder()
	f.handler.HandleCommand(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
