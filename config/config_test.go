package config

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envOf(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := load(envOf(map[string]string{
		"SLACK_BOT_TOKEN":  "xoxb-test",
		"SLACK_CHANNEL_ID": "C123",
	}))
	require.NoError(t, err)

	assert.Equal(t, "leads", cfg.EscalationChannel)
	assert.Equal(t, "sos", cfg.EscalationEmoji)
	assert.Equal(t, "clock4", cfg.MonitorEmoji)
	assert.Equal(t, 2*time.Hour, cfg.ReminderInterval)
	assert.Equal(t, time.Duration(0), cfg.AutoEscalateAfter)
	assert.Equal(t, 500, cfg.ProcessedEventCapacity)
	assert.Equal(t, "America/New_York", cfg.Location.String())
	assert.Equal(t, DefaultReactionMap, cfg.ReactionMap)
	assert.True(t, cfg.HealthCheckEnabled())
	assert.False(t, cfg.Coda.Enabled())
}

func TestLoadReportsEveryMissingSetting(t *testing.T) {
	_, err := load(envOf(map[string]string{
		"REMINDER_INTERVAL": "soon",
		"TIMEZONE":          "Mars/Olympus",
	}))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMissingSetting))
	for _, want := range []string{"SLACK_BOT_TOKEN", "SLACK_CHANNEL_ID", "REMINDER_INTERVAL", "TIMEZONE"} {
		assert.Contains(t, err.Error(), want)
	}
}

func TestLoadRejectsBadScheduleAndDeadline(t *testing.T) {
	_, err := load(envOf(map[string]string{
		"SLACK_BOT_TOKEN":   "xoxb-test",
		"SLACK_CHANNEL_ID":  "C123",
		"STANDUP_SCHEDULE":  "every morning",
		"RESPONSE_DEADLINE": "4pm",
	}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "STANDUP_SCHEDULE")
	assert.Contains(t, err.Error(), "RESPONSE_DEADLINE")
}

func TestLoadParsesUsersAndDisablesHealthCheck(t *testing.T) {
	cfg, err := load(envOf(map[string]string{
		"SLACK_BOT_TOKEN":       "xoxb-test",
		"SLACK_CHANNEL_ID":      "C123",
		"STANDUP_USERS":         "U1, U2,,U3 ",
		"HEALTH_CHECK_SCHEDULE": "off",
		"ESCALATION_EMOJI":      ":fire:",
	}))
	require.NoError(t, err)
	assert.Equal(t, []string{"U1", "U2", "U3"}, cfg.StandupUsers)
	assert.False(t, cfg.HealthCheckEnabled())
	assert.Equal(t, "fire", cfg.EscalationEmoji)
}

func TestParseReactionMap(t *testing.T) {
	m, err := ParseReactionMap([]byte("\":+1:\": on_track\nthinking_face: minor_issues\nfire: needs_help\n"))
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"+1": StatusOnTrack, "thinking_face": StatusMinorIssues, "fire": StatusNeedsHelp}, m)

	_, err = ParseReactionMap([]byte("fire: panic\n"))
	assert.Error(t, err)

	_, err = ParseReactionMap([]byte("\"+1\": on_track\n"))
	assert.Error(t, err, "a map without needs_help cannot escalate")
}
