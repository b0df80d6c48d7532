package standup

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostSummary(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	env.engine.cfg.StandupUsers = []string{"U1", "U2", "U3"}
	ts := startStandup(t, env)

	require.NoError(t, env.engine.HandleThreadReply(ctx, ThreadReply{Channel: "C1", StandupID: ts, UserID: "U1", MessageTS: "200.1", Text: "Today: refactor\nOn Track: Yes\nBlockers: None"}))
	require.NoError(t, env.engine.HandleQuickReaction(ctx, QuickReaction{Channel: "C1", StandupID: ts, UserID: "U2", Reaction: "warning"}))

	env.advance(6 * time.Hour)
	n, err := env.engine.PostSummary(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	summaries := env.gw.postsContaining("Team Daily Standup Summary")
	require.Len(t, summaries, 1)
	text := summaries[0].Text
	assert.Equal(t, ts, summaries[0].ThreadTS)
	assert.Contains(t, text, "Today: refactor")
	assert.Contains(t, text, "<@U2>: minor issues")
	assert.Contains(t, text, "No update from: <@U3>")
}

func TestPostSummarySkipsOlderStandups(t *testing.T) {
	env := newTestEnv(t, nil)
	startStandup(t, env)
	env.advance(24 * time.Hour)

	n, err := env.engine.PostSummary(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}
