package standup

import (
	"context"
	"testing"

	"StandupPulse/db"
	"StandupPulse/logger"

	"github.com/slack-go/slack"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthCheckClickRepliesAndStores(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	ts, err := env.engine.SendHealthCheck(ctx)
	require.NoError(t, err)

	click := HealthClick{Channel: "C1", MessageTS: ts, UserID: "U1", ActionID: ActionHealthGreat, ActionTS: "300.1"}
	require.NoError(t, env.engine.HandleHealthResponse(ctx, click))
	require.NoError(t, env.engine.HandleHealthResponse(ctx, click))

	replies := env.gw.postsContaining("Great to hear you're doing well!")
	require.Len(t, replies, 2)
	assert.Equal(t, ts, replies[0].ThreadTS)

	rows, err := env.mem.Records(ctx, db.KindHealth)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "great", rows[0].Response)
	assert.Equal(t, "name-U1", rows[0].UserName)
}

func TestHealthClickDuringStoreOutageIsKeptAndAcknowledged(t *testing.T) {
	env := newTestEnv(t, func(mem *db.Memory) Recorder {
		return db.NewResilient(brokenStore{}, mem, logger.Discard())
	})
	ctx := context.Background()
	ts, err := env.engine.SendHealthCheck(ctx)
	require.NoError(t, err)

	click := HealthClick{Channel: "C1", MessageTS: ts, UserID: "U2", ActionID: ActionHealthGreat, ActionTS: "301.1"}
	require.NoError(t, env.engine.HandleHealthResponse(ctx, click))

	rows, err := env.mem.Records(ctx, db.KindHealth)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "U2", rows[0].UserID)
	assert.Len(t, env.gw.postsContaining("Great to hear"), 1)
	assert.Empty(t, env.gw.postsContaining("Sorry"))
}

func TestHealthCheckUnknownAction(t *testing.T) {
	env := newTestEnv(t, nil)
	err := env.engine.HandleHealthResponse(context.Background(), HealthClick{ActionID: "health_meh"})
	assert.Error(t, err)
}

func TestOpenBlockerForm(t *testing.T) {
	env := newTestEnv(t, nil)
	require.NoError(t, env.engine.OpenBlockerForm(context.Background(), "trig", "U1", "", "100.1"))
	require.Len(t, env.gw.views, 1)
	assert.Equal(t, CallbackBlockerForm, env.gw.views[0].CallbackID)
	assert.Equal(t, "C1|100.1", env.gw.views[0].PrivateMetadata)
}

func blockerView(description, urgency string) slack.View {
	return slack.View{
		ID:              "V1",
		PrivateMetadata: "C1|100.1",
		State: &slack.ViewState{Values: map[string]map[string]slack.BlockAction{
			BlockDescription: {InputDescription: {Value: description}},
			BlockObjective:   {InputObjective: {Value: "KR2: ship onboarding"}},
			BlockUrgency:     {InputUrgency: {SelectedOption: slack.OptionBlockObject{Value: urgency}}},
			BlockNotes:       {InputNotes: {Value: ""}},
		}},
	}
}

func TestParseBlockerSubmission(t *testing.T) {
	r, problems := ParseBlockerSubmission(blockerView(" staging is down ", "High"))
	assert.Empty(t, problems)
	assert.Equal(t, "staging is down", r.Description)
	assert.Equal(t, "high", r.Urgency)
	assert.Equal(t, "C1", r.Channel)
	assert.Equal(t, "100.1", r.ThreadTS)

	_, problems = ParseBlockerSubmission(blockerView("", "someday"))
	assert.Contains(t, problems, BlockDescription)
	assert.Contains(t, problems, BlockUrgency)
}

func TestSubmitBlocker(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	r, problems := ParseBlockerSubmission(blockerView("staging is down", "critical"))
	require.Empty(t, problems)
	r.UserID = "U1"

	require.NoError(t, env.engine.SubmitBlocker(ctx, r))

	rows, err := env.mem.Records(ctx, db.KindBlocker)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "critical", rows[0].Urgency)
	assert.Equal(t, "KR2: ship onboarding", rows[0].Objective)

	confirm := env.gw.postsContaining("your blocker has been recorded")
	require.Len(t, confirm, 1)
	assert.Equal(t, "100.1", confirm[0].ThreadTS)
	require.Len(t, env.gw.postsTo("#leads"), 1)
	assert.Contains(t, env.gw.postsTo("#leads")[0].Text, "CRITICAL")
}

func TestSubmitBlockerStoreFailure(t *testing.T) {
	env := newTestEnv(t, func(*db.Memory) Recorder { return brokenStore{} })
	r, _ := ParseBlockerSubmission(blockerView("staging is down", "low"))
	r.UserID = "U1"

	assert.Error(t, env.engine.SubmitBlocker(context.Background(), r))
	assert.Len(t, env.gw.postsContaining("there was an issue saving your details"), 1)
}
