package scheduler

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"StandupPulse/db"
	"StandupPulse/logger"
	"StandupPulse/standup"

	"github.com/slack-go/slack"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingGateway struct {
	mu    sync.Mutex
	texts []string
}

func (g *countingGateway) Post(_ context.Context, msg standup.Message) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.texts = append(g.texts, msg.Text)
	return fmt.Sprintf("100.%d", len(g.texts)), nil
}

func (g *countingGateway) AddReaction(context.Context, string, string, string) error { return nil }
func (g *countingGateway) UserName(_ context.Context, id string) string            { return id }
func (g *countingGateway) Permalink(context.Context, string, string) (string, error) {
	return "", nil
}
func (g *countingGateway) ChannelMembers(context.Context, string) ([]string, error) {
	return nil, nil
}
func (g *countingGateway) OpenView(context.Context, string, slack.ModalViewRequest) error {
	return nil
}

func newEngine(t *testing.T) (*standup.Engine, *countingGateway) {
	t.Helper()
	tracker, err := standup.NewTracker(10, map[string]string{"rotating_light": "needs_help"})
	require.NoError(t, err)
	mem, err := db.NewMemory(10)
	require.NoError(t, err)
	gw := &countingGateway{}
	e := standup.NewEngine(standup.Settings{
		ChannelID:        "C1",
		ResponseDeadline: "23:59",
		StandupUsers:     []string{"U1"},
		EscalationEmoji:  "sos",
		MonitorEmoji:     "clock4",
	}, gw, mem, tracker, logger.Discard())
	return e, gw
}

func baseOptions() Options {
	return Options{
		StandupSchedule:     "0 10 * * MON-FRI",
		HealthCheckSchedule: "0 9 * * MON-FRI",
		HealthCheckEnabled:  true,
		ReminderInterval:    2 * time.Hour,
		ResponseDeadline:    "16:00",
		Retention:           48 * time.Hour,
	}
}

func TestNewRegistersJobs(t *testing.T) {
	e, _ := newEngine(t)
	s, err := New(e, baseOptions(), logger.Discard())
	require.NoError(t, err)
	assert.Len(t, s.cron.Entries(), 5)

	opts := baseOptions()
	opts.HealthCheckEnabled = false
	opts.AutoEscalateAfter = time.Hour
	s, err = New(e, opts, logger.Discard())
	require.NoError(t, err)
	assert.Len(t, s.cron.Entries(), 5)
}

func TestNewRejectsBadSchedule(t *testing.T) {
	e, _ := newEngine(t)
	opts := baseOptions()
	opts.StandupSchedule = "every morning"
	_, err := New(e, opts, logger.Discard())
	assert.Error(t, err)
}

func TestDeadlineSpec(t *testing.T) {
	assert.Equal(t, "30 16 * * *", deadlineSpec("16:30"))
}

func TestJobsDriveTheEngine(t *testing.T) {
	e, gw := newEngine(t)
	s, err := New(e, baseOptions(), logger.Discard())
	require.NoError(t, err)
	ctx := context.Background()

	s.runStandup(ctx)
	s.runSummary(ctx)
	s.runHealthCheck(ctx)

	require.Len(t, gw.texts, 3)
	assert.Contains(t, gw.texts[0], "daily standup")
	assert.True(t, strings.Contains(gw.texts[1], "Standup Summary"))
	assert.Contains(t, gw.texts[2], "How are you feeling today?")
}

func TestStartStop(t *testing.T) {
	e, _ := newEngine(t)
	s, err := New(e, baseOptions(), logger.Discard())
	require.NoError(t, err)
	s.Start()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, s.Stop(ctx))
}
