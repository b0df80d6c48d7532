package standup

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"StandupPulse/db"
	"StandupPulse/logger"

	"github.com/slack-go/slack"
	"github.com/stretchr/testify/require"
)

type fakeGateway struct {
	mu        sync.Mutex
	seq       int
	posts     []Message
	reactions []string
	views     []slack.ModalViewRequest
	members   []string
	failPosts bool
	noLinks   bool
}

func (f *fakeGateway) Post(_ context.Context, msg Message) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failPosts {
		return "", errors.New("channel_not_found")
	}
	f.seq++
	f.posts = append(f.posts, msg)
	return fmt.Sprintf("100.%d", f.seq), nil
}

func (f *fakeGateway) AddReaction(_ context.Context, channel, ts, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reactions = append(f.reactions, channel+"|"+ts+"|"+name)
	return nil
}

func (f *fakeGateway) UserName(_ context.Context, userID string) string {
	return "name-" + userID
}

func (f *fakeGateway) Permalink(_ context.Context, channel, ts string) (string, error) {
	if f.noLinks {
		return "", errors.New("ratelimited")
	}
	return "https://example.slack.com/archives/" + channel + "/p" + strings.ReplaceAll(ts, ".", ""), nil
}

func (f *fakeGateway) ChannelMembers(context.Context, string) ([]string, error) {
	return f.members, nil
}

func (f *fakeGateway) OpenView(_ context.Context, _ string, view slack.ModalViewRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.views = append(f.views, view)
	return nil
}

func (f *fakeGateway) postsTo(channel string) []Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Message
	for _, p := range f.posts {
		if p.Channel == channel {
			out = append(out, p)
		}
	}
	return out
}

func (f *fakeGateway) postsContaining(substr string) []Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Message
	for _, p := range f.posts {
		if strings.Contains(p.Text, substr) {
			out = append(out, p)
		}
	}
	return out
}

type brokenStore struct{}

func (brokenStore) Append(context.Context, db.Record) error {
	return db.ErrStoreUnavailable
}

func (brokenStore) Records(context.Context, db.Kind) ([]db.Record, error) {
	return nil, db.ErrStoreUnavailable
}

func (brokenStore) Columns(context.Context, db.Kind) ([]string, error) {
	return nil, db.ErrStoreUnavailable
}

type testEnv struct {
	engine *Engine
	gw     *fakeGateway
	mem    *db.Memory
	clock  time.Time
}

func (env *testEnv) advance(d time.Duration) {
	env.clock = env.clock.Add(d)
}

func newTestEnv(t *testing.T, store func(*db.Memory) Recorder) *testEnv {
	t.Helper()
	mem, err := db.NewMemory(50)
	require.NoError(t, err)
	env := &testEnv{
		gw:    &fakeGateway{},
		mem:   mem,
		clock: time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC),
	}

	var rec Recorder = mem
	if store != nil {
		rec = store(mem)
	}
	env.engine = NewEngine(Settings{
		ChannelID:         "C1",
		EscalationChannel: "leads",
		EscalationEmoji:   "sos",
		MonitorEmoji:      "clock4",
		ResponseDeadline:  "16:00",
		StandupUsers:      []string{"U1", "U2"},
		Location:          time.UTC,
	}, env.gw, rec, newTestTracker(t), logger.Discard())

	now := func() time.Time { return env.clock }
	env.engine.now = now
	env.engine.tracker.now = now
	return env
}
