package standup

import (
	"context"

	"StandupPulse/db"

	"github.com/slack-go/slack"
)

// Message is one chat post. ThreadTS is empty for top-level posts.
type Message struct {
	Channel  string
	ThreadTS string
	Text     string
	Blocks   []slack.Block
}

// Gateway is the subset of Slack the workflow needs.
type Gateway interface {
	Post(ctx context.Context, msg Message) (string, error)
	AddReaction(ctx context.Context, channel, ts, name string) error
	UserName(ctx context.Context, userID string) string
	Permalink(ctx context.Context, channel, ts string) (string, error)
	ChannelMembers(ctx context.Context, channel string) ([]string, error)
	OpenView(ctx context.Context, triggerID string, view slack.ModalViewRequest) error
}

// Recorder persists records. db.Resilient is the production implementation.
type Recorder interface {
	Append(ctx context.Context, rec db.Record) error
}

// RecordReader is implemented by stores that can list what they hold.
type RecordReader interface {
	Records(ctx context.Context, kind db.Kind) ([]db.Record, error)
}

// Analyzer adds an optional short commentary to a standup reply.
type Analyzer interface {
	Analyze(ctx context.Context, text string) (string, error)
}
