package slack

import (
	"context"
	"errors"
	"fmt"

	"StandupPulse/standup"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/inconshreveable/log15/v3"
	goslack "github.com/slack-go/slack"
)

// API is the subset of *slack.Client the gateway calls.
type API interface {
	AuthTestContext(ctx context.Context) (*goslack.AuthTestResponse, error)
	PostMessageContext(ctx context.Context, channelID string, options ...goslack.MsgOption) (string, string, error)
	AddReactionContext(ctx context.Context, name string, item goslack.ItemRef) error
	GetUserInfoContext(ctx context.Context, user string) (*goslack.User, error)
	GetPermalinkContext(ctx context.Context, params *goslack.PermalinkParameters) (string, error)
	GetUsersInConversationContext(ctx context.Context, params *goslack.GetUsersInConversationParameters) ([]string, string, error)
	OpenViewContext(ctx context.Context, triggerID string, view goslack.ModalViewRequest) (*goslack.ViewResponse, error)
}

// Client delivers bot output to Slack.
type Client struct {
	api       API
	botUserID string
	names     *lru.Cache[string, string]
	log       log15.Logger
}

func New(token string, log log15.Logger) (*Client, error) {
	return NewClient(goslack.New(token), log)
}

func NewClient(api API, log log15.Logger) (*Client, error) {
	names, err := lru.New[string, string](512)
	if err != nil {
		return nil, err
	}
	return &Client{api: api, names: names, log: log}, nil
}

// Connect checks the token and learns the bot's own user id.
func (c *Client) Connect(ctx context.Context) error {
	auth, err := c.api.AuthTestContext(ctx)
	if err != nil {
		return fmt.Errorf("Connect: auth.test failed: %w", err)
	}
	c.botUserID = auth.UserID
	c.log.Info("Connected to Slack", "team", auth.Team, "bot", auth.UserID)
	return nil
}

func (c *Client) BotUserID() string {
	return c.botUserID
}

func (c *Client) Post(ctx context.Context, msg standup.Message) (string, error) {
	opts := []goslack.MsgOption{goslack.MsgOptionText(msg.Text, false)}
	if len(msg.Blocks) > 0 {
		opts = append(opts, goslack.MsgOptionBlocks(msg.Blocks...))
	}
	if msg.ThreadTS != "" {
		opts = append(opts, goslack.MsgOptionTS(msg.ThreadTS))
	}

	_, ts, err := c.api.PostMessageContext(ctx, msg.Channel, opts...)
	if err != nil {
		return "", fmt.Errorf("Post: chat.postMessage to %s: %w", msg.Channel, err)
	}
	return ts, nil
}

func (c *Client) AddReaction(ctx context.Context, channel, ts, name string) error {
	err := c.api.AddReactionContext(ctx, name, goslack.NewRefToMessage(channel, ts))
	var slackErr goslack.SlackErrorResponse
	if errors.As(err, &slackErr) && slackErr.Err == "already_reacted" {
		return nil
	}
	if err != nil {
		return fmt.Errorf("AddReaction %s: %w", name, err)
	}
	return nil
}

// UserName returns a display name, falling back to the id when lookup fails.
func (c *Client) UserName(ctx context.Context, userID string) string {
	if name, ok := c.names.Get(userID); ok {
		return name
	}
	user, err := c.api.GetUserInfoContext(ctx, userID)
	if err != nil {
		c.log.Warn("User lookup failed", "user", userID, "err", err)
		return userID
	}

	name := user.Profile.DisplayName
	if name == "" {
		name = user.RealName
	}
	if name == "" {
		name = user.Name
	}
	if name == "" {
		name = userID
	}
	c.names.Add(userID, name)
	return name
}

func (c *Client) Permalink(ctx context.Context, channel, ts string) (string, error) {
	link, err := c.api.GetPermalinkContext(ctx, &goslack.PermalinkParameters{Channel: channel, Ts: ts})
	if err != nil {
		return "", fmt.Errorf("Permalink: %w", err)
	}
	return link, nil
}

// ChannelMembers lists the channel's members, without the bot itself.
func (c *Client) ChannelMembers(ctx context.Context, channel string) ([]string, error) {
	var members []string
	params := &goslack.GetUsersInConversationParameters{ChannelID: channel, Limit: 200}
	for {
		page, cursor, err := c.api.GetUsersInConversationContext(ctx, params)
		if err != nil {
			return nil, fmt.Errorf("ChannelMembers %s: %w", channel, err)
		}
		for _, id := range page {
			if id != c.botUserID {
				members = append(members, id)
			}
		}
		if cursor == "" {
			return members, nil
		}
		params.Cursor = cursor
	}
}

func (c *Client) OpenView(ctx context.Context, triggerID string, view goslack.ModalViewRequest) error {
	if _, err := c.api.OpenViewContext(ctx, triggerID, view); err != nil {
		return fmt.Errorf("OpenView: %w", err)
	}
	return nil
}
