package slack

import (
	"context"
	"errors"
	"testing"

	"StandupPulse/logger"
	"StandupPulse/standup"

	goslack "github.com/slack-go/slack"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAPI struct {
	posted      []string
	userLookups int
	reactErr    error
	pages       [][]string
}

func (f *fakeAPI) AuthTestContext(context.Context) (*goslack.AuthTestResponse, error) {
	return &goslack.AuthTestResponse{UserID: "UBOT", Team: "acme"}, nil
}

func (f *fakeAPI) PostMessageContext(_ context.Context, channelID string, _ ...goslack.MsgOption) (string, string, error) {
	f.posted = append(f.posted, channelID)
	return channelID, "111.222", nil
}

func (f *fakeAPI) AddReactionContext(context.Context, string, goslack.ItemRef) error {
	return f.reactErr
}

func (f *fakeAPI) GetUserInfoContext(_ context.Context, user string) (*goslack.User, error) {
	f.userLookups++
	if user == "UGONE" {
		return nil, errors.New("user_not_found")
	}
	u := &goslack.User{ID: user, Name: "ana", RealName: "Ana Lima"}
	return u, nil
}

func (f *fakeAPI) GetPermalinkContext(_ context.Context, p *goslack.PermalinkParameters) (string, error) {
	return "https://acme.slack.com/archives/" + p.Channel + "/p" + p.Ts, nil
}

func (f *fakeAPI) GetUsersInConversationContext(_ context.Context, p *goslack.GetUsersInConversationParameters) ([]string, string, error) {
	if p.Cursor == "" {
		return f.pages[0], "next", nil
	}
	return f.pages[1], "", nil
}

func (f *fakeAPI) OpenViewContext(context.Context, string, goslack.ModalViewRequest) (*goslack.ViewResponse, error) {
	return &goslack.ViewResponse{}, nil
}

func newTestClient(t *testing.T, api *fakeAPI) *Client {
	t.Helper()
	c, err := NewClient(api, logger.Discard())
	require.NoError(t, err)
	require.NoError(t, c.Connect(context.Background()))
	return c
}

func TestPostReturnsMessageTS(t *testing.T) {
	api := &fakeAPI{}
	ts, err := newTestClient(t, api).Post(context.Background(), standup.Message{Channel: "C1", ThreadTS: "1.1", Text: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "111.222", ts)
	assert.Equal(t, []string{"C1"}, api.posted)
}

func TestUserNameIsCached(t *testing.T) {
	api := &fakeAPI{}
	c := newTestClient(t, api)

	assert.Equal(t, "Ana Lima", c.UserName(context.Background(), "U1"))
	assert.Equal(t, "Ana Lima", c.UserName(context.Background(), "U1"))
	assert.Equal(t, 1, api.userLookups)
	assert.Equal(t, "UGONE", c.UserName(context.Background(), "UGONE"))
}

func TestAlreadyReactedIsNotAnError(t *testing.T) {
	api := &fakeAPI{reactErr: goslack.SlackErrorResponse{Err: "already_reacted"}}
	c := newTestClient(t, api)
	assert.NoError(t, c.AddReaction(context.Background(), "C1", "1.1", "sos"))

	api.reactErr = goslack.SlackErrorResponse{Err: "invalid_name"}
	assert.Error(t, c.AddReaction(context.Background(), "C1", "1.1", "nope"))
}

func TestChannelMembersSkipsBotAndPaginates(t *testing.T) {
	api := &fakeAPI{pages: [][]string{{"U1", "UBOT"}, {"U2"}}}
	members, err := newTestClient(t, api).ChannelMembers(context.Background(), "C1")
	require.NoError(t, err)
	assert.Equal(t, []string{"U1", "U2"}, members)
}

func TestClientSatisfiesGateway(t *testing.T) {
	var _ standup.Gateway = newTestClient(t, &fakeAPI{})
}
