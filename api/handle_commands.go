package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"StandupPulse/standup"

	"github.com/slack-go/slack"
)

// HandleCommand answers slash commands. The reply is ephemeral and immediate;
// anything that talks to Slack or the store runs in the background.
func (h *Handler) HandleCommand(w http.ResponseWriter, r *http.Request) {
	body, ok := h.readRequest(w, r)
	if !ok {
		return
	}
	r.Body = io.NopCloser(bytes.NewReader(body))

	cmd, err := slack.SlashCommandParse(r)
	if err != nil || cmd.Command == "" {
		h.log.Error("Dropping unparseable slash command", "err", err)
		w.WriteHeader(http.StatusOK)
		return
	}

	log := h.log.New("command", cmd.Command, "user", cmd.UserID)
	log.Info("Slash command received", "channel", cmd.ChannelID)

	switch strings.TrimPrefix(cmd.Command, "/") {
	case "checkin":
		h.spawn("checkin", func(ctx context.Context) error {
			_, err := h.engine.SendCheckin(ctx, cmd.UserID)
			return err
		})
		writeEphemeral(w, slack.Msg{Text: "📝 I've sent you a standup prompt in a DM."})

	case "health":
		channel := cmd.ChannelID
		h.spawn("health", func(ctx context.Context) error {
			_, err := h.engine.SendHealthCheckTo(ctx, channel)
			return err
		})
		writeEphemeral(w, slack.Msg{Text: "💚 Health check on its way."})

	case "blocked":
		h.spawn("blocked", func(ctx context.Context) error {
			return h.engine.OpenBlockerForm(ctx, cmd.TriggerID, cmd.UserID, cmd.ChannelID, "")
		})
		w.WriteHeader(http.StatusOK)

	case "blocker", "blockers":
		h.spawn("blocker_list", func(ctx context.Context) error {
			return h.engine.SendBlockerList(ctx, cmd.UserID)
		})
		writeEphemeral(w, slack.Msg{Text: "🚧 I'll DM you the blockers you have reported."})

	case "help":
		writeEphemeral(w, slack.Msg{
			Text:   "Here are all available commands:",
			Blocks: slack.Blocks{BlockSet: standup.CommandHelp()},
		})

	default:
		log.Error("Unknown slash command")
		writeEphemeral(w, slack.Msg{Text: fmt.Sprintf(unknownCommandText, cmd.Command)})
	}
}

func writeEphemeral(w http.ResponseWriter, msg slack.Msg) {
	msg.ResponseType = slack.ResponseTypeEphemeral
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(msg)
}
