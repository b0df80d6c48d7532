package standup

import (
	"context"
	"fmt"
	"strings"

	"StandupPulse/db"
	"StandupPulse/utils"

	"github.com/slack-go/slack"
)

// SendHealthCheck posts the "how are you feeling" prompt.
func (e *Engine) SendHealthCheck(ctx context.Context) (string, error) {
	return e.SendHealthCheckTo(ctx, e.cfg.ChannelID)
}

// SendHealthCheckTo posts the health check prompt to channel.
func (e *Engine) SendHealthCheckTo(ctx context.Context, channel string) (string, error) {
	msg := healthCheckPrompt()
	msg.Channel = channel
	ts, err := e.gw.Post(ctx, msg)
	if err != nil {
		return "", fmt.Errorf("SendHealthCheck: failed to post prompt: %w", err)
	}
	e.log.Info("Health check posted", "channel", channel, "message", ts)
	return ts, nil
}

// HealthClick is a press of one of the health-check mood buttons.
type HealthClick struct {
	Channel   string
	MessageTS string
	UserID    string
	UserName  string
	ActionID  string
	ActionTS  string
}

// HandleHealthResponse stores the mood and replies in the prompt's thread.
func (e *Engine) HandleHealthResponse(ctx context.Context, c HealthClick) error {
	value, ok := HealthValue(c.ActionID)
	if !ok {
		return fmt.Errorf("HandleHealthResponse: unknown action %q", c.ActionID)
	}
	name := c.UserName
	if name == "" {
		name = e.gw.UserName(ctx, c.UserID)
	}

	rec := db.Record{
		Kind:        db.KindHealth,
		UserID:      c.UserID,
		UserName:    name,
		Response:    value,
		Timestamp:   e.now(),
		Fingerprint: utils.Fingerprint(string(db.KindHealth), c.MessageTS, c.UserID, c.ActionTS),
	}
	if err := e.store.Append(ctx, rec); err != nil {
		e.log.Error("Failed to store health check response", "user", c.UserID, "err", err)
		e.reply(ctx, c.Channel, c.MessageTS, fmt.Sprintf(saveFailureText, c.UserID))
		return nil
	}

	e.reply(ctx, c.Channel, c.MessageTS, fmt.Sprintf("<@%s> %s", c.UserID, healthReplies[value]))
	return nil
}

// OpenBlockerForm shows the blocker modal. The confirmation later goes to
// channel, in threadTS's thread when set.
func (e *Engine) OpenBlockerForm(ctx context.Context, triggerID, userID, channel, threadTS string) error {
	if channel == "" {
		channel = e.cfg.ChannelID
	}
	if err := e.gw.OpenView(ctx, triggerID, blockerModal(userID, channel, threadTS)); err != nil {
		return fmt.Errorf("OpenBlockerForm: %w", err)
	}
	return nil
}

// BlockerReport is a submitted blocker form.
type BlockerReport struct {
	UserID      string
	UserName    string
	Description string
	Objective   string
	Urgency     string
	Notes       string
	Channel     string
	ThreadTS    string
	ViewID      string
}

// ParseBlockerSubmission reads the modal's state. The returned map holds
// per-block validation messages and is empty when the form is valid.
func ParseBlockerSubmission(view slack.View) (BlockerReport, map[string]string) {
	var values map[string]map[string]slack.BlockAction
	if view.State != nil {
		values = view.State.Values
	}
	text := func(block, action string) string {
		if b, ok := values[block]; ok {
			if a, ok := b[action]; ok {
				if a.SelectedOption.Value != "" {
					return strings.TrimSpace(a.SelectedOption.Value)
				}
				return strings.TrimSpace(a.Value)
			}
		}
		return ""
	}

	r := BlockerReport{
		Description: text(BlockDescription, InputDescription),
		Objective:   text(BlockObjective, InputObjective),
		Urgency:     strings.ToLower(text(BlockUrgency, InputUrgency)),
		Notes:       text(BlockNotes, InputNotes),
		ViewID:      view.ID,
	}
	if ch, ts, ok := strings.Cut(view.PrivateMetadata, "|"); ok {
		r.Channel, r.ThreadTS = ch, ts
	} else {
		r.Channel = view.PrivateMetadata
	}

	problems := map[string]string{}
	if r.Description == "" {
		problems[BlockDescription] = "Please describe what is blocking you."
	}
	if !validUrgency(r.Urgency) {
		problems[BlockUrgency] = "Pick one of: " + strings.Join(Urgencies, ", ") + "."
	}
	return r, problems
}

func validUrgency(u string) bool {
	for _, v := range Urgencies {
		if u == v {
			return true
		}
	}
	return false
}

// SubmitBlocker stores a validated blocker report and tells the user how it went.
func (e *Engine) SubmitBlocker(ctx context.Context, r BlockerReport) error {
	if r.Description == "" || !validUrgency(r.Urgency) {
		return fmt.Errorf("SubmitBlocker: invalid report from %s", r.UserID)
	}
	if r.UserName == "" {
		r.UserName = e.gw.UserName(ctx, r.UserID)
	}
	channel := r.Channel
	if channel == "" {
		channel = e.cfg.ChannelID
	}

	rec := db.Record{
		Kind:               db.KindBlocker,
		UserID:             r.UserID,
		UserName:           r.UserName,
		BlockerDescription: r.Description,
		Objective:          r.Objective,
		Urgency:            r.Urgency,
		Notes:              r.Notes,
		Timestamp:          e.now(),
		Fingerprint:        utils.Fingerprint(string(db.KindBlocker), r.UserID, r.ViewID, r.Description),
	}
	if err := e.store.Append(ctx, rec); err != nil {
		e.log.Error("Failed to store blocker", "user", r.UserID, "err", err)
		e.reply(ctx, channel, r.ThreadTS, fmt.Sprintf(saveFailureText, r.UserID))
		return fmt.Errorf("SubmitBlocker: %w", err)
	}

	alert := blockerAlertText(r)
	if _, err := e.gw.Post(ctx, Message{Channel: channelRef(e.cfg.EscalationChannel), Text: alert}); err != nil {
		e.log.Warn("Failed to notify escalation channel of blocker", "user", r.UserID, "err", err)
	}

	e.reply(ctx, channel, r.ThreadTS, fmt.Sprintf("✅ Thanks <@%s>, your blocker has been recorded (urgency: %s). The team has been notified.", r.UserID, r.Urgency))
	e.log.Info("Blocker recorded", "user", r.UserID, "urgency", r.Urgency)
	return nil
}
