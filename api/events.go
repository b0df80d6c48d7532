package api

import (
	"context"
	"errors"
	"io"
	"net/http"

	"StandupPulse/standup"

	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
)

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, ok := h.readRequest(w, r)
	if !ok {
		return
	}

	payload, err := ParsePayload(r.Header.Get("Content-Type"), body)
	if err != nil {
		h.log.Error("Dropping unparseable Slack payload", "err", err)
		w.WriteHeader(http.StatusOK)
		return
	}

	switch p := payload.(type) {
	case URLVerification:
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte(p.Challenge))
		return
	case InteractiveAction:
		h.handleInteraction(r.Context(), w, p.Callback)
		return
	case MessagePosted:
		if h.firstDelivery(r.Context(), p.EventID) {
			h.spawn("message", func(ctx context.Context) error { return h.handleMessage(ctx, p.Event) })
		} else {
			h.log.Debug("Duplicate event ignored", "id", p.EventID)
		}
	case ReactionAdded:
		if h.firstDelivery(r.Context(), p.EventID) {
			h.spawn("reaction", func(ctx context.Context) error { return h.handleReaction(ctx, p.Event) })
		} else {
			h.log.Debug("Duplicate event ignored", "id", p.EventID)
		}
	case Unknown:
		h.log.Debug("Ignoring unhandled payload", "type", p.Type)
	}

	w.WriteHeader(http.StatusOK)
}

// readRequest reads a size-limited body and checks its Slack signature,
// answering the request itself when either fails.
func (h *Handler) readRequest(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		http.Error(w, "Unable to read request body", http.StatusBadRequest)
		return nil, false
	}

	if h.opts.SigningSecret != "" {
		if err := verifySignature(r.Header, body, h.opts.SigningSecret); err != nil {
			h.log.Warn("Rejected request with bad signature", "err", err)
			http.Error(w, "Invalid signature", http.StatusUnauthorized)
			return nil, false
		}
	}
	return body, true
}

func verifySignature(header http.Header, body []byte, secret string) error {
	sv, err := slack.NewSecretsVerifier(header, secret)
	if err != nil {
		return err
	}
	if _, err := sv.Write(body); err != nil {
		return err
	}
	return sv.Ensure()
}

// handleMessage routes replies in a tracked standup thread, including replies
// also sent to the channel. Bot posts, edits and other subtypes, top-level
// messages and foreign threads are dropped.
func (h *Handler) handleMessage(ctx context.Context, ev *slackevents.MessageEvent) error {
	if ev.BotID != "" || ev.User == "" || ev.User == h.opts.BotUserID {
		return nil
	}
	if ev.SubType != "" && ev.SubType != slack.MsgSubTypeThreadBroadcast {
		return nil
	}
	if ev.ThreadTimeStamp == "" || ev.ThreadTimeStamp == ev.TimeStamp {
		return nil
	}
	if !h.engine.Tracker().IsStandup(ev.ThreadTimeStamp) {
		return nil
	}

	return h.engine.HandleThreadReply(ctx, standup.ThreadReply{
		Channel:   ev.Channel,
		StandupID: ev.ThreadTimeStamp,
		UserID:    ev.User,
		MessageTS: ev.TimeStamp,
		Text:      ev.Text,
	})
}

// handleReaction treats reactions on a standup prompt as quick status and
// escalate/monitor reactions on a follow-up as the user's decision.
func (h *Handler) handleReaction(ctx context.Context, ev *slackevents.ReactionAddedEvent) error {
	if ev.User == "" || ev.User == h.opts.BotUserID {
		return nil
	}
	ts := ev.Item.Timestamp

	if h.engine.Tracker().IsStandup(ts) {
		return h.engine.HandleQuickReaction(ctx, standup.QuickReaction{
			Channel:   ev.Item.Channel,
			StandupID: ts,
			UserID:    ev.User,
			Reaction:  ev.Reaction,
		})
	}

	var decision standup.Decision
	switch {
	case h.engine.IsEscalateReaction(ev.Reaction):
		decision = standup.DecisionEscalate
	case h.engine.IsMonitorReaction(ev.Reaction):
		decision = standup.DecisionMonitor
	default:
		return nil
	}
	return h.decide(ctx, ts, ev.User, decision)
}

func (h *Handler) decide(ctx context.Context, messageTS, userID string, d standup.Decision) error {
	_, err := h.engine.Resolve(ctx, messageTS, userID, d)
	switch {
	case errors.Is(err, standup.ErrNoPendingFollowUp):
		h.log.Debug("No pending follow-up for decision", "message", messageTS, "user", userID)
		return nil
	case errors.Is(err, standup.ErrNotFollowUpOwner):
		h.log.Info("Ignoring decision from someone else", "message", messageTS, "user", userID)
		return nil
	}
	return err
}
