package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"StandupPulse/standup"

	"github.com/slack-go/slack"
)

func (h *Handler) handleInteraction(ctx context.Context, w http.ResponseWriter, cb slack.InteractionCallback) {
	switch cb.Type {
	case slack.InteractionTypeBlockActions:
		for _, action := range cb.ActionCallback.BlockActions {
			if !h.firstDelivery(ctx, "action:"+action.ActionTs+":"+cb.User.ID) {
				h.log.Debug("Duplicate action ignored", "action", action.ActionID, "user", cb.User.ID)
				continue
			}
			h.dispatchAction(cb, *action)
		}
	case slack.InteractionTypeViewSubmission:
		if cb.View.CallbackID == standup.CallbackBlockerForm {
			h.submitBlocker(ctx, w, cb)
			return
		}
		h.log.Warn("Unknown view submission", "callback", cb.View.CallbackID, "user", cb.User.ID)
	default:
		h.log.Debug("Ignoring interaction", "type", cb.Type)
	}
	w.WriteHeader(http.StatusOK)
}

func messageTS(cb slack.InteractionCallback) string {
	if cb.Message.Timestamp != "" {
		return cb.Message.Timestamp
	}
	return cb.Container.MessageTs
}

func (h *Handler) dispatchAction(cb slack.InteractionCallback, action slack.BlockAction) {
	channel, ts, user := cb.Channel.ID, messageTS(cb), cb.User.ID

	switch action.ActionID {
	case standup.ActionEscalate, standup.ActionMonitor:
		decision := standup.DecisionMonitor
		if action.ActionID == standup.ActionEscalate {
			decision = standup.DecisionEscalate
		}
		h.spawn(action.ActionID, func(ctx context.Context) error {
			fu, found := h.engine.Tracker().FindFollowUpByMessage(ts)
			_, err := h.engine.Resolve(ctx, ts, user, decision)
			if errors.Is(err, standup.ErrNotFollowUpOwner) && found {
				h.engine.Notify(ctx, channel, fu.StandupID, fmt.Sprintf(notOwnerText, user, fu.UserID))
				return nil
			}
			if errors.Is(err, standup.ErrNoPendingFollowUp) {
				h.log.Debug("Follow-up already resolved", "message", ts, "user", user)
				return nil
			}
			return err
		})

	case standup.ActionHealthGreat, standup.ActionHealthOkay, standup.ActionHealthBad:
		click := standup.HealthClick{
			Channel:   channel,
			MessageTS: ts,
			UserID:    user,
			UserName:  cb.User.Name,
			ActionID:  action.ActionID,
			ActionTS:  action.ActionTs,
		}
		h.spawn(action.ActionID, func(ctx context.Context) error {
			return h.engine.HandleHealthResponse(ctx, click)
		})

	case standup.ActionReportBlocker:
		trigger := cb.TriggerID
		h.spawn(action.ActionID, func(ctx context.Context) error {
			return h.engine.OpenBlockerForm(ctx, trigger, user, channel, ts)
		})

	default:
		h.log.Error("Unknown action", "action", action.ActionID, "user", user)
		h.spawn("unknown_action", func(ctx context.Context) error {
			h.engine.Notify(ctx, channel, ts, fmt.Sprintf(unknownActionText, user))
			return nil
		})
	}
}

// submitBlocker answers the modal synchronously: validation errors keep it
// open, a valid form closes it and is stored in the background.
func (h *Handler) submitBlocker(ctx context.Context, w http.ResponseWriter, cb slack.InteractionCallback) {
	report, problems := standup.ParseBlockerSubmission(cb.View)
	if len(problems) > 0 {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(slack.NewErrorsViewSubmissionResponse(problems))
		return
	}
	w.WriteHeader(http.StatusOK)

	if !h.firstDelivery(ctx, "view:"+cb.View.ID+":"+cb.View.Hash) {
		h.log.Debug("Duplicate blocker submission ignored", "view", cb.View.ID)
		return
	}
	report.UserID = cb.User.ID
	report.UserName = cb.User.Name
	h.spawn("blocker_form", func(ctx context.Context) error {
		return h.engine.SubmitBlocker(ctx, report)
	})
}
