package standup

import (
	"context"
	"fmt"
	"strings"
	"time"

	"StandupPulse/db"
)

// SendCheckin posts a personal standup prompt to the user's DM and tracks it
// like the channel standup, with the user as the only expected responder.
func (e *Engine) SendCheckin(ctx context.Context, userID string) (string, error) {
	msg := standupPrompt(e.deadlineLabel(), e.tracker.reactionsSnapshot())
	msg.Channel = userID
	ts, err := e.gw.Post(ctx, msg)
	if err != nil {
		return "", fmt.Errorf("SendCheckin: failed to post prompt to %s: %w", userID, err)
	}
	e.tracker.StartStandup(ts, userID, []string{userID})
	e.log.Info("Check-in prompt posted", "user", userID, "standup", ts)
	return ts, nil
}

// UserBlockers returns the blocker reports filed by userID, oldest first.
func (e *Engine) UserBlockers(ctx context.Context, userID string) ([]db.Record, error) {
	reader, ok := e.store.(RecordReader)
	if !ok {
		return nil, fmt.Errorf("UserBlockers: %w", db.ErrStoreUnavailable)
	}
	all, err := reader.Records(ctx, db.KindBlocker)
	if err != nil {
		return nil, fmt.Errorf("UserBlockers: %w", err)
	}
	var mine []db.Record
	for _, r := range all {
		if r.UserID == userID {
			mine = append(mine, r)
		}
	}
	return mine, nil
}

// SendBlockerList DMs userID the blockers they have reported.
func (e *Engine) SendBlockerList(ctx context.Context, userID string) error {
	blockers, err := e.UserBlockers(ctx, userID)
	if err != nil {
		e.log.Error("Failed to list blockers", "user", userID, "err", err)
		e.reply(ctx, userID, "", fmt.Sprintf("Sorry <@%s>, I couldn't load your blockers right now. Please try again.", userID))
		return err
	}
	e.reply(ctx, userID, "", blockerListText(blockers, e.cfg.Location))
	return nil
}

func blockerListText(blockers []db.Record, loc *time.Location) string {
	if len(blockers) == 0 {
		return "✅ You have no blockers on record. Use `/blocked` to report one."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "🚧 *Your blockers* (%d)\n", len(blockers))
	for _, r := range blockers {
		fmt.Fprintf(&b, "\n• *%s* (urgency: %s, %s)", r.BlockerDescription, r.Urgency, r.Timestamp.In(loc).Format("2006-01-02"))
		if r.Objective != "" {
			fmt.Fprintf(&b, "\n   KR: %s", r.Objective)
		}
	}
	return b.String()
}
