package standup

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"StandupPulse/db"
	"StandupPulse/utils"

	"github.com/inconshreveable/log15/v3"
)

type Settings struct {
	ChannelID         string
	EscalationChannel string
	EscalationEmoji   string
	MonitorEmoji      string
	ResponseDeadline  string
	StandupUsers      []string
	Location          *time.Location
}

// Engine drives the standup workflow: prompts, answers, follow-ups and escalation.
type Engine struct {
	cfg      Settings
	gw       Gateway
	store    Recorder
	tracker  *Tracker
	analyzer Analyzer
	log      log15.Logger
	now      func() time.Time
}

func NewEngine(cfg Settings, gw Gateway, store Recorder, tracker *Tracker, log log15.Logger) *Engine {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &Engine{
		cfg:     cfg,
		gw:      gw,
		store:   store,
		tracker: tracker,
		log:     log,
		now:     time.Now,
	}
}

// WithAnalyzer enables commentary on thread replies.
func (e *Engine) WithAnalyzer(a Analyzer) *Engine {
	e.analyzer = a
	return e
}

func (e *Engine) Tracker() *Tracker {
	return e.tracker
}

// IsEscalateReaction reports whether glyph means "escalate" on a follow-up.
func (e *Engine) IsEscalateReaction(glyph string) bool {
	return glyph == e.cfg.EscalationEmoji
}

func (e *Engine) IsMonitorReaction(glyph string) bool {
	return glyph == e.cfg.MonitorEmoji
}

// SendStandup posts the daily prompt and starts tracking it.
func (e *Engine) SendStandup(ctx context.Context) (string, error) {
	roster, err := e.roster(ctx)
	if err != nil {
		e.log.Warn("Could not load standup roster, reminders disabled for this standup", "err", err)
	}

	msg := standupPrompt(e.deadlineLabel(), e.tracker.reactionsSnapshot())
	msg.Channel = e.cfg.ChannelID
	ts, err := e.gw.Post(ctx, msg)
	if err != nil {
		return "", fmt.Errorf("SendStandup: failed to post prompt: %w", err)
	}

	e.tracker.StartStandup(ts, e.cfg.ChannelID, roster)
	e.log.Info("Standup prompt posted", "standup", ts, "expected", len(roster))
	return ts, nil
}

func (e *Engine) roster(ctx context.Context) ([]string, error) {
	if len(e.cfg.StandupUsers) > 0 {
		return e.cfg.StandupUsers, nil
	}
	return e.gw.ChannelMembers(ctx, e.cfg.ChannelID)
}

func (e *Engine) deadlineLabel() string {
	now := e.now().In(e.cfg.Location)
	t, err := time.Parse("15:04", e.cfg.ResponseDeadline)
	if err != nil {
		return e.cfg.ResponseDeadline
	}
	at := time.Date(now.Year(), now.Month(), now.Day(), t.Hour(), t.Minute(), 0, 0, e.cfg.Location)
	return at.Format("3:04 PM MST")
}

// ThreadReply is a user's message in a standup thread.
type ThreadReply struct {
	Channel   string
	StandupID string
	UserID    string
	MessageTS string
	Text      string
}

// HandleThreadReply records a free-text standup answer and either thanks the
// user or asks whether they want help.
func (e *Engine) HandleThreadReply(ctx context.Context, r ThreadReply) error {
	log := e.log.New("standup", r.StandupID, "user", r.UserID)
	if !e.tracker.IsStandup(r.StandupID) {
		return fmt.Errorf("HandleThreadReply: %w", ErrUnknownStandup)
	}

	name := e.gw.UserName(ctx, r.UserID)
	resp, err := e.tracker.RecordThreadResponse(r.StandupID, r.UserID, name, r.MessageTS, r.Text)
	if err != nil {
		return fmt.Errorf("HandleThreadReply: %w", err)
	}

	rec := db.Record{
		Kind:        db.KindStandup,
		UserID:      r.UserID,
		UserName:    name,
		Response:    r.Text,
		Today:       resp.Parsed.Today,
		OnTrack:     string(resp.Parsed.OnTrack),
		Blockers:    resp.Parsed.Blockers,
		Timestamp:   resp.Timestamp,
		Fingerprint: utils.Fingerprint(string(db.KindStandup), r.StandupID, r.UserID, r.MessageTS),
	}
	if err := e.store.Append(ctx, rec); err != nil {
		log.Error("Failed to store standup response", "err", err)
		e.reply(ctx, r.Channel, r.StandupID, fmt.Sprintf(saveFailureText, r.UserID))
	}

	if !resp.Parsed.NeedsFollowUp() {
		text := fmt.Sprintf("Thanks <@%s> for your standup update! ✅", r.UserID)
		if note := e.analyze(ctx, r.Text); note != "" {
			text += "\n\n🤖 " + note
		}
		e.reply(ctx, r.Channel, r.StandupID, text)
		return nil
	}

	return e.askForHelp(ctx, FollowUp{
		Key:       FollowUpKey(FromThread, r.UserID, r.StandupID),
		Channel:   r.Channel,
		StandupID: r.StandupID,
		UserID:    r.UserID,
		UserName:  name,
		Origin:    FromThread,
		Parsed:    resp.Parsed,
	})
}

func (e *Engine) analyze(ctx context.Context, text string) string {
	if e.analyzer == nil {
		return ""
	}
	note, err := e.analyzer.Analyze(ctx, text)
	if err != nil {
		e.log.Debug("Analysis skipped", "err", err)
		return ""
	}
	return strings.TrimSpace(note)
}

// askForHelp posts the escalate-or-monitor question once per key.
func (e *Engine) askForHelp(ctx context.Context, fu FollowUp) error {
	log := e.log.New("standup", fu.StandupID, "user", fu.UserID, "origin", fu.Origin)
	if !e.tracker.ReserveFollowUp(fu.Key) {
		log.Info("Follow-up already sent, skipping")
		return nil
	}

	msg := followUpMessage(fu, e.cfg.EscalationEmoji, e.cfg.MonitorEmoji)
	msg.Channel, msg.ThreadTS = fu.Channel, fu.StandupID
	ts, err := e.gw.Post(ctx, msg)
	if err != nil {
		e.tracker.ReleaseFollowUp(fu.Key)
		return fmt.Errorf("askForHelp: failed to post follow-up: %w", err)
	}

	fu.MessageTS = ts
	fu.CreatedAt = e.now()
	e.tracker.AttachFollowUp(fu)

	for _, glyph := range []string{e.cfg.EscalationEmoji, e.cfg.MonitorEmoji} {
		if err := e.gw.AddReaction(ctx, fu.Channel, ts, glyph); err != nil {
			log.Warn("Failed to pre-add follow-up reaction", "reaction", glyph, "err", err)
		}
	}
	log.Info("Follow-up sent", "message", ts, "state", fu.PendingState())
	return nil
}

// QuickReaction is a status reaction on the standup prompt itself.
type QuickReaction struct {
	Channel   string
	StandupID string
	UserID    string
	Reaction  string
}

// HandleQuickReaction records the first reaction a user leaves on the prompt.
func (e *Engine) HandleQuickReaction(ctx context.Context, q QuickReaction) error {
	log := e.log.New("standup", q.StandupID, "user", q.UserID, "reaction", q.Reaction)
	if _, ok := e.tracker.StatusFor(q.Reaction); !ok {
		log.Debug("Ignoring unmapped reaction")
		return nil
	}

	name := e.gw.UserName(ctx, q.UserID)
	resp, created, err := e.tracker.RecordQuickResponse(q.StandupID, q.UserID, q.Reaction, name)
	if err != nil {
		return fmt.Errorf("HandleQuickReaction: %w", err)
	}
	if !created {
		e.reply(ctx, q.Channel, q.StandupID, fmt.Sprintf("<@%s>, you've already submitted your status for today (%s). Thanks!", q.UserID, quickLabels[resp.Status]))
		return nil
	}

	rec := db.Record{
		Kind:        db.KindQuick,
		UserID:      q.UserID,
		UserName:    name,
		Response:    string(resp.Status),
		Timestamp:   resp.Timestamp,
		Fingerprint: utils.Fingerprint(string(db.KindQuick), q.StandupID, q.UserID),
	}
	if err := e.store.Append(ctx, rec); err != nil {
		log.Error("Failed to store quick response", "err", err)
		e.reply(ctx, q.Channel, q.StandupID, fmt.Sprintf(saveFailureText, q.UserID))
	}

	switch resp.Status {
	case QuickOnTrack:
		e.reply(ctx, q.Channel, q.StandupID, fmt.Sprintf("<@%s>: All good! ✅", q.UserID))
	case QuickMinorIssues:
		e.reply(ctx, q.Channel, q.StandupID, fmt.Sprintf("<@%s>: Minor issues noted ⚠️ Reply in the thread if you want to share details.", q.UserID))
	case QuickNeedsHelp:
		return e.askForHelp(ctx, FollowUp{
			Key:       FollowUpKey(FromReaction, q.UserID, q.StandupID),
			Channel:   q.Channel,
			StandupID: q.StandupID,
			UserID:    q.UserID,
			UserName:  name,
			Origin:    FromReaction,
			Status:    resp.Status,
		})
	}
	return nil
}

// Resolve applies a user's decision to the follow-up posted as messageTS.
// Only the user the follow-up was addressed to may decide.
func (e *Engine) Resolve(ctx context.Context, messageTS, actorID string, d Decision) (FollowUpState, error) {
	fu, ok := e.tracker.FindFollowUpByMessage(messageTS)
	if !ok {
		return "", fmt.Errorf("Resolve %s: %w", messageTS, ErrNoPendingFollowUp)
	}
	if fu.UserID != actorID {
		return "", fmt.Errorf("Resolve %s by %s: %w", messageTS, actorID, ErrNotFollowUpOwner)
	}
	return e.resolve(ctx, messageTS, d)
}

func (e *Engine) resolve(ctx context.Context, messageTS string, d Decision) (FollowUpState, error) {
	fu, err := e.tracker.TakeFollowUp(messageTS)
	if err != nil {
		return "", fmt.Errorf("Resolve: %w", err)
	}
	log := e.log.New("standup", fu.StandupID, "user", fu.UserID, "followup", messageTS)

	switch d {
	case DecisionEscalate:
		if err := e.escalate(ctx, fu); err != nil {
			e.tracker.RestoreFollowUp(fu)
			return "", err
		}
		log.Info("Follow-up escalated", "state", StateEscalated)
		return StateEscalated, nil
	case DecisionMonitor:
		e.reply(ctx, fu.Channel, fu.StandupID, fmt.Sprintf("Got it <@%s>, we'll keep an eye on this. Please keep your mentor informed of any updates! 🚧", fu.UserID))
		log.Info("Follow-up set to monitor", "state", StateMonitored)
		return StateMonitored, nil
	}

	e.tracker.RestoreFollowUp(fu)
	return "", fmt.Errorf("Resolve: unknown decision %q", d)
}

func (e *Engine) escalate(ctx context.Context, fu FollowUp) error {
	permalink, err := e.gw.Permalink(ctx, fu.Channel, fu.StandupID)
	if err != nil {
		e.log.Warn("Could not fetch thread permalink", "standup", fu.StandupID, "err", err)
	}

	text := escalationText(fu, permalink, e.now().In(e.cfg.Location))
	if _, err := e.gw.Post(ctx, Message{Channel: channelRef(e.cfg.EscalationChannel), Text: text}); err != nil {
		return fmt.Errorf("escalate: failed to post to %s: %w", e.cfg.EscalationChannel, err)
	}

	e.reply(ctx, fu.Channel, fu.StandupID, fmt.Sprintf("<@%s>, I've escalated this to %s. Someone will reach out shortly. 🆘", fu.UserID, channelMention(e.cfg.EscalationChannel)))
	return nil
}

// channelRef accepts either a channel id or a bare channel name.
func channelRef(ch string) string {
	if ch == "" || strings.HasPrefix(ch, "#") {
		return ch
	}
	if len(ch) > 1 && (ch[0] == 'C' || ch[0] == 'G') && strings.ToUpper(ch) == ch {
		return ch
	}
	return "#" + ch
}

func channelMention(ch string) string {
	ref := channelRef(ch)
	if strings.HasPrefix(ref, "#") {
		return ref
	}
	return "<#" + ref + ">"
}

// RemindMissing nudges every expected user who has not answered yet, once per
// call. Nothing is sent after the response deadline.
func (e *Engine) RemindMissing(ctx context.Context) int {
	if utils.PastDeadline(e.now(), e.cfg.ResponseDeadline, e.cfg.Location) {
		e.log.Debug("Past response deadline, no reminders")
		return 0
	}

	now := e.now().In(e.cfg.Location)
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, e.cfg.Location)

	sent := 0
	for _, m := range e.tracker.MissingResponders(startOfDay) {
		text := fmt.Sprintf("<@%s> ⏰ Friendly reminder: please share your standup update in this thread by %s.", m.UserID, e.deadlineLabel())
		if _, err := e.gw.Post(ctx, Message{Channel: m.Channel, ThreadTS: m.StandupID, Text: text}); err != nil {
			e.log.Warn("Failed to send reminder", "standup", m.StandupID, "user", m.UserID, "err", err)
			continue
		}
		sent++
	}
	if sent > 0 {
		e.log.Info("Reminders sent", "count", sent)
	}
	return sent
}

// AutoEscalate escalates follow-ups that have waited longer than after.
func (e *Engine) AutoEscalate(ctx context.Context, after time.Duration) int {
	n := 0
	for _, fu := range e.tracker.StaleFollowUps(e.now().Add(-after)) {
		if _, err := e.resolve(ctx, fu.MessageTS, DecisionEscalate); err != nil {
			if !errors.Is(err, ErrNoPendingFollowUp) {
				e.log.Error("Auto-escalation failed", "followup", fu.MessageTS, "err", err)
			}
			continue
		}
		n++
	}
	return n
}

// Evict drops standups older than retention.
func (e *Engine) Evict(retention time.Duration) int {
	n := e.tracker.EvictBefore(e.now().Add(-retention))
	if n > 0 {
		e.log.Info("Evicted old standups", "count", n)
	}
	return n
}

func (e *Engine) reply(ctx context.Context, channel, threadTS, text string) {
	if _, err := e.gw.Post(ctx, Message{Channel: channel, ThreadTS: threadTS, Text: text}); err != nil {
		e.log.Error("Failed to post reply", "channel", channel, "thread", threadTS, "err", err)
	}
}

// Notify posts text to channel, inside threadTS's thread when set.
func (e *Engine) Notify(ctx context.Context, channel, threadTS, text string) {
	e.reply(ctx, channel, threadTS, text)
}
