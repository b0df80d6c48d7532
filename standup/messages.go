package standup

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/slack-go/slack"
)

const (
	ActionEscalate      = "escalate_help"
	ActionMonitor       = "monitor_issue"
	ActionHealthGreat   = "health_great"
	ActionHealthOkay    = "health_okay"
	ActionHealthBad     = "health_not_great"
	ActionReportBlocker = "report_blocker"

	CallbackBlockerForm = "blocker_form"

	BlockDescription = "blocker_description"
	BlockObjective   = "kr_name"
	BlockUrgency     = "urgency"
	BlockNotes       = "notes"

	InputDescription = "blocker_description_input"
	InputObjective   = "kr_name_input"
	InputUrgency     = "urgency_input"
	InputNotes       = "notes_input"
)

const saveFailureText = "Sorry <@%s>, there was an issue saving your details. Please try again."

var quickLabels = map[QuickStatus]string{
	QuickOnTrack:     "on track",
	QuickMinorIssues: "minor issues",
	QuickNeedsHelp:   "need help",
}

func mrkdwn(text string) *slack.TextBlockObject {
	return slack.NewTextBlockObject(slack.MarkdownType, text, false, false)
}

func plain(text string) *slack.TextBlockObject {
	return slack.NewTextBlockObject(slack.PlainTextType, text, true, false)
}

func standupPrompt(deadline string, reactions map[string]QuickStatus) Message {
	text := "🌞 *Good morning team! Time for the daily standup!*\n\n" +
		"Please reply to this thread with:\n\n" +
		"1️⃣ *What did you do today?*\n" +
		"2️⃣ *Are you on track to meet your goals?* (Yes/No)\n" +
		"3️⃣ *Any blockers?*\n\n" +
		"*Example:*\n• Today: Implemented cart UI\n• On Track: Yes\n• Blockers: Need final specs from design team\n\n" +
		fmt.Sprintf("<!channel> please respond by %s. Let's stay aligned! 💬", deadline)

	glyphs := make([]string, 0, len(reactions))
	for g := range reactions {
		glyphs = append(glyphs, g)
	}
	sort.Slice(glyphs, func(i, j int) bool {
		if reactions[glyphs[i]] != reactions[glyphs[j]] {
			return statusRank(reactions[glyphs[i]]) < statusRank(reactions[glyphs[j]])
		}
		return glyphs[i] < glyphs[j]
	})
	var legend []string
	for _, g := range glyphs {
		legend = append(legend, fmt.Sprintf(":%s: %s", g, quickLabels[reactions[g]]))
	}

	return Message{
		Text: text,
		Blocks: []slack.Block{
			slack.NewSectionBlock(mrkdwn(text), nil, nil),
			slack.NewContextBlock("", mrkdwn("Short on time? React instead: "+strings.Join(legend, " · "))),
		},
	}
}

func statusRank(s QuickStatus) int {
	switch s {
	case QuickOnTrack:
		return 0
	case QuickMinorIssues:
		return 1
	}
	return 2
}

func followUpMessage(fu FollowUp, escalateEmoji, monitorEmoji string) Message {
	var status string
	if fu.Origin == FromReaction {
		status = "• Quick status: need help"
	} else {
		status = fmt.Sprintf("• On Track: %s\n• Blockers: %s", fu.Parsed.OnTrack, fu.Parsed.Blockers)
	}
	text := fmt.Sprintf("<@%s>, thanks for the update! Since you're either not on track or facing a blocker, would you like help?\n\n"+
		"*Your status:*\n%s\n\n"+
		"React with one of the following:\n• :%s: = Need help now\n• :%s: = Can wait / just keeping team informed",
		fu.UserID, status, escalateEmoji, monitorEmoji)

	return Message{
		Text: text,
		Blocks: []slack.Block{
			slack.NewSectionBlock(mrkdwn(text), nil, nil),
			slack.NewActionBlock("followup_actions",
				slack.NewButtonBlockElement(ActionEscalate, fu.UserID, plain("🆘 Need help now")).WithStyle(slack.StyleDanger),
				slack.NewButtonBlockElement(ActionMonitor, fu.UserID, plain("🕓 Can wait"))),
		},
	}
}

func escalationText(fu FollowUp, permalink string, at time.Time) string {
	today := fu.Parsed.Today
	if today == "" {
		today = "not provided"
	}
	onTrack, blockers := string(fu.Parsed.OnTrack), fu.Parsed.Blockers
	if fu.Origin == FromReaction {
		onTrack, blockers = "no", "reported via quick reaction"
	}

	var b strings.Builder
	b.WriteString("🚨 *Escalation Alert* 🚨\n\n")
	fmt.Fprintf(&b, "<@%s> (%s) reported a blocker or delay:\n\n", fu.UserID, fu.UserName)
	fmt.Fprintf(&b, "*Status:*\n• On Track: %s\n• Blockers: %s\n• Today's Work: %s\n\n", onTrack, blockers, today)
	b.WriteString("⏰ Urgency: HIGH\n")
	fmt.Fprintf(&b, "📆 Date: %s\n", at.Format("2006-01-02 15:04 MST"))
	if permalink != "" {
		fmt.Fprintf(&b, "🔗 Thread: %s\n", permalink)
	} else {
		fmt.Fprintf(&b, "🔗 Thread: <#%s> thread %s\n", fu.Channel, fu.StandupID)
	}
	fmt.Fprintf(&b, "\n<!here> please reach out to <@%s> to provide assistance.", fu.UserID)
	return b.String()
}

func healthCheckPrompt() Message {
	text := "🌞 *Daily Health Check*\nHow are you feeling today?"
	return Message{
		Text: "How are you feeling today?",
		Blocks: []slack.Block{
			slack.NewSectionBlock(mrkdwn(text), nil, nil),
			slack.NewActionBlock("health_check",
				slack.NewButtonBlockElement(ActionHealthGreat, "great", plain("😊 Great")).WithStyle(slack.StylePrimary),
				slack.NewButtonBlockElement(ActionHealthOkay, "okay", plain("😐 Okay")),
				slack.NewButtonBlockElement(ActionHealthBad, "not_great", plain("😔 Not great")),
				slack.NewButtonBlockElement(ActionReportBlocker, "blocked", plain("🚧 I'm blocked")).WithStyle(slack.StyleDanger)),
		},
	}
}

var healthReplies = map[string]string{
	"great":     "😊 Great to hear you're doing well!",
	"okay":      "😐 Thanks for letting us know. Hope things get better!",
	"not_great": "😔 Sorry to hear that. Is there anything we can do to help?",
}

// HealthValue maps a health button action to its stored response.
func HealthValue(actionID string) (string, bool) {
	switch actionID {
	case ActionHealthGreat:
		return "great", true
	case ActionHealthOkay:
		return "okay", true
	case ActionHealthBad:
		return "not_great", true
	}
	return "", false
}

// Urgencies are the accepted blocker urgency levels, lowest first.
var Urgencies = []string{"low", "medium", "high", "critical"}

func blockerModal(userID, channel, threadTS string) slack.ModalViewRequest {
	var options []*slack.OptionBlockObject
	for _, u := range Urgencies {
		label := strings.ToUpper(u[:1]) + u[1:]
		options = append(options, slack.NewOptionBlockObject(u, plain(label), nil))
	}

	description := slack.NewPlainTextInputBlockElement(plain("Describe the blocker in detail..."), InputDescription)
	description.Multiline = true
	notes := slack.NewPlainTextInputBlockElement(plain("Anything else we should know?"), InputNotes)
	notes.Multiline = true

	return slack.ModalViewRequest{
		Type:            slack.VTModal,
		CallbackID:      CallbackBlockerForm,
		Title:           plain("Report Blocker"),
		Submit:          plain("Submit"),
		Close:           plain("Cancel"),
		PrivateMetadata: channel + "|" + threadTS,
		Blocks: slack.Blocks{
			BlockSet: []slack.Block{
				slack.NewSectionBlock(mrkdwn(fmt.Sprintf("<@%s>, I see you need help! 🚨\n\nLet me help you get unblocked. Please provide the following information:", userID)), nil, nil),
				slack.NewInputBlock(BlockDescription, plain("What's blocking you?"), nil, description),
				slack.NewInputBlock(BlockObjective, plain("Key Result (KR) Name"), nil,
					slack.NewPlainTextInputBlockElement(plain("e.g., KR1: Increase user engagement"), InputObjective)).WithOptional(true),
				slack.NewInputBlock(BlockUrgency, plain("Urgency Level"), nil,
					slack.NewOptionsSelectBlockElement(slack.OptTypeStatic, plain("Select urgency level"), InputUrgency, options...)),
				slack.NewInputBlock(BlockNotes, plain("Additional notes"), nil, notes).WithOptional(true),
			},
		},
	}
}

func blockerAlertText(r BlockerReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🚧 *Blocker reported* by <@%s> (%s)\n\n", r.UserID, r.UserName)
	fmt.Fprintf(&b, "• Blocker: %s\n", r.Description)
	if r.Objective != "" {
		fmt.Fprintf(&b, "• Key Result: %s\n", r.Objective)
	}
	fmt.Fprintf(&b, "• Urgency: %s\n", strings.ToUpper(r.Urgency))
	if r.Notes != "" {
		fmt.Fprintf(&b, "• Notes: %s\n", r.Notes)
	}
	return b.String()
}

// CommandHelp lists the slash commands.
func CommandHelp() []slack.Block {
	return []slack.Block{
		slack.NewHeaderBlock(plain("🤖 Bot Commands Help")),
		slack.NewSectionBlock(mrkdwn("*Daily Workflow Commands:*\n"+
			"• `/checkin` Start your own standup in a DM\n"+
			"• `/health` Post a health check prompt here\n"+
			"• `/blocked` Report a new blocker\n"+
			"• `/blocker` View the blockers you have reported\n"+
			"• `/help` Show this message"), nil, nil),
		slack.NewDividerBlock(),
		slack.NewContextBlock("", mrkdwn("💡 Reply in a standup thread or react to the prompt to share your status.")),
	}
}
