package standup

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"
)

// PostSummary replies in each of today's standup threads with who answered
// what and who is still missing. It returns the number of summaries posted.
func (e *Engine) PostSummary(ctx context.Context) (int, error) {
	now := e.now().In(e.cfg.Location)
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, e.cfg.Location)

	posted := 0
	for _, s := range e.tracker.StandupsSince(startOfDay) {
		if len(s.Thread) == 0 && len(s.Quick) == 0 && len(s.Expected) == 0 {
			continue
		}
		if _, err := e.gw.Post(ctx, Message{Channel: s.Channel, ThreadTS: s.ID, Text: formatSummary(s)}); err != nil {
			return posted, fmt.Errorf("PostSummary: failed to post for standup %s: %w", s.ID, err)
		}
		posted++
	}
	return posted, nil
}

func formatSummary(s StandupInstance) string {
	var summary strings.Builder
	summary.WriteString("📋 *Team Daily Standup Summary*\n")

	users := make([]string, 0, len(s.Thread))
	for u := range s.Thread {
		users = append(users, u)
	}
	sort.Strings(users)
	for _, u := range users {
		r := s.Thread[u].Parsed
		summary.WriteString(fmt.Sprintf("\n• <@%s>\n", u))
		if r.Today != "" {
			summary.WriteString(fmt.Sprintf("   - Today: %s\n", r.Today))
		}
		summary.WriteString(fmt.Sprintf("   - On track: %s\n", r.OnTrack))
		summary.WriteString(fmt.Sprintf("   - Blockers: %s\n", r.Blockers))
	}

	quick := make([]string, 0, len(s.Quick))
	for u := range s.Quick {
		if _, wrote := s.Thread[u]; !wrote {
			quick = append(quick, u)
		}
	}
	sort.Strings(quick)
	for _, u := range quick {
		summary.WriteString(fmt.Sprintf("\n• <@%s>: %s\n", u, quickLabels[s.Quick[u].Status]))
	}

	var missing []string
	for _, u := range s.Expected {
		if !s.responded(u) {
			missing = append(missing, fmt.Sprintf("<@%s>", u))
		}
	}
	if len(missing) > 0 {
		summary.WriteString(fmt.Sprintf("\n⏳ No update from: %s\n", strings.Join(missing, ", ")))
	}
	return summary.String()
}
