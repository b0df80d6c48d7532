package standup

import (
	"strings"
)

var noBlockerKeywords = map[string]struct{}{
	"none": {},
	"no":   {},
	"n/a":  {},
	"":     {},
}

// IsNoBlocker reports whether a blockers answer means "nothing is blocking me".
func IsNoBlocker(s string) bool {
	_, ok := noBlockerKeywords[strings.ToLower(strings.TrimSpace(s))]
	return ok
}

// Checked in order; the first hit wins.
var onTrackVocabulary = []struct {
	phrase string
	value  OnTrack
}{
	{"not on track", OnTrackNo},
	{"off track", OnTrackNo},
	{"behind", OnTrackNo},
	{"delayed", OnTrackNo},
	{"struggling", OnTrackNo},
	{"late", OnTrackNo},
	{"yes", OnTrackYes},
	{"no", OnTrackNo},
}

type field int

const (
	fieldNone field = iota
	fieldToday
	fieldOnTrack
	fieldBlockers
)

// ParseResponse extracts today / on track / blockers from a free-text reply.
// Each line is looked at on its own and anything unrecognized falls back to a
// default, so this never fails.
func ParseResponse(text string) ParsedResponse {
	out := ParsedResponse{OnTrack: OnTrackUnknown, Blockers: NoBlockers}

	var lines []string
	for _, l := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
		if l = cleanLine(l); l != "" {
			lines = append(lines, l)
		}
	}

	labelled := false
	for _, line := range lines {
		f, value := splitLabel(line)
		switch f {
		case fieldToday:
			out.Today = value
		case fieldOnTrack:
			out.OnTrack = matchOnTrack(value)
		case fieldBlockers:
			out.Blockers = matchBlockers(value)
		default:
			continue
		}
		labelled = true
	}

	if !labelled && len(lines) > 0 {
		out.Today = lines[0]
		if len(lines) > 1 {
			out.OnTrack = matchOnTrack(lines[1])
		}
		if len(lines) > 2 {
			out.Blockers = matchBlockers(lines[2])
		}
	}
	return out
}

func cleanLine(l string) string {
	l = strings.TrimSpace(l)
	for _, p := range []string{"•", "-", "*", "1.", "2.", "3.", "1)", "2)", "3)"} {
		if strings.HasPrefix(l, p) {
			l = strings.TrimSpace(strings.TrimPrefix(l, p))
			break
		}
	}
	return strings.TrimSpace(strings.Trim(l, "*_ "))
}

// splitLabel finds the label in the text before the first ':' or '?'. Without a
// separator the line must start with the label, as in "blockers none".
func splitLabel(line string) (field, string) {
	if i := strings.IndexAny(line, ":?"); i >= 0 {
		head := strings.ToLower(line[:i])
		value := strings.TrimSpace(strings.Trim(strings.TrimSpace(line[i+1:]), "*_"))
		return classify(head), value
	}

	lower := strings.ToLower(line)
	for _, label := range []struct {
		prefix string
		f      field
	}{
		{"today", fieldToday},
		{"on track", fieldOnTrack},
		{"on-track", fieldOnTrack},
		{"blockers", fieldBlockers},
		{"blocker", fieldBlockers},
	} {
		if strings.HasPrefix(lower, label.prefix) {
			return label.f, strings.TrimSpace(line[len(label.prefix):])
		}
	}
	return fieldNone, ""
}

func classify(head string) field {
	switch {
	case strings.Contains(head, "today"):
		return fieldToday
	case strings.Contains(head, "track"):
		return fieldOnTrack
	case strings.Contains(head, "blocker"):
		return fieldBlockers
	}
	return fieldNone
}

func matchOnTrack(v string) OnTrack {
	lower := strings.ToLower(v)
	for _, w := range words(lower) {
		switch w {
		case "yes", "y", "yep", "yeah":
			return OnTrackYes
		case "no", "nope", "n":
			return OnTrackNo
		}
	}
	for _, e := range onTrackVocabulary {
		if strings.Contains(lower, e.phrase) {
			return e.value
		}
	}
	return OnTrackUnknown
}

func matchBlockers(v string) string {
	trimmed := strings.Trim(v, ".! ")
	if IsNoBlocker(trimmed) {
		return NoBlockers
	}
	if strings.EqualFold(trimmed, "yes") {
		return "yes"
	}
	return v
}

func words(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == '/')
	})
}
