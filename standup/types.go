// Package standup holds the standup state machine: reply parsing, per-standup
// interaction tracking and the follow-up / escalation workflow.
package standup

import (
	"errors"
	"time"
)

var (
	ErrUnknownStandup    = errors.New("standup not tracked")
	ErrUnknownReaction   = errors.New("reaction has no status mapping")
	ErrNoPendingFollowUp = errors.New("no pending follow-up for message")
	ErrNotFollowUpOwner  = errors.New("follow-up belongs to another user")
)

type OnTrack string

const (
	OnTrackYes     OnTrack = "yes"
	OnTrackNo      OnTrack = "no"
	OnTrackUnknown OnTrack = "unknown"
)

// NoBlockers is what every no-blocker answer normalizes to.
const NoBlockers = "none"

type QuickStatus string

const (
	QuickOnTrack     QuickStatus = "on_track"
	QuickMinorIssues QuickStatus = "minor_issues"
	QuickNeedsHelp   QuickStatus = "needs_help"
)

// ParsedResponse is the structured form of a free-text standup reply.
type ParsedResponse struct {
	Today    string
	OnTrack  OnTrack
	Blockers string
}

func (p ParsedResponse) HasBlocker() bool {
	return !IsNoBlocker(p.Blockers)
}

func (p ParsedResponse) NeedsFollowUp() bool {
	return p.OnTrack == OnTrackNo || p.HasBlocker()
}

type QuickResponse struct {
	Status    QuickStatus
	Reaction  string
	Timestamp time.Time
	UserName  string
}

type ThreadResponse struct {
	UserID    string
	UserName  string
	MessageTS string
	Raw       string
	Parsed    ParsedResponse
	Timestamp time.Time
}

// StandupInstance is one scheduled prompt and everything users answered on it.
type StandupInstance struct {
	ID        string
	Channel   string
	CreatedAt time.Time
	Expected  []string
	Quick     map[string]QuickResponse
	Thread    map[string]ThreadResponse
}

func (s *StandupInstance) responded(userID string) bool {
	if _, ok := s.Quick[userID]; ok {
		return true
	}
	_, ok := s.Thread[userID]
	return ok
}

func (s *StandupInstance) clone() StandupInstance {
	c := *s
	c.Expected = append([]string(nil), s.Expected...)
	c.Quick = make(map[string]QuickResponse, len(s.Quick))
	for k, v := range s.Quick {
		c.Quick[k] = v
	}
	c.Thread = make(map[string]ThreadResponse, len(s.Thread))
	for k, v := range s.Thread {
		c.Thread[k] = v
	}
	return c
}

type FollowUpOrigin string

const (
	FromThread   FollowUpOrigin = "thread"
	FromReaction FollowUpOrigin = "reaction"
)

type FollowUpState string

const (
	StateAwaitingResponse FollowUpState = "awaiting_response"
	StateNeedsHelpPending FollowUpState = "needs_help_pending"
	StateEscalated        FollowUpState = "escalated"
	StateMonitored        FollowUpState = "monitored"
)

// FollowUp is a pending "escalate or monitor?" question put to one user.
// Thread replies and needs_help reactions both produce one; Origin tells them apart.
type FollowUp struct {
	Key       string
	MessageTS string
	Channel   string
	StandupID string
	UserID    string
	UserName  string
	Origin    FollowUpOrigin
	Parsed    ParsedResponse
	Status    QuickStatus
	CreatedAt time.Time
}

// PendingState is the state a follow-up waits in until the user decides.
func (f FollowUp) PendingState() FollowUpState {
	if f.Origin == FromReaction {
		return StateNeedsHelpPending
	}
	return StateAwaitingResponse
}

// Decision is what a user picked on a follow-up.
type Decision string

const (
	DecisionEscalate Decision = "escalate"
	DecisionMonitor  Decision = "monitor"
)

// Missing is a user who has not answered a tracked standup.
type Missing struct {
	StandupID string
	Channel   string
	UserID    string
}
