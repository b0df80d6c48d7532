package standup

import (
	"fmt"
	"sort"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Tracker is the in-memory record of standups, answers and open follow-ups.
// All methods are safe for concurrent use; reads hand back copies.
type Tracker struct {
	mu        sync.Mutex
	standups  map[string]*StandupInstance
	pending   map[string]*FollowUp // by follow-up message ts
	issued    map[string]issuedFollowUp
	reactions map[string]QuickStatus
	processed *lru.Cache[string, struct{}]
	now       func() time.Time
}

type issuedFollowUp struct {
	messageTS string
	at        time.Time
}

func NewTracker(processedCapacity int, reactions map[string]string) (*Tracker, error) {
	processed, err := lru.New[string, struct{}](processedCapacity)
	if err != nil {
		return nil, fmt.Errorf("NewTracker: %w", err)
	}
	rm := make(map[string]QuickStatus, len(reactions))
	for glyph, status := range reactions {
		rm[glyph] = QuickStatus(status)
	}
	return &Tracker{
		standups:  map[string]*StandupInstance{},
		pending:   map[string]*FollowUp{},
		issued:    map[string]issuedFollowUp{},
		reactions: rm,
		processed: processed,
		now:       time.Now,
	}, nil
}

// StatusFor maps a reaction glyph to its quick status.
func (t *Tracker) StatusFor(glyph string) (QuickStatus, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.reactions[glyph]
	return s, ok
}

func (t *Tracker) reactionsSnapshot() map[string]QuickStatus {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(map[string]QuickStatus, len(t.reactions))
	for k, v := range t.reactions {
		out[k] = v
	}
	return out
}

func (t *Tracker) StartStandup(id, channel string, expected []string) StandupInstance {
	t.mu.Lock()
	defer t.mu.Unlock()
	s := &StandupInstance{
		ID:        id,
		Channel:   channel,
		CreatedAt: t.now(),
		Expected:  append([]string(nil), expected...),
		Quick:     map[string]QuickResponse{},
		Thread:    map[string]ThreadResponse{},
	}
	t.standups[id] = s
	return s.clone()
}

func (t *Tracker) IsStandup(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.standups[id]
	return ok
}

func (t *Tracker) Standup(id string) (StandupInstance, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.standups[id]
	if !ok {
		return StandupInstance{}, false
	}
	return s.clone(), true
}

// RecordQuickResponse keeps the first reaction a user gives on a standup.
// created is false when the user had already answered; the stored response is
// returned unchanged in that case.
func (t *Tracker) RecordQuickResponse(standupID, userID, glyph, userName string) (resp QuickResponse, created bool, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.standups[standupID]
	if !ok {
		return QuickResponse{}, false, fmt.Errorf("RecordQuickResponse %s: %w", standupID, ErrUnknownStandup)
	}
	status, ok := t.reactions[glyph]
	if !ok {
		return QuickResponse{}, false, fmt.Errorf("RecordQuickResponse %q: %w", glyph, ErrUnknownReaction)
	}
	if prev, ok := s.Quick[userID]; ok {
		return prev, false, nil
	}
	resp = QuickResponse{Status: status, Reaction: glyph, Timestamp: t.now(), UserName: userName}
	s.Quick[userID] = resp
	return resp, true, nil
}

// RecordThreadResponse parses and stores a threaded reply. A later reply from
// the same user replaces the earlier one.
func (t *Tracker) RecordThreadResponse(standupID, userID, userName, messageTS, raw string) (ThreadResponse, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.standups[standupID]
	if !ok {
		return ThreadResponse{}, fmt.Errorf("RecordThreadResponse %s: %w", standupID, ErrUnknownStandup)
	}
	resp := ThreadResponse{
		UserID:    userID,
		UserName:  userName,
		MessageTS: messageTS,
		Raw:       raw,
		Parsed:    ParseResponse(raw),
		Timestamp: t.now(),
	}
	s.Thread[userID] = resp
	return resp, nil
}

func (t *Tracker) IsEventProcessed(id string) bool {
	return t.processed.Contains(id)
}

func (t *Tracker) MarkEventProcessed(id string) {
	t.processed.ContainsOrAdd(id, struct{}{})
}

// SeenEvent marks id as processed and reports whether it already was.
func (t *Tracker) SeenEvent(id string) bool {
	seen, _ := t.processed.ContainsOrAdd(id, struct{}{})
	return seen
}

// FollowUpKey identifies the single follow-up a user can get per standup.
func FollowUpKey(origin FollowUpOrigin, userID, standupID string) string {
	if origin == FromReaction {
		return "help_" + userID + "_" + standupID
	}
	return "followup_" + userID + "_" + standupID
}

// ReserveFollowUp claims key before the follow-up message is posted.
// It returns false if a follow-up for key was already issued or is in flight.
func (t *Tracker) ReserveFollowUp(key string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.issued[key]; ok {
		return false
	}
	t.issued[key] = issuedFollowUp{at: t.now()}
	return true
}

// ReleaseFollowUp drops a reservation whose message could not be posted.
func (t *Tracker) ReleaseFollowUp(key string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if is, ok := t.issued[key]; ok && is.messageTS == "" {
		delete(t.issued, key)
	}
}

// AttachFollowUp makes fu pending under its message ts.
func (t *Tracker) AttachFollowUp(fu FollowUp) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if fu.CreatedAt.IsZero() {
		fu.CreatedAt = t.now()
	}
	t.issued[fu.Key] = issuedFollowUp{messageTS: fu.MessageTS, at: fu.CreatedAt}
	t.pending[fu.MessageTS] = &fu
}

func (t *Tracker) FindFollowUpByMessage(messageTS string) (FollowUp, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fu, ok := t.pending[messageTS]
	if !ok {
		return FollowUp{}, false
	}
	return *fu, true
}

// TakeFollowUp removes and returns the pending follow-up so only one caller
// can act on it.
func (t *Tracker) TakeFollowUp(messageTS string) (FollowUp, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fu, ok := t.pending[messageTS]
	if !ok {
		return FollowUp{}, fmt.Errorf("TakeFollowUp %s: %w", messageTS, ErrNoPendingFollowUp)
	}
	delete(t.pending, messageTS)
	return *fu, nil
}

// RestoreFollowUp puts back a follow-up whose resolution failed.
func (t *Tracker) RestoreFollowUp(fu FollowUp) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pending[fu.MessageTS] = &fu
}

func (t *Tracker) PendingFollowUps() []FollowUp {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]FollowUp, 0, len(t.pending))
	for _, fu := range t.pending {
		out = append(out, *fu)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// StandupsSince returns copies of standups started at or after since, oldest first.
func (t *Tracker) StandupsSince(since time.Time) []StandupInstance {
	t.mu.Lock()
	defer t.mu.Unlock()
	var out []StandupInstance
	for _, s := range t.standups {
		if !s.CreatedAt.Before(since) {
			out = append(out, s.clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// StaleFollowUps lists pending follow-ups created before cutoff.
func (t *Tracker) StaleFollowUps(cutoff time.Time) []FollowUp {
	var out []FollowUp
	for _, fu := range t.PendingFollowUps() {
		if fu.CreatedAt.Before(cutoff) {
			out = append(out, fu)
		}
	}
	return out
}

// MissingResponders lists expected users without any answer on standups
// started at or after since.
func (t *Tracker) MissingResponders(since time.Time) []Missing {
	t.mu.Lock()
	defer t.mu.Unlock()
	var out []Missing
	for _, s := range t.standups {
		if s.CreatedAt.Before(since) {
			continue
		}
		for _, u := range s.Expected {
			if !s.responded(u) {
				out = append(out, Missing{StandupID: s.ID, Channel: s.Channel, UserID: u})
			}
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].StandupID != out[j].StandupID {
			return out[i].StandupID < out[j].StandupID
		}
		return out[i].UserID < out[j].UserID
	})
	return out
}

// EvictBefore forgets standups and follow-ups created before cutoff and
// returns how many standups were dropped.
func (t *Tracker) EvictBefore(cutoff time.Time) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := 0
	for id, s := range t.standups {
		if s.CreatedAt.Before(cutoff) {
			delete(t.standups, id)
			n++
		}
	}
	for ts, fu := range t.pending {
		if fu.CreatedAt.Before(cutoff) {
			delete(t.pending, ts)
		}
	}
	for k, is := range t.issued {
		if is.at.Before(cutoff) {
			delete(t.issued, k)
		}
	}
	return n
}
