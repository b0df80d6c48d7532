package db

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

var ErrStoreUnavailable = errors.New("store unavailable")

type Kind string

const (
	KindStandup Kind = "standup"
	KindQuick   Kind = "quick"
	KindHealth  Kind = "health"
	KindBlocker Kind = "blocker"
)

var Kinds = []Kind{KindStandup, KindQuick, KindHealth, KindBlocker}

func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds {
		if strings.EqualFold(s, string(k)) {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown record kind %q (want one of standup, quick, health, blocker)", s)
}

// Record is one row written by the bot: a standup answer, a quick reaction,
// a health-check click or a blocker report.
type Record struct {
	ID                 string
	Kind               Kind
	UserID             string
	UserName           string
	Response           string
	Today              string
	OnTrack            string
	Blockers           string
	BlockerDescription string
	Objective          string
	Urgency            string
	Notes              string
	Timestamp          time.Time
	// Fingerprint makes appends idempotent across retries and restarts.
	Fingerprint string
}

// Store is the durable destination for records.
type Store interface {
	Append(ctx context.Context, rec Record) error
	Records(ctx context.Context, kind Kind) ([]Record, error)
	Columns(ctx context.Context, kind Kind) ([]string, error)
}

// Column names as they appear in the spreadsheet-style tables.
const (
	ColName        = "Name"
	ColUserID      = "User ID"
	ColKind        = "Kind"
	ColResponse    = "Response"
	ColToday       = "Today"
	ColOnTrack     = "On Track"
	ColBlockers    = "Blockers"
	ColDescription = "Blocker Description"
	ColObjective   = "KR Name"
	ColUrgency     = "Urgency"
	ColNotes       = "Notes"
	ColTimestamp   = "Timestamp"
	ColFingerprint = "Fingerprint"
)

// ColumnsFor is the column set a record of kind is written with.
func ColumnsFor(kind Kind) []string {
	switch kind {
	case KindStandup, KindQuick:
		return []string{ColName, ColUserID, ColKind, ColResponse, ColToday, ColOnTrack, ColBlockers, ColTimestamp, ColFingerprint}
	case KindBlocker:
		return []string{ColName, ColUserID, ColDescription, ColObjective, ColUrgency, ColNotes, ColTimestamp, ColFingerprint}
	default:
		return []string{ColName, ColUserID, ColResponse, ColTimestamp, ColFingerprint}
	}
}

// Cells renders rec as column -> value for its kind's column set.
func (r Record) Cells() map[string]string {
	all := map[string]string{
		ColName:        r.UserName,
		ColUserID:      r.UserID,
		ColKind:        string(r.Kind),
		ColResponse:    r.Response,
		ColToday:       r.Today,
		ColOnTrack:     r.OnTrack,
		ColBlockers:    r.Blockers,
		ColDescription: r.BlockerDescription,
		ColObjective:   r.Objective,
		ColUrgency:     r.Urgency,
		ColNotes:       r.Notes,
		ColTimestamp:   r.Timestamp.UTC().Format(time.RFC3339),
		ColFingerprint: r.Fingerprint,
	}
	out := map[string]string{}
	for _, c := range ColumnsFor(r.Kind) {
		out[c] = all[c]
	}
	return out
}

// RecordFromCells is the inverse of Cells. Unknown columns are ignored.
func RecordFromCells(kind Kind, cells map[string]string) Record {
	rec := Record{
		Kind:               kind,
		UserName:           cells[ColName],
		UserID:             cells[ColUserID],
		Response:           cells[ColResponse],
		Today:              cells[ColToday],
		OnTrack:            cells[ColOnTrack],
		Blockers:           cells[ColBlockers],
		BlockerDescription: cells[ColDescription],
		Objective:          cells[ColObjective],
		Urgency:            cells[ColUrgency],
		Notes:              cells[ColNotes],
		Fingerprint:        cells[ColFingerprint],
	}
	if k := cells[ColKind]; k != "" {
		rec.Kind = Kind(k)
	}
	if ts, err := time.Parse(time.RFC3339, cells[ColTimestamp]); err == nil {
		rec.Timestamp = ts
	}
	return rec
}
