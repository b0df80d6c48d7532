package db

import "time"

type StoredRecord struct {
	ID                 uint   `gorm:"primaryKey"`
	Kind               string `gorm:"index;not null"`
	UserID             string `gorm:"index;not null"`
	UserName           string
	Response           string
	Today              string
	OnTrack            string
	Blockers           string
	BlockerDescription string
	Objective          string
	Urgency            string
	Notes              string
	Fingerprint        string `gorm:"uniqueIndex;not null"`
	Timestamp          time.Time
	CreatedAt          time.Time
}

func (StoredRecord) TableName() string {
	return "pulse_records"
}

func toStored(r Record) StoredRecord {
	return StoredRecord{
		Kind:               string(r.Kind),
		UserID:             r.UserID,
		UserName:           r.UserName,
		Response:           r.Response,
		Today:              r.Today,
		OnTrack:            r.OnTrack,
		Blockers:           r.Blockers,
		BlockerDescription: r.BlockerDescription,
		Objective:          r.Objective,
		Urgency:            r.Urgency,
		Notes:              r.Notes,
		Fingerprint:        r.Fingerprint,
		Timestamp:          r.Timestamp.UTC(),
	}
}

func (s StoredRecord) record() Record {
	return Record{
		Kind:               Kind(s.Kind),
		UserID:             s.UserID,
		UserName:           s.UserName,
		Response:           s.Response,
		Today:              s.Today,
		OnTrack:            s.OnTrack,
		Blockers:           s.Blockers,
		BlockerDescription: s.BlockerDescription,
		Objective:          s.Objective,
		Urgency:            s.Urgency,
		Notes:              s.Notes,
		Fingerprint:        s.Fingerprint,
		Timestamp:          s.Timestamp,
	}
}
