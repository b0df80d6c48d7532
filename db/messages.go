package db

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"gorm.io/gorm/clause"
)

func (p *Postgres) Append(ctx context.Context, rec Record) error {
	row := toStored(rec)
	if row.Fingerprint == "" {
		row.Fingerprint = fmt.Sprintf("%s:%s:%d", rec.Kind, rec.UserID, rec.Timestamp.UnixNano())
	}
	err := p.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "fingerprint"}}, DoNothing: true}).
		Create(&row).Error
	if err != nil {
		return fmt.Errorf("Append: failed to save %s record for user %s: %w", rec.Kind, rec.UserID, err)
	}
	return nil
}

func (p *Postgres) Records(ctx context.Context, kind Kind) ([]Record, error) {
	var rows []StoredRecord
	err := p.db.WithContext(ctx).Where("kind = ?", string(kind)).Order("timestamp").Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("Records: failed to fetch %s records: %w", kind, err)
	}
	out := make([]Record, 0, len(rows))
	for _, r := range rows {
		rec := r.record()
		rec.ID = strconv.FormatUint(uint64(r.ID), 10)
		out = append(out, rec)
	}
	return out, nil
}

// RecordsForDay returns kind's records whose timestamp falls on the local day of now.
func (p *Postgres) RecordsForDay(ctx context.Context, kind Kind, now time.Time) ([]Record, error) {
	loc := now.Location()
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
	endOfDay := startOfDay.Add(24 * time.Hour)

	var rows []StoredRecord
	err := p.db.WithContext(ctx).
		Where("kind = ? AND timestamp >= ? AND timestamp < ?", string(kind), startOfDay.UTC(), endOfDay.UTC()).
		Order("timestamp").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("RecordsForDay: failed to fetch %s records: %w", kind, err)
	}
	out := make([]Record, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.record())
	}
	return out, nil
}

// Columns lists the table's columns as the database reports them.
func (p *Postgres) Columns(ctx context.Context, _ Kind) ([]string, error) {
	types, err := p.db.WithContext(ctx).Migrator().ColumnTypes(&StoredRecord{})
	if err != nil {
		return nil, fmt.Errorf("Columns: failed to read schema: %w", err)
	}
	out := make([]string, 0, len(types))
	for _, t := range types {
		out = append(out, t.Name())
	}
	return out, nil
}
