package db

import (
	"context"
	"errors"

	"github.com/inconshreveable/log15/v3"
)

// Resilient writes to a durable store and keeps the record in memory when
// that write fails, so a flaky backend never loses a user's answer.
type Resilient struct {
	primary  Store
	fallback *Memory
	log      log15.Logger
}

// NewResilient wraps primary. A nil primary means memory only.
func NewResilient(primary Store, fallback *Memory, log log15.Logger) *Resilient {
	return &Resilient{primary: primary, fallback: fallback, log: log}
}

func (r *Resilient) Append(ctx context.Context, rec Record) error {
	if r.primary != nil {
		err := r.primary.Append(ctx, rec)
		if err == nil {
			return nil
		}
		r.log.Warn("Durable store write failed, keeping record in memory",
			"kind", rec.Kind, "user", rec.UserID, "err", err)
	}
	return r.fallback.Append(ctx, rec)
}

// Records merges durable rows with rows only held in memory.
func (r *Resilient) Records(ctx context.Context, kind Kind) ([]Record, error) {
	local, _ := r.fallback.Records(ctx, kind)
	if r.primary == nil {
		return local, nil
	}

	durable, err := r.primary.Records(ctx, kind)
	if err != nil {
		r.log.Warn("Durable store read failed, serving memory rows", "kind", kind, "err", err)
		return local, nil
	}
	seen := make(map[string]struct{}, len(durable))
	for _, rec := range durable {
		if rec.Fingerprint != "" {
			seen[rec.Fingerprint] = struct{}{}
		}
	}
	for _, rec := range local {
		if _, ok := seen[rec.Fingerprint]; ok && rec.Fingerprint != "" {
			continue
		}
		durable = append(durable, rec)
	}
	return durable, nil
}

func (r *Resilient) Columns(ctx context.Context, kind Kind) ([]string, error) {
	if r.primary != nil {
		cols, err := r.primary.Columns(ctx, kind)
		if err == nil {
			return cols, nil
		}
		r.log.Warn("Durable store schema read failed", "kind", kind, "err", err)
	}
	return r.fallback.Columns(ctx, kind)
}

// Tee appends to every store; reads come from the first one.
type Tee []Store

func (t Tee) Append(ctx context.Context, rec Record) error {
	var errs []error
	for _, s := range t {
		if err := s.Append(ctx, rec); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (t Tee) Records(ctx context.Context, kind Kind) ([]Record, error) {
	if len(t) == 0 {
		return nil, ErrStoreUnavailable
	}
	return t[0].Records(ctx, kind)
}

func (t Tee) Columns(ctx context.Context, kind Kind) ([]string, error) {
	if len(t) == 0 {
		return nil, ErrStoreUnavailable
	}
	return t[0].Columns(ctx, kind)
}
