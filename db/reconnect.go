package db

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/inconshreveable/log15/v3"
	"github.com/jpillora/backoff"
)

// Reconnecting is a Postgres store that tolerates the database being down.
// Until a connection succeeds every call fails fast with ErrStoreUnavailable,
// and a new connection attempt is made at most once per backoff step.
type Reconnecting struct {
	open func() (*Postgres, error)
	log  log15.Logger
	now  func() time.Time

	mu    sync.Mutex
	pg    *Postgres
	retry *backoff.Backoff
	next  time.Time
}

// Connect tries dsn once and returns a store that keeps retrying if that failed.
func Connect(dsn string, log log15.Logger) *Reconnecting {
	return NewReconnecting(func() (*Postgres, error) { return Open(dsn, log) }, log)
}

func NewReconnecting(open func() (*Postgres, error), log log15.Logger) *Reconnecting {
	r := &Reconnecting{
		open:  open,
		log:   log,
		now:   time.Now,
		retry: &backoff.Backoff{Min: 5 * time.Second, Max: 5 * time.Minute, Factor: 2},
	}
	if _, err := r.conn(); err != nil {
		log.Warn("Postgres unreachable, records go to memory until it is back", "err", err)
	}
	return r
}

// Connected reports whether a connection has been established.
func (r *Reconnecting) Connected() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pg != nil
}

func (r *Reconnecting) conn() (*Postgres, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.pg != nil {
		return r.pg, nil
	}
	if now := r.now(); now.Before(r.next) {
		return nil, fmt.Errorf("%w: postgres retry in %s", ErrStoreUnavailable, r.next.Sub(now).Round(time.Second))
	}

	pg, err := r.open()
	if err != nil {
		r.next = r.now().Add(r.retry.Duration())
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if r.retry.Attempt() > 0 {
		r.log.Info("Postgres reachable again", "attempts", r.retry.Attempt())
	}
	r.retry.Reset()
	r.pg = pg
	return pg, nil
}

func (r *Reconnecting) Append(ctx context.Context, rec Record) error {
	pg, err := r.conn()
	if err != nil {
		return err
	}
	return pg.Append(ctx, rec)
}

func (r *Reconnecting) Records(ctx context.Context, kind Kind) ([]Record, error) {
	pg, err := r.conn()
	if err != nil {
		return nil, err
	}
	return pg.Records(ctx, kind)
}

func (r *Reconnecting) Columns(ctx context.Context, kind Kind) ([]string, error) {
	pg, err := r.conn()
	if err != nil {
		return nil, err
	}
	return pg.Columns(ctx, kind)
}

func (r *Reconnecting) Close() error {
	r.mu.Lock()
	pg := r.pg
	r.mu.Unlock()
	if pg == nil {
		return nil
	}
	return pg.Close()
}
