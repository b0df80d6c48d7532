package api

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"StandupPulse/standup"

	"github.com/inconshreveable/log15/v3"
)

// Ledger remembers delivery ids beyond the in-memory window.
type Ledger interface {
	Claim(ctx context.Context, id string) (bool, error)
}

type Options struct {
	SigningSecret string
	BotUserID     string
	Ledger        Ledger
	TaskTimeout   time.Duration
}

// Handler is the Slack request endpoint. It acknowledges every delivery at
// once and does the work in the background.
type Handler struct {
	engine *standup.Engine
	opts   Options
	log    log15.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewHandler(engine *standup.Engine, opts Options, log log15.Logger) *Handler {
	if opts.TaskTimeout <= 0 {
		opts.TaskTimeout = defaultTaskTimeout
	}
	if opts.SigningSecret == "" {
		log.Warn("SLACK_SIGNING_SECRET not set, request signatures are not verified")
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Handler{engine: engine, opts: opts, log: log, ctx: ctx, cancel: cancel}
}

// Wait blocks until every background task has finished.
func (h *Handler) Wait() {
	h.wg.Wait()
}

// Shutdown waits for in-flight work, cancelling it if ctx ends first.
func (h *Handler) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		h.cancel()
		<-done
		return ctx.Err()
	}
}

func (h *Handler) spawn(name string, fn func(ctx context.Context) error) {
	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				h.log.Crit("Background task panicked", "task", name, "panic", fmt.Sprint(r))
			}
		}()

		ctx, cancel := context.WithTimeout(h.ctx, h.opts.TaskTimeout)
		defer cancel()
		if err := fn(ctx); err != nil {
			h.log.Error("Background task failed", "task", name, "err", err)
		}
	}()
}

// firstDelivery reports whether id has not been handled yet, marking it handled.
func (h *Handler) firstDelivery(ctx context.Context, id string) bool {
	if id == "" {
		return true
	}
	if h.engine.Tracker().SeenEvent(id) {
		return false
	}
	if h.opts.Ledger == nil {
		return true
	}
	fresh, err := h.opts.Ledger.Claim(ctx, id)
	if err != nil {
		h.log.Warn("Delivery ledger unavailable, relying on memory", "id", id, "err", err)
		return true
	}
	return fresh
}

func HandleHealthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("✅ StandupPulse is alive"))
}
