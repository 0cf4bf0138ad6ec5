package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/xavierca1/lead-orchestrator/internal/entity"
)

// Handle tracks one dispatch from acceptance to settlement.
type Handle struct {
	id        string
	kind      entity.ActionKind
	leadID    int64
	key       string
	createdAt time.Time

	mu        sync.RWMutex
	status    entity.ActionStatus
	message   string
	result    any
	err       error
	settledAt time.Time
	done      chan struct{}
}

func newHandle(a Action, key string, now time.Time) *Handle {
	return &Handle{
		id:        uuid.NewString(),
		kind:      a.Kind,
		leadID:    a.LeadID,
		key:       key,
		createdAt: now,
		status:    entity.ActionPending,
		done:      make(chan struct{}),
	}
}

func (h *Handle) ID() string              { return h.id }
func (h *Handle) Kind() entity.ActionKind { return h.kind }
func (h *Handle) LeadID() int64           { return h.leadID }
func (h *Handle) Key() string             { return h.key }

func (h *Handle) Status() entity.ActionStatus {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.status
}

// Err is the settle error; nil while pending or after success.
func (h *Handle) Err() error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.err
}

func (h *Handle) Result() any {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.result
}

// Done is closed once the handle settles.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Wait blocks until the handle settles or ctx ends, and returns the settle
// error.
func (h *Handle) Wait(ctx context.Context) error {
	select {
	case <-h.done:
		return h.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *Handle) settle(status entity.ActionStatus, result any, message string, err error, now time.Time) {
	h.mu.Lock()
	if h.status.Settled() {
		h.mu.Unlock()
		return
	}
	h.status = status
	h.result = result
	h.message = message
	h.err = err
	h.settledAt = now
	h.mu.Unlock()
	close(h.done)
}

func (h *Handle) settledBefore(t time.Time) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.status.Settled() && h.settledAt.Before(t)
}

// Record snapshots the handle for observers and the HTTP surface.
func (h *Handle) Record() entity.ActionRecord {
	h.mu.RLock()
	defer h.mu.RUnlock()

	rec := entity.ActionRecord{
		ID:        h.id,
		Kind:      h.kind,
		LeadID:    h.leadID,
		Key:       h.key,
		Status:    h.status,
		Message:   h.message,
		Result:    h.result,
		CreatedAt: h.createdAt,
	}
	if h.err != nil {
		rec.Reason = h.err.Error()
		rec.ErrorKind = string(KindOf(h.err))
	}
	if h.status.Settled() {
		t := h.settledAt
		rec.SettledAt = &t
	}
	return rec
}
