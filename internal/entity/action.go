package entity

import (
	"context"
	"time"
)

type ActionKind string

const (
	ActionSendEmail     ActionKind = "send-email"
	ActionCreateWebsite ActionKind = "create-website"
	ActionStartSearch   ActionKind = "start-search"
)

type ActionStatus string

const (
	ActionPending   ActionStatus = "pending"
	ActionCompleted ActionStatus = "completed"
	ActionFailed    ActionStatus = "failed"
	// ActionRejected marks a dispatch refused locally, before any network call.
	ActionRejected ActionStatus = "rejected"
)

// Settled reports whether the status is terminal.
func (s ActionStatus) Settled() bool {
	return s != ActionPending
}

// ActionRecord is a point-in-time copy of a dispatch handle.
type ActionRecord struct {
	ID        string       `json:"id"`
	Kind      ActionKind   `json:"kind"`
	LeadID    int64        `json:"lead_id,omitempty"`
	Key       string       `json:"key"`
	Status    ActionStatus `json:"status"`
	Message   string       `json:"message,omitempty"`
	Reason    string       `json:"reason,omitempty"`
	ErrorKind string       `json:"error_kind,omitempty"`
	Result    any          `json:"result,omitempty"`
	CreatedAt time.Time    `json:"created_at"`
	SettledAt *time.Time   `json:"settled_at,omitempty"`
}

// ActionObserver is told about every handle once it settles.
type ActionObserver interface {
	ActionSettled(ctx context.Context, rec ActionRecord)
}

type ActionRepositoryInterface interface {
	Save(ctx context.Context, rec ActionRecord) error
}
