package entity

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// The backend stores naive UTC datetimes and serialises them without an
// offset.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

// Timestamp decodes backend datetimes. Values without an offset are UTC.
type Timestamp struct {
	time.Time
}

func ParseTimestamp(s string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", s)
}

func (t *Timestamp) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		return nil
	}
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		return fmt.Errorf("timestamp: %w", err)
	}
	parsed, err := ParseTimestamp(raw)
	if err != nil {
		return err
	}
	t.Time = parsed
	return nil
}

func optionalTime(t *Timestamp) *time.Time {
	if t == nil || t.IsZero() {
		return nil
	}
	v := t.Time
	return &v
}

func (l *Lead) UnmarshalJSON(b []byte) error {
	type plain Lead
	aux := struct {
		*plain
		EmailSentDate *Timestamp `json:"email_sent_date"`
		CreatedAt     Timestamp  `json:"created_at"`
		UpdatedAt     Timestamp  `json:"updated_at"`
	}{plain: (*plain)(l)}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	l.EmailSentDate = optionalTime(aux.EmailSentDate)
	l.CreatedAt = aux.CreatedAt.Time
	l.UpdatedAt = aux.UpdatedAt.Time
	return nil
}

func (c *EmailCampaign) UnmarshalJSON(b []byte) error {
	type plain EmailCampaign
	aux := struct {
		*plain
		CreatedAt Timestamp  `json:"created_at"`
		SentAt    *Timestamp `json:"sent_at"`
	}{plain: (*plain)(c)}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	c.CreatedAt = aux.CreatedAt.Time
	c.SentAt = optionalTime(aux.SentAt)
	return nil
}

func (w *Website) UnmarshalJSON(b []byte) error {
	type plain Website
	aux := struct {
		*plain
		CreatedAt Timestamp `json:"created_at"`
	}{plain: (*plain)(w)}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	w.CreatedAt = aux.CreatedAt.Time
	return nil
}
