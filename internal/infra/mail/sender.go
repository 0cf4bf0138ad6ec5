package mail

import (
	"bytes"
	"context"
	"fmt"
	"text/template"

	"github.com/sirupsen/logrus"
	"gopkg.in/gomail.v2"

	"github.com/xavierca1/lead-orchestrator/internal/entity"
)

var alertTemplate = template.Must(template.New("alert").Parse(`A dispatched action failed against the leads backend.

Action:   {{.Kind}}
{{- if .LeadID}}
Lead:     #{{.LeadID}}
{{- end}}
Key:      {{.Key}}
Handle:   {{.HandleID}}
Kind:     {{.ErrorKind}}
Settled:  {{.SettledAt.Format "2006-01-02 15:04:05 MST"}}

Reason:
{{.Reason}}
`))

// Dialer is satisfied by *gomail.Dialer.
type Dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

// AlertSender mails the operator when an action fails at the backend.
type AlertSender struct {
	cfg    EmailSender
	dialer Dialer
	log    *logrus.Entry
}

func NewAlertSender(cfg EmailSender) *AlertSender {
	return &AlertSender{
		cfg:    cfg,
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Password),
		log:    logrus.WithField("component", "alerts"),
	}
}

func (s *AlertSender) SendFailureAlert(rec entity.ActionRecord) error {
	data := FailureAlertData{
		Kind:      string(rec.Kind),
		LeadID:    rec.LeadID,
		Key:       rec.Key,
		Reason:    rec.Reason,
		ErrorKind: rec.ErrorKind,
		HandleID:  rec.ID,
	}
	if rec.SettledAt != nil {
		data.SettledAt = *rec.SettledAt
	}

	body, err := renderAlert(data)
	if err != nil {
		return err
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.cfg.From)
	m.SetHeader("To", s.cfg.To)
	m.SetHeader("Subject", alertSubject(data))
	m.SetBody("text/plain", body)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("send alert smtp: %w", err)
	}
	return nil
}

// ActionSettled alerts on backend and network failures only. Local
// rejections are operator input, not incidents.
func (s *AlertSender) ActionSettled(_ context.Context, rec entity.ActionRecord) {
	if rec.Status != entity.ActionFailed {
		return
	}
	if err := s.SendFailureAlert(rec); err != nil {
		s.log.WithField("handle", rec.ID).Warnf("alert not sent: %v", err)
	}
}

func alertSubject(d FailureAlertData) string {
	if d.LeadID != 0 {
		return fmt.Sprintf("[leads] %s failed for lead #%d", d.Kind, d.LeadID)
	}
	return fmt.Sprintf("[leads] %s failed", d.Kind)
}

func renderAlert(d FailureAlertData) (string, error) {
	var body bytes.Buffer
	if err := alertTemplate.Execute(&body, d); err != nil {
		return "", fmt.Errorf("render alert: %w", err)
	}
	return body.String(), nil
}
