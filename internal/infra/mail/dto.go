package mail

import "time"

type FailureAlertData struct {
	Kind      string
	LeadID    int64
	Key       string
	Reason    string
	ErrorKind string
	HandleID  string
	SettledAt time.Time
}

type EmailSender struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
	To       string
}
