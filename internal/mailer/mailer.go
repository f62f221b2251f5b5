package mailer

import (
	"fmt"
	"net/smtp"

	"github.com/jordan-wright/email"
)

// Message is a plain email. It is also the payload of queued email jobs.
type Message struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Text    string `json:"text"`
	HTML    string `json:"html,omitempty"`
}

// Mailer sends messages through an SMTP relay
type Mailer struct {
	host     string
	user     string
	password string
	from     string
	addr     string
}

func New(host string, port int, user, password, from string) *Mailer {
	if from == "" {
		from = user
	}
	return &Mailer{
		host:     host,
		user:     user,
		password: password,
		from:     from,
		addr:     fmt.Sprintf("%s:%d", host, port),
	}
}

func (m *Mailer) Send(msg Message) error {
	e := email.NewEmail()
	e.From = m.from
	e.To = []string{msg.To}
	e.Subject = msg.Subject
	e.Text = []byte(msg.Text)
	if msg.HTML != "" {
		e.HTML = []byte(msg.HTML)
	}

	var auth smtp.Auth
	if m.user != "" {
		auth = smtp.PlainAuth("", m.user, m.password, m.host)
	}
	if err := e.Send(m.addr, auth); err != nil {
		return fmt.Errorf("mailer: send to %s: %w", msg.To, err)
	}
	return nil
}
