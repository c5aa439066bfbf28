package mailer

import (
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
)

type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	To       []string
}

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// Mailer emails console notifications to the operator addresses.
type Mailer struct {
	cfg  Config
	log  *zerolog.Logger
	send sendFunc
}

func New(cfg Config, log *zerolog.Logger) *Mailer {
	return &Mailer{cfg: cfg, log: log, send: smtp.SendMail}
}

// Enabled reports whether there is a server and at least one recipient.
func (m *Mailer) Enabled() bool {
	return m != nil && m.cfg.Host != "" && len(m.cfg.To) > 0
}

func (m *Mailer) SendNotification(title, message, kind string) error {
	if !m.Enabled() {
		return nil
	}

	subject := fmt.Sprintf("[%s] %s", strings.ToUpper(kind), title)
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nContent-Type: text/plain; charset=UTF-8\r\n\r\n%s\r\n",
		m.cfg.From, strings.Join(m.cfg.To, ", "), subject, message,
	)

	addr := net.JoinHostPort(m.cfg.Host, strconv.Itoa(m.cfg.Port))
	var auth smtp.Auth
	if m.cfg.Username != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	}

	if err := m.send(addr, auth, m.cfg.From, m.cfg.To, []byte(msg)); err != nil {
		m.log.Warn().Err(err).Strs("to", m.cfg.To).Msg("failed to send notification email")
		return fmt.Errorf("send email: %w", err)
	}

	m.log.Info().Strs("to", m.cfg.To).Str("title", title).Msg("notification email sent")
	return nil
}
