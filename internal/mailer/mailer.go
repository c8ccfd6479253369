package mailer

import (
	"fmt"
	"mime"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

type Config struct {
	Enabled  bool
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SendFunc matches smtp.SendMail.
type SendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

type Mailer struct {
	cfg  Config
	log  *zerolog.Logger
	send SendFunc
}

func New(cfg Config, log *zerolog.Logger) *Mailer {
	return &Mailer{cfg: cfg, log: log, send: smtp.SendMail}
}

// WithSendFunc replaces the SMTP transport.
func (m *Mailer) WithSendFunc(f SendFunc) *Mailer {
	m.send = f
	return m
}

// SendReminder tells recipient that eventName starts at startsAt.
func (m *Mailer) SendReminder(recipient, eventName string, startsAt time.Time) error {
	subject := fmt.Sprintf("Reminder: %s", eventName)
	body := fmt.Sprintf("Hello!\n\n%s starts at %s.\nSee you there.",
		eventName, startsAt.Format("Mon, 02 Jan 2006 15:04 MST"))

	if !m.cfg.Enabled {
		m.log.Info().Str("email", recipient).Str("subject", subject).Msg("mail disabled, reminder not sent")
		return nil
	}

	to := headerValue(recipient)
	msg := strings.Join([]string{
		"From: " + headerValue(m.cfg.From),
		"To: " + to,
		"Subject: " + mime.QEncoding.Encode("utf-8", subject),
		"Content-Type: text/plain; charset=UTF-8",
		"",
		body,
	}, "\r\n")

	var auth smtp.Auth
	if m.cfg.Username != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	}

	addr := net.JoinHostPort(m.cfg.Host, strconv.Itoa(m.cfg.Port))
	if err := m.send(addr, auth, m.cfg.From, []string{to}, []byte(msg)); err != nil {
		m.log.Warn().Err(err).Str("email", recipient).Msg("failed to send email")
		return fmt.Errorf("send email: %w", err)
	}

	m.log.Info().Str("email", recipient).Str("subject", subject).Msg("email sent")
	return nil
}

var lineBreaks = strings.NewReplacer("\r", "", "\n", "")

// headerValue keeps an address on its header line.
func headerValue(v string) string {
	return lineBreaks.Replace(v)
}
