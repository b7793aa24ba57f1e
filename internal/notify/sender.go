package notify

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/smtp"

	"github.com/limbo/routinely/pkg/entity"
)

// The dispatcher only needs a boolean-ish send outcome; transport details
// stay behind this interface.
type Sender interface {
	Send(ctx context.Context, to string, msg *Message) error
}

type Message struct {
	Subject string
	Body    string
}

// ReminderMessage renders the habit reminder mail content.
func ReminderMessage(habit *entity.Habit, user *entity.User) *Message {
	body := fmt.Sprintf("Hi %s!\n\nTime for your habit: %s.", user.Name, habit.Title)
	if habit.Category != "" {
		body += fmt.Sprintf(" (%s)", habit.Category)
	}
	if habit.Stats.CurrentStreak > 0 {
		body += fmt.Sprintf("\nYour streak is %d days, keep it going.", habit.Stats.CurrentStreak)
	}
	return &Message{
		Subject: "Reminder: " + habit.Title,
		Body:    body,
	}
}

type SMTPCfg struct {
	Address  string
	Username string
	Password string
	From     string
}

type SMTPSender struct {
	cfg SMTPCfg
}

func NewSMTPSender(cfg SMTPCfg) *SMTPSender {
	return &SMTPSender{cfg: cfg}
}

func (s *SMTPSender) Send(ctx context.Context, to string, msg *Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	host, _, err := net.SplitHostPort(s.cfg.Address)
	if err != nil {
		host = s.cfg.Address
	}
	var auth smtp.Auth
	if s.cfg.Username != "" {
		auth = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, host)
	}
	payload := []byte("From: " + s.cfg.From + "\r\n" +
		"To: " + to + "\r\n" +
		"Subject: " + msg.Subject + "\r\n\r\n" +
		msg.Body + "\r\n")
	if err := smtp.SendMail(s.cfg.Address, auth, s.cfg.From, []string{to}, payload); err != nil {
		return fmt.Errorf("smtp send to %s failed: %w", to, err)
	}
	return nil
}

// LogSender stands in when SMTP is unconfigured (local runs, tests of the
// full wiring). It only logs, it never fails.
type LogSender struct {
	logger *slog.Logger
}

func NewLogSender(logger *slog.Logger) *LogSender {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(ctx context.Context, to string, msg *Message) error {
	s.logger.Info("reminder mail (log only)", slog.String("to", to), slog.String("subject", msg.Subject))
	return nil
}
