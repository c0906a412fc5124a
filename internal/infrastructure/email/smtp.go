// Package email delivers verification codes over SMTP.
package email

import (
	"context"
	"crypto/tls"
	"fmt"
	"mime"
	"net"
	"net/smtp"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const defaultTimeout = 10 * time.Second

// Config holds the SMTP relay settings.
type Config struct {
	Host       string
	Port       int
	Username   string
	Password   string
	From       string
	SenderName string
	// AppURL is used to build the verification link in the message body.
	AppURL  string
	Timeout time.Duration
}

// SMTPSender implements ports.CodeSender.
type SMTPSender struct {
	cfg  Config
	auth smtp.Auth
	log  zerolog.Logger
}

func NewSMTPSender(cfg Config, log zerolog.Logger) *SMTPSender {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.From == "" {
		cfg.From = cfg.Username
	}
	return &SMTPSender{
		cfg:  cfg,
		auth: smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host),
		log:  log,
	}
}

// SendCode renders the verification email and hands it to the relay. The
// whole exchange is bounded by the context deadline or the configured timeout.
func (s *SMTPSender) SendCode(ctx context.Context, to, username, code string) error {
	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(s.cfg.Timeout)
	}

	msg := s.buildMessage(to, "Your verification code", renderBody(s.cfg.AppURL, username, code))
	address := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))

	dialer := &net.Dialer{Deadline: deadline}
	var (
		conn net.Conn
		err  error
	)
	// port 465 = implicit TLS, otherwise STARTTLS
	if s.cfg.Port == 465 {
		conn, err = (&tls.Dialer{NetDialer: dialer, Config: &tls.Config{ServerName: s.cfg.Host}}).DialContext(ctx, "tcp", address)
	} else {
		conn, err = dialer.DialContext(ctx, "tcp", address)
	}
	if err != nil {
		s.log.Error().Err(err).Str("address", address).Msg("failed to connect to SMTP server")
		return fmt.Errorf("smtp dial: %w", err)
	}
	defer conn.Close()
	_ = conn.SetDeadline(deadline)

	client, err := smtp.NewClient(conn, s.cfg.Host)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}
	defer client.Close()

	if s.cfg.Port != 465 {
		if ok, _ := client.Extension("STARTTLS"); ok {
			if err := client.StartTLS(&tls.Config{ServerName: s.cfg.Host}); err != nil {
				return fmt.Errorf("smtp starttls: %w", err)
			}
		}
	}

	if s.cfg.Username != "" {
		if err := client.Auth(s.auth); err != nil {
			return fmt.Errorf("smtp auth: %w", err)
		}
	}
	if err := client.Mail(s.cfg.From); err != nil {
		return fmt.Errorf("smtp sender: %w", err)
	}
	if err := client.Rcpt(to); err != nil {
		return fmt.Errorf("smtp recipient: %w", err)
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("smtp data: %w", err)
	}
	if _, err := w.Write(msg); err != nil {
		return fmt.Errorf("smtp write: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("smtp close data: %w", err)
	}
	return client.Quit()
}

func renderBody(appURL, username, code string) string {
	body := fmt.Sprintf("Hello %s,\r\n\r\nThank you for registering. Your verification code is:\r\n\r\n%s\r\n\r\n"+
		"The code expires in one hour.\r\n", username, code)
	if appURL != "" {
		body += fmt.Sprintf("Enter it at %s/verify/%s\r\n", appURL, username)
	}
	body += "\r\nIf you did not request this code, please ignore this email.\r\n"
	return body
}

func (s *SMTPSender) buildMessage(recipient, subject, body string) []byte {
	host := s.cfg.Host
	if host == "" {
		host = "localhost"
	}
	return fmt.Appendf(nil,
		"Message-ID: <%s@%s>\r\n"+
			"Date: %s\r\n"+
			"To: %s\r\n"+
			"From: %s <%s>\r\n"+
			"Subject: %s\r\n"+
			"MIME-Version: 1.0\r\n"+
			"Content-Type: text/plain; charset=\"utf-8\"\r\n"+
			"\r\n"+
			"%s",
		uuid.NewString(), host,
		time.Now().Format(time.RFC1123Z),
		recipient,
		mime.QEncoding.Encode("utf-8", s.cfg.SenderName), s.cfg.From,
		mime.QEncoding.Encode("utf-8", subject),
		body,
	)
}

// LogSender stands in for SMTP in local development: it only logs that a code
// was issued, and the code itself at debug level.
type LogSender struct {
	log zerolog.Logger
}

func NewLogSender(log zerolog.Logger) *LogSender {
	return &LogSender{log: log}
}

func (s *LogSender) SendCode(_ context.Context, to, username, code string) error {
	s.log.Debug().Str("to", to).Str("username", username).Str("code", code).Msg("verification code (smtp disabled)")
	return nil
}
