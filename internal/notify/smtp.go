package notify

import (
	"context"
	"crypto/tls"
	"fmt"
	"mime"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"github.com/RaikyD/storefront-orders/internal/logger"
)

type SMTPConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	FromName string
}

// sessionTimeout bounds one relay session when the caller set no deadline.
const sessionTimeout = 30 * time.Second

type sendFunc func(ctx context.Context, addr string, a smtp.Auth, from string, to []string, msg []byte) error

// SMTPSender delivers mail through an authenticated relay and upgrades to
// STARTTLS when the server offers it.
type SMTPSender struct {
	cfg      SMTPConfig
	sendMail sendFunc
}

func NewSMTPSender(cfg SMTPConfig) *SMTPSender {
	return &SMTPSender{cfg: cfg, sendMail: deliver}
}

func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	if s.cfg.User == "" || s.cfg.Password == "" {
		logger.Warn("SMTP_USER or SMTP_PASS not set, email not sent", "to", msg.To)
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
	auth := smtp.PlainAuth("", s.cfg.User, s.cfg.Password, s.cfg.Host)
	if err := s.sendMail(ctx, addr, auth, s.cfg.User, []string{msg.To}, s.build(msg)); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

func (s *SMTPSender) build(msg Message) []byte {
	var b strings.Builder
	from := s.cfg.User
	if s.cfg.FromName != "" {
		from = fmt.Sprintf("%s <%s>", mime.QEncoding.Encode("utf-8", s.cfg.FromName), s.cfg.User)
	}
	b.WriteString("From: " + from + "\r\n")
	b.WriteString("To: " + msg.To + "\r\n")
	b.WriteString("Subject: " + mime.QEncoding.Encode("utf-8", msg.Subject) + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=\"utf-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(msg.HTML)
	return []byte(b.String())
}

// deliver is smtp.SendMail with the dial and the whole session bound to ctx.
func deliver(ctx context.Context, addr string, a smtp.Auth, from string, to []string, msg []byte) error {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, sessionTimeout)
		defer cancel()
	}
	deadline, _ := ctx.Deadline()

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return err
	}
	if err := conn.SetDeadline(deadline); err != nil {
		conn.Close()
		return err
	}

	host, _, _ := net.SplitHostPort(addr)
	c, err := smtp.NewClient(conn, host)
	if err != nil {
		conn.Close()
		return err
	}
	defer c.Close()

	if ok, _ := c.Extension("STARTTLS"); ok {
		if err := c.StartTLS(&tls.Config{ServerName: host}); err != nil {
			return err
		}
	}
	if a != nil {
		if ok, _ := c.Extension("AUTH"); ok {
			if err := c.Auth(a); err != nil {
				return err
			}
		}
	}
	if err := c.Mail(from); err != nil {
		return err
	}
	for _, rcpt := range to {
		if err := c.Rcpt(rcpt); err != nil {
			return err
		}
	}
	w, err := c.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(msg); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return c.Quit()
}
