package destinations

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"mime"
	"mime/multipart"
	"net"
	"net/mail"
	"net/smtp"
	"net/textproto"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"notiroute/internal/message"
)

const defaultSMTPPort = 25

type Relay struct {
	Host     string
	Port     int
	StartTLS bool
	Username string
	Password string
}

type MailConfig struct {
	From    string
	To      string
	ReplyTo string
	Relay   Relay
}

// Mail delivers messages through an SMTP relay, one mail per message.
type Mail struct {
	from, to, replyTo *mail.Address
	relay             Relay

	dialer net.Dialer
	// tlsConfig overrides the STARTTLS config (tests).
	tlsConfig *tls.Config
}

func NewMail(cfg MailConfig) (*Mail, error) {
	from, err := mail.ParseAddress(cfg.From)
	if err != nil {
		return nil, fmt.Errorf("mail destination: from: %w", err)
	}
	to, err := mail.ParseAddress(cfg.To)
	if err != nil {
		return nil, fmt.Errorf("mail destination: to: %w", err)
	}
	var replyTo *mail.Address
	if strings.TrimSpace(cfg.ReplyTo) != "" {
		if replyTo, err = mail.ParseAddress(cfg.ReplyTo); err != nil {
			return nil, fmt.Errorf("mail destination: reply_to: %w", err)
		}
	}
	if strings.TrimSpace(cfg.Relay.Host) == "" {
		return nil, errors.New("mail destination: relay.host is required")
	}
	if cfg.Relay.Port == 0 {
		cfg.Relay.Port = defaultSMTPPort
	}
	return &Mail{from: from, to: to, replyTo: replyTo, relay: cfg.Relay}, nil
}

func (d *Mail) Send(ctx context.Context, m *message.Message) error {
	body, err := d.compose(m)
	if err != nil {
		return err
	}

	addr := net.JoinHostPort(d.relay.Host, strconv.Itoa(d.relay.Port))
	conn, err := d.dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return err
	}
	if dl, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(dl)
	}
	c, err := smtp.NewClient(conn, d.relay.Host)
	if err != nil {
		_ = conn.Close()
		return err
	}
	defer c.Close()

	if d.relay.StartTLS {
		cfg := d.tlsConfig
		if cfg == nil {
			cfg = &tls.Config{ServerName: d.relay.Host}
		}
		if err := c.StartTLS(cfg); err != nil {
			return fmt.Errorf("starttls: %w", err)
		}
	}
	if d.relay.Username != "" {
		if err := c.Auth(smtp.PlainAuth("", d.relay.Username, d.relay.Password, d.relay.Host)); err != nil {
			return fmt.Errorf("smtp auth: %w", err)
		}
	}
	if err := c.Mail(d.from.Address); err != nil {
		return err
	}
	if err := c.Rcpt(d.to.Address); err != nil {
		return err
	}
	w, err := c.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(body); err != nil {
		_ = w.Close()
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return c.Quit()
}

// compose builds the RFC 5322 mail: a plain text part with the raw detail
// and, when the message carries formatting, an HTML alternative.
func (d *Mail) compose(m *message.Message) ([]byte, error) {
	subject := m.Title
	if subject == "" {
		subject = "notiroute: " + m.Level.String()
	}

	var buf bytes.Buffer
	hdr := func(k, v string) { fmt.Fprintf(&buf, "%s: %s\r\n", k, v) }
	hdr("From", d.from.String())
	hdr("To", d.to.String())
	if d.replyTo != nil {
		hdr("Reply-To", d.replyTo.String())
	}
	hdr("Subject", mime.QEncoding.Encode("utf-8", subject))
	hdr("Date", time.UnixMilli(m.UnixMillis).Format(time.RFC1123Z))
	hdr("Message-ID", "<"+uuid.NewString()+"@notiroute>")
	hdr("X-Notiroute-Level", m.Level.String())
	if m.Component != nil {
		hdr("X-Notiroute-Component", m.Component.String())
	}
	hdr("MIME-Version", "1.0")

	text := m.Detail.Raw + "\r\n\r\n-- \r\n" + m.Author.String() + "\r\n"
	if !m.Detail.HasFormatting() {
		hdr("Content-Type", `text/plain; charset="utf-8"`)
		hdr("Content-Transfer-Encoding", "8bit")
		buf.WriteString("\r\n")
		buf.WriteString(text)
		return buf.Bytes(), nil
	}

	var parts bytes.Buffer
	mw := multipart.NewWriter(&parts)
	hdr("Content-Type", `multipart/alternative; boundary="`+mw.Boundary()+`"`)
	buf.WriteString("\r\n")

	for _, p := range []struct{ ctype, body string }{
		{`text/plain; charset="utf-8"`, text},
		{`text/html; charset="utf-8"`, "<html><body>" + DetailHTML(m.Detail).String() + "<hr><p>" + Esc(m.Author.String()).String() + "</p></body></html>"},
	} {
		w, err := mw.CreatePart(textproto.MIMEHeader{
			"Content-Type":              {p.ctype},
			"Content-Transfer-Encoding": {"8bit"},
		})
		if err != nil {
			return nil, err
		}
		if _, err := w.Write([]byte(p.body)); err != nil {
			return nil, err
		}
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}
	buf.Write(parts.Bytes())
	return buf.Bytes(), nil
}
