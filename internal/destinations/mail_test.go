package destinations

import (
	"bufio"
	"context"
	"net"
	"net/textproto"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"notiroute/internal/message"
)

// fakeSMTP accepts a single session and returns the DATA payload.
func fakeSMTP(t *testing.T) (host string, port int, data <-chan string) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })

	out := make(chan string, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		tp := textproto.NewConn(conn)
		_ = tp.PrintfLine("220 fake ESMTP")
		for {
			line, err := tp.ReadLine()
			if err != nil {
				return
			}
			cmd := strings.ToUpper(strings.SplitN(line, " ", 2)[0])
			switch cmd {
			case "EHLO", "HELO":
				_ = tp.PrintfLine("250-fake")
				_ = tp.PrintfLine("250 8BITMIME")
			case "MAIL", "RCPT", "RSET", "NOOP":
				_ = tp.PrintfLine("250 OK")
			case "DATA":
				_ = tp.PrintfLine("354 go ahead")
				b, err := tp.ReadDotBytes()
				if err != nil {
					return
				}
				out <- string(b)
				_ = tp.PrintfLine("250 queued")
			case "QUIT":
				_ = tp.PrintfLine("221 bye")
				return
			default:
				_ = tp.PrintfLine("502 not implemented")
			}
		}
	}()

	h, p, err := net.SplitHostPort(ln.Addr().String())
	require.NoError(t, err)
	pn, err := strconv.Atoi(p)
	require.NoError(t, err)
	return h, pn, out
}

func TestMailSend(t *testing.T) {
	host, port, data := fakeSMTP(t)
	d, err := NewMail(MailConfig{
		From:    "notiroute <bot@example.com>",
		To:      "ops@example.com",
		ReplyTo: "noreply@example.com",
		Relay:   Relay{Host: host, Port: port},
	})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, d.Send(ctx, testMessage()))

	select {
	case body := <-data:
		tp := textproto.NewReader(bufio.NewReader(strings.NewReader(body)))
		hdr, err := tp.ReadMIMEHeader()
		require.NoError(t, err)
		assert.Equal(t, "disk almost full", hdr.Get("Subject"))
		assert.Equal(t, "<ops@example.com>", hdr.Get("To"))
		assert.Equal(t, "<noreply@example.com>", hdr.Get("Reply-To"))
		assert.Equal(t, "host/disk", hdr.Get("X-Notiroute-Component"))
		assert.Contains(t, body, "/var at 91%")
	case <-ctx.Done():
		t.Fatal("no DATA received")
	}
}

func TestMailComposeFormatted(t *testing.T) {
	d, err := NewMail(MailConfig{From: "a@example.com", To: "b@example.com", Relay: Relay{Host: "localhost"}})
	require.NoError(t, err)
	assert.Equal(t, defaultSMTPPort, d.relay.Port)

	m := testMessage()
	m.Title = ""
	m.Detail = message.NewDetailBuilder().Section("Why", message.Styled("<oops>", message.Style{Kind: message.Italics})).Build()
	b, err := d.compose(m)
	require.NoError(t, err)
	s := string(b)
	assert.Contains(t, s, "Subject: notiroute: Warn\r\n")
	assert.Contains(t, s, "multipart/alternative")
	assert.Contains(t, s, "<div><h2>Why</h2><p><i>&lt;oops&gt;</i></p></div>")
}

func TestNewMailValidates(t *testing.T) {
	_, err := NewMail(MailConfig{From: "not an address", To: "b@example.com", Relay: Relay{Host: "h"}})
	assert.Error(t, err)
	_, err = NewMail(MailConfig{From: "a@example.com", To: "b@example.com"})
	assert.Error(t, err)
}
