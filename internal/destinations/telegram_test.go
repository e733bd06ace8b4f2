package destinations

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"notiroute/internal/message"
)

func TestTelegramHTML(t *testing.T) {
	m := testMessage()
	m.Title = "a < b"
	got := TelegramHTML(m, time.UTC)
	want := "Warn: <b>a &lt; b</b>\n" +
		"<i>[host/disk]</i>\n" +
		"/var at 91%\nrun cleanup\n" +
		"-----\n" +
		"<pre>2024-03-01T12:30:45.123Z</pre>\n" +
		"@ " + message.ParseAuthor("web1/cron").String()
	assert.Equal(t, want, got)
}

func TestTelegramHTMLFormatted(t *testing.T) {
	m := testMessage()
	m.Detail = message.NewDetailBuilder().
		Text(message.Plain("usage "), message.Styled("91%", message.Style{Kind: message.Bold})).
		Section("Mount", message.Styled("/var", message.Style{Kind: message.Monospace})).
		Build()
	got := TelegramHTML(m, time.UTC)
	assert.Contains(t, got, "usage <b>91%</b>\n")
	assert.Contains(t, got, "<b><u>Mount</u></b>\n<code>/var</code>\n")
}

func TestSplitText(t *testing.T) {
	assert.Equal(t, []string{"short"}, splitText("short", 10, false))

	s := strings.Repeat("a", 6) + "\n" + strings.Repeat("b", 6)
	assert.Equal(t, []string{"aaaaaa", "bbbbbb"}, splitText(s, 10, false))

	// Never cut inside a tag.
	html := strings.Repeat("x", 8) + "<b>yy</b>"
	for _, c := range splitText(html, 10, true) {
		assert.Equal(t, strings.Count(c, "<"), strings.Count(c, ">"), "chunk %q", c)
	}

	long := strings.Repeat("é", 25)
	chunks := splitText(long, 10, false)
	require.Len(t, chunks, 3)
	assert.Equal(t, long, strings.Join(chunks, ""))
}

func TestTelegramSendUsesBotAPI(t *testing.T) {
	var (
		mu   sync.Mutex
		path string
		body map[string]any
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		path = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&body)
		mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":7,"date":1700000000,"chat":{"id":-100123,"type":"supergroup"},"text":"ok"}}`))
	}))
	defer srv.Close()

	tg, err := NewTelegram(TelegramConfig{Token: "123:abc", ChatID: -100123, ThreadID: 9, APIURL: srv.URL, Client: srv.Client()})
	require.NoError(t, err)
	require.NoError(t, tg.Send(context.Background(), testMessage()))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "/bot123:abc/sendMessage", path)
	assert.EqualValues(t, "-100123", body["chat_id"])
	assert.EqualValues(t, "HTML", body["parse_mode"])
	assert.EqualValues(t, "9", body["message_thread_id"])
	assert.Contains(t, body["text"], "disk almost full")
}

func TestTelegramSendReportsAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"ok":false,"error_code":400,"description":"Bad Request: chat not found"}`))
	}))
	defer srv.Close()

	tg, err := NewTelegram(TelegramConfig{Token: "123:abc", ChatID: 1, APIURL: srv.URL, Client: srv.Client()})
	require.NoError(t, err)
	err = tg.Send(context.Background(), testMessage())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chat not found")
}

func TestNewTelegramValidates(t *testing.T) {
	_, err := NewTelegram(TelegramConfig{ChatID: 1})
	assert.Error(t, err)
	_, err = NewTelegram(TelegramConfig{Token: "t"})
	assert.Error(t, err)
}
