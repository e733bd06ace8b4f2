package destinations

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"notiroute/internal/message"
	"notiroute/internal/router"
)

func TestDiscordPayload(t *testing.T) {
	d, err := NewDiscord(DiscordConfig{
		URL:      "http://example.invalid",
		Username: "alerts",
		Notify: []DiscordNotify{
			{Condition: router.OfMin(message.Error), Mention: "@here"},
			{Condition: router.OfComponent("host"), Mention: "<@&42>"},
		},
	})
	require.NoError(t, err)

	p := d.payload(testMessage())
	assert.Equal(t, "<@&42>", p.Content, "warn only matches the component rule")
	assert.Equal(t, "alerts", p.Username)
	require.Len(t, p.Embeds, 1)
	e := p.Embeds[0]
	assert.Equal(t, "disk almost full", e.Title)
	assert.Equal(t, 0xFFFF00, e.Color)
	assert.Equal(t, "[host/disk]", e.Author.Name)
	assert.Equal(t, "/var at 91%\nrun cleanup", e.Description)
	assert.Equal(t, "2024-03-01T12:30:45.123Z @ "+message.ParseAuthor("web1/cron").String()+"\nnotiroute", e.Footer.Text)

	m := testMessage()
	m.Level = message.SelfError
	m.Title = ""
	m.Component = nil
	m.Detail = message.NewDetailBuilder().
		Text(message.Styled("bold", message.Style{Kind: message.Bold})).
		Section("Error", message.Styled("x := 1", message.Style{Kind: message.Code, Lang: "go"})).
		Build()
	p = d.payload(m)
	assert.Equal(t, "@here", p.Content)
	e = p.Embeds[0]
	assert.Equal(t, discordDefaultTitle, e.Title)
	assert.Equal(t, 0xB30000, e.Color)
	assert.Nil(t, e.Author)
	assert.Equal(t, "**bold**", e.Description)
	require.Len(t, e.Fields, 1)
	assert.Equal(t, discordField{Name: "Error", Value: "```go\nx := 1```"}, e.Fields[0])
}

func TestDiscordSend(t *testing.T) {
	var got discordWebhook
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	d, err := NewDiscord(DiscordConfig{URL: srv.URL, Client: srv.Client()})
	require.NoError(t, err)
	require.NoError(t, d.Send(context.Background(), testMessage()))
	require.Len(t, got.Embeds, 1)
	assert.Equal(t, "disk almost full", got.Embeds[0].Title)
}

func TestDiscordSendNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		http.Error(w, `{"message": "Unknown Webhook"}`, http.StatusNotFound)
	}))
	defer srv.Close()

	d, err := NewDiscord(DiscordConfig{URL: srv.URL, Client: srv.Client()})
	require.NoError(t, err)
	err = d.Send(context.Background(), testMessage())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
	assert.Contains(t, err.Error(), "Unknown Webhook")
}

func TestTruncateRunes(t *testing.T) {
	assert.Equal(t, "abc", truncateRunes("abc", 3))
	assert.Equal(t, "ab…", truncateRunes("abcd", 3))
}
