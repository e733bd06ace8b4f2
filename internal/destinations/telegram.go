package destinations

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	tele "gopkg.in/telebot.v4"

	"notiroute/internal/message"
)

// telegramTextLimit stays under the 4096 character API limit.
const telegramTextLimit = 4000

type TelegramConfig struct {
	Token    string
	ChatID   int64
	ThreadID int
	// APIURL overrides https://api.telegram.org (self-hosted Bot API server).
	APIURL string
	// Client is used for API calls; nil means a client with a 10s timeout.
	Client *http.Client
}

// Telegram posts messages to one chat (and optionally one forum topic)
// using HTML parse mode.
type Telegram struct {
	bot      *tele.Bot
	chat     *tele.Chat
	threadID int
}

func NewTelegram(cfg TelegramConfig) (*Telegram, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("telegram destination: token is required")
	}
	if cfg.ChatID == 0 {
		return nil, errors.New("telegram destination: chat_id is required")
	}
	client := cfg.Client
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	// Offline skips the getMe round trip; this bot only sends.
	b, err := tele.NewBot(tele.Settings{
		URL:     strings.TrimRight(cfg.APIURL, "/"),
		Token:   cfg.Token,
		Client:  client,
		Offline: true,
	})
	if err != nil {
		return nil, err
	}
	return &Telegram{bot: b, chat: &tele.Chat{ID: cfg.ChatID}, threadID: cfg.ThreadID}, nil
}

func (t *Telegram) Send(ctx context.Context, m *message.Message) error {
	text := TelegramHTML(m, nil)
	for _, chunk := range splitText(text, telegramTextLimit, true) {
		if err := ctx.Err(); err != nil {
			return err
		}
		opt := &tele.SendOptions{
			ParseMode:             tele.ModeHTML,
			DisableWebPagePreview: true,
			ThreadID:              t.threadID,
		}
		if _, err := t.bot.Send(t.chat, chunk, opt); err != nil {
			return err
		}
	}
	return nil
}

// TelegramHTML renders m for Telegram's HTML parse mode:
//
//	Level: <b>title</b>
//	<i>[component]</i>
//	detail
//	-----
//	<pre>timestamp</pre>
//	@ author
func TelegramHTML(m *message.Message, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	var b strings.Builder
	b.WriteString(m.Level.String())
	if m.Title != "" {
		b.WriteString(": " + B(m.Title).String())
	}
	b.WriteByte('\n')
	if m.Component != nil {
		b.WriteString(I("["+m.Component.String()+"]").String() + "\n")
	}

	if m.Detail.HasFormatting() {
		for _, blk := range m.Detail.Blocks {
			if blk.Kind == message.SectionBlock {
				b.WriteString("<b><u>" + Esc(blk.Name).String() + "</u></b>\n")
			}
			b.WriteString(SpansHTML(blk.Spans).String())
			b.WriteByte('\n')
		}
	} else {
		b.WriteString(Esc(m.Detail.Raw).String())
		b.WriteByte('\n')
	}

	b.WriteString("-----\n")
	b.WriteString(Pre(time.UnixMilli(m.UnixMillis).In(loc).Format(timestampLayout)).String())
	if !m.Author.IsZero() {
		b.WriteString("\n@ " + Esc(m.Author.String()).String())
	}
	return b.String()
}

// splitText splits long text into chunks of at most limit runes. It
// prefers newline boundaries and, when html is set, avoids cutting inside
// a tag.
func splitText(s string, limit int, html bool) []string {
	if limit <= 0 {
		limit = telegramTextLimit
	}
	rs := []rune(s)
	if len(rs) <= limit {
		return []string{s}
	}

	out := make([]string, 0, (len(rs)+limit-1)/limit)
	start := 0
	for start < len(rs) {
		end := min(start+limit, len(rs))

		if end < len(rs) {
			for i := end - 1; i > start; i-- {
				// Avoid tiny chunks.
				if rs[i] == '\n' && i-start >= limit/3 {
					end = i + 1
					break
				}
			}
		}

		if html && end < len(rs) {
			lastOpen, lastClose := -1, -1
			for i := start; i < end; i++ {
				switch rs[i] {
				case '<':
					lastOpen = i
				case '>':
					lastClose = i
				}
			}
			if lastOpen > lastClose && lastOpen > start+1 {
				end = lastOpen
			}
		}

		out = append(out, strings.TrimRight(string(rs[start:end]), "\n"))
		start = end
		for start < len(rs) && rs[start] == '\n' {
			start++
		}
	}
	return out
}
