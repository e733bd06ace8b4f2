package destinations

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"notiroute/internal/message"
	"notiroute/internal/router"
)

const (
	discordDefaultTitle = "notiroute notification"
	// Embed description limit.
	discordDescriptionLimit = 4096
	discordFieldLimit       = 1024
)

// DiscordNotify adds Mention to the message content when Condition matches,
// e.g. "<@&role>" for errors only.
type DiscordNotify struct {
	Condition router.MessageCondition
	Mention   string
}

type DiscordConfig struct {
	URL      string
	Username string
	Notify   []DiscordNotify
	Client   *http.Client
}

// Discord posts an embed to a webhook URL.
type Discord struct {
	url      string
	username string
	notify   []DiscordNotify
	client   *http.Client
}

func NewDiscord(cfg DiscordConfig) (*Discord, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, errors.New("discord destination: url is required")
	}
	client := cfg.Client
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &Discord{url: cfg.URL, username: cfg.Username, notify: cfg.Notify, client: client}, nil
}

type discordWebhook struct {
	Content  string         `json:"content,omitempty"`
	Username string         `json:"username,omitempty"`
	Embeds   []discordEmbed `json:"embeds"`
}

type discordEmbed struct {
	Title       string         `json:"title"`
	Description string         `json:"description,omitempty"`
	Color       int            `json:"color"`
	Author      *discordName   `json:"author,omitempty"`
	Fields      []discordField `json:"fields,omitempty"`
	Footer      discordText    `json:"footer"`
}

type discordName struct {
	Name string `json:"name"`
}

type discordText struct {
	Text string `json:"text"`
}

type discordField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

func levelColor(l message.Level) int {
	switch l {
	case message.Info:
		return 0x00F4D0
	case message.SelfInfo:
		return 0x0099CC
	case message.Warn:
		return 0xFFFF00
	case message.Error:
		return 0xFF0000
	case message.SelfError:
		return 0xB30000
	}
	return 0
}

func (d *Discord) payload(m *message.Message) discordWebhook {
	var mentions []string
	for _, n := range d.notify {
		if n.Mention != "" && n.Condition.Matches(m) {
			mentions = append(mentions, n.Mention)
		}
	}

	title := m.Title
	if title == "" {
		title = discordDefaultTitle
	}
	embed := discordEmbed{
		Title: title,
		Color: levelColor(m.Level),
		Footer: discordText{Text: fmt.Sprintf("%s @ %s\nnotiroute",
			time.UnixMilli(m.UnixMillis).UTC().Format(timestampLayout), m.Author)},
	}
	if m.Component != nil {
		embed.Author = &discordName{Name: "[" + m.Component.String() + "]"}
	}

	if !m.Detail.HasFormatting() {
		embed.Description = truncateRunes(m.Detail.Raw, discordDescriptionLimit)
	} else {
		var desc []string
		for _, blk := range m.Detail.Blocks {
			text := discordMarkdown(blk.Spans)
			if blk.Kind == message.SectionBlock {
				embed.Fields = append(embed.Fields, discordField{Name: blk.Name, Value: truncateRunes(text, discordFieldLimit)})
				continue
			}
			desc = append(desc, text)
		}
		embed.Description = truncateRunes(strings.Join(desc, "\n"), discordDescriptionLimit)
	}

	return discordWebhook{
		Content:  strings.Join(mentions, " "),
		Username: d.username,
		Embeds:   []discordEmbed{embed},
	}
}

func (d *Discord) Send(ctx context.Context, m *message.Message) error {
	body, err := json.Marshal(d.payload(m))
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("discord webhook: %s: %s", resp.Status, strings.TrimSpace(string(snippet)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func discordMarkdown(spans []message.Span) string {
	var b strings.Builder
	for _, sp := range spans {
		s := sp.Text
		for _, st := range sp.Styles {
			switch st.Kind {
			case message.Bold:
				s = "**" + s + "**"
			case message.Italics:
				s = "_" + s + "_"
			case message.Monospace:
				if s == "" || strings.Contains(s, "\n") {
					s = "```\n" + s + "\n```"
				} else {
					s = "`" + s + "`"
				}
			case message.Code:
				s = "```" + st.Lang + "\n" + s + "```"
			}
		}
		b.WriteString(s)
	}
	return b.String()
}

func truncateRunes(s string, n int) string {
	rs := []rune(s)
	if len(rs) <= n {
		return s
	}
	return string(rs[:n-1]) + "…"
}
