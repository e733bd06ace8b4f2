package destinations

import (
	"html"
	"strings"

	"notiroute/internal/message"
)

// H is HTML that is already safe to embed. Values of type H are never
// escaped again.
type H string

func (h H) String() string { return string(h) }

// Esc escapes text for HTML (Telegram HTML parse mode and mail bodies).
func Esc(s string) H { return H(html.EscapeString(s)) }

func wrap(tag string, inner H) H { return H("<" + tag + ">" + inner.String() + "</" + tag + ">") }

func B(s string) H { return wrap("b", Esc(s)) }

func I(s string) H { return wrap("i", Esc(s)) }

// Pre renders a preformatted block.
func Pre(s string) H { return wrap("pre", Esc(s)) }

// JoinH joins non-blank parts with sep.
func JoinH(sep string, parts ...H) H {
	ss := make([]string, 0, len(parts))
	for _, p := range parts {
		if strings.TrimSpace(p.String()) == "" {
			continue
		}
		ss = append(ss, p.String())
	}
	return H(strings.Join(ss, sep))
}

func styleTags(st message.Style) (open, close string) {
	switch st.Kind {
	case message.Bold:
		return "<b>", "</b>"
	case message.Italics:
		return "<i>", "</i>"
	case message.Monospace, message.Code:
		return "<code>", "</code>"
	}
	return "", ""
}

// SpansHTML renders styled spans. Tags close in reverse order of opening.
func SpansHTML(spans []message.Span) H {
	var b strings.Builder
	for _, sp := range spans {
		closers := make([]string, 0, len(sp.Styles))
		for _, st := range sp.Styles {
			o, c := styleTags(st)
			b.WriteString(o)
			closers = append(closers, c)
		}
		b.WriteString(html.EscapeString(sp.Text))
		for i := len(closers) - 1; i >= 0; i-- {
			b.WriteString(closers[i])
		}
	}
	return H(b.String())
}

// DetailHTML renders formatted detail as a standalone HTML fragment
// (sections become <div><h2>name</h2><p>..</p></div>). Used for mail.
func DetailHTML(d message.Detail) H {
	if !d.HasFormatting() {
		return H("<pre>" + html.EscapeString(d.Raw) + "</pre>")
	}
	var b strings.Builder
	for _, blk := range d.Blocks {
		switch blk.Kind {
		case message.SectionBlock:
			b.WriteString("<div><h2>" + html.EscapeString(blk.Name) + "</h2><p>" + SpansHTML(blk.Spans).String() + "</p></div>")
		default:
			b.WriteString("<p>" + SpansHTML(blk.Spans).String() + "</p>")
		}
	}
	return H(b.String())
}
