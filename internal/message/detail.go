package message

import "strings"

// StyleKind is a text decoration understood by the formatting destinations.
type StyleKind int

const (
	Bold StyleKind = iota + 1
	Italics
	Monospace
	Code
)

// Style decorates a Span. Lang is only meaningful for Code.
type Style struct {
	Kind StyleKind
	Lang string
}

// Span is a run of text with zero or more styles applied in order.
type Span struct {
	Text   string
	Styles []Style
}

func Plain(s string) Span { return Span{Text: s} }

func Styled(s string, styles ...Style) Span { return Span{Text: s, Styles: styles} }

// BlockKind tells a Text block apart from a named Section.
type BlockKind int

const (
	TextBlock BlockKind = iota + 1
	SectionBlock
)

// Block is one unit of formatted detail. Name is set for sections only.
type Block struct {
	Kind  BlockKind
	Name  string
	Spans []Span
}

// Detail is the message body.
//
// Raw is always available and is what plain-text destinations render.
// Blocks is optional structured content; destinations that understand
// formatting prefer it over Raw.
type Detail struct {
	Raw    string
	Blocks []Block
}

func RawDetail(s string) Detail { return Detail{Raw: s} }

func (d Detail) HasFormatting() bool { return len(d.Blocks) > 0 }

// clone deep-copies the blocks so a cloned message never aliases the original.
func (d Detail) clone() Detail {
	out := Detail{Raw: d.Raw}
	if len(d.Blocks) == 0 {
		return out
	}
	out.Blocks = make([]Block, len(d.Blocks))
	for i, b := range d.Blocks {
		nb := Block{Kind: b.Kind, Name: b.Name, Spans: make([]Span, len(b.Spans))}
		for j, sp := range b.Spans {
			nb.Spans[j] = Span{Text: sp.Text, Styles: append([]Style(nil), sp.Styles...)}
		}
		out.Blocks[i] = nb
	}
	return out
}

// DetailBuilder assembles a formatted Detail.
//
//	d := message.NewDetailBuilder().
//		Text(message.Plain("backup finished with warnings")).
//		Section("Tables", message.Styled("users", message.Style{Kind: message.Monospace})).
//		Build()
type DetailBuilder struct {
	raw    string
	rawSet bool
	blocks []Block
}

const rawNotAvailable = "Raw not available"

func NewDetailBuilder() *DetailBuilder { return &DetailBuilder{} }

// Raw sets the plain-text fallback. When unset, Build derives one from the blocks.
func (b *DetailBuilder) Raw(s string) *DetailBuilder {
	b.raw = s
	b.rawSet = true
	return b
}

func (b *DetailBuilder) Text(spans ...Span) *DetailBuilder {
	b.blocks = append(b.blocks, Block{Kind: TextBlock, Spans: spans})
	return b
}

func (b *DetailBuilder) Section(name string, spans ...Span) *DetailBuilder {
	b.blocks = append(b.blocks, Block{Kind: SectionBlock, Name: name, Spans: spans})
	return b
}

func (b *DetailBuilder) Build() Detail {
	d := Detail{Raw: b.raw, Blocks: append([]Block(nil), b.blocks...)}
	if !b.rawSet {
		d.Raw = plainText(d.Blocks)
	}
	return d
}

func plainText(blocks []Block) string {
	if len(blocks) == 0 {
		return rawNotAvailable
	}
	var sb strings.Builder
	for i, bl := range blocks {
		if i > 0 {
			sb.WriteString("\n")
		}
		if bl.Kind == SectionBlock {
			sb.WriteString(bl.Name)
			sb.WriteString(":\n")
		}
		for _, sp := range bl.Spans {
			sb.WriteString(sp.Text)
		}
	}
	return sb.String()
}
