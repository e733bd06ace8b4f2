package message

import "time"

// Builder creates messages with sensible defaults:
//   - level Info
//   - author = host name
//   - timestamp = time of Build unless Timestamp was called
type Builder struct {
	level     Level
	title     string
	detail    Detail
	component *Component
	author    Author
	millis    int64
	hasMillis bool

	now func() time.Time
}

func NewBuilder() *Builder {
	return &Builder{level: Info, author: BaseAuthor(), now: time.Now}
}

func (b *Builder) Level(l Level) *Builder { b.level = l; return b }

func (b *Builder) Title(s string) *Builder { b.title = s; return b }

func (b *Builder) Detail(d Detail) *Builder { b.detail = d; return b }

// Body sets a raw, unformatted detail.
func (b *Builder) Body(s string) *Builder { b.detail = RawDetail(s); return b }

func (b *Builder) Component(c string) *Builder {
	if c == "" {
		b.component = nil
		return b
	}
	b.component = NewComponent(c)
	return b
}

// Author appends parts to the host-name author.
func (b *Builder) Author(parts string) *Builder { b.author = b.author.Extend(parts); return b }

func (b *Builder) Timestamp(unixMillis int64) *Builder {
	b.millis = unixMillis
	b.hasMillis = true
	return b
}

// Build returns a new message. The builder stays usable; each call without
// an explicit Timestamp is stamped with the current time.
func (b *Builder) Build() *Message {
	ms := b.millis
	if !b.hasMillis {
		ms = b.now().UnixMilli()
	}
	m := &Message{
		Level:      b.level,
		Title:      b.title,
		Detail:     b.detail,
		Component:  b.component,
		Author:     b.author,
		UnixMillis: ms,
	}
	return m.Clone()
}
