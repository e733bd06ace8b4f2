package message

import (
	"fmt"
	"strconv"
	"strings"
)

// Message is a single notification.
//
// Title is optional (empty means none). Component is optional (nil means
// none). UnixMillis is the event time, not the send time.
type Message struct {
	Level      Level
	Title      string
	Detail     Detail
	Component  *Component
	Author     Author
	UnixMillis int64
}

// Clone returns a deep copy of m.
func (m *Message) Clone() *Message {
	if m == nil {
		return nil
	}
	cp := *m
	cp.Detail = m.Detail.clone()
	if m.Component != nil {
		c := Component{parts: m.Component.Parts()}
		cp.Component = &c
	}
	cp.Author = Author{parts: append([]string(nil), m.Author.parts...)}
	return &cp
}

// String renders every field on one line. It is used when a message has to
// be embedded in another message's body (failure reports) and in reports.
func (m *Message) String() string {
	if m == nil {
		return "Message(nil)"
	}
	var b strings.Builder
	b.WriteString("Message{level: ")
	b.WriteString(m.Level.String())
	b.WriteString(", title: ")
	if m.Title == "" {
		b.WriteString("none")
	} else {
		b.WriteString(strconv.Quote(m.Title))
	}
	b.WriteString(", component: ")
	if m.Component == nil {
		b.WriteString("none")
	} else {
		b.WriteString(strconv.Quote(m.Component.String()))
	}
	b.WriteString(", detail: ")
	b.WriteString(strconv.Quote(m.Detail.Raw))
	b.WriteString(", author: ")
	b.WriteString(strconv.Quote(m.Author.String()))
	fmt.Fprintf(&b, ", timestamp: %d}", m.UnixMillis)
	return b.String()
}
