package destinations

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"notiroute/internal/message"
)

// timestampLayout is RFC 3339 with millisecond precision.
const timestampLayout = "2006-01-02T15:04:05.000Z07:00"

// File appends one line per message to a local file. It is the usual Root
// destination: it rarely fails.
type File struct {
	path string
	// loc is the zone timestamps are rendered in; nil means time.Local.
	loc *time.Location

	mu sync.Mutex
}

func NewFile(path string) (*File, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("file destination: path is required")
	}
	return &File{path: path}, nil
}

func (f *File) Path() string { return f.path }

func (f *File) Send(ctx context.Context, m *message.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	line := FormatLine(m, f.loc)

	f.mu.Lock()
	defer f.mu.Unlock()
	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return err
	}
	fh, err := os.OpenFile(f.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintln(fh, line); err != nil {
		_ = fh.Close()
		return err
	}
	return fh.Close()
}

// FormatLine renders m as
//
//	<timestamp> - <Level>: [component] title - 'detail' @ author
//
// with newlines in the detail written as a literal \n.
func FormatLine(m *message.Message, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	var b strings.Builder
	b.WriteString(time.UnixMilli(m.UnixMillis).In(loc).Format(timestampLayout))
	b.WriteString(" - ")
	b.WriteString(m.Level.String())
	b.WriteString(": ")
	if m.Component != nil {
		b.WriteString("[" + m.Component.String() + "] ")
	}
	if m.Title != "" {
		b.WriteString(m.Title + " - ")
	}
	b.WriteString("'" + inline(m.Detail.Raw) + "'")
	b.WriteString(" @ " + m.Author.String())
	return b.String()
}

func inline(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.Join(strings.Split(strings.TrimSuffix(s, "\n"), "\n"), `\n`)
}
