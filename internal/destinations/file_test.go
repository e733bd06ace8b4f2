package destinations

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"notiroute/internal/message"
)

func TestFormatLine(t *testing.T) {
	got := FormatLine(testMessage(), time.UTC)
	want := `2024-03-01T12:30:45.123Z - Warn: [host/disk] disk almost full - '/var at 91%\nrun cleanup' @ ` + message.ParseAuthor("web1/cron").String()
	assert.Equal(t, want, got)

	bare := &message.Message{Level: message.Info, Detail: message.RawDetail("x"), Author: message.ParseAuthor("h"), UnixMillis: fixedTS}
	assert.Equal(t, `2024-03-01T12:30:45.123Z - Info: 'x' @ `+message.ParseAuthor("h").String(), FormatLine(bare, time.UTC))
}

func TestFileAppendsAndCreatesDirs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "notiroute.log")
	f, err := NewFile(path)
	require.NoError(t, err)
	f.loc = time.UTC

	require.NoError(t, f.Send(context.Background(), testMessage()))
	require.NoError(t, f.Send(context.Background(), testMessage()))

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSuffix(string(b), "\n"), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, FormatLine(testMessage(), time.UTC), lines[0])
}

func TestFileRequiresPath(t *testing.T) {
	_, err := NewFile("  ")
	assert.Error(t, err)
}

func TestFileFailsOnUnwritablePath(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	f, err := NewFile(filepath.Join(blocker, "sub", "log"))
	require.NoError(t, err)
	assert.Error(t, f.Send(context.Background(), testMessage()))
}
