package destinations

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"notiroute/internal/message"
	"notiroute/internal/router"
	"notiroute/internal/storage"
	logx "notiroute/pkg/logx"
)

func TestRetryEventuallySucceeds(t *testing.T) {
	f := &flaky{n: 2}
	r := Retry(f, RetryConfig{Max: 2, Base: time.Millisecond, MaxDelay: 2 * time.Millisecond}, logx.Nop())
	require.NoError(t, r.Send(context.Background(), testMessage()))
	assert.Equal(t, 3, f.count())
}

func TestRetryGivesUp(t *testing.T) {
	f := &flaky{n: 10}
	r := Retry(f, RetryConfig{Max: 1, Base: time.Millisecond, MaxDelay: time.Millisecond}, logx.Logger{})
	err := r.Send(context.Background(), testMessage())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 2 attempts")
	assert.Contains(t, err.Error(), "transient")
	assert.Equal(t, 2, f.count())
}

func TestRetryHonorsContext(t *testing.T) {
	f := &flaky{n: 10}
	r := Retry(f, RetryConfig{Max: 5, Base: time.Hour, MaxDelay: time.Hour}, logx.Nop())
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := r.Send(ctx, testMessage())
	require.Error(t, err)
	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, 1, f.count())
}

func TestRetryDelayBounds(t *testing.T) {
	cfg := RetryConfig{Base: 100 * time.Millisecond, MaxDelay: time.Second}
	for i := 0; i < 50; i++ {
		d := retryDelay(cfg, 1)
		assert.GreaterOrEqual(t, d, 70*time.Millisecond)
		assert.LessOrEqual(t, d, 130*time.Millisecond)

		d = retryDelay(cfg, 10)
		assert.LessOrEqual(t, d, time.Second)
		assert.GreaterOrEqual(t, d, 700*time.Millisecond)
	}
}

func TestDedupSuppressesWithinWindow(t *testing.T) {
	f := &flaky{}
	d := Dedup("tg", f, DedupConfig{Window: time.Minute}, nil, logx.Nop())
	now := time.Unix(1_700_000_000, 0)
	d.now = func() time.Time { return now }

	m := testMessage()
	require.NoError(t, d.Send(context.Background(), m))
	require.NoError(t, d.Send(context.Background(), m))
	assert.Equal(t, 1, f.count())

	other := m.Clone()
	other.Title = "something else"
	require.NoError(t, d.Send(context.Background(), other))
	assert.Equal(t, 2, f.count())

	now = now.Add(2 * time.Minute)
	require.NoError(t, d.Send(context.Background(), m))
	assert.Equal(t, 3, f.count())
}

func TestDedupDoesNotRememberFailures(t *testing.T) {
	f := &flaky{n: 1}
	d := Dedup("tg", f, DedupConfig{Window: time.Minute}, nil, logx.Nop())
	m := testMessage()
	require.Error(t, d.Send(context.Background(), m))
	require.NoError(t, d.Send(context.Background(), m))
	assert.Equal(t, 2, f.count())
}

func TestDedupNeverSuppressesFailureReports(t *testing.T) {
	f := &flaky{}
	d := Dedup("root", f, DedupConfig{Window: time.Hour}, nil, logx.Nop())
	failure := router.SendFailure{DestinationID: "tg", Err: errors.New("401"), Message: testMessage()}

	for i := 0; i < 3; i++ {
		report := router.FailureReportMessage(failure)
		require.Equal(t, message.SelfError, report.Level)
		require.NoError(t, d.Send(context.Background(), report))
	}
	assert.Equal(t, 3, f.count(), "every report reaches the destination")

	require.NoError(t, d.Send(context.Background(), testMessage()))
	require.NoError(t, d.Send(context.Background(), testMessage()))
	assert.Equal(t, 4, f.count())
}

func TestDedupMaxEntries(t *testing.T) {
	f := &flaky{}
	d := Dedup("tg", f, DedupConfig{Window: time.Minute, MaxEntries: 2}, nil, logx.Nop())
	for _, title := range []string{"a", "b", "c"} {
		m := testMessage()
		m.Title = title
		require.NoError(t, d.Send(context.Background(), m))
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	assert.Len(t, d.seen, 2)
}

func TestDedupPersistsAcrossInstances(t *testing.T) {
	st, err := storage.Open(storage.Config{Driver: "file", Path: filepath.Join(t.TempDir(), "dedup.json")}, logx.Nop())
	require.NoError(t, err)
	defer st.Close()

	cfg := DedupConfig{Window: time.Hour, Persist: true}
	first := &flaky{}
	require.NoError(t, Dedup("mail", first, cfg, st, logx.Nop()).Send(context.Background(), testMessage()))

	second := &flaky{}
	require.NoError(t, Dedup("mail", second, cfg, st, logx.Nop()).Send(context.Background(), testMessage()))
	assert.Equal(t, 0, second.count(), "persisted window suppresses after restart")

	third := &flaky{}
	require.NoError(t, Dedup("discord", third, cfg, st, logx.Nop()).Send(context.Background(), testMessage()))
	assert.Equal(t, 1, third.count(), "keys are per destination")
}

func TestChannelDestination(t *testing.T) {
	ch := make(chan *message.Message, 1)
	c := NewChannel(ch)
	m := testMessage()
	require.NoError(t, c.Send(context.Background(), m))
	got := <-ch
	assert.Equal(t, m.Title, got.Title)
	assert.NotSame(t, m, got)

	// Full channel + cancelled context fails instead of blocking forever.
	ch <- m
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, c.Send(ctx, m), context.Canceled)
}
