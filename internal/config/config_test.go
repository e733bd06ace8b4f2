package config

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"notiroute/internal/message"
	"notiroute/internal/router"
	"notiroute/pkg/logx"
)

const sampleYAML = `
logging: { level: debug, console: true }
router:
  parallel: true
  send_timeout: 5s
storage: { driver: file, path: /tmp/notiroute }
destinations:
  - id: log
    type: file
    routing_type: root
    file: { path: /tmp/notiroute.log }
  - id: db_chat
    type: telegram
    applies_to: { component: db, min_level: warn }
    retry: { max: 2, base: 100ms }
    telegram: { token: "1:x", chat_id: -100 }
  - id: rest
    type: discord
    routing_type: drain
    discord:
      url: https://example.invalid/hook
      notify:
        - { min_level: error, notify: "@here" }
`

func TestDecodeYAML(t *testing.T) {
	cfg, err := Decode("c.yaml", []byte(sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.True(t, cfg.Router.Parallel)
	require.Len(t, cfg.Destinations, 3)
	assert.Equal(t, int64(-100), cfg.Destinations[1].Telegram.ChatID)
	assert.Equal(t, "error", cfg.Destinations[2].Discord.Notify[0].MinLevel)
	assert.Equal(t, "@here", cfg.Destinations[2].Discord.Notify[0].Notify)

	warnings, err := Validate(cfg)
	require.NoError(t, err)
	assert.Empty(t, warnings)
}

func TestDecodeRejectsUnknownFields(t *testing.T) {
	_, err := Decode("c.yaml", []byte("destinations: []\nbogus: 1\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bogus")

	_, err = Decode("c.json", []byte(`{"destinations":[{"id":"a","type":"file","file":{"path":"x","mode":1}}]}`))
	require.Error(t, err)
}

func TestDecodeRejectsTrailingData(t *testing.T) {
	for name, data := range map[string]string{
		"c.json": `{"destinations":[]} {"destinations":[]}`,
		"d.json": `{"destinations":[]} 5`,
		"c.yaml": "destinations: []\n---\ndestinations: []\n",
	} {
		_, err := Decode(name, []byte(data))
		require.Error(t, err, name)
		assert.Contains(t, err.Error(), "trailing data", name)
	}

	cfg, err := Decode("c.json", []byte("{\"destinations\":[]}\n\n"))
	require.NoError(t, err)
	assert.Empty(t, cfg.Destinations)
}

func TestDecodeEmptyYAML(t *testing.T) {
	cfg, err := Decode("c.yml", nil)
	require.NoError(t, err)
	assert.Empty(t, cfg.Destinations)
}

func TestDuration(t *testing.T) {
	d, err := Duration("x", " 1m30s ")
	require.NoError(t, err)
	assert.Equal(t, 90*time.Second, d)

	d, err = Duration("x", "")
	require.NoError(t, err)
	assert.Zero(t, d)

	_, err = Duration("retry.base", "-1s")
	assert.ErrorContains(t, err, "retry.base")
	_, err = Duration("retry.base", "soon")
	assert.ErrorContains(t, err, "retry.base")
}

func TestValidate(t *testing.T) {
	file := func(id, routing string) DestinationConfig {
		return DestinationConfig{ID: id, Type: "file", RoutingType: routing, File: &FileConfig{Path: "x"}}
	}

	tests := []struct {
		name     string
		cfg      Config
		wantErr  string
		warnings int
	}{
		{name: "ok", cfg: Config{Destinations: []DestinationConfig{file("a", "root")}}},
		{name: "no roots", cfg: Config{Destinations: []DestinationConfig{file("a", "")}}, warnings: 1},
		{name: "duplicate id", cfg: Config{Destinations: []DestinationConfig{file("a", "root"), file("a", "drain")}}, warnings: 1},
		{name: "missing id", cfg: Config{Destinations: []DestinationConfig{file("", "root")}}, wantErr: "id is required"},
		{name: "bad routing", cfg: Config{Destinations: []DestinationConfig{file("a", "sideways")}}, wantErr: "routing_type"},
		{name: "bad timeout", cfg: Config{Router: RouterConfig{SendTimeout: "soon"}}, wantErr: "router.send_timeout"},
		{
			name:    "block mismatch",
			cfg:     Config{Destinations: []DestinationConfig{{ID: "a", Type: "mail", File: &FileConfig{Path: "x"}}}},
			wantErr: `requires a "mail" block`,
		},
		{
			name:    "unknown type",
			cfg:     Config{Destinations: []DestinationConfig{{ID: "a", Type: "pager"}}},
			wantErr: "unknown destination type",
		},
		{
			name: "inverted levels",
			cfg: Config{Destinations: []DestinationConfig{{
				ID: "a", Type: "file", File: &FileConfig{Path: "x"},
				AppliesTo: &ConditionConfig{MinLevel: "error", MaxLevel: "info"},
			}}},
			wantErr: "above max_level",
		},
		{
			name:    "heartbeat without schedule",
			cfg:     Config{Heartbeat: &HeartbeatConfig{Enabled: true}},
			wantErr: "heartbeat.schedule",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			warnings, err := Validate(&tt.cfg)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Len(t, warnings, tt.warnings)
		})
	}
}

func TestRoutingConversion(t *testing.T) {
	d := DestinationConfig{
		RoutingType: "Drain",
		AppliesTo:   &ConditionConfig{Component: "db/backup", MinLevel: "warn"},
	}
	ri, err := d.Routing("d")
	require.NoError(t, err)
	assert.Equal(t, router.Drain, ri.Behaviour)
	require.NotNil(t, ri.Condition)
	assert.Equal(t, message.Warn, ri.Condition.MinLevel)
	assert.Zero(t, ri.Condition.MaxLevel)
	assert.Equal(t, "db/backup", ri.Condition.Component.String())

	ri, err = DestinationConfig{}.Routing("d")
	require.NoError(t, err)
	assert.Equal(t, router.Additive, ri.Behaviour)
	assert.Nil(t, ri.Condition)
}

func TestWriteDefault(t *testing.T) {
	for _, name := range []string{"notiroute.yaml", "notiroute.json"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "sub", name)
			cfg, err := WriteDefault(path)
			require.NoError(t, err)

			got, err := NewManager(path, logx.Nop()).Load()
			require.NoError(t, err)
			require.Len(t, got.Destinations, 1)
			assert.Equal(t, cfg.Destinations[0], got.Destinations[0])
			assert.Equal(t, "root", got.Destinations[0].RoutingType)

			_, err = WriteDefault(path)
			assert.ErrorContains(t, err, "already exists")
		})
	}
}

func TestSummarizeConfigChangeHidesSecrets(t *testing.T) {
	oldCfg, err := Decode("c.yaml", []byte(sampleYAML))
	require.NoError(t, err)
	newCfg, err := Decode("c.yaml", []byte(sampleYAML))
	require.NoError(t, err)

	newCfg.Destinations[1].Telegram.Token = "2:secret"
	newCfg.Metrics = &MetricsConfig{Enabled: true, Token: "hunter2"}

	sections, fields := SummarizeConfigChange(oldCfg, newCfg)
	assert.Equal(t, []string{"destinations", "metrics"}, sections)

	var buf bytes.Buffer
	logx.NewWriter(&buf, "debug").Info("x", fields...)
	out := buf.String()
	assert.Contains(t, out, `"destinations.changed":"db_chat"`)
	assert.NotContains(t, out, "secret")
	assert.NotContains(t, out, "hunter2")
}

func TestWatchPublishesChanges(t *testing.T) {
	path := filepath.Join(t.TempDir(), "c.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleYAML), 0o600))

	m := NewManager(path, logx.Nop())
	_, err := m.Load()
	require.NoError(t, err)
	m.SetValidator(func(_ context.Context, cfg *Config) error {
		_, err := Validate(cfg)
		return err
	})
	ch := m.Subscribe(1)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = m.Watch(ctx)
	}()

	// give the watcher time to register before writing
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte(sampleYAML+"metrics: { enabled: true }\n"), 0o600))

	select {
	case cfg := <-ch:
		require.NotNil(t, cfg.Metrics)
		assert.True(t, cfg.Metrics.Enabled)
		assert.Same(t, cfg, m.Get())
	case <-time.After(5 * time.Second):
		t.Fatal("no config published")
	}

	cancel()
	<-done
	m.Unsubscribe(ch)
}
