package config

// Config is the on-disk configuration (YAML or JSON).
//
// All durations are Go duration strings (e.g. "500ms", "10s", "1m").
type Config struct {
	Logging      LoggingConfig       `json:"logging"`
	Storage      *StorageConfig      `json:"storage,omitempty"`
	Metrics      *MetricsConfig      `json:"metrics,omitempty"`
	Heartbeat    *HeartbeatConfig    `json:"heartbeat,omitempty"`
	Router       RouterConfig        `json:"router"`
	Destinations []DestinationConfig `json:"destinations"`
}

type LoggingConfig struct {
	Level   string      `json:"level"`
	Console bool        `json:"console"`
	File    LoggingFile `json:"file"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// StorageConfig controls persistence of dedup windows.
//
// Example:
//
//	storage: { driver: sqlite, path: ~/.notiroute/state.db }
type StorageConfig struct {
	Driver      string `json:"driver"`
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // sqlite only
}

// MetricsConfig controls the optional Prometheus endpoint (follow mode).
type MetricsConfig struct {
	Enabled bool   `json:"enabled"`
	Address string `json:"address,omitempty"` // default: 127.0.0.1:9464
	Token   string `json:"token,omitempty"`   // bearer token; never logged
	Pprof   bool   `json:"pprof,omitempty"`   // also serve /debug/pprof/
}

// HeartbeatConfig routes a SelfInfo message on a cron schedule while
// following, so a silent pipeline can be told apart from a dead one.
type HeartbeatConfig struct {
	Enabled   bool   `json:"enabled"`
	Schedule  string `json:"schedule"` // robfig/cron spec, e.g. "@every 1h" or "0 9 * * *"
	Title     string `json:"title,omitempty"`
	Component string `json:"component,omitempty"`
}

type RouterConfig struct {
	// Parallel dispatches each routing pass concurrently.
	Parallel bool `json:"parallel,omitempty"`
	// SendTimeout bounds every single send. "0s" disables it.
	SendTimeout string `json:"send_timeout,omitempty"`
}

// DestinationConfig describes one destination. Exactly the block matching
// Type must be set.
type DestinationConfig struct {
	ID          string           `json:"id"`
	Type        string           `json:"type"`
	RoutingType string           `json:"routing_type,omitempty"` // root | drain | additive (default)
	AppliesTo   *ConditionConfig `json:"applies_to,omitempty"`

	Retry *RetryConfig `json:"retry,omitempty"`
	Dedup *DedupConfig `json:"dedup,omitempty"`

	File     *FileConfig     `json:"file,omitempty"`
	Telegram *TelegramConfig `json:"telegram,omitempty"`
	Discord  *DiscordConfig  `json:"discord,omitempty"`
	Mail     *MailConfig     `json:"mail,omitempty"`
}

// ConditionConfig is a message filter. Empty fields do not constrain.
type ConditionConfig struct {
	Component string `json:"component,omitempty"`
	MinLevel  string `json:"min_level,omitempty"`
	MaxLevel  string `json:"max_level,omitempty"`
}

type RetryConfig struct {
	Max      int    `json:"max"`
	Base     string `json:"base,omitempty"`
	MaxDelay string `json:"max_delay,omitempty"`
}

type DedupConfig struct {
	Window     string `json:"window"`
	MaxEntries int    `json:"max_entries,omitempty"`
	Persist    bool   `json:"persist,omitempty"`
}

type FileConfig struct {
	Path string `json:"path"`
}

type TelegramConfig struct {
	Token    string `json:"token"`
	ChatID   int64  `json:"chat_id"`
	ThreadID int    `json:"thread_id,omitempty"`
	APIURL   string `json:"api_url,omitempty"`
}

type DiscordConfig struct {
	URL      string                `json:"url"`
	Username string                `json:"username,omitempty"`
	Notify   []DiscordNotifyConfig `json:"notify,omitempty"`
}

// DiscordNotifyConfig mentions Notify (e.g. "@here", "<@&role>") when the
// message matches the condition fields.
type DiscordNotifyConfig struct {
	ConditionConfig
	Notify string `json:"notify"`
}

type MailConfig struct {
	From    string      `json:"from"`
	To      string      `json:"to"`
	ReplyTo string      `json:"reply_to,omitempty"`
	Relay   RelayConfig `json:"relay"`
}

type RelayConfig struct {
	Host     string `json:"host"`
	Port     int    `json:"port,omitempty"`
	StartTLS bool   `json:"start_tls,omitempty"`
	Username string `json:"username,omitempty"`
	Password string `json:"password,omitempty"`
}
