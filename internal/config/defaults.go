package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// DefaultFileName is looked up in the home directory when no -config flag
// is given.
const DefaultFileName = ".notiroute.yaml"

// DefaultPath returns $HOME/.notiroute.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("locate home directory: %w", err)
	}
	return filepath.Join(home, DefaultFileName), nil
}

// Default is the configuration written on first run: one root file
// destination, so every message and every failure report lands somewhere.
func Default(logPath string) *Config {
	return &Config{
		Logging: LoggingConfig{Level: "warn", Console: true},
		Router:  RouterConfig{SendTimeout: "30s"},
		Destinations: []DestinationConfig{{
			ID:          "log_file",
			Type:        "file",
			RoutingType: "root",
			File:        &FileConfig{Path: logPath},
		}},
	}
}

const defaultYAML = `# notiroute configuration.
logging:
  level: warn
  console: true
  file:
    enabled: false
    path: ""

router:
  parallel: false
  send_timeout: 30s

# storage:   { driver: file, path: ~/.notiroute/state }   # file | sqlite | none
# metrics:   { enabled: false, address: 127.0.0.1:9464 }
# heartbeat: { enabled: false, schedule: "@every 1h" }

destinations:
  # Root destinations receive every message and every delivery failure report.
  - id: log_file
    type: file
    routing_type: root
    file:
      path: %s

  # - id: discord
  #   type: discord            # additive by default
  #   applies_to: { min_level: warn }
  #   retry: { max: 2, base: 500ms }
  #   discord:
  #     url: https://discord.com/api/webhooks/...
  #     notify: [{ min_level: error, notify: "@here" }]
  #
  # - id: catch_all
  #   type: telegram
  #   routing_type: drain      # only when nothing else took the message
  #   telegram: { token: "123:abc", chat_id: 42 }
`

// WriteDefault creates path with the default configuration. It never
// overwrites an existing file. The log file is placed next to the config.
func WriteDefault(path string) (*Config, error) {
	logPath := filepath.Join(filepath.Dir(path), "notiroute.log")
	cfg := Default(logPath)

	var data []byte
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data = []byte(fmt.Sprintf(defaultYAML, strconv.Quote(logPath)))
	default:
		b, err := json.MarshalIndent(cfg, "", "  ")
		if err != nil {
			return nil, err
		}
		data = append(b, '\n')
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("config %s already exists", path)
		}
		return nil, err
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return nil, err
	}
	return cfg, f.Close()
}
