package app

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"notiroute/internal/config"
	"notiroute/internal/destinations"
	"notiroute/internal/metrics"
	"notiroute/internal/router"
	"notiroute/internal/storage"
	"notiroute/pkg/logx"
)

// BuildRegistry constructs every configured destination, wraps it with its
// retry and dedup decorators and returns them in config order.
func BuildRegistry(cfg *config.Config, store storage.Store, log logx.Logger) (*router.Registry, error) {
	reg := router.NewRegistry()
	for i, dc := range cfg.Destinations {
		path := fmt.Sprintf("destinations[%d]", i)
		ri, err := dc.Routing(path)
		if err != nil {
			return nil, err
		}
		dest, err := buildDestination(dc, path)
		if err != nil {
			return nil, fmt.Errorf("%s (%s): %w", path, dc.ID, err)
		}
		dlog := log.With(logx.String("destination", dc.ID))

		// dedup wraps retry so a suppressed message costs no attempts
		if dc.Retry != nil && dc.Retry.Max > 0 {
			rc, err := mapRetry(dc.Retry, path)
			if err != nil {
				return nil, err
			}
			dest = destinations.Retry(dest, rc, dlog)
		}
		if dc.Dedup != nil {
			dd, err := mapDedup(dc.Dedup, path)
			if err != nil {
				return nil, err
			}
			if dd.Window > 0 {
				dest = destinations.Dedup(dc.ID, dest, dd, store, dlog)
			}
		}

		reg.Add(router.RoutedDestination{ID: dc.ID, Destination: dest, Routing: ri})
	}
	return reg, nil
}

func buildDestination(dc config.DestinationConfig, path string) (router.Destination, error) {
	switch strings.ToLower(strings.TrimSpace(dc.Type)) {
	case "file":
		if dc.File == nil {
			return nil, fmt.Errorf("%s.file is required", path)
		}
		return destinations.NewFile(expandHome(dc.File.Path))
	case "telegram":
		if dc.Telegram == nil {
			return nil, fmt.Errorf("%s.telegram is required", path)
		}
		return destinations.NewTelegram(destinations.TelegramConfig{
			Token:    dc.Telegram.Token,
			ChatID:   dc.Telegram.ChatID,
			ThreadID: dc.Telegram.ThreadID,
			APIURL:   dc.Telegram.APIURL,
		})
	case "discord":
		if dc.Discord == nil {
			return nil, fmt.Errorf("%s.discord is required", path)
		}
		notify := make([]destinations.DiscordNotify, 0, len(dc.Discord.Notify))
		for j, n := range dc.Discord.Notify {
			cond, err := n.ConditionConfig.Condition(fmt.Sprintf("%s.discord.notify[%d]", path, j))
			if err != nil {
				return nil, err
			}
			notify = append(notify, destinations.DiscordNotify{Condition: *cond, Mention: n.Notify})
		}
		return destinations.NewDiscord(destinations.DiscordConfig{
			URL:      dc.Discord.URL,
			Username: dc.Discord.Username,
			Notify:   notify,
		})
	case "mail":
		if dc.Mail == nil {
			return nil, fmt.Errorf("%s.mail is required", path)
		}
		r := dc.Mail.Relay
		return destinations.NewMail(destinations.MailConfig{
			From:    dc.Mail.From,
			To:      dc.Mail.To,
			ReplyTo: dc.Mail.ReplyTo,
			Relay: destinations.Relay{
				Host:     r.Host,
				Port:     r.Port,
				StartTLS: r.StartTLS,
				Username: r.Username,
				Password: r.Password,
			},
		})
	default:
		return nil, fmt.Errorf("%s.type: unknown destination type %q", path, dc.Type)
	}
}

func mapRetry(rc *config.RetryConfig, path string) (destinations.RetryConfig, error) {
	base, err := config.Duration(path+".retry.base", rc.Base)
	if err != nil {
		return destinations.RetryConfig{}, err
	}
	maxDelay, err := config.Duration(path+".retry.max_delay", rc.MaxDelay)
	if err != nil {
		return destinations.RetryConfig{}, err
	}
	return destinations.RetryConfig{Max: rc.Max, Base: base, MaxDelay: maxDelay}, nil
}

func mapDedup(dc *config.DedupConfig, path string) (destinations.DedupConfig, error) {
	window, err := config.Duration(path+".dedup.window", dc.Window)
	if err != nil {
		return destinations.DedupConfig{}, err
	}
	return destinations.DedupConfig{Window: window, MaxEntries: dc.MaxEntries, Persist: dc.Persist}, nil
}

func mapStorage(cfg *config.Config) (storage.Config, error) {
	if cfg.Storage == nil {
		return storage.Config{}, nil
	}
	busy, err := config.Duration("storage.busy_timeout", cfg.Storage.BusyTimeout)
	if err != nil {
		return storage.Config{}, err
	}
	if busy == 0 {
		busy = time.Second
	}
	return storage.Config{
		Driver:      strings.ToLower(strings.TrimSpace(cfg.Storage.Driver)),
		Path:        expandHome(cfg.Storage.Path),
		BusyTimeout: busy,
	}, nil
}

func mapMetrics(cfg *config.Config) metrics.ServerConfig {
	if cfg.Metrics == nil {
		return metrics.ServerConfig{}
	}
	return metrics.ServerConfig{
		Enabled:      cfg.Metrics.Enabled,
		Addr:         strings.TrimSpace(cfg.Metrics.Address),
		Token:        strings.TrimSpace(cfg.Metrics.Token),
		Pprof:        cfg.Metrics.Pprof,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
}

func mapLogging(cfg *config.Config, verbose bool) logx.Config {
	lc := logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File:    logx.FileConfig{Enabled: cfg.Logging.File.Enabled, Path: expandHome(cfg.Logging.File.Path)},
	}
	if verbose {
		lc.Level = "debug"
		lc.Console = true
	}
	return lc
}

func routerOptions(cfg *config.Config) ([]router.Option, error) {
	timeout, err := config.Duration("router.send_timeout", cfg.Router.SendTimeout)
	if err != nil {
		return nil, err
	}
	return []router.Option{router.WithParallel(cfg.Router.Parallel), router.WithSendTimeout(timeout)}, nil
}

// expandHome resolves a leading "~/" against the home directory.
func expandHome(p string) string {
	p = strings.TrimSpace(p)
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~"))
}
