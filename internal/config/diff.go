package config

import (
	"reflect"
	"sort"
	"strings"

	"notiroute/pkg/logx"
)

// SummarizeConfigChange lists the sections that differ between oldCfg and
// newCfg, plus log fields describing the new values. Tokens, passwords and
// webhook URLs never appear in the fields.
func SummarizeConfigChange(oldCfg, newCfg *Config) ([]string, []logx.Field) {
	if oldCfg == nil {
		oldCfg = &Config{}
	}
	if newCfg == nil {
		newCfg = &Config{}
	}

	var (
		changed []string
		fields  []logx.Field
	)

	if !reflect.DeepEqual(oldCfg.Logging, newCfg.Logging) {
		changed = append(changed, "logging")
		fields = append(fields,
			logx.String("logging.level", newCfg.Logging.Level),
			logx.Bool("logging.console", newCfg.Logging.Console),
			logx.Bool("logging.file_enabled", newCfg.Logging.File.Enabled),
		)
	}

	if !reflect.DeepEqual(oldCfg.Router, newCfg.Router) {
		changed = append(changed, "router")
		fields = append(fields,
			logx.Bool("router.parallel", newCfg.Router.Parallel),
			logx.String("router.send_timeout", strings.TrimSpace(newCfg.Router.SendTimeout)),
		)
	}

	if !reflect.DeepEqual(oldCfg.Storage, newCfg.Storage) {
		changed = append(changed, "storage")
		driver := "none"
		if newCfg.Storage != nil && strings.TrimSpace(newCfg.Storage.Driver) != "" {
			driver = strings.TrimSpace(newCfg.Storage.Driver)
		}
		fields = append(fields, logx.String("storage.driver", driver))
	}

	if !reflect.DeepEqual(oldCfg.Metrics, newCfg.Metrics) {
		changed = append(changed, "metrics")
		m := newCfg.Metrics
		if m == nil {
			m = &MetricsConfig{}
		}
		fields = append(fields,
			logx.Bool("metrics.enabled", m.Enabled),
			logx.String("metrics.address", m.Address),
			logx.Bool("metrics.token_set", strings.TrimSpace(m.Token) != ""),
			logx.Bool("metrics.pprof", m.Pprof),
		)
	}

	if !reflect.DeepEqual(oldCfg.Heartbeat, newCfg.Heartbeat) {
		changed = append(changed, "heartbeat")
		h := newCfg.Heartbeat
		if h == nil {
			h = &HeartbeatConfig{}
		}
		fields = append(fields,
			logx.Bool("heartbeat.enabled", h.Enabled),
			logx.String("heartbeat.schedule", h.Schedule),
		)
	}

	if ids := diffDestinations(oldCfg.Destinations, newCfg.Destinations); len(ids) > 0 {
		changed = append(changed, "destinations")
		fields = append(fields,
			logx.Int("destinations.count", len(newCfg.Destinations)),
			logx.String("destinations.changed", strings.Join(ids, ",")),
		)
	}

	sort.Strings(changed)
	return changed, fields
}

// diffDestinations returns the sorted ids that were added, removed or
// modified. Ordering changes alone are not reported.
func diffDestinations(oldD, newD []DestinationConfig) []string {
	index := func(ds []DestinationConfig) map[string]DestinationConfig {
		out := make(map[string]DestinationConfig, len(ds))
		for _, d := range ds {
			out[d.ID] = d
		}
		return out
	}
	o, n := index(oldD), index(newD)

	var ids []string
	for id, od := range o {
		nd, ok := n[id]
		if !ok || hashConfig(&Config{Destinations: []DestinationConfig{od}}) != hashConfig(&Config{Destinations: []DestinationConfig{nd}}) {
			ids = append(ids, id)
		}
	}
	for id := range n {
		if _, ok := o[id]; !ok {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}
