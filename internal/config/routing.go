package config

import (
	"errors"
	"fmt"
	"strings"

	"notiroute/internal/message"
	"notiroute/internal/router"
)

// Condition converts c; nil yields nil (match everything).
func (c *ConditionConfig) Condition(path string) (*router.MessageCondition, error) {
	if c == nil {
		return nil, nil
	}
	var out router.MessageCondition
	if s := strings.TrimSpace(c.Component); s != "" {
		out.Component = message.NewComponent(s)
	}
	var err error
	if out.MinLevel, err = parseOptionalLevel(path+".min_level", c.MinLevel); err != nil {
		return nil, err
	}
	if out.MaxLevel, err = parseOptionalLevel(path+".max_level", c.MaxLevel); err != nil {
		return nil, err
	}
	if out.MinLevel != 0 && out.MaxLevel != 0 && out.MinLevel > out.MaxLevel {
		return nil, fmt.Errorf("%s: min_level %s is above max_level %s", path, out.MinLevel, out.MaxLevel)
	}
	return &out, nil
}

func parseOptionalLevel(path, raw string) (message.Level, error) {
	if strings.TrimSpace(raw) == "" {
		return 0, nil
	}
	l, err := message.ParseLevel(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", path, err)
	}
	return l, nil
}

// Routing returns the routing policy of d.
func (d DestinationConfig) Routing(path string) (router.RoutingInfo, error) {
	b, err := router.ParseBehaviour(d.RoutingType)
	if err != nil {
		return router.RoutingInfo{}, fmt.Errorf("%s.routing_type: %w", path, err)
	}
	cond, err := d.AppliesTo.Condition(path + ".applies_to")
	if err != nil {
		return router.RoutingInfo{}, err
	}
	return router.RoutingInfo{Behaviour: b, Condition: cond}, nil
}

// Validate checks what can be checked without building destinations.
// Duplicate ids are reported through warnings, not as an error: they only
// make reports harder to read.
func Validate(cfg *Config) (warnings []string, err error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	var errs []error
	if _, err := Duration("router.send_timeout", cfg.Router.SendTimeout); err != nil {
		errs = append(errs, err)
	}
	if cfg.Heartbeat != nil && cfg.Heartbeat.Enabled && strings.TrimSpace(cfg.Heartbeat.Schedule) == "" {
		errs = append(errs, errors.New("heartbeat.schedule is required when heartbeat is enabled"))
	}

	seen := map[string]bool{}
	roots := 0
	for i, d := range cfg.Destinations {
		path := fmt.Sprintf("destinations[%d]", i)
		if strings.TrimSpace(d.ID) == "" {
			errs = append(errs, fmt.Errorf("%s.id is required", path))
		} else if seen[d.ID] {
			warnings = append(warnings, fmt.Sprintf("duplicate destination id %q", d.ID))
		}
		seen[d.ID] = true

		ri, err := d.Routing(path)
		if err != nil {
			errs = append(errs, err)
		} else if ri.Behaviour == router.Root {
			roots++
		}
		if err := d.checkKind(path); err != nil {
			errs = append(errs, err)
		}
		if d.Retry != nil {
			if _, err := Duration(path+".retry.base", d.Retry.Base); err != nil {
				errs = append(errs, err)
			}
			if _, err := Duration(path+".retry.max_delay", d.Retry.MaxDelay); err != nil {
				errs = append(errs, err)
			}
		}
		if d.Dedup != nil {
			if _, err := Duration(path+".dedup.window", d.Dedup.Window); err != nil {
				errs = append(errs, err)
			}
		}
	}
	if len(cfg.Destinations) > 0 && roots == 0 {
		warnings = append(warnings, "no root destination: delivery failures cannot be escalated")
	}
	return warnings, errors.Join(errs...)
}

func (d DestinationConfig) checkKind(path string) error {
	present := map[string]bool{
		"file":     d.File != nil,
		"telegram": d.Telegram != nil,
		"discord":  d.Discord != nil,
		"mail":     d.Mail != nil,
	}
	typ := strings.ToLower(strings.TrimSpace(d.Type))
	if _, ok := present[typ]; !ok {
		return fmt.Errorf("%s.type: unknown destination type %q", path, d.Type)
	}
	if !present[typ] {
		return fmt.Errorf("%s: type %s requires a %q block", path, typ, typ)
	}
	for k, set := range present {
		if set && k != typ {
			return fmt.Errorf("%s: %q block is not allowed for type %s", path, k, typ)
		}
	}
	return nil
}
