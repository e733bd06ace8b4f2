package router

import "notiroute/internal/message"

// MessageCondition filters messages by component and level range.
//
// A zero MinLevel or MaxLevel means the range is open on that side, so the
// zero value matches every message.
type MessageCondition struct {
	// Component, if set, requires the message component to be present and
	// to be a child of (or equal to) this component.
	Component *message.Component
	MinLevel  message.Level
	MaxLevel  message.Level
}

func OfComponent(c string) MessageCondition {
	return MessageCondition{Component: message.NewComponent(c)}
}

func OfMin(l message.Level) MessageCondition { return MessageCondition{MinLevel: l} }

func OfMax(l message.Level) MessageCondition { return MessageCondition{MaxLevel: l} }

func (c MessageCondition) min() message.Level {
	if c.MinLevel == 0 {
		return message.MinLevel()
	}
	return c.MinLevel
}

func (c MessageCondition) max() message.Level {
	if c.MaxLevel == 0 {
		return message.MaxLevel()
	}
	return c.MaxLevel
}

func (c MessageCondition) Matches(m *message.Message) bool {
	if m == nil {
		return false
	}
	if c.Component != nil {
		if m.Component == nil || !m.Component.IsChildOf(*c.Component) {
			return false
		}
	}
	return c.min() <= m.Level && m.Level <= c.max()
}

// RoutingInfo is the routing policy attached to a destination.
type RoutingInfo struct {
	Behaviour RoutingBehaviour
	// Condition is optional; nil matches every message.
	Condition *MessageCondition
}

func RootRouting() RoutingInfo { return RoutingInfo{Behaviour: Root} }

func (r RoutingInfo) AppliesTo(m *message.Message) bool {
	if r.Condition == nil {
		return m != nil
	}
	return r.Condition.Matches(m)
}
