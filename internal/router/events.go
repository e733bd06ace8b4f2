package router

import "time"

// Event types published on the bus while routing.
const (
	EventDelivered        = "route.delivered"
	EventFailed           = "route.failed"
	EventEscalated        = "route.escalated"
	EventEscalationFailed = "route.escalation_failed"
	EventUnrouted         = "route.unrouted"
	EventCompleted        = "route.completed"
)

// Pass names which routing phase an attempt belongs to.
type Pass string

const (
	PassPrimary    Pass = "primary"
	PassDrain      Pass = "drain"
	PassEscalation Pass = "escalation"
)

// RouteEvent is the Data payload of every route.* event.
// Keep it small; subscribers may log or serialize it.
type RouteEvent struct {
	RouteID     string        `json:"route_id"`
	Destination string        `json:"destination,omitempty"`
	Pass        Pass          `json:"pass,omitempty"`
	Level       string        `json:"level"`
	Took        time.Duration `json:"took,omitempty"`
	Error       string        `json:"error,omitempty"`

	// Set on route.completed only.
	Successful int `json:"successful,omitempty"`
	Failed     int `json:"failed,omitempty"`
	Unreported int `json:"unreported,omitempty"`
}
