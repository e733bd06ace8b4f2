// Package destinations implements the concrete delivery targets a router
// can send to (file, Telegram, Discord webhook, SMTP mail, Go channel) and
// the decorators that wrap them (retry, dedup).
//
// Every type here satisfies router.Destination.
package destinations
