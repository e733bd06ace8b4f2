// Package systemd reports service state to systemd through the sd_notify
// socket. Every call is a no-op when NOTIFY_SOCKET is unset.
package systemd

import (
	"context"
	"fmt"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
)

// notify is swapped in tests.
var notify = daemon.SdNotify

func send(state string) (bool, error) {
	return notify(false, state)
}

func Ready() (bool, error) { return send(daemon.SdNotifyReady) }

func Stopping() (bool, error) { return send(daemon.SdNotifyStopping) }

// Reloading must be followed by Ready once the new configuration is live.
func Reloading() (bool, error) {
	return send(fmt.Sprintf("%s\nMONOTONIC_USEC=%d", daemon.SdNotifyReloading, monotonicUsec()))
}

// Status sets the free-form status line shown by systemctl status.
func Status(s string) (bool, error) { return send("STATUS=" + s) }

// Watchdog pings the service watchdog at half the configured interval until
// ctx is done. It returns immediately when the watchdog is not enabled.
func Watchdog(ctx context.Context) error {
	interval, err := daemon.SdWatchdogEnabled(false)
	if err != nil || interval <= 0 {
		return err
	}
	t := time.NewTicker(interval / 2)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			if _, err := send(daemon.SdNotifyWatchdog); err != nil {
				return err
			}
		}
	}
}
