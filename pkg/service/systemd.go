package service

import (
	"context"
	"fmt"

	"github.com/coreos/go-systemd/v22/dbus"
	"go.uber.org/zap"
)

// Restarter restarts the service that consumes the env file
type Restarter interface {
	Restart(ctx context.Context, unit string) error
}

// unitConn is the subset of the systemd D-Bus connection used here
type unitConn interface {
	RestartUnitContext(ctx context.Context, name, mode string, ch chan<- string) (int, error)
	Close()
}

// SystemdRestarter restarts units through the systemd D-Bus API
type SystemdRestarter struct {
	dial func(ctx context.Context) (unitConn, error)
}

// NewSystemdRestarter connects to the system bus on every restart
func NewSystemdRestarter() *SystemdRestarter {
	return &SystemdRestarter{
		dial: func(ctx context.Context) (unitConn, error) {
			return dbus.NewWithContext(ctx)
		},
	}
}

// Restart queues a restart job in "replace" mode and waits for its result
func (r *SystemdRestarter) Restart(ctx context.Context, unit string) error {
	conn, err := r.dial(ctx)
	if err != nil {
		return fmt.Errorf("error connecting to systemd: %w", err)
	}
	defer conn.Close()

	done := make(chan string, 1)
	if _, err := conn.RestartUnitContext(ctx, unit, "replace", done); err != nil {
		return fmt.Errorf("error restarting %s: %w", unit, err)
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case result := <-done:
		if result != "done" {
			return fmt.Errorf("restart of %s finished with %q", unit, result)
		}
	}
	zap.S().Infof("Service %s restarted", unit)
	return nil
}
