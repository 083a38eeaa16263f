package conn

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"querybridge/internal/driver"
	"querybridge/internal/result"
)

// State is the explicit connection lifecycle value. Callers outside this
// package only ever see the boolean projection via Connected().
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateFailed:
		return "failed"
	default:
		return "disconnected"
	}
}

// Manager owns the lifecycle of one database connection: validation,
// bounded retry with fixed backoff, and health probing. The fixed
// count/delay policy targets a local or adjacent database, keeping
// worst-case startup latency at attempts x delay.
type Manager struct {
	drv      driver.Driver
	cfg      Config
	attempts int
	delay    time.Duration

	// connectMu single-flights connect attempts. It is never required by
	// Handle or Disconnect, so a retry sleep cannot stall reads of
	// already-staged results or fast-failing operations.
	connectMu sync.Mutex

	mu    sync.Mutex
	state State
}

// NewManager wires a driver to the retry policy. attempts is the total
// retry budget (3 by default upstream), delay the fixed pause between
// failed attempts.
func NewManager(drv driver.Driver, cfg Config, attempts int, delay time.Duration) *Manager {
	if attempts < 1 {
		attempts = 1
	}
	return &Manager{
		drv:      drv,
		cfg:      cfg,
		attempts: attempts,
		delay:    delay,
	}
}

// Connect validates config, then opens and probes the connection,
// retrying transient failures in a bounded loop. Validation failure is
// synchronous and does not consume the retry budget.
func (m *Manager) Connect(ctx context.Context) error {
	if err := m.cfg.Validate(); err != nil {
		return err
	}

	m.connectMu.Lock()
	defer m.connectMu.Unlock()

	// Another caller may have finished connecting while we waited.
	if m.State() == StateConnected {
		return nil
	}

	m.setState(StateConnecting)
	slog.Info("Connecting to database",
		"driver", m.drv.Name(),
		"host", m.cfg.Host,
		"port", m.cfg.Port,
		"database", m.cfg.Database,
	)

	var lastErr error
	for attempt := 1; attempt <= m.attempts; attempt++ {
		err := m.drv.Ping(ctx)
		if err == nil {
			m.setState(StateConnected)
			slog.Info("Database connected", "driver", m.drv.Name(), "attempt", attempt)
			return nil
		}
		lastErr = err

		if attempt == m.attempts {
			break
		}

		slog.Warn("Connection attempt failed, retrying",
			"attempt", attempt,
			"remaining", m.attempts-attempt,
			"delay", m.delay,
			"error", err,
		)

		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			m.setState(StateFailed)
			return fmt.Errorf("connect aborted: %w", ctx.Err())
		}
	}

	m.setState(StateFailed)
	slog.Error("Connection attempts exhausted", "attempts", m.attempts, "error", lastErr)
	return fmt.Errorf("%w: %d attempts: %w", result.ErrConnectionExhausted, m.attempts, lastErr)
}

// Disconnect releases the underlying connection if one exists. Calling
// it while already disconnected is a no-op success.
func (m *Manager) Disconnect() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state == StateDisconnected {
		return nil
	}

	err := m.drv.Close()
	m.state = StateDisconnected
	slog.Info("Database disconnected", "driver", m.drv.Name())
	return err
}

// HealthCheck probes the live connection, reconnecting first if needed.
// Any failure flips the state back to disconnected so the next
// operation re-attempts connection rather than using a stale handle.
func (m *Manager) HealthCheck(ctx context.Context) result.HealthStatus {
	if m.State() != StateConnected {
		if err := m.Connect(ctx); err != nil {
			return result.HealthStatus{Connected: false, Error: err.Error()}
		}
	}

	if err := m.drv.Ping(ctx); err != nil {
		m.setState(StateDisconnected)
		return result.HealthStatus{Connected: false, Error: err.Error()}
	}

	return result.HealthStatus{Connected: true}
}

// Handle returns the live driver for the executor. The handle is never
// exposed while connecting or failed.
func (m *Manager) Handle() (driver.Driver, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != StateConnected {
		return nil, fmt.Errorf("%w: state is %s", result.ErrNotConnected, m.state)
	}
	return m.drv, nil
}

// DriverName reports which backing driver is wired, for callers that
// pick catalog SQL dialects. It does not expose the handle.
func (m *Manager) DriverName() string {
	return m.drv.Name()
}

// Connected is the boolean projection read by the service facade.
func (m *Manager) Connected() bool {
	return m.State() == StateConnected
}

// State returns the current lifecycle value.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Manager) setState(s State) {
	m.mu.Lock()
	m.state = s
	m.mu.Unlock()
}
