// Package sleep watches systemd-logind for suspend and resume.
package sleep

import (
	"log/slog"
	"time"

	"github.com/godbus/dbus/v5"

	"github.com/cptspacemanspiff/battery-monitor/internal/storage"
)

const (
	loginManager       = "org.freedesktop.login1.Manager"
	prepareForSleep    = loginManager + ".PrepareForSleep"
	prepareForShutdown = loginManager + ".PrepareForShutdown"
)

// Monitor listens for logind PrepareForSleep/PrepareForShutdown signals and
// reports each completed sleep on Wake so the daemon can re-read the
// batteries immediately instead of waiting for the next tick.
type Monitor struct {
	conn *dbus.Conn
	done chan struct{}
	wake chan storage.SleepEvent
	log  *slog.Logger
	now  func() time.Time

	sleepStart time.Time
	sleepType  string
}

// NewMonitor creates a monitor connected to the system bus.
func NewMonitor(logger *slog.Logger) (*Monitor, error) {
	conn, err := dbus.SystemBus()
	if err != nil {
		return nil, err
	}

	for _, member := range []string{"PrepareForSleep", "PrepareForShutdown"} {
		err = conn.AddMatchSignal(
			dbus.WithMatchInterface(loginManager),
			dbus.WithMatchMember(member),
		)
		if err != nil {
			return nil, err
		}
	}

	m := newMonitor(logger)
	m.conn = conn
	go m.listen()
	return m, nil
}

func newMonitor(logger *slog.Logger) *Monitor {
	return &Monitor{
		done: make(chan struct{}),
		wake: make(chan storage.SleepEvent, 1),
		log:  logger,
		now:  time.Now,
	}
}

// Wake receives one event each time the system resumes. A resume that
// arrives while the previous event is unread is dropped.
func (m *Monitor) Wake() <-chan storage.SleepEvent {
	return m.wake
}

// Close stops the monitor.
func (m *Monitor) Close() {
	close(m.done)
}

func (m *Monitor) listen() {
	ch := make(chan *dbus.Signal, 16)
	m.conn.Signal(ch)
	defer m.conn.RemoveSignal(ch)

	for {
		select {
		case sig := <-ch:
			m.handle(sig)
		case <-m.done:
			return
		}
	}
}

func (m *Monitor) handle(sig *dbus.Signal) {
	if sig == nil || len(sig.Body) < 1 {
		return
	}
	active, ok := sig.Body[0].(bool)
	if !ok {
		return
	}

	switch sig.Name {
	case prepareForShutdown:
		if active {
			m.log.Info("system preparing for shutdown/hibernate")
			m.sleepType = "shutdown"
		} else {
			m.log.Info("shutdown cancelled")
			m.sleepType = ""
		}
	case prepareForSleep:
		if active {
			m.log.Info("system going to sleep")
			m.sleepStart = m.now()
			if m.sleepType == "" {
				m.sleepType = "suspend"
			}
			return
		}

		wokeAt := m.now()
		event := storage.SleepEvent{SleepTime: wokeAt.Unix(), WakeTime: wokeAt.Unix(), Type: "unknown"}
		if !m.sleepStart.IsZero() {
			event.SleepTime = m.sleepStart.Unix()
			event.Type = m.sleepType
		}
		m.sleepStart, m.sleepType = time.Time{}, ""
		m.log.Info("system woke up", "slept_secs", event.WakeTime-event.SleepTime)

		select {
		case m.wake <- event:
		default:
		}
	}
}
