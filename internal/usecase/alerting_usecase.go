package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/NasaVasa/pairalert/internal/domain"
	"github.com/NasaVasa/pairalert/internal/metrics"
	"go.uber.org/zap"
)

const stopTimeout = 5 * time.Second

// AlertingManager runs one monitor goroutine per alert and stops them on shutdown.
type AlertingManager struct {
	monitor *Monitor
	logger  *zap.Logger

	mu      sync.Mutex
	nextID  uint64
	runners map[uint64]*monitorRunner
}

type monitorRunner struct {
	key    domain.AlertKey
	cancel context.CancelFunc
	done   chan struct{}
}

func NewAlertingManager(monitor *Monitor, logger *zap.Logger) *AlertingManager {
	return &AlertingManager{
		monitor: monitor,
		logger:  logger,
		runners: make(map[uint64]*monitorRunner),
	}
}

// Launch watches an alert already recorded with Monitor.Begin. onDone, when
// set, receives the terminal state after the goroutine finishes.
func (m *AlertingManager) Launch(ctx context.Context, conv domain.Conversation, key domain.AlertKey, onDone func(MonitorState, error)) {
	childCtx, cancel := context.WithCancel(ctx)
	runner := &monitorRunner{key: key, cancel: cancel, done: make(chan struct{})}

	m.mu.Lock()
	m.nextID++
	id := m.nextID
	m.runners[id] = runner
	m.mu.Unlock()

	metrics.AlertsCreated.Inc()
	metrics.AlertsActive.Inc()

	go func() {
		defer close(runner.done)
		defer cancel()
		defer func() {
			m.mu.Lock()
			delete(m.runners, id)
			m.mu.Unlock()
			metrics.AlertsActive.Dec()
		}()

		state, err := m.monitor.Watch(childCtx, conv, key)
		switch {
		case err != nil && childCtx.Err() != nil:
			m.logger.Info("monitor stopped", zap.String("alert", key.String()))
		case err != nil:
			m.logger.Error("monitor aborted", zap.String("alert", key.String()), zap.String("state", string(state)), zap.Error(err))
			metrics.RecordAlertFinished("error")
		default:
			metrics.RecordAlertFinished(string(state))
		}
		if onDone != nil {
			onDone(state, err)
		}
	}()
}

func (m *AlertingManager) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.runners)
}

// StopAll cancels every monitor and waits for each up to stopTimeout.
// Records stay in the store and expire on their own.
func (m *AlertingManager) StopAll() {
	m.mu.Lock()
	runners := make([]*monitorRunner, 0, len(m.runners))
	for _, runner := range m.runners {
		runners = append(runners, runner)
	}
	m.mu.Unlock()

	for _, runner := range runners {
		runner.cancel()
		select {
		case <-runner.done:
		case <-time.After(stopTimeout):
			m.logger.Warn("timeout stopping monitor", zap.String("alert", runner.key.String()))
		}
	}
}
