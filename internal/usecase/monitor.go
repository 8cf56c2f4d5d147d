package usecase

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/NasaVasa/pairalert/internal/domain"
	"github.com/NasaVasa/pairalert/internal/metrics"
	"go.uber.org/zap"
)

const (
	DefaultPollInterval = 5 * time.Second
	maxFetchFailures    = 3
)

var ErrDuplicateAlert = errors.New("duplicate alert")

type MonitorState string

const (
	StateRunning  MonitorState = "running"
	StateResolved MonitorState = "resolved"
	StateTimedOut MonitorState = "timed_out"
	StateFailed   MonitorState = "failed"
)

type SleepFunc func(ctx context.Context, d time.Duration) error

// Monitor polls one alert's metric until it crosses, expires or keeps failing.
type Monitor struct {
	store        domain.AlertStore
	market       domain.MarketData
	pollInterval time.Duration
	sleep        SleepFunc
	logger       *zap.Logger
}

func NewMonitor(store domain.AlertStore, market domain.MarketData, pollInterval time.Duration, logger *zap.Logger) *Monitor {
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}
	return &Monitor{
		store:        store,
		market:       market,
		pollInterval: pollInterval,
		sleep:        sleepContext,
		logger:       logger,
	}
}

// Begin records the alert with a TTL of maxTimeout minutes. It returns
// ErrDuplicateAlert when a live record already holds the key.
func (m *Monitor) Begin(ctx context.Context, key domain.AlertKey, maxTimeout int) error {
	if err := domain.ValidateTimeout(maxTimeout); err != nil {
		return err
	}
	created, err := m.store.PutIfAbsent(ctx, key, maxTimeout)
	if err != nil {
		return fmt.Errorf("record alert: %w", err)
	}
	if !created {
		return ErrDuplicateAlert
	}
	return nil
}

// Run is Begin followed by Watch.
func (m *Monitor) Run(ctx context.Context, conv domain.Conversation, key domain.AlertKey, maxTimeout int) (MonitorState, error) {
	if err := m.Begin(ctx, key, maxTimeout); err != nil {
		return StateRunning, err
	}
	return m.Watch(ctx, conv, key)
}

// Watch loops while the alert record is live. A store error ends the loop in
// StateRunning and is returned; it is never read as an expired alert.
func (m *Monitor) Watch(ctx context.Context, conv domain.Conversation, key domain.AlertKey) (MonitorState, error) {
	logger := m.logger.With(zap.String("alert", key.String()))
	logger.Info("monitor started")

	for {
		live, err := m.store.Exists(ctx, key)
		if err != nil {
			return StateRunning, fmt.Errorf("check alert liveness: %w", err)
		}
		if !live {
			m.notify(ctx, conv, fmt.Sprintf(
				"Timeout reached for alert on `%s` `%s`. `%s` did not go `%s` `%s`.",
				key.PairAddress, key.Metric, key.Metric, key.Direction, key.Threshold,
			))
			logger.Info("monitor timed out")
			return StateTimedOut, nil
		}

		value, ok, err := m.fetch(ctx, conv, key, logger)
		if err != nil {
			return StateRunning, err
		}
		if !ok {
			if err := m.store.Delete(ctx, key); err != nil {
				return StateFailed, fmt.Errorf("remove failed alert: %w", err)
			}
			m.notify(ctx, conv, fmt.Sprintf(
				"%d: Failed to fetch `%s` for `%s`. Alert removed.",
				maxFetchFailures, key.Metric, key.PairAddress,
			))
			logger.Error("monitor failed", zap.Int("attempts", maxFetchFailures))
			return StateFailed, nil
		}

		if key.Crossed(value) {
			if err := m.store.Delete(ctx, key); err != nil {
				return StateResolved, fmt.Errorf("remove resolved alert: %w", err)
			}
			m.notify(ctx, conv, fmt.Sprintf(
				"%s Alert! `%s` `%s` is now `%s` `%s`. Current value: `%s`.",
				conv.Mention(), key.PairAddress, key.Metric, key.Direction, key.Threshold, formatValue(value),
			))
			logger.Info("monitor resolved", zap.Float64("value", value))
			return StateResolved, nil
		}

		logger.Debug("threshold not crossed", zap.Float64("value", value))
		if err := m.sleep(ctx, m.pollInterval); err != nil {
			return StateRunning, err
		}
	}
}

// fetch retries a failing fetch up to maxFetchFailures consecutive times,
// sleeping pollInterval between attempts without rechecking liveness.
// ok is false once the failure budget is spent.
func (m *Monitor) fetch(ctx context.Context, conv domain.Conversation, key domain.AlertKey, logger *zap.Logger) (float64, bool, error) {
	for failures := 1; ; failures++ {
		value, err := m.market.FetchMetric(ctx, key.PairAddress, key.Metric)
		if err == nil {
			return value, true, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return 0, false, ctxErr
		}

		metrics.MetricFetchFailures.WithLabelValues(string(key.Metric)).Inc()
		logger.Warn("metric fetch failed", zap.Int("attempt", failures), zap.Error(err))
		if failures >= maxFetchFailures {
			return 0, false, nil
		}

		m.notify(ctx, conv, fmt.Sprintf("%d: Failed to fetch `%s` for `%s`. Retrying...", failures, key.Metric, key.PairAddress))
		if err := m.sleep(ctx, m.pollInterval); err != nil {
			return 0, false, err
		}
	}
}

func (m *Monitor) notify(ctx context.Context, conv domain.Notifier, text string) {
	if err := conv.Send(ctx, text); err != nil {
		m.logger.Warn("failed to notify", zap.Error(err))
	}
}

func formatValue(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
