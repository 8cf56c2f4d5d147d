package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/NasaVasa/pairalert/internal/domain"
	"go.uber.org/zap"
)

var (
	ErrEmptyQuery    = errors.New("empty query")
	ErrMissingTarget = errors.New("missing remove target")
)

// RemoveAllTarget removes every alert of the user.
const RemoveAllTarget = "all"

type AlertUsecase struct {
	store      domain.AlertStore
	selector   *Selector
	monitor    *Monitor
	alerting   *AlertingManager
	maxTimeout int
	logger     *zap.Logger
}

func NewAlertUsecase(store domain.AlertStore, selector *Selector, monitor *Monitor, alerting *AlertingManager, maxTimeout int, logger *zap.Logger) *AlertUsecase {
	return &AlertUsecase{
		store:      store,
		selector:   selector,
		monitor:    monitor,
		alerting:   alerting,
		maxTimeout: maxTimeout,
		logger:     logger,
	}
}

// SetAlert runs the selection dialogue for query and starts a monitor for
// the result. Monitoring continues in the background under monitorCtx.
func (u *AlertUsecase) SetAlert(ctx, monitorCtx context.Context, conv domain.Conversation, userID, query string) (domain.AlertKey, error) {
	query = strings.Join(strings.Fields(query), " ")
	if query == "" {
		return domain.AlertKey{}, ErrEmptyQuery
	}
	if err := domain.ValidateTimeout(u.maxTimeout); err != nil {
		return domain.AlertKey{}, err
	}

	selection, err := u.selector.Select(ctx, conv, query)
	if err != nil {
		return domain.AlertKey{}, err
	}

	key := domain.AlertKey{
		UserID:      userID,
		PairAddress: selection.Pair.PairAddress,
		Metric:      selection.Metric,
		Direction:   selection.Direction,
		Threshold:   selection.Threshold,
	}
	if err := key.Validate(); err != nil {
		return domain.AlertKey{}, err
	}

	exists, err := u.store.Exists(ctx, key)
	if err != nil {
		return domain.AlertKey{}, fmt.Errorf("check duplicate: %w", err)
	}
	if exists {
		return key, ErrDuplicateAlert
	}
	if err := u.monitor.Begin(ctx, key, u.maxTimeout); err != nil {
		return key, err
	}

	if err := conv.Send(ctx, fmt.Sprintf(
		"Alert set for pair `%s`: `%s` going `%s` `%s`. Timeout: `%d` minutes.",
		key.PairAddress, key.Metric, key.Direction, key.Threshold, u.maxTimeout,
	)); err != nil {
		u.logger.Warn("failed to send confirmation", zap.Error(err))
	}
	u.logger.Info("alert set",
		zap.String("user_id", userID),
		zap.String("pair_address", key.PairAddress),
		zap.String("metric", string(key.Metric)),
		zap.String("direction", string(key.Direction)),
		zap.String("threshold", key.Threshold.String()),
		zap.Int("timeout_minutes", u.maxTimeout),
	)

	u.alerting.Launch(monitorCtx, conv, key, nil)
	return key, nil
}

// RemoveAlerts deletes the user's alerts for one pair, or all of them for RemoveAllTarget.
func (u *AlertUsecase) RemoveAlerts(ctx context.Context, userID, target string) (int, error) {
	target = strings.TrimSpace(target)
	if target == "" {
		return 0, ErrMissingTarget
	}
	pairAddress := target
	if target == RemoveAllTarget {
		pairAddress = ""
	}
	removed, err := u.store.DeleteAll(ctx, userID, pairAddress)
	if err != nil {
		return 0, fmt.Errorf("remove alerts: %w", err)
	}
	u.logger.Info("alerts removed", zap.String("user_id", userID), zap.String("target", target), zap.Int("count", removed))
	return removed, nil
}

// ListAlerts returns the user's live alerts ordered by key.
func (u *AlertUsecase) ListAlerts(ctx context.Context, userID string) ([]domain.AlertKey, error) {
	keys, err := u.store.ListKeys(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list alerts: %w", err)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
	return keys, nil
}
