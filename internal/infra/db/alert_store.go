package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/NasaVasa/pairalert/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AlertStore keeps alert records in a table with an explicit expiry column.
// Rows at or past expires_at are treated as absent by every read.
type AlertStore struct {
	db  *gorm.DB
	now func() time.Time
}

func NewAlertStore(db *gorm.DB) *AlertStore {
	return &AlertStore{db: db, now: time.Now}
}

func (s *AlertStore) Exists(ctx context.Context, key domain.AlertKey) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&alertRecordModel{}).
		Where("alert_key = ? AND expires_at > ?", key.String(), s.now().UTC()).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("alert exists: %w", err)
	}
	return count > 0, nil
}

func (s *AlertStore) Put(ctx context.Context, key domain.AlertKey, ttlMinutes int) error {
	model := s.newModel(key, ttlMinutes)
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "alert_key"}},
			DoUpdates: clause.AssignmentColumns([]string{"expires_at", "created_at"}),
		}).
		Create(&model).Error
	if err != nil {
		return fmt.Errorf("alert put: %w", err)
	}
	return nil
}

func (s *AlertStore) PutIfAbsent(ctx context.Context, key domain.AlertKey, ttlMinutes int) (bool, error) {
	model := s.newModel(key, ttlMinutes)
	created := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("alert_key = ? AND expires_at <= ?", model.AlertKey, model.CreatedAt).
			Delete(&alertRecordModel{}).Error; err != nil {
			return err
		}
		result := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&model)
		if result.Error != nil {
			return result.Error
		}
		created = result.RowsAffected == 1
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("alert put if absent: %w", err)
	}
	return created, nil
}

func (s *AlertStore) Delete(ctx context.Context, key domain.AlertKey) error {
	if err := s.db.WithContext(ctx).Where("alert_key = ?", key.String()).Delete(&alertRecordModel{}).Error; err != nil {
		return fmt.Errorf("alert delete: %w", err)
	}
	return nil
}

func (s *AlertStore) ListKeys(ctx context.Context, userID string) ([]domain.AlertKey, error) {
	var models []alertRecordModel
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND expires_at > ?", userID, s.now().UTC()).
		Order("alert_key").
		Find(&models).Error
	if err != nil {
		return nil, fmt.Errorf("alert list: %w", err)
	}
	keys := make([]domain.AlertKey, 0, len(models))
	for _, model := range models {
		key, err := domain.ParseAlertKey(model.AlertKey)
		if err != nil {
			continue
		}
		keys = append(keys, key)
	}
	return keys, nil
}

func (s *AlertStore) DeleteAll(ctx context.Context, userID, pairAddress string) (int, error) {
	query := s.db.WithContext(ctx).Where("user_id = ? AND expires_at > ?", userID, s.now().UTC())
	if pairAddress != "" {
		query = query.Where("pair_address = ?", pairAddress)
	}
	result := query.Delete(&alertRecordModel{})
	if result.Error != nil {
		return 0, fmt.Errorf("alert delete all: %w", result.Error)
	}
	return int(result.RowsAffected), nil
}

// PurgeExpired drops rows that are already invisible to reads.
func (s *AlertStore) PurgeExpired(ctx context.Context) (int64, error) {
	result := s.db.WithContext(ctx).Where("expires_at <= ?", s.now().UTC()).Delete(&alertRecordModel{})
	if result.Error != nil {
		return 0, fmt.Errorf("alert purge: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// RunPurger calls PurgeExpired every interval until ctx is done.
func (s *AlertStore) RunPurger(ctx context.Context, interval time.Duration, onError func(error)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.PurgeExpired(ctx); err != nil && !errors.Is(err, context.Canceled) && onError != nil {
				onError(err)
			}
		}
	}
}

func (s *AlertStore) newModel(key domain.AlertKey, ttlMinutes int) alertRecordModel {
	now := s.now().UTC()
	return alertRecordModel{
		AlertKey:    key.String(),
		UserID:      key.UserID,
		PairAddress: key.PairAddress,
		Metric:      string(key.Metric),
		Direction:   string(key.Direction),
		Threshold:   domain.FormatThreshold(key.Threshold),
		ExpiresAt:   now.Add(time.Duration(ttlMinutes) * time.Minute),
		CreatedAt:   now,
	}
}
