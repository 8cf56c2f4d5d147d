package db

import "time"

type alertRecordModel struct {
	AlertKey    string    `gorm:"column:alert_key;primaryKey;size:512"`
	UserID      string    `gorm:"index:idx_alert_records_user_expires,priority:1;not null"`
	PairAddress string    `gorm:"not null"`
	Metric      string    `gorm:"not null"`
	Direction   string    `gorm:"not null"`
	Threshold   string    `gorm:"not null"`
	ExpiresAt   time.Time `gorm:"index:idx_alert_records_user_expires,priority:2;index;not null"`
	CreatedAt   time.Time
}

func (alertRecordModel) TableName() string {
	return "alert_records"
}
