package storage

import (
	"time"
)

// ProfileRecord is one persisted alert profile. Thresholds holds the JSON
// object produced by alert.EncodeThresholds.
type ProfileRecord struct {
	ID          uint      `gorm:"primaryKey" json:"-"`
	Owner       string    `gorm:"uniqueIndex:idx_owner_name;not null" json:"owner"`
	Name        string    `gorm:"uniqueIndex:idx_owner_name;not null" json:"name"`
	Location    string    `gorm:"not null" json:"location"`
	MinDuration int       `gorm:"not null;default:0" json:"min_duration"`
	Thresholds  string    `gorm:"type:text;not null" json:"thresholds"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (ProfileRecord) TableName() string {
	return "alert_profiles"
}
