package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// JSONB maps a Go map onto a postgres jsonb column.
type JSONB map[string]interface{}

func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, j)
	case string:
		return json.Unmarshal([]byte(v), j)
	}
	return errors.New("unsupported jsonb source type")
}

// ActivityLogModel represents the database model for ActivityLog. Rows are
// append-only; there is no updated_at.
type ActivityLogModel struct {
	ID          uuid.UUID  `gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	UserID      *uuid.UUID `gorm:"type:uuid;index"`
	ShopID      *uuid.UUID `gorm:"type:uuid;index"`
	DeviceID    *uuid.UUID `gorm:"type:uuid;index"`
	Action      string     `gorm:"type:varchar(50);not null;index"`
	Description string     `gorm:"type:text;not null"`
	Category    string     `gorm:"type:varchar(50);not null;index"`
	PerformedBy uuid.UUID  `gorm:"type:uuid;not null;index"`
	IPAddress   *string    `gorm:"type:varchar(45)"`
	UserAgent   *string    `gorm:"type:text"`
	Severity    string     `gorm:"type:varchar(20);not null;default:'low'"`
	Metadata    JSONB      `gorm:"type:jsonb"`
	CreatedAt   time.Time  `gorm:"not null;index"`
}

func (ActivityLogModel) TableName() string {
	return "activity_logs"
}
