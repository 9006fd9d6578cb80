package repositories

import (
	"context"
	"encoding/json"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/you/marketauth/domain"
)

// SecurityLogRepositoryImpl implements domain.SecurityLogRepository
type SecurityLogRepositoryImpl struct {
	db *gorm.DB
}

// DBSecurityLog represents one audit row
type DBSecurityLog struct {
	ID        uint   `gorm:"primaryKey"`
	UserID    *uint  `gorm:"index"`
	Action    string `gorm:"index;size:32"`
	IPAddress string `gorm:"size:45"`
	Metadata  datatypes.JSON
	CreatedAt time.Time `gorm:"index"`
}

// TableName returns the table name for GORM
func (DBSecurityLog) TableName() string {
	return "security_logs"
}

// NewSecurityLogRepository creates a new security log repository
func NewSecurityLogRepository(db *gorm.DB) domain.SecurityLogRepository {
	return &SecurityLogRepositoryImpl{db: db}
}

// Log implements domain.SecurityLogRepository
func (r *SecurityLogRepositoryImpl) Log(ctx context.Context, event *domain.SecurityEvent) error {
	var metadata datatypes.JSON
	if event.Metadata != nil {
		data, err := json.Marshal(event.Metadata)
		if err != nil {
			return err
		}
		metadata = data
	}

	return r.db.WithContext(ctx).Create(&DBSecurityLog{
		UserID:    event.UserID,
		Action:    event.Action,
		IPAddress: event.IPAddress,
		Metadata:  metadata,
	}).Error
}
