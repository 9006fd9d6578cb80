package repositories

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/you/marketauth/domain"
)

// VerificationTokenRepositoryImpl implements
// domain.VerificationTokenRepository using GORM
type VerificationTokenRepositoryImpl struct {
	db *gorm.DB
}

// DBVerificationToken represents the database model for VerificationToken
type DBVerificationToken struct {
	ID                    uint   `gorm:"primaryKey"`
	UserID                uint   `gorm:"index:idx_vtokens_user_purpose"`
	Email                 string `gorm:"size:255"`
	Phone                 string `gorm:"size:32"`
	Token                 string `gorm:"uniqueIndex;size:128"`
	Purpose               string `gorm:"index:idx_vtokens_user_purpose;size:32"`
	Attempts              int
	ExpiresAt             time.Time `gorm:"index"`
	IsUsed                bool      `gorm:"index"`
	UsedAt                *time.Time
	RequiresAdminApproval bool
	ApprovedBy            *uint
	IPAddress             string `gorm:"size:45"`
	UserAgent             string
	CreatedAt             time.Time
}

// TableName returns the table name for GORM
func (DBVerificationToken) TableName() string {
	return "verification_tokens"
}

// NewVerificationTokenRepository creates a new verification token repository
func NewVerificationTokenRepository(db *gorm.DB) domain.VerificationTokenRepository {
	return &VerificationTokenRepositoryImpl{db: db}
}

// Create implements domain.VerificationTokenRepository. Prior unused tokens
// of the same (user, purpose) are removed in the same transaction, so only
// one live token exists per pair.
func (r *VerificationTokenRepositoryImpl) Create(ctx context.Context, token *domain.VerificationToken) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ? AND purpose = ? AND is_used = ?",
			token.UserID, token.Purpose, false).
			Delete(&DBVerificationToken{}).Error; err != nil {
			return err
		}

		dbToken := r.domainToDB(token)
		if err := tx.Create(dbToken).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return domain.ErrDuplicateToken
			}
			return err
		}
		token.ID = dbToken.ID
		return nil
	})
}

// FindByID implements domain.VerificationTokenRepository
func (r *VerificationTokenRepositoryImpl) FindByID(ctx context.Context, id uint) (*domain.VerificationToken, error) {
	var dbToken DBVerificationToken
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&dbToken).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrTokenNotFound
		}
		return nil, err
	}
	return r.dbToDomain(&dbToken), nil
}

// FindValid returns the unused token matching (token, purpose). Expiry and
// attempt checks stay with the caller so it can report precise reasons.
func (r *VerificationTokenRepositoryImpl) FindValid(ctx context.Context, token, purpose string) (*domain.VerificationToken, error) {
	var dbToken DBVerificationToken
	err := r.db.WithContext(ctx).
		Where("token = ? AND purpose = ? AND is_used = ?", token, purpose, false).
		First(&dbToken).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrTokenNotFound
		}
		return nil, err
	}
	return r.dbToDomain(&dbToken), nil
}

// Consume marks the token used. The update is conditioned on is_used=false
// so two concurrent redemptions cannot both succeed.
func (r *VerificationTokenRepositoryImpl) Consume(ctx context.Context, id uint) error {
	now := time.Now()
	res := r.db.WithContext(ctx).Model(&DBVerificationToken{}).
		Where("id = ? AND is_used = ?", id, false).
		Updates(map[string]any{"is_used": true, "used_at": &now})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrTokenNotFound
	}
	return nil
}

// IncrementAttempts implements domain.VerificationTokenRepository
func (r *VerificationTokenRepositoryImpl) IncrementAttempts(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Model(&DBVerificationToken{}).
		Where("id = ?", id).
		Update("attempts", gorm.Expr("attempts + 1")).Error
}

// Approve implements domain.VerificationTokenRepository
func (r *VerificationTokenRepositoryImpl) Approve(ctx context.Context, id, adminID uint) error {
	res := r.db.WithContext(ctx).Model(&DBVerificationToken{}).
		Where("id = ? AND requires_admin_approval = ? AND is_used = ?", id, true, false).
		Update("approved_by", adminID)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrTokenNotFound
	}
	return nil
}

// DeleteExpired implements domain.VerificationTokenRepository
func (r *VerificationTokenRepositoryImpl) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Where("expires_at < ?", now).Delete(&DBVerificationToken{})
	return res.RowsAffected, res.Error
}

func (r *VerificationTokenRepositoryImpl) domainToDB(token *domain.VerificationToken) *DBVerificationToken {
	return &DBVerificationToken{
		ID:                    token.ID,
		UserID:                token.UserID,
		Email:                 token.Email,
		Phone:                 token.Phone,
		Token:                 token.Token,
		Purpose:               token.Purpose,
		Attempts:              token.Attempts,
		ExpiresAt:             token.ExpiresAt,
		IsUsed:                token.IsUsed,
		UsedAt:                token.UsedAt,
		RequiresAdminApproval: token.RequiresAdminApproval,
		ApprovedBy:            token.ApprovedBy,
		IPAddress:             token.IPAddress,
		UserAgent:             token.UserAgent,
	}
}

func (r *VerificationTokenRepositoryImpl) dbToDomain(dbToken *DBVerificationToken) *domain.VerificationToken {
	return &domain.VerificationToken{
		ID:                    dbToken.ID,
		UserID:                dbToken.UserID,
		Email:                 dbToken.Email,
		Phone:                 dbToken.Phone,
		Token:                 dbToken.Token,
		Purpose:               dbToken.Purpose,
		Attempts:              dbToken.Attempts,
		ExpiresAt:             dbToken.ExpiresAt,
		IsUsed:                dbToken.IsUsed,
		UsedAt:                dbToken.UsedAt,
		RequiresAdminApproval: dbToken.RequiresAdminApproval,
		ApprovedBy:            dbToken.ApprovedBy,
		IPAddress:             dbToken.IPAddress,
		UserAgent:             dbToken.UserAgent,
		CreatedAt:             dbToken.CreatedAt,
	}
}
