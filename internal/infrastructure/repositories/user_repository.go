package repositories

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/you/marketauth/domain"
)

// Failed-login lockout policy
const (
	maxLoginAttempts = 3
	lockoutWindow    = 2 * time.Hour
)

// UserRepositoryImpl implements domain.UserRepository using GORM
type UserRepositoryImpl struct {
	db *gorm.DB
}

// DBUser represents the database model for User (with GORM tags).
// Email and phone are unique among non-deleted rows.
type DBUser struct {
	ID               uint    `gorm:"primaryKey"`
	Name             string  `gorm:"size:100"`
	Email            string  `gorm:"uniqueIndex;size:255"`
	Phone            string  `gorm:"uniqueIndex;size:32"`
	PasswordHash     string  `gorm:"column:password"`
	Role             string  `gorm:"index;size:64"`
	Status           string  `gorm:"index;size:32"`
	EmailVerified    bool    `gorm:"index"`
	PhoneVerified    bool    `gorm:"index"`
	EmailVerifiedAt  *time.Time
	PhoneVerifiedAt  *time.Time
	TwoFactorEnabled bool
	LoginAttempts    int
	LockUntil        *time.Time `gorm:"index"`
	LastLoginAt      *time.Time
	LastLoginIP      string `gorm:"size:45"`
	BlockedBy        *uint
	BlockedAt        *time.Time
	BlockedReason    string
	CreatedAt        time.Time
	UpdatedAt        time.Time
	DeletedAt        gorm.DeletedAt `gorm:"index"`
}

// TableName returns the table name for GORM
func (DBUser) TableName() string {
	return "users"
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *gorm.DB) domain.UserRepository {
	return &UserRepositoryImpl{db: db}
}

// Create implements domain.UserRepository. Uniqueness is enforced by the
// store's unique indexes, not by a check-then-insert; the conflicting field
// is resolved after the fact for the error mapping.
func (r *UserRepositoryImpl) Create(ctx context.Context, user *domain.User) error {
	dbUser := r.domainToDB(user)
	if err := r.db.WithContext(ctx).Create(dbUser).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			var existing DBUser
			if lookErr := r.db.WithContext(ctx).Where("email = ?", user.Email).First(&existing).Error; lookErr == nil {
				return domain.ErrDuplicateEmail
			}
			return domain.ErrDuplicatePhone
		}
		return err
	}
	user.ID = dbUser.ID
	return nil
}

// FindByEmail implements domain.UserRepository
func (r *UserRepositoryImpl) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.findOne(ctx, "email = ?", email)
}

// FindByPhone implements domain.UserRepository
func (r *UserRepositoryImpl) FindByPhone(ctx context.Context, phone string) (*domain.User, error) {
	return r.findOne(ctx, "phone = ?", phone)
}

// FindByID implements domain.UserRepository
func (r *UserRepositoryImpl) FindByID(ctx context.Context, id uint) (*domain.User, error) {
	return r.findOne(ctx, "id = ?", id)
}

func (r *UserRepositoryImpl) findOne(ctx context.Context, query string, arg any) (*domain.User, error) {
	var dbUser DBUser
	err := r.db.WithContext(ctx).Where(query, arg).First(&dbUser).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}
	return r.dbToDomain(&dbUser), nil
}

// Update implements domain.UserRepository
func (r *UserRepositoryImpl) Update(ctx context.Context, user *domain.User) error {
	dbUser := r.domainToDB(user)
	return r.db.WithContext(ctx).Save(dbUser).Error
}

// MarkEmailVerified implements domain.UserRepository
func (r *UserRepositoryImpl) MarkEmailVerified(ctx context.Context, userID uint) error {
	now := time.Now()
	return r.db.WithContext(ctx).Model(&DBUser{}).Where("id = ?", userID).
		Updates(map[string]any{"email_verified": true, "email_verified_at": &now}).Error
}

// MarkPhoneVerified implements domain.UserRepository
func (r *UserRepositoryImpl) MarkPhoneVerified(ctx context.Context, userID uint) error {
	now := time.Now()
	return r.db.WithContext(ctx).Model(&DBUser{}).Where("id = ?", userID).
		Updates(map[string]any{"phone_verified": true, "phone_verified_at": &now}).Error
}

// Activate flips an unverified account to active. It refuses to touch
// suspended or blocked accounts.
func (r *UserRepositoryImpl) Activate(ctx context.Context, userID uint) error {
	return r.db.WithContext(ctx).Model(&DBUser{}).
		Where("id = ? AND status = ?", userID, domain.StatusUnverified).
		Update("status", domain.StatusActive).Error
}

// SetPassword implements domain.UserRepository
func (r *UserRepositoryImpl) SetPassword(ctx context.Context, userID uint, passwordHash string) error {
	return r.db.WithContext(ctx).Model(&DBUser{}).Where("id = ?", userID).
		Update("password", passwordHash).Error
}

// RecordFailedLogin increments the failed-login counter with a conditional
// store-side update so concurrent failures cannot lose increments. A lock
// that has already expired restarts the counter at 1. Reaching the
// threshold sets the lockout window.
func (r *UserRepositoryImpl) RecordFailedLogin(ctx context.Context, userID uint) (*domain.User, error) {
	now := time.Now()

	res := r.db.WithContext(ctx).Model(&DBUser{}).
		Where("id = ? AND lock_until IS NOT NULL AND lock_until < ?", userID, now).
		Updates(map[string]any{"login_attempts": 1, "lock_until": nil})
	if res.Error != nil {
		return nil, res.Error
	}

	if res.RowsAffected == 0 {
		res = r.db.WithContext(ctx).Model(&DBUser{}).Where("id = ?", userID).
			Update("login_attempts", gorm.Expr("login_attempts + 1"))
		if res.Error != nil {
			return nil, res.Error
		}
		if res.RowsAffected == 0 {
			return nil, domain.ErrUserNotFound
		}
	}

	user, err := r.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if user.LoginAttempts >= maxLoginAttempts && !user.IsLocked(now) {
		lockUntil := now.Add(lockoutWindow)
		err := r.db.WithContext(ctx).Model(&DBUser{}).
			Where("id = ? AND lock_until IS NULL", userID).
			Update("lock_until", lockUntil).Error
		if err != nil {
			return nil, err
		}
		user.LockUntil = &lockUntil
	}

	return user, nil
}

// ResetFailedLogin clears the counter and lock after a successful
// authentication and records the login audit fields.
func (r *UserRepositoryImpl) ResetFailedLogin(ctx context.Context, userID uint, ip string) error {
	now := time.Now()
	return r.db.WithContext(ctx).Model(&DBUser{}).Where("id = ?", userID).
		Updates(map[string]any{
			"login_attempts": 0,
			"lock_until":     nil,
			"last_login_at":  &now,
			"last_login_ip":  ip,
		}).Error
}

// Block implements domain.UserRepository
func (r *UserRepositoryImpl) Block(ctx context.Context, userID, adminID uint, reason string) error {
	now := time.Now()
	result := r.db.WithContext(ctx).Model(&DBUser{}).Where("id = ?", userID).
		Updates(map[string]any{
			"status":         domain.StatusBlocked,
			"blocked_by":     adminID,
			"blocked_at":     &now,
			"blocked_reason": reason,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

// Unblock implements domain.UserRepository
func (r *UserRepositoryImpl) Unblock(ctx context.Context, userID uint) error {
	return r.db.WithContext(ctx).Model(&DBUser{}).
		Where("id = ? AND status = ?", userID, domain.StatusBlocked).
		Updates(map[string]any{
			"status":         domain.StatusActive,
			"blocked_by":     nil,
			"blocked_at":     nil,
			"blocked_reason": "",
		}).Error
}

// SoftDelete implements domain.UserRepository. Rows are never hard-removed
// while sessions and audit data reference them.
func (r *UserRepositoryImpl) SoftDelete(ctx context.Context, userID uint) error {
	return r.db.WithContext(ctx).Delete(&DBUser{}, userID).Error
}

func (r *UserRepositoryImpl) domainToDB(user *domain.User) *DBUser {
	return &DBUser{
		ID:               user.ID,
		Name:             user.Name,
		Email:            user.Email,
		Phone:            user.Phone,
		PasswordHash:     user.PasswordHash,
		Role:             user.Role,
		Status:           user.Status,
		EmailVerified:    user.EmailVerified,
		PhoneVerified:    user.PhoneVerified,
		EmailVerifiedAt:  user.EmailVerifiedAt,
		PhoneVerifiedAt:  user.PhoneVerifiedAt,
		TwoFactorEnabled: user.TwoFactorEnabled,
		LoginAttempts:    user.LoginAttempts,
		LockUntil:        user.LockUntil,
		LastLoginAt:      user.LastLoginAt,
		LastLoginIP:      user.LastLoginIP,
		BlockedBy:        user.BlockedBy,
		BlockedAt:        user.BlockedAt,
		BlockedReason:    user.BlockedReason,
	}
}

// dbToDomain converts the database row to the domain entity. The password
// hash travels on the domain entity for verification but is stripped by the
// HTTP layer's response shaping.
func (r *UserRepositoryImpl) dbToDomain(dbUser *DBUser) *domain.User {
	return &domain.User{
		ID:               dbUser.ID,
		Name:             dbUser.Name,
		Email:            dbUser.Email,
		Phone:            dbUser.Phone,
		PasswordHash:     dbUser.PasswordHash,
		Role:             dbUser.Role,
		Status:           dbUser.Status,
		EmailVerified:    dbUser.EmailVerified,
		PhoneVerified:    dbUser.PhoneVerified,
		EmailVerifiedAt:  dbUser.EmailVerifiedAt,
		PhoneVerifiedAt:  dbUser.PhoneVerifiedAt,
		TwoFactorEnabled: dbUser.TwoFactorEnabled,
		LoginAttempts:    dbUser.LoginAttempts,
		LockUntil:        dbUser.LockUntil,
		LastLoginAt:      dbUser.LastLoginAt,
		LastLoginIP:      dbUser.LastLoginIP,
		BlockedBy:        dbUser.BlockedBy,
		BlockedAt:        dbUser.BlockedAt,
		BlockedReason:    dbUser.BlockedReason,
		CreatedAt:        dbUser.CreatedAt,
		UpdatedAt:        dbUser.UpdatedAt,
	}
}
