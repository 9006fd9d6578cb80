package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/you/marketauth/domain"
)

// SessionRepositoryImpl implements domain.SessionRepository. Postgres is
// the source of truth (sessions must survive restarts and be individually
// revocable); Redis carries a read cache keyed session:<id> so the hot
// middleware path avoids a database round trip.
type SessionRepositoryImpl struct {
	db       *gorm.DB
	cache    *redis.Client
	cacheTTL time.Duration
}

// DBSession represents the database model for Session
type DBSession struct {
	ID               string `gorm:"primaryKey;size:64"`
	UserID           uint   `gorm:"index:idx_sessions_user_active"`
	RefreshToken     string `gorm:"uniqueIndex;size:128"`
	PrevRefreshToken string `gorm:"index;size:128"`
	ExpiresAt        time.Time `gorm:"index"`
	DeviceID         string    `gorm:"size:64"`
	UserAgent        string
	IP               string `gorm:"size:45"`
	Browser          string `gorm:"size:64"`
	OS               string `gorm:"size:64"`
	Location         string `gorm:"size:128"`
	IsActive         bool   `gorm:"index:idx_sessions_user_active"`
	LastAccessedAt   time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time `gorm:"index"`
}

// TableName returns the table name for GORM
func (DBSession) TableName() string {
	return "sessions"
}

// NewSessionRepository creates a new session repository
func NewSessionRepository(db *gorm.DB, cache *redis.Client, cacheTTL time.Duration) domain.SessionRepository {
	return &SessionRepositoryImpl{db: db, cache: cache, cacheTTL: cacheTTL}
}

func sessionCacheKey(sessionID string) string {
	return "session:" + sessionID
}

// Create implements domain.SessionRepository
func (r *SessionRepositoryImpl) Create(ctx context.Context, session *domain.Session) error {
	dbSession := r.domainToDB(session)
	if err := r.db.WithContext(ctx).Create(dbSession).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return domain.ErrDuplicateToken
		}
		return err
	}
	r.cacheSet(ctx, session)
	return nil
}

// FindByID implements domain.SessionRepository
func (r *SessionRepositoryImpl) FindByID(ctx context.Context, sessionID string) (*domain.Session, error) {
	if cached := r.cacheGet(ctx, sessionID); cached != nil {
		return cached, nil
	}

	var dbSession DBSession
	err := r.db.WithContext(ctx).Where("id = ?", sessionID).First(&dbSession).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, err
	}

	session := r.dbToDomain(&dbSession)
	if session.IsActive {
		r.cacheSet(ctx, session)
	}
	return session, nil
}

// FindByRefreshToken implements domain.SessionRepository
func (r *SessionRepositoryImpl) FindByRefreshToken(ctx context.Context, refreshToken string) (*domain.Session, error) {
	return r.findOne(ctx, "refresh_token = ?", refreshToken)
}

// FindByPrevRefreshToken locates a session by the refresh token it rotated
// out. A hit means a caller is replaying an old token.
func (r *SessionRepositoryImpl) FindByPrevRefreshToken(ctx context.Context, refreshToken string) (*domain.Session, error) {
	return r.findOne(ctx, "prev_refresh_token = ?", refreshToken)
}

func (r *SessionRepositoryImpl) findOne(ctx context.Context, query string, arg any) (*domain.Session, error) {
	var dbSession DBSession
	err := r.db.WithContext(ctx).Where(query, arg).First(&dbSession).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, err
	}
	return r.dbToDomain(&dbSession), nil
}

// Rotate implements domain.SessionRepository. The token swap is one
// conditional UPDATE: of two concurrent refreshes carrying the same token,
// exactly one matches the WHERE clause.
func (r *SessionRepositoryImpl) Rotate(ctx context.Context, sessionID, oldToken, newToken string, expiresAt time.Time) error {
	now := time.Now()
	res := r.db.WithContext(ctx).Model(&DBSession{}).
		Where("id = ? AND refresh_token = ? AND is_active = ?", sessionID, oldToken, true).
		Updates(map[string]any{
			"refresh_token":      newToken,
			"prev_refresh_token": oldToken,
			"expires_at":         expiresAt,
			"last_accessed_at":   now,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrSessionRevoked
	}
	r.cacheDel(ctx, sessionID)
	return nil
}

// Touch implements domain.SessionRepository
func (r *SessionRepositoryImpl) Touch(ctx context.Context, sessionID string, at time.Time) error {
	return r.db.WithContext(ctx).Model(&DBSession{}).
		Where("id = ? AND is_active = ?", sessionID, true).
		Update("last_accessed_at", at).Error
}

// Revoke implements domain.SessionRepository. The row is kept for the
// retention window; only the flag flips.
func (r *SessionRepositoryImpl) Revoke(ctx context.Context, sessionID string) error {
	res := r.db.WithContext(ctx).Model(&DBSession{}).
		Where("id = ? AND is_active = ?", sessionID, true).
		Update("is_active", false)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrSessionNotFound
	}
	r.cacheDel(ctx, sessionID)
	return nil
}

// RevokeAllForUser implements domain.SessionRepository
func (r *SessionRepositoryImpl) RevokeAllForUser(ctx context.Context, userID uint) (int64, error) {
	return r.revokeWhere(ctx, userID, "user_id = ? AND is_active = ?", userID, true)
}

// RevokeOthersForUser implements domain.SessionRepository
func (r *SessionRepositoryImpl) RevokeOthersForUser(ctx context.Context, userID uint, keepSessionID string) (int64, error) {
	return r.revokeWhere(ctx, userID, "user_id = ? AND is_active = ? AND id <> ?", userID, true, keepSessionID)
}

func (r *SessionRepositoryImpl) revokeWhere(ctx context.Context, userID uint, query string, args ...any) (int64, error) {
	var ids []string
	if err := r.db.WithContext(ctx).Model(&DBSession{}).Where(query, args...).
		Pluck("id", &ids).Error; err != nil {
		return 0, err
	}

	res := r.db.WithContext(ctx).Model(&DBSession{}).Where(query, args...).
		Update("is_active", false)
	if res.Error != nil {
		return 0, res.Error
	}

	for _, id := range ids {
		r.cacheDel(ctx, id)
	}
	return res.RowsAffected, nil
}

// ListActiveForUser implements domain.SessionRepository
func (r *SessionRepositoryImpl) ListActiveForUser(ctx context.Context, userID uint) ([]*domain.Session, error) {
	var dbSessions []DBSession
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND is_active = ? AND expires_at > ?", userID, true, time.Now()).
		Order("last_accessed_at DESC").
		Find(&dbSessions).Error
	if err != nil {
		return nil, err
	}

	sessions := make([]*domain.Session, 0, len(dbSessions))
	for i := range dbSessions {
		sessions = append(sessions, r.dbToDomain(&dbSessions[i]))
	}
	return sessions, nil
}

// DeleteExpired removes sessions whose refresh token has expired, plus
// inactive sessions older than the retention grace window.
func (r *SessionRepositoryImpl) DeleteExpired(ctx context.Context, now time.Time, grace time.Duration) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("expires_at < ?", now).
		Or("is_active = ? AND updated_at < ?", false, now.Add(-grace)).
		Delete(&DBSession{})
	return res.RowsAffected, res.Error
}

func (r *SessionRepositoryImpl) cacheSet(ctx context.Context, session *domain.Session) {
	if r.cache == nil {
		return
	}
	data, err := json.Marshal(session)
	if err != nil {
		return
	}
	ttl := r.cacheTTL
	if remaining := time.Until(session.ExpiresAt); remaining > 0 && remaining < ttl {
		ttl = remaining
	}
	r.cache.Set(ctx, sessionCacheKey(session.ID), data, ttl)
}

func (r *SessionRepositoryImpl) cacheGet(ctx context.Context, sessionID string) *domain.Session {
	if r.cache == nil {
		return nil
	}
	data, err := r.cache.Get(ctx, sessionCacheKey(sessionID)).Result()
	if err != nil {
		return nil
	}
	var session domain.Session
	if err := json.Unmarshal([]byte(data), &session); err != nil {
		return nil
	}
	if !session.IsActive || session.ExpiresAt.Before(time.Now()) {
		r.cacheDel(ctx, sessionID)
		return nil
	}
	return &session
}

func (r *SessionRepositoryImpl) cacheDel(ctx context.Context, sessionID string) {
	if r.cache == nil {
		return
	}
	r.cache.Del(ctx, sessionCacheKey(sessionID))
}

func (r *SessionRepositoryImpl) domainToDB(session *domain.Session) *DBSession {
	return &DBSession{
		ID:               session.ID,
		UserID:           session.UserID,
		RefreshToken:     session.RefreshToken,
		PrevRefreshToken: session.PrevRefreshToken,
		ExpiresAt:        session.ExpiresAt,
		DeviceID:         session.Device.DeviceID,
		UserAgent:        session.Device.UserAgent,
		IP:               session.Device.IP,
		Browser:          session.Device.Browser,
		OS:               session.Device.OS,
		Location:         session.Device.Location,
		IsActive:         session.IsActive,
		LastAccessedAt:   session.LastAccessedAt,
	}
}

func (r *SessionRepositoryImpl) dbToDomain(dbSession *DBSession) *domain.Session {
	return &domain.Session{
		ID:               dbSession.ID,
		UserID:           dbSession.UserID,
		RefreshToken:     dbSession.RefreshToken,
		PrevRefreshToken: dbSession.PrevRefreshToken,
		ExpiresAt:        dbSession.ExpiresAt,
		Device: domain.DeviceInfo{
			DeviceID:  dbSession.DeviceID,
			UserAgent: dbSession.UserAgent,
			IP:        dbSession.IP,
			Browser:   dbSession.Browser,
			OS:        dbSession.OS,
			Location:  dbSession.Location,
		},
		IsActive:       dbSession.IsActive,
		LastAccessedAt: dbSession.LastAccessedAt,
		CreatedAt:      dbSession.CreatedAt,
		UpdatedAt:      dbSession.UpdatedAt,
	}
}
