package mocks

import (
	"context"
	"time"

	"github.com/you/marketauth/domain"
)

// MockSessionRepository implements domain.SessionRepository for testing
type MockSessionRepository struct {
	CreateFunc                 func(ctx context.Context, session *domain.Session) error
	FindByIDFunc               func(ctx context.Context, sessionID string) (*domain.Session, error)
	FindByRefreshTokenFunc     func(ctx context.Context, refreshToken string) (*domain.Session, error)
	FindByPrevRefreshTokenFunc func(ctx context.Context, refreshToken string) (*domain.Session, error)
	RotateFunc                 func(ctx context.Context, sessionID, oldToken, newToken string, expiresAt time.Time) error
	TouchFunc                  func(ctx context.Context, sessionID string, at time.Time) error
	RevokeFunc                 func(ctx context.Context, sessionID string) error
	RevokeAllForUserFunc       func(ctx context.Context, userID uint) (int64, error)
	RevokeOthersForUserFunc    func(ctx context.Context, userID uint, keepSessionID string) (int64, error)
	ListActiveForUserFunc      func(ctx context.Context, userID uint) ([]*domain.Session, error)
	DeleteExpiredFunc          func(ctx context.Context, now time.Time, grace time.Duration) (int64, error)
}

var _ domain.SessionRepository = (*MockSessionRepository)(nil)

// NewMockSessionRepository creates a new MockSessionRepository
func NewMockSessionRepository() *MockSessionRepository {
	return &MockSessionRepository{}
}

func (m *MockSessionRepository) Create(ctx context.Context, session *domain.Session) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, session)
	}
	return nil
}

func (m *MockSessionRepository) FindByID(ctx context.Context, sessionID string) (*domain.Session, error) {
	if m.FindByIDFunc != nil {
		return m.FindByIDFunc(ctx, sessionID)
	}
	return nil, domain.ErrSessionNotFound
}

func (m *MockSessionRepository) FindByRefreshToken(ctx context.Context, refreshToken string) (*domain.Session, error) {
	if m.FindByRefreshTokenFunc != nil {
		return m.FindByRefreshTokenFunc(ctx, refreshToken)
	}
	return nil, domain.ErrSessionNotFound
}

func (m *MockSessionRepository) FindByPrevRefreshToken(ctx context.Context, refreshToken string) (*domain.Session, error) {
	if m.FindByPrevRefreshTokenFunc != nil {
		return m.FindByPrevRefreshTokenFunc(ctx, refreshToken)
	}
	return nil, domain.ErrSessionNotFound
}

func (m *MockSessionRepository) Rotate(ctx context.Context, sessionID, oldToken, newToken string, expiresAt time.Time) error {
	if m.RotateFunc != nil {
		return m.RotateFunc(ctx, sessionID, oldToken, newToken, expiresAt)
	}
	return nil
}

func (m *MockSessionRepository) Touch(ctx context.Context, sessionID string, at time.Time) error {
	if m.TouchFunc != nil {
		return m.TouchFunc(ctx, sessionID, at)
	}
	return nil
}

func (m *MockSessionRepository) Revoke(ctx context.Context, sessionID string) error {
	if m.RevokeFunc != nil {
		return m.RevokeFunc(ctx, sessionID)
	}
	return nil
}

func (m *MockSessionRepository) RevokeAllForUser(ctx context.Context, userID uint) (int64, error) {
	if m.RevokeAllForUserFunc != nil {
		return m.RevokeAllForUserFunc(ctx, userID)
	}
	return 0, nil
}

func (m *MockSessionRepository) RevokeOthersForUser(ctx context.Context, userID uint, keepSessionID string) (int64, error) {
	if m.RevokeOthersForUserFunc != nil {
		return m.RevokeOthersForUserFunc(ctx, userID, keepSessionID)
	}
	return 0, nil
}

func (m *MockSessionRepository) ListActiveForUser(ctx context.Context, userID uint) ([]*domain.Session, error) {
	if m.ListActiveForUserFunc != nil {
		return m.ListActiveForUserFunc(ctx, userID)
	}
	return nil, nil
}

func (m *MockSessionRepository) DeleteExpired(ctx context.Context, now time.Time, grace time.Duration) (int64, error) {
	if m.DeleteExpiredFunc != nil {
		return m.DeleteExpiredFunc(ctx, now, grace)
	}
	return 0, nil
}
