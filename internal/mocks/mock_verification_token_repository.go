package mocks

import (
	"context"
	"time"

	"github.com/you/marketauth/domain"
)

// MockVerificationTokenRepository implements domain.VerificationTokenRepository for testing
type MockVerificationTokenRepository struct {
	CreateFunc            func(ctx context.Context, token *domain.VerificationToken) error
	FindByIDFunc          func(ctx context.Context, id uint) (*domain.VerificationToken, error)
	FindValidFunc         func(ctx context.Context, token, purpose string) (*domain.VerificationToken, error)
	ConsumeFunc           func(ctx context.Context, id uint) error
	IncrementAttemptsFunc func(ctx context.Context, id uint) error
	ApproveFunc           func(ctx context.Context, id, adminID uint) error
	DeleteExpiredFunc     func(ctx context.Context, now time.Time) (int64, error)
}

var _ domain.VerificationTokenRepository = (*MockVerificationTokenRepository)(nil)

// NewMockVerificationTokenRepository creates a new MockVerificationTokenRepository
func NewMockVerificationTokenRepository() *MockVerificationTokenRepository {
	return &MockVerificationTokenRepository{}
}

func (m *MockVerificationTokenRepository) Create(ctx context.Context, token *domain.VerificationToken) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, token)
	}
	token.ID = 1
	return nil
}

func (m *MockVerificationTokenRepository) FindByID(ctx context.Context, id uint) (*domain.VerificationToken, error) {
	if m.FindByIDFunc != nil {
		return m.FindByIDFunc(ctx, id)
	}
	return nil, domain.ErrTokenNotFound
}

func (m *MockVerificationTokenRepository) FindValid(ctx context.Context, token, purpose string) (*domain.VerificationToken, error) {
	if m.FindValidFunc != nil {
		return m.FindValidFunc(ctx, token, purpose)
	}
	return nil, domain.ErrTokenNotFound
}

func (m *MockVerificationTokenRepository) Consume(ctx context.Context, id uint) error {
	if m.ConsumeFunc != nil {
		return m.ConsumeFunc(ctx, id)
	}
	return nil
}

func (m *MockVerificationTokenRepository) IncrementAttempts(ctx context.Context, id uint) error {
	if m.IncrementAttemptsFunc != nil {
		return m.IncrementAttemptsFunc(ctx, id)
	}
	return nil
}

func (m *MockVerificationTokenRepository) Approve(ctx context.Context, id, adminID uint) error {
	if m.ApproveFunc != nil {
		return m.ApproveFunc(ctx, id, adminID)
	}
	return nil
}

func (m *MockVerificationTokenRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	if m.DeleteExpiredFunc != nil {
		return m.DeleteExpiredFunc(ctx, now)
	}
	return 0, nil
}
