package mocks

import (
	"context"

	"github.com/you/marketauth/domain"
)

// MockUserRepository implements domain.UserRepository for testing
type MockUserRepository struct {
	CreateFunc            func(ctx context.Context, user *domain.User) error
	FindByEmailFunc       func(ctx context.Context, email string) (*domain.User, error)
	FindByPhoneFunc       func(ctx context.Context, phone string) (*domain.User, error)
	FindByIDFunc          func(ctx context.Context, id uint) (*domain.User, error)
	UpdateFunc            func(ctx context.Context, user *domain.User) error
	MarkEmailVerifiedFunc func(ctx context.Context, userID uint) error
	MarkPhoneVerifiedFunc func(ctx context.Context, userID uint) error
	ActivateFunc          func(ctx context.Context, userID uint) error
	SetPasswordFunc       func(ctx context.Context, userID uint, passwordHash string) error
	RecordFailedLoginFunc func(ctx context.Context, userID uint) (*domain.User, error)
	ResetFailedLoginFunc  func(ctx context.Context, userID uint, ip string) error
	BlockFunc             func(ctx context.Context, userID, adminID uint, reason string) error
	UnblockFunc           func(ctx context.Context, userID uint) error
	SoftDeleteFunc        func(ctx context.Context, userID uint) error
}

var _ domain.UserRepository = (*MockUserRepository)(nil)

// NewMockUserRepository creates a new MockUserRepository
func NewMockUserRepository() *MockUserRepository {
	return &MockUserRepository{}
}

func (m *MockUserRepository) Create(ctx context.Context, user *domain.User) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, user)
	}
	user.ID = 1
	return nil
}

func (m *MockUserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	if m.FindByEmailFunc != nil {
		return m.FindByEmailFunc(ctx, email)
	}
	return nil, domain.ErrUserNotFound
}

func (m *MockUserRepository) FindByPhone(ctx context.Context, phone string) (*domain.User, error) {
	if m.FindByPhoneFunc != nil {
		return m.FindByPhoneFunc(ctx, phone)
	}
	return nil, domain.ErrUserNotFound
}

func (m *MockUserRepository) FindByID(ctx context.Context, id uint) (*domain.User, error) {
	if m.FindByIDFunc != nil {
		return m.FindByIDFunc(ctx, id)
	}
	return nil, domain.ErrUserNotFound
}

func (m *MockUserRepository) Update(ctx context.Context, user *domain.User) error {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, user)
	}
	return nil
}

func (m *MockUserRepository) MarkEmailVerified(ctx context.Context, userID uint) error {
	if m.MarkEmailVerifiedFunc != nil {
		return m.MarkEmailVerifiedFunc(ctx, userID)
	}
	return nil
}

func (m *MockUserRepository) MarkPhoneVerified(ctx context.Context, userID uint) error {
	if m.MarkPhoneVerifiedFunc != nil {
		return m.MarkPhoneVerifiedFunc(ctx, userID)
	}
	return nil
}

func (m *MockUserRepository) Activate(ctx context.Context, userID uint) error {
	if m.ActivateFunc != nil {
		return m.ActivateFunc(ctx, userID)
	}
	return nil
}

func (m *MockUserRepository) SetPassword(ctx context.Context, userID uint, passwordHash string) error {
	if m.SetPasswordFunc != nil {
		return m.SetPasswordFunc(ctx, userID, passwordHash)
	}
	return nil
}

func (m *MockUserRepository) RecordFailedLogin(ctx context.Context, userID uint) (*domain.User, error) {
	if m.RecordFailedLoginFunc != nil {
		return m.RecordFailedLoginFunc(ctx, userID)
	}
	return &domain.User{ID: userID, LoginAttempts: 1}, nil
}

func (m *MockUserRepository) ResetFailedLogin(ctx context.Context, userID uint, ip string) error {
	if m.ResetFailedLoginFunc != nil {
		return m.ResetFailedLoginFunc(ctx, userID, ip)
	}
	return nil
}

func (m *MockUserRepository) Block(ctx context.Context, userID, adminID uint, reason string) error {
	if m.BlockFunc != nil {
		return m.BlockFunc(ctx, userID, adminID, reason)
	}
	return nil
}

func (m *MockUserRepository) Unblock(ctx context.Context, userID uint) error {
	if m.UnblockFunc != nil {
		return m.UnblockFunc(ctx, userID)
	}
	return nil
}

func (m *MockUserRepository) SoftDelete(ctx context.Context, userID uint) error {
	if m.SoftDeleteFunc != nil {
		return m.SoftDeleteFunc(ctx, userID)
	}
	return nil
}
