package mocks

import (
	"context"

	"github.com/you/marketauth/domain"
)

// MockAuthService implements domain.AuthService for testing
type MockAuthService struct {
	RegisterFunc             func(ctx context.Context, name, email, phone, password, role string) (*domain.User, domain.RegistrationState, error)
	VerifyEmailFunc          func(ctx context.Context, userID uint, code string) (domain.RegistrationState, error)
	VerifyPhoneFunc          func(ctx context.Context, userID uint, code string) (domain.RegistrationState, error)
	ResendCodeFunc           func(ctx context.Context, userID uint, purpose string) error
	LoginFunc                func(ctx context.Context, identifier, password string, device domain.DeviceInfo) (*domain.LoginOutcome, error)
	VerifyTwoFactorFunc      func(ctx context.Context, userID uint, code string, device domain.DeviceInfo) (*domain.AuthResult, error)
	RequestPasswordResetFunc func(ctx context.Context, email, ip, userAgent string) error
	ConfirmPasswordResetFunc func(ctx context.Context, token, newPassword string) error
	GetUserProfileFunc       func(ctx context.Context, userID uint) (*domain.User, error)
}

var _ domain.AuthService = (*MockAuthService)(nil)

func NewMockAuthService() *MockAuthService { return &MockAuthService{} }

func (m *MockAuthService) Register(ctx context.Context, name, email, phone, password, role string) (*domain.User, domain.RegistrationState, error) {
	if m.RegisterFunc != nil {
		return m.RegisterFunc(ctx, name, email, phone, password, role)
	}
	return &domain.User{
		ID:     1,
		Name:   name,
		Email:  email,
		Phone:  phone,
		Role:   domain.RoleUser,
		Status: domain.StatusUnverified,
	}, domain.RegEmailPending, nil
}

func (m *MockAuthService) VerifyEmail(ctx context.Context, userID uint, code string) (domain.RegistrationState, error) {
	if m.VerifyEmailFunc != nil {
		return m.VerifyEmailFunc(ctx, userID, code)
	}
	return domain.RegPhonePending, nil
}

func (m *MockAuthService) VerifyPhone(ctx context.Context, userID uint, code string) (domain.RegistrationState, error) {
	if m.VerifyPhoneFunc != nil {
		return m.VerifyPhoneFunc(ctx, userID, code)
	}
	return domain.RegComplete, nil
}

func (m *MockAuthService) ResendCode(ctx context.Context, userID uint, purpose string) error {
	if m.ResendCodeFunc != nil {
		return m.ResendCodeFunc(ctx, userID, purpose)
	}
	return nil
}

func (m *MockAuthService) Login(ctx context.Context, identifier, password string, device domain.DeviceInfo) (*domain.LoginOutcome, error) {
	if m.LoginFunc != nil {
		return m.LoginFunc(ctx, identifier, password, device)
	}
	return nil, domain.ErrInvalidCredentials
}

func (m *MockAuthService) VerifyTwoFactor(ctx context.Context, userID uint, code string, device domain.DeviceInfo) (*domain.AuthResult, error) {
	if m.VerifyTwoFactorFunc != nil {
		return m.VerifyTwoFactorFunc(ctx, userID, code, device)
	}
	return nil, domain.ErrOTPInvalid
}

func (m *MockAuthService) RequestPasswordReset(ctx context.Context, email, ip, userAgent string) error {
	if m.RequestPasswordResetFunc != nil {
		return m.RequestPasswordResetFunc(ctx, email, ip, userAgent)
	}
	return nil
}

func (m *MockAuthService) ConfirmPasswordReset(ctx context.Context, token, newPassword string) error {
	if m.ConfirmPasswordResetFunc != nil {
		return m.ConfirmPasswordResetFunc(ctx, token, newPassword)
	}
	return nil
}

func (m *MockAuthService) GetUserProfile(ctx context.Context, userID uint) (*domain.User, error) {
	if m.GetUserProfileFunc != nil {
		return m.GetUserProfileFunc(ctx, userID)
	}
	return nil, domain.ErrUserNotFound
}
