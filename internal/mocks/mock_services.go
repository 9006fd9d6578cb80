package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/you/marketauth/domain"
)

// MockOTPService implements domain.OTPService for testing
type MockOTPService struct {
	IssueFunc     func(ctx context.Context, userID uint, purpose string) (*domain.OTPRecord, error)
	VerifyFunc    func(ctx context.Context, userID uint, code, purpose string) error
	CanResendFunc func(ctx context.Context, userID uint, purpose string) (bool, int64, error)
}

var _ domain.OTPService = (*MockOTPService)(nil)

func NewMockOTPService() *MockOTPService { return &MockOTPService{} }

func (m *MockOTPService) Issue(ctx context.Context, userID uint, purpose string) (*domain.OTPRecord, error) {
	if m.IssueFunc != nil {
		return m.IssueFunc(ctx, userID, purpose)
	}
	return &domain.OTPRecord{
		UserID:    userID,
		Purpose:   purpose,
		Code:      "123456",
		ExpiresAt: time.Now().Add(5 * time.Minute),
	}, nil
}

func (m *MockOTPService) Verify(ctx context.Context, userID uint, code, purpose string) error {
	if m.VerifyFunc != nil {
		return m.VerifyFunc(ctx, userID, code, purpose)
	}
	return nil
}

func (m *MockOTPService) CanResend(ctx context.Context, userID uint, purpose string) (bool, int64, error) {
	if m.CanResendFunc != nil {
		return m.CanResendFunc(ctx, userID, purpose)
	}
	return true, 0, nil
}

// MockVerificationTokenService implements domain.VerificationTokenService for testing
type MockVerificationTokenService struct {
	IssueFunc   func(ctx context.Context, userID uint, purpose, email, phone, ip, userAgent string) (*domain.VerificationToken, error)
	RedeemFunc  func(ctx context.Context, token, purpose string) (*domain.VerificationToken, error)
	ApproveFunc func(ctx context.Context, tokenID, adminID uint) error
}

var _ domain.VerificationTokenService = (*MockVerificationTokenService)(nil)

func NewMockVerificationTokenService() *MockVerificationTokenService {
	return &MockVerificationTokenService{}
}

func (m *MockVerificationTokenService) Issue(ctx context.Context, userID uint, purpose, email, phone, ip, userAgent string) (*domain.VerificationToken, error) {
	if m.IssueFunc != nil {
		return m.IssueFunc(ctx, userID, purpose, email, phone, ip, userAgent)
	}
	return &domain.VerificationToken{
		ID:        1,
		UserID:    userID,
		Purpose:   purpose,
		Token:     "mock_token",
		ExpiresAt: time.Now().Add(time.Hour),
	}, nil
}

func (m *MockVerificationTokenService) Redeem(ctx context.Context, token, purpose string) (*domain.VerificationToken, error) {
	if m.RedeemFunc != nil {
		return m.RedeemFunc(ctx, token, purpose)
	}
	return nil, domain.ErrTokenNotFound
}

func (m *MockVerificationTokenService) Approve(ctx context.Context, tokenID, adminID uint) error {
	if m.ApproveFunc != nil {
		return m.ApproveFunc(ctx, tokenID, adminID)
	}
	return nil
}

// MockSessionService implements domain.SessionService for testing
type MockSessionService struct {
	CreateSessionFunc  func(ctx context.Context, user *domain.User, device domain.DeviceInfo) (*domain.AuthResult, error)
	RefreshFunc        func(ctx context.Context, refreshToken string) (*domain.AuthResult, error)
	RevokeFunc         func(ctx context.Context, sessionID string) error
	RevokeAllFunc      func(ctx context.Context, userID uint) (int64, error)
	RevokeOthersFunc   func(ctx context.Context, userID uint, keepSessionID string) (int64, error)
	ListActiveFunc     func(ctx context.Context, userID uint) ([]*domain.Session, error)
	CleanupExpiredFunc func(ctx context.Context) (int64, error)
}

var _ domain.SessionService = (*MockSessionService)(nil)

func NewMockSessionService() *MockSessionService { return &MockSessionService{} }

func (m *MockSessionService) CreateSession(ctx context.Context, user *domain.User, device domain.DeviceInfo) (*domain.AuthResult, error) {
	if m.CreateSessionFunc != nil {
		return m.CreateSessionFunc(ctx, user, device)
	}
	return &domain.AuthResult{
		User:         user,
		AccessToken:  "mock_access_token",
		RefreshToken: "mock_refresh_token",
		SessionID:    "mock_session_id",
		ExpiresIn:    900,
	}, nil
}

func (m *MockSessionService) Refresh(ctx context.Context, refreshToken string) (*domain.AuthResult, error) {
	if m.RefreshFunc != nil {
		return m.RefreshFunc(ctx, refreshToken)
	}
	return nil, domain.ErrSessionNotFound
}

func (m *MockSessionService) Revoke(ctx context.Context, sessionID string) error {
	if m.RevokeFunc != nil {
		return m.RevokeFunc(ctx, sessionID)
	}
	return nil
}

func (m *MockSessionService) RevokeAll(ctx context.Context, userID uint) (int64, error) {
	if m.RevokeAllFunc != nil {
		return m.RevokeAllFunc(ctx, userID)
	}
	return 0, nil
}

func (m *MockSessionService) RevokeOthers(ctx context.Context, userID uint, keepSessionID string) (int64, error) {
	if m.RevokeOthersFunc != nil {
		return m.RevokeOthersFunc(ctx, userID, keepSessionID)
	}
	return 0, nil
}

func (m *MockSessionService) ListActive(ctx context.Context, userID uint) ([]*domain.Session, error) {
	if m.ListActiveFunc != nil {
		return m.ListActiveFunc(ctx, userID)
	}
	return nil, nil
}

func (m *MockSessionService) CleanupExpired(ctx context.Context) (int64, error) {
	if m.CleanupExpiredFunc != nil {
		return m.CleanupExpiredFunc(ctx)
	}
	return 0, nil
}

// MockPasswordService implements domain.PasswordService for testing
type MockPasswordService struct {
	HashFunc   func(password string) (string, error)
	VerifyFunc func(hashedPassword, password string) bool
}

var _ domain.PasswordService = (*MockPasswordService)(nil)

func NewMockPasswordService() *MockPasswordService { return &MockPasswordService{} }

func (m *MockPasswordService) Hash(password string) (string, error) {
	if m.HashFunc != nil {
		return m.HashFunc(password)
	}
	return "hashed_" + password, nil
}

func (m *MockPasswordService) Verify(hashedPassword, password string) bool {
	if m.VerifyFunc != nil {
		return m.VerifyFunc(hashedPassword, password)
	}
	return hashedPassword == "hashed_"+password
}

// MockTokenService implements domain.TokenService for testing
type MockTokenService struct {
	GenerateAccessTokenFunc func(userID uint, role string, sessionID string) (string, error)
	ValidateAccessTokenFunc func(token string) (*domain.TokenClaims, error)
}

var _ domain.TokenService = (*MockTokenService)(nil)

func NewMockTokenService() *MockTokenService { return &MockTokenService{} }

func (m *MockTokenService) GenerateAccessToken(userID uint, role string, sessionID string) (string, error) {
	if m.GenerateAccessTokenFunc != nil {
		return m.GenerateAccessTokenFunc(userID, role, sessionID)
	}
	return "mock_access_token", nil
}

func (m *MockTokenService) ValidateAccessToken(token string) (*domain.TokenClaims, error) {
	if m.ValidateAccessTokenFunc != nil {
		return m.ValidateAccessTokenFunc(token)
	}
	return nil, domain.ErrJWTInvalid
}

// MockNotificationService implements domain.NotificationService for testing.
// Sent messages are recorded for assertions.
type MockNotificationService struct {
	mu            sync.Mutex
	SendSMSFunc   func(ctx context.Context, to, message string) error
	SendEmailFunc func(ctx context.Context, to, subject, bodyHTML string) error
	SentSMS       []string
	SentEmails    []string
}

var _ domain.NotificationService = (*MockNotificationService)(nil)

func NewMockNotificationService() *MockNotificationService { return &MockNotificationService{} }

func (m *MockNotificationService) SendSMS(ctx context.Context, to, message string) error {
	if m.SendSMSFunc != nil {
		return m.SendSMSFunc(ctx, to, message)
	}
	m.mu.Lock()
	m.SentSMS = append(m.SentSMS, message)
	m.mu.Unlock()
	return nil
}

func (m *MockNotificationService) SendEmail(ctx context.Context, to, subject, bodyHTML string) error {
	if m.SendEmailFunc != nil {
		return m.SendEmailFunc(ctx, to, subject, bodyHTML)
	}
	m.mu.Lock()
	m.SentEmails = append(m.SentEmails, bodyHTML)
	m.mu.Unlock()
	return nil
}

// MockEventPublisher implements domain.EventPublisher for testing
type MockEventPublisher struct {
	mu          sync.Mutex
	PublishFunc func(ctx context.Context, eventType string, payload any) error
	Published   []string
}

var _ domain.EventPublisher = (*MockEventPublisher)(nil)

func NewMockEventPublisher() *MockEventPublisher { return &MockEventPublisher{} }

func (m *MockEventPublisher) Publish(ctx context.Context, eventType string, payload any) error {
	if m.PublishFunc != nil {
		return m.PublishFunc(ctx, eventType, payload)
	}
	m.mu.Lock()
	m.Published = append(m.Published, eventType)
	m.mu.Unlock()
	return nil
}

// MockSecurityLogRepository implements domain.SecurityLogRepository for testing
type MockSecurityLogRepository struct {
	mu      sync.Mutex
	LogFunc func(ctx context.Context, event *domain.SecurityEvent) error
	Events  []*domain.SecurityEvent
}

var _ domain.SecurityLogRepository = (*MockSecurityLogRepository)(nil)

func NewMockSecurityLogRepository() *MockSecurityLogRepository {
	return &MockSecurityLogRepository{}
}

func (m *MockSecurityLogRepository) Log(ctx context.Context, event *domain.SecurityEvent) error {
	if m.LogFunc != nil {
		return m.LogFunc(ctx, event)
	}
	m.mu.Lock()
	m.Events = append(m.Events, event)
	m.mu.Unlock()
	return nil
}
