package domain

import (
	"context"
	"time"
)

// UserRepository defines credential store data access operations
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByPhone(ctx context.Context, phone string) (*User, error)
	FindByID(ctx context.Context, id uint) (*User, error)
	Update(ctx context.Context, user *User) error
	MarkEmailVerified(ctx context.Context, userID uint) error
	MarkPhoneVerified(ctx context.Context, userID uint) error
	Activate(ctx context.Context, userID uint) error
	SetPassword(ctx context.Context, userID uint, passwordHash string) error
	RecordFailedLogin(ctx context.Context, userID uint) (*User, error)
	ResetFailedLogin(ctx context.Context, userID uint, ip string) error
	Block(ctx context.Context, userID, adminID uint, reason string) error
	Unblock(ctx context.Context, userID uint) error
	SoftDelete(ctx context.Context, userID uint) error
}

// SessionRepository defines session data access operations
type SessionRepository interface {
	Create(ctx context.Context, session *Session) error
	FindByID(ctx context.Context, sessionID string) (*Session, error)
	FindByRefreshToken(ctx context.Context, refreshToken string) (*Session, error)
	FindByPrevRefreshToken(ctx context.Context, refreshToken string) (*Session, error)
	// Rotate swaps the refresh token in a single conditional update; it
	// fails with ErrSessionRevoked when the session lost the race.
	Rotate(ctx context.Context, sessionID, oldToken, newToken string, expiresAt time.Time) error
	Touch(ctx context.Context, sessionID string, at time.Time) error
	Revoke(ctx context.Context, sessionID string) error
	RevokeAllForUser(ctx context.Context, userID uint) (int64, error)
	RevokeOthersForUser(ctx context.Context, userID uint, keepSessionID string) (int64, error)
	ListActiveForUser(ctx context.Context, userID uint) ([]*Session, error)
	DeleteExpired(ctx context.Context, now time.Time, grace time.Duration) (int64, error)
}

// VerificationTokenRepository defines long-lived token data access
type VerificationTokenRepository interface {
	// Create removes prior unused tokens of the same (user, purpose) before
	// inserting, so only one live token exists per pair.
	Create(ctx context.Context, token *VerificationToken) error
	FindByID(ctx context.Context, id uint) (*VerificationToken, error)
	FindValid(ctx context.Context, token, purpose string) (*VerificationToken, error)
	// Consume marks the token used atomically; it fails when the token was
	// already consumed by a concurrent call.
	Consume(ctx context.Context, id uint) error
	IncrementAttempts(ctx context.Context, id uint) error
	Approve(ctx context.Context, id, adminID uint) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// SecurityLogRepository persists the audit trail
type SecurityLogRepository interface {
	Log(ctx context.Context, event *SecurityEvent) error
}

// OTPService is the verification code engine: it issues, stores, and checks
// short-lived one-time codes for a named purpose. Delivery is the caller's
// concern.
type OTPService interface {
	Issue(ctx context.Context, userID uint, purpose string) (*OTPRecord, error)
	Verify(ctx context.Context, userID uint, code, purpose string) error
	CanResend(ctx context.Context, userID uint, purpose string) (bool, int64, error)
}

// VerificationTokenService manages long-lived single-use secure tokens
type VerificationTokenService interface {
	Issue(ctx context.Context, userID uint, purpose, email, phone, ip, userAgent string) (*VerificationToken, error)
	Redeem(ctx context.Context, token, purpose string) (*VerificationToken, error)
	Approve(ctx context.Context, tokenID, adminID uint) error
}

// SessionService issues paired access/refresh tokens bound to a session
// record and owns their lifecycle
type SessionService interface {
	CreateSession(ctx context.Context, user *User, device DeviceInfo) (*AuthResult, error)
	Refresh(ctx context.Context, refreshToken string) (*AuthResult, error)
	Revoke(ctx context.Context, sessionID string) error
	RevokeAll(ctx context.Context, userID uint) (int64, error)
	RevokeOthers(ctx context.Context, userID uint, keepSessionID string) (int64, error)
	ListActive(ctx context.Context, userID uint) ([]*Session, error)
	CleanupExpired(ctx context.Context) (int64, error)
}

// AuthService sequences the verification code engine and the session manager
// into the registration and login flows
type AuthService interface {
	Register(ctx context.Context, name, email, phone, password, role string) (*User, RegistrationState, error)
	VerifyEmail(ctx context.Context, userID uint, code string) (RegistrationState, error)
	VerifyPhone(ctx context.Context, userID uint, code string) (RegistrationState, error)
	ResendCode(ctx context.Context, userID uint, purpose string) error
	Login(ctx context.Context, identifier, password string, device DeviceInfo) (*LoginOutcome, error)
	VerifyTwoFactor(ctx context.Context, userID uint, code string, device DeviceInfo) (*AuthResult, error)
	RequestPasswordReset(ctx context.Context, email, ip, userAgent string) error
	ConfirmPasswordReset(ctx context.Context, token, newPassword string) error
	GetUserProfile(ctx context.Context, userID uint) (*User, error)
}

// PasswordService defines password hashing operations
type PasswordService interface {
	Hash(password string) (string, error)
	Verify(hashedPassword, password string) bool
}

// TokenService defines signed bearer token operations
type TokenService interface {
	GenerateAccessToken(userID uint, role string, sessionID string) (string, error)
	ValidateAccessToken(token string) (*TokenClaims, error)
}

// NotificationService defines the delivery channels consumed by the
// orchestrator
type NotificationService interface {
	SendSMS(ctx context.Context, to, message string) error
	SendEmail(ctx context.Context, to, subject, bodyHTML string) error
}

// EventPublisher publishes auth events to the message bus, best effort
type EventPublisher interface {
	Publish(ctx context.Context, eventType string, payload any) error
}

// PolicyService defines authorization policy operations
type PolicyService interface {
	AddPolicy(role, resource, action string) error
	RemovePolicy(role, resource, action string) error
	CheckPermission(role, resource, action string) (bool, error)
	GetPolicies() [][]string
}

// TokenClaims represents JWT access token claims
type TokenClaims struct {
	UserID    uint   `json:"user_id"`
	Role      string `json:"role"`
	SessionID string `json:"session_id,omitempty"`
	IssuedAt  int64  `json:"iat"`
	ExpiresAt int64  `json:"exp"`
}

// CasbinEnforcer is the subset of the Casbin enforcer used by the service
type CasbinEnforcer interface {
	AddPolicy(params ...interface{}) (bool, error)
	RemovePolicy(params ...interface{}) (bool, error)
	Enforce(rvals ...interface{}) (bool, error)
	GetPolicy() ([][]string, error)
	SavePolicy() error
}
