package domain

import "time"

// User statuses
const (
	StatusUnverified = "unverified"
	StatusActive     = "active"
	StatusSuspended  = "suspended"
	StatusBlocked    = "blocked"
)

// User roles
const (
	RoleUser   = "user"
	RoleSeller = "seller"
	RoleAdmin  = "admin"
)

// OTP purposes
const (
	PurposeEmailVerification = "email_verification"
	PurposePhoneVerification = "phone_verification"
	PurposePasswordReset     = "password_reset"
	PurposeTwoFactor         = "two_factor"
)

// Verification token purposes (long-lived, single-use tokens)
const (
	TokenAccountRecovery = "account_recovery"
	TokenDeleteAccount   = "delete_account"
	TokenDataExport      = "data_export"
	TokenAdminOverride   = "admin_override"
	TokenPasswordReset   = "password_reset"
)

// User represents a person or business account
type User struct {
	ID               uint
	Name             string
	Email            string
	Phone            string
	PasswordHash     string
	Role             string
	Status           string
	EmailVerified    bool
	PhoneVerified    bool
	EmailVerifiedAt  *time.Time
	PhoneVerifiedAt  *time.Time
	TwoFactorEnabled bool
	LoginAttempts    int
	LockUntil        *time.Time
	LastLoginAt      *time.Time
	LastLoginIP      string
	BlockedBy        *uint
	BlockedAt        *time.Time
	BlockedReason    string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// IsLocked reports whether the account is under an active failed-login lock.
func (u *User) IsLocked(now time.Time) bool {
	return u.LockUntil != nil && u.LockUntil.After(now)
}

// OTPRecord is a short-lived single-use numeric code owned by (user, purpose)
type OTPRecord struct {
	UserID    uint      `json:"user_id"`
	Purpose   string    `json:"purpose"`
	Code      string    `json:"code"`
	ExpiresAt time.Time `json:"expires_at"`
}

// IsExpired reports whether the code is past its expiry.
func (o *OTPRecord) IsExpired(now time.Time) bool {
	return now.After(o.ExpiresAt)
}

// VerificationToken is a long-lived single-use secure token for sensitive
// async actions, distinct from short numeric OTPs
type VerificationToken struct {
	ID                    uint
	UserID                uint
	Email                 string
	Phone                 string
	Token                 string
	Purpose               string
	Attempts              int
	ExpiresAt             time.Time
	IsUsed                bool
	UsedAt                *time.Time
	RequiresAdminApproval bool
	ApprovedBy            *uint
	IPAddress             string
	UserAgent             string
	CreatedAt             time.Time
}

// IsExpired reports whether the token is past its expiry.
func (t *VerificationToken) IsExpired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}

// DeviceInfo is the fingerprint captured at login, stored for display and
// audit only; it never participates in trust decisions
type DeviceInfo struct {
	DeviceID  string `json:"device_id"`
	UserAgent string `json:"user_agent"`
	IP        string `json:"ip"`
	Browser   string `json:"browser"`
	OS        string `json:"os"`
	Location  string `json:"location"`
}

// Session represents a single authenticated device/browser context
type Session struct {
	ID               string
	UserID           uint
	RefreshToken     string
	PrevRefreshToken string
	ExpiresAt        time.Time
	Device           DeviceInfo
	IsActive         bool
	LastAccessedAt   time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

/// AuthResult represents a completed login: the terminal state from which
// tokens are handed to the caller
type AuthResult struct {
	User         *User
	AccessToken  string
	RefreshToken string
	SessionID    string
	ExpiresIn    int64
}

// LoginOutcome is returned by the login orchestrator. Exactly one of Result
// and TwoFactorPending is meaningful.
type LoginOutcome struct {
	Result           *AuthResult
	TwoFactorPending bool
	UserID           uint
}

// RegistrationState names the registration state machine phases
type RegistrationState string

const (
	RegEmailPending RegistrationState = "email_pending"
	RegPhonePending RegistrationState = "phone_pending"
	RegComplete     RegistrationState = "complete"
)

// SecurityEvent is a persisted audit record of an auth-relevant action
type SecurityEvent struct {
	ID        uint
	UserID    *uint
	Action    string
	IPAddress string
	Metadata  map[string]any
	CreatedAt time.Time
}

// Security event actions
const (
	EventRegistered     = "user_registered"
	EventLoginSuccess   = "login_success"
	EventLoginFailed    = "login_failed"
	EventAccountLocked  = "account_locked"
	EventOTPFailed      = "otp_failed"
	EventSessionRevoked = "session_revoked"
	EventUserBlocked    = "user_blocked"
	EventPasswordReset  = "password_reset"
)
