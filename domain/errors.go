package domain

import "errors"

// Credential errors
var (
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrDuplicateEmail     = errors.New("email already in use")
	ErrDuplicatePhone     = errors.New("phone already in use")
	ErrAccountLocked      = errors.New("account locked due to failed login attempts")
	ErrAccountBlocked     = errors.New("account is blocked")
	ErrAccountSuspended   = errors.New("account is suspended")
)

// OTP errors
var (
	ErrOTPInvalid     = errors.New("invalid otp code")
	ErrOTPExpired     = errors.New("otp has expired")
	ErrOTPMaxAttempts = errors.New("maximum otp attempts exceeded")
	ErrOTPThrottled   = errors.New("otp resend throttled")
)

// Verification token errors
var (
	ErrTokenNotFound        = errors.New("verification token not found")
	ErrTokenExpired         = errors.New("verification token has expired")
	ErrTokenMaxAttempts     = errors.New("maximum token attempts exceeded")
	ErrTokenNeedsApproval   = errors.New("verification token requires admin approval")
	ErrDuplicateToken       = errors.New("verification token already exists")
)

// Access/refresh token errors
var (
	ErrJWTInvalid   = errors.New("invalid token")
	ErrJWTExpired   = errors.New("token has expired")
	ErrJWTMalformed = errors.New("malformed token")
)

// Session errors
var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionExpired  = errors.New("session has expired")
	ErrSessionRevoked  = errors.New("session has been revoked")
	ErrRefreshReuse    = errors.New("rotated refresh token reused")
)

// Flow errors
var (
	ErrEmailNotVerified = errors.New("email not verified")
	ErrPhoneNotVerified = errors.New("phone not verified")
	ErrAlreadyVerified  = errors.New("already verified")
	ErrDeliveryFailure  = errors.New("failed to deliver verification code")
	ErrForbidden        = errors.New("operation not permitted")
)
