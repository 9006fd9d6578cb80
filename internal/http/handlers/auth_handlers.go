package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/you/marketauth/domain"
)

// AuthHandlers handles registration, verification and login HTTP requests
type AuthHandlers struct {
	authSvc    domain.AuthService
	sessionSvc domain.SessionService
}

// NewAuthHandlers creates new auth handlers
func NewAuthHandlers(authSvc domain.AuthService, sessionSvc domain.SessionService) *AuthHandlers {
	return &AuthHandlers{
		authSvc:    authSvc,
		sessionSvc: sessionSvc,
	}
}

// RegisterRequest represents registration request
type RegisterRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Phone    string `json:"phone" binding:"required"`
	Password string `json:"password" binding:"required,min=8"`
	Role     string `json:"role,omitempty"`
}

// VerifyCodeRequest represents an email/phone code verification request
type VerifyCodeRequest struct {
	UserID uint   `json:"user_id" binding:"required"`
	Code   string `json:"code" binding:"required"`
}

// ResendCodeRequest represents a code re-delivery request
type ResendCodeRequest struct {
	UserID  uint   `json:"user_id" binding:"required"`
	Purpose string `json:"purpose" binding:"required"`
}

// LoginRequest represents login request; identifier is an email or phone
type LoginRequest struct {
	Identifier string `json:"identifier" binding:"required"`
	Password   string `json:"password" binding:"required"`
}

// RefreshRequest represents token refresh request
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// PasswordResetRequest represents a password reset initiation request
type PasswordResetRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// PasswordResetConfirm represents a password reset confirmation request
type PasswordResetConfirm struct {
	Token       string `json:"token" binding:"required"`
	NewPassword string `json:"new_password" binding:"required,min=8"`
}

func deviceFromRequest(c *gin.Context) domain.DeviceInfo {
	return domain.DeviceInfo{
		IP:        c.ClientIP(),
		UserAgent: c.GetHeader("User-Agent"),
	}
}

// Register handles user registration
func (h *AuthHandlers) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, state, err := h.authSvc.Register(c.Request.Context(), req.Name, req.Email, req.Phone, req.Password, req.Role)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrDuplicateEmail):
			c.JSON(http.StatusConflict, gin.H{"error": "Email already registered"})
		case errors.Is(err, domain.ErrDuplicatePhone):
			c.JSON(http.StatusConflict, gin.H{"error": "Phone number already registered"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to register user"})
		}
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"data": gin.H{
			"message": "Registered. Check your email for a verification code.",
			"user_id": user.ID,
			"state":   state,
		},
	})
}

// VerifyEmail handles the email verification step
func (h *AuthHandlers) VerifyEmail(c *gin.Context) {
	var req VerifyCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	state, err := h.authSvc.VerifyEmail(c.Request.Context(), req.UserID, req.Code)
	if err != nil {
		respondVerifyError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": gin.H{
			"message": "Email verified. Check your phone for a verification code.",
			"state":   state,
		},
	})
}

// VerifyPhone handles the phone verification step
func (h *AuthHandlers) VerifyPhone(c *gin.Context) {
	var req VerifyCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	state, err := h.authSvc.VerifyPhone(c.Request.Context(), req.UserID, req.Code)
	if err != nil {
		if errors.Is(err, domain.ErrEmailNotVerified) {
			c.JSON(http.StatusConflict, gin.H{"error": "Email must be verified first"})
			return
		}
		respondVerifyError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": gin.H{
			"message": "Phone verified. Your account is now active.",
			"state":   state,
		},
	})
}

// ResendCode handles verification code re-delivery
func (h *AuthHandlers) ResendCode(c *gin.Context) {
	var req ResendCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.authSvc.ResendCode(c.Request.Context(), req.UserID, req.Purpose); err != nil {
		switch {
		case errors.Is(err, domain.ErrUserNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		case errors.Is(err, domain.ErrAlreadyVerified):
			c.JSON(http.StatusConflict, gin.H{"error": "Already verified"})
		case errors.Is(err, domain.ErrOTPThrottled):
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "Code recently sent, try again later"})
		case errors.Is(err, domain.ErrDeliveryFailure):
			c.JSON(http.StatusBadGateway, gin.H{"error": "Delivery failed, try again"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to resend code"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": gin.H{"message": "Code sent"},
	})
}

// Login handles user login
func (h *AuthHandlers) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	outcome, err := h.authSvc.Login(c.Request.Context(), req.Identifier, req.Password, deviceFromRequest(c))
	if err != nil {
		respondLoginError(c, err)
		return
	}

	if outcome.TwoFactorPending {
		c.JSON(http.StatusOK, gin.H{
			"data": gin.H{
				"message":         "Verification code sent",
				"two_factor":      true,
				"user_id":         outcome.UserID,
			},
		})
		return
	}

	respondAuthResult(c, outcome.Result)
}

// VerifyTwoFactor handles the second factor of a pending login
func (h *AuthHandlers) VerifyTwoFactor(c *gin.Context) {
	var req VerifyCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.authSvc.VerifyTwoFactor(c.Request.Context(), req.UserID, req.Code, deviceFromRequest(c))
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrOTPInvalid), errors.Is(err, domain.ErrOTPExpired):
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired code"})
		case errors.Is(err, domain.ErrOTPMaxAttempts):
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "Maximum attempts exceeded"})
		default:
			respondLoginError(c, err)
		}
		return
	}

	respondAuthResult(c, result)
}

// Refresh handles token refresh
func (h *AuthHandlers) Refresh(c *gin.Context) {
	var req RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.sessionSvc.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrRefreshReuse):
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Refresh token reuse detected, session revoked"})
		case errors.Is(err, domain.ErrSessionNotFound), errors.Is(err, domain.ErrSessionExpired), errors.Is(err, domain.ErrSessionRevoked):
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired refresh token"})
		case errors.Is(err, domain.ErrForbidden):
			c.JSON(http.StatusForbidden, gin.H{"error": "Account is not allowed to refresh"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Token refresh failed"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": gin.H{
			"access_token":  result.AccessToken,
			"refresh_token": result.RefreshToken,
			"token_type":    "Bearer",
			"expires_in":    result.ExpiresIn,
		},
	})
}

// RequestPasswordReset starts the password reset flow. The response is the
// same whether or not the address is registered.
func (h *AuthHandlers) RequestPasswordReset(c *gin.Context) {
	var req PasswordResetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.authSvc.RequestPasswordReset(c.Request.Context(), req.Email, c.ClientIP(), c.GetHeader("User-Agent")); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process request"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": gin.H{"message": "If that email is registered, a reset token has been sent"},
	})
}

// ConfirmPasswordReset completes the password reset flow
func (h *AuthHandlers) ConfirmPasswordReset(c *gin.Context) {
	var req PasswordResetConfirm
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.authSvc.ConfirmPasswordReset(c.Request.Context(), req.Token, req.NewPassword); err != nil {
		switch {
		case errors.Is(err, domain.ErrTokenNotFound), errors.Is(err, domain.ErrTokenExpired):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid or expired reset token"})
		case errors.Is(err, domain.ErrTokenMaxAttempts):
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "Maximum attempts exceeded"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Password reset failed"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": gin.H{"message": "Password updated. All sessions have been logged out."},
	})
}

// Me handles getting user profile (requires authentication)
func (h *AuthHandlers) Me(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User ID not found in context"})
		return
	}

	user, err := h.authSvc.GetUserProfile(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get user profile"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": gin.H{
			"id":                 user.ID,
			"name":               user.Name,
			"email":              user.Email,
			"phone":              user.Phone,
			"role":               user.Role,
			"status":             user.Status,
			"email_verified":     user.EmailVerified,
			"phone_verified":     user.PhoneVerified,
			"two_factor_enabled": user.TwoFactorEnabled,
			"created_at":         user.CreatedAt,
			"updated_at":         user.UpdatedAt,
		},
	})
}

func respondAuthResult(c *gin.Context, result *domain.AuthResult) {
	c.JSON(http.StatusOK, gin.H{
		"data": gin.H{
			"access_token":  result.AccessToken,
			"refresh_token": result.RefreshToken,
			"token_type":    "Bearer",
			"expires_in":    result.ExpiresIn,
			"user": gin.H{
				"id":    result.User.ID,
				"email": result.User.Email,
				"role":  result.User.Role,
			},
		},
	})
}

func respondLoginError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
	case errors.Is(err, domain.ErrAccountLocked):
		c.JSON(http.StatusLocked, gin.H{"error": "Account temporarily locked, try again later"})
	case errors.Is(err, domain.ErrAccountBlocked), errors.Is(err, domain.ErrAccountSuspended):
		c.JSON(http.StatusForbidden, gin.H{"error": "Account is not allowed to sign in"})
	case errors.Is(err, domain.ErrEmailNotVerified):
		c.JSON(http.StatusForbidden, gin.H{"error": "Email not verified"})
	case errors.Is(err, domain.ErrPhoneNotVerified):
		c.JSON(http.StatusForbidden, gin.H{"error": "Phone number not verified"})
	case errors.Is(err, domain.ErrOTPThrottled):
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "Code recently sent, try again later"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Login failed"})
	}
}

func respondVerifyError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrUserNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
	case errors.Is(err, domain.ErrAlreadyVerified):
		c.JSON(http.StatusConflict, gin.H{"error": "Already verified"})
	case errors.Is(err, domain.ErrOTPExpired):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Code has expired"})
	case errors.Is(err, domain.ErrOTPInvalid):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid code"})
	case errors.Is(err, domain.ErrOTPMaxAttempts):
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "Maximum attempts exceeded"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Verification failed"})
	}
}
