package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/you/marketauth/domain"
)

// TokenHandlers exposes long-lived account action tokens: recovery,
// deletion, data export and admin overrides.
type TokenHandlers struct {
	tokenSvc   domain.VerificationTokenService
	userRepo   domain.UserRepository
	sessionSvc domain.SessionService
	notifier   domain.NotificationService
}

// NewTokenHandlers creates new account token handlers
func NewTokenHandlers(
	tokenSvc domain.VerificationTokenService,
	userRepo domain.UserRepository,
	sessionSvc domain.SessionService,
	notifier domain.NotificationService,
) *TokenHandlers {
	return &TokenHandlers{
		tokenSvc:   tokenSvc,
		userRepo:   userRepo,
		sessionSvc: sessionSvc,
		notifier:   notifier,
	}
}

// IssueTokenRequest represents an account action token request
type IssueTokenRequest struct {
	Purpose string `json:"purpose" binding:"required"`
}

// RedeemTokenRequest represents an account action token redemption
type RedeemTokenRequest struct {
	Token   string `json:"token" binding:"required"`
	Purpose string `json:"purpose" binding:"required"`
}

var issuablePurposes = map[string]bool{
	domain.TokenAccountRecovery: true,
	domain.TokenDeleteAccount:   true,
	domain.TokenDataExport:      true,
	domain.TokenAdminOverride:   true,
}

// Issue creates an account action token for the caller and emails it
func (h *TokenHandlers) Issue(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User ID not found in context"})
		return
	}

	var req IssueTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !issuablePurposes[req.Purpose] {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown token purpose"})
		return
	}

	user, err := h.userRepo.FindByID(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load user"})
		return
	}

	token, err := h.tokenSvc.Issue(c.Request.Context(), userID, req.Purpose, user.Email, user.Phone, c.ClientIP(), c.GetHeader("User-Agent"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to issue token"})
		return
	}

	body := fmt.Sprintf("<p>Your account action token: <strong>%s</strong></p>", token.Token)
	if err := h.notifier.SendEmail(c.Request.Context(), user.Email, "Account action token", body); err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "Token issued but delivery failed"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"data": gin.H{
			"token_id":                token.ID,
			"expires_at":              token.ExpiresAt,
			"requires_admin_approval": token.RequiresAdminApproval,
		},
	})
}

// Redeem consumes an account action token and performs the bound action
func (h *TokenHandlers) Redeem(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User ID not found in context"})
		return
	}

	var req RedeemTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	token, err := h.tokenSvc.Redeem(c.Request.Context(), req.Token, req.Purpose)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrTokenNotFound), errors.Is(err, domain.ErrTokenExpired):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid or expired token"})
		case errors.Is(err, domain.ErrTokenMaxAttempts):
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "Maximum attempts exceeded"})
		case errors.Is(err, domain.ErrTokenNeedsApproval):
			c.JSON(http.StatusForbidden, gin.H{"error": "Token is awaiting admin approval"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Redemption failed"})
		}
		return
	}

	if token.UserID != userID {
		c.JSON(http.StatusForbidden, gin.H{"error": "Token belongs to another account"})
		return
	}

	if req.Purpose == domain.TokenDeleteAccount {
		if err := h.userRepo.SoftDelete(c.Request.Context(), userID); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete account"})
			return
		}
		if _, err := h.sessionSvc.RevokeAll(c.Request.Context(), userID); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Account deleted but session revocation failed"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": gin.H{"message": "Account deleted"}})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": gin.H{"message": "Token redeemed", "purpose": token.Purpose},
	})
}
