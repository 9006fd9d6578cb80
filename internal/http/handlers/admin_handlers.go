package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/you/marketauth/domain"
)

// AdminHandlers exposes the moderation and maintenance surface
type AdminHandlers struct {
	userRepo   domain.UserRepository
	tokenSvc   domain.VerificationTokenService
	tokenRepo  domain.VerificationTokenRepository
	sessionSvc domain.SessionService
}

// NewAdminHandlers creates new admin handlers
func NewAdminHandlers(
	userRepo domain.UserRepository,
	tokenSvc domain.VerificationTokenService,
	tokenRepo domain.VerificationTokenRepository,
	sessionSvc domain.SessionService,
) *AdminHandlers {
	return &AdminHandlers{
		userRepo:   userRepo,
		tokenSvc:   tokenSvc,
		tokenRepo:  tokenRepo,
		sessionSvc: sessionSvc,
	}
}

// BlockRequest carries the moderation reason recorded with a block
type BlockRequest struct {
	Reason string `json:"reason" binding:"required"`
}

func pathID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ID"})
		return 0, false
	}
	return uint(id), true
}

// BlockUser blocks an account and revokes its sessions
func (h *AdminHandlers) BlockUser(c *gin.Context) {
	userID, ok := pathID(c, "id")
	if !ok {
		return
	}
	adminID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Admin ID not found in context"})
		return
	}

	var req BlockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.userRepo.Block(c.Request.Context(), userID, adminID, req.Reason); err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to block user"})
		return
	}

	revoked, err := h.sessionSvc.RevokeAll(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "User blocked but session revocation failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": gin.H{"message": "User blocked", "sessions_revoked": revoked},
	})
}

// UnblockUser lifts a block
func (h *AdminHandlers) UnblockUser(c *gin.Context) {
	userID, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.userRepo.Unblock(c.Request.Context(), userID); err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to unblock user"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": gin.H{"message": "User unblocked"},
	})
}

// ApproveToken approves a pending admin-gated action token
func (h *AdminHandlers) ApproveToken(c *gin.Context) {
	tokenID, ok := pathID(c, "id")
	if !ok {
		return
	}
	adminID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Admin ID not found in context"})
		return
	}

	if err := h.tokenSvc.Approve(c.Request.Context(), tokenID, adminID); err != nil {
		if errors.Is(err, domain.ErrTokenNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Token not found or already used"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to approve token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": gin.H{"message": "Token approved"},
	})
}

// UserSessions lists the active sessions of any account
func (h *AdminHandlers) UserSessions(c *gin.Context) {
	userID, ok := pathID(c, "id")
	if !ok {
		return
	}

	sessions, err := h.sessionSvc.ListActive(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list sessions"})
		return
	}

	views := make([]gin.H, 0, len(sessions))
	for _, s := range sessions {
		views = append(views, sessionView(s))
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"sessions": views}})
}

// Cleanup runs the retention sweep on demand
func (h *AdminHandlers) Cleanup(c *gin.Context) {
	sessions, err := h.sessionSvc.CleanupExpired(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Cleanup failed"})
		return
	}

	tokens, err := h.tokenRepo.DeleteExpired(c.Request.Context(), time.Now())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Cleanup failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": gin.H{"sessions_deleted": sessions, "tokens_deleted": tokens},
	})
}
