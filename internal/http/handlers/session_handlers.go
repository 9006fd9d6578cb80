package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/you/marketauth/domain"
)

// SessionHandlers exposes the authenticated device/session surface
type SessionHandlers struct {
	sessionSvc domain.SessionService
}

// NewSessionHandlers creates new session handlers
func NewSessionHandlers(sessionSvc domain.SessionService) *SessionHandlers {
	return &SessionHandlers{sessionSvc: sessionSvc}
}

// currentUserID reads the user ID the auth middleware stored in the context.
func currentUserID(c *gin.Context) (uint, bool) {
	raw, exists := c.Get("user_id")
	if !exists {
		return 0, false
	}
	id, err := strconv.ParseUint(raw.(string), 10, 32)
	if err != nil {
		return 0, false
	}
	return uint(id), true
}

func sessionView(s *domain.Session) gin.H {
	return gin.H{
		"id":               s.ID,
		"ip":               s.Device.IP,
		"user_agent":       s.Device.UserAgent,
		"browser":          s.Device.Browser,
		"os":               s.Device.OS,
		"location":         s.Device.Location,
		"created_at":       s.CreatedAt,
		"last_accessed_at": s.LastAccessedAt,
		"expires_at":       s.ExpiresAt,
	}
}

// List returns the caller's active sessions
func (h *SessionHandlers) List(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User ID not found in context"})
		return
	}

	sessions, err := h.sessionSvc.ListActive(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list sessions"})
		return
	}

	current, _ := c.Get("session_id")
	views := make([]gin.H, 0, len(sessions))
	for _, s := range sessions {
		v := sessionView(s)
		v["current"] = s.ID == current
		views = append(views, v)
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"sessions": views}})
}

// Logout revokes the caller's current session
func (h *SessionHandlers) Logout(c *gin.Context) {
	sessionID, exists := c.Get("session_id")
	if !exists {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Session ID not found"})
		return
	}

	if err := h.sessionSvc.Revoke(c.Request.Context(), sessionID.(string)); err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Session not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Logout failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": gin.H{"message": "Logged out successfully"},
	})
}

// LogoutAll revokes every session of the caller, including the current one
func (h *SessionHandlers) LogoutAll(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User ID not found in context"})
		return
	}

	revoked, err := h.sessionSvc.RevokeAll(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Logout failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": gin.H{"message": "Logged out everywhere", "revoked": revoked},
	})
}

// LogoutOthers revokes every session of the caller except the current one
func (h *SessionHandlers) LogoutOthers(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User ID not found in context"})
		return
	}
	sessionID, exists := c.Get("session_id")
	if !exists {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Session ID not found"})
		return
	}

	revoked, err := h.sessionSvc.RevokeOthers(c.Request.Context(), userID, sessionID.(string))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Logout failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": gin.H{"message": "Other sessions logged out", "revoked": revoked},
	})
}
