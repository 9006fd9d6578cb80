package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/you/marketauth/domain"
)

// SessionConfig carries the session lifecycle windows.
type SessionConfig struct {
	AccessTTL      time.Duration
	RefreshTTL     time.Duration
	RetentionGrace time.Duration
}

// SessionServiceImpl implements domain.SessionService. Access tokens are
// short-lived signed JWTs; refresh tokens are opaque, unique, persisted
// values so individual sessions can be revoked server-side.
type SessionServiceImpl struct {
	sessionRepo domain.SessionRepository
	userRepo    domain.UserRepository
	tokenSvc    domain.TokenService
	securityLog domain.SecurityLogRepository
	publisher   domain.EventPublisher
	logger      *logrus.Logger
	config      SessionConfig
}

// NewSessionService creates a new session service
func NewSessionService(
	sessionRepo domain.SessionRepository,
	userRepo domain.UserRepository,
	tokenSvc domain.TokenService,
	securityLog domain.SecurityLogRepository,
	publisher domain.EventPublisher,
	logger *logrus.Logger,
	config SessionConfig,
) domain.SessionService {
	return &SessionServiceImpl{
		sessionRepo: sessionRepo,
		userRepo:    userRepo,
		tokenSvc:    tokenSvc,
		securityLog: securityLog,
		publisher:   publisher,
		logger:      logger,
		config:      config,
	}
}

// CreateSession implements domain.SessionService
func (s *SessionServiceImpl) CreateSession(ctx context.Context, user *domain.User, device domain.DeviceInfo) (*domain.AuthResult, error) {
	refreshToken, err := generateSecureToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	now := time.Now()
	session := &domain.Session{
		ID:             uuid.NewString(),
		UserID:         user.ID,
		RefreshToken:   refreshToken,
		ExpiresAt:      now.Add(s.config.RefreshTTL),
		Device:         device,
		IsActive:       true,
		LastAccessedAt: now,
	}

	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	accessToken, err := s.tokenSvc.GenerateAccessToken(user.ID, user.Role, session.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	return &domain.AuthResult{
		User:         user,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		SessionID:    session.ID,
		ExpiresIn:    int64(s.config.AccessTTL.Seconds()),
	}, nil
}

// Refresh implements domain.SessionService. The presented refresh token is
// rotated out atomically; presenting a token that was already rotated is
// treated as a theft signal and revokes the whole session.
func (s *SessionServiceImpl) Refresh(ctx context.Context, refreshToken string) (*domain.AuthResult, error) {
	session, err := s.sessionRepo.FindByRefreshToken(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			return nil, s.handlePossibleReuse(ctx, refreshToken)
		}
		return nil, err
	}

	if !session.IsActive {
		return nil, domain.ErrSessionRevoked
	}
	if session.ExpiresAt.Before(time.Now()) {
		return nil, domain.ErrSessionExpired
	}

	user, err := s.userRepo.FindByID(ctx, session.UserID)
	if err != nil {
		return nil, err
	}
	if user.Status == domain.StatusBlocked || user.Status == domain.StatusSuspended {
		return nil, domain.ErrForbidden
	}

	newRefreshToken, err := generateSecureToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	err = s.sessionRepo.Rotate(ctx, session.ID, refreshToken, newRefreshToken, time.Now().Add(s.config.RefreshTTL))
	if err != nil {
		if errors.Is(err, domain.ErrSessionRevoked) {
			// Lost a concurrent rotation on the same token: same reuse
			// posture as replaying a rotated-out token.
			s.revokeOnReuse(ctx, session)
			return nil, domain.ErrRefreshReuse
		}
		return nil, err
	}

	accessToken, err := s.tokenSvc.GenerateAccessToken(user.ID, user.Role, session.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	return &domain.AuthResult{
		User:         user,
		AccessToken:  accessToken,
		RefreshToken: newRefreshToken,
		SessionID:    session.ID,
		ExpiresIn:    int64(s.config.AccessTTL.Seconds()),
	}, nil
}

// handlePossibleReuse distinguishes an unknown token from one this service
// rotated out earlier.
func (s *SessionServiceImpl) handlePossibleReuse(ctx context.Context, refreshToken string) error {
	session, err := s.sessionRepo.FindByPrevRefreshToken(ctx, refreshToken)
	if err != nil {
		return domain.ErrSessionNotFound
	}
	s.revokeOnReuse(ctx, session)
	return domain.ErrRefreshReuse
}

func (s *SessionServiceImpl) revokeOnReuse(ctx context.Context, session *domain.Session) {
	if err := s.sessionRepo.Revoke(ctx, session.ID); err != nil && !errors.Is(err, domain.ErrSessionNotFound) {
		s.logger.WithError(err).WithField("session_id", session.ID).Error("failed to revoke session on token reuse")
	}

	userID := session.UserID
	if err := s.securityLog.Log(ctx, &domain.SecurityEvent{
		UserID:    &userID,
		Action:    domain.EventSessionRevoked,
		IPAddress: session.Device.IP,
		Metadata:  map[string]any{"reason": "refresh_token_reuse", "session_id": session.ID},
	}); err != nil {
		s.logger.WithError(err).Warn("failed to write security log")
	}

	s.publisher.Publish(ctx, domain.EventSessionRevoked, map[string]any{
		"user_id":    session.UserID,
		"session_id": session.ID,
		"reason":     "refresh_token_reuse",
	})
}

// Revoke implements domain.SessionService
func (s *SessionServiceImpl) Revoke(ctx context.Context, sessionID string) error {
	return s.sessionRepo.Revoke(ctx, sessionID)
}

// RevokeAll implements domain.SessionService; "log out everywhere"
func (s *SessionServiceImpl) RevokeAll(ctx context.Context, userID uint) (int64, error) {
	return s.sessionRepo.RevokeAllForUser(ctx, userID)
}

// RevokeOthers implements domain.SessionService
func (s *SessionServiceImpl) RevokeOthers(ctx context.Context, userID uint, keepSessionID string) (int64, error) {
	return s.sessionRepo.RevokeOthersForUser(ctx, userID, keepSessionID)
}

// ListActive implements domain.SessionService
func (s *SessionServiceImpl) ListActive(ctx context.Context, userID uint) ([]*domain.Session, error) {
	return s.sessionRepo.ListActiveForUser(ctx, userID)
}

// CleanupExpired implements domain.SessionService: the periodic maintenance
// sweep, not a user-triggered operation.
func (s *SessionServiceImpl) CleanupExpired(ctx context.Context) (int64, error) {
	return s.sessionRepo.DeleteExpired(ctx, time.Now(), s.config.RetentionGrace)
}
