package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/you/marketauth/domain"
)

const tokenMaxAttempts = 3

// tokenExpiries maps each long-lived token purpose to its validity window.
var tokenExpiries = map[string]time.Duration{
	domain.TokenAccountRecovery: 24 * time.Hour,
	domain.TokenDeleteAccount:   time.Hour,
	domain.TokenDataExport:      7 * 24 * time.Hour,
	domain.TokenAdminOverride:   30 * time.Minute,
	domain.TokenPasswordReset:   30 * time.Minute,
}

// VerificationTokenServiceImpl implements domain.VerificationTokenService.
// These are high-entropy single-use tokens for sensitive async actions, not
// the short numeric codes the OTP engine issues.
type VerificationTokenServiceImpl struct {
	tokenRepo domain.VerificationTokenRepository
}

// NewVerificationTokenService creates a new verification token service
func NewVerificationTokenService(tokenRepo domain.VerificationTokenRepository) domain.VerificationTokenService {
	return &VerificationTokenServiceImpl{tokenRepo: tokenRepo}
}

// Issue implements domain.VerificationTokenService. Creating a token
// invalidates prior unused tokens of the same (user, purpose).
func (s *VerificationTokenServiceImpl) Issue(ctx context.Context, userID uint, purpose, email, phone, ip, userAgent string) (*domain.VerificationToken, error) {
	expiry, ok := tokenExpiries[purpose]
	if !ok {
		return nil, fmt.Errorf("unknown token purpose %q", purpose)
	}

	value, err := generateSecureToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	token := &domain.VerificationToken{
		UserID:                userID,
		Email:                 email,
		Phone:                 phone,
		Token:                 value,
		Purpose:               purpose,
		ExpiresAt:             time.Now().Add(expiry),
		RequiresAdminApproval: purpose == domain.TokenAdminOverride,
		IPAddress:             ip,
		UserAgent:             userAgent,
	}

	if err := s.tokenRepo.Create(ctx, token); err != nil {
		return nil, err
	}

	return token, nil
}

// Redeem implements domain.VerificationTokenService: an atomic
// verify-and-mark-used. Expiry and the attempt budget are checked before
// approval so the caller learns the precise failure reason.
func (s *VerificationTokenServiceImpl) Redeem(ctx context.Context, tokenValue, purpose string) (*domain.VerificationToken, error) {
	token, err := s.tokenRepo.FindValid(ctx, tokenValue, purpose)
	if err != nil {
		return nil, err
	}

	if token.IsExpired(time.Now()) {
		return nil, domain.ErrTokenExpired
	}

	if token.Attempts >= tokenMaxAttempts {
		return nil, domain.ErrTokenMaxAttempts
	}

	if token.RequiresAdminApproval && token.ApprovedBy == nil {
		if err := s.tokenRepo.IncrementAttempts(ctx, token.ID); err != nil {
			return nil, err
		}
		return nil, domain.ErrTokenNeedsApproval
	}

	if err := s.tokenRepo.Consume(ctx, token.ID); err != nil {
		return nil, err
	}

	now := time.Now()
	token.IsUsed = true
	token.UsedAt = &now
	return token, nil
}

// Approve implements domain.VerificationTokenService
func (s *VerificationTokenServiceImpl) Approve(ctx context.Context, tokenID, adminID uint) error {
	return s.tokenRepo.Approve(ctx, tokenID, adminID)
}

// generateSecureToken returns a 64-character hex token from the platform
// CSPRNG.
func generateSecureToken() (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}
