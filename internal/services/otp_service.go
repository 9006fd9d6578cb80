package services

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/you/marketauth/domain"
)

// evictionGrace keeps an issued code in Redis beyond its logical expiry, so
// verification can report Expired precisely while the store still evicts
// abandoned codes on its own.
const evictionGrace = time.Hour

// OTPPurposeConfig configures one code purpose.
type OTPPurposeConfig struct {
	Length int
	TTL    time.Duration
}

type OTPConfig struct {
	MaxAttempts  int
	ResendWindow time.Duration
	Purposes     map[string]OTPPurposeConfig
}

// OTPServiceImpl implements domain.OTPService using Redis persistence.
// Exactly one code is live per (user, purpose): issuing writes to a fixed
// key, superseding any earlier unused code.
type OTPServiceImpl struct {
	redisClient *redis.Client
	config      OTPConfig
}

// NewOTPService creates a new Redis-based verification code engine
func NewOTPService(redisClient *redis.Client, config OTPConfig) domain.OTPService {
	return &OTPServiceImpl{
		redisClient: redisClient,
		config:      config,
	}
}

func otpKey(purpose string, userID uint) string {
	return fmt.Sprintf("otp:%s:%d", purpose, userID)
}

func attemptsKey(purpose string, userID uint) string {
	return fmt.Sprintf("otp:att:%s:%d", purpose, userID)
}

func resendKey(purpose string, userID uint) string {
	return fmt.Sprintf("otp:res:%s:%d", purpose, userID)
}

// Issue implements domain.OTPService. Delivery is the caller's concern.
func (s *OTPServiceImpl) Issue(ctx context.Context, userID uint, purpose string) (*domain.OTPRecord, error) {
	pc, ok := s.config.Purposes[purpose]
	if !ok {
		return nil, fmt.Errorf("unknown otp purpose %q", purpose)
	}

	if canResend, waitTime, err := s.CanResend(ctx, userID, purpose); err != nil {
		return nil, err
	} else if !canResend {
		return nil, fmt.Errorf("%w: retry in %d seconds", domain.ErrOTPThrottled, waitTime)
	}

	code, err := generateSecureCode(pc.Length)
	if err != nil {
		return nil, fmt.Errorf("failed to generate otp code: %w", err)
	}

	record := &domain.OTPRecord{
		UserID:    userID,
		Purpose:   purpose,
		Code:      code,
		ExpiresAt: time.Now().Add(pc.TTL),
	}

	data, err := json.Marshal(record)
	if err != nil {
		return nil, err
	}

	storeTTL := pc.TTL + evictionGrace
	if err := s.redisClient.Set(ctx, otpKey(purpose, userID), data, storeTTL).Err(); err != nil {
		return nil, fmt.Errorf("failed to store otp: %w", err)
	}
	if err := s.redisClient.Set(ctx, attemptsKey(purpose, userID), 0, storeTTL).Err(); err != nil {
		return nil, fmt.Errorf("failed to initialize attempts counter: %w", err)
	}
	if err := s.redisClient.Set(ctx, resendKey(purpose, userID), 1, s.config.ResendWindow).Err(); err != nil {
		return nil, fmt.Errorf("failed to set resend throttle: %w", err)
	}

	return record, nil
}

// Verify implements domain.OTPService. The attempt counter is bumped with a
// store-side INCR before any comparison, so once the budget is exhausted
// even a correct code is rejected. The code itself is claimed with GETDEL:
// of two concurrent verifications, only one observes the record.
func (s *OTPServiceImpl) Verify(ctx context.Context, userID uint, code, purpose string) error {
	attempts, err := s.redisClient.Incr(ctx, attemptsKey(purpose, userID)).Result()
	if err != nil {
		return fmt.Errorf("failed to increment attempts: %w", err)
	}

	if attempts > int64(s.config.MaxAttempts) {
		s.redisClient.Del(ctx, otpKey(purpose, userID))
		return domain.ErrOTPMaxAttempts
	}

	data, err := s.redisClient.GetDel(ctx, otpKey(purpose, userID)).Result()
	if errors.Is(err, redis.Nil) {
		return domain.ErrOTPInvalid
	}
	if err != nil {
		return fmt.Errorf("failed to read otp: %w", err)
	}

	var record domain.OTPRecord
	if err := json.Unmarshal([]byte(data), &record); err != nil {
		return fmt.Errorf("failed to decode otp record: %w", err)
	}

	if record.IsExpired(time.Now()) {
		s.redisClient.Del(ctx, attemptsKey(purpose, userID))
		return domain.ErrOTPExpired
	}

	if record.Code != code {
		// Put the record back for the remaining attempt budget.
		if ttl := time.Until(record.ExpiresAt) + evictionGrace; ttl > 0 {
			s.redisClient.Set(ctx, otpKey(purpose, userID), data, ttl)
		}
		return domain.ErrOTPInvalid
	}

	s.redisClient.Del(ctx, attemptsKey(purpose, userID))
	return nil
}

// CanResend implements domain.OTPService with Redis-based throttling
func (s *OTPServiceImpl) CanResend(ctx context.Context, userID uint, purpose string) (bool, int64, error) {
	ttl, err := s.redisClient.TTL(ctx, resendKey(purpose, userID)).Result()
	if err != nil {
		return false, 0, fmt.Errorf("failed to check resend ttl: %w", err)
	}

	if ttl <= 0 {
		return true, 0, nil
	}

	return false, int64(ttl.Seconds()), nil
}

// generateSecureCode generates a cryptographically secure numeric code
func generateSecureCode(length int) (string, error) {
	digits := make([]byte, length)

	for i := 0; i < length; i++ {
		num, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", fmt.Errorf("failed to generate random digit: %w", err)
		}
		digits[i] = byte('0' + num.Int64())
	}

	return string(digits), nil
}
