package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/you/marketauth/domain"
)

// Purpose-specific subject lines for code delivery.
var emailSubjects = map[string]string{
	domain.PurposeEmailVerification: "Verify your email address",
	domain.PurposeTwoFactor:         "Your login verification code",
	domain.PurposePasswordReset:     "Your password reset code",
}

// AuthServiceImpl implements domain.AuthService: the state machines that
// sequence the verification code engine and the session manager into the
// registration and login flows.
type AuthServiceImpl struct {
	userRepo    domain.UserRepository
	passwordSvc domain.PasswordService
	otpSvc      domain.OTPService
	tokenSvc    domain.VerificationTokenService
	sessionSvc  domain.SessionService
	notifier    domain.NotificationService
	securityLog domain.SecurityLogRepository
	publisher   domain.EventPublisher
	logger      *logrus.Logger
	resetURL    string
}

// NewAuthService creates a new auth orchestrator
func NewAuthService(
	userRepo domain.UserRepository,
	passwordSvc domain.PasswordService,
	otpSvc domain.OTPService,
	tokenSvc domain.VerificationTokenService,
	sessionSvc domain.SessionService,
	notifier domain.NotificationService,
	securityLog domain.SecurityLogRepository,
	publisher domain.EventPublisher,
	logger *logrus.Logger,
) domain.AuthService {
	return &AuthServiceImpl{
		userRepo:    userRepo,
		passwordSvc: passwordSvc,
		otpSvc:      otpSvc,
		tokenSvc:    tokenSvc,
		sessionSvc:  sessionSvc,
		notifier:    notifier,
		securityLog: securityLog,
		publisher:   publisher,
		logger:      logger,
	}
}

// Register starts the registration state machine. Uniqueness is enforced by
// the credential store's unique indexes; the user record is created
// unverified and only flips to active once both verifications complete.
func (s *AuthServiceImpl) Register(ctx context.Context, name, email, phone, password, role string) (*domain.User, domain.RegistrationState, error) {
	hashedPassword, err := s.passwordSvc.Hash(password)
	if err != nil {
		return nil, "", fmt.Errorf("failed to hash password: %w", err)
	}

	if role == "" {
		role = domain.RoleUser
	}

	user := &domain.User{
		Name:         name,
		Email:        email,
		Phone:        phone,
		PasswordHash: hashedPassword,
		Role:         role,
		Status:       domain.StatusUnverified,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, "", err
	}

	if err := s.issueAndDeliver(ctx, user, domain.PurposeEmailVerification); err != nil {
		// The code stays valid for a manual resend; surfacing the state
		// lets the client land on the resend path.
		s.logger.WithError(err).WithField("user_id", user.ID).Warn("email code delivery failed at registration")
	}

	return user, domain.RegEmailPending, nil
}

// VerifyEmail advances EmailPending -> EmailVerified and opens the phone
// phase. A failed check leaves the state unchanged.
func (s *AuthServiceImpl) VerifyEmail(ctx context.Context, userID uint, code string) (domain.RegistrationState, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return "", err
	}
	if user.EmailVerified {
		return "", domain.ErrAlreadyVerified
	}

	if err := s.otpSvc.Verify(ctx, userID, code, domain.PurposeEmailVerification); err != nil {
		s.logOTPFailure(ctx, userID, domain.PurposeEmailVerification, err)
		return domain.RegEmailPending, err
	}

	if err := s.userRepo.MarkEmailVerified(ctx, userID); err != nil {
		return "", err
	}

	user.EmailVerified = true
	if err := s.issueAndDeliver(ctx, user, domain.PurposePhoneVerification); err != nil {
		s.logger.WithError(err).WithField("user_id", userID).Warn("phone code delivery failed")
	}

	return domain.RegPhonePending, nil
}

// VerifyPhone closes the registration state machine. It refuses to run
// before the email phase completed, even when the phone code is valid, and
// only then activates the account.
func (s *AuthServiceImpl) VerifyPhone(ctx context.Context, userID uint, code string) (domain.RegistrationState, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return "", err
	}
	if !user.EmailVerified {
		return domain.RegEmailPending, domain.ErrEmailNotVerified
	}
	if user.PhoneVerified {
		return "", domain.ErrAlreadyVerified
	}

	if err := s.otpSvc.Verify(ctx, userID, code, domain.PurposePhoneVerification); err != nil {
		s.logOTPFailure(ctx, userID, domain.PurposePhoneVerification, err)
		return domain.RegPhonePending, err
	}

	if err := s.userRepo.MarkPhoneVerified(ctx, userID); err != nil {
		return "", err
	}
	if err := s.userRepo.Activate(ctx, userID); err != nil {
		return "", err
	}

	s.audit(ctx, &userID, domain.EventRegistered, "", nil)
	s.publisher.Publish(ctx, domain.EventRegistered, map[string]any{
		"user_id": user.ID,
		"email":   user.Email,
		"role":    user.Role,
	})

	return domain.RegComplete, nil
}

// ResendCode re-enters a pending phase with a fresh code.
func (s *AuthServiceImpl) ResendCode(ctx context.Context, userID uint, purpose string) error {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return err
	}

	switch purpose {
	case domain.PurposeEmailVerification:
		if user.EmailVerified {
			return domain.ErrAlreadyVerified
		}
	case domain.PurposePhoneVerification:
		if user.PhoneVerified {
			return domain.ErrAlreadyVerified
		}
	case domain.PurposeTwoFactor:
		// Re-delivery during a pending two-factor login.
	default:
		return fmt.Errorf("purpose %q cannot be resent", purpose)
	}

	return s.issueAndDeliver(ctx, user, purpose)
}

// Login runs the credential check leg of the login state machine. Lock and
// status gates run before any password comparison, and a wrong password is
// never distinguishable from an unknown identifier.
func (s *AuthServiceImpl) Login(ctx context.Context, identifier, password string, device domain.DeviceInfo) (*domain.LoginOutcome, error) {
	user, err := s.findByIdentifier(ctx, identifier)
	if err != nil {
		s.audit(ctx, nil, domain.EventLoginFailed, device.IP, map[string]any{"reason": "unknown_identifier"})
		return nil, domain.ErrInvalidCredentials
	}

	if gateErr := s.loginGates(user); gateErr != nil {
		return nil, gateErr
	}

	if !s.passwordSvc.Verify(user.PasswordHash, password) {
		updated, recErr := s.userRepo.RecordFailedLogin(ctx, user.ID)
		if recErr != nil {
			return nil, recErr
		}
		s.audit(ctx, &user.ID, domain.EventLoginFailed, device.IP, map[string]any{"attempts": updated.LoginAttempts})
		if updated.LockUntil != nil && (user.LockUntil == nil || updated.LockUntil.After(*user.LockUntil)) {
			s.audit(ctx, &user.ID, domain.EventAccountLocked, device.IP, nil)
			s.publisher.Publish(ctx, domain.EventAccountLocked, map[string]any{"user_id": user.ID})
		}
		return nil, domain.ErrInvalidCredentials
	}

	if err := s.userRepo.ResetFailedLogin(ctx, user.ID, device.IP); err != nil {
		return nil, err
	}

	if user.TwoFactorEnabled {
		if err := s.issueAndDeliver(ctx, user, domain.PurposeTwoFactor); err != nil {
			return nil, err
		}
		return &domain.LoginOutcome{TwoFactorPending: true, UserID: user.ID}, nil
	}

	result, err := s.sessionSvc.CreateSession(ctx, user, device)
	if err != nil {
		return nil, err
	}

	s.audit(ctx, &user.ID, domain.EventLoginSuccess, device.IP, map[string]any{"session_id": result.SessionID})
	return &domain.LoginOutcome{Result: result, UserID: user.ID}, nil
}

// VerifyTwoFactor closes the two-factor leg; only on success does the
// orchestrator issue a session.
func (s *AuthServiceImpl) VerifyTwoFactor(ctx context.Context, userID uint, code string, device domain.DeviceInfo) (*domain.AuthResult, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, domain.ErrInvalidCredentials
	}

	if gateErr := s.loginGates(user); gateErr != nil {
		return nil, gateErr
	}

	if err := s.otpSvc.Verify(ctx, userID, code, domain.PurposeTwoFactor); err != nil {
		s.logOTPFailure(ctx, userID, domain.PurposeTwoFactor, err)
		return nil, err
	}

	result, err := s.sessionSvc.CreateSession(ctx, user, device)
	if err != nil {
		return nil, err
	}

	s.audit(ctx, &user.ID, domain.EventLoginSuccess, device.IP, map[string]any{"session_id": result.SessionID, "two_factor": true})
	return result, nil
}

// RequestPasswordReset issues a single-use reset token and emails it. The
// response never reveals whether the address exists.
func (s *AuthServiceImpl) RequestPasswordReset(ctx context.Context, email, ip, userAgent string) error {
	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil
		}
		return err
	}

	token, err := s.tokenSvc.Issue(ctx, user.ID, domain.TokenPasswordReset, user.Email, "", ip, userAgent)
	if err != nil {
		return err
	}

	body := fmt.Sprintf("<p>Use this token to reset your password: <strong>%s</strong></p>", token.Token)
	if err := s.notifier.SendEmail(ctx, user.Email, emailSubjects[domain.PurposePasswordReset], body); err != nil {
		// The token stays valid; the caller may retry the request.
		s.logger.WithError(err).WithField("user_id", user.ID).Warn("password reset delivery failed")
	}

	return nil
}

// ConfirmPasswordReset consumes the reset token, replaces the password, and
// logs out every device.
func (s *AuthServiceImpl) ConfirmPasswordReset(ctx context.Context, tokenValue, newPassword string) error {
	token, err := s.tokenSvc.Redeem(ctx, tokenValue, domain.TokenPasswordReset)
	if err != nil {
		return err
	}

	hashed, err := s.passwordSvc.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	if err := s.userRepo.SetPassword(ctx, token.UserID, hashed); err != nil {
		return err
	}

	if _, err := s.sessionSvc.RevokeAll(ctx, token.UserID); err != nil {
		s.logger.WithError(err).WithField("user_id", token.UserID).Error("failed to revoke sessions after password reset")
	}

	userID := token.UserID
	s.audit(ctx, &userID, domain.EventPasswordReset, token.IPAddress, nil)
	s.publisher.Publish(ctx, domain.EventPasswordReset, map[string]any{"user_id": token.UserID})
	return nil
}

// GetUserProfile implements domain.AuthService
func (s *AuthServiceImpl) GetUserProfile(ctx context.Context, userID uint) (*domain.User, error) {
	return s.userRepo.FindByID(ctx, userID)
}

func (s *AuthServiceImpl) findByIdentifier(ctx context.Context, identifier string) (*domain.User, error) {
	user, err := s.userRepo.FindByEmail(ctx, identifier)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, domain.ErrUserNotFound) {
		return nil, err
	}
	return s.userRepo.FindByPhone(ctx, identifier)
}

// loginGates enforces the pre-password checks: lockout and account status,
// independent of password correctness.
func (s *AuthServiceImpl) loginGates(user *domain.User) error {
	if user.IsLocked(time.Now()) {
		return domain.ErrAccountLocked
	}

	switch user.Status {
	case domain.StatusBlocked:
		return domain.ErrAccountBlocked
	case domain.StatusSuspended:
		return domain.ErrAccountSuspended
	case domain.StatusUnverified:
		if !user.EmailVerified {
			return domain.ErrEmailNotVerified
		}
		return domain.ErrPhoneNotVerified
	}

	return nil
}

// issueAndDeliver asks the code engine for a fresh code and routes it to
// the channel the purpose implies. The engine itself is delivery-agnostic.
func (s *AuthServiceImpl) issueAndDeliver(ctx context.Context, user *domain.User, purpose string) error {
	record, err := s.otpSvc.Issue(ctx, user.ID, purpose)
	if err != nil {
		return err
	}

	minutes := int(time.Until(record.ExpiresAt).Minutes())
	if purpose == domain.PurposePhoneVerification {
		message := fmt.Sprintf("Your verification code is %s. Valid for %d minutes.", record.Code, minutes)
		return s.notifier.SendSMS(ctx, user.Phone, message)
	}

	body := fmt.Sprintf("<p>Your verification code is <strong>%s</strong>. It expires in %d minutes.</p>", record.Code, minutes)
	return s.notifier.SendEmail(ctx, user.Email, emailSubjects[purpose], body)
}

func (s *AuthServiceImpl) logOTPFailure(ctx context.Context, userID uint, purpose string, err error) {
	if errors.Is(err, domain.ErrOTPInvalid) || errors.Is(err, domain.ErrOTPExpired) || errors.Is(err, domain.ErrOTPMaxAttempts) {
		s.audit(ctx, &userID, domain.EventOTPFailed, "", map[string]any{"purpose": purpose, "reason": err.Error()})
	}
}

func (s *AuthServiceImpl) audit(ctx context.Context, userID *uint, action, ip string, metadata map[string]any) {
	if err := s.securityLog.Log(ctx, &domain.SecurityEvent{
		UserID:    userID,
		Action:    action,
		IPAddress: ip,
		Metadata:  metadata,
	}); err != nil {
		s.logger.WithError(err).WithField("action", action).Warn("failed to write security log")
	}
}
