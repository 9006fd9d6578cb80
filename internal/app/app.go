package app

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/you/marketauth/domain"
	"github.com/you/marketauth/internal/config"
	httpx "github.com/you/marketauth/internal/http"
	"github.com/you/marketauth/internal/http/handlers"
	"github.com/you/marketauth/internal/http/middleware"
	"github.com/you/marketauth/internal/infrastructure/auth"
	"github.com/you/marketauth/internal/infrastructure/database"
	"github.com/you/marketauth/internal/infrastructure/events"
	"github.com/you/marketauth/internal/infrastructure/notifications"
	"github.com/you/marketauth/internal/infrastructure/repositories"
	"github.com/you/marketauth/internal/services"
)

func newLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	return logger
}

func Run(cfg *config.Config) error {
	logger := newLogger()
	if cfg.GinMode != "" {
		gin.SetMode(cfg.GinMode)
	}

	gdb, err := database.Open(cfg.DSN)
	if err != nil {
		return err
	}
	if err := database.AutoMigrate(gdb); err != nil {
		return err
	}
	cas, err := auth.NewCasbinService(gdb, cfg.CasbinModelPath)
	if err != nil {
		return err
	}
	rdb := database.NewRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB).Client
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return err
	}

	// Infrastructure services
	passwordSvc := auth.NewPasswordService()
	tokenSvc := auth.NewJWTService(cfg.JWTSecret, cfg.JWTIssuer, cfg.AccessTTL)
	smsSvc := notifications.NewTwilioService(cfg.TwilioSID, cfg.TwilioToken, cfg.TwilioFrom, logger)
	emailSvc := notifications.NewResendService(cfg.ResendAPIKey, cfg.ResendFrom, logger)
	notifier := notifications.NewChannels(smsSvc, emailSvc)
	producer := events.NewProducer(cfg.KafkaBroker, cfg.KafkaTopic, cfg.KafkaUsername, cfg.KafkaPassword, logger)
	defer producer.Close()

	// Repositories
	userRepo := repositories.NewUserRepository(gdb)
	sessionRepo := repositories.NewSessionRepository(gdb, rdb, cfg.RefreshTTL)
	vtokenRepo := repositories.NewVerificationTokenRepository(gdb)
	securityLog := repositories.NewSecurityLogRepository(gdb)

	// Services
	otpConfig := services.OTPConfig{
		MaxAttempts:  cfg.OTPMaxAttempts,
		ResendWindow: cfg.OTPResendWindow,
		Purposes:     make(map[string]services.OTPPurposeConfig, len(cfg.OTPPurposes)),
	}
	for name, pc := range cfg.OTPPurposes {
		otpConfig.Purposes[name] = services.OTPPurposeConfig{Length: pc.Length, TTL: pc.TTL}
	}
	otpSvc := services.NewOTPService(rdb, otpConfig)
	vtokenSvc := services.NewVerificationTokenService(vtokenRepo)
	sessionSvc := services.NewSessionService(sessionRepo, userRepo, tokenSvc, securityLog, producer, logger, services.SessionConfig{
		AccessTTL:      cfg.AccessTTL,
		RefreshTTL:     cfg.RefreshTTL,
		RetentionGrace: cfg.RetentionGrace,
	})
	authSvc := services.NewAuthService(userRepo, passwordSvc, otpSvc, vtokenSvc, sessionSvc, notifier, securityLog, producer, logger)
	policySvc := services.NewPolicyService(cas.E)

	// Handlers
	authH := handlers.NewAuthHandlers(authSvc, sessionSvc)
	sessH := handlers.NewSessionHandlers(sessionSvc)
	tokH := handlers.NewTokenHandlers(vtokenSvc, userRepo, sessionSvc, notifier)
	admH := handlers.NewAdminHandlers(userRepo, vtokenSvc, vtokenRepo, sessionSvc)
	polH := &handlers.PolicyHandlers{E: cas.E}

	// Middleware
	jwtMW := middleware.NewAuthMW(tokenSvc, sessionRepo)
	casbinMW := middleware.NewCasbinMW(cas.E)
	limiter := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)

	r := httpx.BuildRouter(authH, sessH, tokH, admH, polH, jwtMW, casbinMW, limiter)

	seedPolicies(policySvc, logger)
	go retentionSweep(sessionSvc, vtokenRepo, cfg.CleanupInterval, logger)

	addr := ":" + cfg.Port
	logger.WithField("addr", addr).Info("listening")
	return http.ListenAndServe(addr, r)
}

func seedPolicies(policySvc domain.PolicyService, logger *logrus.Logger) {
	if len(policySvc.GetPolicies()) > 0 {
		return
	}
	seeds := [][3]string{
		{"role_admin", "/admin/*", "(GET|POST|PUT|DELETE)"},
	}
	for _, s := range seeds {
		if err := policySvc.AddPolicy(s[0], s[1], s[2]); err != nil {
			logger.WithError(err).Warn("casbin: failed to seed policy")
			return
		}
	}
	logger.Info("casbin: seeded default policies")
}

// retentionSweep periodically deletes expired sessions and verification
// tokens past their retention window.
func retentionSweep(sessionSvc domain.SessionService, tokenRepo domain.VerificationTokenRepository, interval time.Duration, logger *logrus.Logger) {
	if interval <= 0 {
		return
	}
	for range time.Tick(interval) {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		sessions, err := sessionSvc.CleanupExpired(ctx)
		if err != nil {
			logger.WithError(err).Warn("session cleanup failed")
		}
		tokens, err := tokenRepo.DeleteExpired(ctx, time.Now())
		if err != nil {
			logger.WithError(err).Warn("token cleanup failed")
		}
		cancel()
		if sessions > 0 || tokens > 0 {
			logger.WithFields(logrus.Fields{"sessions": sessions, "tokens": tokens}).Info("retention sweep")
		}
	}
}
