package httpx

import (
	"github.com/gin-gonic/gin"
	"github.com/you/marketauth/internal/http/handlers"
	"github.com/you/marketauth/internal/http/middleware"
)

func BuildRouter(
	ah *handlers.AuthHandlers,
	sh *handlers.SessionHandlers,
	th *handlers.TokenHandlers,
	adh *handlers.AdminHandlers,
	ph *handlers.PolicyHandlers,
	jwtmw *middleware.AuthMW,
	cb *middleware.CasbinMW,
	rl *middleware.RateLimiter,
) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/health", func(c *gin.Context) { c.JSON(200, gin.H{"ok": true}) })

	auth := r.Group("/auth").Use(rl.Limit())
	auth.POST("/register", ah.Register)
	auth.POST("/verify-email", ah.VerifyEmail)
	auth.POST("/verify-phone", ah.VerifyPhone)
	auth.POST("/resend-code", ah.ResendCode)
	auth.POST("/login", ah.Login)
	auth.POST("/verify-2fa", ah.VerifyTwoFactor)
	auth.POST("/refresh", ah.Refresh)
	auth.POST("/password-reset/request", ah.RequestPasswordReset)
	auth.POST("/password-reset/confirm", ah.ConfirmPasswordReset)

	v := r.Group("/auth").Use(jwtmw.WithJWT())
	v.GET("/me", ah.Me)
	v.GET("/sessions", sh.List)
	v.POST("/logout", sh.Logout)
	v.POST("/logout-all", sh.LogoutAll)
	v.POST("/logout-others", sh.LogoutOthers)
	v.POST("/tokens", th.Issue)
	v.POST("/tokens/redeem", th.Redeem)

	adm := r.Group("/admin").Use(jwtmw.WithJWT(), cb.Enforce())
	adm.POST("/users/:id/block", adh.BlockUser)
	adm.POST("/users/:id/unblock", adh.UnblockUser)
	adm.GET("/users/:id/sessions", adh.UserSessions)
	adm.POST("/tokens/:id/approve", adh.ApproveToken)
	adm.POST("/maintenance/cleanup", adh.Cleanup)
	adm.GET("/policies", ph.List)
	adm.POST("/policies", ph.Add)
	adm.DELETE("/policies", ph.Remove)

	return r
}
