package http

import (
	"github.com/gin-gonic/gin"

	"github.com/jkoudys/daybook/internal/auth"
)

// RouterConfig carries everything the router needs, keeping NewRouter's
// signature flat and the wiring testable.
type RouterConfig struct {
	Users       *auth.Service
	Sessions    *auth.SessionService
	Tokens      *auth.TokenService
	Middleware  *auth.Middleware
	RateLimiter *auth.RateLimiter

	CSRFSecret    []byte
	SecureCookies bool
}

// NewRouter creates and configures the HTTP router with all endpoints.
func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	// CSRF must run before the resolver so bearer requests are checked
	// against the real token service before skipping protection.
	if len(cfg.CSRFSecret) > 0 {
		router.Use(auth.CSRFMiddleware(cfg.CSRFSecret, cfg.SecureCookies, cfg.Tokens))
	}

	router.Use(cfg.Middleware.Handler())

	healthController := NewHealthController()
	authController := NewAuthController(cfg.Users, cfg.Sessions, cfg.Middleware, cfg.RateLimiter)
	sessionController := NewSessionController(cfg.Sessions, cfg.Middleware)
	tokenController := NewTokenController(cfg.Tokens)
	profileController := NewProfileController(cfg.Users, cfg.Middleware)

	router.GET("/health", healthController.Health)

	router.POST("/signup", authController.SignUp)
	router.POST("/login", auth.RateLimitMiddleware(cfg.RateLimiter), authController.Login)
	router.POST("/logout", authController.Logout)

	api := router.Group("/api")
	{
		// Session management is a first-party concern: cookie callers only.
		sessions := api.Group("/sessions", cfg.Middleware.RequireSession())
		{
			sessions.GET("", sessionController.List)
			sessions.DELETE("/:id", sessionController.Delete)
		}

		tokens := api.Group("/tokens", cfg.Middleware.RequireSession())
		{
			tokens.POST("", tokenController.Issue)
			tokens.GET("", tokenController.List)
			tokens.PATCH("/:id", tokenController.Update)
			tokens.POST("/:id/revoke", tokenController.Revoke)
			tokens.DELETE("/:id", tokenController.Delete)
			tokens.GET("/:id/secret", tokenController.View)
		}

		profile := api.Group("/profile", cfg.Middleware.RequireAuth())
		{
			profile.GET("", cfg.Middleware.RequireScopes(auth.ScopeAccountRead), profileController.Profile)
			profile.PATCH("", cfg.Middleware.RequireScopes(auth.ScopeAccountWrite), profileController.UpdateProfile)
			profile.POST("/password", cfg.Middleware.RequireSession(), profileController.ChangePassword)
			profile.POST("/url-token", cfg.Middleware.RequireScopes(auth.ScopeAccountWrite), profileController.RegenerateURLToken)
			profile.DELETE("", cfg.Middleware.RequireSession(), profileController.DeleteAccount)
		}
	}

	return router
}
