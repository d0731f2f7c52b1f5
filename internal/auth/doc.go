// Package auth implements the authentication and authorization core.
//
// Two credential authorities coexist: cookie-backed login sessions with
// sliding expiration (SessionService) and long-lived, scope-restricted API
// tokens with prefix-bucketed hash lookup (TokenService). The Middleware
// merges them into a single tagged AuthContext per request, which is the
// only identity input route guards consume.
//
// # Usage
//
// Initialize in the entrypoint:
//
//	userSvc := auth.NewService(userRepo, cfg.Auth)
//	sessionSvc := auth.NewSessionService(sessionRepo, cfg.Auth)
//	tokenSvc := auth.NewTokenService(tokenRepo, codec, cfg.Auth)
//	mw := auth.NewMiddleware(userSvc, sessionSvc, tokenSvc, cfg.Auth)
//	router.Use(mw.Handler())
//
// Guard routes:
//
//	api.GET("/events", mw.RequireScopes(auth.ScopeEventsRead), listEvents)
//
// Read identity in handlers:
//
//	ctx := auth.GetAuthContext(c)
package auth
