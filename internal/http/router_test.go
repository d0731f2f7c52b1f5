package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/jkoudys/daybook/internal/auth"
	"github.com/jkoudys/daybook/internal/config"
	"github.com/jkoudys/daybook/internal/database/sessions"
	"github.com/jkoudys/daybook/internal/database/tokens"
	"github.com/jkoudys/daybook/internal/database/users"
	"github.com/jkoudys/daybook/internal/entities"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func setupRouter(t *testing.T) *gin.Engine {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	if err := db.AutoMigrate(&entities.User{}, &entities.Session{}, &entities.APIToken{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	cfg := config.Auth{
		SessionTTL:    720 * time.Hour,
		BcryptCost:    4, // Low cost for faster tests
		SecureCookies: false,
	}

	codec, err := auth.NewEphemeralCodec()
	if err != nil {
		t.Fatalf("failed to create codec: %v", err)
	}

	userService := auth.NewService(users.NewRepository(db), cfg)
	sessionService := auth.NewSessionService(sessions.NewRepository(db), cfg)
	tokenService := auth.NewTokenService(tokens.NewRepository(db), codec, cfg)
	middleware := auth.NewMiddleware(userService, sessionService, tokenService, cfg)

	// No CSRF secret and no rate limiter: both layers have their own tests.
	return NewRouter(RouterConfig{
		Users:      userService,
		Sessions:   sessionService,
		Tokens:     tokenService,
		Middleware: middleware,
	})
}

func doJSON(router *gin.Engine, method, path string, body any, decorate func(*http.Request)) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if decorate != nil {
		decorate(req)
	}
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("failed to decode response %q: %v", rr.Body.String(), err)
	}
	return out
}

func sessionCookie(t *testing.T, rr *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rr.Result().Cookies() {
		if c.Name == auth.SessionCookieName {
			return c
		}
	}
	t.Fatal("no session cookie in response")
	return nil
}

func TestHealth(t *testing.T) {
	router := setupRouter(t)
	rr := doJSON(router, http.MethodGet, "/health", nil, nil)
	if rr.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rr.Code)
	}
}

func TestTokenLifecycle(t *testing.T) {
	router := setupRouter(t)

	// Sign up, which also logs in
	rr := doJSON(router, http.MethodPost, "/signup", gin.H{
		"email":        "alice@example.com",
		"display_name": "Alice",
		"password":     "password12345",
	}, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("signup status = %d: %s", rr.Code, rr.Body.String())
	}
	cookie := sessionCookie(t, rr)
	withCookie := func(r *http.Request) { r.AddCookie(cookie) }

	// Issue a token scoped to profile reads
	rr = doJSON(router, http.MethodPost, "/api/tokens", gin.H{
		"name":   "automation",
		"scopes": []string{auth.ScopeAccountRead},
	}, withCookie)
	if rr.Code != http.StatusCreated {
		t.Fatalf("issue status = %d: %s", rr.Code, rr.Body.String())
	}
	body := decodeBody(t, rr)
	secret, _ := body["secret"].(string)
	if secret == "" {
		t.Fatal("issue response missing secret")
	}
	tokenInfo, _ := body["token"].(map[string]any)
	tokenID, _ := tokenInfo["id"].(string)
	if tokenID == "" {
		t.Fatal("issue response missing token id")
	}
	withBearer := func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+secret) }

	// The token reads the profile within its scope
	rr = doJSON(router, http.MethodGet, "/api/profile", nil, withBearer)
	if rr.Code != http.StatusOK {
		t.Fatalf("profile via token status = %d: %s", rr.Code, rr.Body.String())
	}

	// But cannot write outside it
	rr = doJSON(router, http.MethodPost, "/api/profile/url-token", nil, withBearer)
	if rr.Code != http.StatusForbidden {
		t.Errorf("url-token via read token status = %d, want 403", rr.Code)
	}

	// Secret viewing is a session-only surface
	rr = doJSON(router, http.MethodGet, "/api/tokens/"+tokenID+"/secret", nil, withBearer)
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("secret via token status = %d, want 401", rr.Code)
	}
	rr = doJSON(router, http.MethodGet, "/api/tokens/"+tokenID+"/secret", nil, withCookie)
	if rr.Code != http.StatusOK {
		t.Fatalf("secret via cookie status = %d: %s", rr.Code, rr.Body.String())
	}
	if viewed := decodeBody(t, rr)["secret"]; viewed != secret {
		t.Errorf("viewed secret = %v, want the issued one", viewed)
	}

	// Revoke and watch the credential die
	rr = doJSON(router, http.MethodPost, "/api/tokens/"+tokenID+"/revoke", nil, withCookie)
	if rr.Code != http.StatusOK {
		t.Fatalf("revoke status = %d: %s", rr.Code, rr.Body.String())
	}
	rr = doJSON(router, http.MethodGet, "/api/profile", nil, withBearer)
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("profile via revoked token status = %d, want 401", rr.Code)
	}
}

func TestLoginLogout(t *testing.T) {
	router := setupRouter(t)

	rr := doJSON(router, http.MethodPost, "/signup", gin.H{
		"email":    "alice@example.com",
		"password": "password12345",
	}, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("signup status = %d: %s", rr.Code, rr.Body.String())
	}

	t.Run("wrong password", func(t *testing.T) {
		rr := doJSON(router, http.MethodPost, "/login", gin.H{
			"email":    "alice@example.com",
			"password": "wrongpassword",
		}, nil)
		if rr.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", rr.Code)
		}
	})

	t.Run("unknown user gets the same answer", func(t *testing.T) {
		rr := doJSON(router, http.MethodPost, "/login", gin.H{
			"email":    "nobody@example.com",
			"password": "password12345",
		}, nil)
		if rr.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", rr.Code)
		}
	})

	t.Run("login then logout", func(t *testing.T) {
		rr := doJSON(router, http.MethodPost, "/login", gin.H{
			"email":    "alice@example.com",
			"password": "password12345",
		}, nil)
		if rr.Code != http.StatusOK {
			t.Fatalf("login status = %d: %s", rr.Code, rr.Body.String())
		}
		cookie := sessionCookie(t, rr)

		rr = doJSON(router, http.MethodGet, "/api/sessions", nil, func(r *http.Request) {
			r.AddCookie(cookie)
		})
		if rr.Code != http.StatusOK {
			t.Fatalf("sessions status = %d: %s", rr.Code, rr.Body.String())
		}

		rr = doJSON(router, http.MethodPost, "/logout", nil, func(r *http.Request) {
			r.AddCookie(cookie)
		})
		if rr.Code != http.StatusOK {
			t.Fatalf("logout status = %d: %s", rr.Code, rr.Body.String())
		}

		// The session token is gone server-side
		rr = doJSON(router, http.MethodGet, "/api/sessions", nil, func(r *http.Request) {
			r.AddCookie(cookie)
		})
		if rr.Code != http.StatusUnauthorized {
			t.Errorf("sessions after logout status = %d, want 401", rr.Code)
		}
	})
}

func TestSessionManagement(t *testing.T) {
	router := setupRouter(t)

	rr := doJSON(router, http.MethodPost, "/signup", gin.H{
		"email":    "alice@example.com",
		"password": "password12345",
	}, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("signup status = %d: %s", rr.Code, rr.Body.String())
	}
	first := sessionCookie(t, rr)

	rr = doJSON(router, http.MethodPost, "/login", gin.H{
		"email":    "alice@example.com",
		"password": "password12345",
	}, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("login status = %d: %s", rr.Code, rr.Body.String())
	}
	second := sessionCookie(t, rr)

	rr = doJSON(router, http.MethodGet, "/api/sessions", nil, func(r *http.Request) {
		r.AddCookie(second)
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("sessions status = %d: %s", rr.Code, rr.Body.String())
	}
	listed, _ := decodeBody(t, rr)["sessions"].([]any)
	if len(listed) != 2 {
		t.Fatalf("len(sessions) = %d, want 2", len(listed))
	}

	// Find and remotely revoke the first session
	var firstID string
	for _, raw := range listed {
		view, _ := raw.(map[string]any)
		if current, _ := view["current"].(bool); !current {
			firstID, _ = view["id"].(string)
		}
	}
	if firstID == "" {
		t.Fatal("could not identify the non-current session")
	}

	rr = doJSON(router, http.MethodDelete, "/api/sessions/"+firstID, nil, func(r *http.Request) {
		r.AddCookie(second)
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("delete session status = %d: %s", rr.Code, rr.Body.String())
	}

	rr = doJSON(router, http.MethodGet, "/api/sessions", nil, func(r *http.Request) {
		r.AddCookie(first)
	})
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("revoked session status = %d, want 401", rr.Code)
	}
}
