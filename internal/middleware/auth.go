// File: internal/middleware/auth.go
package middleware

import (
	"context"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/vyomb/go-chatrelay/internal/auth"
	"github.com/vyomb/go-chatrelay/internal/services/user_services"
)

// NewJWTMiddleware validates the access token cookie. When the access token
// has expired but a valid refresh token is present, a fresh pair is minted
// and re-set on the response, so an active user never hits the login page.
func NewJWTMiddleware(authService *user_services.AuthService, secureCookies bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, renewed := authenticate(authService, w, r, secureCookies)
			if userID == 0 {
				reject(w, r, secureCookies)
				return
			}
			if renewed {
				log.Printf("[AuthMiddleware] Renewed tokens for user %d", userID)
			}

			ctx := context.WithValue(r.Context(), UserIDKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserIDFromContext retrieves the authenticated user ID set by the middleware.
func UserIDFromContext(ctx context.Context) (uint, bool) {
	userID, ok := ctx.Value(UserIDKey).(uint)
	return userID, ok && userID != 0
}

func authenticate(authService *user_services.AuthService, w http.ResponseWriter, r *http.Request, secure bool) (uint, bool) {
	if cookie, err := r.Cookie(AccessTokenCookie); err == nil {
		userID, err := authService.ValidateAccess(cookie.Value)
		if err == nil {
			return userID, false
		}
		if !auth.IsExpired(err) {
			log.Printf("[AuthMiddleware] Invalid access token: %v", err)
			return 0, false
		}
	}

	// Access token missing or expired: fall back to the refresh token.
	refreshCookie, err := r.Cookie(RefreshTokenCookie)
	if err != nil {
		return 0, false
	}
	userID, err := authService.ValidateRefresh(refreshCookie.Value)
	if err != nil {
		log.Printf("[AuthMiddleware] Invalid refresh token: %v", err)
		return 0, false
	}

	tokens, err := authService.IssueTokens(userID)
	if err != nil {
		log.Printf("[AuthMiddleware] Token renewal failed for user %d: %v", userID, err)
		return 0, false
	}
	SetAuthCookies(w, tokens, authService.AccessTokenTTL(), authService.RefreshTokenTTL(), secure)
	return userID, true
}

func reject(w http.ResponseWriter, r *http.Request, secure bool) {
	ClearAuthCookies(w, secure)
	if strings.HasPrefix(r.URL.Path, "/api/") {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

// SetAuthCookies writes the token pair as HttpOnly cookies.
func SetAuthCookies(w http.ResponseWriter, tokens *user_services.TokenPair, accessTTL, refreshTTL time.Duration, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     AccessTokenCookie,
		Value:    tokens.AccessToken,
		Path:     "/",
		MaxAge:   int(accessTTL.Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
	http.SetCookie(w, &http.Cookie{
		Name:     RefreshTokenCookie,
		Value:    tokens.RefreshToken,
		Path:     "/",
		MaxAge:   int(refreshTTL.Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearAuthCookies expires both auth cookies.
func ClearAuthCookies(w http.ResponseWriter, secure bool) {
	for _, name := range []string{AccessTokenCookie, RefreshTokenCookie} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			Expires:  time.Unix(0, 0),
			HttpOnly: true,
			Secure:   secure,
			SameSite: http.SameSiteLaxMode,
		})
	}
}
