// File: internal/handlers/auth_handlers.go
package handlers

import (
	"errors"
	"log"
	"net/http"
	"regexp"
	"strings"

	"github.com/vyomb/go-chatrelay/internal/middleware"
	"github.com/vyomb/go-chatrelay/internal/ratelimit"
	"github.com/vyomb/go-chatrelay/internal/repository/user"
	"github.com/vyomb/go-chatrelay/internal/services/user_services"
)

var (
	usernameRegex     = regexp.MustCompile(`^[a-zA-Z0-9_]{3,20}$`)
	emailRegex        = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
	passwordMinLength = 8
)

// AuthHandler holds the dependencies for authentication handlers.
type AuthHandler struct {
	AuthService   *user_services.AuthService
	LoginLimiter  *ratelimit.MemoryRateLimiter
	Pages         *PageHandler
	SecureCookies bool
}

func NewAuthHandler(authService *user_services.AuthService, loginLimiter *ratelimit.MemoryRateLimiter, pages *PageHandler, secureCookies bool) *AuthHandler {
	return &AuthHandler{
		AuthService:   authService,
		LoginLimiter:  loginLimiter,
		Pages:         pages,
		SecureCookies: secureCookies,
	}
}

// validateRegistration ensures username, email, and password meet basic rules.
func validateRegistration(username, email, password string) (string, string, string, string) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)
	password = strings.TrimSpace(password)

	var errMsg string
	switch {
	case !usernameRegex.MatchString(username):
		errMsg = "Username must be 3-20 characters, alphanumeric or underscore."
	case !emailRegex.MatchString(email):
		errMsg = "Email address format invalid."
	case len(password) < passwordMinLength:
		errMsg = "Password must be at least 8 characters."
	}
	return username, email, password, errMsg
}

// Register handles new user registrations, including form validation and rendering.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form data", http.StatusBadRequest)
		return
	}

	username, email, password, errMsg := validateRegistration(
		r.FormValue("username"),
		r.FormValue("email"),
		r.FormValue("password"),
	)
	if errMsg != "" {
		h.Pages.render(w, r, "register.html", map[string]interface{}{"Error": errMsg})
		return
	}

	if _, err := h.AuthService.Register(r.Context(), username, email, password); err != nil {
		log.Printf("Registration error: %v", err)
		msg := "Could not create account."
		if errors.Is(err, user.ErrUserExists) {
			msg = "An account with this email already exists."
		}
		h.Pages.render(w, r, "register.html", map[string]interface{}{"Error": msg})
		return
	}

	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

// Login validates user credentials, sets auth cookies, and redirects to chat.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form data", http.StatusBadRequest)
		return
	}

	email := strings.TrimSpace(r.FormValue("email"))
	password := r.FormValue("password")

	account, tokens, err := h.AuthService.Login(r.Context(), email, password)
	if err != nil {
		h.Pages.render(w, r, "login.html", map[string]interface{}{"Error": "Invalid email or password."})
		return
	}

	if h.LoginLimiter != nil {
		h.LoginLimiter.RecordSuccess(ratelimit.GetClientIP(r))
	}

	middleware.SetAuthCookies(w, tokens, h.AuthService.AccessTokenTTL(), h.AuthService.RefreshTokenTTL(), h.SecureCookies)
	log.Printf("[AuthHandler] User %d logged in", account.ID)
	http.Redirect(w, r, "/chat", http.StatusSeeOther)
}

// Logout clears the auth cookies and returns the user to the landing page.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	middleware.ClearAuthCookies(w, h.SecureCookies)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
