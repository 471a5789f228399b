// File: internal/services/user_services/types.go
package user_services

// Logger defines the logging interface used by user services
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
	Debug(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
}

// TokenPair carries the two cookie-borne JWTs issued at login. The access
// token is short-lived; the refresh token renews it without re-login.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
