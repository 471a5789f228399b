// File: internal/middleware/recovery.go
package middleware

import (
	"fmt"
	"log"
	"net/http"
	"runtime/debug"
	"strings"
)

// RecoverPanic converts handler panics into a 500 response. API routes
// get a JSON body, pages get plain text. If the response already started
// (an open SSE stream, for example) no status can be written; the
// connection is simply closed.
func RecoverPanic(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				log.Printf("[PANIC] %s %s: %v\n%s", r.Method, r.URL.Path, err, debug.Stack())
				w.Header().Set("Connection", "close")
				if rec, ok := w.(*statusRecorder); ok && rec.written {
					return
				}
				if strings.HasPrefix(r.URL.Path, "/api/") {
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					fmt.Fprint(w, `{"error":"internal server error"}`)
					return
				}
				http.Error(w, "Something went wrong on our end.", http.StatusInternalServerError)
			}
		}()

		next.ServeHTTP(w, r)
	})
}
