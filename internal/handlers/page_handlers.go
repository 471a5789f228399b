// File: internal/handlers/page_handlers.go
package handlers

import (
	"fmt"
	"html/template"
	"log"
	"net/http"
	"path/filepath"

	"github.com/vyomb/go-chatrelay/internal/middleware"
)

// PageHandler serves the HTML pages. Templates are parsed once at
// construction so a broken template fails the process at startup, not on
// first request.
type PageHandler struct {
	templates map[string]*template.Template
}

func NewPageHandler(templateDir string) (*PageHandler, error) {
	pages := []string{"index.html", "login.html", "register.html", "chat.html", "error.html"}
	layout := filepath.Join(templateDir, "layout.html")

	cache := make(map[string]*template.Template, len(pages))
	for _, page := range pages {
		ts, err := template.ParseFiles(layout, filepath.Join(templateDir, page))
		if err != nil {
			return nil, fmt.Errorf("parsing template %s: %w", page, err)
		}
		cache[page] = ts
	}
	return &PageHandler{templates: cache}, nil
}

// render executes a cached page inside the layout. The Authed flag lets
// the layout switch its nav between login links and the chat link.
func (h *PageHandler) render(w http.ResponseWriter, r *http.Request, page string, data map[string]interface{}) {
	addSecurityHeaders(w)

	ts, ok := h.templates[page]
	if !ok {
		log.Printf("[PageHandler] unknown page %q", page)
		http.Error(w, "Page not found", http.StatusInternalServerError)
		return
	}

	if data == nil {
		data = make(map[string]interface{})
	}
	if _, present := data["Authed"]; !present {
		_, err := r.Cookie(middleware.AccessTokenCookie)
		data["Authed"] = err == nil
	}

	if err := ts.ExecuteTemplate(w, "layout.html", data); err != nil {
		log.Printf("[PageHandler] rendering %s: %v", page, err)
		http.Error(w, "Error rendering page", http.StatusInternalServerError)
	}
}

func addSecurityHeaders(w http.ResponseWriter) {
	w.Header().Set("X-Frame-Options", "DENY")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
}

func (h *PageHandler) ShowIndexPage(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "index.html", nil)
}

func (h *PageHandler) ShowLoginPage(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "login.html", nil)
}

func (h *PageHandler) ShowRegisterPage(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "register.html", nil)
}

func (h *PageHandler) ShowChatPage(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "chat.html", map[string]interface{}{"Authed": true, "HideNav": true})
}

func (h *PageHandler) ShowErrorPage(w http.ResponseWriter, r *http.Request, code int, title, message string) {
	addSecurityHeaders(w)
	w.WriteHeader(code)
	h.render(w, r, "error.html", map[string]interface{}{
		"Code":    code,
		"Title":   title,
		"Message": message,
	})
}
