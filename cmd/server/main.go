// File: cmd/server/main.go
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/gorilla/mux"
	"gorm.io/gorm"

	"github.com/vyomb/go-chatrelay/internal/config"
	"github.com/vyomb/go-chatrelay/internal/domain"
	"github.com/vyomb/go-chatrelay/internal/handlers"
	"github.com/vyomb/go-chatrelay/internal/middleware"
	"github.com/vyomb/go-chatrelay/internal/ratelimit"
	chatrepo "github.com/vyomb/go-chatrelay/internal/repository/chat"
	messagerepo "github.com/vyomb/go-chatrelay/internal/repository/message"
	userrepo "github.com/vyomb/go-chatrelay/internal/repository/user"
	"github.com/vyomb/go-chatrelay/internal/services"
	chatservice "github.com/vyomb/go-chatrelay/internal/services/chat"
	"github.com/vyomb/go-chatrelay/internal/services/llm"
	"github.com/vyomb/go-chatrelay/internal/services/user_services"
)

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		w.Header().Set("Access-Control-Max-Age", "86400")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func main() {
	cfg := config.Load()
	logger := services.NewLogger("chatrelay")
	secureCookies := strings.ToLower(cfg.Environment) == "production"

	db, err := gorm.Open(sqlite.Open(cfg.DatabasePath), &gorm.Config{})
	if err != nil {
		log.Fatalf("DB Error: %v", err)
	}

	if err := db.AutoMigrate(&domain.User{}, &domain.Chat{}, &domain.Message{}); err != nil {
		log.Fatalf("DB Migration Error: %v", err)
	}

	// --- Repositories ---
	userRepo := userrepo.NewGormUserRepository(db)
	chatRepo := chatrepo.NewChatRepository(db)
	messageRepo := messagerepo.NewMessageRepository(db)

	// --- Services ---
	generator, err := llm.NewGenerator(&llm.Config{
		Provider:      cfg.LLMProvider,
		OllamaBaseURL: cfg.OllamaBaseURL,
		OpenAIBaseURL: cfg.OpenAIBaseURL,
		OpenAIKey:     cfg.OpenAIAPIKey,
		Model:         cfg.LLMModel,
		Timeout:       cfg.StreamTimeout,
		Temperature:   0.7,
	})
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize generator: %v", err)
	}

	streamConfig := chatservice.DefaultConfig()
	streamConfig.StreamTimeout = cfg.StreamTimeout
	streamConfig.IdleTimeout = cfg.StreamIdleTimeout

	authService := user_services.NewAuthService(
		userRepo,
		cfg.AccessTokenKey, cfg.RefreshTokenKey,
		cfg.AccessTokenTTL, cfg.RefreshTokenTTL,
		logger,
	)

	chatService, err := services.NewChatService(chatRepo, messageRepo, generator, streamConfig, logger)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize Chat Service: %v", err)
	}

	// --- Handlers ---
	loginLimiter := ratelimit.NewMemoryRateLimiter(ratelimit.DefaultAuthConfig())
	defer loginLimiter.Stop()

	pageHandler, err := handlers.NewPageHandler("web/templates")
	if err != nil {
		log.Fatalf("Failed to load templates: %v", err)
	}
	authHandler := handlers.NewAuthHandler(authService, loginLimiter, pageHandler, secureCookies)
	chatHandler := handlers.NewChatHandler(chatService)

	// --- Router Setup ---
	r := mux.NewRouter()
	authMiddleware := middleware.NewJWTMiddleware(authService, secureCookies)
	authLimit := middleware.RateLimitMiddleware(loginLimiter, "auth")

	r.Use(corsMiddleware)
	r.Use(middleware.LoggingMiddleware)
	r.Use(middleware.RecoverPanic)

	// --- Public Routes ---
	r.PathPrefix("/static/").Handler(http.StripPrefix("/static/", http.FileServer(http.Dir("web/static"))))
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	}).Methods("GET")
	r.HandleFunc("/", pageHandler.ShowIndexPage).Methods("GET")
	r.HandleFunc("/login", pageHandler.ShowLoginPage).Methods("GET")
	r.HandleFunc("/register", pageHandler.ShowRegisterPage).Methods("GET")
	r.Handle("/login", authLimit(http.HandlerFunc(authHandler.Login))).Methods("POST")
	r.Handle("/register", authLimit(http.HandlerFunc(authHandler.Register))).Methods("POST")
	r.HandleFunc("/logout", authHandler.Logout).Methods("POST", "GET")

	// --- Protected Routes ---
	protected := r.PathPrefix("/").Subrouter()
	protected.Use(authMiddleware)
	protected.HandleFunc("/chat", pageHandler.ShowChatPage).Methods("GET")

	api := protected.PathPrefix("/api").Subrouter()
	api.HandleFunc("/chats", chatHandler.GetUserChats).Methods("GET")
	api.HandleFunc("/chats", chatHandler.CreateChat).Methods("POST")
	api.HandleFunc("/chats/{id}", chatHandler.RenameChat).Methods("PUT")
	api.HandleFunc("/chats/{id}", chatHandler.DeleteChat).Methods("DELETE")
	api.HandleFunc("/chats/{id}/title", chatHandler.GenerateTitle).Methods("POST")
	api.HandleFunc("/chats/{id}/messages", chatHandler.GetChatMessages).Methods("GET")
	api.HandleFunc("/chats/{id}/messages", chatHandler.AppendMessage).Methods("PUT")
	api.HandleFunc("/chats/{id}/stream", chatHandler.StreamChat).Methods("GET")

	// --- Custom Error Handlers ---
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		pageHandler.ShowErrorPage(w, r, http.StatusNotFound, "Page Not Found", "The page you are looking for does not exist.")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		pageHandler.ShowErrorPage(w, r, http.StatusMethodNotAllowed, "Method Not Allowed", "The method is not allowed for this resource.")
	})

	// --- Server Configuration ---
	port := ":" + cfg.ServerPort
	srv := &http.Server{
		Addr:    port,
		Handler: r,
	}

	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Printf("Server starting on port %s (provider=%s, model=%s)", port, cfg.LLMProvider, cfg.LLMModel)
	log.Printf("Chat interface: http://localhost%s/chat", port)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server startup failed: %v", err)
		}
	}()

	// --- Graceful Shutdown ---
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Println("Shutting down server gracefully...")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server shutdown failed: %v", err)
	}
	log.Println("Server stopped")
}
