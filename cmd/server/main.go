package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/LumivoxAI/lumivox-telephony-service/internal/config"
	"github.com/LumivoxAI/lumivox-telephony-service/internal/handler"
	"github.com/LumivoxAI/lumivox-telephony-service/pkg/logger"
	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	_ "github.com/LumivoxAI/lumivox-telephony-service/docs"
)

// Server represents the telephony service HTTP server
type Server struct {
	config         *config.ServiceConfig
	router         *mux.Router
	httpServer     *http.Server
	handlerManager *handler.HandlerManager
}

// NewServer creates a new telephony service server
func NewServer(cfg *config.ServiceConfig) *Server {
	// Initialize zap logger and redirect stdlib log to it
	if _, err := logger.Init(os.Getenv("LOG_ENV")); err != nil {
		logger.Base().Error("Failed to initialize zap logger, falling back to std log")
	}

	// Create router
	router := mux.NewRouter()

	// Initialize handler manager - it will create all services internally
	handlerManager, err := handler.NewHandlerManager(cfg)
	if err != nil {
		logger.Base().Error("Failed to initialize handler manager", zap.Error(err))
		return nil
	}

	// Setup all routes through handler manager
	handlerManager.SetupAllRoutes(router)

	return &Server{
		config:         cfg,
		router:         router,
		handlerManager: handlerManager,
	}
}

// Start starts the telephony service server and blocks until the listener
// fails or Shutdown is called.
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%s", s.config.Port)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	logger.Base().Info("Starting server", zap.String("addr", addr))
	return s.httpServer.ListenAndServe()
}

// Shutdown drains in-flight requests, then stops every active call session
// and closes the backends.
func (s *Server) Shutdown(ctx context.Context) {
	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			logger.Base().Error("HTTP server shutdown failed", zap.Error(err))
		}
	}
	s.handlerManager.Shutdown()
}

// GetSessionCount returns the current number of active call sessions
func (s *Server) GetSessionCount() int {
	return s.handlerManager.GetService().GetSessionCount()
}

func main() {
	// 0. Load .env file for local development if it exists
	// This will not override environment variables set by Helm/Docker
	if err := godotenv.Load(); err != nil {
		log.Printf("Info: .env file not found or skipped (expected in production): %v", err)
	}

	// 1. Load configuration from environment
	cfg := config.LoadServiceConfig()
	fmt.Printf("🚀 Starting Lumivox Telephony Service (Instance: %s)\n", cfg.InstanceID)

	// 2. Create the server
	server := NewServer(cfg)
	if server == nil {
		log.Fatal("❌ Failed to create server")
	}
	logger.Base().Info("✅ Server initialized successfully",
		zap.String("port", cfg.Port),
		zap.String("instance_id", cfg.InstanceID))

	// 3. Start the server and wait for a shutdown signal
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("❌ Server failed to start: %v", err)
		}
	case <-ctx.Done():
		fmt.Printf("🛑 Shutting down (Instance: %s)\n", cfg.InstanceID)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
		logger.Base().Info("✅ Shutdown complete")
	}

	_ = logger.Base().Sync()
}
