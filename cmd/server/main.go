package main

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/propestai/voice-agent-service/internal/config"
	"github.com/propestai/voice-agent-service/internal/handler"
	"github.com/propestai/voice-agent-service/pkg/logger"
	"go.uber.org/zap"
)

// Server represents the voice agent backend server
type Server struct {
	config         *config.Config
	router         *mux.Router
	handlerManager *handler.HandlerManager
}

// NewServer creates a new voice agent backend server
func NewServer(cfg *config.Config) (*Server, error) {
	router := mux.NewRouter()

	// Initialize handler manager - it will create all services internally
	handlerManager, err := handler.NewHandlerManager(cfg)
	if err != nil {
		return nil, err
	}
	handlerManager.SetupAllRoutes(router)

	return &Server{
		config:         cfg,
		router:         router,
		handlerManager: handlerManager,
	}, nil
}

// Start starts the HTTP server and blocks until shutdown.
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%s", s.config.Port)

	server := &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	logger.Base().Info("starting server", zap.String("addr", addr))
	return server.ListenAndServe()
}

func main() {
	// .env is for local development; missing file is fine
	_ = godotenv.Load()

	if _, err := logger.Init(os.Getenv("LOG_ENV")); err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	cfg := config.LoadFromEnv()
	if cfg.RetellAPIKey == "" {
		logger.Base().Warn("RETELL_API_KEY is not set, outbound API calls will fail")
	}

	server, err := NewServer(cfg)
	if err != nil {
		logger.Base().Fatal("failed to initialize server", zap.Error(err))
	}

	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		<-sig
		logger.Base().Info("shutting down")
		server.handlerManager.Shutdown()
		os.Exit(0)
	}()

	if err := server.Start(); err != nil && err != http.ErrServerClosed {
		logger.Base().Fatal("server stopped", zap.Error(err))
	}
}
