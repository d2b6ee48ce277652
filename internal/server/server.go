// Package server hosts the HTTP surface of the transcription service.
package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/galanggg/inbound-whisper/internal/config"
)

// Server is the HTTP front of the service, backed by gin.
type Server struct {
	httpServer *http.Server
	engine     *gin.Engine
	logger     *zap.Logger
}

// New builds the server and mounts the handler's routes.
func New(cfg config.Config, handler *Handler, logger *zap.Logger) *Server {
	if cfg.Verbose {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(recovery(logger))
	engine.Use(requestLogger(logger))
	handler.Register(engine)

	httpServer := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      engine,
		ReadTimeout:  time.Duration(cfg.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.IdleTimeout) * time.Second,
	}

	return &Server{
		httpServer: httpServer,
		engine:     engine,
		logger:     logger,
	}
}

// Engine exposes the gin engine, used by tests to drive requests
// without a listener.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// Start binds the port and begins serving. It returns once the
// listener is bound; serving continues in a goroutine.
func (s *Server) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("bind %s: %w", s.httpServer.Addr, err)
	}

	s.logger.Info("http server listening", zap.String("addr", s.httpServer.Addr))

	go func() {
		if err := s.httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
			s.logger.Error("http server error", zap.Error(err))
		}
	}()

	return nil
}

// Stop gracefully shuts the server down with a 5-second deadline.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("shutting down http server")

	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return nil
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}
