package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/wonny/compounder/pkg/config"
	"github.com/wonny/compounder/pkg/logger"
)

// 레코드 응답은 전부 영속 결과의 직렬화라 무겁지 않다. 읽기 15초면 충분.
const (
	readTimeout  = 15 * time.Second
	writeTimeout = 15 * time.Second
	idleTimeout  = 60 * time.Second
)

// Server hosts the read-only records API.
// ⭐ SSOT: API 서버 설정은 이 파일에서만
type Server struct {
	httpServer *http.Server
	logger     *logger.Logger
	port       string
	env        string
}

// New wraps the router in an http.Server with bounded timeouts.
func New(cfg *config.Config, log *logger.Logger, router http.Handler) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:         ":" + cfg.Port,
			Handler:      router,
			ReadTimeout:  readTimeout,
			WriteTimeout: writeTimeout,
			IdleTimeout:  idleTimeout,
		},
		logger: log.Module("api"),
		port:   cfg.Port,
		env:    cfg.Env,
	}
}

// Start blocks serving requests until Shutdown or a listener error.
func (s *Server) Start() error {
	s.logger.WithFields(map[string]interface{}{
		"port": s.port,
		"env":  s.env,
	}).Info("Records API listening")

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("serve records API: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests until ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down records API")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown records API: %w", err)
	}
	return nil
}
