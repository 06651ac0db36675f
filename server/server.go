// Package server exposes the HTTP API: test generation, saved test
// cases, and asynchronous execution tracking.
package server

import (
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/testforge/testforge/am"
	"github.com/testforge/testforge/artifact"
	"github.com/testforge/testforge/execution"
	"github.com/testforge/testforge/gen"
	"github.com/testforge/testforge/testcase"
)

// Server wires the HTTP handlers to their collaborators.
type Server struct {
	cfg          *am.Config
	orchestrator *execution.Orchestrator
	executions   *execution.Store
	testCases    *testcase.Store
	artifacts    *artifact.Store
	genClient    gen.Client
	logger       *zap.SugaredLogger
	mux          *http.ServeMux
}

// NewServer creates a server and registers its routes.
func NewServer(
	cfg *am.Config,
	orchestrator *execution.Orchestrator,
	testCases *testcase.Store,
	artifacts *artifact.Store,
	genClient gen.Client,
	logger *zap.SugaredLogger,
) *Server {
	s := &Server{
		cfg:          cfg,
		orchestrator: orchestrator,
		executions:   orchestrator.Store(),
		testCases:    testCases,
		artifacts:    artifacts,
		genClient:    genClient,
		logger:       logger,
		mux:          http.NewServeMux(),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/health", s.corsMiddleware(s.handleHealth))
	s.mux.HandleFunc("/generate-test-preview", s.corsMiddleware(s.handleGeneratePreview))
	s.mux.HandleFunc("/test-cases", s.corsMiddleware(s.handleTestCases))
	s.mux.HandleFunc("/test-cases/", s.corsMiddleware(s.handleTestCaseRun))
	s.mux.HandleFunc("/run", s.corsMiddleware(s.handleRun))
	s.mux.HandleFunc("/exec/selenium", s.corsMiddleware(s.handleExecSelenium))
	s.mux.HandleFunc("/exec/gatling", s.corsMiddleware(s.handleExecGatling))
	s.mux.HandleFunc("/exec/jmeter", s.corsMiddleware(s.handleExecJMeter))
	s.mux.HandleFunc("/executions", s.corsMiddleware(s.handleExecutions))
	s.mux.HandleFunc("/executions/", s.corsMiddleware(s.handleExecution))
	s.mux.HandleFunc("/artifact/", s.corsMiddleware(s.handleArtifact))
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// Start blocks serving HTTP on the configured port.
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.cfg.Server.Port)
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.logger.Infow("HTTP server listening",
		"addr", addr,
		"url", fmt.Sprintf("http://localhost:%d", s.cfg.Server.Port))
	return httpServer.ListenAndServe()
}

// corsMiddleware adds CORS headers and answers preflight requests.
func (s *Server) corsMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", s.allowOrigin(r.Header.Get("Origin")))
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next(w, r)
	}
}

// allowOrigin resolves the Allow-Origin header value against the
// configured origin list. An empty list means any origin.
func (s *Server) allowOrigin(origin string) string {
	allowed := s.cfg.Server.AllowedOrigins
	if len(allowed) == 0 {
		return "*"
	}
	for _, a := range allowed {
		if a == "*" {
			return "*"
		}
		if a == origin {
			return origin
		}
	}
	return allowed[0]
}
