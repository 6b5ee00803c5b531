package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/chigozirigeorge/omnixec/internal/adapter"
	"github.com/chigozirigeorge/omnixec/internal/model"
)

// Server is the coordinator's HTTP surface.
type Server struct {
	quoteHandler   *QuoteHandler
	tradeHandler   *TradeHandler
	webhookHandler *WebhookHandler
	registry       *adapter.Registry
	logger         *zap.Logger
	server         *http.Server
}

func NewServer(
	port int,
	quoteHandler *QuoteHandler,
	tradeHandler *TradeHandler,
	webhookHandler *WebhookHandler,
	registry *adapter.Registry,
	logger *zap.Logger,
) *Server {
	return &Server{
		quoteHandler:   quoteHandler,
		tradeHandler:   tradeHandler,
		webhookHandler: webhookHandler,
		registry:       registry,
		logger:         logger,
		server: &http.Server{
			Addr:         fmt.Sprintf(":%d", port),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
	}
}

// Start starts the API server.
func (s *Server) Start() error {
	s.server.Handler = s.setupRoutes()

	s.logger.Info("Starting API server", zap.String("address", s.server.Addr))

	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start API server: %w", err)
	}
	return nil
}

// Stop stops the API server gracefully.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping API server")
	return s.server.Shutdown(ctx)
}

func (s *Server) setupRoutes() *mux.Router {
	router := mux.NewRouter()

	router.Use(s.loggingMiddleware)
	router.Use(s.corsMiddleware)

	api := router.PathPrefix("/api").Subrouter()

	api.HandleFunc("/quotes", s.quoteHandler.CreateQuote).Methods("POST")
	api.HandleFunc("/quotes/{id}", s.quoteHandler.GetQuote).Methods("GET")
	api.HandleFunc("/quotes/{id}/commit", s.quoteHandler.CommitQuote).Methods("POST")
	api.HandleFunc("/quotes/{id}/trade", s.tradeHandler.GetTradeByQuote).Methods("GET")

	api.HandleFunc("/trades/{id}", s.tradeHandler.GetTrade).Methods("GET")

	api.HandleFunc("/webhooks/{chain}", s.webhookHandler.Receive).Methods("POST")

	api.HandleFunc("/health", s.healthCheck).Methods("GET")

	return router
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		next.ServeHTTP(w, r)

		s.logger.Info("HTTP request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("remote_addr", r.RemoteAddr),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// healthCheck reports per-chain availability: a chain is available when at
// least one live adapter serves it.
func (s *Server) healthCheck(w http.ResponseWriter, r *http.Request) {
	chains := make(map[string]bool, len(model.AllChains()))
	for _, chain := range model.AllChains() {
		chains[chain.String()] = len(s.registry.AllAvailable(r.Context(), chain)) > 0
	}

	writeJSONResponse(w, s.logger, http.StatusOK, HealthResponse{
		Status: "healthy",
		Time:   time.Now().UTC().Format(time.RFC3339),
		Chains: chains,
	})
}

// writeJSONResponse writes a JSON response with the specified status code.
func writeJSONResponse(w http.ResponseWriter, logger *zap.Logger, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("Failed to encode JSON response", zap.Error(err))
	}
}

// writeErrorResponse writes an error response.
func writeErrorResponse(w http.ResponseWriter, logger *zap.Logger, statusCode int, errorCode, message string) {
	writeJSONResponse(w, logger, statusCode, ErrorResponse{
		Error:   errorCode,
		Message: message,
	})
}
