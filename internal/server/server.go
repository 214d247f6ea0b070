// Package server exposes the scrape engine over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
	"ttscraper/pkg/config"
	errs "ttscraper/pkg/errors"
	"ttscraper/pkg/logger"
	"ttscraper/pkg/models"
	"ttscraper/pkg/ratelimit"
)

const (
	requestIDHeader = "X-Request-ID"
	maxBodyBytes    = 1 << 20
	idleClientTTL   = 10 * time.Minute
)

// Scraper runs one scrape
type Scraper interface {
	Scrape(ctx context.Context, req models.ScrapeRequest) (*models.ScrapeResult, error)
}

// ErrorResponse is the body of every non-200 answer
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Type    string `json:"type,omitempty"`
}

// Server serves POST /scrape and GET /healthz
type Server struct {
	scraper Scraper
	limiter *ratelimit.KeyedLimiter
	cfg     config.ServerConfig
	logger  logger.Logger
	http    *http.Server
}

// New creates a Server. A zero RequestsPerMinute turns throttling off.
func New(s Scraper, cfg config.ServerConfig, log logger.Logger) *Server {
	if log == nil {
		log = logger.GetLogger()
	}

	srv := &Server{
		scraper: s,
		cfg:     cfg,
		logger:  log,
	}
	if cfg.RequestsPerMinute > 0 {
		// a client is only forgotten once its bucket would have refilled anyway
		ttl := idleClientTTL
		if refill := time.Duration(cfg.Burst) * time.Minute / time.Duration(cfg.RequestsPerMinute); refill > ttl {
			ttl = refill
		}
		srv.limiter = ratelimit.NewKeyedLimiter(func() ratelimit.Limiter {
			return ratelimit.PerMinute(cfg.RequestsPerMinute, cfg.Burst)
		}, ratelimit.WithIdleTTL(ttl))
	}
	srv.http = &http.Server{
		Addr:              cfg.Addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: cfg.ReadTimeout,
		ReadTimeout:       cfg.ReadTimeout,
	}
	return srv
}

// Handler returns the routed handler wrapped in request id and logging middleware
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /scrape", s.handleScrape)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	return s.withRequestID(mux)
}

// ListenAndServe serves until ctx is done, then shuts down gracefully
func (s *Server) ListenAndServe(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.InfoWithFields("Listening", map[string]interface{}{"addr": s.cfg.Addr})
		errCh <- s.http.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	s.logger.Info("Shutting down")
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}

func (s *Server) handleScrape(w http.ResponseWriter, r *http.Request) {
	log := s.requestLogger(r)

	if s.limiter != nil && !s.limiter.Allow(clientIP(r)) {
		writeError(w, http.StatusTooManyRequests, "rate limit exceeded", "")
		return
	}

	var req models.ScrapeRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error(), "")
		return
	}
	req.Type = models.ParseScrapeType(string(req.Type))
	if !req.Type.Valid() {
		err := errs.NewUnsupportedType(string(req.Type))
		log.WarnWithFields("Rejected scrape", map[string]interface{}{"type": req.Type, "input": req.Input})
		writeError(w, http.StatusBadRequest, err.Error(), string(err.Type))
		return
	}

	result, err := s.scraper.Scrape(r.Context(), req)
	if err != nil {
		status := StatusFor(err)
		log.WithError(err).WarnWithFields("Scrape failed", map[string]interface{}{
			"type":   req.Type,
			"input":  req.Input,
			"status": status,
		})
		writeError(w, status, err.Error(), string(errs.TypeOf(err)))
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// StatusFor maps a scrape error to the HTTP status the service answers with
func StatusFor(err error) int {
	switch {
	case errs.IsUnsupportedType(err), errs.IsInvalidInput(err):
		return http.StatusBadRequest
	case errs.IsNetwork(err):
		return http.StatusBadGateway
	case errs.IsExtraction(err):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

type ctxKey struct{}

// statusRecorder captures the status code for the access log
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}

func (s *Server) withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r.WithContext(context.WithValue(r.Context(), ctxKey{}, id)))

		logger.LogRequest(s.logger.WithField("request_id", id), r.Method, r.URL.Path, rec.status,
			float64(time.Since(start).Microseconds())/1000)
	})
}

func (s *Server) requestLogger(r *http.Request) logger.Logger {
	if id, ok := r.Context().Value(ctxKey{}).(string); ok {
		return s.logger.WithField("request_id", id)
	}
	return s.logger
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg, kind string) {
	writeJSON(w, status, ErrorResponse{Success: false, Error: msg, Type: kind})
}
