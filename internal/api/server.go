// Package api serves predictions over HTTP.
//
//	GET  /                  welcome page
//	GET  /api/v1/health     service and model versions
//	POST /api/v1/predict    {"inputs": [record, ...]}
//	GET  /metrics           Prometheus metrics
package api

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ajitpratap0/vehicleinsurance/pkg/config"
	"github.com/ajitpratap0/vehicleinsurance/pkg/errors"
	"github.com/ajitpratap0/vehicleinsurance/pkg/logger"
	"github.com/ajitpratap0/vehicleinsurance/pkg/predict"
)

// RequestIDHeader carries the request id in requests and responses.
const RequestIDHeader = "X-Request-ID"

// Server is the HTTP front end of a Predictor.
type Server struct {
	cfg       config.ServerConfig
	predictor *predict.Predictor
	logger    *zap.Logger
	handler   http.Handler
}

// New creates a server and builds its router.
func New(cfg config.ServerConfig, predictor *predict.Predictor, l *zap.Logger) *Server {
	s := &Server{
		cfg:       cfg,
		predictor: predictor,
		logger:    logger.OrGlobal(l).With(zap.String("component", "api")),
	}
	s.handler = s.routes()
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler { return s.handler }

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(
		s.requestID,
		middleware.RealIP,
		s.accessLog,
		middleware.Recoverer,
		cors.Handler(cors.Options{
			AllowedOrigins:   s.cfg.CORSOrigins,
			AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders:   []string{"*"},
			ExposedHeaders:   []string{RequestIDHeader},
			AllowCredentials: true,
			MaxAge:           300,
		}),
	)

	r.Get("/", s.handleIndex)
	r.Handle("/metrics", promhttp.Handler())
	r.Route(s.cfg.APIPrefix, func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Post("/predict", s.handlePredict)
	})
	return r
}

// Serve listens on the configured address until ctx is cancelled, then
// shuts down gracefully.
func (s *Server) Serve(ctx context.Context) error {
	eg, egctx := errgroup.WithContext(ctx)

	srv := &http.Server{
		Addr:         s.cfg.Addr,
		Handler:      s.handler,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
		BaseContext: func(_ net.Listener) context.Context {
			return egctx
		},
		ReadHeaderTimeout: 10 * time.Second,
	}

	eg.Go(func() error {
		s.logger.Info("starting API server", zap.String("addr", s.cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return errors.Wrap(err, errors.ErrorTypeConnection, "server error").WithDetail("addr", s.cfg.Addr)
		}
		return nil
	})

	eg.Go(func() error {
		<-egctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()

		s.logger.Info("shutting down API server")
		return srv.Shutdown(shutdownCtx)
	})

	return eg.Wait()
}

// requestID reuses an incoming request id or assigns a new one, and stores
// it on the request context for logging.
func (s *Server) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(logger.WithRequestID(r.Context(), id)))
	})
}

func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		logger.FromContext(r.Context(), s.logger).Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.String("remote", r.RemoteAddr),
			zap.Duration("duration", time.Since(start)))
	})
}
