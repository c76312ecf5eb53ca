package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/julienschmidt/httprouter"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/ptgott/one-record/accessor"
	"github.com/ptgott/one-record/storage"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/net/netutil"
	"golang.org/x/sync/errgroup"
)

// RequestIDHeader carries the ID used to correlate a request with its log
// lines. An incoming value is reused; otherwise one is generated.
const RequestIDHeader = "X-Request-Id"

// How long to wait for in-flight requests when shutting down
const shutdownTimeout = time.Duration(5) * time.Second

// The record is reachable with any of these methods
var methods = []string{
	http.MethodGet,
	http.MethodHead,
	http.MethodPost,
	http.MethodPut,
	http.MethodPatch,
	http.MethodDelete,
	http.MethodOptions,
}

// Handler is what the transport delivers requests to. *accessor.Accessor
// implements it.
type Handler interface {
	Handle(ctx context.Context, req accessor.Request) (accessor.Response, error)
}

// HealthCheck returns an error if the service can't currently serve requests
type HealthCheck func(ctx context.Context) error

// StoreHealth reports whether a handle can be opened on o
func StoreHealth(o storage.Opener) HealthCheck {
	return func(ctx context.Context) error {
		kv, err := o.Open(ctx)
		if err != nil {
			return err
		}
		return kv.Close()
	}
}

// Server ties the HTTP listeners to a Handler
type Server struct {
	conf    Config
	handler Handler
	health  HealthCheck
}

// New returns a Server. conf should already have been through
// CheckAndSetDefaults, though a MaxBodySize of zero or less still falls back
// to the default limit. health may be nil, in which case /healthz always
// reports success.
func New(conf Config, h Handler, health HealthCheck) *Server {
	if conf.MaxBodySize <= 0 {
		conf.MaxBodySize = defaultMaxBodySize
	}
	if health == nil {
		health = func(context.Context) error { return nil }
	}
	return &Server{
		conf:    conf,
		handler: h,
		health:  health,
	}
}

// Handler returns the http.Handler for the main listener
func (s *Server) Handler() http.Handler {
	r := httprouter.New()
	for _, m := range methods {
		r.Handle(m, "/*path", s.handleRecord)
	}

	c := cors.New(cors.Options{
		AllowedOrigins:   s.conf.CORS.AllowedOrigins,
		AllowedHeaders:   s.conf.CORS.AllowedHeaders,
		AllowedMethods:   methods,
		AllowCredentials: s.conf.CORS.AllowCredentials,
	})

	return c.Handler(s.withRequestContext(instrument(r)))
}

// AdminHandler returns the http.Handler for the admin listener
func (s *Server) AdminHandler() http.Handler {
	r := httprouter.New()
	r.Handler(http.MethodGet, "/metrics", promhttp.Handler())
	r.GET("/healthz", s.handleHealth)
	return r
}

// withRequestContext gives every request an ID, a logger carrying it, and a
// deadline
func (s *Server) withRequestContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)

		logger := log.Logger.With().
			Str("requestID", id).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Logger()
		ctx := logger.WithContext(r.Context())

		if s.conf.RequestTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, s.conf.RequestTimeout)
			defer cancel()
		}

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) handleRecord(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	logger := zerolog.Ctx(r.Context())

	var body []byte
	if r.Body != nil {
		var err error
		body, err = io.ReadAll(http.MaxBytesReader(w, r.Body, s.conf.MaxBodySize))
		if err != nil {
			var mbe *http.MaxBytesError
			if errors.As(err, &mbe) {
				writeError(w, http.StatusRequestEntityTooLarge)
				return
			}
			logger.Warn().Err(err).Msg("can't read the request body")
			writeError(w, http.StatusBadRequest)
			return
		}
	}

	resp, err := s.handler.Handle(r.Context(), accessor.Request{
		Method: r.Method,
		Path:   r.URL.Path,
		Header: r.Header,
		Body:   body,
	})
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, accessor.ErrStoreOpen) {
			status = http.StatusServiceUnavailable
		}
		logger.Error().Err(err).Int("status", status).Msg("can't handle the request")
		writeError(w, status)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(resp.Status)
	if _, err := w.Write(resp.Body); err != nil {
		logger.Warn().Err(err).Msg("can't write the response body")
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	w.Header().Set("Content-Type", "text/plain")
	if err := s.health(r.Context()); err != nil {
		log.Warn().Err(err).Msg("health check failed")
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("FAILURE"))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

type errorBody struct {
	Error string `json:"error"`
}

// writeError sends a JSON error body. Details stay in the logs.
func writeError(w http.ResponseWriter, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorBody{Error: http.StatusText(status)})
}

// Serve listens on the configured addresses until ctx is done or a listener
// fails, then shuts every server down.
func (s *Server) Serve(ctx context.Context) error {
	records, err := s.listen(s.conf.ListenAddress)
	if err != nil {
		return err
	}
	var admin net.Listener
	if s.conf.AdminAddress != "" {
		admin, err = s.listen(s.conf.AdminAddress)
		if err != nil {
			records.Close()
			return err
		}
	}

	g, ctx := errgroup.WithContext(ctx)
	s.serve(ctx, g, "main", records, s.Handler())
	if admin != nil {
		s.serve(ctx, g, "admin", admin, s.AdminHandler())
	}
	return g.Wait()
}

func (s *Server) listen(addr string) (net.Listener, error) {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	if s.conf.ConnectionLimit > 0 {
		l = netutil.LimitListener(l, s.conf.ConnectionLimit)
	}
	return l, nil
}

func (s *Server) serve(ctx context.Context, g *errgroup.Group, name string, l net.Listener, h http.Handler) {
	srv := &http.Server{
		Handler:           h,
		ReadHeaderTimeout: s.conf.ReadHeaderTimeout,
	}

	log.Info().Str("listener", name).Str("address", l.Addr().String()).Msg("listening")

	g.Go(func() error {
		err := srv.Serve(l)
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		log.Info().Str("listener", name).Msg("shutting down")
		return srv.Shutdown(sctx)
	})
}
