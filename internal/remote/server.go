// Package remote exposes the playback service over a small HTTP API.
package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/samber/mo"
	"github.com/sirupsen/logrus"

	"github.com/llehouerou/wavesd/internal/library"
	"github.com/llehouerou/wavesd/internal/playback"
	"github.com/llehouerou/wavesd/internal/sleeptimer"
)

// APIKeyHeader carries the shared secret when one is configured.
const APIKeyHeader = "X-Api-Key"

// requestTimeout bounds browse, search and load calls waiting for the
// library.
const requestTimeout = 10 * time.Second

// SleepTimer is the sleep timer driven by the API.
type SleepTimer interface {
	Set(deadline mo.Option[time.Time], waitForEnd bool) bool
	Status() sleeptimer.Status
}

// Options configures a Server.
type Options struct {
	Addr    string
	APIKey  string
	Service playback.Service
	Library playback.Library
	Sleep   SleepTimer
	Sink    *Sink
	Logger  *logrus.Entry
}

// Server is the HTTP remote.
type Server struct {
	svc     playback.Service
	library playback.Library
	sleep   SleepTimer
	sink    *Sink
	apiKey  string
	log     *logrus.Entry

	router    *mux.Router
	apiRouter *mux.Router
	server    *http.Server
	done      chan struct{}
}

// New builds the server and its routes. Nothing listens until Start.
func New(opts Options) *Server {
	log := opts.Logger
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	s := &Server{
		svc:     opts.Service,
		library: opts.Library,
		sleep:   opts.Sleep,
		sink:    opts.Sink,
		apiKey:  opts.APIKey,
		log:     log.WithField("component", "remote"),
		done:    make(chan struct{}),
	}

	s.router = mux.NewRouter().StrictSlash(false)
	s.apiRouter = s.router.PathPrefix("/api").Subrouter()
	s.apiRouter.NotFoundHandler = http.HandlerFunc(errorNotFound)
	s.apiRouter.MethodNotAllowedHandler = http.HandlerFunc(errorMethodNotAllowed)
	s.apiRouter.Use(s.middleware)
	s.routes()

	headersOk := handlers.AllowedHeaders([]string{"Content-Type", APIKeyHeader})
	originsOk := handlers.AllowedOrigins([]string{"*"})
	methodsOk := handlers.AllowedMethods([]string{"GET", "POST", "PUT", "DELETE", "OPTIONS"})

	s.server = &http.Server{
		Addr:              opts.Addr,
		Handler:           handlers.CompressHandler(handlers.CORS(originsOk, headersOk, methodsOk)(s.router)),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}
	return s
}

// Handler returns the root handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Start listens on the configured address and serves in the background.
func (s *Server) Start() error {
	listener, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.server.Addr, err)
	}
	s.log.WithField("addr", listener.Addr().String()).Info("remote API listening")
	go func() {
		defer close(s.done)
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.WithError(err).Error("remote API stopped")
		}
	}()
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.server.Shutdown(ctx)
	select {
	case <-s.done:
	case <-ctx.Done():
	}
	return err
}

func (s *Server) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.log.Warnf("recovered from panic: [%v] - stack trace:\n%s", rec, debug.Stack())
				errorMessage(w, fmt.Sprintf("%v", rec), http.StatusInternalServerError)
			}
		}()

		if s.apiKey != "" && r.Header.Get(APIKeyHeader) != s.apiKey {
			errorStatus(w, http.StatusForbidden)
			return
		}

		s.log.Debugf("%s %s", r.Method, r.URL.Path)
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func errorNotFound(w http.ResponseWriter, _ *http.Request) {
	errorStatus(w, http.StatusNotFound)
}

func errorMethodNotAllowed(w http.ResponseWriter, _ *http.Request) {
	errorStatus(w, http.StatusMethodNotAllowed)
}

func errorStatus(w http.ResponseWriter, status int) {
	errorMessage(w, "", status)
}

func errorMessage(w http.ResponseWriter, message string, status int) {
	if message == "" {
		switch status {
		case http.StatusOK, http.StatusAccepted:
			message = "Ok"
		case http.StatusNotFound:
			message = "Not found"
		case http.StatusMethodNotAllowed:
			message = "Method not allowed"
		case http.StatusForbidden:
			message = "Forbidden"
		case http.StatusServiceUnavailable:
			message = "Service unavailable"
		case http.StatusBadRequest:
			message = "Bad request"
		default:
			message = "Internal error"
		}
	}
	writeJSON(w, status, ErrorMessage{ErrStatusCode: status, ErrMessage: message})
}

// errorFrom maps service errors onto status codes.
func errorFrom(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, playback.ErrLibraryNotReady):
		errorMessage(w, err.Error(), http.StatusServiceUnavailable)
	case errors.Is(err, playback.ErrNotFound), errors.Is(err, library.ErrUnknownID):
		errorMessage(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		errorMessage(w, err.Error(), http.StatusServiceUnavailable)
	default:
		errorMessage(w, err.Error(), http.StatusInternalServerError)
	}
}
