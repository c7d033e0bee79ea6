package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"pimine.team/miner/config"
	"pimine.team/miner/net/server/cert"
)

// This Server is a simple wrapper for a http.Server server with optional TLS.
type Server struct {
	Http *http.Server
	cr   *cert.CertReloader
}

// Create a new Server with optional TLS using the CertReloader.
func NewServer(handler http.Handler, httpAddr, httpCert, httpKey string) (s *Server, err error) {

	// simple http/tls server
	s = &Server{
		Http: &http.Server{
			Addr:              httpAddr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}

	// maybe load a tls config for the server
	if httpCert != "" || httpKey != "" {
		s.cr, err = cert.NewCertReloader(httpCert, httpKey)
		if err != nil {
			return nil, fmt.Errorf("cannot load tls keypair: %w", err)
		}
		s.Http.TLSConfig = s.cr.GetTLSConfig()
	}

	return
}

// Addr returns the base listening address, like https?://host:port
func (s *Server) Addr() string {
	protocol := "http"
	if s.Http.TLSConfig != nil {
		protocol = "https"
	}
	return fmt.Sprintf("%s://%s", protocol, s.Http.Addr)
}

// ListenAndServe runs the server until it fails or SIGINT/SIGTERM is received.
// On a signal, onShutdown is called first (e.g. to stop a running session)
// and the server is shut down gracefully.
func (s *Server) ListenAndServe(onShutdown func()) error {

	// signal handler to close connections on CTRL-C
	sigint := make(chan os.Signal, 1)
	signal.Notify(sigint, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigint)

	// start the HTTP server in background, with a channel for errors
	httpErr := make(chan error, 1)
	go func() {
		if s.Http.TLSConfig != nil {
			httpErr <- s.Http.ListenAndServeTLS("", "")
		} else {
			httpErr <- s.Http.ListenAndServe()
		}
	}()

	// select the first signal and close server
	select {

	case sig := <-sigint: // ^C pressed
		if onShutdown != nil {
			onShutdown()
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.Http.Shutdown(ctx); err != nil {
			s.Http.Close()
		}
		return fmt.Errorf("%s received", sig)

	case err := <-httpErr: // http.Server failed
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http.Server failed: %w", err)
	}

}

// Healthz returns a simple HandlerFunc simply replying with "OK"
func Healthz() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK\n"))
	}
}

// Version returns a simple HandlerFunc returning a JSON with version information
func Version() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Add("content-type", "application/json")
		json.NewEncoder(w).Encode(config.Version)
	}
}

// Prometheus simply returns the promhttp.Handler()
func Prometheus() http.Handler {
	return promhttp.Handler()
}

// Profiling mimics what the net/http/pprof.init() does, but on a fresh handler
func Profiling() http.Handler {
	// https://cs.opensource.google/go/go/+/refs/tags/go1.23.0:src/net/http/pprof/pprof.go;l=95
	mux := http.NewServeMux()
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	return mux
}

// CORS wraps a handler to answer cross-origin requests from the allowed
// origins; "*" allows any origin. Preflight requests are answered directly.
func CORS(allowed []string, next http.Handler) http.Handler {
	wildcard := slices.Contains(allowed, "*")
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && (wildcard || slices.Contains(allowed, origin)) {
			if wildcard {
				w.Header().Set("Access-Control-Allow-Origin", "*")
			} else {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Add("Vary", "Origin")
			}
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Connect-Protocol-Version, Connect-Timeout-Ms")
		}
		if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
