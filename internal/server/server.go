// Package server exposes the dashboard over HTTP.
package server

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"time"
)

// Server runs the dashboard HTTP listener.
type Server struct {
	srv *http.Server
	ln  net.Listener
}

// Listen binds addr. Port 0 picks a free port.
func Listen(addr string, h http.Handler) (*Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &Server{
		srv: &http.Server{Handler: h, ReadHeaderTimeout: 10 * time.Second},
		ln:  ln,
	}, nil
}

// URL is the base address of the dashboard.
func (s *Server) URL() string {
	return "http://" + s.ln.Addr().String()
}

// Serve blocks until Shutdown.
func (s *Server) Serve() error {
	log.Printf("[server] listening on %s", s.URL())
	if err := s.srv.Serve(s.ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	log.Println("[server] shutting down")
	return s.srv.Shutdown(ctx)
}
