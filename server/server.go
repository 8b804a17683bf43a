// Package server exposes the relay store over its HTTP boundary. It is the
// only component of the protocol that lives outside the browser-side
// contexts, so it stays deliberately small: three JSON endpoints plus a
// health check.
package server

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/adboardhq/auth-relay/internal/config"
	"github.com/adboardhq/auth-relay/relay"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

type Server struct {
	env    string // Environment (e.g., "DEV", "PROD")
	mux    *http.ServeMux
	routes []string
	config config.Config
	repo   relay.Repo
}

func New(cfg config.Config, repo relay.Repo) (*Server, error) {
	if repo == nil {
		return nil, errors.New("[Server New] relay repo is required")
	}
	s := &Server{
		mux:    http.NewServeMux(),
		config: cfg,
		repo:   repo,
	}
	s.env = cfg.GetEnv()

	s.initRoutes()
	s.logRoutes()

	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return // Skip logging in non-development environments
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)
		if len(parts) > 1 {
			log.Info().Msg(fmt.Sprintf("[%-7s] %s", parts[0], parts[1]))
		} else {
			log.Info().Msg(fmt.Sprintf("[%-7s] %s", "", parts[0]))
		}
	}
}
