package server

const (
	RouteRelaySessions = "/relay/sessions"
	RouteRelay         = "/relay"
	RouteHealthz       = "/healthz"
)

func (s *Server) initRoutes() {
	s.RegisterRouteHandler("POST "+RouteRelaySessions, ChainMiddleware(s.OpenSessionHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteRelay, ChainMiddleware(s.WriteHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteRelay, ChainMiddleware(s.ReadHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("OPTIONS "+RouteRelay, ChainMiddleware(s.PreflightHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("OPTIONS "+RouteRelaySessions, ChainMiddleware(s.PreflightHandler(), s.APIMiddleware()...))
	s.RegisterRouteFunc("GET "+RouteHealthz, s.HealthzHandler())
}
