package server

import "net/http"

func (s *Server) initRoutes() {
	s.RegisterRouteHandler("GET "+RouteIndex, ChainMiddleware(s.IndexHandler(), s.APIMiddleware()...))

	// LOGIN SESSIONS
	s.RegisterRouteHandler("GET "+RouteRequestURL, ChainMiddleware(s.RequestLoginURL(), s.APIMiddleware()...))
	s.RegisterRouteHandler("OPTIONS "+RouteRequestURL, ChainMiddleware(s.Preflight(), s.APIMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteVanityLogout, ChainMiddleware(s.Logout(), s.APIMiddleware()...))

	// Discovery is also answered without a vanity prefix
	s.RegisterRouteHandler("GET "+RouteWellKnownOpenIDConfig, ChainMiddleware(s.WellKnownOpenIDConfig(), s.APIMiddleware()...))

	// Everything else beneath a vanity code goes to SomToday
	s.RegisterRouteHandler(RouteVanityRoot, ChainMiddleware(s.Proxy(), s.ProxyMiddleware()...))
	s.RegisterRouteHandler(RouteVanityProxy, ChainMiddleware(s.Proxy(), s.ProxyMiddleware()...))
}

// Preflight answers CORS preflight requests for routes the proxy serves itself.
func (s *Server) Preflight() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}
}
