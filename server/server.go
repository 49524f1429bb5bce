package server

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jrsteele09/somtoday-proxy/exchange"
	"github.com/jrsteele09/somtoday-proxy/internal/config"
	"github.com/jrsteele09/somtoday-proxy/internal/errors"
	"github.com/jrsteele09/somtoday-proxy/sessions"
	"github.com/rs/zerolog/log"
)

// CodeExchanger redeems an intercepted authorization code for tokens.
type CodeExchanger interface {
	Exchange(ctx context.Context, code, codeVerifier string) (exchange.Result, error)
}

type Server struct {
	env       string // Environment (e.g., "DEV", "PROD")
	mux       *http.ServeMux
	routes    []string
	config    config.Config
	sessions  sessions.Repo
	client    *http.Client
	exchanger CodeExchanger
	callbacks *CallbackNotifier
	discovery *DiscoveryCache

	authURL *url.URL // inloggen.somtoday.nl
	apiURL  *url.URL // api.somtoday.nl
}

// Option configures a Server.
type Option func(*Server)

// WithHTTPClient sets the client used for every upstream and callback call.
func WithHTTPClient(client *http.Client) Option {
	return func(s *Server) {
		s.client = client
	}
}

// WithExchanger replaces the spoonfeed code exchanger.
func WithExchanger(exchanger CodeExchanger) Option {
	return func(s *Server) {
		s.exchanger = exchanger
	}
}

func New(config config.Config, sessionRepo sessions.Repo, opts ...Option) (*Server, error) {
	authURL, err := parseUpstreamURL(config.GetAuthBaseURL())
	if err != nil {
		return nil, errors.Wrapf(err, "[Server New] invalid authentication host")
	}
	apiURL, err := parseUpstreamURL(config.GetAPIBaseURL())
	if err != nil {
		return nil, errors.Wrapf(err, "[Server New] invalid API host")
	}

	s := &Server{
		env:      config.GetEnv(),
		mux:      http.NewServeMux(),
		config:   config,
		sessions: sessionRepo,
		authURL:  authURL,
		apiURL:   apiURL,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.client == nil {
		s.client = NewUpstreamClient(config.GetUpstreamTimeout())
	}
	if s.exchanger == nil {
		s.exchanger = exchange.New(config, s.client)
	}
	s.callbacks = NewCallbackNotifier(s.client)
	s.discovery = NewDiscoveryCache(authURL.String(), config, s.client)

	s.initRoutes()
	s.logRoutes()

	return s, nil
}

// NewUpstreamClient returns a pooled client that never follows redirects, so
// upstream redirects reach the device unchanged.
func NewUpstreamClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return // Skip logging in non-development environments
	}
	for _, route := range s.routes {
		method, path, found := strings.Cut(route, " ")
		if !found {
			method, path = "ANY", route
		}
		log.Debug().Msgf("[%-16s] %s", colouredMethod(method), path)
	}
}

// vanityURL is the address handed to callers for a vanity code.
func (s *Server) vanityURL(vanityCode string) string {
	return strings.TrimSuffix(s.config.GetBaseURL(), "/") + "/" + vanityCode
}

func parseUpstreamURL(raw string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSuffix(raw, "/"))
	if err != nil {
		return nil, err
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%q must be an absolute URL", raw)
	}
	return u, nil
}
