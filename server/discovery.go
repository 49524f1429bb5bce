package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/jrsteele09/somtoday-proxy/internal/config"
	"github.com/jrsteele09/somtoday-proxy/internal/errors"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// DiscoveryCache holds SomToday's OpenID configuration document. Concurrent
// misses share one upstream fetch and a failed fetch is remembered for the
// retry interval, so an unreachable upstream costs one round trip per
// interval instead of one per request.
type DiscoveryCache struct {
	discoveryURL string
	issuer       string
	client       *http.Client
	ttl          time.Duration
	retry        time.Duration

	mu        sync.RWMutex
	document  json.RawMessage
	fetchedAt time.Time
	lastErr   error
	failedAt  time.Time

	group singleflight.Group
}

// NewDiscoveryCache fetches from discoveryURL. SomToday reports an issuer
// that differs from that host, so the configured issuer is accepted instead.
func NewDiscoveryCache(discoveryURL string, cfg config.UpstreamConfig, client *http.Client) *DiscoveryCache {
	return &DiscoveryCache{
		discoveryURL: discoveryURL,
		issuer:       cfg.GetAuthIssuer(),
		client:       client,
		ttl:          cfg.GetDiscoveryCacheTTL(),
		retry:        cfg.GetDiscoveryRetryInterval(),
	}
}

// Document returns the cached discovery document, fetching it from upstream
// when the cache is empty or older than the TTL.
func (d *DiscoveryCache) Document(ctx context.Context) (json.RawMessage, error) {
	if doc, ok, err := d.cached(); ok {
		return doc, err
	}

	result, err, _ := d.group.Do(d.discoveryURL, func() (interface{}, error) {
		// Double-check cache after acquiring singleflight lock
		if doc, ok, err := d.cached(); ok {
			return doc, err
		}
		return d.fetch(context.WithoutCancel(ctx))
	})
	if err != nil {
		return nil, err
	}
	return result.(json.RawMessage), nil
}

func (d *DiscoveryCache) cached() (json.RawMessage, bool, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.lastErr != nil && time.Since(d.failedAt) < d.retry {
		return nil, true, d.lastErr
	}
	if d.document == nil || time.Since(d.fetchedAt) >= d.ttl {
		return nil, false, nil
	}
	return d.document, true, nil
}

func (d *DiscoveryCache) fetch(ctx context.Context) (json.RawMessage, error) {
	ctx = oidc.InsecureIssuerURLContext(oidc.ClientContext(ctx, d.client), d.issuer)
	provider, err := oidc.NewProvider(ctx, d.discoveryURL)
	if err != nil {
		return nil, d.fail(fmt.Errorf("[DiscoveryCache fetch] %w: %w", errors.ErrUpstreamUnavailable, err))
	}

	var doc json.RawMessage
	if err := provider.Claims(&doc); err != nil {
		return nil, d.fail(errors.Wrapf(err, "[DiscoveryCache fetch] decode document"))
	}

	d.mu.Lock()
	d.document = doc
	d.fetchedAt = time.Now()
	d.lastErr = nil
	d.mu.Unlock()
	return doc, nil
}

func (d *DiscoveryCache) fail(err error) error {
	d.mu.Lock()
	d.lastErr = err
	d.failedAt = time.Now()
	d.mu.Unlock()
	return err
}

// WellKnownOpenIDConfig serves the OIDC discovery document
func (s *Server) WellKnownOpenIDConfig() http.HandlerFunc {
	return s.serveDiscovery
}

func (s *Server) serveDiscovery(w http.ResponseWriter, r *http.Request) {
	doc, err := s.discovery.Document(r.Context())
	if err != nil {
		zerolog.Ctx(r.Context()).Warn().Err(err).Msg("Serving static discovery document")
		doc = staticDiscoveryDocument()
	}

	s.applyCorsHeaders(w.Header())
	w.Header().Set("Content-Type", contentTypeJSON)
	w.Header().Set("Cache-Control", "public, max-age=3600")
	if _, err := w.Write(doc); err != nil {
		zerolog.Ctx(r.Context()).Debug().Err(err).Msg("Failed to write discovery document")
	}
}
