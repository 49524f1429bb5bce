package server

import (
	"bytes"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/jrsteele09/somtoday-proxy/internal/errors"
	"github.com/rs/zerolog"
)

// SplitVanityPath splits an escaped request path into the vanity code (the
// first segment) and the remaining path that is sent upstream. The remainder
// is empty when nothing follows the code.
func SplitVanityPath(escapedPath string) (vanityCode, rest string) {
	trimmed := strings.TrimPrefix(escapedPath, "/")
	vanityCode, rest, found := strings.Cut(trimmed, "/")
	if !found {
		return vanityCode, ""
	}
	return vanityCode, "/" + rest
}

// upstreamFor picks the SomToday host for a stripped path.
func (s *Server) upstreamFor(path string) *url.URL {
	if strings.HasPrefix(path, RouteAPIPrefix) {
		return s.apiURL
	}
	return s.authURL
}

// Proxy handles every request beneath a vanity code.
func (s *Server) Proxy() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vanityCode, path := SplitVanityPath(r.URL.EscapedPath())
		logger := zerolog.Ctx(r.Context()).With().Str("vanity_code", vanityCode).Logger()
		ctx := logger.WithContext(r.Context())
		r = r.WithContext(ctx)

		if path == "" {
			logger.Warn().Err(errors.ErrMalformedFlow).Msg("Nothing after the vanity code")
			s.malformedFlow(w)
			return
		}

		if _, err := s.sessions.GetSession(vanityCode); err != nil {
			logger.Debug().Err(err).Str("path", path).Msg("Proxying for an unknown session")
		}

		target := s.upstreamFor(path)
		switch path {
		case RouteOAuth2Token:
			if r.Method != http.MethodPost {
				s.applyCorsHeaders(w.Header())
				w.Header().Set("Allow", http.MethodPost)
				http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
				return
			}
			s.interceptToken(w, r, vanityCode)
			return

		case RouteOAuth2Authorize:
			// The SomToday login UI has to run in the device's own browser context
			http.Redirect(w, r, upstreamURL(target, path, r.URL.RawQuery), http.StatusFound)
			return

		case RouteWellKnownOpenIDConfig:
			s.serveDiscovery(w, r)
			return
		}

		outbound, err := s.newUpstreamRequest(r, target, path)
		if err != nil {
			logger.Err(err).Msg("Failed to build upstream request")
			s.applyCorsHeaders(w.Header())
			http.Error(w, "Failed to read request", http.StatusBadRequest)
			return
		}
		s.forward(w, outbound)
	}
}

// newUpstreamRequest rewrites r for target. All headers but Host are copied
// and a body, if any, is buffered and attached verbatim.
func (s *Server) newUpstreamRequest(r *http.Request, target *url.URL, path string) (*http.Request, error) {
	var body io.Reader
	hasBody := r.ContentLength != 0 && r.Body != nil && r.Body != http.NoBody
	if hasBody {
		buf, err := io.ReadAll(r.Body)
		if err != nil {
			return nil, errors.Wrapf(err, "[Server newUpstreamRequest] read body")
		}
		body = bytes.NewReader(buf)
	}

	outbound, err := http.NewRequestWithContext(r.Context(), r.Method, upstreamURL(target, path, r.URL.RawQuery), body)
	if err != nil {
		return nil, errors.Wrapf(err, "[Server newUpstreamRequest] build request")
	}

	for key, values := range r.Header {
		if strings.EqualFold(key, "Host") {
			continue
		}
		outbound.Header[key] = append([]string(nil), values...)
	}
	outbound.Host = target.Host

	forwardedHost := r.Header.Get("X-Forwarded-Host")
	if forwardedHost == "" {
		forwardedHost = r.Host
	}
	outbound.Header.Set("X-Forwarded-Host", forwardedHost)
	outbound.Header.Set("X-Forwarded-Server", forwardedHost)

	if !hasBody {
		if authorization := r.Header.Get("Authorization"); authorization != "" {
			scheme, credentials, ok := parseAuthorization(authorization)
			if ok {
				outbound.Header.Set("Authorization", scheme+" "+credentials)
				zerolog.Ctx(r.Context()).Debug().Str("scheme", scheme).Msg("Forwarding authorization")
			} else {
				zerolog.Ctx(r.Context()).Warn().Msg("Forwarding unparseable Authorization header as is")
			}
		}
	}
	return outbound, nil
}

// forward sends outbound and streams the upstream response back with the
// proxy's CORS policy applied.
func (s *Server) forward(w http.ResponseWriter, outbound *http.Request) {
	logger := zerolog.Ctx(outbound.Context())

	resp, err := s.client.Do(outbound)
	if err != nil {
		logger.Err(err).Str("upstream", outbound.URL.Host).Msg("Upstream request failed")
		s.applyCorsHeaders(w.Header())
		http.Error(w, "Upstream request failed", http.StatusBadGateway)
		return
	}
	defer resp.Body.Close()

	for key, values := range resp.Header {
		w.Header()[key] = values
	}
	s.applyCorsHeaders(w.Header())
	w.WriteHeader(resp.StatusCode)

	if _, err := io.Copy(w, resp.Body); err != nil {
		logger.Warn().Err(err).Msg("Failed to copy upstream response body")
	}
}

func (s *Server) malformedFlow(w http.ResponseWriter) {
	w.Header().Set("Location", s.config.GetNativeRedirectURI())
	w.Header().Set("Content-Type", contentTypeText)
	w.WriteHeader(http.StatusFound)
	_, _ = w.Write([]byte(malformedFlowMessage))
}

func upstreamURL(target *url.URL, path, rawQuery string) string {
	u := target.Scheme + "://" + target.Host + path
	if rawQuery != "" {
		u += "?" + rawQuery
	}
	return u
}

// parseAuthorization splits an Authorization header into scheme and
// credentials, e.g. "Bearer eyJ..." -> ("Bearer", "eyJ...").
func parseAuthorization(header string) (scheme, credentials string, ok bool) {
	scheme, credentials, ok = strings.Cut(strings.TrimSpace(header), " ")
	if !ok || scheme == "" {
		return "", "", false
	}
	credentials = strings.TrimSpace(credentials)
	if credentials == "" || strings.ContainsAny(scheme, "\t,=") {
		return "", "", false
	}
	return scheme, credentials, true
}
