package config

import "time"

// Upstream describes the SomToday hosts the proxy forwards to and the
// identity of the native app used for the spoonfeed code exchange.
type Upstream struct{}

var _ UpstreamConfig = Upstream{}

func (Upstream) GetAuthBaseURL() string {
	return GetEnv("SOMTODAY_AUTH_URL", "https://inloggen.somtoday.nl")
}

func (Upstream) GetAPIBaseURL() string {
	return GetEnv("SOMTODAY_API_URL", "https://api.somtoday.nl")
}

// GetAuthIssuer is the issuer SomToday publishes in its discovery document.
// It differs from the host the document is served from.
func (Upstream) GetAuthIssuer() string {
	return GetEnv("SOMTODAY_AUTH_ISSUER", "https://somtoday.nl")
}

func (Upstream) GetNativeClientID() string {
	return GetEnv("SOMTODAY_CLIENT_ID", "somtoday-leerling-native")
}

func (Upstream) GetNativeRedirectURI() string {
	return GetEnv("SOMTODAY_REDIRECT_URI", "somtoday://nl.topicus.somtoday.leerling/oauth/callback")
}

func (Upstream) GetNativeLogoutURI() string {
	return GetEnv("SOMTODAY_LOGOUT_URI", "somtoday://nl.topicus.somtoday.leerling/oauth/logout")
}

// GetSpoonfeedClaims is the claims request sent with the proxy-initiated
// exchange: given name, enrolled students, organisation name and affiliation.
func (Upstream) GetSpoonfeedClaims() string {
	return `{"id_token":{"given_name":null,"leerlingen":null,"orgname":null,"affiliation":null}}`
}

func (Upstream) GetUpstreamTimeout() time.Duration {
	return GetDurationEnv("UPSTREAM_TIMEOUT", 30*time.Second)
}

func (Upstream) GetDiscoveryCacheTTL() time.Duration {
	return GetDurationEnv("DISCOVERY_CACHE_TTL", 30*time.Minute)
}

// GetDiscoveryRetryInterval is how long a failed discovery fetch is
// remembered before upstream is tried again.
func (Upstream) GetDiscoveryRetryInterval() time.Duration {
	return GetDurationEnv("DISCOVERY_RETRY_INTERVAL", time.Minute)
}
