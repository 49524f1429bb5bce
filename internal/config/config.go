package config

import "time"

type Config interface {
	EnvConfig
	CorsConfig
	UpstreamConfig
	SessionConfig
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetVersion() string
	GetBaseURL() string
	GetEnv() string
}

type CorsConfig interface {
	GetAllowedOrigin() string
	GetAllowedMethods() string
	GetAllowedHeaders() string
	GetAllowCredentials() string
	GetExposedHeaders() string
}

type UpstreamConfig interface {
	GetAuthBaseURL() string
	GetAPIBaseURL() string
	GetNativeClientID() string
	GetNativeRedirectURI() string
	GetNativeLogoutURI() string
	GetSpoonfeedClaims() string
	GetUpstreamTimeout() time.Duration
	GetAuthIssuer() string
	GetDiscoveryCacheTTL() time.Duration
	GetDiscoveryRetryInterval() time.Duration
}

type SessionConfig interface {
	GetSessionLifetime() time.Duration
	GetSweepInterval() time.Duration
	GetVanityCodeWidth() int
}

type mainConfig struct {
	EnvVars
	Cors
	Upstream
	Sessions
}

func New() Config {
	return mainConfig{}
}
