package server

// Route path constants
// Proxied paths are matched after the vanity code prefix has been stripped.
const (
	// Caller facing routes
	RouteIndex      = "/{$}"
	RouteRequestURL = "/requestUrl"

	// Vanity prefixed routes
	RouteVanityRoot   = "/{code}"
	RouteVanityProxy  = "/{code}/{path...}"
	RouteVanityLogout = "/{code}" + RouteOAuth2Logout

	// SomToday OAuth2 / OIDC routes
	RouteWellKnownOpenIDConfig = "/.well-known/openid-configuration"
	RouteOAuth2Authorize       = "/oauth2/authorize"
	RouteOAuth2Token           = "/oauth2/token"
	RouteOAuth2Logout          = "/oauth2/logout"

	// RouteAPIPrefix selects the API host instead of the authentication host
	RouteAPIPrefix = "/rest/"
)
