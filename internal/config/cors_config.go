package config

// Cors holds the headers written on every proxied response. Browser-embedded
// callers need unrestricted cross-origin access, so nothing here is derived
// from the request origin.
type Cors struct{}

var _ CorsConfig = Cors{}

func (Cors) GetAllowedOrigin() string {
	return "*"
}

func (Cors) GetAllowedMethods() string {
	return "*"
}

func (Cors) GetAllowedHeaders() string {
	return "Authorization,*"
}

func (Cors) GetAllowCredentials() string {
	return "true"
}

func (Cors) GetExposedHeaders() string {
	return "*"
}
