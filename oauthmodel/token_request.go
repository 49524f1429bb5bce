package oauthmodel

import (
	"fmt"
	"net/url"
)

// Form keys of the token request sent by the SomToday app to /oauth2/token.
const (
	FormGrantType    = "grant_type"
	FormCode         = "code"
	FormRedirectURI  = "redirect_uri"
	FormCodeVerifier = "code_verifier"
	FormClientID     = "client_id"
	FormClaims       = "claims"
	FormCallbackURL  = "callbackUrl"
)

// TokenRequest is the decoded form body of an intercepted token request.
// A nil field means the key was absent from the body.
type TokenRequest struct {
	// GrantType is the OAuth2 grant being exchanged.
	// Example: "authorization_code"
	GrantType *string

	// Code is the authorization code issued by inloggen.somtoday.nl.
	// Usage: Single use, forwarded to the callback or exchanged by the proxy
	Code *string

	// RedirectURI is the app's registered redirect URI, URL-decoded.
	// Example: "somtoday://nl.topicus.somtoday.leerling/oauth/callback"
	RedirectURI *string

	// CodeVerifier is the PKCE verifier matching the challenge sent to /oauth2/authorize.
	CodeVerifier *string

	ClientID *string

	// Claims is the OIDC claims request, URL-decoded JSON.
	Claims *string

	// CallbackURL is only set by clients that want a best-effort error
	// notification when their session is no longer known.
	CallbackURL *string
}

// ParseTokenRequest decodes a form-encoded token request body.
func ParseTokenRequest(body []byte) (TokenRequest, error) {
	values, err := url.ParseQuery(string(body))
	if err != nil {
		return TokenRequest{}, fmt.Errorf("[ParseTokenRequest] %w: %w", ErrMalformedTokenRequest, err)
	}

	return TokenRequest{
		GrantType:    formValue(values, FormGrantType),
		Code:         formValue(values, FormCode),
		RedirectURI:  formValue(values, FormRedirectURI),
		CodeVerifier: formValue(values, FormCodeVerifier),
		ClientID:     formValue(values, FormClientID),
		Claims:       formValue(values, FormClaims),
		CallbackURL:  formValue(values, FormCallbackURL),
	}, nil
}

func formValue(values url.Values, key string) *string {
	if !values.Has(key) {
		return nil
	}
	v := values.Get(key)
	return &v
}
