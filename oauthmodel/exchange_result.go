package oauthmodel

import (
	"time"

	"github.com/jrsteele09/somtoday-proxy/internal/utils"
)

// AuthExchangeResult is delivered to the session's callback URL when a device
// completes the code exchange. It is built per intercepted token request and
// never stored. Field names follow the SomToday token endpoint so receivers can
// treat spoonfed results like a regular token response.
type AuthExchangeResult struct {
	// Protocol fields copied from the intercepted token request
	GrantType    string `json:"grant_type"`
	Code         string `json:"code"`
	RedirectURI  string `json:"redirect_uri"`
	CodeVerifier string `json:"code_verifier"`
	ClientID     string `json:"client_id"`
	Claims       string `json:"claims"`

	// Spoonfeed fields, set only after the proxy performed the exchange itself
	AccessToken                  string `json:"access_token,omitempty"`
	RefreshToken                 string `json:"refresh_token,omitempty"`
	IDToken                      string `json:"id_token,omitempty"`
	TokenType                    string `json:"token_type,omitempty"`
	Scope                        string `json:"scope,omitempty"`
	ExpiresIn                    int    `json:"expires_in,omitempty"`
	SomtodayAPIURL               string `json:"somtoday_api_url,omitempty"`
	SomtodayOOPURL               string `json:"somtoday_oop_url,omitempty"`
	SomtodayOrganisatieAfkorting string `json:"somtoday_organisatie_afkorting,omitempty"`

	// Correlation fields from the resolved session
	User        string    `json:"user"`
	VanityCode  string    `json:"vanityCode"`
	VanityURL   string    `json:"vanityUrl"`
	Expires     time.Time `json:"expires"`
	CallbackURL string    `json:"callbackUrl"`
}

// NewAuthExchangeResult copies the protocol fields of req into a new result.
func NewAuthExchangeResult(req TokenRequest) AuthExchangeResult {
	return AuthExchangeResult{
		GrantType:    utils.Value(req.GrantType),
		Code:         utils.Value(req.Code),
		RedirectURI:  utils.Value(req.RedirectURI),
		CodeVerifier: utils.Value(req.CodeVerifier),
		ClientID:     utils.Value(req.ClientID),
		Claims:       utils.Value(req.Claims),
		CallbackURL:  utils.Value(req.CallbackURL),
	}
}

// WithoutCode returns a copy of r with the authorization code removed. This is
// what the device gets back; only the callback ever sees the code.
func (r AuthExchangeResult) WithoutCode() AuthExchangeResult {
	r.Code = ""
	return r
}

// ErrorPayload is POSTed to a callback URL when a flow cannot be completed.
type ErrorPayload struct {
	Error string `json:"error"`
}
