package exchange_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jrsteele09/somtoday-proxy/exchange"
	"github.com/jrsteele09/somtoday-proxy/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testClientID     = "somtoday-leerling-native"
	testRedirectURI  = "somtoday://nl.topicus.somtoday.leerling/oauth/callback"
	testClaims       = `{"id_token":{"given_name":null}}`
	testCode         = "auth-code-1"
	testCodeVerifier = "dBjftJeZ4CVP-mB92K27uhbUJU1p1r_wW1gFWFOEjXk"
)

type testUpstreamConfig struct {
	authURL string
}

func (c testUpstreamConfig) GetAuthBaseURL() string              { return c.authURL }
func (c testUpstreamConfig) GetAPIBaseURL() string               { return c.authURL }
func (c testUpstreamConfig) GetNativeClientID() string           { return testClientID }
func (c testUpstreamConfig) GetNativeRedirectURI() string        { return testRedirectURI }
func (c testUpstreamConfig) GetNativeLogoutURI() string          { return "somtoday://logout" }
func (c testUpstreamConfig) GetSpoonfeedClaims() string          { return testClaims }
func (c testUpstreamConfig) GetUpstreamTimeout() time.Duration   { return 5 * time.Second }
func (c testUpstreamConfig) GetDiscoveryCacheTTL() time.Duration { return time.Minute }
func (c testUpstreamConfig) GetAuthIssuer() string               { return c.authURL }
func (c testUpstreamConfig) GetDiscoveryRetryInterval() time.Duration {
	return time.Minute
}

func TestExchange(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/oauth2/token", r.URL.Path)
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "authorization_code", r.PostForm.Get("grant_type"))
		assert.Equal(t, testCode, r.PostForm.Get("code"))
		assert.Equal(t, testCodeVerifier, r.PostForm.Get("code_verifier"))
		assert.Equal(t, testRedirectURI, r.PostForm.Get("redirect_uri"))
		assert.Equal(t, testClientID, r.PostForm.Get("client_id"))
		assert.Equal(t, testClaims, r.PostForm.Get("claims"))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token":                   "access-1",
			"refresh_token":                  "refresh-1",
			"id_token":                       "id-1",
			"token_type":                     "Bearer",
			"scope":                          "openid",
			"expires_in":                     3600,
			"somtoday_api_url":               "https://api.somtoday.nl",
			"somtoday_oop_url":               "https://somtoday.nl/oop",
			"somtoday_organisatie_afkorting": "ORG",
		})
	}))
	defer upstream.Close()

	e := exchange.New(testUpstreamConfig{authURL: upstream.URL}, upstream.Client())
	result, err := e.Exchange(context.Background(), testCode, testCodeVerifier)
	require.NoError(t, err)

	require.Equal(t, exchange.Result{
		AccessToken:          "access-1",
		RefreshToken:         "refresh-1",
		IDToken:              "id-1",
		TokenType:            "Bearer",
		Scope:                "openid",
		ExpiresIn:            3600,
		APIURL:               "https://api.somtoday.nl",
		OOPURL:               "https://somtoday.nl/oop",
		OrganisatieAfkorting: "ORG",
	}, result)
}

func TestExchange_Failures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "error status",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusBadRequest)
				_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
			},
		},
		{
			name: "missing access token",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(`{"refresh_token":"refresh-1","token_type":"Bearer"}`))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			upstream := httptest.NewServer(tt.handler)
			defer upstream.Close()

			e := exchange.New(testUpstreamConfig{authURL: upstream.URL}, upstream.Client())
			result, err := e.Exchange(context.Background(), testCode, testCodeVerifier)
			require.Error(t, err)
			require.True(t, errors.Is(err, errors.ErrUpstreamExchange))
			require.Empty(t, result.AccessToken)
			require.Empty(t, result.RefreshToken)
		})
	}
}

func TestExchange_UpstreamDown(t *testing.T) {
	upstream := httptest.NewServer(http.NotFoundHandler())
	upstreamURL := upstream.URL
	upstream.Close()

	e := exchange.New(testUpstreamConfig{authURL: upstreamURL}, nil)
	_, err := e.Exchange(context.Background(), testCode, testCodeVerifier)
	require.True(t, errors.Is(err, errors.ErrUpstreamExchange))
}

func TestExchange_NoCode(t *testing.T) {
	e := exchange.New(testUpstreamConfig{authURL: "http://127.0.0.1:1"}, nil)
	_, err := e.Exchange(context.Background(), "", testCodeVerifier)
	require.True(t, errors.Is(err, errors.ErrUpstreamExchange))
}
