package server_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/jrsteele09/somtoday-proxy/exchange"
	"github.com/jrsteele09/somtoday-proxy/internal/errors"
	"github.com/jrsteele09/somtoday-proxy/oauthmodel"
	"github.com/jrsteele09/somtoday-proxy/server"
	"github.com/stretchr/testify/require"
)

func tokenForm() url.Values {
	return url.Values{
		"grant_type":    {"authorization_code"},
		"code":          {testCode},
		"redirect_uri":  {testRedirectURI},
		"code_verifier": {testVerifier},
		"client_id":     {"somtoday-leerling-native"},
		"claims":        {`{"id_token":{"given_name":null}}`},
	}
}

func decodeResult(t *testing.T, rec *httptest.ResponseRecorder) oauthmodel.AuthExchangeResult {
	t.Helper()
	var result oauthmodel.AuthExchangeResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	return result
}

func TestToken_DeliversCodeToCallback(t *testing.T) {
	f := newFixture(t, nil, nil)
	session := f.createSession(t, false)

	rec := f.do(tokenRequest(session.VanityCode, tokenForm()))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))

	result := decodeResult(t, rec)
	require.Empty(t, result.Code)
	require.Equal(t, testVerifier, result.CodeVerifier)
	require.Equal(t, testUser, result.User)
	require.Equal(t, session.VanityCode, result.VanityCode)
	require.Equal(t, testBaseURL+"/"+session.VanityCode, result.VanityURL)
	require.True(t, session.ExpiresAt.Equal(result.Expires))

	payloads := f.callbacks.Payloads()
	require.Len(t, payloads, 1)
	require.Equal(t, testCode, payloads[0]["code"])
	require.Equal(t, testVerifier, payloads[0]["code_verifier"])
	require.Equal(t, testRedirectURI, payloads[0]["redirect_uri"])
	require.Equal(t, `{"id_token":{"given_name":null}}`, payloads[0]["claims"])
	require.Equal(t, testUser, payloads[0]["user"])
	require.Equal(t, f.callbacks.URL, payloads[0]["callbackUrl"])
	require.NotContains(t, payloads[0], "access_token")

	// the token request is never forwarded to SomToday
	require.Empty(t, f.auth.Requests())
	require.Empty(t, f.exchanger.Calls())
}

func TestToken_SessionConsumedExactlyOnce(t *testing.T) {
	f := newFixture(t, nil, nil)
	session := f.createSession(t, false)

	rec := f.do(tokenRequest(session.VanityCode, tokenForm()))
	require.Equal(t, http.StatusOK, rec.Code)

	_, err := f.repo.GetSession(session.VanityCode)
	require.True(t, errors.Is(err, errors.ErrSessionNotFound))

	rec = f.do(tokenRequest(session.VanityCode, tokenForm()))
	require.Equal(t, http.StatusOK, rec.Code)
	result := decodeResult(t, rec)
	require.Empty(t, result.Code)
	require.Empty(t, result.User)

	require.Len(t, f.callbacks.Payloads(), 1)
}

func TestToken_UnknownSessionNotifiesBodyCallback(t *testing.T) {
	f := newFixture(t, nil, nil)

	form := tokenForm()
	form.Set("callbackUrl", f.callbacks.URL)
	rec := f.do(tokenRequest("9999", form))

	require.Equal(t, http.StatusOK, rec.Code)
	result := decodeResult(t, rec)
	require.Empty(t, result.Code)
	require.Equal(t, testVerifier, result.CodeVerifier)

	payloads := f.callbacks.Payloads()
	require.Len(t, payloads, 1)
	require.Contains(t, payloads[0], "error")
	require.NotContains(t, payloads[0], "code")
}

func TestToken_Spoonfeed(t *testing.T) {
	f := newFixture(t, nil, nil)
	f.exchanger.result = exchange.Result{
		AccessToken:          "access-1",
		RefreshToken:         "refresh-1",
		IDToken:              "id-1",
		TokenType:            "Bearer",
		Scope:                "openid",
		ExpiresIn:            3600,
		APIURL:               "https://api.somtoday.nl",
		OOPURL:               "https://somtoday.nl/oop",
		OrganisatieAfkorting: "ORG",
	}
	session := f.createSession(t, true)

	rec := f.do(tokenRequest(session.VanityCode, tokenForm()))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, []string{testCode + "|" + testVerifier}, f.exchanger.Calls())

	result := decodeResult(t, rec)
	require.Empty(t, result.Code)
	require.Empty(t, result.CodeVerifier)
	require.Equal(t, "access-1", result.AccessToken)
	require.Equal(t, "https://api.somtoday.nl", result.SomtodayAPIURL)

	payloads := f.callbacks.Payloads()
	require.Len(t, payloads, 1)
	require.Equal(t, "access-1", payloads[0]["access_token"])
	require.Equal(t, "refresh-1", payloads[0]["refresh_token"])
	require.Equal(t, "id-1", payloads[0]["id_token"])
	require.Equal(t, "Bearer", payloads[0]["token_type"])
	require.Equal(t, float64(3600), payloads[0]["expires_in"])
	require.Equal(t, "ORG", payloads[0]["somtoday_organisatie_afkorting"])
	require.Equal(t, "", payloads[0]["code"])
	require.Equal(t, "", payloads[0]["code_verifier"])
	require.Equal(t, testUser, payloads[0]["user"])
}

func TestToken_SpoonfeedFailureContained(t *testing.T) {
	f := newFixture(t, nil, nil)
	f.exchanger.err = errors.ErrUpstreamExchange
	session := f.createSession(t, true)

	rec := f.do(tokenRequest(session.VanityCode, tokenForm()))
	require.Equal(t, http.StatusOK, rec.Code)

	result := decodeResult(t, rec)
	require.Empty(t, result.Code)
	require.Empty(t, result.AccessToken)
	require.Empty(t, result.RefreshToken)

	payloads := f.callbacks.Payloads()
	require.Len(t, payloads, 1)
	require.Contains(t, payloads[0], "error")
	require.NotContains(t, payloads[0], "access_token")
	require.NotContains(t, payloads[0], "refresh_token")

	_, err := f.repo.GetSession(session.VanityCode)
	require.True(t, errors.Is(err, errors.ErrSessionNotFound))
}

func TestToken_SpoonfeedAgainstUpstream(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantTokens bool
	}{
		{
			name:       "success",
			status:     http.StatusOK,
			body:       `{"access_token":"access-1","refresh_token":"refresh-1","token_type":"Bearer","expires_in":3600,"somtoday_api_url":"https://api.somtoday.nl"}`,
			wantTokens: true,
		},
		{
			name:   "rejected code",
			status: http.StatusBadRequest,
			body:   `{"error":"invalid_grant"}`,
		},
		{
			name:   "no access token",
			status: http.StatusOK,
			body:   `{"token_type":"Bearer"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			authHandler := func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}
			f := newFixture(t, authHandler, nil)
			// Replace the fake with the real exchanger pointed at the fake SomToday host
			s, err := server.New(f.config, f.repo, server.WithExchanger(exchange.New(f.config, nil)))
			require.NoError(t, err)
			f.server = s

			session := f.createSession(t, true)
			rec := f.do(tokenRequest(session.VanityCode, tokenForm()))
			require.Equal(t, http.StatusOK, rec.Code)

			requests := f.auth.Requests()
			require.Len(t, requests, 1)
			require.Equal(t, "/oauth2/token", requests[0].Path)
			form, err := url.ParseQuery(requests[0].Body)
			require.NoError(t, err)
			require.Equal(t, testCode, form.Get("code"))
			require.Equal(t, testVerifier, form.Get("code_verifier"))
			require.Equal(t, f.config.GetNativeClientID(), form.Get("client_id"))
			require.Equal(t, f.config.GetSpoonfeedClaims(), form.Get("claims"))

			result := decodeResult(t, rec)
			payloads := f.callbacks.Payloads()
			require.Len(t, payloads, 1)
			if tt.wantTokens {
				require.Equal(t, "access-1", result.AccessToken)
				require.Equal(t, "access-1", payloads[0]["access_token"])
				require.Equal(t, float64(3600), payloads[0]["expires_in"])
				return
			}
			require.Empty(t, result.AccessToken)
			require.Contains(t, payloads[0], "error")
			require.NotContains(t, payloads[0], "access_token")
		})
	}
}

func TestToken_OnlyPost(t *testing.T) {
	f := newFixture(t, nil, nil)
	session := f.createSession(t, false)

	rec := f.do(httptest.NewRequest(http.MethodGet, "/"+session.VanityCode+"/oauth2/token", nil))
	require.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	_, err := f.repo.GetSession(session.VanityCode)
	require.NoError(t, err)
	require.Empty(t, f.auth.Requests())
}

func TestToken_MalformedBody(t *testing.T) {
	f := newFixture(t, nil, nil)
	session := f.createSession(t, false)

	req := httptest.NewRequest(http.MethodPost, "/"+session.VanityCode+"/oauth2/token", strings.NewReader("code=%zz"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := f.do(req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	_, err := f.repo.GetSession(session.VanityCode)
	require.NoError(t, err)
	require.Empty(t, f.callbacks.Payloads())
}

func TestToken_WithoutCodeKeepsSession(t *testing.T) {
	f := newFixture(t, nil, nil)
	session := f.createSession(t, false)

	noCode := tokenForm()
	noCode.Del("code")

	for name, req := range map[string]*http.Request{
		"no body":    httptest.NewRequest(http.MethodPost, "/"+session.VanityCode+"/oauth2/token", nil),
		"no code":    tokenRequest(session.VanityCode, noCode),
		"empty code": tokenRequest(session.VanityCode, url.Values{"code": {""}, "grant_type": {"authorization_code"}}),
	} {
		rec := f.do(req)
		require.Equal(t, http.StatusBadRequest, rec.Code, name)
		require.Contains(t, rec.Body.String(), "invalid_request", name)
	}

	_, err := f.repo.GetSession(session.VanityCode)
	require.NoError(t, err)
	require.Empty(t, f.callbacks.Payloads())

	// the real token request still goes through afterwards
	rec := f.do(tokenRequest(session.VanityCode, tokenForm()))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, f.callbacks.Payloads(), 1)
	require.Equal(t, testCode, f.callbacks.Payloads()[0]["code"])
}

func TestToken_LogsFailedWrite(t *testing.T) {
	f := newFixture(t, nil, nil)
	session := f.createSession(t, false)
	logs := captureLogs(t)

	w := newBrokenWriter()
	f.server.ServeHTTP(w, tokenRequest(session.VanityCode, tokenForm()))

	require.Equal(t, http.StatusOK, w.status)
	require.Len(t, f.callbacks.Payloads(), 1)
	require.Contains(t, logs.String(), "Failed to write exchange result")
}
