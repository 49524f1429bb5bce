// Package exchange performs the proxy-initiated ("spoonfeed") authorization
// code exchange against the SomToday token endpoint.
package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/jrsteele09/somtoday-proxy/internal/config"
	"github.com/jrsteele09/somtoday-proxy/internal/errors"
	"golang.org/x/oauth2"
)

const tokenPath = "/oauth2/token"

// Result holds the tokens and SomToday specific endpoints returned by a
// successful exchange.
type Result struct {
	AccessToken  string
	RefreshToken string
	IDToken      string
	TokenType    string
	Scope        string
	ExpiresIn    int

	// SomToday extensions to the token response
	APIURL               string // somtoday_api_url
	OOPURL               string // somtoday_oop_url
	OrganisatieAfkorting string // somtoday_organisatie_afkorting
}

// Exchanger redeems intercepted authorization codes as the native SomToday
// app would.
type Exchanger struct {
	oauth  *oauth2.Config
	claims string
	client *http.Client
}

func New(cfg config.UpstreamConfig, client *http.Client) *Exchanger {
	if client == nil {
		client = &http.Client{Timeout: cfg.GetUpstreamTimeout()}
	}
	return &Exchanger{
		oauth: &oauth2.Config{
			ClientID:    cfg.GetNativeClientID(),
			RedirectURL: cfg.GetNativeRedirectURI(),
			Endpoint: oauth2.Endpoint{
				AuthURL:   strings.TrimSuffix(cfg.GetAuthBaseURL(), "/") + "/oauth2/authorize",
				TokenURL:  strings.TrimSuffix(cfg.GetAuthBaseURL(), "/") + tokenPath,
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		claims: cfg.GetSpoonfeedClaims(),
		client: client,
	}
}

// Exchange trades code and its PKCE verifier for tokens. A single attempt is
// made; any failure, including a success response without an access token, is
// reported as errors.ErrUpstreamExchange.
func (e *Exchanger) Exchange(ctx context.Context, code, codeVerifier string) (Result, error) {
	if code == "" {
		return Result{}, fmt.Errorf("[Exchanger Exchange] no authorization code: %w", errors.ErrUpstreamExchange)
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, e.client)
	opts := []oauth2.AuthCodeOption{oauth2.SetAuthURLParam("claims", e.claims)}
	if codeVerifier != "" {
		opts = append(opts, oauth2.VerifierOption(codeVerifier))
	}

	token, err := e.oauth.Exchange(ctx, code, opts...)
	if err != nil {
		return Result{}, fmt.Errorf("[Exchanger Exchange] %w: %w", errors.ErrUpstreamExchange, err)
	}
	if token.AccessToken == "" {
		return Result{}, fmt.Errorf("[Exchanger Exchange] response has no access token: %w", errors.ErrUpstreamExchange)
	}

	return Result{
		AccessToken:          token.AccessToken,
		RefreshToken:         token.RefreshToken,
		TokenType:            token.TokenType,
		IDToken:              extraString(token, "id_token"),
		Scope:                extraString(token, "scope"),
		ExpiresIn:            expiresIn(token),
		APIURL:               extraString(token, "somtoday_api_url"),
		OOPURL:               extraString(token, "somtoday_oop_url"),
		OrganisatieAfkorting: extraString(token, "somtoday_organisatie_afkorting"),
	}, nil
}

func extraString(token *oauth2.Token, key string) string {
	if s, ok := token.Extra(key).(string); ok {
		return s
	}
	return ""
}

// expiresIn prefers the raw expires_in value over the computed expiry, which
// has already been shifted by the time spent on the request.
func expiresIn(token *oauth2.Token) int {
	switch v := token.Extra("expires_in").(type) {
	case float64:
		return int(v)
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return int(i)
		}
	case string:
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	if token.Expiry.IsZero() {
		return 0
	}
	return int(time.Until(token.Expiry).Round(time.Second).Seconds())
}
