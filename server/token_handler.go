package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/jrsteele09/somtoday-proxy/exchange"
	"github.com/jrsteele09/somtoday-proxy/internal/utils"
	"github.com/jrsteele09/somtoday-proxy/oauthmodel"
	"github.com/rs/zerolog"
)

// interceptToken takes over the app's token request. The body is never sent
// to SomToday as is: the session behind vanityCode is consumed and the
// request either goes to the session's callback or, in spoonfeed mode, is
// exchanged by the proxy first.
func (s *Server) interceptToken(w http.ResponseWriter, r *http.Request, vanityCode string) {
	logger := zerolog.Ctx(r.Context())

	body, err := io.ReadAll(r.Body)
	if err != nil {
		logger.Err(err).Msg("Failed to read token request")
		writeJSONError(w, r, "invalid_request", "Failed to read request body", http.StatusBadRequest)
		return
	}
	tokenReq, err := oauthmodel.ParseTokenRequest(body)
	if err != nil {
		logger.Warn().Err(err).Msg("Malformed token request")
		s.applyCorsHeaders(w.Header())
		writeJSONError(w, r, "invalid_request", err.Error(), http.StatusBadRequest)
		return
	}

	// Only a request carrying an authorization code may consume the session.
	if !utils.HasValue(tokenReq.Code) {
		logger.Warn().Bool("empty_body", len(body) == 0).Msg("Token request without authorization code")
		s.applyCorsHeaders(w.Header())
		writeJSONError(w, r, "invalid_request", "Missing authorization code", http.StatusBadRequest)
		return
	}

	result := oauthmodel.NewAuthExchangeResult(tokenReq)
	// Callbacks must not be cut short when the device hangs up; the client
	// timeout still bounds them.
	ctx := context.WithoutCancel(r.Context())

	session, err := s.sessions.ConsumeSession(vanityCode)
	if err != nil {
		logger.Warn().Err(err).Msg("Token request for unknown or expired session")
		if utils.HasValue(tokenReq.CallbackURL) {
			s.notifyError(ctx, result.CallbackURL, sessionNotFoundMessage)
		}
		s.writeExchangeResult(w, r, result)
		return
	}

	result.User = session.User
	result.VanityCode = session.VanityCode
	result.VanityURL = s.vanityURL(session.VanityCode)
	result.Expires = session.ExpiresAt
	result.CallbackURL = session.CallbackURL

	if !session.Spoonfeed {
		s.deliver(ctx, session.CallbackURL, result)
		s.writeExchangeResult(w, r, result)
		return
	}

	tokens, err := s.exchanger.Exchange(ctx, result.Code, result.CodeVerifier)
	if err != nil {
		logger.Err(err).Msg("Spoonfeed exchange failed")
		s.notifyError(ctx, session.CallbackURL, spoonfeedFailedMessage)
		s.writeExchangeResult(w, r, result)
		return
	}

	applyTokens(&result, tokens)
	result.Code = ""
	result.CodeVerifier = ""
	s.deliver(ctx, session.CallbackURL, result)
	s.writeExchangeResult(w, r, result)
}

func (s *Server) deliver(ctx context.Context, callbackURL string, result oauthmodel.AuthExchangeResult) {
	logger := zerolog.Ctx(ctx)
	if err := s.callbacks.Deliver(ctx, callbackURL, result); err != nil {
		logger.Err(err).Str("user", result.User).Msg("Failed to deliver exchange result")
		return
	}
	logger.Info().Str("user", result.User).Bool("spoonfed", result.AccessToken != "").Msg("Exchange result delivered")
}

func (s *Server) notifyError(ctx context.Context, callbackURL, message string) {
	if err := s.callbacks.NotifyError(ctx, callbackURL, message); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Msg("Failed to deliver error notification")
	}
}

// writeExchangeResult answers the device. The authorization code is always
// blanked; only the callback receives it.
func (s *Server) writeExchangeResult(w http.ResponseWriter, r *http.Request, result oauthmodel.AuthExchangeResult) {
	s.applyCorsHeaders(w.Header())
	w.Header().Set("Content-Type", contentTypeJSON)
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(result.WithoutCode()); err != nil {
		zerolog.Ctx(r.Context()).Debug().Err(err).Msg("Failed to write exchange result")
	}
}

func applyTokens(result *oauthmodel.AuthExchangeResult, tokens exchange.Result) {
	result.AccessToken = tokens.AccessToken
	result.RefreshToken = tokens.RefreshToken
	result.IDToken = tokens.IDToken
	result.TokenType = tokens.TokenType
	result.Scope = tokens.Scope
	result.ExpiresIn = tokens.ExpiresIn
	result.SomtodayAPIURL = tokens.APIURL
	result.SomtodayOOPURL = tokens.OOPURL
	result.SomtodayOrganisatieAfkorting = tokens.OrganisatieAfkorting
}

// writeJSONError writes an OAuth2 error response
func writeJSONError(w http.ResponseWriter, r *http.Request, errorCode, description string, statusCode int) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(statusCode)
	err := json.NewEncoder(w).Encode(map[string]string{
		"error":             errorCode,
		"error_description": description,
	})
	if err != nil {
		zerolog.Ctx(r.Context()).Debug().Err(err).Msg("Failed to write error response")
	}
}
