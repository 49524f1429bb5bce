package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/jrsteele09/somtoday-proxy/internal/errors"
	"github.com/rs/zerolog"
)

const (
	contentTypeText = "text/plain; charset=utf-8"
	contentTypeJSON = "application/json; charset=utf-8"
)

// LoginURLResponse is returned to callers of /requestUrl.
type LoginURLResponse struct {
	User        string    `json:"user"`
	VanityURL   string    `json:"vanityUrl"`
	VanityCode  string    `json:"vanityCode"`
	Expires     time.Time `json:"expires"`
	CallbackURL string    `json:"callbackUrl"`
}

// IndexHandler reports that the proxy is up
func (s *Server) IndexHandler() http.HandlerFunc {
	page := mainPage(s.config.GetAppName(), s.config.GetVersion())
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", contentTypeText)
		_, _ = w.Write([]byte(page))
	}
}

// RequestLoginURL creates (or returns the existing) login session for a user.
func (s *Server) RequestLoginURL() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		spoonfeed, _ := strconv.ParseBool(query.Get("spoonfeed"))

		session, err := s.sessions.CreateSession(query.Get("user"), query.Get("callbackUrl"), spoonfeed)
		if errors.Is(err, errors.ErrRejected) {
			w.Header().Set("Content-Type", contentTypeText)
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(missingParametersMessage))
			return
		}
		if err != nil {
			http.Error(w, "Failed to create session: "+err.Error(), http.StatusInternalServerError)
			return
		}

		zerolog.Ctx(r.Context()).Info().
			Str("vanity_code", session.VanityCode).
			Bool("spoonfeed", session.Spoonfeed).
			Int("live_sessions", s.sessions.Count()).
			Msg("Login session requested")

		w.Header().Set("Content-Type", contentTypeJSON)
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		err = enc.Encode(LoginURLResponse{
			User:        session.User,
			VanityURL:   s.vanityURL(session.VanityCode),
			VanityCode:  session.VanityCode,
			Expires:     session.ExpiresAt,
			CallbackURL: session.CallbackURL,
		})
		if err != nil {
			zerolog.Ctx(r.Context()).Debug().Err(err).Msg("Failed to write login URL response")
		}
	}
}

// Logout removes the session for the vanity code and sends the device to the
// requested post logout URI, or back into the app.
func (s *Server) Logout() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vanityCode := r.PathValue("code")
		s.sessions.RemoveSession(vanityCode)

		target := r.URL.Query().Get("post_logout_redirect_uri")
		if target == "" {
			target = s.config.GetNativeLogoutURI()
		}

		zerolog.Ctx(r.Context()).Info().Str("vanity_code", vanityCode).Msg("Logged out")
		w.Header().Set("Location", target)
		w.WriteHeader(http.StatusFound)
	}
}
