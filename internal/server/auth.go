package server

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/jovyan/nbtemplates/internal/config"
)

// authenticator validates the request token. Clients present the token
// either as "Authorization: token <t>" or as a "token" query parameter.
type authenticator struct {
	token    string
	hashed   []byte
	disabled bool
}

func newAuthenticator(cfg config.AuthConfig, logger zerolog.Logger) (*authenticator, error) {
	a := &authenticator{
		token:    cfg.Token,
		disabled: cfg.Disabled,
	}
	if cfg.HashedToken != "" {
		a.hashed = []byte(cfg.HashedToken)
	}

	if !a.disabled && a.token == "" && len(a.hashed) == 0 {
		a.token = uuid.NewString()
		logger.Warn().
			Str("token", a.token).
			Msg("no auth token configured; generated one for this run")
	}

	return a, nil
}

// require rejects unauthenticated requests with 403.
func (a *authenticator) require(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !a.authorize(r) {
			writeJSONError(w, http.StatusForbidden, "forbidden")
			return
		}
		next(w, r)
	}
}

func (a *authenticator) authorize(r *http.Request) bool {
	if a.disabled {
		return true
	}

	presented := requestToken(r)
	if presented == "" {
		return false
	}

	if len(a.hashed) > 0 {
		return bcrypt.CompareHashAndPassword(a.hashed, []byte(presented)) == nil
	}
	return subtle.ConstantTimeCompare([]byte(a.token), []byte(presented)) == 1
}

func requestToken(r *http.Request) string {
	// A foreign Authorization scheme (e.g. a proxy-injected Bearer) must
	// not mask a valid query token.
	if header := r.Header.Get("Authorization"); header != "" {
		scheme, value, ok := strings.Cut(header, " ")
		if ok && strings.EqualFold(scheme, "token") {
			return strings.TrimSpace(value)
		}
	}
	return r.URL.Query().Get("token")
}
