package middleware

import (
	"net/http"

	"github.com/Totarae/shortlinks/internal/apperr"
	"github.com/Totarae/shortlinks/internal/auth"
	"go.uber.org/zap"
)

// Authenticate пропускает дальше только запросы с действующим токеном и
// кладёт личность владельца в контекст. Отказ — 401 с причиной в теле.
func Authenticate(a *auth.Auth, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := auth.BearerToken(r.Header.Get("Authorization"))
			if err == nil {
				var identity auth.Identity
				identity, err = a.Verify(token)
				if err == nil {
					next.ServeHTTP(w, r.WithContext(auth.WithIdentity(r.Context(), identity)))
					return
				}
			}

			reason := apperr.ErrAuthFailed.Reason
			if apperr.KindOf(err) == apperr.KindAuth {
				reason = apperr.ReasonOf(err)
			}
			logger.Debug("request rejected", zap.String("uri", r.RequestURI), zap.String("reason", reason))
			writeError(w, http.StatusUnauthorized, reason)
		})
	}
}
