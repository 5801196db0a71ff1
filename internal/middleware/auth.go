package middleware

import (
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/obarbosa/mercadinho/internal/common"
	inErrors "github.com/obarbosa/mercadinho/internal/errors"
	inHttp "github.com/obarbosa/mercadinho/internal/http"
	"github.com/obarbosa/mercadinho/internal/log"
)

func Auth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger := zerolog.Ctx(r.Context()).With().Str(log.KeyTag, "middleware Auth").Logger()
		c := logger.WithContext(r.Context())

		authorization := r.Header.Get("Authorization")
		if authorization == "" {
			logger.Error().
				Err(inErrors.ErrEmptyAuth).
				Msg(inErrors.ErrEmptyAuth.Error())
			inHttp.WriteJsonResponse(c, w, map[string]string{}, map[string]interface{}{
				"status":     "failed",
				"statusCode": http.StatusUnauthorized,
				"message":    inErrors.ErrEmptyAuth.Error(),
			})
			return
		}

		token, found := strings.CutPrefix(authorization, "Bearer ")
		if !found {
			token, _ = strings.CutPrefix(authorization, "bearer ")
		}
		jwtToken, err := common.VerifyToken(c, token)
		if err != nil {
			logger.Error().
				Err(inErrors.ErrTokenInvalid).
				Msg(inErrors.ErrTokenInvalid.Error())
			inHttp.WriteJsonResponse(c, w, map[string]string{}, map[string]interface{}{
				"status":     "failed",
				"statusCode": http.StatusUnauthorized,
				"message":    inErrors.ErrTokenInvalid.Error(),
			})
			return
		}

		c = common.AttachJwtToken(c, jwtToken)
		next.ServeHTTP(w, r.WithContext(c))
	})
}

// Admin gates the administrative subrouter to tokens carrying the admin
// role claim. Auth must run first so the parsed token is on the context.
func Admin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger := zerolog.Ctx(r.Context()).With().Str(log.KeyTag, "middleware Admin").Logger()
		c := logger.WithContext(r.Context())

		role := common.RoleFromJwtToken(c)
		if role != common.RoleAdmin {
			logger.Error().
				Str(log.KeyRole, role).
				Err(inErrors.ErrForbidden).
				Msg(inErrors.ErrForbidden.Error())
			inHttp.WriteJsonResponse(c, w, map[string]string{}, map[string]interface{}{
				"status":     "failed",
				"statusCode": http.StatusForbidden,
				"message":    inErrors.ErrForbidden.Error(),
			})
			return
		}

		next.ServeHTTP(w, r.WithContext(c))
	})
}
