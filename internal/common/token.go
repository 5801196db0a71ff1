package common

import (
	"context"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/obarbosa/mercadinho/internal/config"
	inErrors "github.com/obarbosa/mercadinho/internal/errors"
	"github.com/obarbosa/mercadinho/internal/log"
)

// UserClaims carries the role claim on top of the registered set. The
// user-service issues these tokens; this service only verifies them.
type UserClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

func VerifyToken(c context.Context, token string) (*jwt.Token, error) {
	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "VerifyToken").
		Logger()

	logger = logger.With().Str(log.KeyProcess, "initializing config").Logger()
	logger.Trace().Msg("initializing config")
	c = logger.WithContext(c)
	cfg := config.InitConfig(c, AppCartService)
	logger.Trace().Msg("initialized config")

	logger = logger.With().Str(log.KeyProcess, "parsing claims").Logger()
	logger.Trace().Msg("parsing claims")
	jwtToken, err := jwt.ParseWithClaims(token,
		&UserClaims{},
		func(t *jwt.Token) (interface{}, error) {
			return []byte(cfg.Application.SecretKey), nil
		},
		jwt.WithAudience(AudienceUser),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithIssuer(AppUserService),
	)
	if err != nil {
		err = fmt.Errorf("failed parsing claims with error=%w", err)
		logger.Error().Err(err).Msg(err.Error())
		return nil, err
	}
	logger.Info().Msg("parsed claims")

	logger = logger.With().Str(log.KeyProcess, "validating token").Logger()
	logger.Trace().Msg("validating token")
	if !jwtToken.Valid {
		logger.Error().Err(inErrors.ErrTokenInvalid).Msg(inErrors.ErrTokenInvalid.Error())
		return nil, inErrors.ErrTokenInvalid
	}
	logger.Info().Msg("validated token")

	return jwtToken, nil
}

type jwtToken struct{}

func AttachJwtToken(c context.Context, jwt *jwt.Token) context.Context {
	return context.WithValue(c, jwtToken{}, jwt)
}

func JwtTokenFromContext(c context.Context) *jwt.Token {
	token, ok := c.Value(jwtToken{}).(*jwt.Token)
	if !ok {
		return nil
	}
	return token
}

func UserIdFromJwtToken(c context.Context) (uuid.UUID, error) {
	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "UserIdFromJwtToken").
		Logger()

	jwt := JwtTokenFromContext(c)
	if jwt == nil {
		logger.Error().Err(inErrors.ErrEmptyAuth).Msg(inErrors.ErrEmptyAuth.Error())
		return uuid.Nil, inErrors.ErrEmptyAuth
	}

	subject, err := jwt.Claims.GetSubject()
	if err != nil {
		err = fmt.Errorf("failed getting subject from jwt with error=%w", err)
		logger.Error().Err(err).Msg(err.Error())
		return uuid.Nil, err
	}

	userId, err := uuid.Parse(subject)
	if err != nil {
		err = fmt.Errorf("failed parsing subject=%s with error=%w", subject, err)
		logger.Error().Err(err).Msg(err.Error())
		return uuid.Nil, err
	}

	return userId, nil
}

func RoleFromJwtToken(c context.Context) string {
	jwt := JwtTokenFromContext(c)
	if jwt == nil {
		return ""
	}
	claims, ok := jwt.Claims.(*UserClaims)
	if !ok {
		return ""
	}
	return claims.Role
}
