package echoapi

import (
	"net/http"

	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/trezcool/masomo-credentials/services/token"
)

const contextTokenKey = "serviceToken"

var (
	errUnauthorized  = echo.NewHTTPError(http.StatusUnauthorized, "service not authenticated")
	errHttpForbidden = echo.NewHTTPError(http.StatusForbidden, "permission denied")
)

func jwtConfig(tokens *tokensvc.Issuer) middleware.JWTConfig {
	return middleware.JWTConfig{
		SigningKey:    tokens.Key(),
		SigningMethod: middleware.AlgorithmHS256,
		ContextKey:    contextTokenKey,
		Claims:        new(tokensvc.Claims),
	}
}

func getContextClaims(ctx echo.Context) (tokensvc.Claims, error) {
	if token, ok := ctx.Get(contextTokenKey).(*jwt.Token); ok {
		if claims, ok := token.Claims.(*tokensvc.Claims); ok {
			return *claims, nil
		}
	}
	return tokensvc.Claims{}, errUnauthorized
}
