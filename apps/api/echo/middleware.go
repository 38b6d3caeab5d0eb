package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-credentials/services/token"
)

// serviceMiddleware only lets through tokens minted for us and held by service accounts.
func serviceMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		claims, err := getContextClaims(ctx)
		if err != nil {
			return errors.Wrap(err, "getting context claims")
		}
		if claims.Administrator && claims.VerifyAudience(tokensvc.Audience, true) {
			return next(ctx)
		}
		return errHttpForbidden
	}
}
