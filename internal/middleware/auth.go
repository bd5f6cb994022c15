package middleware

import (
	"marketplace-be/internal/apperror"
	"marketplace-be/internal/auth"
	"marketplace-be/internal/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

var (
	errMissingToken = apperror.Unauthenticated("UNAUTHENTICATED", "authentication required")
	errBadToken     = apperror.Unauthenticated("INVALID_TOKEN", "invalid or expired token")
	errRevoked      = apperror.Unauthenticated("TOKEN_REVOKED", "token has been revoked")
)

// Authenticate resolves the access token to a caller and rejects the request
// with 401 when there is none, it does not verify, or it was revoked.
func Authenticate(tokens *auth.TokenManager, revocations *auth.Revocations) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		log := logger.FromCtx(ctx).With(zap.String("layer", "middleware"), zap.String("method", "Authenticate"))

		raw := auth.ExtractAccessToken(c.Request)
		if raw == "" {
			Abort(c, errMissingToken)
			return
		}

		claims, err := tokens.Parse(raw)
		if err != nil {
			log.Debug("token rejected", zap.Error(err))
			Abort(c, errBadToken)
			return
		}

		if revocations != nil {
			revoked, err := revocations.IsRevoked(ctx, claims.ID)
			if err != nil {
				log.Error("revocation lookup failed", zap.Error(err))
				Abort(c, apperror.Internal(err))
				return
			}
			if revoked {
				Abort(c, errRevoked)
				return
			}
		}

		caller, err := claims.Caller()
		if err != nil {
			log.Warn("token carries an invalid identity", zap.Error(err))
			Abort(c, errBadToken)
			return
		}

		ctx = auth.WithCaller(ctx, caller)
		ctx = auth.WithClaims(ctx, claims)
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

// RequireRole must run after Authenticate.
func RequireRole(role auth.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, ok := auth.CallerFrom(c.Request.Context())
		if !ok {
			Abort(c, errMissingToken)
			return
		}
		if err := auth.RequireRole(caller, role); err != nil {
			Abort(c, err)
			return
		}
		c.Next()
	}
}

// Abort renders err as {message, code} with the status its kind maps to.
func Abort(c *gin.Context, err error) {
	ae := apperror.From(err)
	if ae.Err != nil {
		_ = c.Error(ae.Err)
	}
	c.AbortWithStatusJSON(ae.Kind.HTTPStatus(), ae.Response())
}
