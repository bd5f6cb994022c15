package middleware

import (
	"fmt"

	"marketplace-be/internal/apperror"
	"marketplace-be/internal/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Recovery turns a panic into a logged 500 with the standard error body.
func Recovery() gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(nil, func(c *gin.Context, rec interface{}) {
		logger.FromCtx(c.Request.Context()).Error("panic recovered",
			zap.Any("panic", rec),
			zap.String("path", c.Request.URL.Path),
			zap.Stack("stack"),
		)
		Abort(c, apperror.Internal(fmt.Errorf("panic: %v", rec)))
	})
}
