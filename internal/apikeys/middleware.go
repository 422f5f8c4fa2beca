package apikeys

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/camroute/fare-engine/pkg/common"
)

const authScheme = "ApiKey"

// Authenticator resolves a raw key value to an API key
type Authenticator interface {
	Authenticate(ctx context.Context, rawKey string) (*APIKey, error)
}

// Middleware enforces "Authorization: ApiKey <uuid>" on a route group. On
// success the key ID and name are placed in the gin context for request
// logging and error tracking.
func Middleware(auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			common.ErrorResponse(c, http.StatusUnauthorized, "missing Authorization header")
			c.Abort()
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], authScheme) {
			common.ErrorResponse(c, http.StatusUnauthorized, "expected ApiKey authorization scheme")
			c.Abort()
			return
		}

		key, err := auth.Authenticate(c.Request.Context(), strings.TrimSpace(parts[1]))
		if err != nil {
			if appErr, ok := err.(*common.AppError); ok {
				common.AppErrorResponse(c, appErr)
			} else {
				common.ErrorResponse(c, http.StatusUnauthorized, "unauthorized")
			}
			c.Abort()
			return
		}

		c.Set("api_key_id", key.ID.String())
		c.Set("api_key_label", key.Name)
		c.Next()
	}
}
