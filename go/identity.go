package medstoreserver

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	apierrors "github.com/Apurer/medstore-checkout/internal/shared/errors"
)

// HeaderUserID carries the authenticated buyer, set by the gateway in front of this service.
const HeaderUserID = "X-User-ID"

const userIDKey = "medstore.userID"

// requireUser rejects requests without a positive X-User-ID.
func requireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.ParseInt(strings.TrimSpace(c.GetHeader(HeaderUserID)), 10, 64)
		if err != nil || id <= 0 {
			apierrors.Respond(c, apierrors.ErrUnauthorized.WithDetail("X-User-ID header is required"))
			c.Abort()
			return
		}
		c.Set(userIDKey, id)
		c.Next()
	}
}

func userID(c *gin.Context) int64 {
	return c.GetInt64(userIDKey)
}

