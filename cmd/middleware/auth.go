package middleware

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/wb-go/wbf/ginext"
	"github.com/wb-go/wbf/zlog"

	"checkinDesk/internal/auth"
	"checkinDesk/internal/dto"
)

// Verifier checks a raw bearer token.
type Verifier interface {
	Verify(raw string) (*auth.Claims, error)
}

// Auth rejects requests without a valid admin token. The token is read from
// the Authorization header, or from the token query parameter so that
// download links work in a plain browser tab.
func Auth(tokens Verifier) gin.HandlerFunc {
	return func(c *ginext.Context) {
		raw := bearer(c.GetHeader("Authorization"))
		if raw == "" {
			raw = c.Query("token")
		}
		if raw == "" {
			dto.UnauthorizedError(c, dto.NoTokenProvided)
			return
		}

		claims, err := tokens.Verify(raw)
		if err != nil {
			if !errors.Is(err, auth.ErrTokenExpired) {
				zlog.Logger.Debug().Err(err).Msg("token rejected")
			}
			dto.UnauthorizedError(c, dto.InvalidToken)
			return
		}

		c.Set(auth.AdminIDKey, claims.AdminID)
		c.Set(auth.UsernameKey, claims.Username)
		c.Next()
	}
}

func bearer(header string) string {
	const prefix = "Bearer "
	if len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
		return strings.TrimSpace(header[len(prefix):])
	}
	return ""
}
