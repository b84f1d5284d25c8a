package middleware

import (
	"fmt"

	"github.com/example/lessonhub/internal/apperr"
	"github.com/example/lessonhub/internal/auth"
	"github.com/example/lessonhub/internal/http/response"
	"github.com/example/lessonhub/internal/logger"
	"github.com/gin-gonic/gin"
)

const (
	InitDataHeader = "X-Telegram-Init-Data"
	identityKey    = "telegram_identity"
)

// InitDataValidator turns raw WebApp init data into an identity
type InitDataValidator interface {
	Validate(raw string) (auth.Identity, error)
}

type AuthMiddleware struct {
	log       *logger.Logger
	validator InitDataValidator
	isAdmin   func(userID int64) bool
}

func NewAuthMiddleware(log *logger.Logger, validator InitDataValidator, isAdmin func(int64) bool) *AuthMiddleware {
	if log == nil {
		log = logger.Nop()
	}
	return &AuthMiddleware{log: log.With("Middleware", "AuthMiddleware"), validator: validator, isAdmin: isAdmin}
}

// Identify attaches the Telegram identity when the init data header is present and valid.
// Requests without the header continue anonymously; a forged header is rejected.
func (am *AuthMiddleware) Identify() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.GetHeader(InitDataHeader)
		if raw == "" {
			c.Next()
			return
		}
		ident, err := am.validator.Validate(raw)
		if err != nil {
			am.log.Warn("rejected init data", "error", err, "init_data", raw)
			response.RespondError(c, err)
			return
		}
		c.Set(identityKey, ident)
		c.Next()
	}
}

// RequireAdmin lets only configured administrators through
func (am *AuthMiddleware) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		ident, ok := GetIdentity(c)
		if !ok {
			response.RespondError(c, fmt.Errorf("authentication required: %w", apperr.ErrUnauthorized))
			return
		}
		if !am.isAdmin(ident.UserID) {
			am.log.Warn("admin route denied", "user_id", ident.UserID, "path", c.FullPath())
			response.RespondError(c, fmt.Errorf("admin access required: %w", apperr.ErrUnauthorized))
			return
		}
		c.Next()
	}
}

func GetIdentity(c *gin.Context) (auth.Identity, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return auth.Identity{}, false
	}
	ident, ok := v.(auth.Identity)
	return ident, ok
}
