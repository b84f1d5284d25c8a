package handlers

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/example/lessonhub/internal/apperr"
	"github.com/example/lessonhub/internal/http/middleware"
	"github.com/gin-gonic/gin"
)

func parseTelegramID(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.Invalid("telegram id %q", raw)
	}
	return id, nil
}

// subject checks that a signed-in caller only acts on their own id. Admins may act on anyone.
func subject(c *gin.Context, id int64, isAdmin func(int64) bool) error {
	ident, ok := middleware.GetIdentity(c)
	if !ok || ident.UserID == id || (isAdmin != nil && isAdmin(ident.UserID)) {
		return nil
	}
	return fmt.Errorf("user %d acting as %d: %w", ident.UserID, id, apperr.ErrUnauthorized)
}

// requestUser resolves a telegram id from a raw value and checks it against the caller
func requestUser(c *gin.Context, raw string, isAdmin func(int64) bool) (int64, error) {
	id, err := parseTelegramID(raw)
	if err != nil {
		return 0, err
	}
	if err := subject(c, id, isAdmin); err != nil {
		return 0, err
	}
	return id, nil
}

// optionalUser is the telegramId query parameter, else the signed-in user, else anonymous (0)
func optionalUser(c *gin.Context, isAdmin func(int64) bool) (int64, error) {
	if raw := c.Query("telegramId"); raw != "" {
		return requestUser(c, raw, isAdmin)
	}
	if ident, ok := middleware.GetIdentity(c); ok {
		return ident.UserID, nil
	}
	return 0, nil
}

func bindJSON(c *gin.Context, dst any) error {
	if err := c.ShouldBindJSON(dst); err != nil {
		return apperr.Invalid("request body: %v", err)
	}
	return nil
}
