package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/example/lessonhub/internal/access"
	"github.com/example/lessonhub/internal/apperr"
	"github.com/example/lessonhub/internal/http/middleware"
	"github.com/example/lessonhub/internal/http/response"
	"github.com/example/lessonhub/pkg/models"
	"github.com/gin-gonic/gin"
)

type AccessGate interface {
	IsAdmin(userID int64) bool
	CheckAccess(ctx context.Context, userID int64, lessonPath string) (access.Result, error)
	SubscriptionStatus(ctx context.Context, userID int64) (access.Status, error)
	HandleVerification(ctx context.Context, userID int64, verified bool) (models.User, error)
	GrantPremium(ctx context.Context, actorID, userID int64, days int) (models.User, error)
	RevokePremium(ctx context.Context, actorID, userID int64) (models.User, error)
}

type SubscriptionHandler struct {
	gate AccessGate
}

func NewSubscriptionHandler(gate AccessGate) *SubscriptionHandler {
	return &SubscriptionHandler{gate: gate}
}

// GET /api/subscription/access/check?telegramId=&lessonPath=
func (h *SubscriptionHandler) CheckAccess(c *gin.Context) {
	userID, err := optionalUser(c, h.gate.IsAdmin)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	result, err := h.gate.CheckAccess(c.Request.Context(), userID, c.Query("lessonPath"))
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, result)
}

// GET /api/subscription/status/:telegramId
func (h *SubscriptionHandler) Status(c *gin.Context) {
	userID, err := requestUser(c, c.Param("telegramId"), h.gate.IsAdmin)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	status, err := h.gate.SubscriptionStatus(c.Request.Context(), userID)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, status)
}

// POST /api/subscription/callback/verified?telegramId=&verified=
func (h *SubscriptionHandler) Verified(c *gin.Context) {
	userID, err := requestUser(c, c.Query("telegramId"), h.gate.IsAdmin)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	verified, err := strconv.ParseBool(c.Query("verified"))
	if err != nil {
		response.RespondError(c, apperr.Invalid("verified %q", c.Query("verified")))
		return
	}
	if _, err := h.gate.HandleVerification(c.Request.Context(), userID, verified); err != nil {
		response.RespondError(c, err)
		return
	}
	c.Status(http.StatusOK)
}

// POST /api/subscription/admin/grant?telegramId=&days=
func (h *SubscriptionHandler) Grant(c *gin.Context) {
	ident, _ := middleware.GetIdentity(c)
	userID, err := parseTelegramID(c.Query("telegramId"))
	if err != nil {
		response.RespondError(c, err)
		return
	}
	days, err := strconv.Atoi(c.DefaultQuery("days", strconv.Itoa(access.DefaultVerificationDays)))
	if err != nil {
		response.RespondError(c, apperr.Invalid("days %q", c.Query("days")))
		return
	}
	user, err := h.gate.GrantPremium(c.Request.Context(), ident.UserID, userID, days)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, gin.H{
		"success": true,
		"message": fmt.Sprintf("Premium access granted for %d days", days),
		"user":    user,
	})
}

// POST /api/subscription/admin/revoke?telegramId=
func (h *SubscriptionHandler) Revoke(c *gin.Context) {
	ident, _ := middleware.GetIdentity(c)
	userID, err := parseTelegramID(c.Query("telegramId"))
	if err != nil {
		response.RespondError(c, err)
		return
	}
	user, err := h.gate.RevokePremium(c.Request.Context(), ident.UserID, userID)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, gin.H{
		"success": true,
		"message": "Premium access revoked",
		"user":    user,
	})
}
