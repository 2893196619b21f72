// Package api описывает HTTP-интерфейс подписок и погашений.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Spok95/coffee-club/internal/apperr"
	"github.com/Spok95/coffee-club/internal/domain/redemption"
	"github.com/Spok95/coffee-club/internal/domain/subscriptions"
	"github.com/Spok95/coffee-club/internal/domain/users"
	"github.com/Spok95/coffee-club/internal/report"
)

const (
	HeaderIdempotencyKey = "Idempotency-Key"
	HeaderReplayed       = "Idempotent-Replayed"
)

type Subscriptions interface {
	Create(ctx context.Context, callerID string) (*subscriptions.Subscription, bool, error)
	Get(ctx context.Context, callerID string) (*subscriptions.Subscription, error)
}

type Redemptions interface {
	VerifyByID(ctx context.Context, subscriptionID string) (redemption.Verification, error)
	VerifyByUser(ctx context.Context, userID string) (redemption.Verification, error)
	Redeem(ctx context.Context, req redemption.Request) (redemption.Outcome, error)
	RedeemForUser(ctx context.Context, userID, key, by string) (redemption.Outcome, error)
	History(ctx context.Context, subscriptionID string) ([]subscriptions.Redemption, error)
}

type Staff interface {
	RequireStaff(ctx context.Context, callerID string) (*users.User, error)
	IsStaff(ctx context.Context, callerID string) (bool, error)
}

type Authenticator interface {
	Authenticate(token string) (string, error)
}

type Handler struct {
	subs  Subscriptions
	flow  Redemptions
	staff Staff
	gate  Authenticator
	log   *slog.Logger
	now   func() time.Time
	loc   *time.Location
}

func New(subs Subscriptions, flow Redemptions, staff Staff, gate Authenticator, log *slog.Logger) *Handler {
	return &Handler{
		subs:  subs,
		flow:  flow,
		staff: staff,
		gate:  gate,
		log:   log,
		now:   time.Now,
		loc:   time.UTC,
	}
}

// WithLocation: часовой пояс выгрузок.
func (h *Handler) WithLocation(loc *time.Location) *Handler {
	if loc != nil {
		h.loc = loc
	}
	return h
}

// Router собирает gin.Engine со всеми маршрутами.
func (h *Handler) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(h.log))

	authed := r.Group("/", h.authenticate())
	{
		sub := authed.Group("/subscription")
		sub.GET("", h.getSubscription)
		sub.GET("/status", h.getSubscription)
		sub.POST("", h.createSubscription)
		sub.POST("/create", h.createSubscription)
		sub.POST("/redeem", h.redeemOwn)
		sub.GET("/redemptions", h.ownRedemptions)

		authed.GET("/verify/:subscriptionId", h.verifyByID)
		authed.POST("/redeem/:subscriptionId", h.requireStaff(), h.redeemByID)

		admin := authed.Group("/admin", h.requireStaff())
		admin.GET("/verify/:userId", h.verifyByUser)
		admin.POST("/redeem/:userId", h.redeemForUser)
		admin.GET("/redemptions/:userId/export", h.exportLedger)
	}
	return r
}

// fail пишет {"error": ...} со статусом по коду ошибки.
func (h *Handler) fail(c *gin.Context, err error) {
	code := apperr.CodeOf(err)
	msg := "internal error"
	var e *apperr.Error
	if code == apperr.CodeUnexpected {
		_ = c.Error(err)
		h.log.Error("request failed",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"caller_id", caller(c),
			"err", err,
		)
	} else if errors.As(err, &e) {
		msg = e.Message
	}
	c.JSON(code.HTTPStatus(), gin.H{"error": msg})
}

// GET /subscription
func (h *Handler) getSubscription(c *gin.Context) {
	sub, err := h.subs.Get(c.Request.Context(), caller(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"subscription": sub})
}

// POST /subscription
func (h *Handler) createSubscription(c *gin.Context) {
	sub, created, err := h.subs.Create(c.Request.Context(), caller(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, gin.H{"subscription": sub})
}

// POST /subscription/redeem
func (h *Handler) redeemOwn(c *gin.Context) {
	me := caller(c)
	out, err := h.flow.RedeemForUser(c.Request.Context(), me, c.GetHeader(HeaderIdempotencyKey), me)
	h.writeOutcome(c, out, err)
}

// GET /subscription/redemptions
func (h *Handler) ownRedemptions(c *gin.Context) {
	ctx := c.Request.Context()
	sub, err := h.subs.Get(ctx, caller(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	if sub == nil {
		h.fail(c, subscriptions.ErrNotFound)
		return
	}
	rows, err := h.flow.History(ctx, sub.ID)
	if err != nil {
		h.fail(c, err)
		return
	}
	if rows == nil {
		rows = []subscriptions.Redemption{}
	}
	c.JSON(http.StatusOK, gin.H{"redemptions": rows})
}

// GET /verify/:subscriptionId: владелец или сотрудник. Чужим
// отвечаем 404, чтобы не раскрывать существование подписки.
func (h *Handler) verifyByID(c *gin.Context) {
	ctx := c.Request.Context()
	v, err := h.flow.VerifyByID(ctx, c.Param("subscriptionId"))
	if err != nil {
		h.fail(c, err)
		return
	}
	me := caller(c)
	if v.Subscription.UserID != me {
		ok, err := h.staff.IsStaff(ctx, me)
		if err != nil {
			h.fail(c, err)
			return
		}
		if !ok {
			h.fail(c, subscriptions.ErrNotFound)
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"subscription": v.Subscription})
}

// POST /redeem/:subscriptionId: подтверждение после скана QR.
func (h *Handler) redeemByID(c *gin.Context) {
	out, err := h.flow.Redeem(c.Request.Context(), redemption.Request{
		SubscriptionID: c.Param("subscriptionId"),
		IdempotencyKey: c.GetHeader(HeaderIdempotencyKey),
		RedeemedBy:     caller(c),
	})
	h.writeOutcome(c, out, err)
}

// GET /admin/verify/:userId
func (h *Handler) verifyByUser(c *gin.Context) {
	v, err := h.flow.VerifyByUser(c.Request.Context(), c.Param("userId"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"subscription": v.Subscription})
}

// POST /admin/redeem/:userId
func (h *Handler) redeemForUser(c *gin.Context) {
	out, err := h.flow.RedeemForUser(c.Request.Context(), c.Param("userId"), c.GetHeader(HeaderIdempotencyKey), caller(c))
	h.writeOutcome(c, out, err)
}

// GET /admin/redemptions/:userId/export
func (h *Handler) exportLedger(c *gin.Context) {
	ctx := c.Request.Context()
	userID := c.Param("userId")
	v, err := h.flow.VerifyByUser(ctx, userID)
	if err != nil {
		h.fail(c, err)
		return
	}
	rows, err := h.flow.History(ctx, v.Subscription.ID)
	if err != nil {
		h.fail(c, err)
		return
	}
	data, err := report.LedgerXLSX(v.Subscription, rows, h.loc)
	if err != nil {
		h.fail(c, apperr.Unexpected("ledger export", err))
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+report.LedgerFileName(userID, h.now().In(h.loc))+`"`)
	c.Data(http.StatusOK, report.ContentTypeXLSX, data)
}

func (h *Handler) writeOutcome(c *gin.Context, out redemption.Outcome, err error) {
	if err != nil {
		h.fail(c, err)
		return
	}
	if out.Replayed {
		c.Header(HeaderReplayed, "true")
	}
	c.JSON(http.StatusOK, gin.H{
		"subscription": out.Subscription,
		"redemption":   out.Redemption,
	})
}
