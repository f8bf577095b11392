// Admin HTTP handlers.
//
// Staff endpoints. All but the token exchange require a bearer token:
//   - POST /admin/token                    (exchange the admin secret for a token)
//   - GET  /admin/orders                   (active queue, oldest first, weak ETag)
//   - POST /admin/orders/{id}/advance      (pending → in_progress → completed)
//   - POST /admin/orders/{id}/cancel       (cancel any active order)
package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-karaoke-backend/internal/domain"
	"github.com/tbourn/go-karaoke-backend/internal/http/middleware"
	"github.com/tbourn/go-karaoke-backend/internal/services"
)

// TokenRequest exchanges the admin secret for a bearer token.
type TokenRequest struct {
	Secret  string `json:"secret"  binding:"required" example:"letmesing"`
	Subject string `json:"subject,omitempty" binding:"max=64" example:"bar-1"`
}

// TokenResponse carries a signed admin token.
type TokenResponse struct {
	Token     string    `json:"token"`
	TokenType string    `json:"token_type" example:"Bearer"`
	ExpiresAt time.Time `json:"expires_at"`
}

// QueueItem is an active order with a human-readable status.
type QueueItem struct {
	domain.Order
	Label string `json:"label" example:"waiting"`
}

// QueueResponse is the venue's active queue.
type QueueResponse struct {
	Orders []QueueItem `json:"orders"`
	Count  int         `json:"count" example:"1"`
}

const defaultTokenSubject = "staff"

// IssueToken godoc
// @ID          issueAdminToken
// @Summary     Get an admin token
// @Tags        Admin
// @Accept      json
// @Produce     json
// @Param       body  body  handlers.TokenRequest  true  "Admin secret"
// @Success     200  {object}  handlers.TokenResponse
// @Failure     401  {object}  handlers.ErrorResponse  "Wrong secret"
// @Failure     503  {object}  handlers.ErrorResponse  "Tokens not configured"
// @Router      /admin/token [post]
func (h *Handlers) IssueToken(c *gin.Context) {
	if h.tokens == nil {
		fail(c, http.StatusServiceUnavailable, ErrCodeUnavailable, "admin tokens are not configured")
		return
	}
	var req TokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "secret is required")
		return
	}
	if err := h.users.Authenticate(req.Secret); err != nil {
		middleware.LoggerFrom(c).Warn().Msg("admin token refused")
		failErr(c, err)
		return
	}
	sub := strings.TrimSpace(req.Subject)
	if sub == "" {
		sub = defaultTokenSubject
	}
	tok, exp, err := h.tokens.Issue(sub, string(domain.RoleAdmin))
	if err != nil {
		failErr(c, err)
		return
	}
	c.Header("Cache-Control", "no-store")
	ok(c, http.StatusOK, TokenResponse{Token: tok, TokenType: "Bearer", ExpiresAt: exp})
}

// AdminQueue godoc
// @ID          adminQueue
// @Summary     Active queue
// @Description Pending and in-progress orders, oldest first, with song and user.
// @Tags        Admin
// @Produce     json
// @Security    BearerAuth
// @Success     200  {object}  handlers.QueueResponse
// @Success     304  "Not modified"
// @Failure     401  {object}  handlers.ErrorResponse  "Unauthorized"
// @Router      /admin/orders [get]
func (h *Handlers) AdminQueue(c *gin.Context) {
	ctx := c.Request.Context()
	count, last, err := h.orders.QueueStats(ctx)
	if err != nil {
		failErr(c, err)
		return
	}
	if notModified(c, "queue", count, last) {
		return
	}
	orders, err := h.orders.Active(ctx)
	if err != nil {
		failErr(c, err)
		return
	}
	items := make([]QueueItem, len(orders))
	for i, o := range orders {
		items[i] = QueueItem{Order: o, Label: o.Status.Label()}
	}
	ok(c, http.StatusOK, QueueResponse{Orders: items, Count: len(items)})
}

// AdvanceOrder godoc
// @ID          advanceOrder
// @Summary     Advance an order
// @Description Moves the order one step: pending → in_progress → completed.
// @Tags        Admin
// @Produce     json
// @Security    BearerAuth
// @Param       id  path  int  true  "Order ID"
// @Success     200  {object}  domain.Order
// @Failure     404  {object}  handlers.ErrorResponse  "Order not found"
// @Failure     409  {object}  handlers.ErrorResponse  "Order already finished"
// @Router      /admin/orders/{id}/advance [post]
func (h *Handlers) AdvanceOrder(c *gin.Context) {
	id, valid := paramUint64(c, "id")
	if !valid {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "order id must be a positive integer")
		return
	}
	o, err := h.orders.Advance(c.Request.Context(), id)
	if err != nil {
		failErr(c, err)
		return
	}
	sub, _ := middleware.AdminSubject(c)
	middleware.LoggerFrom(c).Info().Uint64("order_id", o.ID).Str("status", string(o.Status)).Str("admin", sub).Msg("order advanced")
	ok(c, http.StatusOK, o)
}

// AdminCancelOrder godoc
// @ID          adminCancelOrder
// @Summary     Cancel any order
// @Tags        Admin
// @Produce     json
// @Security    BearerAuth
// @Param       id  path  int  true  "Order ID"
// @Success     200  {object}  domain.Order
// @Failure     404  {object}  handlers.ErrorResponse  "Order not found"
// @Failure     409  {object}  handlers.ErrorResponse  "Order already finished"
// @Router      /admin/orders/{id}/cancel [post]
func (h *Handlers) AdminCancelOrder(c *gin.Context) {
	id, valid := paramUint64(c, "id")
	if !valid {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "order id must be a positive integer")
		return
	}
	h.cancel(c, id, services.Actor{Admin: true})
}
