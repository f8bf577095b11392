// Order HTTP handlers.
//
// Patron-facing ledger endpoints:
//   - POST /orders               (place a request; Idempotency-Key aware)
//   - POST /orders/{id}/cancel   (cancel as the owner, identified by X-Chat-ID)
//
// Idempotency:
// When the client supplies an Idempotency-Key and a still-valid record exists
// for (chat_id, key), the recorded order is returned with
// `Idempotency-Replayed: true` and no new order is placed.
package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-karaoke-backend/internal/http/middleware"
	"github.com/tbourn/go-karaoke-backend/internal/services"
)

// CreateOrderRequest is the payload for POST /orders.
type CreateOrderRequest struct {
	ChatID int64 `json:"chat_id" binding:"required" example:"1"`
	SongID int   `json:"song_id" binding:"required,min=1" example:"1"`
}

// CreateOrder godoc
// @ID          createOrder
// @Summary     Request a song
// @Description Places a pending order for the song on behalf of the registered user.
// @Description Supports idempotency via the Idempotency-Key header (same key → same order).
// @Tags        Orders
// @Accept      json
// @Produce     json
// @Param       X-Chat-ID        header  int     false  "Acting chat id; must equal chat_id when present"
// @Param       Idempotency-Key  header  string  false  "Idempotency key for safe retries"  example(7a8d9f4c-1b2a-4c3d-8e9f-0123456789ab)
// @Param       body             body    handlers.CreateOrderRequest  true  "Order"
// @Success     201  {object}  domain.Order            "Order placed"
// @Success     200  {object}  domain.Order            "Replayed order"
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     403  {object}  handlers.ErrorResponse  "Acting for another chat"
// @Failure     404  {object}  handlers.ErrorResponse  "Song not found"
// @Failure     409  {object}  handlers.ErrorResponse  "Not registered"
// @Failure     429  {object}  handlers.ErrorResponse  "Too many active orders"
// @Router      /orders [post]
func (h *Handlers) CreateOrder(c *gin.Context) {
	var req CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "chat_id and song_id are required")
		return
	}
	if actor, has := middleware.ChatIDFrom(c); has && actor != req.ChatID {
		fail(c, http.StatusForbidden, ErrCodeForbidden, "cannot order on behalf of another chat")
		return
	}
	ctx := c.Request.Context()
	owner := strconv.FormatInt(req.ChatID, 10)
	key, hasKey := middleware.GetIdempotencyKey(c)

	if hasKey && h.replay(c, owner, key) {
		return
	}

	o, err := h.orders.Create(ctx, req.ChatID, req.SongID)
	if err != nil {
		failErr(c, err)
		return
	}

	if hasKey && h.idem != nil {
		stored, err := h.idem.Save(ctx, owner, key, o.ID, http.StatusCreated)
		if err != nil {
			middleware.LoggerFrom(c).Warn().Err(err).Uint64("order_id", o.ID).Msg("idempotency record not saved")
		} else if stored != o.ID {
			// a concurrent retry recorded its order first
			middleware.LoggerFrom(c).Warn().Uint64("order_id", o.ID).Uint64("recorded_id", stored).Msg("idempotency race")
		}
	}
	if h.notifier != nil {
		h.notifier.OrderPlaced(context.WithoutCancel(ctx), o)
	}
	middleware.LoggerFrom(c).Info().Uint64("order_id", o.ID).Int("song_id", o.SongID).Msg("order placed")
	ok(c, http.StatusCreated, o)
}

// replay serves the recorded order for (owner, key) when there is one.
func (h *Handlers) replay(c *gin.Context, owner, key string) bool {
	id, found := middleware.ReplayOrderID(c)
	if !found && h.idem != nil {
		var err error
		id, found, err = h.idem.Lookup(c.Request.Context(), owner, key, time.Now().UTC())
		if err != nil {
			middleware.LoggerFrom(c).Warn().Err(err).Msg("idempotency lookup failed")
			return false
		}
	}
	if !found {
		return false
	}
	o, err := h.orders.Get(c.Request.Context(), id)
	if err != nil {
		return false
	}
	c.Header(middleware.HeaderIdempotencyReplayed, "true")
	ok(c, http.StatusOK, o)
	return true
}

// CancelOrder godoc
// @ID          cancelOrder
// @Summary     Cancel an order
// @Description Cancels a pending or in-progress order. Only its owner (or an admin user) may cancel.
// @Tags        Orders
// @Produce     json
// @Param       X-Chat-ID  header  int  true  "Acting chat id"
// @Param       id         path    int  true  "Order ID"
// @Success     200  {object}  domain.Order
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     403  {object}  handlers.ErrorResponse  "Not the owner"
// @Failure     404  {object}  handlers.ErrorResponse  "Order not found"
// @Failure     409  {object}  handlers.ErrorResponse  "Order already finished"
// @Router      /orders/{id}/cancel [post]
func (h *Handlers) CancelOrder(c *gin.Context) {
	id, valid := paramUint64(c, "id")
	if !valid {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "order id must be a positive integer")
		return
	}
	actor, has := middleware.ChatIDFrom(c)
	if !has {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, middleware.HeaderChatID+" header is required")
		return
	}
	h.cancel(c, id, services.Actor{ChatID: actor})
}

func (h *Handlers) cancel(c *gin.Context, id uint64, actor services.Actor) {
	o, err := h.orders.Cancel(c.Request.Context(), id, actor)
	if err != nil {
		failErr(c, err)
		return
	}
	middleware.LoggerFrom(c).Info().Uint64("order_id", o.ID).Bool("admin", actor.Admin).Msg("order cancelled")
	ok(c, http.StatusOK, o)
}
