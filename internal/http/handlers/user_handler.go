// User HTTP handlers.
//
// Registry endpoints keyed by chat id:
//   - POST   /users                              (register at a table)
//   - GET    /users/{chat_id}                    (profile)
//   - DELETE /users/{chat_id}/registration       (reset)
//   - POST   /users/{chat_id}/admin              (promote with the admin secret)
//   - GET    /users/{chat_id}/orders             (order history, newest first)
package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-karaoke-backend/internal/domain"
	"github.com/tbourn/go-karaoke-backend/internal/services"
)

// RegisterRequest is the payload for POST /users.
type RegisterRequest struct {
	ChatID      int64  `json:"chat_id"      binding:"required" example:"1"`
	TableNumber int    `json:"table_number" binding:"required" example:"5"`
	Username    string `json:"username,omitempty"     binding:"max=64"  example:"paul"`
	DisplayName string `json:"display_name,omitempty" binding:"max=128" example:"Paul"`
}

// RegisterResponse reports the stored user and whether the call changed it.
type RegisterResponse struct {
	User    *domain.User `json:"user"`
	Changed bool         `json:"changed" example:"true"`
}

// PromoteRequest carries the admin secret.
type PromoteRequest struct {
	Secret string `json:"secret" binding:"required" example:"letmesing"`
}

// OrdersResponse is a list of orders.
type OrdersResponse struct {
	Orders []domain.Order `json:"orders"`
	Count  int            `json:"count" example:"1"`
}

func ordersResponse(orders []domain.Order) OrdersResponse {
	if orders == nil {
		orders = []domain.Order{}
	}
	return OrdersResponse{Orders: orders, Count: len(orders)}
}

func chatIDParam(c *gin.Context) (int64, bool) {
	id, valid := paramInt64(c, "chat_id")
	if !valid {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "chat_id must be a non-zero integer")
	}
	return id, valid
}

// RegisterUser godoc
// @ID          registerUser
// @Summary     Register at a table
// @Description Creates the user on first contact and assigns the table. Registering an
// @Description already registered user is a no-op that returns the stored user (200).
// @Tags        Users
// @Accept      json
// @Produce     json
// @Param       body  body  handlers.RegisterRequest  true  "Registration"
// @Success     201  {object}  handlers.RegisterResponse  "Registered"
// @Success     200  {object}  handlers.RegisterResponse  "Already registered"
// @Failure     400  {object}  handlers.ErrorResponse     "Bad request"
// @Router      /users [post]
func (h *Handlers) RegisterUser(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "chat_id and table_number are required")
		return
	}
	u, changed, err := h.users.Register(c.Request.Context(), req.ChatID, req.TableNumber, services.Profile{
		Username:    req.Username,
		DisplayName: req.DisplayName,
	})
	if err != nil {
		failErr(c, err)
		return
	}
	status := http.StatusOK
	if changed {
		status = http.StatusCreated
	}
	ok(c, status, RegisterResponse{User: u, Changed: changed})
}

// GetUser godoc
// @ID          getUser
// @Summary     Get a user
// @Tags        Users
// @Produce     json
// @Param       chat_id  path  int  true  "Chat ID"
// @Success     200  {object}  domain.User
// @Failure     404  {object}  handlers.ErrorResponse  "User not found"
// @Router      /users/{chat_id} [get]
func (h *Handlers) GetUser(c *gin.Context) {
	chatID, valid := chatIDParam(c)
	if !valid {
		return
	}
	u, err := h.users.Get(c.Request.Context(), chatID)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, u)
}

// ResetUser godoc
// @ID          resetUser
// @Summary     Reset registration
// @Description Clears the table assignment and returns the role to guest.
// @Tags        Users
// @Param       chat_id  path  int  true  "Chat ID"
// @Success     204  "Reset"
// @Failure     404  {object}  handlers.ErrorResponse  "User not found"
// @Router      /users/{chat_id}/registration [delete]
func (h *Handlers) ResetUser(c *gin.Context) {
	chatID, valid := chatIDParam(c)
	if !valid {
		return
	}
	if err := h.users.Reset(c.Request.Context(), chatID); err != nil {
		failErr(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// PromoteUser godoc
// @ID          promoteUser
// @Summary     Promote to admin
// @Description Elevates the user when the secret matches the venue admin password.
// @Tags        Users
// @Accept      json
// @Produce     json
// @Param       chat_id  path  int                      true  "Chat ID"
// @Param       body     body  handlers.PromoteRequest  true  "Admin secret"
// @Success     200  {object}  domain.User
// @Failure     401  {object}  handlers.ErrorResponse  "Wrong secret"
// @Failure     404  {object}  handlers.ErrorResponse  "User not found"
// @Router      /users/{chat_id}/admin [post]
func (h *Handlers) PromoteUser(c *gin.Context) {
	chatID, valid := chatIDParam(c)
	if !valid {
		return
	}
	var req PromoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "secret is required")
		return
	}
	u, err := h.users.PromoteToAdmin(c.Request.Context(), chatID, req.Secret)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, u)
}

// UserOrders godoc
// @ID          userOrders
// @Summary     Order history
// @Description Returns the user's orders, most recent first. Supports weak ETags.
// @Tags        Users
// @Produce     json
// @Param       chat_id  path   int  true   "Chat ID"
// @Param       limit    query  int  false  "Maximum number of orders (0 = all)"  minimum(0)
// @Success     200  {object}  handlers.OrdersResponse
// @Success     304  "Not modified"
// @Failure     404  {object}  handlers.ErrorResponse  "User not found"
// @Router      /users/{chat_id}/orders [get]
func (h *Handlers) UserOrders(c *gin.Context) {
	chatID, valid := chatIDParam(c)
	if !valid {
		return
	}
	limit, valid := queryInt(c, "limit", 0)
	if !valid || limit < 0 {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "limit must be a non-negative integer")
		return
	}
	ctx := c.Request.Context()

	count, last, err := h.orders.HistoryStats(ctx, chatID)
	if err != nil {
		failErr(c, err)
		return
	}
	if notModified(c, "history", count, last, strconv.FormatInt(chatID, 10), strconv.Itoa(limit)) {
		return
	}

	orders, err := h.orders.History(ctx, chatID, limit)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, ordersResponse(orders))
}
