package handler

import (
	"net/http"

	"go-gin-bus-booking/internal/model"
	"go-gin-bus-booking/internal/service"

	"github.com/gin-gonic/gin"
)

type CheckoutHandler struct {
	service service.BookingService
}

func NewCheckoutHandler(service service.BookingService) *CheckoutHandler {
	return &CheckoutHandler{service: service}
}

func (h *CheckoutHandler) RegisterRoutes(g Groups) {
	router := g.Public
	{
		router.POST("checkout", h.StartCheckout)
		router.GET("checkout/success", h.Success)
	}
}

type checkoutSuccessQuery struct {
	SessionID string `form:"session_id" binding:"required"`
}

func (h *CheckoutHandler) StartCheckout(c *gin.Context) {
	var req model.CheckoutRequest
	if err := BindJson(c, &req); err != nil {
		return
	}
	req.AccountID = accountID(c)

	resp, err := h.service.StartCheckout(c, req)
	if err != nil {
		handleError(c, err, "StartCheckout")
		return
	}

	handleSuccess(c, resp, http.StatusCreated)
}

// Success is hit by the browser returning from the hosted checkout page.
func (h *CheckoutHandler) Success(c *gin.Context) {
	var query checkoutSuccessQuery
	if err := BindQuery(c, &query); err != nil {
		return
	}

	result, err := h.service.ConfirmFromReturn(c, query.SessionID)
	if err != nil {
		handleError(c, err, "ConfirmCheckout")
		return
	}

	handleSuccess(c, result, http.StatusOK)
}
