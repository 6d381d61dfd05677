package handler

import (
	"net/http"

	"go-gin-bus-booking/internal/middleware"
	"go-gin-bus-booking/internal/model"
	"go-gin-bus-booking/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type OrderHandler struct {
	service service.BookingService
}

func NewOrderHandler(service service.BookingService) *OrderHandler {
	return &OrderHandler{service: service}
}

func (h *OrderHandler) RegisterRoutes(g Groups) {
	admin := g.Admin
	{
		admin.GET("orders", h.GetOrders)
		admin.GET("orders/:id", h.GetOrder)
		admin.POST("orders/offline", h.CreateOfflineOrder)
		admin.PUT("orders/:id/cancel", h.CancelOrder)
		admin.POST("orders/:id/finalize", h.FinalizeOrder)
		admin.GET("orders/:id/tickets", h.GetOrderTickets)
		admin.GET("orders/:id/tickets.pdf", h.DownloadTickets)
	}

	me := g.Me
	{
		me.GET("orders", h.GetMyOrders)
		me.GET("orders/:id", h.GetMyOrder)
		me.GET("orders/:id/tickets.pdf", h.DownloadMyTickets)
	}
}

type orderListQuery struct {
	RouteID string `form:"route_id"`
	Status  string `form:"status"`
	Source  string `form:"source"`
	Limit   uint   `form:"limit"`
}

func (q orderListQuery) toFilter() (model.OrderFilter, bool) {
	filter := model.OrderFilter{
		Status: model.OrderStatus(q.Status),
		Source: model.OrderSource(q.Source),
		Limit:  q.Limit,
	}
	if q.RouteID != "" {
		id, err := uuid.Parse(q.RouteID)
		if err != nil {
			return filter, false
		}
		filter.RouteID = &id
	}
	return filter, true
}

func (h *OrderHandler) GetOrders(c *gin.Context) {
	var query orderListQuery
	if err := BindQuery(c, &query); err != nil {
		return
	}
	filter, ok := query.toFilter()
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid route_id",
		})
		return
	}

	orders, err := h.service.ListOrders(c, filter)
	if err != nil {
		handleError(c, err, "GetOrders")
		return
	}

	handleSuccess(c, orders, http.StatusOK)
}

func (h *OrderHandler) GetOrder(c *gin.Context) {
	id, ok := BindUUID(c, "id")
	if !ok {
		return
	}

	order, err := h.service.GetOrder(c, id)
	if err != nil {
		handleError(c, err, "GetOrder")
		return
	}

	handleSuccess(c, order, http.StatusOK)
}

func (h *OrderHandler) CreateOfflineOrder(c *gin.Context) {
	var req model.OfflineOrderRequest
	if err := BindJson(c, &req); err != nil {
		return
	}

	order, err := h.service.CreateOfflineOrder(c, req)
	if err != nil {
		handleError(c, err, "CreateOfflineOrder")
		return
	}

	handleSuccess(c, order, http.StatusCreated)
}

func (h *OrderHandler) CancelOrder(c *gin.Context) {
	id, ok := BindUUID(c, "id")
	if !ok {
		return
	}

	order, err := h.service.CancelOrder(c, id)
	if err != nil {
		handleError(c, err, "CancelOrder")
		return
	}

	handleSuccess(c, order, http.StatusOK)
}

// FinalizeOrder lets an admin issue tickets for a paid order whose webhook never arrived.
func (h *OrderHandler) FinalizeOrder(c *gin.Context) {
	id, ok := BindUUID(c, "id")
	if !ok {
		return
	}

	result, err := h.service.FinalizeOrder(c, id)
	if err != nil {
		handleError(c, err, "FinalizeOrder")
		return
	}

	handleSuccess(c, result, http.StatusOK)
}

func (h *OrderHandler) GetOrderTickets(c *gin.Context) {
	id, ok := BindUUID(c, "id")
	if !ok {
		return
	}

	tickets, err := h.service.OrderTickets(c, id)
	if err != nil {
		handleError(c, err, "GetOrderTickets")
		return
	}

	handleSuccess(c, tickets, http.StatusOK)
}

func (h *OrderHandler) DownloadTickets(c *gin.Context) {
	id, ok := BindUUID(c, "id")
	if !ok {
		return
	}

	h.writeTickets(c, id, nil)
}

func (h *OrderHandler) GetMyOrders(c *gin.Context) {
	identity, _ := middleware.GetIdentity(c)

	orders, err := h.service.ListAccountOrders(c, identity.AccountID)
	if err != nil {
		handleError(c, err, "GetMyOrders")
		return
	}

	handleSuccess(c, orders, http.StatusOK)
}

func (h *OrderHandler) GetMyOrder(c *gin.Context) {
	id, ok := BindUUID(c, "id")
	if !ok {
		return
	}
	identity, _ := middleware.GetIdentity(c)

	order, err := h.service.GetAccountOrder(c, identity.AccountID, id)
	if err != nil {
		handleError(c, err, "GetMyOrder")
		return
	}

	handleSuccess(c, order, http.StatusOK)
}

func (h *OrderHandler) DownloadMyTickets(c *gin.Context) {
	id, ok := BindUUID(c, "id")
	if !ok {
		return
	}

	h.writeTickets(c, id, accountID(c))
}

func (h *OrderHandler) writeTickets(c *gin.Context, id uuid.UUID, accountID *string) {
	pdf, filename, err := h.service.RenderTickets(c, id, accountID)
	if err != nil {
		handleError(c, err, "DownloadTickets")
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, "application/pdf", pdf)
}
