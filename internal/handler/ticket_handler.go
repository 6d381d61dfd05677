package handler

import (
	"net/http"

	"go-gin-bus-booking/internal/service"

	"github.com/gin-gonic/gin"
)

type TicketHandler struct {
	service service.TicketService
}

func NewTicketHandler(service service.TicketService) *TicketHandler {
	return &TicketHandler{service: service}
}

func (h *TicketHandler) RegisterRoutes(g Groups) {
	router := g.Admin
	{
		router.PUT("tickets/:id/cancel", h.CancelTicket)
		router.GET("routes/:id/tickets", h.ListByRoute)
	}
}

func (h *TicketHandler) CancelTicket(c *gin.Context) {
	id, ok := BindUUID(c, "id")
	if !ok {
		return
	}

	ticket, err := h.service.CancelTicket(c, id)
	if err != nil {
		handleError(c, err, "CancelTicket")
		return
	}

	handleSuccess(c, ticket, http.StatusOK)
}

func (h *TicketHandler) ListByRoute(c *gin.Context) {
	routeID, ok := BindUUID(c, "id")
	if !ok {
		return
	}

	tickets, err := h.service.ListByRoute(c, routeID)
	if err != nil {
		handleError(c, err, "ListRouteTickets")
		return
	}

	handleSuccess(c, tickets, http.StatusOK)
}
