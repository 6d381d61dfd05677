package handler

import (
	"net/http"

	"go-gin-bus-booking/internal/middleware"
	"go-gin-bus-booking/internal/model"
	"go-gin-bus-booking/internal/service"

	"github.com/gin-gonic/gin"
)

type CustomerHandler struct {
	service service.CustomerService
}

func NewCustomerHandler(service service.CustomerService) *CustomerHandler {
	return &CustomerHandler{service: service}
}

func (h *CustomerHandler) RegisterRoutes(g Groups) {
	g.Admin.GET("customers", h.List)
	g.Admin.GET("customers/:id", h.Get)
	g.Me.POST("customer", h.Link)
}

func (h *CustomerHandler) List(c *gin.Context) {
	customers, err := h.service.List(c)
	if err != nil {
		handleError(c, err, "ListCustomers")
		return
	}

	handleSuccess(c, customers, http.StatusOK)
}

func (h *CustomerHandler) Get(c *gin.Context) {
	id, ok := BindUUID(c, "id")
	if !ok {
		return
	}

	customer, err := h.service.Get(c, id)
	if err != nil {
		handleError(c, err, "GetCustomer")
		return
	}

	handleSuccess(c, customer, http.StatusOK)
}

// Link attaches the signed-in account to the customer profile of its email.
func (h *CustomerHandler) Link(c *gin.Context) {
	var req model.LinkCustomerRequest
	if err := BindJson(c, &req); err != nil {
		return
	}
	identity, _ := middleware.GetIdentity(c)

	customer, err := h.service.LinkAccount(c, identity.AccountID, identity.Email, req)
	if err != nil {
		handleError(c, err, "LinkCustomer")
		return
	}

	handleSuccess(c, customer, http.StatusOK)
}
