package handler

import (
	"net/http"

	"go-gin-bus-booking/internal/model"
	"go-gin-bus-booking/internal/service"

	"github.com/gin-gonic/gin"
)

type RouteHandler struct {
	service service.RouteService
}

func NewRouteHandler(service service.RouteService) *RouteHandler {
	return &RouteHandler{service: service}
}

func (h *RouteHandler) RegisterRoutes(g Groups) {
	public := g.Public
	{
		public.GET("routes", h.ListPublic)
		public.GET("routes/homepage", h.ListHomepage)
		public.GET("routes/:id", h.GetPublic)
		public.GET("routes/:id/availability", h.Availability)
		public.GET("routes/:id/seats", h.SeatMap)
	}

	admin := g.Admin
	{
		admin.GET("routes", h.List)
		admin.POST("routes", h.Create)
		admin.GET("routes/:id", h.Get)
		admin.PUT("routes/:id", h.Update)
		admin.PUT("routes/:id/status", h.UpdateStatus)
		admin.PUT("routes/:id/homepage", h.SetHomepagePosition)
		admin.DELETE("routes/:id", h.Delete)
		admin.POST("routes/:id/cover", h.UploadCover)
		admin.POST("routes/:id/seats/regenerate", h.RegenerateSeats)
		admin.GET("routes/:id/availability", h.Availability)
	}
}

type routeListQuery struct {
	Status   string `form:"status"`
	Category string `form:"category"`
}

func (h *RouteHandler) ListPublic(c *gin.Context) {
	routes, err := h.service.ListPublic(c)
	if err != nil {
		handleError(c, err, "ListPublicRoutes")
		return
	}

	handleSuccess(c, routes, http.StatusOK)
}

func (h *RouteHandler) ListHomepage(c *gin.Context) {
	routes, err := h.service.ListHomepage(c)
	if err != nil {
		handleError(c, err, "ListHomepageRoutes")
		return
	}

	handleSuccess(c, routes, http.StatusOK)
}

func (h *RouteHandler) GetPublic(c *gin.Context) {
	id, ok := BindUUID(c, "id")
	if !ok {
		return
	}

	route, err := h.service.GetPublic(c, id)
	if err != nil {
		handleError(c, err, "GetPublicRoute")
		return
	}

	handleSuccess(c, route, http.StatusOK)
}

func (h *RouteHandler) Availability(c *gin.Context) {
	id, ok := BindUUID(c, "id")
	if !ok {
		return
	}

	availability, err := h.service.Availability(c, id)
	if err != nil {
		handleError(c, err, "RouteAvailability")
		return
	}

	handleSuccess(c, model.RouteAvailabilityResponse{RouteID: id, Availability: *availability}, http.StatusOK)
}

func (h *RouteHandler) SeatMap(c *gin.Context) {
	id, ok := BindUUID(c, "id")
	if !ok {
		return
	}

	seatMap, err := h.service.SeatMap(c, id)
	if err != nil {
		handleError(c, err, "SeatMap")
		return
	}

	handleSuccess(c, seatMap, http.StatusOK)
}

func (h *RouteHandler) List(c *gin.Context) {
	var query routeListQuery
	if err := BindQuery(c, &query); err != nil {
		return
	}

	routes, err := h.service.List(c, model.RouteFilter{
		Status:   model.RouteStatus(query.Status),
		Category: query.Category,
	})
	if err != nil {
		handleError(c, err, "ListRoutes")
		return
	}

	handleSuccess(c, routes, http.StatusOK)
}

func (h *RouteHandler) Get(c *gin.Context) {
	id, ok := BindUUID(c, "id")
	if !ok {
		return
	}

	route, err := h.service.Get(c, id)
	if err != nil {
		handleError(c, err, "GetRoute")
		return
	}

	handleSuccess(c, route, http.StatusOK)
}

func (h *RouteHandler) Create(c *gin.Context) {
	var req model.CreateRouteRequest
	if err := BindJson(c, &req); err != nil {
		return
	}

	route, err := h.service.Create(c, req)
	if err != nil {
		handleError(c, err, "CreateRoute")
		return
	}

	handleSuccess(c, route, http.StatusCreated)
}

func (h *RouteHandler) Update(c *gin.Context) {
	id, ok := BindUUID(c, "id")
	if !ok {
		return
	}

	var req model.UpdateRouteRequest
	if err := BindJson(c, &req); err != nil {
		return
	}

	result, err := h.service.Update(c, id, req)
	if err != nil {
		handleError(c, err, "UpdateRoute")
		return
	}

	handleSuccess(c, result, http.StatusOK)
}

func (h *RouteHandler) UpdateStatus(c *gin.Context) {
	id, ok := BindUUID(c, "id")
	if !ok {
		return
	}

	var req model.UpdateRouteStatusRequest
	if err := BindJson(c, &req); err != nil {
		return
	}

	route, err := h.service.UpdateStatus(c, id, req.Status)
	if err != nil {
		handleError(c, err, "UpdateRouteStatus")
		return
	}

	handleSuccess(c, route, http.StatusOK)
}

func (h *RouteHandler) SetHomepagePosition(c *gin.Context) {
	id, ok := BindUUID(c, "id")
	if !ok {
		return
	}

	var req model.HomepagePositionRequest
	if err := BindJson(c, &req); err != nil {
		return
	}

	route, err := h.service.SetHomepagePosition(c, id, req.Position)
	if err != nil {
		handleError(c, err, "SetHomepagePosition")
		return
	}

	handleSuccess(c, route, http.StatusOK)
}

func (h *RouteHandler) Delete(c *gin.Context) {
	id, ok := BindUUID(c, "id")
	if !ok {
		return
	}

	if err := h.service.Delete(c, id); err != nil {
		handleError(c, err, "DeleteRoute")
		return
	}

	handleSuccess(c, nil, http.StatusNoContent)
}

func (h *RouteHandler) UploadCover(c *gin.Context) {
	id, ok := BindUUID(c, "id")
	if !ok {
		return
	}

	header, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Missing file",
		})
		return
	}
	file, err := header.Open()
	if err != nil {
		handleError(c, err, "UploadCover")
		return
	}
	defer file.Close()

	route, err := h.service.UploadCover(c, id, file)
	if err != nil {
		handleError(c, err, "UploadCover")
		return
	}

	handleSuccess(c, route, http.StatusOK)
}

func (h *RouteHandler) RegenerateSeats(c *gin.Context) {
	id, ok := BindUUID(c, "id")
	if !ok {
		return
	}

	count, err := h.service.RegenerateSeats(c, id)
	if err != nil {
		handleError(c, err, "RegenerateSeats")
		return
	}

	handleSuccess(c, gin.H{"route_id": id, "seats": count}, http.StatusOK)
}
