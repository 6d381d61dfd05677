package handler

import (
	"errors"
	"net/http"

	"go-gin-bus-booking/config"
	"go-gin-bus-booking/internal/middleware"
	apperrors "go-gin-bus-booking/pkg/app_errors"
	"go-gin-bus-booking/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Groups are the router groups every handler registers on.
type Groups struct {
	// Public is /api/v1; a bearer token is optional.
	Public *gin.RouterGroup
	// Me is /api/v1/me and requires a signed-in account.
	Me *gin.RouterGroup
	// Admin is /api/v1/admin and requires the admin role.
	Admin *gin.RouterGroup
}

type Registrar interface {
	RegisterRoutes(g Groups)
}

func NewGroups(r *gin.Engine, authConfig config.AuthConfig) Groups {
	public := r.Group("/api/v1", middleware.Authenticate(authConfig))
	return Groups{
		Public: public,
		Me:     public.Group("/me", middleware.RequireAuth()),
		Admin:  public.Group("/admin", middleware.RequireAdmin(authConfig.AdminRole)),
	}
}

func BindJson(c *gin.Context, obj interface{}) error {
	if err := c.ShouldBindJSON(obj); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request format",
		})
		return err
	}
	return nil
}

func BindQuery(c *gin.Context, obj interface{}) error {
	if err := c.ShouldBindQuery(obj); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request format",
		})
		return err
	}
	return nil
}

// BindUUID parses a uuid path parameter and answers 400 when it is malformed.
func BindUUID(c *gin.Context, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(param))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid " + param,
		})
		return uuid.Nil, false
	}
	return id, true
}

func accountID(c *gin.Context) *string {
	identity, ok := middleware.GetIdentity(c)
	if !ok {
		return nil
	}
	return &identity.AccountID
}

// handleError maps domain errors to HTTP answers. Rejections are logged at Warn, anything
// unexpected at Error.
func handleError(c *gin.Context, err error, operation string) {
	log := logger.WithComponent("handler").With(
		zap.String("operation", operation),
		zap.String("request_id", middleware.GetRequestID(c)),
		zap.Error(err),
	)

	var insufficient *apperrors.InsufficientSeatsError
	switch {
	case errors.As(err, &insufficient):
		log.Warn("Insufficient seats")
		c.JSON(http.StatusConflict, gin.H{
			"error":     "Insufficient seats",
			"remaining": insufficient.Remaining,
		})
	case errors.Is(err, apperrors.ErrInsufficientSeats):
		log.Warn("Insufficient seats")
		c.JSON(http.StatusConflict, gin.H{"error": "Insufficient seats"})
	case errors.Is(err, apperrors.ErrInvalidCapacity),
		errors.Is(err, apperrors.ErrInvalidInput),
		errors.Is(err, apperrors.ErrInvalidQuantity):
		log.Warn("Invalid request")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrRouteNotFound),
		errors.Is(err, apperrors.ErrSeatNotFound),
		errors.Is(err, apperrors.ErrOrderNotFound),
		errors.Is(err, apperrors.ErrTicketNotFound),
		errors.Is(err, apperrors.ErrCustomerNotFound):
		log.Warn("Not found")
		c.JSON(http.StatusNotFound, gin.H{"error": notFoundMessage(err)})
	case errors.Is(err, apperrors.ErrRouteNotBookable),
		errors.Is(err, apperrors.ErrInvalidRouteStatus),
		errors.Is(err, apperrors.ErrInvalidOrderStatus),
		errors.Is(err, apperrors.ErrInvalidTicketStatus),
		errors.Is(err, apperrors.ErrCapacityInUse),
		errors.Is(err, apperrors.ErrHomepagePositionTaken),
		errors.Is(err, apperrors.ErrCustomerEmailTaken),
		errors.Is(err, apperrors.ErrSeatAlreadyTicketed),
		errors.Is(err, apperrors.ErrPaymentNotCompleted):
		log.Warn("Conflict")
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrInvalidSignature):
		log.Warn("Invalid webhook signature")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid signature"})
	case errors.Is(err, apperrors.ErrUnsupportedMedia):
		log.Warn("Unsupported media")
		c.JSON(http.StatusUnsupportedMediaType, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrUnauthorized):
		log.Warn("Unauthorized")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
	case errors.Is(err, apperrors.ErrForbidden):
		log.Warn("Forbidden")
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	default:
		log.Error("Unexpected error")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Internal server error",
		})
	}
}

func notFoundMessage(err error) string {
	switch {
	case errors.Is(err, apperrors.ErrRouteNotFound):
		return "Route not found"
	case errors.Is(err, apperrors.ErrOrderNotFound):
		return "Order not found"
	case errors.Is(err, apperrors.ErrTicketNotFound):
		return "Ticket not found"
	case errors.Is(err, apperrors.ErrCustomerNotFound):
		return "Customer not found"
	}
	return "Seat not found"
}

func handleSuccess(c *gin.Context, data interface{}, statusCode int) {
	if data != nil {
		c.JSON(statusCode, data)
	} else {
		c.Status(statusCode)
	}
}
