package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"go-gin-bus-booking/config"
	"go-gin-bus-booking/internal/middleware"
	apperrors "go-gin-bus-booking/pkg/app_errors"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	InvalidJSON = `{"invalid": json}`
	adminRole   = "admin"
)

var (
	adminIdentity = &middleware.Identity{AccountID: "admin-1", Email: "ops@example.com", Role: adminRole}
	userIdentity  = &middleware.Identity{AccountID: "acct-1", Email: "user@example.com"}
)

// create JSON request body
func createJSONRequest(data interface{}) *bytes.Buffer {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return bytes.NewBuffer([]byte(""))
	}
	return bytes.NewBuffer(jsonData)
}

// create HTTP request with JSON body
func createJSONHTTPRequest(method, url string, data interface{}) *http.Request {
	req, err := http.NewRequest(method, url, createJSONRequest(data))
	if err != nil {
		return nil
	}
	req.Header.Set("Content-Type", "application/json")
	return req
}

// setupTestRouter mounts the handlers as the caller identified by identity; nil is anonymous.
func setupTestRouter(identity *middleware.Identity, handlers ...Registrar) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(func(c *gin.Context) {
		if identity != nil {
			middleware.SetIdentity(c, identity)
		}
		c.Next()
	})

	groups := NewGroups(router, config.AuthConfig{JWTSecret: "test-secret", AdminRole: adminRole})
	for _, h := range handlers {
		h.RegisterRoutes(groups)
	}
	return router
}

func serve(router *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestHandleError(t *testing.T) {
	cases := []struct {
		err  error
		code int
	}{
		{apperrors.ErrInvalidInput, http.StatusBadRequest},
		{apperrors.ErrInvalidCapacity, http.StatusBadRequest},
		{apperrors.ErrInvalidQuantity, http.StatusBadRequest},
		{apperrors.ErrRouteNotFound, http.StatusNotFound},
		{apperrors.ErrOrderNotFound, http.StatusNotFound},
		{apperrors.ErrTicketNotFound, http.StatusNotFound},
		{apperrors.ErrCustomerNotFound, http.StatusNotFound},
		{apperrors.ErrInsufficientSeats, http.StatusConflict},
		{apperrors.ErrRouteNotBookable, http.StatusConflict},
		{apperrors.ErrInvalidRouteStatus, http.StatusConflict},
		{apperrors.ErrInvalidOrderStatus, http.StatusConflict},
		{apperrors.ErrInvalidTicketStatus, http.StatusConflict},
		{apperrors.ErrCapacityInUse, http.StatusConflict},
		{apperrors.ErrHomepagePositionTaken, http.StatusConflict},
		{apperrors.ErrPaymentNotCompleted, http.StatusConflict},
		{apperrors.ErrInvalidSignature, http.StatusBadRequest},
		{apperrors.ErrUnsupportedMedia, http.StatusUnsupportedMediaType},
		{apperrors.ErrUnauthorized, http.StatusUnauthorized},
		{apperrors.ErrForbidden, http.StatusForbidden},
		{fmt.Errorf("update route: %w", apperrors.ErrRouteNotFound), http.StatusNotFound},
		{errors.New("connection refused"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.err.Error(), func(t *testing.T) {
			gin.SetMode(gin.TestMode)
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)

			handleError(c, tc.err, "Test")

			assert.Equal(t, tc.code, w.Code)
		})
	}

	t.Run("Insufficient seats reports remaining", func(t *testing.T) {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)

		handleError(c, &apperrors.InsufficientSeatsError{Requested: 5, Remaining: 2}, "Test")

		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, float64(2), decodeBody(t, w)["remaining"])
	})

	t.Run("Internal details are hidden", func(t *testing.T) {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)

		handleError(c, errors.New("pq: password authentication failed"), "Test")

		assert.Equal(t, "Internal server error", decodeBody(t, w)["error"])
	})
}
