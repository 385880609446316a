package api

import (
	"errors"
	"net/http"

	"storefront/internal/admin"
	"storefront/internal/apiclient"
	"storefront/internal/cart"
	"storefront/internal/catalog"
	"storefront/internal/checkout"
	"storefront/internal/models"
	"storefront/internal/util"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// statusFor maps an operation error to the response status
func statusFor(err error) int {
	var apiErr *apiclient.APIError
	var userErr models.UserError

	switch {
	case errors.Is(err, cart.ErrNotSignedIn), errors.Is(err, checkout.ErrNotSignedIn):
		return http.StatusUnauthorized
	case errors.Is(err, catalog.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, cart.ErrLineNotFound), errors.Is(err, admin.ErrUnknownUser):
		return http.StatusNotFound
	case errors.Is(err, checkout.ErrStaleSnapshot):
		return http.StatusGone
	case errors.Is(err, checkout.ErrNoSnapshot),
		errors.Is(err, checkout.ErrInvalidSnapshot),
		errors.Is(err, checkout.ErrEmptyCart),
		errors.Is(err, admin.ErrNotPending),
		errors.Is(err, catalog.ErrOutOfStock):
		return http.StatusConflict
	case errors.Is(err, checkout.ErrNoAddress),
		errors.Is(err, cart.ErrInvalidQuantity),
		errors.Is(err, admin.ErrInvalidRole):
		return http.StatusUnprocessableEntity
	case errors.As(err, &apiErr):
		return apiErr.StatusCode
	case errors.Is(err, apiclient.ErrTransport):
		return http.StatusBadGateway
	case errors.As(err, &userErr):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// respondError writes {"error": fallback, "messages": [...]}. Backend and
// precondition messages pass through; anything else shows only fallback.
func respondError(c *gin.Context, err error, fallback string) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		util.Component("api").Error("Request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", status),
			zap.Error(err))
	}
	c.JSON(status, gin.H{
		"error":    fallback,
		"messages": apiclient.Messages(err, fallback),
	})
}

func respondBadRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{
		"error":    "Invalid request body",
		"messages": []string{err.Error()},
	})
}
