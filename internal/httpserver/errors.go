package httpserver

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"storefront-cart/internal/domain"
	cartsvc "storefront-cart/internal/service/cart"
)

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func writeError(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, errorResponse{Error: code, Message: message})
}

// writeServiceError maps service and repository errors to HTTP responses.
func writeServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, cartsvc.ErrProductNotFound):
		writeError(c, http.StatusNotFound, "product_not_found", err.Error())
	case errors.Is(err, cartsvc.ErrOutOfStock):
		writeError(c, http.StatusConflict, "out_of_stock", err.Error())
	case errors.Is(err, cartsvc.ErrCheckoutUnavailable):
		writeError(c, http.StatusNotImplemented, "checkout_unavailable", err.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeError(c, http.StatusNotFound, "not_found", "resource not found")
	default:
		_ = c.Error(err)
		writeError(c, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}
