package httpserver

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"storefront-cart/internal/cartstore"
	"storefront-cart/internal/metrics"
	cartsvc "storefront-cart/internal/service/cart"
)

type cartHandler struct {
	svc     cartService
	metrics *metrics.CartMetrics
	logger  zerolog.Logger
}

type addItemRequest struct {
	ProductID string `json:"productId" binding:"required"`
}

type setQuantityRequest struct {
	Quantity *int `json:"quantity" binding:"required"`
}

// mutationResponse reports a mutation and the resulting cart. Persisted is
// false when the cart changed in memory but the slot write failed.
type mutationResponse struct {
	Result    cartstore.Result `json:"result"`
	Cart      cartsvc.View     `json:"cart"`
	Persisted bool             `json:"persisted"`
}

func (h *cartHandler) get(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.Get(c.Request.Context()))
}

func (h *cartHandler) summary(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.Summary(c.Request.Context()))
}

func (h *cartHandler) line(c *gin.Context) {
	line, err := h.svc.Line(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, line)
}

func (h *cartHandler) add(c *gin.Context) {
	var req addItemRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.ProductID) == "" {
		writeError(c, http.StatusBadRequest, "invalid_body", "productId is required")
		return
	}
	res, err := h.svc.Add(c.Request.Context(), req.ProductID)
	h.respond(c, res, err)
}

func (h *cartHandler) setQuantity(c *gin.Context) {
	var req setQuantityRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Quantity == nil {
		writeError(c, http.StatusBadRequest, "invalid_body", "quantity is required")
		return
	}
	res, err := h.svc.SetQuantity(c.Request.Context(), c.Param("id"), *req.Quantity)
	if err == nil && res.Outcome == cartstore.OutcomeNoop && res.Quantity == 0 {
		h.metrics.ObserveResult(res)
		writeError(c, http.StatusNotFound, "line_not_found", "no cart line with id "+c.Param("id"))
		return
	}
	h.respond(c, res, err)
}

func (h *cartHandler) remove(c *gin.Context) {
	res, err := h.svc.Remove(c.Request.Context(), c.Param("id"))
	if err != nil && res.Outcome == "" {
		writeServiceError(c, err)
		return
	}
	h.metrics.ObserveResult(res)
	if err != nil {
		h.logger.Warn().Err(err).Str("id", res.ID).Msg("cart line removed but not persisted")
	}
	c.Status(http.StatusNoContent)
}

func (h *cartHandler) checkout(c *gin.Context) {
	if err := h.svc.Checkout(c.Request.Context()); err != nil {
		writeServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// respond renders a mutation. A store error that comes with an outcome means
// the change was applied but not persisted.
func (h *cartHandler) respond(c *gin.Context, res cartstore.Result, err error) {
	if err != nil && res.Outcome == "" {
		writeServiceError(c, err)
		return
	}
	h.metrics.ObserveResult(res)
	if err != nil {
		h.logger.Warn().Err(err).Str("id", res.ID).Str("action", string(res.Action)).Msg("cart changed but not persisted")
	}
	c.JSON(http.StatusOK, mutationResponse{
		Result:    res,
		Cart:      h.svc.Get(c.Request.Context()),
		Persisted: err == nil,
	})
}
