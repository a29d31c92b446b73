package httpserver

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"storefront-cart/internal/domain"
	productsvc "storefront-cart/internal/service/product"
)

type productHandler struct {
	svc productService
}

type productListResponse struct {
	Count   int              `json:"count"`
	Results []domain.Product `json:"results"`
}

func (h *productHandler) list(c *gin.Context) {
	f := productsvc.Filter{
		Category:   strings.TrimSpace(c.Query("category")),
		PriceRange: strings.ToLower(strings.TrimSpace(c.Query("priceRange"))),
		Search:     c.Query("q"),
		Sort:       strings.ToLower(strings.TrimSpace(c.Query("sort"))),
	}
	if !productsvc.ValidPriceRange(f.PriceRange) {
		writeError(c, http.StatusBadRequest, "invalid_price_range", "unknown priceRange "+f.PriceRange)
		return
	}
	if !productsvc.ValidSort(f.Sort) {
		writeError(c, http.StatusBadRequest, "invalid_sort", "unknown sort "+f.Sort)
		return
	}

	products, err := h.svc.List(c.Request.Context(), f)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, productListResponse{Count: len(products), Results: products})
}

func (h *productHandler) get(c *gin.Context) {
	p, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *productHandler) categories(c *gin.Context) {
	cats, err := h.svc.Categories(c.Request.Context())
	if err != nil {
		writeServiceError(c, err)
		return
	}
	if cats == nil {
		cats = []string{}
	}
	c.JSON(http.StatusOK, gin.H{"categories": cats})
}
