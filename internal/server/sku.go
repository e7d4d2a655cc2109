package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	skudomain "github.com/smallbiznis/orderdesk/internal/sku/domain"
)

type createSKURequest struct {
	Name              string          `json:"sku_name" binding:"required,min=3,max=50"`
	UnitOfMeasurement string          `json:"unit_of_measurement" binding:"required,oneof=pcs kg liters"`
	TaxRate           decimal.Decimal `json:"tax_rate" binding:"gte=0,lte=100"`
}

type skuResponse struct {
	ID                string    `json:"id"`
	SKUID             string    `json:"sku_id"`
	Name              string    `json:"sku_name"`
	UnitOfMeasurement string    `json:"unit_of_measurement"`
	TaxRate           string    `json:"tax_rate"`
	CreatedBy         string    `json:"created_by"`
	CreatedAt         time.Time `json:"created_at"`
}

func newSKUResponse(sku skudomain.SKU) skuResponse {
	return skuResponse{
		ID:                sku.ID.String(),
		SKUID:             sku.SKUID,
		Name:              sku.Name,
		UnitOfMeasurement: string(sku.UnitOfMeasurement),
		TaxRate:           sku.TaxRate.StringFixed(2),
		CreatedBy:         sku.CreatedBy.String(),
		CreatedAt:         sku.CreatedAt,
	}
}

func (s *Server) CreateSKU(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req createSKURequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindError(err))
		return
	}

	sku, err := s.skuSvc.Create(c.Request.Context(), actor, skudomain.CreateSKURequest{
		Name:              strings.TrimSpace(req.Name),
		UnitOfMeasurement: strings.TrimSpace(req.UnitOfMeasurement),
		TaxRate:           req.TaxRate,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": newSKUResponse(sku)})
}

func (s *Server) ListSKUs(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	skus, err := s.skuSvc.List(c.Request.Context(), actor)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	data := make([]skuResponse, 0, len(skus))
	for _, sku := range skus {
		data = append(data, newSKUResponse(sku))
	}
	c.JSON(http.StatusOK, gin.H{"data": data})
}
