package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	orderdomain "github.com/smallbiznis/orderdesk/internal/order/domain"
)

// Upper bounds come from the order policy, which can change at runtime, so
// only presence and sign are checked here.
type createOrderRequest struct {
	CustomerID string          `json:"customer_id" binding:"required"`
	SKUID      string          `json:"sku_id" binding:"required"`
	Quantity   int             `json:"quantity" binding:"required,gte=1"`
	Rate       decimal.Decimal `json:"rate" binding:"required,gt=0"`
}

type createOrderResponse struct {
	OrderID     string    `json:"order_id"`
	Customer    string    `json:"customer"`
	SKU         string    `json:"sku"`
	TotalAmount string    `json:"total_amount"`
	Timestamp   time.Time `json:"timestamp"`
}

type orderCustomerResponse struct {
	ID         string `json:"id"`
	CustomerID string `json:"customer_id"`
	Name       string `json:"name"`
}

type orderSKUResponse struct {
	ID                string `json:"id"`
	SKUID             string `json:"sku_id"`
	Name              string `json:"sku_name"`
	UnitOfMeasurement string `json:"unit_of_measurement"`
}

type orderResponse struct {
	ID          string                `json:"id"`
	OrderID     string                `json:"order_id"`
	Customer    orderCustomerResponse `json:"customer"`
	SKU         orderSKUResponse      `json:"sku"`
	Quantity    int                   `json:"quantity"`
	Rate        string                `json:"rate"`
	TotalAmount string                `json:"total_amount"`
	CreatedBy   string                `json:"created_by"`
	Timestamp   time.Time             `json:"timestamp"`
}

func newOrderResponse(view orderdomain.OrderView) orderResponse {
	return orderResponse{
		ID:      view.ID.String(),
		OrderID: view.OrderID,
		Customer: orderCustomerResponse{
			ID:         view.Customer.ID.String(),
			CustomerID: view.Customer.CustomerID,
			Name:       view.Customer.Name,
		},
		SKU: orderSKUResponse{
			ID:                view.SKU.ID.String(),
			SKUID:             view.SKU.SKUID,
			Name:              view.SKU.Name,
			UnitOfMeasurement: view.SKU.UnitOfMeasurement,
		},
		Quantity:    view.Quantity,
		Rate:        view.Rate.StringFixed(2),
		TotalAmount: view.TotalAmount.StringFixed(2),
		CreatedBy:   view.CreatedBy.String(),
		Timestamp:   view.Timestamp,
	}
}

func (s *Server) CreateOrder(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req createOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindError(err))
		return
	}

	resp, err := s.orderSvc.Admit(c.Request.Context(), actor, orderdomain.AdmitOrderRequest{
		CustomerRef: strings.TrimSpace(req.CustomerID),
		SKURef:      strings.TrimSpace(req.SKUID),
		Quantity:    req.Quantity,
		Rate:        req.Rate,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": createOrderResponse{
		OrderID:     resp.OrderID,
		Customer:    resp.Customer,
		SKU:         resp.SKU,
		TotalAmount: resp.TotalAmount.StringFixed(2),
		Timestamp:   resp.Timestamp,
	}})
}

func (s *Server) ListOrders(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	views, err := s.orderSvc.List(c.Request.Context(), actor)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	data := make([]orderResponse, 0, len(views))
	for _, view := range views {
		data = append(data, newOrderResponse(view))
	}
	c.JSON(http.StatusOK, gin.H{"data": data})
}
