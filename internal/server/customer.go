package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	customerdomain "github.com/smallbiznis/orderdesk/internal/customer/domain"
)

type createCustomerRequest struct {
	Name    string `json:"name" binding:"required,min=3,max=30"`
	Address string `json:"address" binding:"required,min=3,max=100"`
}

type customerResponse struct {
	ID         string    `json:"id"`
	CustomerID string    `json:"customer_id"`
	Name       string    `json:"name"`
	Address    string    `json:"address"`
	CreatedBy  string    `json:"created_by"`
	CreatedAt  time.Time `json:"created_at"`
}

func newCustomerResponse(customer customerdomain.Customer) customerResponse {
	return customerResponse{
		ID:         customer.ID.String(),
		CustomerID: customer.CustomerID,
		Name:       customer.Name,
		Address:    customer.Address,
		CreatedBy:  customer.CreatedBy.String(),
		CreatedAt:  customer.CreatedAt,
	}
}

func (s *Server) CreateCustomer(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req createCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindError(err))
		return
	}

	customer, err := s.customerSvc.Create(c.Request.Context(), actor, customerdomain.CreateCustomerRequest{
		Name:    strings.TrimSpace(req.Name),
		Address: strings.TrimSpace(req.Address),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": newCustomerResponse(customer)})
}

func (s *Server) ListCustomers(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	customers, err := s.customerSvc.List(c.Request.Context(), actor)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	data := make([]customerResponse, 0, len(customers))
	for _, customer := range customers {
		data = append(data, newCustomerResponse(customer))
	}
	c.JSON(http.StatusOK, gin.H{"data": data})
}
