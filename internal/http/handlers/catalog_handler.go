// Catalog HTTP handlers.
//
// This file exposes REST endpoints for the catalog entities that orders
// reference: products, clients (with addresses), and employees. These are
// plain create/get/list surfaces; the interesting write semantics all live
// on the orders side.
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tbourn/go-retail-backend/internal/services"
)

//
// DTOs
//

// CreateProductRequest is the JSON payload for creating a product.
type CreateProductRequest struct {
	Name     string          `json:"name" binding:"required"`
	Category string          `json:"category"`
	BuyPrice decimal.Decimal `json:"buy_price"`
	// SellPrice must be at least BuyPrice.
	SellPrice decimal.Decimal `json:"sell_price"`
	Stock     int             `json:"stock"`
}

// CreateClientRequest is the JSON payload for creating a client.
type CreateClientRequest struct {
	Name  string `json:"name" binding:"required"`
	Email string `json:"email" binding:"required,email"`
}

// CreateEmployeeRequest is the JSON payload for creating an employee.
type CreateEmployeeRequest struct {
	Name  string `json:"name" binding:"required"`
	Email string `json:"email" binding:"required,email"`
	Role  string `json:"role" binding:"required"`
}

// AddAddressRequest is the JSON payload for attaching an address to a client.
type AddAddressRequest struct {
	Street  string `json:"street" binding:"required"`
	City    string `json:"city" binding:"required"`
	Country string `json:"country" binding:"required"`
	Zip     string `json:"zip"`
}

// failCatalogErr maps catalog service errors onto the HTTP error taxonomy.
func failCatalogErr(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrConstraintViolation):
		fail(c, http.StatusUnprocessableEntity, ErrCodeConstraintViolation, "invalid catalog values")
	case errors.Is(err, services.ErrProductNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "product not found")
	case errors.Is(err, services.ErrClientNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "client not found")
	case errors.Is(err, services.ErrEmployeeNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "employee not found")
	default:
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
	}
}

//
// Products
//

// CreateProduct creates a catalog product.
func (h *Handlers) CreateProduct(c *gin.Context) {
	var req CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "name required")
		return
	}
	p, err := h.catSvc.CreateProduct(c.Request.Context(), req.Name, req.Category, req.BuyPrice, req.SellPrice, req.Stock)
	if err != nil {
		failCatalogErr(c, err)
		return
	}
	ok(c, http.StatusCreated, p)
}

// GetProduct fetches one product by ID.
func (h *Handlers) GetProduct(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "product id must be a UUID")
		return
	}
	p, err := h.catSvc.GetProduct(c.Request.Context(), id)
	if err != nil {
		failCatalogErr(c, err)
		return
	}
	ok(c, http.StatusOK, p)
}

// ListProducts returns the catalog ordered by ascending stock then category.
func (h *Handlers) ListProducts(c *gin.Context) {
	items, err := h.catSvc.ListProducts(c.Request.Context())
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, items)
}

//
// Clients
//

// CreateClient creates a client.
func (h *Handlers) CreateClient(c *gin.Context) {
	var req CreateClientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "name and valid email required")
		return
	}
	cl, err := h.catSvc.CreateClient(c.Request.Context(), req.Name, req.Email)
	if err != nil {
		failCatalogErr(c, err)
		return
	}
	ok(c, http.StatusCreated, cl)
}

// GetClient fetches one client by ID.
func (h *Handlers) GetClient(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "client id must be a UUID")
		return
	}
	cl, err := h.catSvc.GetClient(c.Request.Context(), id)
	if err != nil {
		failCatalogErr(c, err)
		return
	}
	ok(c, http.StatusOK, cl)
}

// ListClients returns all clients.
func (h *Handlers) ListClients(c *gin.Context) {
	items, err := h.catSvc.ListClients(c.Request.Context())
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, items)
}

// AddClientAddress attaches an address to a client.
func (h *Handlers) AddClientAddress(c *gin.Context) {
	cid := c.Param("id")
	if _, err := uuid.Parse(cid); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "client id must be a UUID")
		return
	}
	var req AddAddressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "street, city and country required")
		return
	}
	a, err := h.catSvc.AddAddress(c.Request.Context(), cid, req.Street, req.City, req.Country, req.Zip)
	if err != nil {
		failCatalogErr(c, err)
		return
	}
	ok(c, http.StatusCreated, a)
}

//
// Employees
//

// CreateEmployee creates an employee.
func (h *Handlers) CreateEmployee(c *gin.Context) {
	var req CreateEmployeeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "name, valid email and role required")
		return
	}
	e, err := h.catSvc.CreateEmployee(c.Request.Context(), req.Name, req.Email, req.Role)
	if err != nil {
		failCatalogErr(c, err)
		return
	}
	ok(c, http.StatusCreated, e)
}

// GetEmployee fetches one employee by ID.
func (h *Handlers) GetEmployee(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "employee id must be a UUID")
		return
	}
	e, err := h.catSvc.GetEmployee(c.Request.Context(), id)
	if err != nil {
		failCatalogErr(c, err)
		return
	}
	ok(c, http.StatusOK, e)
}

// ListEmployees returns all employees.
func (h *Handlers) ListEmployees(c *gin.Context) {
	items, err := h.catSvc.ListEmployees(c.Request.Context())
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, items)
}
