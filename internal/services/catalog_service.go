// Package services – CatalogService
//
// This file implements catalog management: creating and reading products,
// clients, employees, and client addresses. It validates and normalizes
// inputs and enforces the catalog-time constraint that a product's sell
// price must not fall below its buy price.
package services

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/tbourn/go-retail-backend/internal/domain"
	"github.com/tbourn/go-retail-backend/internal/repo"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// CatalogService manages the product/client/employee catalog.
type CatalogService struct {
	DB *gorm.DB

	// CategoryLocale selects the casing rules for category normalization.
	CategoryLocale language.Tag
}

// NewCatalogService constructs a CatalogService with English casing rules.
func NewCatalogService(db *gorm.DB) *CatalogService {
	return &CatalogService{DB: db, CategoryLocale: language.English}
}

// CreateProduct validates, normalizes, and persists a new product.
// Sell price below buy price, negative prices, or negative initial stock are
// rejected with ErrConstraintViolation.
func (s *CatalogService) CreateProduct(ctx context.Context, name, category string, buy, sell decimal.Decimal, stock int) (*domain.Product, error) {
	name = collapseSpaces(name)
	if name == "" {
		return nil, ErrConstraintViolation
	}
	if buy.IsNegative() || sell.IsNegative() || stock < 0 {
		return nil, ErrConstraintViolation
	}
	if sell.LessThan(buy) {
		return nil, ErrConstraintViolation
	}
	return repo.CreateProduct(ctx, s.DB, name, s.normalizeCategory(category), buy, sell, stock)
}

// GetProduct fetches a product or ErrProductNotFound.
func (s *CatalogService) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	p, err := repo.GetProduct(ctx, s.DB, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}
	return p, nil
}

// ListProducts returns the catalog in inventory-report order.
func (s *CatalogService) ListProducts(ctx context.Context) ([]domain.Product, error) {
	return repo.ListProducts(ctx, s.DB)
}

// CreateClient validates and persists a new client.
func (s *CatalogService) CreateClient(ctx context.Context, name, email string) (*domain.Client, error) {
	name = collapseSpaces(name)
	email = strings.ToLower(strings.TrimSpace(email))
	if name == "" || email == "" {
		return nil, ErrConstraintViolation
	}
	return repo.CreateClient(ctx, s.DB, name, email)
}

// GetClient fetches a client or ErrClientNotFound.
func (s *CatalogService) GetClient(ctx context.Context, id string) (*domain.Client, error) {
	c, err := repo.GetClient(ctx, s.DB, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrClientNotFound
		}
		return nil, err
	}
	return c, nil
}

// ListClients returns all clients, newest first.
func (s *CatalogService) ListClients(ctx context.Context) ([]domain.Client, error) {
	return repo.ListClients(ctx, s.DB)
}

// CreateEmployee validates and persists a new employee. Roles are stored
// lowercased so alert-recipient lookups remain exact matches.
func (s *CatalogService) CreateEmployee(ctx context.Context, name, email, role string) (*domain.Employee, error) {
	name = collapseSpaces(name)
	email = strings.ToLower(strings.TrimSpace(email))
	role = strings.ToLower(strings.TrimSpace(role))
	if name == "" || email == "" || role == "" {
		return nil, ErrConstraintViolation
	}
	return repo.CreateEmployee(ctx, s.DB, name, email, role)
}

// GetEmployee fetches an employee or ErrEmployeeNotFound.
func (s *CatalogService) GetEmployee(ctx context.Context, id string) (*domain.Employee, error) {
	e, err := repo.GetEmployee(ctx, s.DB, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEmployeeNotFound
		}
		return nil, err
	}
	return e, nil
}

// ListEmployees returns all employees, newest first.
func (s *CatalogService) ListEmployees(ctx context.Context) ([]domain.Employee, error) {
	return repo.ListEmployees(ctx, s.DB)
}

// AddAddress attaches an address to an existing client.
func (s *CatalogService) AddAddress(ctx context.Context, clientID, street, city, country, zip string) (*domain.Address, error) {
	if _, err := s.GetClient(ctx, clientID); err != nil {
		return nil, err
	}
	street, city, country, zip = collapseSpaces(street), collapseSpaces(city), collapseSpaces(country), strings.TrimSpace(zip)
	if street == "" || city == "" || country == "" {
		return nil, ErrConstraintViolation
	}
	return repo.CreateAddress(ctx, s.DB, clientID, street, city, country, zip)
}

// normalizeCategory trims, collapses whitespace, and title-cases a category
// ("home  apPliances" -> "Home Appliances"); empty input becomes
// "Uncategorized".
func (s *CatalogService) normalizeCategory(category string) string {
	category = collapseSpaces(category)
	if category == "" {
		return "Uncategorized"
	}
	tag := s.CategoryLocale
	if tag == language.Und {
		tag = language.English
	}
	return cases.Title(tag).String(strings.ToLower(category))
}

// collapseSpaces trims and collapses consecutive whitespace to one space.
func collapseSpaces(s string) string {
	return whitespaceRE.ReplaceAllString(strings.TrimSpace(s), " ")
}

// whitespaceRE collapses consecutive whitespace to a single space.
var whitespaceRE = regexp.MustCompile(`\s+`)
