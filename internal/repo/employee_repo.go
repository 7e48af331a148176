// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Employee
// model.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-retail-backend/internal/domain"
)

// CreateEmployee inserts a new employee row with a UUID primary key.
func CreateEmployee(ctx context.Context, db *gorm.DB, name, email, role string) (*domain.Employee, error) {
	e := &domain.Employee{
		ID:        uuid.NewString(),
		Name:      name,
		Email:     email,
		Role:      role,
		CreatedAt: time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(e).Error; err != nil {
		return nil, err
	}
	return e, nil
}

// GetEmployee fetches an employee by ID, or ErrNotFound if missing.
func GetEmployee(ctx context.Context, db *gorm.DB, id string) (*domain.Employee, error) {
	var e domain.Employee
	if err := db.WithContext(ctx).Where("id = ?", id).First(&e).Error; err != nil {
		return nil, err
	}
	return &e, nil
}

// ListEmployees returns every employee ordered by creation time descending.
func ListEmployees(ctx context.Context, db *gorm.DB) ([]domain.Employee, error) {
	var out []domain.Employee
	err := db.WithContext(ctx).
		Order("created_at DESC").
		Find(&out).Error
	return out, err
}

// FirstEmployeeByRole returns the oldest employee holding one of the given
// roles, or ErrNotFound when no such employee exists. The pipeline uses this
// to pick the low-stock alert recipient; "oldest first" keeps the choice
// deterministic.
func FirstEmployeeByRole(ctx context.Context, db *gorm.DB, roles ...string) (*domain.Employee, error) {
	var e domain.Employee
	err := db.WithContext(ctx).
		Where("role IN ?", roles).
		Order("created_at ASC, id ASC").
		First(&e).Error
	if err != nil {
		return nil, err
	}
	return &e, nil
}
