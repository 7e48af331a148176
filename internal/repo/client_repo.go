// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Client and
// Address models.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-retail-backend/internal/domain"
)

// CreateClient inserts a new client row with a UUID primary key.
func CreateClient(ctx context.Context, db *gorm.DB, name, email string) (*domain.Client, error) {
	c := &domain.Client{
		ID:        uuid.NewString(),
		Name:      name,
		Email:     email,
		CreatedAt: time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(c).Error; err != nil {
		return nil, err
	}
	return c, nil
}

// GetClient fetches a client by ID, or ErrNotFound if missing.
func GetClient(ctx context.Context, db *gorm.DB, id string) (*domain.Client, error) {
	var c domain.Client
	if err := db.WithContext(ctx).Where("id = ?", id).First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

// ListClients returns every client ordered by creation time descending.
func ListClients(ctx context.Context, db *gorm.DB) ([]domain.Client, error) {
	var out []domain.Client
	err := db.WithContext(ctx).
		Order("created_at DESC").
		Find(&out).Error
	return out, err
}

// CreateAddress attaches a mailing address to a client.
func CreateAddress(ctx context.Context, db *gorm.DB, clientID, street, city, country, zip string) (*domain.Address, error) {
	a := &domain.Address{
		ID:        uuid.NewString(),
		ClientID:  clientID,
		Street:    street,
		City:      city,
		Country:   country,
		Zip:       zip,
		CreatedAt: time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(a).Error; err != nil {
		return nil, err
	}
	return a, nil
}

// ListAddresses returns a client's addresses in insertion order.
func ListAddresses(ctx context.Context, db *gorm.DB, clientID string) ([]domain.Address, error) {
	var out []domain.Address
	err := db.WithContext(ctx).
		Where("client_id = ?", clientID).
		Order("created_at ASC, id ASC").
		Find(&out).Error
	return out, err
}
