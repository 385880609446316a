package admin

import (
	"context"
	"fmt"

	"storefront/internal/models"
)

// SellersBackend manages seller profiles
type SellersBackend interface {
	ListSellers(ctx context.Context) ([]models.Seller, error)
	SetSellerActive(ctx context.Context, sellerID models.ID, active bool) (*models.Seller, error)
}

// Sellers is the admin seller activation table
type Sellers struct {
	backend SellersBackend
}

func NewSellers(backend SellersBackend) *Sellers {
	return &Sellers{backend: backend}
}

func (s *Sellers) List(ctx context.Context) ([]models.Seller, error) {
	sellers, err := s.backend.ListSellers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list sellers: %w", err)
	}
	return sellers, nil
}

// SetActive activates or rejects a seller and returns the backend's copy.
func (s *Sellers) SetActive(ctx context.Context, id models.ID, active bool) (*models.Seller, error) {
	seller, err := s.backend.SetSellerActive(ctx, id, active)
	if err != nil {
		return nil, fmt.Errorf("failed to update seller %s: %w", id, err)
	}
	return seller, nil
}
