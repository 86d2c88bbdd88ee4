package services

import (
	"context"

	"kas/internal/auth"
	"kas/internal/core"
	"kas/internal/storage"
)

// RegistryService manages the category and payment method registries.
type RegistryService struct {
	storage *storage.Repository
}

func NewRegistryService(storage *storage.Repository) *RegistryService {
	return &RegistryService{storage: storage}
}

func (s *RegistryService) CreateCategory(ctx context.Context, c core.Category) (core.Category, error) {
	if _, err := auth.Treasurer(ctx); err != nil {
		return core.Category{}, err
	}
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}
	return s.storage.CreateCategory(ctx, c)
}

func (s *RegistryService) ListCategories(ctx context.Context, kind core.CategoryKind) ([]core.Category, error) {
	return s.storage.ListCategories(ctx, kind)
}

// DeleteCategory refuses while any ledger row or plan references the category.
func (s *RegistryService) DeleteCategory(ctx context.Context, id int64) error {
	if _, err := auth.Treasurer(ctx); err != nil {
		return err
	}
	return s.storage.DeleteCategory(ctx, id)
}

func (s *RegistryService) CreatePaymentMethod(ctx context.Context, m core.PaymentMethod) (core.PaymentMethod, error) {
	if _, err := auth.Treasurer(ctx); err != nil {
		return core.PaymentMethod{}, err
	}
	if err := m.Validate(); err != nil {
		return core.PaymentMethod{}, err
	}
	m.Active = true
	return s.storage.CreatePaymentMethod(ctx, m)
}

func (s *RegistryService) ListPaymentMethods(ctx context.Context) ([]core.PaymentMethod, error) {
	return s.storage.ListPaymentMethods(ctx)
}

// SetPaymentMethodActive retires or revives a method without touching history.
func (s *RegistryService) SetPaymentMethodActive(ctx context.Context, id int64, active bool) error {
	if _, err := auth.Treasurer(ctx); err != nil {
		return err
	}
	return s.storage.SetPaymentMethodActive(ctx, id, active)
}

func (s *RegistryService) DeletePaymentMethod(ctx context.Context, id int64) error {
	if _, err := auth.Treasurer(ctx); err != nil {
		return err
	}
	return s.storage.DeletePaymentMethod(ctx, id)
}
