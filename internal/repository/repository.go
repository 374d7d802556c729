package repository

import (
	"context"

	"github.com/fjod/products-api/internal/domain"
)

// ProductRepository defines the persistence operations over the products collection.
type ProductRepository interface {
	Insert(ctx context.Context, product *domain.Product) error
	FindAll(ctx context.Context) ([]domain.Product, error)
	FindOneByTitle(ctx context.Context, title string) (*domain.Product, error)
	FindByIDAndUpdate(ctx context.Context, id string, update domain.ProductUpdate) (*domain.Product, error)
	FindByIDAndDelete(ctx context.Context, id string) (*domain.Product, error)
}
