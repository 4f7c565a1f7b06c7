package repository

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/taller-compras/internal/domain/entity"
)

// ProductRepository define el puerto de persistencia para Product (DIP).
type ProductRepository interface {
	Create(ctx context.Context, product *entity.Product) error
	GetByID(ctx context.Context, id string) (*entity.Product, error)
	UpdateCost(ctx context.Context, productID string, cost decimal.Decimal) error
	// ListIDs devuelve todos los IDs en orden ascendente.
	ListIDs(ctx context.Context) ([]string, error)
}
