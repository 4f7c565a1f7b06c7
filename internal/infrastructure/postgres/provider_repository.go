package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/taller-compras/internal/domain/entity"
	"github.com/jhoicas/taller-compras/internal/domain/repository"
)

var (
	_ repository.ProviderRepository = (*ProviderRepo)(nil)
	_ repository.CurrencyRepository = (*CurrencyRepo)(nil)
)

// ProviderRepo lectura de proveedores.
type ProviderRepo struct {
	q Querier
}

// NewProviderRepository construye el adaptador. Pasar pool o tx (Querier).
func NewProviderRepository(q Querier) *ProviderRepo {
	return &ProviderRepo{q: q}
}

// GetByID obtiene un proveedor; (nil, nil) si no existe.
func (r *ProviderRepo) GetByID(ctx context.Context, id string) (*entity.Provider, error) {
	if !isUUID(id) {
		return nil, nil
	}
	var p entity.Provider
	var preferred *string
	err := r.q.QueryRow(ctx,
		`SELECT id, name, tax_id, preferred_currency, active FROM providers WHERE id = $1`, id,
	).Scan(&p.ID, &p.Name, &p.TaxID, &preferred, &p.Active)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get provider: %w", err)
	}
	if preferred != nil {
		p.PreferredCurrency = *preferred
	}
	return &p, nil
}

// CurrencyRepo catálogo de monedas.
type CurrencyRepo struct {
	q Querier
}

// NewCurrencyRepository construye el adaptador. Pasar pool o tx (Querier).
func NewCurrencyRepository(q Querier) *CurrencyRepo {
	return &CurrencyRepo{q: q}
}

// IsActive indica si el código existe en el catálogo y está activo.
func (r *CurrencyRepo) IsActive(ctx context.Context, code string) (bool, error) {
	var active bool
	err := r.q.QueryRow(ctx, `SELECT active FROM currencies WHERE code = $1`, code).Scan(&active)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("get currency: %w", err)
	}
	return active, nil
}
