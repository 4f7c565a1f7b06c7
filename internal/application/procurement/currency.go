package procurement

import (
	"context"
	"strings"

	"github.com/jhoicas/taller-compras/internal/domain/repository"
	"github.com/jhoicas/taller-compras/pkg/logger"
)

var _ CurrencyValidator = (*CatalogCurrencyValidator)(nil)

// CatalogCurrencyValidator valida contra la tabla de monedas.
type CatalogCurrencyValidator struct {
	repo     repository.CurrencyRepository
	fallback string
	log      *logger.Logger
}

// NewCatalogCurrencyValidator construye el validador con la moneda por defecto.
func NewCatalogCurrencyValidator(repo repository.CurrencyRepository, defaultCurrency string, log *logger.Logger) *CatalogCurrencyValidator {
	return &CatalogCurrencyValidator{repo: repo, fallback: normalizeCurrency(defaultCurrency), log: orNop(log)}
}

// ValidateCurrency un error del catálogo cuenta como moneda no válida (se registra).
func (v *CatalogCurrencyValidator) ValidateCurrency(ctx context.Context, code string) (string, bool) {
	code = normalizeCurrency(code)
	if code == "" {
		return "", false
	}
	ok, err := v.repo.IsActive(ctx, code)
	if err != nil {
		v.log.Warn().Err(err).Str("currency", code).Msg("catálogo de monedas no disponible")
		return code, false
	}
	return code, ok
}

// DefaultCurrency moneda por defecto.
func (v *CatalogCurrencyValidator) DefaultCurrency() string { return v.fallback }

// resolveCurrency primer candidato válido en orden; si ninguno lo es, la moneda por defecto.
func resolveCurrency(ctx context.Context, v CurrencyValidator, candidates ...string) string {
	for _, c := range candidates {
		if normalizeCurrency(c) == "" {
			continue
		}
		if code, ok := v.ValidateCurrency(ctx, c); ok {
			return code
		}
	}
	return v.DefaultCurrency()
}

func normalizeCurrency(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
