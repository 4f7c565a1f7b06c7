package procurement

import (
	"context"
	"sort"

	"github.com/jhoicas/taller-compras/internal/domain/inventory"
	"github.com/jhoicas/taller-compras/internal/domain/repository"
	"github.com/jhoicas/taller-compras/pkg/logger"
)

// RecalculateResult resultado del recálculo masivo.
type RecalculateResult struct {
	UpdatedCount int
	SkippedCount int // productos sin recepciones de compra
}

// CostRecalculator reconstruye el costo promedio de todos los productos desde el libro de movimientos.
// Uso: migraciones o cambios de fórmula; la recepción normal no pasa por aquí.
type CostRecalculator struct {
	tx    TxRunner
	guard PermissionGuard
	cache CacheInvalidator
	log   *logger.Logger
}

// NewCostRecalculator construye el caso de uso.
func NewCostRecalculator(tx TxRunner, guard PermissionGuard, cache CacheInvalidator, log *logger.Logger) *CostRecalculator {
	return &CostRecalculator{tx: tx, guard: guard, cache: orNoopCache(cache), log: orNop(log).Component("cost_recalculator")}
}

// RecalculateAll aplica a cada producto la misma fórmula de la recepción sobre sus últimas
// inventory.CostWindowSize recepciones de compra. Productos sin recepciones se omiten.
func (uc *CostRecalculator) RecalculateAll(ctx context.Context) (*RecalculateResult, error) {
	if err := uc.guard.AssertCanWritePurchases(ctx); err != nil {
		return nil, err
	}
	res := &RecalculateResult{}
	err := uc.tx.Run(ctx, func(s repository.Store) error {
		*res = RecalculateResult{}
		ids, err := s.Products.ListIDs(ctx)
		if err != nil {
			return err
		}
		sort.Strings(ids)
		for _, id := range ids {
			window, err := s.Movements.ListRecentPurchaseReceipts(ctx, id, inventory.CostWindowSize)
			if err != nil {
				return err
			}
			if len(window) == 0 {
				res.SkippedCount++
				continue
			}
			cost := inventory.WeightedAverageCost(costSamples(window), nil)
			if err := s.Products.UpdateCost(ctx, id, cost); err != nil {
				return err
			}
			res.UpdatedCount++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	uc.log.Info().Int("updated", res.UpdatedCount).Int("skipped", res.SkippedCount).Msg("costos recalculados")
	invalidate(ctx, uc.cache, uc.log, CacheTagProducts)
	return res, nil
}
