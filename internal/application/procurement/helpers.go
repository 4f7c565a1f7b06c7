package procurement

import (
	"context"
	"time"

	"github.com/jhoicas/taller-compras/pkg/logger"
)

type noopCache struct{}

func (noopCache) Invalidate(context.Context, ...string) error { return nil }

// invalidate la caché es de mejor esfuerzo: un fallo solo se registra.
func invalidate(ctx context.Context, cache CacheInvalidator, log *logger.Logger, tags ...string) {
	if cache == nil {
		return
	}
	if err := cache.Invalidate(ctx, tags...); err != nil {
		log.Warn().Err(err).Strs("tags", tags).Msg("no se pudo invalidar la caché")
	}
}

func orNop(log *logger.Logger) *logger.Logger {
	if log == nil {
		return logger.Nop()
	}
	return log
}

func orNoopCache(c CacheInvalidator) CacheInvalidator {
	if c == nil {
		return noopCache{}
	}
	return c
}

func nowUTC() time.Time { return time.Now().UTC() }
