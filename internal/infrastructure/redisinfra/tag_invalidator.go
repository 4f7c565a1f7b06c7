package redisinfra

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/jhoicas/taller-compras/internal/application/procurement"
)

var _ procurement.CacheInvalidator = (*TagInvalidator)(nil)

// TagInvalidator invalida listados cacheados incrementando la versión de cada etiqueta.
// Los lectores arman sus claves con la versión vigente, así que las entradas viejas quedan huérfanas.
type TagInvalidator struct {
	client redis.UniversalClient
}

// NewTagInvalidator construye el invalidador.
func NewTagInvalidator(client redis.UniversalClient) *TagInvalidator {
	return &TagInvalidator{client: client}
}

// TagKey clave del contador de versión de una etiqueta.
func TagKey(tag string) string {
	return "cache:tag:" + tag
}

// Invalidate incrementa los contadores de todas las etiquetas en un solo pipeline.
func (t *TagInvalidator) Invalidate(ctx context.Context, tags ...string) error {
	if len(tags) == 0 {
		return nil
	}
	_, err := t.client.Pipelined(ctx, func(p redis.Pipeliner) error {
		for _, tag := range tags {
			p.Incr(ctx, TagKey(tag))
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis: invalidar %v: %w", tags, err)
	}
	return nil
}

// Version versión vigente de una etiqueta (0 si nunca se invalidó).
func (t *TagInvalidator) Version(ctx context.Context, tag string) (int64, error) {
	n, err := t.client.Get(ctx, TagKey(tag)).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("redis: leer %s: %w", TagKey(tag), err)
	}
	return n, nil
}
