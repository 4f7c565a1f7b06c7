package redisinfra

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"

	"github.com/jhoicas/taller-compras/internal/application/procurement"
	"github.com/jhoicas/taller-compras/internal/domain"
	"github.com/jhoicas/taller-compras/pkg/logger"
)

var _ procurement.OrderLocker = (*ReceiptLocker)(nil)

const defaultLockTTL = 30 * time.Second

// ReceiptLocker serializa las recepciones de una misma OC entre instancias con bsm/redislock.
// Quien no obtiene el candado reintenta con backoff lineal hasta agotar el contexto o los reintentos.
type ReceiptLocker struct {
	locker  *redislock.Client
	ttl     time.Duration
	retries int
	backoff time.Duration
	log     *logger.Logger
}

// NewReceiptLocker construye el candado. ttl <= 0 toma 30 s.
func NewReceiptLocker(client redis.UniversalClient, ttl time.Duration, log *logger.Logger) *ReceiptLocker {
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	if log == nil {
		log = logger.Nop()
	}
	return &ReceiptLocker{
		locker:  redislock.New(client),
		ttl:     ttl,
		retries: 50,
		backoff: 100 * time.Millisecond,
		log:     log.Component("receipt_locker"),
	}
}

// LockKey clave del candado de una OC.
func LockKey(orderID string) string {
	return "lock:po:" + orderID
}

// Lock obtiene el candado de la OC.
//
// Retorna:
//   - (unlock, nil)        si se obtuvo; unlock libera el candado y es idempotente.
//   - domain.ErrConflict   si otra recepción lo mantiene tras agotar los reintentos.
func (l *ReceiptLocker) Lock(ctx context.Context, orderID string) (func(), error) {
	key := LockKey(orderID)
	lock, err := l.locker.Obtain(ctx, key, l.ttl, &redislock.Options{
		RetryStrategy: redislock.LimitRetry(redislock.LinearBackoff(l.backoff), l.retries),
	})
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, fmt.Errorf("%w: la orden %s tiene otra recepción en curso", domain.ErrConflict, orderID)
	}
	if err != nil {
		return nil, fmt.Errorf("redis: obtener candado %s: %w", key, err)
	}

	released := false
	return func() {
		if released {
			return
		}
		released = true
		// El contexto de la petición puede estar cancelado; liberar igual.
		relCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := lock.Release(relCtx); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
			l.log.Warn().Err(err).Str("key", key).Msg("no se pudo liberar el candado")
		}
	}, nil
}
