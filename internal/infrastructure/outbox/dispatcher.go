// Package outbox entrega en segundo plano los eventos pendientes del outbox transaccional.
package outbox

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jhoicas/taller-compras/internal/application/procurement"
	"github.com/jhoicas/taller-compras/internal/domain/entity"
	"github.com/jhoicas/taller-compras/internal/domain/event"
	"github.com/jhoicas/taller-compras/internal/domain/repository"
	"github.com/jhoicas/taller-compras/pkg/logger"
)

// Config intervalos y tamaño de lote del despachador.
type Config struct {
	PollInterval time.Duration
	BatchSize    int
}

// DefaultConfig valores por defecto.
func DefaultConfig() Config {
	return Config{PollInterval: 10 * time.Second, BatchSize: 50}
}

// BatchResult conteo de un ciclo de despacho.
type BatchResult struct {
	Sent   int
	Failed int
	Dead   int
}

// Dispatcher reintenta los eventos PENDING/FAILED vencidos contra el JobCostHook.
type Dispatcher struct {
	tx   procurement.TxRunner
	hook procurement.JobCostHook
	cfg  Config
	log  *logger.Logger
	now  func() time.Time

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewDispatcher construye el despachador. Valores no positivos de cfg toman DefaultConfig.
func NewDispatcher(tx procurement.TxRunner, hook procurement.JobCostHook, cfg Config, log *logger.Logger) *Dispatcher {
	def := DefaultConfig()
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = def.PollInterval
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = def.BatchSize
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Dispatcher{
		tx:   tx,
		hook: hook,
		cfg:  cfg,
		log:  log.Component("outbox"),
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// Start lanza el ciclo de sondeo hasta que ctx se cancele o se llame Stop.
func (d *Dispatcher) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	d.wg.Add(1)
	go d.loop(ctx)

	d.log.Info().
		Int("batch_size", d.cfg.BatchSize).
		Dur("poll_interval", d.cfg.PollInterval).
		Msg("despachador de outbox iniciado")
}

// Stop detiene el ciclo y espera al lote en curso, como máximo hasta que ctx venza.
func (d *Dispatcher) Stop(ctx context.Context) error {
	if d.cancel != nil {
		d.cancel()
	}

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		d.log.Info().Msg("despachador de outbox detenido")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Dispatcher) loop(ctx context.Context) {
	defer d.wg.Done()

	ticker := time.NewTicker(d.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			res, err := d.RunOnce(ctx)
			if err != nil {
				if ctx.Err() == nil {
					d.log.Error().Err(err).Msg("lote de outbox falló")
				}
				continue
			}
			if res.Sent+res.Failed+res.Dead > 0 {
				d.log.Info().Int("sent", res.Sent).Int("failed", res.Failed).Int("dead", res.Dead).Msg("lote de outbox procesado")
			}
		}
	}
}

// RunOnce procesa un lote de eventos vencidos dentro de una transacción.
// Los eventos tomados quedan bloqueados para otras instancias hasta el commit.
func (d *Dispatcher) RunOnce(ctx context.Context) (BatchResult, error) {
	var res BatchResult
	err := d.tx.Run(ctx, func(s repository.Store) error {
		now := d.now()
		due, err := s.Outbox.ListDue(ctx, now, d.cfg.BatchSize)
		if err != nil {
			return err
		}
		for _, ev := range due {
			if derr := d.deliver(ctx, ev); derr != nil {
				ev.MarkFailed(derr.Error(), now)
				if ev.Status == entity.OutboxDead {
					res.Dead++
					d.log.Warn().
						Str("event_id", ev.ID).
						Str("type", ev.Type).
						Int("attempts", ev.Attempts).
						Str("last_error", ev.LastError).
						Msg("evento de outbox agotó sus intentos")
				} else {
					res.Failed++
				}
			} else {
				ev.MarkSent(now)
				res.Sent++
			}
			if err := s.Outbox.Update(ctx, ev); err != nil {
				return fmt.Errorf("outbox: actualizar evento %s: %w", ev.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return BatchResult{}, err
	}
	return res, nil
}

func (d *Dispatcher) deliver(ctx context.Context, ev *entity.OutboxEvent) error {
	switch ev.Type {
	case event.TypeJobCostRecompute:
		p, err := event.DecodeJobCostRecompute(ev.Version, ev.Payload)
		if err != nil {
			return err
		}
		return d.hook.RecomputeLinkedJobCosts(ctx, p.JobID)
	default:
		return fmt.Errorf("tipo de evento desconocido: %s", ev.Type)
	}
}
