package entity

import "time"

// OutboxStatus estado de entrega de un evento del outbox.
type OutboxStatus string

const (
	OutboxPending OutboxStatus = "PENDING"
	OutboxSent    OutboxStatus = "SENT"
	OutboxFailed  OutboxStatus = "FAILED"
	OutboxDead    OutboxStatus = "DEAD"
)

// DefaultOutboxMaxAttempts intentos antes de pasar a DEAD.
const DefaultOutboxMaxAttempts = 5

// OutboxEvent notificación posterior al commit, escrita en la misma transacción que la operación.
// Payload se interpreta según (Type, Version); ver internal/domain/event.
type OutboxEvent struct {
	ID            string
	Type          string
	Version       int
	AggregateID   string
	Payload       []byte
	Status        OutboxStatus
	Attempts      int
	MaxAttempts   int
	LastError     string
	NextAttemptAt time.Time
	CreatedAt     time.Time
	SentAt        *time.Time
}

// MarkSent marca el evento como entregado.
func (e *OutboxEvent) MarkSent(now time.Time) {
	e.Status = OutboxSent
	e.SentAt = &now
	e.LastError = ""
}

// MarkFailed registra un intento fallido con backoff exponencial (1s, 2s, 4s...).
func (e *OutboxEvent) MarkFailed(errMsg string, now time.Time) {
	e.Attempts++
	e.LastError = errMsg
	max := e.MaxAttempts
	if max <= 0 {
		max = DefaultOutboxMaxAttempts
	}
	if e.Attempts >= max {
		e.Status = OutboxDead
		return
	}
	e.Status = OutboxFailed
	e.NextAttemptAt = now.Add(time.Second * time.Duration(1<<uint(e.Attempts-1)))
}
