package events

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/SG-DATA-TECH-SOLUTIONS/macanudo-backend/internal/application/ports"
)

// LogPublisher registra los eventos en el log cuando Kafka está deshabilitado.
type LogPublisher struct {
	log zerolog.Logger
}

var _ ports.EventPublisher = (*LogPublisher)(nil)

func NewLogPublisher(log zerolog.Logger) *LogPublisher {
	return &LogPublisher{log: log}
}

func (p *LogPublisher) Publish(_ context.Context, events ...ports.LedgerEvent) error {
	for _, ev := range events {
		p.log.Debug().
			Str("event_type", ev.Type).
			Str("aggregate_id", ev.AggregateID).
			Str("actor_id", ev.ActorID).
			Msg("evento del libro")
	}
	return nil
}
