package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	otelkafka "github.com/Trendyol/otel-kafka-konsumer"
	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/SG-DATA-TECH-SOLUTIONS/macanudo-backend/internal/application/ports"
	"github.com/SG-DATA-TECH-SOLUTIONS/macanudo-backend/pkg/config"
)

const (
	// BatchTimeout bajo: los eventos del libro se publican uno a uno tras cada commit.
	BatchTimeout = 10 * time.Millisecond
	BatchSize    = 100

	headerEventType = "event_type"
)

// messageWriter es el subconjunto del writer instrumentado que usa el publicador.
// WriteMessage (singular) abre un span por mensaje e inyecta el contexto de traza en sus headers.
type messageWriter interface {
	WriteMessage(ctx context.Context, msg kafka.Message) error
	Close() error
}

// KafkaPublisher publica LedgerEvent como JSON en un topic de Kafka.
// La clave del mensaje es el AggregateID para conservar el orden por stock o venta.
type KafkaPublisher struct {
	writer messageWriter
	log    zerolog.Logger
}

var _ ports.EventPublisher = (*KafkaPublisher)(nil)

// NewKafkaPublisher crea el writer a partir de la configuración y lo envuelve con la
// instrumentación OpenTelemetry de otel-kafka-konsumer.
func NewKafkaPublisher(cfg config.KafkaConfig, tp trace.TracerProvider, log zerolog.Logger) (*KafkaPublisher, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("kafka: sin brokers configurados")
	}
	if cfg.Topic == "" {
		return nil, fmt.Errorf("kafka: topic vacío")
	}
	w := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: BatchTimeout,
		BatchSize:    BatchSize,
		RequiredAcks: kafka.RequireAll,
	}
	traced, err := otelkafka.NewWriter(w,
		otelkafka.WithTracerProvider(tp),
		otelkafka.WithPropagator(otel.GetTextMapPropagator()),
		otelkafka.WithAttributes(
			[]attribute.KeyValue{
				semconv.MessagingDestinationNameKey.String(cfg.Topic),
				attribute.String("messaging.kafka.client_id", cfg.ClientID),
			},
		),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka: instrumentar writer: %w", err)
	}
	return newKafkaPublisher(traced, log), nil
}

func newKafkaPublisher(w messageWriter, log zerolog.Logger) *KafkaPublisher {
	return &KafkaPublisher{writer: w, log: log.With().Str("component", "kafka_publisher").Logger()}
}

// Publish serializa y envía los eventos en orden, uno por WriteMessage.
func (p *KafkaPublisher) Publish(ctx context.Context, events ...ports.LedgerEvent) error {
	if len(events) == 0 {
		return nil
	}
	for i, ev := range events {
		msg, err := encodeMessage(ev)
		if err != nil {
			return err
		}
		if err := p.writer.WriteMessage(ctx, msg); err != nil {
			return fmt.Errorf("kafka: publicar evento %s (%d de %d): %w", ev.Type, i+1, len(events), err)
		}
	}
	p.log.Debug().Int("count", len(events)).Str("first_type", events[0].Type).Msg("eventos publicados")
	return nil
}

// Close vacía el buffer pendiente y cierra las conexiones.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

func encodeMessage(ev ports.LedgerEvent) (kafka.Message, error) {
	value, err := json.Marshal(ev)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("kafka: serializar evento %s: %w", ev.Type, err)
	}
	return kafka.Message{
		Key:     []byte(ev.AggregateID),
		Value:   value,
		Headers: []kafka.Header{{Key: headerEventType, Value: []byte(ev.Type)}},
		Time:    ev.OccurredAt,
	}, nil
}
