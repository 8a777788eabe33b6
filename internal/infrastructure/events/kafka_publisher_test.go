package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/SG-DATA-TECH-SOLUTIONS/macanudo-backend/internal/application/ports"
	"github.com/SG-DATA-TECH-SOLUTIONS/macanudo-backend/pkg/config"
)

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	failAt int // 1-based; 0 = nunca
	closed bool
}

func (w *fakeWriter) WriteMessage(_ context.Context, msg kafka.Message) error {
	if w.err != nil && (w.failAt == 0 || len(w.msgs)+1 == w.failAt) {
		return w.err
	}
	w.msgs = append(w.msgs, msg)
	return nil
}

func header(msg kafka.Message, key string) string {
	for _, h := range msg.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func TestKafkaPublisher_Publish_CodificaClaveYHeaders(t *testing.T) {
	w := &fakeWriter{}
	p := newKafkaPublisher(w, zerolog.Nop())

	ev := ports.LedgerEvent{
		Type:        ports.EventStockAdjusted,
		AggregateID: "stock-1",
		ActorID:     "user-1",
		Payload:     map[string]any{"resulting": "7"},
		OccurredAt:  time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	require.NoError(t, p.Publish(context.Background(), ev))
	require.Len(t, w.msgs, 1)

	msg := w.msgs[0]
	assert.Equal(t, "stock-1", string(msg.Key))
	assert.Equal(t, ports.EventStockAdjusted, header(msg, headerEventType))
	assert.True(t, msg.Time.Equal(ev.OccurredAt))

	var decoded ports.LedgerEvent
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, ev.Type, decoded.Type)
	assert.Equal(t, "7", decoded.Payload["resulting"])
}

func TestKafkaPublisher_Publish_ConservaElOrden(t *testing.T) {
	w := &fakeWriter{}
	p := newKafkaPublisher(w, zerolog.Nop())

	require.NoError(t, p.Publish(context.Background(),
		ports.LedgerEvent{Type: ports.EventSaleCreated, AggregateID: "s1"},
		ports.LedgerEvent{Type: ports.EventStockLow, AggregateID: "a"},
		ports.LedgerEvent{Type: ports.EventStockLow, AggregateID: "b"},
	))
	require.Len(t, w.msgs, 3)
	assert.Equal(t, "s1", string(w.msgs[0].Key))
	assert.Equal(t, "a", string(w.msgs[1].Key))
	assert.Equal(t, "b", string(w.msgs[2].Key))
}

func TestKafkaPublisher_Publish_SeDetieneEnElPrimerFallo(t *testing.T) {
	w := &fakeWriter{err: errors.New("broker caído"), failAt: 2}
	p := newKafkaPublisher(w, zerolog.Nop())

	err := p.Publish(context.Background(),
		ports.LedgerEvent{Type: ports.EventSaleCreated, AggregateID: "s1"},
		ports.LedgerEvent{Type: ports.EventStockLow, AggregateID: "a"},
		ports.LedgerEvent{Type: ports.EventStockLow, AggregateID: "b"},
	)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2 de 3")
	assert.Len(t, w.msgs, 1)
}

func TestKafkaPublisher_Publish_SinEventosNoEscribe(t *testing.T) {
	w := &fakeWriter{err: errors.New("no debería llamarse")}
	p := newKafkaPublisher(w, zerolog.Nop())
	assert.NoError(t, p.Publish(context.Background()))
}

func TestKafkaPublisher_Publish_PropagaErrorDelWriter(t *testing.T) {
	w := &fakeWriter{err: errors.New("broker caído")}
	p := newKafkaPublisher(w, zerolog.Nop())

	err := p.Publish(context.Background(), ports.LedgerEvent{Type: ports.EventSaleCreated, AggregateID: "s1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broker caído")
}

func TestKafkaPublisher_Close(t *testing.T) {
	w := &fakeWriter{}
	p := newKafkaPublisher(w, zerolog.Nop())
	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestNewKafkaPublisher_ValidaConfig(t *testing.T) {
	tp := noop.NewTracerProvider()
	_, err := NewKafkaPublisher(config.KafkaConfig{Topic: "t"}, tp, zerolog.Nop())
	assert.Error(t, err)

	_, err = NewKafkaPublisher(config.KafkaConfig{Brokers: []string{"localhost:9092"}}, tp, zerolog.Nop())
	assert.Error(t, err)
}

func TestNewKafkaPublisher_EnvuelveWriterInstrumentado(t *testing.T) {
	cfg := config.KafkaConfig{Brokers: []string{"localhost:9092"}, Topic: "ledger-events", ClientID: "macanudo"}
	p, err := NewKafkaPublisher(cfg, noop.NewTracerProvider(), zerolog.Nop())
	require.NoError(t, err)
	require.NotNil(t, p.writer)
	_, isFake := p.writer.(*fakeWriter)
	assert.False(t, isFake)
	// el writer de kafka-go conecta de forma perezosa; cerrar sin publicar no toca la red
	assert.NoError(t, p.Close())
}
