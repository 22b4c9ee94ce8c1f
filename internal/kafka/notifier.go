package kafka

import (
	"context"
	"time"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
)

// Notifier publish event notifikasi fire-and-forget lewat satu topic.
// Consumer milih event yang dia pedulikan via header/event_type.
type Notifier struct {
	P       *Producer
	Service string
}

func (n *Notifier) Notify(ctx context.Context, event, correlationID string, payload any) {
	ev := Envelope{
		EventID:       uuid.NewString(),
		EventType:     event,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      n.Service,
		CorrelationID: correlationID,
		Payload:       MustMarshal(payload),
	}
	n.P.Publish(PartitionKey(correlationID), MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(event)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}
