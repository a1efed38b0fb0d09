package alerts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	kafkax "github.com/ariefcatur/go-rental-scheduling/internal/kafka"
	"github.com/ariefcatur/go-rental-scheduling/internal/redisx"
	"github.com/ariefcatur/go-rental-scheduling/internal/scheduling"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
)

// Service consumes conflict events and records alerts from them.
type Service struct {
	Recorder    *Recorder
	Redis       *redis.Client
	ServiceName string
}

// HandleConflictDetected is installed as the consumer handler. The consumer
// retries any returned error, so messages that can never succeed (malformed,
// invalid) are logged and dropped instead.
func (s *Service) HandleConflictDetected(ctx context.Context, m kafkago.Message) error {
	var env scheduling.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		s.Recorder.log().Warn("dropping malformed event", "offset", m.Offset, "err", err)
		return nil
	}
	if env.EventType != scheduling.EventConflictDetected {
		return nil
	}

	// dedup by event id; marked only after the alerts are stored so a
	// failed attempt is retried on redelivery. Alert ids are derived from the
	// event id, so a retry does not duplicate alerts stored by the failed one.
	dkey := fmt.Sprintf(redisx.KeyDedup, s.ServiceName, env.EventID)
	if s.Redis != nil {
		if seen, _ := redisx.Exists(ctx, s.Redis, dkey); seen {
			return nil
		}
	}

	p, err := kafkax.UnwrapPayload[scheduling.ConflictDetectedPayload](env.Payload)
	if err != nil {
		s.Recorder.log().Warn("dropping malformed event", "event_id", env.EventID, "err", err)
		return nil
	}
	if _, err := s.Recorder.RecordFromEvent(ctx, p.Report, p.OrderID, env.EventID); err != nil {
		if errors.Is(err, scheduling.ErrValidation) {
			s.Recorder.log().Warn("dropping invalid event", "event_id", env.EventID, "err", err)
			return nil
		}
		return err
	}

	if s.Redis != nil {
		_ = s.Redis.Set(ctx, dkey, "1", redisx.TTLDedup).Err()
	}
	return nil
}

// PublishConflict emits a ConflictDetected event for rep on p.
func PublishConflict(p Publisher, producer, traceID string, rep scheduling.Report) {
	ev := scheduling.Envelope{
		EventID:       uuid.NewString(),
		EventType:     scheduling.EventConflictDetected,
		EventVersion:  1,
		OccurredAt:    rep.CheckedAt,
		Producer:      producer,
		TraceID:       traceID,
		CorrelationID: rep.OrderID,
		Payload:       kafkax.MustMarshal(scheduling.ConflictDetectedPayload{OrderID: rep.OrderID, Report: rep}),
	}
	p.Publish(scheduling.PartitionKey(rep.OrderID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(scheduling.EventConflictDetected)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}
