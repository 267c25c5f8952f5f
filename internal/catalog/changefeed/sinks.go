package changefeed

import (
	"context"
	"encoding/json"
	"log/slog"

	"unearthify/internal/platform/kafka/producer"
	"unearthify/internal/platform/metrics"
)

// LogSink writes every event as a structured log line.
func LogSink(logger *slog.Logger) Subscriber {
	return func(ctx context.Context, e Event) {
		logger.InfoContext(ctx, "record changed",
			"kind", e.Kind,
			"action", string(e.Action),
			"record_id", e.RecordID,
			"status", e.Status,
			"actor_id", e.ActorID,
			"request_id", e.RequestID,
		)
	}
}

// MetricsSink counts events by kind and action.
func MetricsSink(m *metrics.Metrics) Subscriber {
	return func(_ context.Context, e Event) {
		m.IncRecordChange(e.Kind, string(e.Action))
		if e.Action == ActionImage {
			m.IncImageUploaded(e.Kind)
		}
	}
}

// Publisher is the slice of the Kafka producer the sink needs.
type Publisher interface {
	Publish(msg producer.Message) error
}

// KafkaSink forwards events as JSON keyed by record ID so every change to one
// record lands on the same partition.
func KafkaSink(p Publisher, logger *slog.Logger) Subscriber {
	return func(ctx context.Context, e Event) {
		value, err := json.Marshal(e)
		if err != nil {
			logger.ErrorContext(ctx, "failed to encode change event", "error", err)
			return
		}
		err = p.Publish(producer.Message{
			Key:   []byte(e.RecordID),
			Value: value,
			Headers: map[string]string{
				"kind":   e.Kind,
				"action": string(e.Action),
			},
		})
		if err != nil {
			logger.WarnContext(ctx, "failed to publish change event",
				"error", err,
				"kind", e.Kind,
				"record_id", e.RecordID,
			)
		}
	}
}
