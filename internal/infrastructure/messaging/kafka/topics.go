package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/moldex-io/moldex/internal/domain/task"
	"github.com/moldex-io/moldex/internal/platform/logging"
	"github.com/moldex-io/moldex/pkg/errors"
	"github.com/moldex-io/moldex/pkg/types/common"
)

// Topic names follow the tasks.<queue>.<event> convention named for the
// Task Runtime (C7): each named queue gets a notification topic workers
// publish progress/result events to, plus a dead-letter topic a task lands
// on once it exhausts its retries. The queue dequeue path itself stays
// Postgres-backed (task.Repository.Claim's SKIP LOCKED semantics) — these
// topics are the async transport layered on top, not a replacement for it.
const (
	TopicCSVProcessingEvents      = "tasks.csv_processing.events"
	TopicAIPredictionsEvents      = "tasks.ai_predictions.events"
	TopicNotificationsOutbound    = "tasks.notifications.events"
	TopicDocumentProcessingEvents = "tasks.document_processing.events"
	TopicResultProcessingEvents   = "tasks.result_processing.events"
	TopicDefaultEvents            = "tasks.default.events"

	dlqSuffix = ".dlq"
)

// DeadLetterTopic returns the dead-letter topic backing queue, where the
// Task Runtime publishes a task's terminal failure once Task.Fail leaves it
// in FAILED with no retries remaining.
func DeadLetterTopic(queue task.Queue) string {
	return fmt.Sprintf("tasks.%s%s", queue, dlqSuffix)
}

// eventsTopic returns the progress/result notification topic for queue.
func eventsTopic(queue task.Queue) string {
	switch queue {
	case task.QueueCSVProcessing:
		return TopicCSVProcessingEvents
	case task.QueueAIPredictions:
		return TopicAIPredictionsEvents
	case task.QueueNotifications:
		return TopicNotificationsOutbound
	case task.QueueDocumentProcessing:
		return TopicDocumentProcessingEvents
	case task.QueueResultProcessing:
		return TopicResultProcessingEvents
	default:
		return TopicDefaultEvents
	}
}

// EventEnvelope standardizes event messages published on a queue's events
// or dead-letter topic.
type EventEnvelope struct {
	EventID       string            `json:"event_id"`
	EventType     string            `json:"event_type"`
	Source        string            `json:"source"`
	Timestamp     time.Time         `json:"timestamp"`
	SchemaVersion string            `json:"schema_version"`
	TraceID       string            `json:"trace_id,omitempty"`
	Payload       json.RawMessage   `json:"payload"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// TaskFailedPayload is published to a queue's dead-letter topic when a Task
// exhausts MaxRetries, per spec §4.7's at-least-once/bounded-retry contract.
type TaskFailedPayload struct {
	TaskID   string `json:"task_id"`
	Kind     string `json:"kind"`
	Queue    string `json:"queue"`
	Attempts int    `json:"attempts"`
	LastErr  string `json:"last_error"`
	FailedAt time.Time `json:"failed_at"`
}

// TaskProgressPayload is published to a queue's events topic as a Task's
// completed/failed counters advance, for downstream consumers (e.g. a
// notification dispatcher) that want progress without polling Postgres.
type TaskProgressPayload struct {
	TaskID    string    `json:"task_id"`
	Kind      string    `json:"kind"`
	State     string    `json:"state"`
	Completed int       `json:"completed"`
	Failed    int       `json:"failed"`
	Total     int       `json:"total"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NotificationPayload is the body of a tasks.notifications.events message:
// a caller-facing alert (e.g. "your batch import finished").
type NotificationPayload struct {
	RecipientID string `json:"recipient_id"`
	Channel     string `json:"channel"`
	Subject     string `json:"subject"`
	Body        string `json:"body"`
	Priority    string `json:"priority"`
}

// NewEventEnvelope wraps payload as a JSON-encoded EventEnvelope.
func NewEventEnvelope(eventType string, source string, payload interface{}) (*EventEnvelope, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeSerializationError, "failed to marshal payload")
	}
	return &EventEnvelope{
		EventID:       uuid.New().String(),
		EventType:     eventType,
		Source:        source,
		Timestamp:     time.Now().UTC(),
		SchemaVersion: "v1",
		Payload:       data,
	}, nil
}

// DecodePayload unmarshals e's payload into target.
func (e *EventEnvelope) DecodePayload(target interface{}) error {
	if len(e.Payload) == 0 || string(e.Payload) == "null" {
		return nil
	}
	return json.Unmarshal(e.Payload, target)
}

// ToMessage serializes e as a kafka-go Message body for topic.
func (e *EventEnvelope) ToMessage(topic string) (kafka.Message, error) {
	val, err := json.Marshal(e)
	if err != nil {
		return kafka.Message{}, errors.Wrap(err, errors.CodeSerializationError, "failed to marshal envelope")
	}
	headers := []kafka.Header{
		{Key: "event_type", Value: []byte(e.EventType)},
		{Key: "source_service", Value: []byte(e.Source)},
		{Key: "schema_version", Value: []byte(e.SchemaVersion)},
	}
	if e.TraceID != "" {
		headers = append(headers, kafka.Header{Key: "trace_id", Value: []byte(e.TraceID)})
	}
	return kafka.Message{
		Topic:   topic,
		Value:   val,
		Headers: headers,
		Time:    e.Timestamp,
	}, nil
}

// DecodeEventEnvelope parses a kafka-go Message body into an EventEnvelope.
func DecodeEventEnvelope(msg kafka.Message) (*EventEnvelope, error) {
	if len(msg.Value) == 0 {
		return nil, errors.New(errors.CodeValidation, "empty message value")
	}
	var env EventEnvelope
	if err := json.Unmarshal(msg.Value, &env); err != nil {
		return nil, errors.Wrap(err, errors.CodeSerializationError, "failed to unmarshal envelope")
	}
	return &env, nil
}

// connInterface abstracts kafka.Conn for testing.
type connInterface interface {
	CreateTopics(topics ...kafka.TopicConfig) error
	DeleteTopics(topics ...string) error
	ReadPartitions(topics ...string) ([]kafka.Partition, error)
	Close() error
}

// TopicManager manages the Task Runtime's Kafka topics.
type TopicManager struct {
	conn   connInterface
	logger logging.Logger
}

// NewTopicManager dials brokers[0] and returns a TopicManager.
func NewTopicManager(brokers []string, logger logging.Logger) (*TopicManager, error) {
	if len(brokers) == 0 {
		return nil, errors.New(errors.CodeValidation, "brokers required")
	}
	conn, err := kafka.Dial("tcp", brokers[0])
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeUnexpectedError, "failed to dial kafka")
	}
	return &TopicManager{conn: conn, logger: logger}, nil
}

// TopicSpec configures one Kafka topic's partitioning and retention.
type TopicSpec struct {
	Name              string
	NumPartitions     int
	ReplicationFactor int
	RetentionMs       int64
}

func (m *TopicManager) CreateTopic(ctx context.Context, spec TopicSpec) error {
	if spec.Name == "" {
		return errors.New(errors.CodeValidation, "topic name required")
	}
	if spec.NumPartitions <= 0 {
		return errors.New(errors.CodeValidation, "NumPartitions must be > 0")
	}
	if spec.ReplicationFactor <= 0 {
		return errors.New(errors.CodeValidation, "ReplicationFactor must be > 0")
	}

	kCfg := kafka.TopicConfig{
		Topic:             spec.Name,
		NumPartitions:     spec.NumPartitions,
		ReplicationFactor: spec.ReplicationFactor,
	}
	if spec.RetentionMs > 0 {
		kCfg.ConfigEntries = append(kCfg.ConfigEntries, kafka.ConfigEntry{ConfigName: "retention.ms", ConfigValue: fmt.Sprintf("%d", spec.RetentionMs)})
	}

	if err := m.conn.CreateTopics(kCfg); err != nil {
		exists, _ := m.TopicExists(ctx, spec.Name)
		if exists {
			return nil
		}
		return err
	}
	m.logger.Info("topic created", logging.String("topic", spec.Name))
	return nil
}

func (m *TopicManager) DeleteTopic(ctx context.Context, name string) error {
	if err := m.conn.DeleteTopics(name); err != nil {
		return nil
	}
	m.logger.Warn("topic deleted", logging.String("topic", name))
	return nil
}

func (m *TopicManager) TopicExists(ctx context.Context, name string) (bool, error) {
	partitions, err := m.conn.ReadPartitions(name)
	if err != nil {
		return false, nil
	}
	return len(partitions) > 0, nil
}

func (m *TopicManager) ListTopics(ctx context.Context) ([]string, error) {
	partitions, err := m.conn.ReadPartitions()
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	var topics []string
	for _, p := range partitions {
		if !seen[p.Topic] {
			seen[p.Topic] = true
			topics = append(topics, p.Topic)
		}
	}
	return topics, nil
}

func (m *TopicManager) EnsureTopics(ctx context.Context, specs []TopicSpec) error {
	for _, spec := range specs {
		if err := m.CreateTopic(ctx, spec); err != nil {
			return err
		}
	}
	return nil
}

// EnsureDefaultTopics creates the events + dead-letter topic pair for every
// queue named in spec §4.7.
func (m *TopicManager) EnsureDefaultTopics(ctx context.Context) error {
	return m.EnsureTopics(ctx, DefaultTopics())
}

func (m *TopicManager) Close() error {
	return m.conn.Close()
}

// DefaultTopics enumerates the events + dead-letter topic for every named
// queue (spec §4.7), each retained 7 days except the dead-letter topics,
// which are retained 30 days to leave room for manual triage.
func DefaultTopics() []TopicSpec {
	var specs []TopicSpec
	for _, q := range task.AllQueues {
		specs = append(specs,
			TopicSpec{Name: eventsTopic(q), NumPartitions: 6, ReplicationFactor: 3, RetentionMs: 7 * 24 * 3600 * 1000},
			TopicSpec{Name: DeadLetterTopic(q), NumPartitions: 3, ReplicationFactor: 3, RetentionMs: 30 * 24 * 3600 * 1000},
		)
	}
	return specs
}
