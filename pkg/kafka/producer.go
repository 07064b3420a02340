package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/segmentio/kafka-go"

	"github.com/Ramsey-B/thistle/pkg/models"
	"github.com/Ramsey-B/thistle/pkg/pipeline"
	"github.com/Ramsey-B/thistle/pkg/tracing"
)

const (
	EventReportCompleted = "report.completed"
	SinkName             = "kafka"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer publishes report events to Kafka
type Producer struct {
	writer messageWriter
	logger ectologger.Logger
	topic  string
}

// ProducerConfig holds Kafka producer configuration
type ProducerConfig struct {
	Brokers      []string
	Topic        string
	BatchSize    int
	BatchTimeout time.Duration
	RequiredAcks int
	Compression  string
}

// NewProducer creates a new Kafka producer
func NewProducer(cfg ProducerConfig, logger ectologger.Logger) *Producer {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Balancer:               &kafka.LeastBytes{},
		BatchSize:              cfg.BatchSize,
		BatchTimeout:           cfg.BatchTimeout,
		RequiredAcks:           kafka.RequiredAcks(cfg.RequiredAcks),
		Compression:            compressionCodec(cfg.Compression),
		AllowAutoTopicCreation: true,
	}

	return &Producer{
		writer: writer,
		logger: logger,
		topic:  cfg.Topic,
	}
}

func compressionCodec(name string) kafka.Compression {
	switch name {
	case "gzip":
		return kafka.Gzip
	case "lz4":
		return kafka.Lz4
	case "zstd":
		return kafka.Zstd
	case "none":
		return 0
	default:
		return kafka.Snappy
	}
}

// Close closes the producer
func (p *Producer) Close() error {
	return p.writer.Close()
}

// ReportEvent announces a completed run and carries its analytics
type ReportEvent struct {
	EventType   string          `json:"event_type"`
	RunID       string          `json:"run_id"`
	Dataset     string          `json:"dataset"`
	GeneratedAt time.Time       `json:"generated_at"`
	Report      *models.Report  `json:"report"`
	Stats       models.RunStats `json:"stats"`
	Timestamp   time.Time       `json:"timestamp"`
}

// NewReportEvent builds the report.completed event for a report
func NewReportEvent(report *models.Report) *ReportEvent {
	return &ReportEvent{
		EventType:   EventReportCompleted,
		RunID:       report.RunID,
		Dataset:     report.Dataset,
		GeneratedAt: report.GeneratedAt,
		Report:      report,
		Stats:       report.Stats,
	}
}

func (p *Producer) Name() string {
	return SinkName
}

// Write publishes the report.completed event of a run
func (p *Producer) Write(ctx context.Context, result *pipeline.Result) error {
	return p.PublishReportEvent(ctx, NewReportEvent(result.Report))
}

// PublishReportEvent publishes a report event keyed by run id
func (p *Producer) PublishReportEvent(ctx context.Context, event *ReportEvent) error {
	ctx, span := tracing.StartSpan(ctx, "kafka.Producer.PublishReportEvent")
	defer span.End()

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	msg, err := p.message(event)
	if err != nil {
		return err
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.WithContext(ctx).WithError(err).Error("Failed to publish report event")
		return err
	}

	p.logger.WithContext(ctx).WithFields(map[string]any{
		"event_type": event.EventType,
		"run_id":     event.RunID,
		"topic":      p.topic,
	}).Debug("Published report event")

	return nil
}

func (p *Producer) message(event *ReportEvent) (kafka.Message, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return kafka.Message{}, err
	}

	return kafka.Message{
		Topic: p.topic,
		Key:   []byte(event.RunID),
		Value: data,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.EventType)},
			{Key: "run_id", Value: []byte(event.RunID)},
			{Key: "dataset", Value: []byte(event.Dataset)},
		},
	}, nil
}
