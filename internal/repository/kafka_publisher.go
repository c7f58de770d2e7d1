package repository

import (
	"context"
	"fmt"

	"AeroPulse/internal/domain/models"
	"AeroPulse/internal/domain/repository"
	pkgkafka "AeroPulse/pkg/kafka"

	"github.com/segmentio/kafka-go"
)

type producer interface {
	Publish(ctx context.Context, topic string, key []byte, value interface{}) error
	PublishBatch(ctx context.Context, topic string, messages []pkgkafka.Message) error
	Close() error
}

// KafkaDashboardPublisher streams each dashboard to a topic and its alerts
// to "<topic>.alerts".
type KafkaDashboardPublisher struct {
	producer producer
	topic    string
	station  string
}

var _ repository.DashboardPublisher = (*KafkaDashboardPublisher)(nil)

// NewKafkaDashboardPublisher creates a publisher keyed by station.
func NewKafkaDashboardPublisher(p producer, topic, station string) *KafkaDashboardPublisher {
	return &KafkaDashboardPublisher{producer: p, topic: topic, station: station}
}

func (p *KafkaDashboardPublisher) Publish(ctx context.Context, d *models.Dashboard) error {
	if d == nil {
		return nil
	}
	key := []byte(p.station)
	err := p.producer.PublishBatch(ctx, p.topic, []pkgkafka.Message{{
		Key:   key,
		Value: d,
		Headers: []kafka.Header{
			{Key: "cycle_id", Value: []byte(d.CycleID)},
			{Key: "classification", Value: []byte(d.Scorecard.Classification)},
		},
	}})
	if err != nil {
		return fmt.Errorf("publish dashboard %s: %w", d.CycleID, err)
	}

	if len(d.Alerts) == 0 {
		return nil
	}
	msgs := make([]pkgkafka.Message, len(d.Alerts))
	for i, a := range d.Alerts {
		msgs[i] = pkgkafka.Message{
			Key: key,
			Value: map[string]interface{}{
				"cycle_id":     d.CycleID,
				"generated_at": d.GeneratedAt,
				"type":         a.Type,
				"kpi_id":       a.KPIID,
				"severity":     a.Severity,
				"message":      a.Message,
				"action":       a.Action,
			},
		}
	}
	if err := p.producer.PublishBatch(ctx, p.topic+".alerts", msgs); err != nil {
		return fmt.Errorf("publish alerts %s: %w", d.CycleID, err)
	}
	return nil
}

func (p *KafkaDashboardPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}
