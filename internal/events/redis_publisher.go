package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/NomadCrew/nomad-crew-settlement/logger"
	"github.com/NomadCrew/nomad-crew-settlement/types"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const defaultPublishTimeout = 5 * time.Second

// ChannelName is the Redis pub/sub channel carrying one shared-expense event's
// domain events.
func ChannelName(eventID string) string {
	return "event:" + eventID
}

type publisherMetrics struct {
	latency   prometheus.Histogram
	published *prometheus.CounterVec
	failures  *prometheus.CounterVec
}

var (
	metricsInstance *publisherMetrics
	metricsOnce     sync.Once
	defaultRegistry = prometheus.DefaultRegisterer
)

func newPublisherMetrics() *publisherMetrics {
	metricsOnce.Do(func() {
		metricsInstance = &publisherMetrics{
			latency: promauto.With(defaultRegistry).NewHistogram(prometheus.HistogramOpts{
				Name:    "settlement_event_publish_duration_seconds",
				Help:    "Time taken to publish a domain event to Redis",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
			}),
			published: promauto.With(defaultRegistry).NewCounterVec(prometheus.CounterOpts{
				Name: "settlement_events_published_total",
				Help: "Domain events published, by event type",
			}, []string{"type"}),
			failures: promauto.With(defaultRegistry).NewCounterVec(prometheus.CounterOpts{
				Name: "settlement_event_publish_failures_total",
				Help: "Domain events that could not be published, by stage",
			}, []string{"stage"}),
		}
	})
	return metricsInstance
}

// resetMetricsForTesting resets the metrics singleton for test isolation.
func resetMetricsForTesting() {
	defaultRegistry = prometheus.NewRegistry()
	metricsInstance = nil
	metricsOnce = sync.Once{}
}

// RedisPublisher implements types.EventPublisher over Redis pub/sub, one
// channel per shared-expense event. Consumers subscribe to ChannelName(id).
type RedisPublisher struct {
	rdb     *redis.Client
	timeout time.Duration
	log     *zap.SugaredLogger
	metrics *publisherMetrics
}

// NewRedisPublisher creates a publisher. A non-positive timeout falls back to
// five seconds.
func NewRedisPublisher(rdb *redis.Client, timeout time.Duration) *RedisPublisher {
	if timeout <= 0 {
		timeout = defaultPublishTimeout
	}
	return &RedisPublisher{
		rdb:     rdb,
		timeout: timeout,
		log:     logger.GetLogger().Named("events"),
		metrics: newPublisherMetrics(),
	}
}

// Publish fills missing envelope fields, validates the event and sends it to
// the event's channel.
func (p *RedisPublisher) Publish(ctx context.Context, eventID string, event types.DomainEvent) error {
	start := time.Now()
	defer func() {
		p.metrics.latency.Observe(time.Since(start).Seconds())
	}()

	applyDefaults(&event, eventID)
	if err := event.Validate(); err != nil {
		p.metrics.failures.WithLabelValues("validate").Inc()
		return fmt.Errorf("invalid event: %w", err)
	}

	data, err := json.Marshal(event)
	if err != nil {
		p.metrics.failures.WithLabelValues("marshal").Inc()
		return fmt.Errorf("marshal event: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	receivers, err := p.rdb.Publish(ctx, ChannelName(eventID), data).Result()
	if err != nil {
		p.metrics.failures.WithLabelValues("redis").Inc()
		return fmt.Errorf("redis publish: %w", err)
	}

	p.metrics.published.WithLabelValues(string(event.Type)).Inc()
	p.log.Debugw("Domain event published",
		"type", event.Type,
		"eventID", eventID,
		"receivers", receivers)
	return nil
}

// applyDefaults fills envelope fields callers may leave empty.
func applyDefaults(event *types.DomainEvent, eventID string) {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.EventID == "" {
		event.EventID = eventID
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	if event.Version == 0 {
		event.Version = 1
	}
}
