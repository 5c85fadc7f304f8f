package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/kirillkom/hr-assistant/internal/config"
	"github.com/kirillkom/hr-assistant/internal/core/domain"
	"github.com/kirillkom/hr-assistant/internal/core/ports"
	"github.com/kirillkom/hr-assistant/internal/infrastructure/queue/nats"
	"github.com/kirillkom/hr-assistant/internal/infrastructure/resilience"
	"github.com/kirillkom/hr-assistant/internal/infrastructure/workflow"
	"github.com/kirillkom/hr-assistant/internal/observability/metrics"
)

const relayDeliveryTimeout = 30 * time.Second

// Relay forwards workflow events from NATS to the workflow engine webhook.
type Relay struct {
	Config  config.Config
	Metrics *metrics.WorkerMetrics
	Queue   *nats.WorkflowQueue

	sink ports.WorkflowTrigger
}

func NewRelay(cfg config.Config, service string) (*Relay, error) {
	if cfg.NATSURL == "" {
		return nil, fmt.Errorf("relay requires nats_url")
	}
	if cfg.WorkflowWebhookURL == "" {
		return nil, fmt.Errorf("relay requires workflow_webhook_url")
	}

	workerMetrics := metrics.NewWorkerMetrics(service)
	executor := newExecutor(resilience.BackgroundConfig(), cfg, workerMetrics.ObserveDependencyState)

	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.WorkflowSubject, nats.Options{
		ClientName:         "hr-assistant-relay",
		ResilienceExecutor: executor,
	})
	if err != nil {
		return nil, fmt.Errorf("init workflow queue: %w", err)
	}

	return &Relay{
		Config:  cfg,
		Metrics: workerMetrics,
		Queue:   queue,
		sink:    workflow.NewWebhook(cfg.WorkflowWebhookURL, cfg.WorkflowWebhookToken, executor),
	}, nil
}

// Run consumes events until ctx is done.
func (r *Relay) Run(ctx context.Context) error {
	return r.Queue.SubscribeWorkflowEvents(ctx, r.Deliver)
}

// Deliver sends one event to the sink and records delivery metrics.
func (r *Relay) Deliver(ctx context.Context, event domain.WorkflowEvent) error {
	if !event.OccurredAt.IsZero() {
		r.Metrics.ObserveEventLag(time.Since(event.OccurredAt))
	}

	deliverCtx, cancel := context.WithTimeout(ctx, relayDeliveryTimeout)
	defer cancel()

	start := time.Now()
	r.Metrics.StartDelivery()
	err := r.sink.Notify(deliverCtx, event)
	r.Metrics.FinishDelivery(event.Kind, time.Since(start), err)
	if err != nil {
		return fmt.Errorf("deliver %s event: %w", event.Kind, err)
	}
	slog.Info("workflow_event_delivered",
		"kind", event.Kind,
		"conversation_id", event.ConversationID,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

func (r *Relay) Close() {
	if r.Queue != nil {
		r.Queue.Close()
	}
}
