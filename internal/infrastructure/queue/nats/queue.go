package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/kirillkom/hr-assistant/internal/core/domain"
	"github.com/kirillkom/hr-assistant/internal/infrastructure/resilience"
)

const relayQueueGroup = "workflow-relay"

// WorkflowQueue carries workflow events from the chat API to the relay worker.
type WorkflowQueue struct {
	conn     *nats.Conn
	subject  string
	executor *resilience.Executor
}

func New(url, subject string) (*WorkflowQueue, error) {
	return NewWithOptions(url, subject, Options{})
}

type Options struct {
	ClientName           string
	ConnectTimeout       time.Duration
	ReconnectWait        time.Duration
	MaxReconnects        int
	RetryOnFailedConnect *bool
	ResilienceExecutor   *resilience.Executor
}

func NewWithOptions(url, subject string, options Options) (*WorkflowQueue, error) {
	conn, err := nats.Connect(url, options.natsOptions()...)
	if err != nil {
		return nil, fmt.Errorf("connect nats %s: %w", url, err)
	}
	return &WorkflowQueue{
		conn:     conn,
		subject:  subject,
		executor: options.ResilienceExecutor,
	}, nil
}

// natsOptions keeps reconnecting for about two minutes by default; an
// escalation published during an outage is buffered by the client meanwhile.
func (o Options) natsOptions() []nats.Option {
	name := o.ClientName
	if name == "" {
		name = "hr-assistant"
	}
	retryOnFailedConnect := o.RetryOnFailedConnect == nil || *o.RetryOnFailedConnect
	maxReconnects := o.MaxReconnects
	if maxReconnects <= 0 {
		maxReconnects = 60
	}

	return []nats.Option{
		nats.Name(name),
		nats.Timeout(positiveOr(o.ConnectTimeout, 2*time.Second)),
		nats.ReconnectWait(positiveOr(o.ReconnectWait, 2*time.Second)),
		nats.MaxReconnects(maxReconnects),
		nats.RetryOnFailedConnect(retryOnFailedConnect),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			slog.Warn("nats_disconnected", "client", name, "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			slog.Info("nats_reconnected", "client", name, "url", nc.ConnectedUrl())
		}),
		nats.ClosedHandler(func(*nats.Conn) {
			slog.Info("nats_closed", "client", name)
		}),
	}
}

func positiveOr(d, fallback time.Duration) time.Duration {
	if d > 0 {
		return d
	}
	return fallback
}

func (q *WorkflowQueue) Close() {
	if q.conn != nil {
		q.conn.Close()
	}
}

// Notify publishes the event. It implements ports.WorkflowTrigger.
func (q *WorkflowQueue) Notify(ctx context.Context, event domain.WorkflowEvent) error {
	msg, err := encodeWorkflowEvent(q.subject, event)
	if err != nil {
		return err
	}
	call := func(_ context.Context) error {
		if err := q.conn.PublishMsg(msg); err != nil {
			return fmt.Errorf("nats publish: %w", err)
		}
		return nil
	}

	if q.executor != nil {
		err = q.executor.Execute(ctx, "nats.publish", call, classifyNATSError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return wrapTemporaryIfNeeded(err)
	}
	return nil
}

// SubscribeWorkflowEvents delivers events to handler until ctx is done.
// Relay workers share a queue group so each event is handled once.
func (q *WorkflowQueue) SubscribeWorkflowEvents(ctx context.Context, handler func(context.Context, domain.WorkflowEvent) error) error {
	sub, err := q.conn.QueueSubscribe(q.subject, relayQueueGroup, func(msg *nats.Msg) {
		if ctx.Err() != nil {
			return
		}
		event, err := decodeWorkflowEvent(msg.Data)
		if err != nil {
			slog.Error("workflow_event_decode_failed", "subject", msg.Subject, "error", err)
			return
		}

		handlerCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		if err := handler(handlerCtx, event); err != nil {
			slog.Error("workflow_event_handler_failed",
				"conversation_id", event.ConversationID,
				"kind", event.Kind,
				"error", err,
			)
		}
	})
	if err != nil {
		return fmt.Errorf("nats subscribe: %w", err)
	}

	if err := q.conn.Flush(); err != nil {
		return fmt.Errorf("nats flush: %w", err)
	}

	<-ctx.Done()
	if err := sub.Drain(); err != nil {
		return fmt.Errorf("nats drain subscription: %w", err)
	}
	if err := q.conn.FlushTimeout(5 * time.Second); err != nil {
		return fmt.Errorf("nats flush after drain: %w", err)
	}
	return nil
}

func encodeWorkflowEvent(subject string, event domain.WorkflowEvent) (*nats.Msg, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("marshal workflow event: %w", err)
	}
	msg := nats.NewMsg(subject)
	msg.Data = data
	msg.Header.Set("Content-Type", "application/json")
	msg.Header.Set("Hr-Event-Kind", event.Kind)
	// Lets a JetStream-backed subject drop republished duplicates.
	msg.Header.Set(nats.MsgIdHdr, eventID(event))
	return msg, nil
}

func eventID(event domain.WorkflowEvent) string {
	return fmt.Sprintf("%s:%s:%d", event.Kind, event.ConversationID, event.OccurredAt.UnixNano())
}

func decodeWorkflowEvent(data []byte) (domain.WorkflowEvent, error) {
	var event domain.WorkflowEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return domain.WorkflowEvent{}, fmt.Errorf("unmarshal workflow event: %w", err)
	}
	if event.Kind == "" {
		return domain.WorkflowEvent{}, fmt.Errorf("workflow event kind is empty")
	}
	return event, nil
}
