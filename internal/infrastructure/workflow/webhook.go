package workflow

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/hr-assistant/internal/core/domain"
	"github.com/kirillkom/hr-assistant/internal/infrastructure/resilience"
)

// Webhook delivers workflow events to the external workflow engine.
// It implements ports.WorkflowTrigger and is the relay worker's sink.
type Webhook struct {
	url        string
	token      string
	httpClient *http.Client
	executor   *resilience.Executor
}

func NewWebhook(url, token string, executor *resilience.Executor) *Webhook {
	if executor == nil {
		executor = resilience.NewExecutor(resilience.DefaultConfig())
	}
	return &Webhook{
		url:        strings.TrimSpace(url),
		token:      strings.TrimSpace(token),
		httpClient: &http.Client{Timeout: 10 * time.Second},
		executor:   executor,
	}
}

type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if strings.TrimSpace(e.Body) == "" {
		return fmt.Sprintf("workflow webhook status %d", e.StatusCode)
	}
	return fmt.Sprintf("workflow webhook status %d: %s", e.StatusCode, strings.TrimSpace(e.Body))
}

func (w *Webhook) Notify(ctx context.Context, event domain.WorkflowEvent) error {
	if w.url == "" {
		return fmt.Errorf("workflow webhook url is empty")
	}
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal workflow event: %w", err)
	}

	err = w.executor.Execute(ctx, "workflow.webhook", func(callCtx context.Context) error {
		req, err := http.NewRequestWithContext(callCtx, http.MethodPost, w.url, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("create webhook request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-HR-Event-Kind", event.Kind)
		if w.token != "" {
			req.Header.Set("Authorization", "Bearer "+w.token)
		}

		resp, err := w.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("webhook request: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 300 {
			msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
			return &StatusError{StatusCode: resp.StatusCode, Body: string(msg)}
		}
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}, classifyWebhookError)
	if err != nil {
		if classifyWebhookError(err).Retryable || resilience.IsCircuitOpen(err) {
			return domain.WrapError(domain.ErrTemporary, "workflow.webhook", err)
		}
		return err
	}
	return nil
}

func classifyWebhookError(err error) resilience.ErrorClassification {
	if err == nil {
		return resilience.ErrorClassification{}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return resilience.ErrorClassification{Retryable: false, RecordFailure: false}
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		if statusErr.StatusCode == http.StatusTooManyRequests || statusErr.StatusCode >= 500 {
			return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
		}
		return resilience.ErrorClassification{Retryable: false, RecordFailure: false}
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
	}
	return resilience.ErrorClassification{Retryable: false, RecordFailure: true}
}
