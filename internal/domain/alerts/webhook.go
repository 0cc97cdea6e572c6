package alerts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/okian/soe/pkg/logger"
	"github.com/okian/soe/pkg/metrics"
)

// deliver posts a to every webhook. Failures are logged and counted only.
func (e *Engine) deliver(ctx context.Context, a *Alert) {
	for _, wh := range e.webhooks {
		if wh.URL == "" {
			continue
		}
		var body []byte
		switch wh.Type {
		case "slack":
			body, _ = json.Marshal(map[string]string{"text": fmt.Sprintf("*%s* %s", severityLabel(a.Severity), a.Message)})
		case "", "http":
			body, _ = json.Marshal(map[string]any{"alert": a})
		default:
			e.logger.Warn(ctx, "unknown webhook type, skipping", logger.String("type", wh.Type))
			continue
		}
		if err := e.post(ctx, wh.URL, body); err != nil {
			metrics.RecordWebhookFailure()
			e.logger.Error(ctx, "webhook delivery failed",
				logger.String("type", wh.Type),
				logger.String("rule", a.RuleName),
				logger.Error(err),
			)
		}
	}
}

func (e *Engine) post(ctx context.Context, url string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return fmt.Errorf("http post: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook returned HTTP %d", resp.StatusCode)
	}
	return nil
}

func severityLabel(s string) string {
	switch s {
	case "critical":
		return "[CRITICAL]"
	case "warning":
		return "[WARNING]"
	default:
		return "[INFO]"
	}
}
