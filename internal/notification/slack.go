package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// SlackSink posts messages to an incoming webhook.
type SlackSink struct {
	webhookURL string
	timeout    time.Duration
	logger     *slog.Logger
	http       *http.Client
}

// NewSlackSink returns nil when no webhook is configured, which disables
// the external channel entirely.
func NewSlackSink(webhookURL string, timeout time.Duration, logger *slog.Logger) *SlackSink {
	if webhookURL == "" {
		return nil
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &SlackSink{
		webhookURL: webhookURL,
		timeout:    timeout,
		logger:     logger,
		http:       &http.Client{Timeout: timeout},
	}
}

func (s *SlackSink) Send(ctx context.Context, text string) error {
	payload, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return fmt.Errorf("failed to marshal slack payload: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewBuffer(payload))
	if err != nil {
		return fmt.Errorf("failed to create slack request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.http.Do(req)
	if err != nil {
		return fmt.Errorf("slack webhook request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("slack webhook returned status %d", resp.StatusCode)
	}
	return nil
}
