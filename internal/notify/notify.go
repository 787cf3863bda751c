// Package notify delivers validation summaries to a messaging webhook.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/carelane/medcheck/internal/config"
	"github.com/carelane/medcheck/internal/model"
	"github.com/carelane/medcheck/internal/pipeline"
)

// message is the webhook payload shape.
type message struct {
	Channel string `json:"channel"`
	Message string `json:"message"`
}

// Notifier posts formatted validation results to a configured webhook.
type Notifier struct {
	cfg    config.NotifyConfig
	client *http.Client
}

// NewNotifier creates a Notifier with the given config.
func NewNotifier(cfg config.NotifyConfig) *Notifier {
	return &Notifier{
		cfg:    cfg,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// Enabled reports whether a webhook URL is configured.
func (n *Notifier) Enabled() bool {
	return n.cfg.WebhookURL != ""
}

// SendValidationResults formats results and posts them to the webhook.
func (n *Notifier) SendValidationResults(ctx context.Context, results []model.ValidationResult, channel string) error {
	if !n.Enabled() {
		return eris.New("notify: no webhook URL configured")
	}
	if channel == "" {
		channel = n.cfg.Channel
	}

	body := pipeline.FormatNotification(results)
	if err := n.send(ctx, message{Channel: channel, Message: body}); err != nil {
		return err
	}

	zap.L().Info("notification sent",
		zap.String("channel", channel),
		zap.Int("results", len(results)),
	)
	return nil
}

func (n *Notifier) send(ctx context.Context, msg message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return eris.Wrap(err, "notify: marshal message")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.cfg.WebhookURL, bytes.NewReader(payload))
	if err != nil {
		return eris.Wrap(err, "notify: create request")
	}
	req.Header.Set("Content-Type", "application/json")
	if n.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+n.cfg.Token)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return eris.Wrap(err, "notify: webhook request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode >= 400 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return eris.Errorf("notify: webhook returned status %d: %s", resp.StatusCode, string(detail))
	}
	return nil
}
