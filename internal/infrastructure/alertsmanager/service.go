package alertsmanager

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/childchain/exitd/internal/core/ports"
	"github.com/childchain/exitd/pkg/plasma-lib/utxo"
)

const (
	serviceName = "exitd"
	severity    = "warning"

	maxRetries = 5
)

type Alert struct {
	Labels      map[string]string `json:"labels"`
	Annotations map[string]string `json:"annotations"`
	StartsAt    time.Time         `json:"startsAt"`
}

type service struct {
	baseUrl     string
	explorerUrl string
	httpClient  *http.Client
}

func NewService(alertManagerURL, explorerURL string) ports.Alerts {
	return &service{
		baseUrl:     alertManagerURL,
		explorerUrl: explorerURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (s *service) Publish(ctx context.Context, topic ports.Topic, message any) error {
	labels := map[string]string{
		"alertname": string(topic),
		"service":   serviceName,
		"severity":  severity,
	}

	desc := ""
	annotations := map[string]string{}
	switch topic {
	case ports.InFlightExitStarted:
		annotations["firing_title"] = "🚪 In-Flight Exit Started"
		m, ok := message.(ports.InFlightExitStartedAlert)
		if !ok {
			return fmt.Errorf("invalid message type: %T", message)
		}
		desc = formatInFlightExitAlert(s.explorerUrl, m)
		labels["exit_id"] = m.ExitId
		labels["tx_hash"] = m.TxHash
	default:
		annotations["firing_title"] = fmt.Sprintf("🔔 %s", topic)
		desc = formatGenericAlert(map[string]any{"event": message})
	}

	annotations["description"] = desc
	alert := Alert{
		Labels:      labels,
		Annotations: annotations,
		StartsAt:    time.Now(),
	}

	if err := s.sendAlert(ctx, alert); err != nil {
		return fmt.Errorf("failed to send alert to AlertManager: %w", err)
	}

	return nil
}

func (s *service) sendAlert(ctx context.Context, alerts Alert) error {
	payload, err := json.Marshal([]Alert{alerts})
	if err != nil {
		return fmt.Errorf("failed to marshal alerts: %w", err)
	}

	baseDelay := 100 * time.Millisecond

	for attempt := 0; attempt < maxRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, "POST", s.baseUrl, bytes.NewReader(payload))
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := s.httpClient.Do(req)
		if err != nil {
			if attempt < maxRetries-1 {
				// exponential: 100ms, 200ms, 400ms, 800ms
				delay := baseDelay * time.Duration(1<<uint(attempt))

				select {
				case <-time.After(delay):
					continue
				case <-ctx.Done():
					return ctx.Err()
				}
			}
			return fmt.Errorf("failed to send alert after %d attempts: %w", maxRetries, err)
		}
		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			_ = resp.Body.Close()
			return nil
		}

		_ = resp.Body.Close()

		// Retry on 5xx, not on 4xx
		if resp.StatusCode >= 500 {
			if attempt < maxRetries-1 {
				delay := baseDelay * time.Duration(1<<uint(attempt))

				select {
				case <-time.After(delay):
					continue
				case <-ctx.Done():
					return ctx.Err()
				}
			}
		}

		return fmt.Errorf(
			"failed to send alert to AlertManager with status %d after %d attempts",
			resp.StatusCode, attempt+1,
		)
	}

	return fmt.Errorf("failed to send alert after %d attempts", maxRetries)
}

func formatInFlightExitAlert(explorerUrl string, data ports.InFlightExitStartedAlert) string {
	lines := make([]string, 0)
	if explorerUrl != "" {
		lines = append(lines, fmt.Sprintf("%s/tx/%s", explorerUrl, data.TxHash))
	}
	lines = append(lines, fmt.Sprintf("\n*Exit ID:* `%s`", data.ExitId))
	lines = append(lines, fmt.Sprintf("*Initiator:* `%s`", data.Initiator))
	lines = append(lines, fmt.Sprintf(
		"*Youngest input:* %d (%s)", data.Position, utxo.Decode(utxo.Pos(data.Position)),
	))
	lines = append(lines, fmt.Sprintf(
		"*Started at:* %s", time.Unix(data.StartedAt, 0).UTC().Format(time.RFC3339),
	))

	lines = append(lines, "\n*Breakdown:*")
	lines = append(lines, fmt.Sprintf("• Inputs: %d", data.InputsCount))
	lines = append(lines, fmt.Sprintf("• Outputs: %d", data.OutputsCount))

	tokens := make([]string, 0, len(data.Tokens))
	for token := range data.Tokens {
		tokens = append(tokens, token)
	}
	sort.Strings(tokens)
	for _, token := range tokens {
		lines = append(lines, fmt.Sprintf("• Exiting %s of token %s", data.Tokens[token], token))
	}
	return strings.Join(lines, "\n")
}

func formatGenericAlert(data map[string]any) string {
	lines := make([]string, 0)
	for key, value := range data {
		lines = append(lines, fmt.Sprintf("• %s: %v", key, value))
	}
	return strings.Join(lines, "\n")
}
