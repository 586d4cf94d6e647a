package push

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"crmsweep/pkg/circuitbreaker"
)

// Provider is the HTTP client for the external push-delivery service. Calls
// go through a circuit breaker so a dead provider does not stall the consumer
// with per-message timeouts.
type Provider struct {
	baseURL string
	client  *http.Client
	breaker *circuitbreaker.CircuitBreaker
	logger  *zap.Logger
}

func NewProvider(baseURL string, timeout time.Duration, logger *zap.Logger) *Provider {
	return &Provider{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
		breaker: circuitbreaker.NewCircuitBreaker(circuitbreaker.DefaultConfig()),
		logger:  logger,
	}
}

type sendRequest struct {
	Tokens []string          `json:"tokens"`
	Title  string            `json:"title"`
	Body   string            `json:"body"`
	Data   map[string]string `json:"data,omitempty"`
}

// Send delivers one message to the given device tokens.
func (p *Provider) Send(ctx context.Context, tokens []string, title, body string, data map[string]string) error {
	reqBody, err := json.Marshal(sendRequest{
		Tokens: tokens,
		Title:  title,
		Body:   body,
		Data:   data,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal push request: %w", err)
	}

	return p.breaker.Execute(func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/send", bytes.NewReader(reqBody))
		if err != nil {
			return fmt.Errorf("failed to build push request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := p.client.Do(req)
		if err != nil {
			return fmt.Errorf("failed to call push provider: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			return fmt.Errorf("push provider returned error: status=%d body=%s", resp.StatusCode, string(respBody))
		}

		p.logger.Debug("Push delivered",
			zap.Int("tokens", len(tokens)),
			zap.Int("status", resp.StatusCode),
		)
		return nil
	})
}
