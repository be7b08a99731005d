// Package push talks to the external push provider. Delivery is
// at-most-once-attempted: callers persist their own records first and treat
// any error here as a logged delivery failure.
package push

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// Message is one rendered notification payload.
type Message struct {
	Title     string `json:"title"`
	Body      string `json:"body"`
	Category  string `json:"category,omitempty"`
	RelatedID string `json:"related_id,omitempty"`
	Thumbnail string `json:"thumbnail,omitempty"`
}

// Gateway abstracts the provider. PushMulticast reports per-token outcome
// counts; a partial failure is not an error.
type Gateway interface {
	Push(ctx context.Context, token string, msg Message) error
	PushMulticast(ctx context.Context, tokens []string, msg Message) (sent, failed int, err error)
}

// HTTPGateway posts JSON to a provider endpoint.
type HTTPGateway struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
}

func NewHTTPGateway(endpoint, apiKey string, rps float64) *HTTPGateway {
	if rps <= 0 {
		rps = 100
	}
	return &HTTPGateway{
		endpoint:   endpoint,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		limiter:    rate.NewLimiter(rate.Limit(rps), int(rps)),
	}
}

type pushPayload struct {
	Tokens []string `json:"tokens"`
	Message
}

type pushResult struct {
	Sent   int `json:"sent"`
	Failed int `json:"failed"`
}

func (g *HTTPGateway) Push(ctx context.Context, token string, msg Message) error {
	_, failed, err := g.PushMulticast(ctx, []string{token}, msg)
	if err != nil {
		return err
	}
	if failed > 0 {
		return fmt.Errorf("push: token rejected")
	}
	return nil
}

func (g *HTTPGateway) PushMulticast(ctx context.Context, tokens []string, msg Message) (int, int, error) {
	if len(tokens) == 0 {
		return 0, 0, nil
	}
	if err := g.limiter.Wait(ctx); err != nil {
		return 0, len(tokens), err
	}

	b, err := json.Marshal(pushPayload{Tokens: tokens, Message: msg})
	if err != nil {
		return 0, len(tokens), err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint, bytes.NewReader(b))
	if err != nil {
		return 0, len(tokens), err
	}
	req.Header.Set("Content-Type", "application/json")
	if g.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+g.apiKey)
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return 0, len(tokens), err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, len(tokens), fmt.Errorf("push: provider status %d", resp.StatusCode)
	}

	var result pushResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		// 响应体异常时按全部成功处理：provider 已接收
		return len(tokens), 0, nil
	}
	return result.Sent, result.Failed, nil
}
