package openai

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/joseph-ayodele/radiology-reports/internal/llm"
)

var _ llm.CompletionClient = (*Client)(nil)

// CompleteJSON implements llm.CompletionClient with chat/completions in JSON-object mode.
// The bearer key is resolved at call time; without one no request is sent.
func (c *Client) CompleteJSON(ctx context.Context, req llm.CompletionRequest) ([]byte, error) {
	start := time.Now()
	op := req.Operation
	if op == "" {
		op = "completion"
	}

	key := strings.TrimSpace(c.cfg.APIKey)
	if key == "" {
		key = strings.TrimSpace(os.Getenv("OPENAI_API_KEY"))
	}
	if key == "" {
		c.logger.Error("llm.openai.missing_credentials", "op", op)
		return nil, llm.ErrMissingCredentials
	}

	body := map[string]any{
		"model":           c.cfg.Model,
		"temperature":     req.Temperature,
		"response_format": map[string]any{"type": "json_object"},
		"messages": []map[string]any{
			{"role": "system", "content": req.System},
			{"role": "user", "content": req.Prompt},
		},
	}
	headers := map[string]string{"Authorization": "Bearer " + key}
	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"

	var raw []byte
	attempts := 0
	operation := func() error {
		attempts++
		out, _, err := llm.SendJSON(ctx, c.http, endpoint, body, headers, c.logger)
		if err != nil {
			if retryable(ctx, err) {
				return err
			}
			return backoff.Permanent(err)
		}
		raw = out
		return nil
	}
	notify := func(err error, next time.Duration) {
		c.logger.Warn("llm.openai.retry", "op", op, "attempt", attempts, "error", err, "next_in_ms", next.Milliseconds())
	}
	if err := backoff.RetryNotify(operation, c.backOff(ctx), notify); err != nil {
		c.logger.Error("llm.openai.http_error", "op", op, "attempts", attempts, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds())
		return nil, err
	}

	content, err := decodeContent(op, raw)
	if err != nil {
		c.logger.Error("llm.openai.decode_error", "op", op, "error", err, "raw_bytes", len(raw),
			"elapsed_ms", time.Since(start).Milliseconds())
		return nil, err
	}

	c.logger.Info("llm.openai.ok",
		"op", op,
		"model", c.cfg.Model,
		"attempts", attempts,
		"content_bytes", len(content),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return content, nil
}

func (c *Client) backOff(ctx context.Context) backoff.BackOff {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = c.cfg.RetryInitial
	eb.MaxInterval = c.cfg.RetryMax
	eb.MaxElapsedTime = 0
	return backoff.WithContext(backoff.WithMaxRetries(eb, uint64(c.cfg.MaxRetries)), ctx)
}

// retryable: 429, 5xx and transport errors. Caller cancellation is final.
func retryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	var up *llm.UpstreamError
	if errors.As(err, &up) {
		return up.Retryable()
	}
	return !errors.Is(err, context.Canceled)
}

// decodeContent unwraps the chat/completions envelope and returns the message content,
// which must be a single JSON object.
func decodeContent(op string, raw []byte) ([]byte, error) {
	var cc struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
			FinishReason string `json:"finish_reason"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(raw, &cc); err != nil {
		return nil, &llm.MalformedResponseError{Op: op, Reason: "decode openai response", Raw: raw, Err: err}
	}
	if len(cc.Choices) == 0 {
		return nil, &llm.MalformedResponseError{Op: op, Reason: "no choices in openai response", Raw: raw}
	}
	content := llm.StripCodeFences(cc.Choices[0].Message.Content)
	var obj map[string]any
	err := json.Unmarshal([]byte(content), &obj)
	if err == nil && obj == nil {
		err = errors.New("null content")
	}
	if err != nil {
		reason := "content is not a JSON object"
		if cc.Choices[0].FinishReason == "length" {
			reason += " (truncated at max tokens)"
		}
		return nil, &llm.MalformedResponseError{Op: op, Reason: reason, Raw: []byte(content), Err: err}
	}
	return []byte(content), nil
}
