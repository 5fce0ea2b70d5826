package api

import (
	"bytes"
	"context"
	"io"
	"time"

	http "github.com/bogdanfinn/fhttp"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	apierrors "github.com/diogo/waychat/internal/errors"
	"github.com/diogo/waychat/internal/models"
)

// maxErrorBody limits how much of a failed response is read
const maxErrorBody = 4096

// Complete sends the full transcript to the completion endpoint and returns
// the first choice's text. It issues exactly one request and never retries.
// A success response without any choice yields "" and no error.
func (c *Client) Complete(ctx context.Context, transcript []models.Message) (string, error) {
	completion, err := c.CreateCompletion(ctx, transcript)
	if err != nil {
		return "", err
	}
	return completion.Text(), nil
}

// CreateCompletion performs the request and returns the parsed response
func (c *Client) CreateCompletion(ctx context.Context, transcript []models.Message) (*models.ChatCompletion, error) {
	model := c.GetModel()

	payload, err := buildPayload(model, transcript, c.temperature, c.maxTokens)
	if err != nil {
		return nil, apierrors.NewParseError(err.Error(), "request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, apierrors.NewTransportError("build request", c.endpoint, err)
	}

	for key, value := range models.DefaultHeaders() {
		req.Header.Set(key, value)
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		transportErr := apierrors.NewTransportError("chat completion", c.endpoint, err)
		c.logger.Error().Err(transportErr).Str("model", model).Msg("completion request failed")
		return nil, transportErr
	}
	defer func() {
		if resp != nil && resp.Body != nil {
			_ = resp.Body.Close()
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		errorBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		remoteErr := apierrors.NewRemoteError(resp.StatusCode, c.endpoint, string(errorBody))
		c.logger.Error().
			Int("status", resp.StatusCode).
			Str("body", remoteErr.Body).
			Str("model", model).
			Msg("completion request rejected")
		return nil, remoteErr
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		transportErr := apierrors.NewTransportError("read completion", c.endpoint, err)
		c.logger.Error().Err(transportErr).Msg("completion response read failed")
		return nil, transportErr
	}

	completion, err := parseCompletion(body)
	if err != nil {
		c.logger.Error().Err(err).Msg("completion response unreadable")
		return nil, err
	}

	c.logger.Debug().
		Str("model", completion.Model).
		Int("messages", len(transcript)).
		Int("choices", len(completion.Choices)).
		Int("total_tokens", completion.Usage.TotalTokens).
		Dur("elapsed", time.Since(start)).
		Msg("completion received")

	return completion, nil
}

// buildPayload creates the JSON request body
func buildPayload(model string, transcript []models.Message, temperature float64, maxTokens int) ([]byte, error) {
	messages := transcript
	if messages == nil {
		messages = []models.Message{}
	}

	body := []byte(`{}`)
	var err error
	if body, err = sjson.SetBytes(body, "model", model); err != nil {
		return nil, err
	}
	if body, err = sjson.SetBytes(body, "messages", messages); err != nil {
		return nil, err
	}
	if body, err = sjson.SetBytes(body, "temperature", temperature); err != nil {
		return nil, err
	}
	if body, err = sjson.SetBytes(body, "max_tokens", maxTokens); err != nil {
		return nil, err
	}
	return body, nil
}

// parseCompletion extracts the fields of a chat completion response
func parseCompletion(body []byte) (*models.ChatCompletion, error) {
	if !gjson.ValidBytes(body) {
		return nil, apierrors.NewParseError("response is not valid JSON", "")
	}

	result := gjson.ParseBytes(body)
	completion := &models.ChatCompletion{
		ID:    result.Get("id").String(),
		Model: result.Get("model").String(),
		Usage: models.Usage{
			PromptTokens:     int(result.Get("usage.prompt_tokens").Int()),
			CompletionTokens: int(result.Get("usage.completion_tokens").Int()),
			TotalTokens:      int(result.Get("usage.total_tokens").Int()),
		},
	}

	result.Get("choices").ForEach(func(_, choice gjson.Result) bool {
		completion.Choices = append(completion.Choices, models.Choice{
			Index:        int(choice.Get("index").Int()),
			Content:      choice.Get("message.content").String(),
			FinishReason: choice.Get("finish_reason").String(),
		})
		return true
	})

	return completion, nil
}
