package ai

import (
	"encoding/json"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/doeshing/triage-go/internal/domain"
)

// BuildHeaders returns the request headers for the configured provider. It is
// a pure function of its inputs.
func BuildHeaders(settings domain.APISettings, credential string) http.Header {
	headers := make(http.Header)
	headers.Set("Content-Type", "application/json")
	headers.Set("Authorization", "Bearer "+credential)
	if referer := strings.TrimSpace(settings.Referer); referer != "" {
		headers.Set("HTTP-Referer", referer)
		headers.Set("Referer", referer)
	}
	if title := strings.TrimSpace(settings.Title); title != "" {
		headers.Set("X-Title", title)
	}
	return headers
}

// buildRequestBody encodes the chat-completion payload for prompt.
func buildRequestBody(settings domain.APISettings, prompt string) ([]byte, error) {
	request := openai.ChatCompletionRequest{
		Model: settings.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: SystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: float32(settings.Temperature),
		MaxTokens:   settings.MaxTokens,
	}
	return json.Marshal(request)
}

// providerEnvelope accepts both the chat-completion shape and a flat content
// field. Content stays raw so non-string values can be rejected explicitly.
type providerEnvelope struct {
	Choices []struct {
		Message *struct {
			Content json.RawMessage `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Content json.RawMessage `json:"content"`
}

// errorEnvelope covers the error bodies returned by OpenAI-compatible APIs.
type errorEnvelope struct {
	Error   json.RawMessage `json:"error"`
	Message string          `json:"message"`
}

// upstreamMessage extracts a human-readable message from an error body.
func upstreamMessage(body []byte) string {
	var envelope errorEnvelope
	if err := json.Unmarshal(body, &envelope); err == nil {
		if len(envelope.Error) > 0 {
			var nested struct {
				Message string `json:"message"`
			}
			if err := json.Unmarshal(envelope.Error, &nested); err == nil && strings.TrimSpace(nested.Message) != "" {
				return strings.TrimSpace(nested.Message)
			}
			var plain string
			if err := json.Unmarshal(envelope.Error, &plain); err == nil && strings.TrimSpace(plain) != "" {
				return strings.TrimSpace(plain)
			}
		}
		if msg := strings.TrimSpace(envelope.Message); msg != "" {
			return msg
		}
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		return ""
	}
	return summarizePayloadSnippet(string(body))
}
