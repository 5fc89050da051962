// Package genai is the boundary to the external generation service that
// drafts QTI XML from extracted document text. Retrying lives here and only
// here: the parser and model stay free of any retry logic.
package genai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ErrNoCompletion reports that the service produced no usable output after
// every attempt. It is terminal for the document: no partial output is
// emitted downstream.
var ErrNoCompletion = errors.New("genai: no completion returned")

// RetryPolicy bounds the boundary call: a fixed number of attempts with a
// fixed delay between them.
type RetryPolicy struct {
	MaxAttempts int
	Backoff     time.Duration
}

// DefaultRetryPolicy mirrors the service's historical behavior: three
// attempts, two seconds apart.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, Backoff: 2 * time.Second}
}

// Reference is the few-shot material sent alongside the document text: a
// known-good source extract with its expected root test file and item files.
type Reference struct {
	SourceText string
	Test       string
	Items      []string
	Notes      string
}

// Client calls an OpenAI-compatible chat-completions endpoint.
type Client struct {
	BaseURL    string
	APIKey     string
	Model      string
	HTTPClient *http.Client
	Retry      RetryPolicy
}

func NewClient(baseURL, apiKey, model string, retry RetryPolicy) *Client {
	if retry.MaxAttempts <= 0 {
		retry = DefaultRetryPolicy()
	}
	return &Client{
		BaseURL:    baseURL,
		APIKey:     apiKey,
		Model:      model,
		HTTPClient: &http.Client{Timeout: 120 * time.Second},
		Retry:      retry,
	}
}

const systemPrompt = "You are an expert QTI 3.0 generator. Output strictly valid, UTF-8 encoded QTI XML only: " +
	"one assessment-test containing test parts, assessment sections and assessment items, " +
	"with matching response declarations, correct responses and modal feedback. " +
	"Preserve choices with empty text. No markdown, no commentary."

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// GenerateQTI drafts a QTI document for sourceText. Transport failures,
// non-2xx statuses and empty completions are retried under the client's
// policy; exhausting it returns ErrNoCompletion (wrapped with the last
// underlying cause when there is one).
func (c *Client) GenerateQTI(ctx context.Context, sourceText string, ref Reference) (string, error) {
	req := chatRequest{
		Model:    c.Model,
		Messages: c.buildMessages(sourceText, ref),
	}
	body, err := json.Marshal(req)
	if err != nil {
		return "", err
	}

	var lastErr error
	for attempt := 1; attempt <= c.Retry.MaxAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(c.Retry.Backoff):
			}
		}
		out, err := c.call(ctx, body)
		if err == nil && strings.TrimSpace(out) != "" {
			return out, nil
		}
		if err == nil {
			err = ErrNoCompletion
		}
		lastErr = err
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return "", err
		}
	}
	if lastErr != nil && !errors.Is(lastErr, ErrNoCompletion) {
		return "", fmt.Errorf("%w: %v", ErrNoCompletion, lastErr)
	}
	return "", ErrNoCompletion
}

func (c *Client) buildMessages(sourceText string, ref Reference) []chatMessage {
	msgs := []chatMessage{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: "=== DOCUMENT CONTENT TO CONVERT ===\n" + sourceText},
	}
	if strings.TrimSpace(ref.SourceText) != "" {
		var b strings.Builder
		b.WriteString("Below is an example source document and its correct QTI output files.\n")
		b.WriteString("--- EXAMPLE SOURCE ---\n" + ref.SourceText + "\n")
		b.WriteString("--- EXPECTED TEST FILE ---\n" + ref.Test + "\n")
		for i, item := range ref.Items {
			fmt.Fprintf(&b, "--- EXPECTED ITEM FILE %d ---\n%s\n", i+1, item)
		}
		msgs = append(msgs, chatMessage{Role: "assistant", Content: b.String()})
	}
	if strings.TrimSpace(ref.Notes) != "" {
		msgs = append(msgs, chatMessage{Role: "assistant", Content: "Metamodel notes to follow:\n" + ref.Notes})
	}
	return msgs
}

func (c *Client) call(ctx context.Context, body []byte) (string, error) {
	url := strings.TrimSuffix(c.BaseURL, "/")
	if url == "" {
		url = "https://api.openai.com/v1"
	}
	if !strings.HasSuffix(url, "/chat/completions") {
		url += "/chat/completions"
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}

	httpClient := c.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return "", err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("genai: status %d: %s", resp.StatusCode, truncate(string(data), 200))
	}
	var out chatResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return "", fmt.Errorf("genai: bad response: %w", err)
	}
	if out.Error != nil {
		return "", fmt.Errorf("genai: %s", out.Error.Message)
	}
	if len(out.Choices) == 0 {
		return "", nil
	}
	return out.Choices[0].Message.Content, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
