// Package llm talks to the language-model endpoint. The model is a black
// box: it either returns free text or exactly one named tool invocation.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"fulfillment-assistant/internal/common/config"
	stderrors "fulfillment-assistant/internal/common/errors"
	commonhttp "fulfillment-assistant/internal/common/http"
	"fulfillment-assistant/internal/common/metrics"
	"fulfillment-assistant/internal/models"
)

type HTTPClient struct {
	baseURL     string
	apiKey      string
	model       string
	temperature float64
	http        *commonhttp.Client
}

func NewHTTPClient(cfg config.ModelConfig) *HTTPClient {
	return &HTTPClient{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:      cfg.APIKey,
		model:       cfg.Name,
		temperature: cfg.Temperature,
		http:        commonhttp.NewClient(time.Duration(cfg.Timeout) * time.Millisecond),
	}
}

type wirePart struct {
	Text         string        `json:"text,omitempty"`
	FunctionCall *wireFuncCall `json:"functionCall,omitempty"`
}

type wireFuncCall struct {
	Name string          `json:"name"`
	Args json.RawMessage `json:"args"`
}

type wireContent struct {
	Role  string     `json:"role,omitempty"`
	Parts []wirePart `json:"parts"`
}

type generateRequest struct {
	SystemInstruction *wireContent             `json:"system_instruction,omitempty"`
	Contents          []wireContent            `json:"contents"`
	Tools             []map[string]interface{} `json:"tools,omitempty"`
	GenerationConfig  map[string]interface{}   `json:"generation_config,omitempty"`
}

type generateResponse struct {
	Candidates []struct {
		Content wireContent `json:"content"`
	} `json:"candidates"`
}

// Send posts the full ordered history and returns the model's tagged reply.
func (c *HTTPClient) Send(ctx context.Context, history []models.ConversationTurn, systemInstruction string) (*Reply, error) {
	req := generateRequest{
		Contents: make([]wireContent, 0, len(history)),
		Tools: []map[string]interface{}{
			{"function_declarations": functionDeclarations()},
		},
		GenerationConfig: map[string]interface{}{
			"temperature": c.temperature,
		},
	}
	if systemInstruction != "" {
		req.SystemInstruction = &wireContent{Parts: []wirePart{{Text: systemInstruction}}}
	}
	for _, turn := range history {
		req.Contents = append(req.Contents, wireContent{
			Role:  string(turn.Role),
			Parts: []wirePart{{Text: turn.Text}},
		})
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s", c.baseURL, c.model, c.apiKey)
	resp, err := c.http.PostJSON(ctx, url, req, nil)
	if err != nil {
		return nil, stderrors.NewModelCallFailedError(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, stderrors.NewModelCallFailedError(err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, stderrors.NewModelCallFailedError(
			fmt.Errorf("status %d: %s", resp.StatusCode, string(body)))
	}

	var out generateResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, stderrors.NewModelCallFailedError(fmt.Errorf("decode: %w", err))
	}
	if len(out.Candidates) == 0 {
		return nil, stderrors.NewModelCallFailedError(fmt.Errorf("no candidates in response"))
	}

	reply := parseReply(out.Candidates[0].Content.Parts)
	metrics.ModelTurns.WithLabelValues(string(reply.Kind)).Inc()
	return reply, nil
}

// parseReply collapses the candidate parts into the tagged union. A function
// call anywhere in the parts wins over text; the model is not supposed to
// mix the two, and when it does the text fragments are dropped.
func parseReply(parts []wirePart) *Reply {
	var text strings.Builder
	for _, p := range parts {
		if p.FunctionCall != nil {
			return &Reply{
				Kind: ReplyToolCall,
				Tool: &ToolCall{Name: p.FunctionCall.Name, Args: p.FunctionCall.Args},
			}
		}
		text.WriteString(p.Text)
	}
	return &Reply{Kind: ReplyText, Text: text.String()}
}
