package openai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/menulens/menu-digitizer/internal/llm"
)

// RunOCR implements llm.Gateway using a single multimodal chat/completions call.
// Every image is attached to one user message, either by URL or as a base64
// data URL with its MIME type.
func (c *Client) RunOCR(ctx context.Context, images []llm.ImageRef) (llm.Completion, error) {
	parts := make([]map[string]any, 0, len(images)+1)
	parts = append(parts, map[string]any{"type": "text", "text": buildOCRPrompt()})
	for _, img := range images {
		url := img.URL
		if url == "" {
			url = toDataURL(img)
		}
		parts = append(parts, map[string]any{
			"type":      "image_url",
			"image_url": map[string]any{"url": url},
		})
	}
	messages := []map[string]any{
		{"role": "user", "content": parts},
	}
	return c.chat(ctx, llm.StageOCR, c.cfg.VisionModel, messages)
}

// RunStructuring implements llm.Gateway with a text-only call. ocrResult is the
// canonical pages document produced by the OCR side of the pipeline.
func (c *Client) RunStructuring(ctx context.Context, ocrResult []byte) (llm.Completion, error) {
	messages := []map[string]any{
		{"role": "system", "content": structuringSystemPrompt},
		{"role": "user", "content": buildStructuringPrompt(ocrResult)},
	}
	return c.chat(ctx, llm.StageStructuring, c.cfg.TextModel, messages)
}

func (c *Client) chat(ctx context.Context, stage llm.Stage, model string, messages []map[string]any) (llm.Completion, error) {
	rid := uuid.New().String()
	start := time.Now()

	body := map[string]any{
		"model":           model,
		"temperature":     c.cfg.Temperature,
		"response_format": map[string]any{"type": "json_object"},
		"messages":        messages,
	}
	bs, err := json.Marshal(body)
	if err != nil {
		return llm.Completion{}, fmt.Errorf("encode request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(bs))
	if err != nil {
		return llm.Completion{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	c.logger.Info("llm.chat.request",
		"req_id", rid,
		"stage", string(stage),
		"model", model,
		"content_length", len(bs),
	)

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Error("llm.chat.send_error",
			"req_id", rid, "stage", string(stage), "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return llm.Completion{}, &llm.RequestError{Stage: stage, Status: llm.StatusTransport, Cause: err}
	}
	defer func(body io.ReadCloser) {
		if err := body.Close(); err != nil {
			c.logger.Warn("llm.chat.body_close_error", "req_id", rid, "error", err)
		}
	}(resp.Body)

	raw, _ := io.ReadAll(resp.Body)

	c.logger.Info("llm.chat.response",
		"req_id", rid,
		"stage", string(stage),
		"status", resp.StatusCode,
		"bytes", len(raw),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)

	if resp.StatusCode/100 != 2 {
		return llm.Completion{}, &llm.RequestError{Stage: stage, Status: resp.StatusCode, Raw: string(raw)}
	}

	var cc struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(raw, &cc); err != nil {
		c.logger.Error("llm.chat.decode_error",
			"req_id", rid, "stage", string(stage), "error", err, "raw_bytes", len(raw),
		)
		return llm.Completion{}, &llm.EmptyResponseError{Stage: stage, Raw: string(raw)}
	}
	if len(cc.Choices) == 0 || strings.TrimSpace(cc.Choices[0].Message.Content) == "" {
		c.logger.Error("llm.chat.no_choices", "req_id", rid, "stage", string(stage))
		return llm.Completion{}, &llm.EmptyResponseError{Stage: stage, Raw: string(raw)}
	}

	return llm.Completion{
		Content: strings.TrimSpace(cc.Choices[0].Message.Content),
		Raw:     raw,
	}, nil
}

func toDataURL(img llm.ImageRef) string {
	mt := img.MIMEType
	if mt == "" {
		mt = "application/octet-stream"
	}
	return "data:" + mt + ";base64," + base64.StdEncoding.EncodeToString(img.Data)
}
