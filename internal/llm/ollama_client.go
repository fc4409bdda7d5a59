package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/quorumlabs/quorum/internal/consts"
	"github.com/quorumlabs/quorum/internal/logger"
)

// OllamaClient implements Client against the Ollama generate REST API.
type OllamaClient struct {
	baseURL string
	client  *http.Client
}

// NewOllamaClient creates an Ollama client for the given base URL.
func NewOllamaClient(baseURL string) *OllamaClient {
	return &OllamaClient{
		baseURL: normalizeOllamaBaseURL(baseURL),
		client: &http.Client{
			Timeout: consts.DefaultModelCallTimeout,
		},
	}
}

func (c *OllamaClient) Complete(ctx context.Context, req *Request) (string, error) {
	if req == nil {
		return "", fmt.Errorf("completion request cannot be nil")
	}

	httpReq, err := c.newGenerateRequest(ctx, req, false)
	if err != nil {
		return "", err
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("ollama completion failed (is Ollama running and %q pulled?): %w", req.Model, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("ollama completion failed: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var genResp ollamaGenerateResponse
	if err := json.NewDecoder(resp.Body).Decode(&genResp); err != nil {
		return "", fmt.Errorf("ollama completion failed: %w", err)
	}

	if genResp.Error != "" {
		logger.Warn("ollama backend reported error for model %s: %s", req.Model, genResp.Error)
		return fmt.Sprintf("%s %s", ErrorMarker, genResp.Error), nil
	}

	return genResp.Response, nil
}

func (c *OllamaClient) Stream(ctx context.Context, req *Request, callback StreamCallback) (string, error) {
	if req == nil {
		return "", fmt.Errorf("completion request cannot be nil")
	}

	httpReq, err := c.newGenerateRequest(ctx, req, true)
	if err != nil {
		return "", err
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("ollama stream failed (is Ollama running and %q pulled?): %w", req.Model, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("ollama stream failed: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var out strings.Builder

	scanner := bufio.NewScanner(resp.Body)
	buffer := make([]byte, 0, consts.BufferSize256KB)
	scanner.Buffer(buffer, consts.BufferSize1MB)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var event ollamaGenerateStreamEvent
		if err := json.Unmarshal([]byte(line), &event); err != nil {
			return "", fmt.Errorf("ollama stream failed to decode chunk: %w", err)
		}

		if event.Error != "" {
			logger.Warn("ollama backend reported mid-stream error for model %s: %s", req.Model, event.Error)
			return fmt.Sprintf("%s %s", ErrorMarker, event.Error), nil
		}

		if event.Response != "" {
			out.WriteString(event.Response)
			if callback != nil {
				if err := callback(event.Response); err != nil {
					return "", err
				}
			}
		}

		if event.Done {
			break
		}
	}

	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("ollama stream failed: %w", err)
	}

	return out.String(), nil
}

func (c *OllamaClient) newGenerateRequest(ctx context.Context, req *Request, stream bool) (*http.Request, error) {
	if strings.TrimSpace(req.Model) == "" {
		return nil, fmt.Errorf("ollama request requires a model identifier")
	}

	payload := ollamaGenerateRequest{
		Model:  req.Model,
		System: req.System,
		Prompt: req.Prompt,
		Stream: stream,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode ollama request: %w", err)
	}

	endpoint := c.baseURL + "/api/generate"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create ollama request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	return httpReq, nil
}

type ollamaGenerateRequest struct {
	Model  string `json:"model"`
	System string `json:"system,omitempty"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type ollamaGenerateResponse struct {
	Model    string `json:"model"`
	Response string `json:"response"`
	Done     bool   `json:"done"`
	Error    string `json:"error,omitempty"`
}

type ollamaGenerateStreamEvent struct {
	Model    string `json:"model"`
	Response string `json:"response"`
	Done     bool   `json:"done"`
	Error    string `json:"error,omitempty"`
}

func normalizeOllamaBaseURL(baseURL string) string {
	url := strings.TrimSpace(baseURL)
	if url == "" {
		return "http://localhost:11434"
	}

	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		url = "http://" + url
	}

	return strings.TrimRight(url, "/")
}
