package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"voice-assistant/internal/domain"
	"voice-assistant/internal/infra"
)

// Client calls the Gemini generateContent API to produce conversational
// replies. Network and rate-limit errors get a single retry; on persistent
// failure the caller skips the turn.
type Client struct {
	apiKey       string
	httpClient   *http.Client
	baseURL      string
	model        string
	systemPrompt string
	genConfig    generationConfig
}

type Config struct {
	Model           string
	SystemPrompt    string
	Temperature     float64
	TopP            float64
	TopK            int
	MaxOutputTokens int
}

func NewClient(apiKey string, cfg Config) *Client {
	return NewClientWithURL(apiKey, cfg, "https://generativelanguage.googleapis.com/v1beta")
}

func NewClientWithURL(apiKey string, cfg Config, baseURL string) *Client {
	if cfg.Model == "" {
		cfg.Model = "gemini-1.5-pro"
	}
	if cfg.MaxOutputTokens == 0 {
		cfg.MaxOutputTokens = 1024
	}
	return &Client{
		apiKey:       apiKey,
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		baseURL:      baseURL,
		model:        cfg.Model,
		systemPrompt: cfg.SystemPrompt,
		genConfig: generationConfig{
			MaxOutputTokens: cfg.MaxOutputTokens,
			Temperature:     cfg.Temperature,
			TopP:            cfg.TopP,
			TopK:            cfg.TopK,
		},
	}
}

type content struct {
	Parts []part `json:"parts"`
	Role  string `json:"role,omitempty"`
}

type part struct {
	Text string `json:"text"`
}

type request struct {
	Contents         []content        `json:"contents"`
	SystemInstruct   *content         `json:"systemInstruction,omitempty"`
	GenerationConfig generationConfig `json:"generationConfig"`
	SafetySettings   []safetySetting  `json:"safetySettings,omitempty"`
}

type generationConfig struct {
	MaxOutputTokens int     `json:"maxOutputTokens"`
	Temperature     float64 `json:"temperature"`
	TopP            float64 `json:"topP,omitempty"`
	TopK            int     `json:"topK,omitempty"`
}

type safetySetting struct {
	Category  string `json:"category"`
	Threshold string `json:"threshold"`
}

var defaultSafetySettings = []safetySetting{
	{Category: "HARM_CATEGORY_HARASSMENT", Threshold: "BLOCK_MEDIUM_AND_ABOVE"},
	{Category: "HARM_CATEGORY_HATE_SPEECH", Threshold: "BLOCK_MEDIUM_AND_ABOVE"},
	{Category: "HARM_CATEGORY_SEXUALLY_EXPLICIT", Threshold: "BLOCK_MEDIUM_AND_ABOVE"},
	{Category: "HARM_CATEGORY_DANGEROUS_CONTENT", Threshold: "BLOCK_MEDIUM_AND_ABOVE"},
}

type response struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Message string `json:"message"`
		Code    int    `json:"code"`
	} `json:"error,omitempty"`
}

// Generate sends the transcript plus recent conversation history and
// returns the model's text reply.
func (c *Client) Generate(ctx context.Context, text string, history []domain.Exchange) (string, error) {
	reqBody := request{
		SystemInstruct: &content{
			Parts: []part{{Text: c.systemPrompt}},
		},
		Contents:         buildContents(text, history),
		GenerationConfig: c.genConfig,
		SafetySettings:   defaultSafetySettings,
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	var result response
	retryErr := infra.WithRetry(ctx, infra.SingleRetryConfig(), func() error {
		url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.baseURL, c.model, c.apiKey)
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
		if err != nil {
			return fmt.Errorf("creating request: %w", err)
		}

		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("sending request: %w", err)
		}
		defer resp.Body.Close()

		respBody, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("reading response: %w", err)
		}

		if resp.StatusCode != http.StatusOK {
			apiErr := fmt.Errorf("gemini API error %d: %s", resp.StatusCode, string(respBody))
			if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
				return infra.Permanent(fmt.Errorf("invalid API key: %w", apiErr))
			}
			if !infra.IsRetryableHTTPStatus(resp.StatusCode) {
				return infra.Permanent(apiErr)
			}
			return apiErr
		}

		if err = json.Unmarshal(respBody, &result); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}

		return nil
	})

	if retryErr != nil {
		return "", retryErr
	}

	if result.Error != nil {
		return "", fmt.Errorf("gemini error: %s", result.Error.Message)
	}

	if len(result.Candidates) == 0 || len(result.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("empty response from gemini")
	}

	return strings.TrimSpace(result.Candidates[0].Content.Parts[0].Text), nil
}

// buildContents lays out the history as alternating user/model contents
// with the current transcript last. Gemini names the assistant role "model".
func buildContents(text string, history []domain.Exchange) []content {
	contents := make([]content, 0, len(history)+1)
	for _, e := range history {
		role := "user"
		if e.Role == domain.RoleAssistant {
			role = "model"
		}
		contents = append(contents, content{
			Role:  role,
			Parts: []part{{Text: e.Text}},
		})
	}
	contents = append(contents, content{
		Role:  "user",
		Parts: []part{{Text: text}},
	})
	return contents
}
