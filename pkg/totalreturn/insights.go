package totalreturn

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"google.golang.org/genai"
)

const (
	defaultAIBaseURL      = "https://api.openai.com/v1"
	defaultGeminiBaseURL  = "https://generativelanguage.googleapis.com/v1beta"
	aiRequestTimeout      = 5 * time.Minute
	maxAIResponseBodySize = 2 << 20
	aiMaxOutputTokens     = 8192
)

const insightsSystemPrompt = `You are a portfolio analysis assistant. You are given a snapshot of a
reconciled brokerage portfolio: per-symbol shares, net invested cash,
dividends received, current price, market value, and total return.

Respond with a single JSON object, no Markdown and no extra text, with
these fields:
- overall_summary: string
- risk_level: string (low/medium/high)
- key_findings: string[]
- recommendations: [{symbol, action, rationale}]
- disclaimer: string

Requirements:
- action should be one of increase/reduce/hold.
- Flag concentration risk when one holding dominates the portfolio.
- Never promise returns; the disclaimer must state this is not
  financial advice.`

// InsightsRequest defines inputs for an AI portfolio review. BaseURL may
// point at any OpenAI-compatible endpoint or at the Gemini API.
type InsightsRequest struct {
	BaseURL string
	APIKey  string
	Model   string
	Focus   string
}

// InsightsRecommendation is one actionable suggestion from the model.
type InsightsRecommendation struct {
	Symbol    string `json:"symbol,omitempty"`
	Action    string `json:"action"`
	Rationale string `json:"rationale"`
}

// InsightsResult is the structured review returned to clients.
type InsightsResult struct {
	GeneratedAt     string                   `json:"generated_at"`
	Model           string                   `json:"model"`
	OverallSummary  string                   `json:"overall_summary"`
	RiskLevel       string                   `json:"risk_level"`
	KeyFindings     []string                 `json:"key_findings"`
	Recommendations []InsightsRecommendation `json:"recommendations"`
	Disclaimer      string                   `json:"disclaimer"`
}

type insightsModelResponse struct {
	OverallSummary  string                   `json:"overall_summary"`
	RiskLevel       string                   `json:"risk_level"`
	KeyFindings     []string                 `json:"key_findings"`
	Recommendations []InsightsRecommendation `json:"recommendations"`
	Disclaimer      string                   `json:"disclaimer"`
}

type aiChatRequest struct {
	EndpointURL  string
	APIKey       string
	Model        string
	SystemPrompt string
	UserPrompt   string
	Logger       *slog.Logger
}

type aiChatResult struct {
	Model   string
	Content string
}

// Swappable in tests to avoid network calls.
var aiChatCompletion = requestAIChatCompletion
var aiGeminiCompletion = requestAIByGeminiNative

// AnalyzePortfolio sends the enriched portfolio snapshot to the
// configured model and returns its structured review.
func (c *Core) AnalyzePortfolio(ctx context.Context, req InsightsRequest) (*InsightsResult, error) {
	req.APIKey = strings.TrimSpace(req.APIKey)
	if req.APIKey == "" {
		return nil, NewError(ErrCodeInvalidInput, "api_key is required")
	}
	req.Model = strings.TrimSpace(req.Model)
	if req.Model == "" {
		return nil, NewError(ErrCodeInvalidInput, "model is required")
	}

	view, err := c.GetPortfolio(ctx)
	if err != nil {
		return nil, err
	}
	if len(view.Rows) == 0 {
		return nil, NewError(ErrCodeMissingData, "no holdings to analyze")
	}

	userPrompt, err := buildInsightsUserPrompt(view, req.Focus)
	if err != nil {
		return nil, err
	}

	endpointURL, err := buildAICompletionsEndpoint(req.BaseURL)
	if err != nil {
		return nil, NewError(ErrCodeInvalidInput, err.Error())
	}

	chatResult, err := aiChatCompletion(ctx, aiChatRequest{
		EndpointURL:  endpointURL,
		APIKey:       req.APIKey,
		Model:        req.Model,
		SystemPrompt: insightsSystemPrompt,
		UserPrompt:   userPrompt,
		Logger:       c.logger,
	})
	if err != nil {
		return nil, WrapError(ErrCodeUpstream, "ai completion", err)
	}

	parsed, err := parseInsightsResponse(chatResult.Content)
	if err != nil {
		return nil, WrapError(ErrCodeUpstream, "ai response", err)
	}

	model := strings.TrimSpace(chatResult.Model)
	if model == "" {
		model = req.Model
	}
	riskLevel := strings.TrimSpace(parsed.RiskLevel)
	if riskLevel == "" {
		riskLevel = "unknown"
	}
	disclaimer := strings.TrimSpace(parsed.Disclaimer)
	if disclaimer == "" {
		disclaimer = "This analysis is informational only and is not financial advice."
	}

	return &InsightsResult{
		GeneratedAt:     time.Now().UTC().Format(time.RFC3339),
		Model:           model,
		OverallSummary:  strings.TrimSpace(parsed.OverallSummary),
		RiskLevel:       riskLevel,
		KeyFindings:     normalizeFindings(parsed.KeyFindings),
		Recommendations: normalizeRecommendations(parsed.Recommendations),
		Disclaimer:      disclaimer,
	}, nil
}

func buildInsightsUserPrompt(view *PortfolioView, focus string) (string, error) {
	payload, err := json.Marshal(view)
	if err != nil {
		return "", fmt.Errorf("marshal portfolio snapshot: %w", err)
	}
	var sb strings.Builder
	sb.WriteString("Review this portfolio snapshot:\n")
	sb.Write(payload)
	if focus = strings.TrimSpace(focus); focus != "" {
		sb.WriteString("\n\nFocus area requested by the user: ")
		sb.WriteString(focus)
	}
	return sb.String(), nil
}

func buildAICompletionsEndpoint(baseURL string) (string, error) {
	trimmed := strings.TrimSpace(baseURL)
	if trimmed == "" {
		trimmed = defaultAIBaseURL
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "https://" + trimmed
	}
	trimmed = strings.TrimRight(trimmed, "/")
	lower := strings.ToLower(trimmed)

	endpoint := ""
	switch {
	case strings.HasSuffix(lower, "/chat/completions"):
		endpoint = trimmed
	case strings.HasSuffix(lower, "/v1"):
		endpoint = trimmed + "/chat/completions"
	default:
		endpoint = trimmed + "/v1/chat/completions"
	}

	parsed, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("invalid base_url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", fmt.Errorf("invalid base_url scheme: %s", parsed.Scheme)
	}
	if parsed.Host == "" {
		return "", fmt.Errorf("invalid base_url host")
	}
	return endpoint, nil
}

func isGeminiRequest(endpointURL, model string) bool {
	modelLower := strings.ToLower(strings.TrimSpace(model))
	if strings.HasPrefix(modelLower, "gemini") {
		return true
	}
	endpointLower := strings.ToLower(strings.TrimSpace(endpointURL))
	if endpointLower == "" {
		return false
	}
	return strings.Contains(endpointLower, "generativelanguage.googleapis.com") ||
		strings.Contains(endpointLower, "/gemini")
}

func requestAIChatCompletion(ctx context.Context, req aiChatRequest) (aiChatResult, error) {
	if isGeminiRequest(req.EndpointURL, req.Model) {
		return aiGeminiCompletion(ctx, req)
	}

	payload := map[string]any{
		"model": req.Model,
		"messages": []map[string]string{
			{"role": "system", "content": req.SystemPrompt},
			{"role": "user", "content": req.UserPrompt},
		},
		"temperature": 0.2,
		"stream":      false,
		"max_tokens":  aiMaxOutputTokens,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return aiChatResult{}, fmt.Errorf("marshal ai request: %w", err)
	}

	requestCtx, cancel := context.WithTimeout(ctx, aiRequestTimeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(requestCtx, http.MethodPost, req.EndpointURL, bytes.NewReader(body))
	if err != nil {
		return aiChatResult{}, fmt.Errorf("build ai request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+req.APIKey)

	respBody, err := executeAIRequest(httpReq)
	if err != nil {
		return aiChatResult{}, err
	}

	var decoded struct {
		Model   string `json:"model"`
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(respBody, &decoded); err != nil {
		return aiChatResult{}, fmt.Errorf("decode ai response: %w", err)
	}
	if len(decoded.Choices) == 0 || strings.TrimSpace(decoded.Choices[0].Message.Content) == "" {
		return aiChatResult{}, fmt.Errorf("ai response content is empty")
	}
	return aiChatResult{
		Model:   decoded.Model,
		Content: strings.TrimSpace(decoded.Choices[0].Message.Content),
	}, nil
}

func requestAIByGeminiNative(ctx context.Context, req aiChatRequest) (aiChatResult, error) {
	clientConfig, err := buildGeminiClientConfig(req.EndpointURL, req.APIKey)
	if err != nil {
		return aiChatResult{}, err
	}
	client, err := genai.NewClient(ctx, clientConfig)
	if err != nil {
		return aiChatResult{}, fmt.Errorf("create gemini client failed: %w", err)
	}

	requestConfig := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{{Text: req.SystemPrompt}},
		},
		Temperature:      genai.Ptr(float32(0.2)),
		MaxOutputTokens:  aiMaxOutputTokens,
		ResponseMIMEType: "application/json",
	}
	response, err := client.Models.GenerateContent(ctx, req.Model, genai.Text(req.UserPrompt), requestConfig)
	if err != nil {
		return aiChatResult{}, fmt.Errorf("gemini generate content failed: %w", err)
	}
	content := strings.TrimSpace(response.Text())
	if content == "" {
		return aiChatResult{}, fmt.Errorf("ai response content is empty")
	}
	model := strings.TrimSpace(response.ModelVersion)
	if model == "" {
		model = req.Model
	}
	return aiChatResult{Model: model, Content: content}, nil
}

func buildGeminiClientConfig(endpoint, apiKey string) (*genai.ClientConfig, error) {
	normalized := strings.TrimSpace(endpoint)
	if normalized == "" || isOpenAIDefaultHost(normalized) {
		normalized = defaultGeminiBaseURL
	}
	baseURL, apiVersion, err := parseGeminiBaseURLAndVersion(normalized)
	if err != nil {
		return nil, err
	}
	return &genai.ClientConfig{
		APIKey:  strings.TrimSpace(apiKey),
		Backend: genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{
			BaseURL:    baseURL,
			APIVersion: apiVersion,
		},
	}, nil
}

func isOpenAIDefaultHost(endpoint string) bool {
	parsed, err := url.Parse(strings.TrimSpace(endpoint))
	if err != nil {
		return false
	}
	return strings.EqualFold(parsed.Hostname(), "api.openai.com")
}

func parseGeminiBaseURLAndVersion(endpoint string) (string, string, error) {
	trimmed := strings.TrimSpace(endpoint)
	if !strings.Contains(trimmed, "://") {
		trimmed = "https://" + trimmed
	}
	parsed, err := url.Parse(trimmed)
	if err != nil {
		return "", "", fmt.Errorf("invalid gemini endpoint: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", "", fmt.Errorf("invalid gemini endpoint scheme: %s", parsed.Scheme)
	}
	if parsed.Host == "" {
		return "", "", fmt.Errorf("invalid gemini endpoint host")
	}

	path := strings.Trim(parsed.Path, "/")
	segments := []string{}
	if path != "" {
		segments = strings.Split(path, "/")
	}

	apiVersion := "v1beta"
	prefixSegments := segments
	for idx, segment := range segments {
		if strings.HasPrefix(strings.ToLower(strings.TrimSpace(segment)), "v1") {
			apiVersion = segment
			prefixSegments = segments[:idx]
			break
		}
	}

	basePath := strings.Trim(strings.Join(prefixSegments, "/"), "/")
	baseURL := fmt.Sprintf("%s://%s/", parsed.Scheme, parsed.Host)
	if basePath != "" {
		baseURL += basePath + "/"
	}
	return baseURL, apiVersion, nil
}

func executeAIRequest(httpReq *http.Request) ([]byte, error) {
	client := &http.Client{Timeout: aiRequestTimeout}
	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("ai request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxAIResponseBodySize))
	if err != nil {
		return nil, fmt.Errorf("read ai response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		message := parseAIErrorMessage(respBody)
		if message == "" {
			message = fmt.Sprintf("status %d", resp.StatusCode)
		}
		return nil, fmt.Errorf("ai upstream error: %s", message)
	}
	return respBody, nil
}

func parseAIErrorMessage(body []byte) string {
	var payload struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	if strings.TrimSpace(payload.Error.Message) != "" {
		return strings.TrimSpace(payload.Error.Message)
	}
	return strings.TrimSpace(payload.Message)
}

func parseInsightsResponse(content string) (*insightsModelResponse, error) {
	cleaned := cleanupModelJSON(content)
	var parsed insightsModelResponse
	if err := json.Unmarshal([]byte(cleaned), &parsed); err != nil {
		return nil, fmt.Errorf("model returned invalid JSON: %w", err)
	}
	return &parsed, nil
}

// cleanupModelJSON strips Markdown fences and leading or trailing prose
// around the JSON object some models still emit.
func cleanupModelJSON(content string) string {
	trimmed := strings.TrimSpace(content)
	if strings.HasPrefix(trimmed, "```") {
		lines := strings.Split(trimmed, "\n")
		if len(lines) >= 2 {
			lines = lines[1:]
			if len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "```" {
				lines = lines[:len(lines)-1]
			}
			trimmed = strings.Join(lines, "\n")
		}
	}
	start := strings.Index(trimmed, "{")
	end := strings.LastIndex(trimmed, "}")
	if start >= 0 && end > start {
		trimmed = trimmed[start : end+1]
	}
	return strings.TrimSpace(trimmed)
}

func normalizeFindings(findings []string) []string {
	result := make([]string, 0, len(findings))
	for _, item := range findings {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func normalizeRecommendations(items []InsightsRecommendation) []InsightsRecommendation {
	result := make([]InsightsRecommendation, 0, len(items))
	for _, item := range items {
		action := strings.TrimSpace(strings.ToLower(item.Action))
		if action == "" {
			action = "hold"
		}
		result = append(result, InsightsRecommendation{
			Symbol:    strings.TrimSpace(item.Symbol),
			Action:    action,
			Rationale: strings.TrimSpace(item.Rationale),
		})
	}
	return result
}
