package api

// insightsPayload is the request body for POST /api/portfolio/insights.
type insightsPayload struct {
	BaseURL string `json:"base_url"`
	APIKey  string `json:"api_key"`
	Model   string `json:"model"`
	Focus   string `json:"focus"`
}
