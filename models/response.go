package models

import "encoding/json"

// AnalyzeResponse is the response for POST /api/v1/analyze.
type AnalyzeResponse struct {
	// Success indicates whether the pipeline completed. It is true even for
	// an unresolved structured extraction (degraded, not fatal).
	Success bool `json:"success"`

	// Data is the action-specific payload. Populated only on success.
	Data *AnalyzeData `json:"data,omitempty"`

	// Metadata describes how the result was produced.
	Metadata *Metadata `json:"metadata,omitempty"`

	// Error is populated only when Success is false.
	Error *ErrorDetail `json:"error,omitempty"`
}

// AnalyzeData carries the action-specific result. Exactly one of the
// content fields is set, selected by the request action.
type AnalyzeData struct {
	// Analysis is the model's reply for analyze_image.
	Analysis string `json:"analysis,omitempty"`

	// Summary is the model's reply for summarize_text.
	Summary string `json:"summary,omitempty"`

	// HTML is the serialized page markup for extract_html.
	// No inference is performed for this action.
	HTML string `json:"html,omitempty"`

	// Extracted is the parsed JSON document for extract_structured when the
	// model reply resolved.
	Extracted json.RawMessage `json:"extracted,omitempty"`

	// Unresolved marks a structured extraction whose reply could not be
	// parsed as JSON. Raw then carries the verbatim model reply.
	Unresolved bool   `json:"unresolved,omitempty"`
	Raw        string `json:"raw,omitempty"`
}

// Metadata describes the request that produced a result.
type Metadata struct {
	URL    string `json:"url"`
	Action string `json:"action"`

	// ModelUsed is the model that ran, or the per-action default when no
	// model was invoked (extract_html reports its default for response-shape
	// stability even though it never calls a model).
	ModelUsed string `json:"modelUsed"`

	// Truncated marks results whose text input was clipped to the action's
	// bound before inference. A truncated result is not a complete-document
	// result.
	Truncated bool `json:"truncated,omitempty"`

	// ExecutionTimeMs is the end-to-end handler duration.
	ExecutionTimeMs int64 `json:"executionTimeMs"`

	// Usage reports model token consumption when inference ran.
	Usage *LLMUsage `json:"usage,omitempty"`
}

// LLMUsage reports token consumption from the model call.
type LLMUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// LinkAnalyzeResponse is the response for POST /api/v1/analyze/link.
type LinkAnalyzeResponse struct {
	Success  bool         `json:"success"`
	Data     *LinkData    `json:"data,omitempty"`
	Metadata *Metadata    `json:"metadata,omitempty"`
	Error    *ErrorDetail `json:"error,omitempty"`
}

// LinkData is the link-analysis payload: a model summary plus page metadata
// pulled straight from the fetched HTML.
type LinkData struct {
	Analysis    string `json:"analysis"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	SiteName    string `json:"site_name,omitempty"`
	OGImage     string `json:"og_image,omitempty"`

	// FetchedVia records which path produced the HTML: "http" or "browser".
	FetchedVia string `json:"fetched_via"`
}

// HealthResponse is the response for GET /api/v1/health.
type HealthResponse struct {
	Status    string    `json:"status"` // "healthy" or "degraded"
	Uptime    string    `json:"uptime"`
	PoolStats PoolStats `json:"pool_stats"`
	Version   string    `json:"version"`
}

// PoolStats reports the state of the browser page pool.
type PoolStats struct {
	MaxPages    int `json:"max_pages"`
	ActivePages int `json:"active_pages"`
}
