package models

import (
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/andybalholm/cascadia"
)

// Action kinds accepted by POST /api/v1/analyze.
const (
	ActionAnalyzeImage      = "analyze_image"
	ActionSummarizeText     = "summarize_text"
	ActionExtractHTML       = "extract_html"
	ActionExtractStructured = "extract_structured"
)

// Viewport is an optional browser viewport override.
type Viewport struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// RenderOptions controls how the page is loaded and captured.
type RenderOptions struct {
	// Viewport overrides the browser viewport. Both dimensions must be
	// strictly positive when present.
	Viewport *Viewport `json:"viewport,omitempty"`

	// FullPage makes screenshots span the entire scrollable page instead
	// of only the visible viewport. Default: false.
	FullPage bool `json:"fullPage,omitempty"`

	// WaitForSelector is a CSS selector to await after navigation.
	// The wait is bounded at 10 seconds; a missing element fails the request.
	WaitForSelector string `json:"waitForSelector,omitempty"`

	// WaitForNetworkIdle waits until the page has at most 2 in-flight
	// network requests sustained for 500ms. Default: true.
	WaitForNetworkIdle *bool `json:"waitForNetworkIdle,omitempty"`

	// Stealth enables anti-bot-detection evasions (navigator.webdriver masking).
	// Default: false.
	Stealth bool `json:"stealth,omitempty"`

	// Timeout is the maximum duration in seconds for the browser phase
	// (navigation + waits + extraction). Default: 30. Max: 120.
	Timeout int `json:"timeout,omitempty"`
}

// AnalyzeRequest is the payload for POST /api/v1/analyze.
type AnalyzeRequest struct {
	// URL is the target page to analyze. Required, absolute http(s).
	URL string `json:"url"`

	// Action selects the extraction/analysis mode. Required.
	Action string `json:"action"`

	// Prompt is the instruction passed to the model. Required for
	// analyze_image, optional otherwise.
	Prompt string `json:"prompt,omitempty"`

	// Model overrides the per-action default model identifier.
	Model string `json:"model,omitempty"`

	// Schema is an optional JSON shape for extract_structured. When absent
	// the model is asked for a generic key-facts object.
	Schema json.RawMessage `json:"schema,omitempty"`

	// RenderOptions controls page loading and capture.
	RenderOptions RenderOptions `json:"renderOptions,omitempty"`
}

// Defaults applies default values to unset fields. Model defaults are
// per-action and applied by the pipeline's policy table, not here.
func (r *AnalyzeRequest) Defaults() {
	if r.RenderOptions.WaitForNetworkIdle == nil {
		t := true
		r.RenderOptions.WaitForNetworkIdle = &t
	}
	if r.RenderOptions.Timeout == 0 {
		r.RenderOptions.Timeout = 30
	}
}

// validActions is the closed action enumeration. Unrecognized values are
// rejected, never defaulted.
var validActions = map[string]struct{}{
	ActionAnalyzeImage:      {},
	ActionSummarizeText:     {},
	ActionExtractHTML:       {},
	ActionExtractStructured: {},
}

// Validate type-checks the request and returns field-level errors.
// It must pass before any remote resource is acquired.
func (r *AnalyzeRequest) Validate() []FieldError {
	var errs []FieldError

	if r.URL == "" {
		errs = append(errs, FieldError{Field: "url", Message: "url is required"})
	} else if u, err := url.Parse(r.URL); err != nil || !u.IsAbs() || u.Host == "" ||
		(u.Scheme != "http" && u.Scheme != "https") {
		errs = append(errs, FieldError{Field: "url", Message: "url must be an absolute http(s) URL"})
	}

	if r.Action == "" {
		errs = append(errs, FieldError{Field: "action", Message: "action is required"})
	} else if _, ok := validActions[r.Action]; !ok {
		errs = append(errs, FieldError{
			Field:   "action",
			Message: fmt.Sprintf("unknown action %q", r.Action),
		})
	}

	if r.Action == ActionAnalyzeImage && r.Prompt == "" {
		errs = append(errs, FieldError{Field: "prompt", Message: "prompt is required for analyze_image"})
	}

	if len(r.Schema) > 0 && !json.Valid(r.Schema) {
		errs = append(errs, FieldError{Field: "schema", Message: "schema must be valid JSON"})
	}

	errs = append(errs, r.RenderOptions.validate()...)
	return errs
}

func (o *RenderOptions) validate() []FieldError {
	var errs []FieldError

	if v := o.Viewport; v != nil {
		if v.Width <= 0 {
			errs = append(errs, FieldError{Field: "renderOptions.viewport.width", Message: "width must be a positive integer"})
		}
		if v.Height <= 0 {
			errs = append(errs, FieldError{Field: "renderOptions.viewport.height", Message: "height must be a positive integer"})
		}
	}

	// Reject malformed selectors up front, before a browser is touched.
	if o.WaitForSelector != "" {
		if _, err := cascadia.ParseGroup(o.WaitForSelector); err != nil {
			errs = append(errs, FieldError{
				Field:   "renderOptions.waitForSelector",
				Message: fmt.Sprintf("invalid CSS selector: %v", err),
			})
		}
	}

	if o.Timeout < 0 || o.Timeout > 120 {
		errs = append(errs, FieldError{Field: "renderOptions.timeout", Message: "timeout must be between 1 and 120 seconds"})
	}

	return errs
}

// LinkAnalyzeRequest is the payload for POST /api/v1/analyze/link.
// The link endpoint uses a fixed model and its own truncation bound.
type LinkAnalyzeRequest struct {
	// URL is the link to analyze. Required, absolute http(s).
	URL string `json:"url"`

	// Prompt optionally steers the analysis. When empty a generic
	// "what is this page about" instruction is used.
	Prompt string `json:"prompt,omitempty"`
}

// Validate type-checks the link request.
func (r *LinkAnalyzeRequest) Validate() []FieldError {
	var errs []FieldError
	if r.URL == "" {
		errs = append(errs, FieldError{Field: "url", Message: "url is required"})
	} else if u, err := url.Parse(r.URL); err != nil || !u.IsAbs() || u.Host == "" ||
		(u.Scheme != "http" && u.Scheme != "https") {
		errs = append(errs, FieldError{Field: "url", Message: "url must be an absolute http(s) URL"})
	}
	return errs
}
