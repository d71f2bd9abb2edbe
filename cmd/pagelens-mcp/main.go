package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// analyzeRequest mirrors the Pagelens API request model.
type analyzeRequest struct {
	URL    string          `json:"url"`
	Action string          `json:"action"`
	Prompt string          `json:"prompt,omitempty"`
	Model  string          `json:"model,omitempty"`
	Schema json.RawMessage `json:"schema,omitempty"`
}

// analyzeResponse mirrors the Pagelens API response model.
type analyzeResponse struct {
	Success bool `json:"success"`
	Data    *struct {
		Analysis   string          `json:"analysis"`
		Summary    string          `json:"summary"`
		HTML       string          `json:"html"`
		Extracted  json.RawMessage `json:"extracted"`
		Unresolved bool            `json:"unresolved"`
		Raw        string          `json:"raw"`
	} `json:"data"`
	Metadata *struct {
		ModelUsed string `json:"modelUsed"`
		Truncated bool   `json:"truncated"`
	} `json:"metadata"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func main() {
	apiURL := os.Getenv("PAGELENS_API_URL")
	if apiURL == "" {
		apiURL = "http://127.0.0.1:8080"
	}
	apiKey := os.Getenv("PAGELENS_API_KEY")
	if apiKey == "" {
		fmt.Fprintln(os.Stderr, "PAGELENS_API_KEY is required")
		os.Exit(1)
	}

	s := server.NewMCPServer(
		"pagelens",
		"0.1.0",
		server.WithToolCapabilities(false),
	)

	analyzePageTool := mcp.NewTool("analyze_page",
		mcp.WithDescription("Load a URL in a headless browser and analyze it: caption a screenshot, summarize the page text, or return the rendered HTML."),
		mcp.WithString("url",
			mcp.Required(),
			mcp.Description("The URL of the web page to analyze"),
		),
		mcp.WithString("action",
			mcp.Required(),
			mcp.Description("Analysis mode: 'analyze_image' (screenshot captioning, requires prompt), 'summarize_text', or 'extract_html'"),
			mcp.Enum("analyze_image", "summarize_text", "extract_html"),
		),
		mcp.WithString("prompt",
			mcp.Description("Instruction for the model; required for analyze_image"),
		),
		mcp.WithString("model",
			mcp.Description("Model override (defaults depend on the action)"),
		),
	)
	s.AddTool(analyzePageTool, handleAnalyze(apiURL, apiKey, ""))

	extractStructuredTool := mcp.NewTool("extract_structured",
		mcp.WithDescription("Load a URL in a headless browser and extract structured JSON from its text using a model. Optionally supply a JSON schema describing the desired shape."),
		mcp.WithString("url",
			mcp.Required(),
			mcp.Description("The URL of the web page to extract from"),
		),
		mcp.WithString("schema",
			mcp.Description("JSON schema string describing the desired output structure"),
		),
		mcp.WithString("prompt",
			mcp.Description("Optional focus instruction for the extraction"),
		),
	)
	s.AddTool(extractStructuredTool, handleAnalyze(apiURL, apiKey, "extract_structured"))

	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}

// handleAnalyze forwards a tool call to POST /api/v1/analyze. When
// fixedAction is non-empty it overrides the tool arguments.
func handleAnalyze(apiURL, apiKey, fixedAction string) server.ToolHandlerFunc {
	client := &http.Client{Timeout: 180 * time.Second}

	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		url, err := request.RequireString("url")
		if err != nil {
			return mcp.NewToolResultError("url is required"), nil
		}

		action := fixedAction
		if action == "" {
			if action, err = request.RequireString("action"); err != nil {
				return mcp.NewToolResultError("action is required"), nil
			}
		}

		reqBody := analyzeRequest{
			URL:    url,
			Action: action,
			Prompt: request.GetString("prompt", ""),
			Model:  request.GetString("model", ""),
		}
		if schema := request.GetString("schema", ""); schema != "" {
			reqBody.Schema = json.RawMessage(schema)
		}

		body, err := json.Marshal(reqBody)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to marshal request: %v", err)), nil
		}

		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL+"/api/v1/analyze", bytes.NewReader(body))
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to create request: %v", err)), nil
		}
		httpReq.Header.Set("Content-Type", "application/json")
		httpReq.Header.Set("X-API-Key", apiKey)

		resp, err := client.Do(httpReq)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("API request failed: %v", err)), nil
		}
		defer resp.Body.Close()

		respBody, err := io.ReadAll(resp.Body)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to read response: %v", err)), nil
		}

		var analyzeResp analyzeResponse
		if err := json.Unmarshal(respBody, &analyzeResp); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to parse response: %v", err)), nil
		}

		if !analyzeResp.Success {
			errMsg := "analyze failed"
			if analyzeResp.Error != nil {
				errMsg = fmt.Sprintf("[%s] %s", analyzeResp.Error.Code, analyzeResp.Error.Message)
			}
			return mcp.NewToolResultError(errMsg), nil
		}

		return mcp.NewToolResultText(formatResult(&analyzeResp)), nil
	}
}

// formatResult flattens the action-specific payload into tool output text.
func formatResult(resp *analyzeResponse) string {
	var result string
	switch {
	case resp.Data == nil:
		result = "(empty result)"
	case resp.Data.Analysis != "":
		result = resp.Data.Analysis
	case resp.Data.Summary != "":
		result = resp.Data.Summary
	case resp.Data.HTML != "":
		result = resp.Data.HTML
	case resp.Data.Unresolved:
		result = "Model reply could not be parsed as JSON:\n" + resp.Data.Raw
	default:
		result = string(resp.Data.Extracted)
	}

	if m := resp.Metadata; m != nil {
		result += fmt.Sprintf("\n\n---\nModel: %s", m.ModelUsed)
		if m.Truncated {
			result += " (input truncated)"
		}
	}
	return result
}
