package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lenshq/pagelens/config"
	"github.com/lenshq/pagelens/content"
	"github.com/lenshq/pagelens/fetch"
	"github.com/lenshq/pagelens/llm"
	"github.com/lenshq/pagelens/models"
	"github.com/lenshq/pagelens/pipeline"
)

// linkPrompt is the default instruction for link analysis.
const linkPrompt = "Describe what this web page is about and who it is for, in 2-3 sentences."

// AnalyzeLink returns a handler for POST /api/v1/analyze/link — the
// link-analysis variant with its own fixed model and truncation bound.
//
// Flow:
//  1. Parse & validate request.
//  2. HTTP-first fetch (Chrome TLS fingerprint); fall back to the headless
//     browser when the HTML looks like a JS-dependent shell.
//  3. Distill main content to Markdown, extract page metadata.
//  4. Model call with the variant's fixed model.
func AnalyzeLink(fetcher *fetch.Fetcher, opener pipeline.Opener, distiller *content.Distiller, completer pipeline.Completer, cfg config.LinkConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		// ── 1. Parse & validate ─────────────────────────────────────
		var req models.LinkAnalyzeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, models.LinkAnalyzeResponse{
				Success: false,
				Error: &models.ErrorDetail{
					Code:    models.ErrCodeInvalidInput,
					Message: err.Error(),
				},
			})
			return
		}
		if fieldErrs := req.Validate(); len(fieldErrs) > 0 {
			c.JSON(http.StatusBadRequest, models.LinkAnalyzeResponse{
				Success: false,
				Error:   models.NewValidationError(fieldErrs).ToDetail(),
			})
			return
		}

		// ── 2. Fetch page HTML (HTTP first, browser fallback) ───────
		rawHTML, fetchedVia, err := fetchPage(c.Request.Context(), fetcher, opener, req.URL, cfg.HTTPTimeout)
		if err != nil {
			respondLinkError(c, err)
			return
		}

		// ── 3. Distill + page metadata ──────────────────────────────
		meta := content.ExtractMeta(rawHTML)
		markdown, err := distiller.Distill(rawHTML, req.URL)
		if err != nil {
			respondLinkError(c, models.NewAnalyzeError(
				models.ErrCodeInternal, "content distillation failed", err))
			return
		}
		clipped, truncated := content.Truncate(markdown, cfg.TruncateAt)

		// ── 4. Model call (fixed model for this endpoint) ───────────
		prompt := req.Prompt
		if prompt == "" {
			prompt = linkPrompt
		}
		reply, err := completer.Complete(c.Request.Context(), llm.CompletionRequest{
			Model: cfg.Model,
			Messages: []llm.Message{
				llm.SystemMessage("You analyze web pages from their distilled content. Be factual and brief."),
				llm.UserMessage(prompt + "\n\nPage content:\n" + clipped),
			},
		})
		if err != nil {
			respondLinkError(c, err)
			return
		}

		c.JSON(http.StatusOK, models.LinkAnalyzeResponse{
			Success: true,
			Data: &models.LinkData{
				Analysis:    reply.Content,
				Title:       meta.Title,
				Description: meta.Description,
				SiteName:    meta.SiteName,
				OGImage:     meta.OGImage,
				FetchedVia:  fetchedVia,
			},
			Metadata: &models.Metadata{
				URL:             req.URL,
				Action:          "analyze_link",
				ModelUsed:       cfg.Model,
				Truncated:       truncated,
				ExecutionTimeMs: time.Since(start).Milliseconds(),
				Usage:           reply.Usage,
			},
		})
	}
}

// fetchPage tries the fast HTTP path first and escalates to the headless
// browser when the page needs JS rendering (or the HTTP fetch fails).
func fetchPage(ctx context.Context, fetcher *fetch.Fetcher, opener pipeline.Opener, url string, httpTimeout time.Duration) (string, string, error) {
	httpCtx, cancel := context.WithTimeout(ctx, httpTimeout)
	body, err := fetcher.Fetch(httpCtx, url)
	cancel()

	if err == nil && !fetch.NeedsBrowser(body) {
		return string(body), "http", nil
	}
	if err != nil {
		slog.Debug("link: http fetch failed, falling back to browser", "url", url, "error", err)
	}

	page, err := opener.Open(ctx, url, models.RenderOptions{})
	if err != nil {
		return "", "", err
	}
	defer page.Release()

	html, err := page.HTML()
	if err != nil {
		return "", "", err
	}
	return html, "browser", nil
}

// respondLinkError mirrors respondError for the link response envelope.
func respondLinkError(c *gin.Context, err error) {
	analyzeErr, ok := err.(*models.AnalyzeError)
	if !ok {
		analyzeErr = models.NewAnalyzeError(models.ErrCodeInternal, err.Error(), err)
	}
	c.JSON(mapErrorToStatus(analyzeErr), models.LinkAnalyzeResponse{
		Success: false,
		Error:   analyzeErr.ToDetail(),
	})
}
