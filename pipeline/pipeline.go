package pipeline

import (
	"context"
	"log/slog"

	"github.com/lenshq/pagelens/browser"
	"github.com/lenshq/pagelens/config"
	"github.com/lenshq/pagelens/content"
	"github.com/lenshq/pagelens/llm"
	"github.com/lenshq/pagelens/models"
)

// Opener acquires request-scoped browser sessions. *browser.Manager is the
// production implementation; tests inject fakes.
type Opener interface {
	Open(ctx context.Context, url string, opts models.RenderOptions) (browser.Page, error)
}

// Completer runs a single model invocation. *llm.Client is the production
// implementation.
type Completer interface {
	Complete(ctx context.Context, req llm.CompletionRequest) (*llm.Reply, error)
}

// Result is the pipeline output consumed by the API layer.
type Result struct {
	Data      models.AnalyzeData
	ModelUsed string
	Truncated bool
	Usage     *models.LLMUsage
}

// Pipeline is the single parameterized analyze flow:
//
//	validate → open session → extract artifact → release session →
//	inference (unless the artifact is the final result) → shape reply
//
// Per-action behavior comes from the policy table; there is one control flow.
// Exactly one browser session is acquired and released per run, on every
// exit path.
type Pipeline struct {
	opener   Opener
	llm      Completer
	policies map[string]Policy
}

// New creates a Pipeline with the default policy table for cfg.
func New(opener Opener, completer Completer, cfg config.LLMConfig) *Pipeline {
	return &Pipeline{
		opener:   opener,
		llm:      completer,
		policies: Policies(cfg),
	}
}

// Run executes one analyze request end to end. Validation failures are
// returned as an INVALID_INPUT AnalyzeError carrying field detail, before any
// remote resource is touched.
func (p *Pipeline) Run(ctx context.Context, req *models.AnalyzeRequest) (*Result, error) {
	// ── 1. Validate, then defaults ──────────────────────────────────
	req.Defaults()
	if fieldErrs := req.Validate(); len(fieldErrs) > 0 {
		return nil, models.NewValidationError(fieldErrs)
	}

	policy, ok := p.policies[req.Action]
	if !ok {
		// Unreachable after validation; kept so a policy-table gap cannot
		// panic a request.
		return nil, models.NewValidationError([]models.FieldError{
			{Field: "action", Message: "unknown action " + req.Action},
		})
	}

	model := req.Model
	if model == "" {
		model = policy.DefaultModel
	}

	// ── 2. Open browser session ─────────────────────────────────────
	page, err := p.opener.Open(ctx, req.URL, req.RenderOptions)
	if err != nil {
		return nil, err
	}
	defer page.Release()

	// ── 3. Extract artifact ─────────────────────────────────────────
	artifact, err := extract(page, policy, req.RenderOptions.FullPage)
	if err != nil {
		return nil, err
	}

	// The artifact is in hand; free the tab before the slow model call.
	// Release is idempotent, so the defer above stays a safety net.
	page.Release()

	result := &Result{ModelUsed: model, Truncated: artifact.Truncated}

	// ── 4. Inference (extract_html returns its artifact directly) ───
	if !policy.Inference {
		result.Data.HTML = artifact.HTML
		return result, nil
	}

	reply, err := p.llm.Complete(ctx, llm.CompletionRequest{
		Model:    model,
		Messages: policy.Messages(req, artifact),
		JSONMode: policy.JSONMode,
	})
	if err != nil {
		return nil, err
	}
	result.Usage = reply.Usage

	// ── 5. Shape reply ──────────────────────────────────────────────
	switch req.Action {
	case models.ActionAnalyzeImage:
		result.Data.Analysis = reply.Content
	case models.ActionSummarizeText:
		result.Data.Summary = reply.Content
	case models.ActionExtractStructured:
		structured := llm.RecoverJSON(reply.Content)
		if structured.Resolved {
			result.Data.Extracted = structured.Data
		} else {
			// Degraded, not fatal: the caller gets the verbatim reply and
			// an explicit unresolved marker.
			slog.Warn("structured extraction unresolved", "url", req.URL, "model", model)
			result.Data.Unresolved = true
			result.Data.Raw = structured.Raw
		}
	}

	return result, nil
}

// extract produces the policy's artifact from an open session, applying the
// action's truncation bound to text artifacts.
func extract(page browser.Page, policy Policy, fullPage bool) (*Artifact, error) {
	switch policy.Kind {
	case ArtifactImage:
		img, err := page.Screenshot(fullPage)
		if err != nil {
			return nil, err
		}
		return &Artifact{Kind: ArtifactImage, Image: img}, nil

	case ArtifactHTML:
		html, err := page.HTML()
		if err != nil {
			return nil, err
		}
		return &Artifact{Kind: ArtifactHTML, HTML: html}, nil

	default:
		text, err := page.VisibleText()
		if err != nil {
			return nil, err
		}
		clipped, truncated := content.Truncate(text, policy.TruncateAt)
		return &Artifact{Kind: ArtifactText, Text: clipped, Truncated: truncated}, nil
	}
}
