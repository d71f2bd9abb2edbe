package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/lenshq/pagelens/browser"
	"github.com/lenshq/pagelens/config"
	"github.com/lenshq/pagelens/llm"
	"github.com/lenshq/pagelens/models"
)

// fakePage is an in-memory browser.Page recording its release count.
type fakePage struct {
	text       string
	html       string
	png        []byte
	extractErr error
	releases   int
}

func (p *fakePage) Screenshot(fullPage bool) ([]byte, error) {
	if p.extractErr != nil {
		return nil, p.extractErr
	}
	return p.png, nil
}

func (p *fakePage) VisibleText() (string, error) {
	if p.extractErr != nil {
		return "", p.extractErr
	}
	return p.text, nil
}

func (p *fakePage) HTML() (string, error) {
	if p.extractErr != nil {
		return "", p.extractErr
	}
	return p.html, nil
}

func (p *fakePage) Release() { p.releases++ }

// fakeOpener hands out a single fakePage and records whether it was asked to.
type fakeOpener struct {
	page    *fakePage
	openErr error
	opened  int
	lastURL string
}

func (o *fakeOpener) Open(ctx context.Context, url string, opts models.RenderOptions) (browser.Page, error) {
	o.opened++
	o.lastURL = url
	if o.openErr != nil {
		return nil, o.openErr
	}
	return o.page, nil
}

// fakeCompleter returns a canned reply and records the request it received.
type fakeCompleter struct {
	reply   string
	err     error
	called  int
	lastReq llm.CompletionRequest
}

func (c *fakeCompleter) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.Reply, error) {
	c.called++
	c.lastReq = req
	if c.err != nil {
		return nil, c.err
	}
	return &llm.Reply{
		Content: c.reply,
		Usage:   &models.LLMUsage{TotalTokens: 42},
	}, nil
}

func testLLMConfig() config.LLMConfig {
	return config.LLMConfig{ImageModel: "vision-default", TextModel: "text-default"}
}

func newTestPipeline(opener *fakeOpener, completer *fakeCompleter) *Pipeline {
	return New(opener, completer, testLLMConfig())
}

func TestRun_InvalidRequestAcquiresNothing(t *testing.T) {
	opener := &fakeOpener{page: &fakePage{}}
	completer := &fakeCompleter{}
	pipe := newTestPipeline(opener, completer)

	_, err := pipe.Run(context.Background(), &models.AnalyzeRequest{
		URL:    "not-a-url",
		Action: "bogus",
	})

	var analyzeErr *models.AnalyzeError
	if !errors.As(err, &analyzeErr) {
		t.Fatalf("err = %v, want *models.AnalyzeError", err)
	}
	if analyzeErr.Code != models.ErrCodeInvalidInput {
		t.Errorf("Code = %s, want INVALID_INPUT", analyzeErr.Code)
	}
	if len(analyzeErr.Fields) == 0 {
		t.Error("validation error should carry field detail")
	}
	if opener.opened != 0 {
		t.Error("no browser session may be opened for an invalid request")
	}
	if completer.called != 0 {
		t.Error("no model call may happen for an invalid request")
	}
}

func TestRun_SummarizeText(t *testing.T) {
	page := &fakePage{text: "Long article text here."}
	opener := &fakeOpener{page: page}
	completer := &fakeCompleter{reply: "A tidy summary."}
	pipe := newTestPipeline(opener, completer)

	result, err := pipe.Run(context.Background(), &models.AnalyzeRequest{
		URL:    "https://example.com",
		Action: models.ActionSummarizeText,
	})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	if result.Data.Summary != "A tidy summary." {
		t.Errorf("Summary = %q", result.Data.Summary)
	}
	if result.ModelUsed != "text-default" {
		t.Errorf("ModelUsed = %q, want the per-action default", result.ModelUsed)
	}
	if result.Usage == nil || result.Usage.TotalTokens != 42 {
		t.Errorf("Usage = %+v", result.Usage)
	}
	if completer.lastReq.Model != "text-default" {
		t.Errorf("model sent = %q", completer.lastReq.Model)
	}
	if page.releases == 0 {
		t.Error("session must be released")
	}
}

func TestRun_ModelOverride(t *testing.T) {
	opener := &fakeOpener{page: &fakePage{text: "t"}}
	completer := &fakeCompleter{reply: "s"}
	pipe := newTestPipeline(opener, completer)

	result, err := pipe.Run(context.Background(), &models.AnalyzeRequest{
		URL:    "https://example.com",
		Action: models.ActionSummarizeText,
		Model:  "custom-model",
	})
	if err != nil {
		t.Fatal(err)
	}
	if result.ModelUsed != "custom-model" {
		t.Errorf("ModelUsed = %q, want the override", result.ModelUsed)
	}
	if completer.lastReq.Model != "custom-model" {
		t.Errorf("model sent = %q, want the override", completer.lastReq.Model)
	}
}

func TestRun_AnalyzeImage(t *testing.T) {
	opener := &fakeOpener{page: &fakePage{png: []byte{1, 2, 3}}}
	completer := &fakeCompleter{reply: "A dashboard with three charts."}
	pipe := newTestPipeline(opener, completer)

	result, err := pipe.Run(context.Background(), &models.AnalyzeRequest{
		URL:    "https://example.com",
		Action: models.ActionAnalyzeImage,
		Prompt: "what is shown?",
	})
	if err != nil {
		t.Fatal(err)
	}

	if result.Data.Analysis != "A dashboard with three charts." {
		t.Errorf("Analysis = %q", result.Data.Analysis)
	}
	if result.ModelUsed != "vision-default" {
		t.Errorf("ModelUsed = %q, want the vision default", result.ModelUsed)
	}
	if len(completer.lastReq.Messages) != 1 {
		t.Fatalf("messages = %d, want 1 vision message", len(completer.lastReq.Messages))
	}
}

func TestRun_ExtractHTMLSkipsInference(t *testing.T) {
	opener := &fakeOpener{page: &fakePage{html: "<html><body>hi</body></html>"}}
	completer := &fakeCompleter{}
	pipe := newTestPipeline(opener, completer)

	result, err := pipe.Run(context.Background(), &models.AnalyzeRequest{
		URL:    "https://example.com",
		Action: models.ActionExtractHTML,
	})
	if err != nil {
		t.Fatal(err)
	}

	if result.Data.HTML != "<html><body>hi</body></html>" {
		t.Errorf("HTML = %q", result.Data.HTML)
	}
	if completer.called != 0 {
		t.Error("extract_html must not invoke the model")
	}
	// The action still reports its default model in metadata even though no
	// inference ran.
	if result.ModelUsed != "text-default" {
		t.Errorf("ModelUsed = %q, want text-default", result.ModelUsed)
	}
}

func TestRun_ExtractStructuredResolved(t *testing.T) {
	opener := &fakeOpener{page: &fakePage{text: "Product: Widget. Price: $9."}}
	completer := &fakeCompleter{reply: "```json\n{\"product\": \"Widget\", \"price\": 9}\n```"}
	pipe := newTestPipeline(opener, completer)

	result, err := pipe.Run(context.Background(), &models.AnalyzeRequest{
		URL:    "https://example.com",
		Action: models.ActionExtractStructured,
	})
	if err != nil {
		t.Fatal(err)
	}

	if result.Data.Unresolved {
		t.Fatal("fenced JSON reply should resolve")
	}
	if !strings.Contains(string(result.Data.Extracted), `"product"`) {
		t.Errorf("Extracted = %s", result.Data.Extracted)
	}
	if !completer.lastReq.JSONMode {
		t.Error("structured extraction should request JSON mode")
	}
}

func TestRun_ExtractStructuredUnresolved(t *testing.T) {
	opener := &fakeOpener{page: &fakePage{text: "nothing useful"}}
	completer := &fakeCompleter{reply: "I can't find any structured data here."}
	pipe := newTestPipeline(opener, completer)

	result, err := pipe.Run(context.Background(), &models.AnalyzeRequest{
		URL:    "https://example.com",
		Action: models.ActionExtractStructured,
	})
	if err != nil {
		t.Fatalf("unparseable model output must degrade, not error: %v", err)
	}

	if !result.Data.Unresolved {
		t.Error("expected an unresolved result")
	}
	if result.Data.Raw != "I can't find any structured data here." {
		t.Errorf("Raw = %q, want the verbatim reply", result.Data.Raw)
	}
	if result.Data.Extracted != nil {
		t.Error("Extracted should be empty on an unresolved result")
	}
}

func TestRun_TruncatesTextInput(t *testing.T) {
	longText := strings.Repeat("x", 9000)
	opener := &fakeOpener{page: &fakePage{text: longText}}
	completer := &fakeCompleter{reply: "summary"}
	pipe := newTestPipeline(opener, completer)

	result, err := pipe.Run(context.Background(), &models.AnalyzeRequest{
		URL:    "https://example.com",
		Action: models.ActionSummarizeText,
	})
	if err != nil {
		t.Fatal(err)
	}

	if !result.Truncated {
		t.Error("9000-rune input for summarize_text should be marked truncated")
	}

	// The prompt carries at most the clipped 8000 runes.
	content, ok := completer.lastReq.Messages[1].Content.(string)
	if !ok {
		t.Fatalf("user message content is %T, want string", completer.lastReq.Messages[1].Content)
	}
	if strings.Count(content, "x") != 8000 {
		t.Errorf("prompt carries %d runes of page text, want 8000", strings.Count(content, "x"))
	}
}

func TestRun_ReleaseOnExtractFailure(t *testing.T) {
	page := &fakePage{extractErr: models.NewAnalyzeError(models.ErrCodeSessionFailed, "tab crashed", nil)}
	opener := &fakeOpener{page: page}
	completer := &fakeCompleter{}
	pipe := newTestPipeline(opener, completer)

	_, err := pipe.Run(context.Background(), &models.AnalyzeRequest{
		URL:    "https://example.com",
		Action: models.ActionSummarizeText,
	})
	if err == nil {
		t.Fatal("expected extraction error")
	}
	if page.releases == 0 {
		t.Error("session must be released when extraction fails")
	}
	if completer.called != 0 {
		t.Error("no model call after a failed extraction")
	}
}

func TestRun_ReleaseBeforeInference(t *testing.T) {
	page := &fakePage{text: "t"}
	opener := &fakeOpener{page: page}

	var releasesAtInference int
	completer := &completerFunc{fn: func(ctx context.Context, req llm.CompletionRequest) (*llm.Reply, error) {
		releasesAtInference = page.releases
		return &llm.Reply{Content: "s"}, nil
	}}
	pipe := New(opener, completer, testLLMConfig())

	if _, err := pipe.Run(context.Background(), &models.AnalyzeRequest{
		URL:    "https://example.com",
		Action: models.ActionSummarizeText,
	}); err != nil {
		t.Fatal(err)
	}

	if releasesAtInference == 0 {
		t.Error("the session must be released before the model call starts")
	}
}

func TestRun_InferenceErrorPropagates(t *testing.T) {
	page := &fakePage{text: "t"}
	opener := &fakeOpener{page: page}
	completer := &fakeCompleter{err: models.NewAnalyzeError(models.ErrCodeLLMRateLimited, "slow down", nil)}
	pipe := newTestPipeline(opener, completer)

	_, err := pipe.Run(context.Background(), &models.AnalyzeRequest{
		URL:    "https://example.com",
		Action: models.ActionSummarizeText,
	})

	var analyzeErr *models.AnalyzeError
	if !errors.As(err, &analyzeErr) || analyzeErr.Code != models.ErrCodeLLMRateLimited {
		t.Fatalf("err = %v, want LLM_RATE_LIMITED", err)
	}
	if page.releases == 0 {
		t.Error("session must be released when inference fails")
	}
}

func TestRun_OpenFailurePropagates(t *testing.T) {
	opener := &fakeOpener{openErr: models.NewAnalyzeError(models.ErrCodeNavigation, "failed to navigate", nil)}
	completer := &fakeCompleter{}
	pipe := newTestPipeline(opener, completer)

	_, err := pipe.Run(context.Background(), &models.AnalyzeRequest{
		URL:    "https://unreachable.example",
		Action: models.ActionExtractHTML,
	})

	var analyzeErr *models.AnalyzeError
	if !errors.As(err, &analyzeErr) || analyzeErr.Code != models.ErrCodeNavigation {
		t.Fatalf("err = %v, want NAVIGATION_FAILED", err)
	}
}

func TestRun_SchemaReachesPrompt(t *testing.T) {
	opener := &fakeOpener{page: &fakePage{text: "content"}}
	completer := &fakeCompleter{reply: "{}"}
	pipe := newTestPipeline(opener, completer)

	if _, err := pipe.Run(context.Background(), &models.AnalyzeRequest{
		URL:    "https://example.com",
		Action: models.ActionExtractStructured,
		Schema: []byte(`{"price": "number"}`),
	}); err != nil {
		t.Fatal(err)
	}

	system, ok := completer.lastReq.Messages[0].Content.(string)
	if !ok {
		t.Fatalf("system message content is %T", completer.lastReq.Messages[0].Content)
	}
	if !strings.Contains(system, `{"price": "number"}`) {
		t.Errorf("system prompt missing the caller's schema:\n%s", system)
	}
}

// completerFunc adapts a function to the Completer interface.
type completerFunc struct {
	fn func(ctx context.Context, req llm.CompletionRequest) (*llm.Reply, error)
}

func (c *completerFunc) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.Reply, error) {
	return c.fn(ctx, req)
}
