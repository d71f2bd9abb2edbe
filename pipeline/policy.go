package pipeline

import (
	"fmt"

	"github.com/lenshq/pagelens/config"
	"github.com/lenshq/pagelens/content"
	"github.com/lenshq/pagelens/llm"
	"github.com/lenshq/pagelens/models"
)

// ArtifactKind selects what the extractor produces from an open page.
type ArtifactKind int

const (
	// ArtifactImage is a rendered screenshot (PNG bytes).
	ArtifactImage ArtifactKind = iota
	// ArtifactText is the page's visible text.
	ArtifactText
	// ArtifactHTML is the serialized document markup.
	ArtifactHTML
)

// Artifact is the extracted content unit handed to inference. Exactly one
// field matching Kind is populated.
type Artifact struct {
	Kind  ArtifactKind
	Image []byte
	Text  string
	HTML  string

	// Truncated marks text artifacts clipped to the action's input bound.
	Truncated bool
}

// Policy supplies the per-action differences of the pipeline as data: which
// artifact to extract, which model to default to, where to clip text input,
// whether a model runs at all, and how to phrase the prompt. The source's
// near-duplicate handlers collapse into one pipeline parameterized by these.
type Policy struct {
	// Kind is the artifact the action extracts.
	Kind ArtifactKind

	// DefaultModel is reported and used when the request names no model.
	// extract_html never invokes a model yet still reports this default, so
	// every action's metadata carries a modelUsed field.
	DefaultModel string

	// TruncateAt bounds text artifacts, in runes. Zero means unbounded.
	TruncateAt int

	// Inference is false for actions whose artifact is the final result.
	Inference bool

	// JSONMode constrains the model to JSON output (structured extraction).
	JSONMode bool

	// Messages builds the chat payload from the request and artifact.
	// Nil when Inference is false.
	Messages func(req *models.AnalyzeRequest, art *Artifact) []llm.Message
}

// Policies builds the action policy table from the configured model defaults.
// The table is immutable after process start.
func Policies(cfg config.LLMConfig) map[string]Policy {
	return map[string]Policy{
		models.ActionAnalyzeImage: {
			Kind:         ArtifactImage,
			DefaultModel: cfg.ImageModel,
			Inference:    true,
			Messages: func(req *models.AnalyzeRequest, art *Artifact) []llm.Message {
				return []llm.Message{
					llm.VisionMessage(req.Prompt, art.Image),
				}
			},
		},
		models.ActionSummarizeText: {
			Kind:         ArtifactText,
			DefaultModel: cfg.TextModel,
			TruncateAt:   content.SummaryLimit,
			Inference:    true,
			Messages: func(req *models.AnalyzeRequest, art *Artifact) []llm.Message {
				prompt := req.Prompt
				if prompt == "" {
					prompt = "Summarize the following web page content concisely."
				}
				return []llm.Message{
					llm.SystemMessage("You are a precise assistant that summarizes web pages. Answer in plain prose."),
					llm.UserMessage(fmt.Sprintf("%s\n\nPage content:\n%s", prompt, art.Text)),
				}
			},
		},
		models.ActionExtractHTML: {
			Kind:         ArtifactHTML,
			DefaultModel: cfg.TextModel,
			Inference:    false,
		},
		models.ActionExtractStructured: {
			Kind:         ArtifactText,
			DefaultModel: cfg.TextModel,
			TruncateAt:   content.AnalysisLimit,
			Inference:    true,
			JSONMode:     true,
			Messages: func(req *models.AnalyzeRequest, art *Artifact) []llm.Message {
				return []llm.Message{
					llm.SystemMessage(structuredSystemPrompt(req)),
					llm.UserMessage(art.Text),
				}
			},
		},
	}
}

// structuredSystemPrompt asks for JSON matching the caller's schema, or a
// generic key-facts object when no schema was declared.
func structuredSystemPrompt(req *models.AnalyzeRequest) string {
	if len(req.Schema) > 0 {
		return fmt.Sprintf(`You are a structured data extraction assistant. Extract information from the provided content and return it as JSON matching the following schema.

Schema:
%s

Rules:
- Return ONLY valid JSON, no markdown fences or explanation.
- If a field cannot be found in the content, use null.
- Extract exactly the fields specified in the schema.`, string(req.Schema))
	}
	prompt := `You are a structured data extraction assistant. Extract the key facts from the provided content and return them as a single JSON object.

Rules:
- Return ONLY valid JSON, no markdown fences or explanation.
- Use descriptive snake_case keys.`
	if req.Prompt != "" {
		prompt += "\n\nFocus: " + req.Prompt
	}
	return prompt
}
