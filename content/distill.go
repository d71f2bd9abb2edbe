package content

import (
	"log/slog"
	nurl "net/url"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	readability "github.com/go-shiori/go-readability"
)

// minContentLength is the minimum TextContent length (in characters) for
// readability output to be considered valid. Below this threshold we assume
// the algorithm failed to locate the main content and fall back to the full
// visible text.
const minContentLength = 50

// Distiller turns raw page HTML into compact Markdown suitable as model
// input: readability extracts the main body, then html-to-markdown renders
// it. The converter is created once and reused (goroutine-safe).
type Distiller struct {
	mdConverter *converter.Converter
}

// NewDistiller initialises a Distiller with a pre-configured Markdown converter.
func NewDistiller() *Distiller {
	return &Distiller{
		mdConverter: converter.NewConverter(
			converter.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
				table.NewTablePlugin(
					// Minimal cell padding keeps tables readable while
					// spending far fewer tokens than aligned columns.
					table.WithCellPaddingBehavior(table.CellPaddingBehaviorMinimal),
				),
			),
		),
	}
}

// Distill runs readability on rawHTML and converts the main content to
// Markdown. If readability fails or extracts too little, the full HTML is
// converted instead so the caller always gets something to work with.
func (d *Distiller) Distill(rawHTML, sourceURL string) (string, error) {
	body := rawHTML

	if parsedURL, err := nurl.Parse(sourceURL); err == nil {
		article, rerr := readability.FromReader(strings.NewReader(rawHTML), parsedURL)
		switch {
		case rerr != nil:
			slog.Warn("readability: extraction failed, converting full HTML",
				"url", sourceURL, "error", rerr,
			)
		case len(strings.TrimSpace(article.TextContent)) < minContentLength:
			slog.Warn("readability: extracted content too short, converting full HTML",
				"url", sourceURL, "length", len(article.TextContent),
			)
		default:
			body = article.Content
		}
	}

	return d.mdConverter.ConvertString(body, converter.WithDomain(sourceURL))
}
