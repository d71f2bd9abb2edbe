package content

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// PageMeta is the descriptive metadata pulled from a page's head.
type PageMeta struct {
	Title       string
	Description string
	SiteName    string
	OGImage     string
}

// ExtractMeta parses rawHTML and collects title, description and Open Graph
// metadata. Best-effort: a page with no head simply yields empty fields.
func ExtractMeta(rawHTML string) PageMeta {
	var meta PageMeta

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return meta
	}

	meta.Title = strings.TrimSpace(doc.Find("title").First().Text())

	doc.Find("meta").Each(func(_ int, s *goquery.Selection) {
		content, ok := s.Attr("content")
		if !ok || content == "" {
			return
		}
		switch name, _ := s.Attr("name"); name {
		case "description":
			if meta.Description == "" {
				meta.Description = strings.TrimSpace(content)
			}
		}
		switch prop, _ := s.Attr("property"); prop {
		case "og:title":
			if meta.Title == "" {
				meta.Title = strings.TrimSpace(content)
			}
		case "og:description":
			if meta.Description == "" {
				meta.Description = strings.TrimSpace(content)
			}
		case "og:site_name":
			meta.SiteName = strings.TrimSpace(content)
		case "og:image":
			meta.OGImage = strings.TrimSpace(content)
		}
	})

	return meta
}
