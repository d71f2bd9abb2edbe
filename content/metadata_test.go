package content

import "testing"

func TestExtractMeta_FullHead(t *testing.T) {
	html := `<html><head>
		<title>Example Article</title>
		<meta name="description" content="A page about examples.">
		<meta property="og:site_name" content="Example Site">
		<meta property="og:image" content="https://example.com/cover.png">
	</head><body><p>Hi</p></body></html>`

	meta := ExtractMeta(html)

	if meta.Title != "Example Article" {
		t.Errorf("Title = %q, want %q", meta.Title, "Example Article")
	}
	if meta.Description != "A page about examples." {
		t.Errorf("Description = %q", meta.Description)
	}
	if meta.SiteName != "Example Site" {
		t.Errorf("SiteName = %q", meta.SiteName)
	}
	if meta.OGImage != "https://example.com/cover.png" {
		t.Errorf("OGImage = %q", meta.OGImage)
	}
}

func TestExtractMeta_OGFallbacks(t *testing.T) {
	html := `<html><head>
		<meta property="og:title" content="OG Title">
		<meta property="og:description" content="OG description.">
	</head><body></body></html>`

	meta := ExtractMeta(html)

	if meta.Title != "OG Title" {
		t.Errorf("Title = %q, want og:title fallback", meta.Title)
	}
	if meta.Description != "OG description." {
		t.Errorf("Description = %q, want og:description fallback", meta.Description)
	}
}

func TestExtractMeta_TitleTagWins(t *testing.T) {
	html := `<html><head>
		<title>Tag Title</title>
		<meta property="og:title" content="OG Title">
	</head></html>`

	meta := ExtractMeta(html)
	if meta.Title != "Tag Title" {
		t.Errorf("Title = %q, want the title tag to take precedence", meta.Title)
	}
}

func TestExtractMeta_Empty(t *testing.T) {
	meta := ExtractMeta("<html><body>no head to speak of</body></html>")
	if meta.Title != "" || meta.Description != "" || meta.SiteName != "" || meta.OGImage != "" {
		t.Errorf("expected empty metadata, got %+v", meta)
	}
}
