package fetch

import (
	"strings"
	"testing"
)

func TestNeedsBrowser_SPAShell(t *testing.T) {
	body := []byte(`<html><head><script src="/app.js"></script></head>
		<body><div id="root"></div></body></html>`)

	if !NeedsBrowser(body) {
		t.Error("empty SPA root container should need a browser")
	}
}

func TestNeedsBrowser_NoscriptWarning(t *testing.T) {
	filler := strings.Repeat("Some static filler text to get past the length check. ", 10)
	body := []byte(`<html><body>
		<noscript>You need to enable JavaScript to run this app.</noscript>
		<p>` + filler + `</p></body></html>`)

	if !NeedsBrowser(body) {
		t.Error("noscript JS warning should need a browser")
	}
}

func TestNeedsBrowser_StaticPage(t *testing.T) {
	paragraph := strings.Repeat("Plenty of real, server-rendered article text here. ", 20)
	body := []byte(`<html><body><article><p>` + paragraph + `</p></article></body></html>`)

	if NeedsBrowser(body) {
		t.Error("content-rich static page should not need a browser")
	}
}

func TestNeedsBrowser_SparseBody(t *testing.T) {
	if !NeedsBrowser([]byte(`<html><body><p>loading...</p></body></html>`)) {
		t.Error("near-empty body should need a browser")
	}
}

func TestVisibleText_StripsScriptsAndStyles(t *testing.T) {
	body := []byte(`<html><head><style>body { color: red }</style></head><body>
		<script>var hidden = "secret";</script>
		<p>Visible paragraph.</p>
		<noscript>Enable JS</noscript>
	</body></html>`)

	text := VisibleText(body)

	if !strings.Contains(text, "Visible paragraph.") {
		t.Errorf("missing visible text: %q", text)
	}
	if strings.Contains(text, "secret") || strings.Contains(text, "color: red") {
		t.Errorf("script/style content leaked into visible text: %q", text)
	}
	if strings.Contains(text, "Enable JS") {
		t.Errorf("noscript content leaked into visible text: %q", text)
	}
}

func TestVisibleText_IgnoresHead(t *testing.T) {
	body := []byte(`<html><head><title>Head Title</title></head><body>Body text</body></html>`)

	text := VisibleText(body)
	if strings.Contains(text, "Head Title") {
		t.Errorf("head content should be excluded: %q", text)
	}
	if !strings.Contains(text, "Body text") {
		t.Errorf("body content missing: %q", text)
	}
}
