package handler

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lenshq/pagelens/config"
	"github.com/lenshq/pagelens/content"
	"github.com/lenshq/pagelens/fetch"
	"github.com/lenshq/pagelens/models"
	"github.com/lenshq/pagelens/pipeline"
)

func newLinkRouter(opener pipeline.Opener, completer pipeline.Completer) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/analyze/link", AnalyzeLink(
		fetch.NewFetcher(""),
		opener,
		content.NewDistiller(),
		completer,
		config.LinkConfig{Model: "link-model", TruncateAt: 6000, HTTPTimeout: 5 * time.Second},
	))
	return r
}

func postLink(t *testing.T, r *gin.Engine, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/analyze/link", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAnalyzeLink_HTTPPath(t *testing.T) {
	article := strings.Repeat("A long, server-rendered article paragraph. ", 20)
	page := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `<html><head>
			<title>Server Rendered</title>
			<meta name="description" content="A static page.">
			<meta property="og:site_name" content="Statics">
		</head><body><article><p>`+article+`</p></article></body></html>`)
	}))
	defer page.Close()

	r := newLinkRouter(&stubOpener{}, &stubCompleter{reply: "It is a static article page."})

	w := postLink(t, r, `{"url": "`+page.URL+`"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body: %s", w.Code, w.Body)
	}

	var resp models.LinkAnalyzeResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if !resp.Success || resp.Data == nil {
		t.Fatalf("response = %s", w.Body)
	}
	if resp.Data.FetchedVia != "http" {
		t.Errorf("FetchedVia = %q, want http", resp.Data.FetchedVia)
	}
	if resp.Data.Title != "Server Rendered" {
		t.Errorf("Title = %q", resp.Data.Title)
	}
	if resp.Data.SiteName != "Statics" {
		t.Errorf("SiteName = %q", resp.Data.SiteName)
	}
	if resp.Data.Analysis != "It is a static article page." {
		t.Errorf("Analysis = %q", resp.Data.Analysis)
	}
	if resp.Metadata.ModelUsed != "link-model" {
		t.Errorf("ModelUsed = %q", resp.Metadata.ModelUsed)
	}
}

func TestAnalyzeLink_BrowserFallback(t *testing.T) {
	// An SPA shell over HTTP forces the browser path.
	page := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `<html><body><div id="root"></div><script src="/app.js"></script></body></html>`)
	}))
	defer page.Close()

	rendered := strings.Repeat("Client-rendered text after hydration. ", 20)
	opener := &stubOpener{page: &stubPage{
		html: `<html><head><title>Hydrated</title></head><body><main><p>` + rendered + `</p></main></body></html>`,
	}}
	r := newLinkRouter(opener, &stubCompleter{reply: "ok"})

	w := postLink(t, r, `{"url": "`+page.URL+`"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body: %s", w.Code, w.Body)
	}

	var resp models.LinkAnalyzeResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Data.FetchedVia != "browser" {
		t.Errorf("FetchedVia = %q, want browser", resp.Data.FetchedVia)
	}
	if resp.Data.Title != "Hydrated" {
		t.Errorf("Title = %q, want metadata from the rendered HTML", resp.Data.Title)
	}
}

func TestAnalyzeLink_InvalidURL(t *testing.T) {
	r := newLinkRouter(&stubOpener{}, &stubCompleter{})

	w := postLink(t, r, `{"url": "nope"}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400, body: %s", w.Code, w.Body)
	}
}

func TestAnalyzeLink_BrowserFailure(t *testing.T) {
	// Unreachable HTTP target and a failing browser session yields 500.
	r := newLinkRouter(
		&stubOpener{err: models.NewAnalyzeError(models.ErrCodeNavigation, "dns failure", nil)},
		&stubCompleter{},
	)

	w := postLink(t, r, `{"url": "http://127.0.0.1:1/"}`)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500, body: %s", w.Code, w.Body)
	}

	var resp models.LinkAnalyzeResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Error == nil || resp.Error.Code != models.ErrCodeNavigation {
		t.Errorf("error = %+v", resp.Error)
	}
}
