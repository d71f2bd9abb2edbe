package browser

import (
	"github.com/go-rod/rod/lib/proto"

	"github.com/lenshq/pagelens/models"
)

// Screenshot captures the page as PNG bytes. fullPage spans the entire
// scrollable page; otherwise only the visible viewport is captured.
func (s *session) Screenshot(fullPage bool) ([]byte, error) {
	data, err := s.bound.Screenshot(fullPage, &proto.PageCaptureScreenshot{
		Format: proto.PageCaptureScreenshotFormatPng,
	})
	if err != nil {
		return nil, models.NewAnalyzeError(
			models.ErrCodeSessionFailed,
			"failed to capture screenshot",
			err,
		)
	}
	return data, nil
}

// VisibleText returns the rendered text content of the page — what a reader
// sees, not markup. Reads only; the page is not mutated.
func (s *session) VisibleText() (string, error) {
	res, err := s.bound.Eval(`() => document.body ? document.body.innerText : ""`)
	if err != nil {
		return "", models.NewAnalyzeError(
			models.ErrCodeSessionFailed,
			"failed to read page text",
			err,
		)
	}
	return res.Value.Str(), nil
}

// HTML returns the fully serialized document markup.
func (s *session) HTML() (string, error) {
	html, err := s.bound.HTML()
	if err != nil {
		return "", models.NewAnalyzeError(
			models.ErrCodeSessionFailed,
			"failed to serialize page HTML",
			err,
		)
	}
	return html, nil
}
