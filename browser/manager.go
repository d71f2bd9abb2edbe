package browser

import (
	"context"
	"errors"
	"log/slog"
	nurl "net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/ysmood/gson"

	"github.com/lenshq/pagelens/config"
	"github.com/lenshq/pagelens/models"
)

// Page is an open browser session scoped to one request. The owning request
// must call Release exactly once; Release is idempotent so deferred and
// explicit calls can coexist.
type Page interface {
	// Screenshot captures the page as PNG. fullPage spans the entire
	// scrollable page instead of only the visible viewport.
	Screenshot(fullPage bool) ([]byte, error)

	// VisibleText returns the rendered, human-readable text of the page.
	VisibleText() (string, error)

	// HTML returns the fully serialized document markup.
	HTML() (string, error)

	// Release returns the session to the pool. Safe to call more than once.
	Release()
}

// Manager owns the global browser process and the page pool, and hands out
// request-scoped sessions. It is safe for concurrent use.
type Manager struct {
	browser     *rod.Browser
	pagePool    rod.Pool[rod.Page]
	browserCfg  config.BrowserConfig
	sessionCfg  config.SessionConfig
	activePages atomic.Int32
}

// NewManager launches a headless browser and initialises the reusable page pool.
func NewManager(browserCfg config.BrowserConfig, sessionCfg config.SessionConfig) (*Manager, error) {
	l := launcher.New().
		Headless(browserCfg.Headless).
		NoSandbox(browserCfg.NoSandbox)

	if browserCfg.BrowserBin != "" {
		l = l.Bin(browserCfg.BrowserBin)
	}
	if browserCfg.DefaultProxy != "" {
		l = l.Proxy(browserCfg.DefaultProxy)
	}

	l.Set(flags.Flag("disable-blink-features"), "AutomationControlled")
	l.Delete(flags.Flag("enable-automation"))
	l.Set(flags.Flag("disable-dev-shm-usage"))
	l.Set(flags.Flag("disable-extensions"))
	l.Set(flags.Flag("disable-default-apps"))
	l.Set(flags.Flag("disable-component-update"))
	l.Set(flags.Flag("disable-background-timer-throttling"))
	l.Set(flags.Flag("disable-backgrounding-occluded-windows"))
	l.Set(flags.Flag("no-first-run"))

	controlURL, err := l.Launch()
	if err != nil {
		return nil, models.NewAnalyzeError(
			models.ErrCodeSessionFailed,
			"failed to launch browser",
			err,
		)
	}
	slog.Info("browser launched", "controlURL", controlURL)

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		return nil, models.NewAnalyzeError(
			models.ErrCodeSessionFailed,
			"failed to connect to browser",
			err,
		)
	}

	pool := rod.NewPagePool(browserCfg.MaxPages)
	slog.Info("page pool created", "maxPages", browserCfg.MaxPages)

	return &Manager{
		browser:    browser,
		pagePool:   pool,
		browserCfg: browserCfg,
		sessionCfg: sessionCfg,
	}, nil
}

// Open acquires a page from the pool, applies the render configuration,
// navigates to url and waits according to the configured policies.
//
// Lifecycle:
//
//  1. Timeout guard       – hard deadline on the whole browser phase
//  2. Acquire page        – borrow a tab from the pool (or create one)
//  3. Stealth injection   – mask navigator.webdriver etc. (before navigation)
//  4. Viewport override   – emulate requested dimensions
//  5. Idle tracker setup  – MUST precede Navigate to see every request
//  6. Navigate            – triggers page load
//  7. Mostly-idle wait    – ≤ MaxInflight requests sustained for IdleDebounce
//  8. Selector wait       – bounded at SelectorTimeout, distinct error on miss
//
// On any failure after acquisition the page is returned to the pool before
// the error is surfaced. On success the caller owns the session and must
// call Release.
func (m *Manager) Open(ctx context.Context, url string, opts models.RenderOptions) (Page, error) {
	// ── 1. Timeout guard ──────────────────────────────────────────────
	timeout := time.Duration(opts.Timeout) * time.Second
	if timeout <= 0 {
		timeout = m.sessionCfg.DefaultTimeout
	}
	if timeout > m.sessionCfg.MaxTimeout {
		timeout = m.sessionCfg.MaxTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)

	// ── 2. Acquire page from pool ─────────────────────────────────────
	m.activePages.Add(1)

	page, acquireErr := m.pagePool.Get(func() (*rod.Page, error) {
		return m.browser.Page(proto.TargetCreateTarget{})
	})
	if acquireErr != nil {
		m.activePages.Add(-1)
		cancel()
		return nil, models.NewAnalyzeError(
			models.ErrCodeSessionFailed,
			"failed to acquire page from pool",
			acquireErr,
		)
	}

	sess := &session{
		manager: m,
		page:    page,
		bound:   page.Context(ctx),
		cancel:  cancel,
	}

	if err := m.preparePage(ctx, sess, url, opts); err != nil {
		sess.Release()
		return nil, err
	}
	return sess, nil
}

// preparePage runs steps 3-8 of Open on an acquired session.
func (m *Manager) preparePage(ctx context.Context, sess *session, url string, opts models.RenderOptions) error {
	p := sess.bound

	// ── 3. Stealth injection ──────────────────────────────────────────
	if opts.Stealth {
		if _, evalErr := p.EvalOnNewDocument(stealth.JS); evalErr != nil {
			slog.Warn("stealth injection failed, proceeding without stealth",
				"error", evalErr,
			)
		}
	}

	// ── 4. Viewport override ──────────────────────────────────────────
	if v := opts.Viewport; v != nil {
		if err := p.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
			Width:             v.Width,
			Height:            v.Height,
			DeviceScaleFactor: 1,
		}); err != nil {
			return models.NewAnalyzeError(
				models.ErrCodeSessionFailed,
				"failed to set viewport",
				err,
			)
		}
	}

	// ── 4b. Referer header: plain direct hits get blocked more often ──
	if u, parseErr := nurl.Parse(url); parseErr == nil {
		_ = proto.NetworkSetExtraHTTPHeaders{
			Headers: proto.NetworkHeaders{
				"Referer": gson.New("https://www.google.com/search?q=" + nurl.QueryEscape(u.Hostname())),
			},
		}.Call(p)
	}

	// ── 5. Idle tracker setup (before Navigate, or in-flight requests
	//       started during load would be invisible and the wait would
	//       report a false idle) ──────────────────────────────────────
	var waitIdle func() error
	if opts.WaitForNetworkIdle == nil || *opts.WaitForNetworkIdle {
		waitIdle = watchMostlyIdle(ctx, p, m.sessionCfg.MaxInflight, m.sessionCfg.IdleDebounce)
	}

	// ── 6. Navigate ───────────────────────────────────────────────────
	if err := p.Navigate(url); err != nil {
		return categorizeNavError(err, url)
	}

	// ── 7. Wait strategy ──────────────────────────────────────────────
	if waitIdle != nil {
		if err := waitIdle(); err != nil {
			return categorizeNavError(err, url)
		}
	} else {
		if err := p.WaitDOMStable(300*time.Millisecond, 0.1); err != nil {
			slog.Debug("WaitDOMStable did not converge, proceeding with current DOM",
				"error", err,
			)
		}
	}

	// ── 8. Selector wait (bounded) ────────────────────────────────────
	if sel := opts.WaitForSelector; sel != "" {
		selCtx, selCancel := context.WithTimeout(ctx, m.sessionCfg.SelectorTimeout)
		err := sess.page.Context(selCtx).WaitElementsMoreThan(sel, 0)
		selCancel()
		if err != nil {
			return models.NewAnalyzeError(
				models.ErrCodeSelectorTimeout,
				"selector "+sel+" did not appear within "+m.sessionCfg.SelectorTimeout.String(),
				err,
			)
		}
	}

	return nil
}

// Stats returns a snapshot of the pool's current state.
func (m *Manager) Stats() models.PoolStats {
	return models.PoolStats{
		MaxPages:    m.browserCfg.MaxPages,
		ActivePages: int(m.activePages.Load()),
	}
}

// Close drains the page pool and kills the browser process.
// Call this on graceful shutdown to prevent zombie Chrome processes.
func (m *Manager) Close() {
	slog.Info("browser manager shutting down: draining page pool")
	m.pagePool.Cleanup(func(p *rod.Page) {
		_ = p.Close()
	})
	slog.Info("browser manager shutting down: closing browser")
	m.browser.MustClose()
	slog.Info("browser manager shutdown complete")
}

// session is the pool-backed Page implementation. The bound page carries the
// request context; cleanup uses the original page reference so returning the
// tab succeeds even after the request context has expired.
type session struct {
	manager *Manager
	page    *rod.Page
	bound   *rod.Page
	cancel  context.CancelFunc
	once    sync.Once
}

func (s *session) Release() {
	s.once.Do(func() {
		s.cancel()
		if navErr := s.page.Navigate("about:blank"); navErr != nil {
			slog.Warn("cleanup: failed to navigate to about:blank", "error", navErr)
		}
		s.manager.pagePool.Put(s.page)
		s.manager.activePages.Add(-1)
	})
}

// categorizeNavError wraps raw navigation errors into typed AnalyzeErrors so
// the API layer can map them to status codes. The message names the URL.
func categorizeNavError(err error, url string) *models.AnalyzeError {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return models.NewAnalyzeError(models.ErrCodeTimeout, "navigation to "+url+" timed out", err)
	case errors.Is(err, context.Canceled):
		return models.NewAnalyzeError(models.ErrCodeTimeout, "request canceled while loading "+url, err)
	default:
		return models.NewAnalyzeError(models.ErrCodeNavigation, "navigation to "+url+" failed", err)
	}
}
