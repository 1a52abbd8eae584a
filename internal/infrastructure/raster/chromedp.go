package raster

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image/png"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

const (
	defaultChromeTimeout = 30 * time.Second
	defaultScale         = 3.0
	defaultBackground    = "#ffffff"
)

// ChromedpConfig contains configuration for the chromedp rasterizer
type ChromedpConfig struct {
	// DefaultTimeout for one page
	DefaultTimeout time.Duration
	// RemoteURL is the URL of a remote Chrome/Chromium instance (optional)
	// If empty, chromedp will launch a new browser instance
	RemoteURL string
	// ExecPath overrides the Chrome binary
	ExecPath string
	// NoSandbox runs Chrome without sandbox (required for Docker/root)
	NoSandbox bool
	// Scale is the default oversampling factor
	Scale float64
	// Logger for debug output
	Logger *zap.Logger
}

// ChromedpRasterizer renders pages in one reused headless Chrome tab and
// captures them as PNG at the requested device scale
type ChromedpRasterizer struct {
	config      *ChromedpConfig
	logger      *zap.Logger
	allocCtx    context.Context
	allocCancel context.CancelFunc

	mu        sync.Mutex
	tabCtx    context.Context
	tabCancel context.CancelFunc
	closed    bool
}

// NewChromedpRasterizer creates the rasterizer. The browser starts on the
// first page, not here.
func NewChromedpRasterizer(config *ChromedpConfig) *ChromedpRasterizer {
	if config == nil {
		config = &ChromedpConfig{}
	}
	if config.DefaultTimeout == 0 {
		config.DefaultTimeout = defaultChromeTimeout
	}
	if config.Scale == 0 {
		config.Scale = defaultScale
	}
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	r := &ChromedpRasterizer{config: config, logger: logger}
	r.initAllocator()
	return r
}

func (r *ChromedpRasterizer) initAllocator() {
	if r.config.RemoteURL != "" {
		r.allocCtx, r.allocCancel = chromedp.NewRemoteAllocator(context.Background(), r.config.RemoteURL)
		return
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-first-run", true),
		chromedp.Flag("disable-default-apps", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-background-networking", true),
		chromedp.Flag("hide-scrollbars", true),
		chromedp.Flag("font-render-hinting", "none"),
	)
	if r.config.NoSandbox {
		opts = append(opts, chromedp.NoSandbox)
	}
	if r.config.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(r.config.ExecPath))
	}
	r.allocCtx, r.allocCancel = chromedp.NewExecAllocator(context.Background(), opts...)
}

// surface returns the shared tab, creating it on first use. Caller holds mu.
func (r *ChromedpRasterizer) surface() context.Context {
	if r.tabCtx == nil {
		r.tabCtx, r.tabCancel = chromedp.NewContext(r.allocCtx,
			chromedp.WithLogf(func(format string, args ...interface{}) {
				r.logger.Debug(fmt.Sprintf(format, args...))
			}),
		)
	}
	return r.tabCtx
}

// Rasterize renders one page and captures it
func (r *ChromedpRasterizer) Rasterize(ctx context.Context, req *Request) (*Image, error) {
	if err := validate(req); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, NewRenderError(ErrCodeClosed, "rasterizer is closed", nil)
	}

	scale := req.Scale
	if scale <= 0 {
		scale = r.config.Scale
	}
	background := req.Background
	if background == "" {
		background = defaultBackground
	}
	timeout := req.Timeout
	if timeout == 0 {
		timeout = r.config.DefaultTimeout
	}

	start := time.Now()
	widthPx := int64(math.Ceil(MMToCSSPixels(req.WidthMM)))
	heightPx := int64(math.Ceil(MMToCSSPixels(req.HeightMM)))
	doc := withBackground(req.HTML, background)

	tab := r.surface()
	runCtx, cancel := context.WithTimeout(tab, timeout)
	defer cancel()
	// the caller's cancellation also stops the page
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	var shot []byte
	err := chromedp.Run(runCtx,
		emulation.SetDeviceMetricsOverride(widthPx, heightPx, scale, false),
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			frameTree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(frameTree.Frame.ID, doc).Do(ctx)
		}),
		chromedp.ActionFunc(func(ctx context.Context) error {
			data, err := page.CaptureScreenshot().
				WithFormat(page.CaptureScreenshotFormatPng).
				WithFromSurface(true).
				WithClip(&page.Viewport{X: 0, Y: 0, Width: float64(widthPx), Height: float64(heightPx), Scale: 1}).
				Do(ctx)
			if err != nil {
				return err
			}
			shot = data
			return nil
		}),
	)
	if err != nil {
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			return nil, NewRenderError(ErrCodeRenderTimeout,
				fmt.Sprintf("page rasterization timed out after %v", timeout), err)
		}
		if ctx.Err() != nil {
			return nil, NewRenderError(ErrCodeRenderTimeout, "page rasterization was cancelled", ctx.Err())
		}
		return nil, NewRenderError(ErrCodeRenderFailed, "chromedp execution failed", err)
	}

	img, err := decode(shot)
	if err != nil {
		return nil, err
	}

	r.logger.Debug("page rasterized",
		zap.Int("width_px", img.WidthPx),
		zap.Int("height_px", img.HeightPx),
		zap.Float64("scale", scale),
		zap.Duration("duration", time.Since(start)))
	return img, nil
}

// Reset blanks the shared tab so the next job starts from a clean surface
func (r *ChromedpRasterizer) Reset(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed || r.tabCtx == nil {
		return nil
	}
	runCtx, cancel := context.WithTimeout(r.tabCtx, r.config.DefaultTimeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	if err := chromedp.Run(runCtx, chromedp.Navigate("about:blank")); err != nil {
		// a broken tab is replaced on the next page
		r.tabCancel()
		r.tabCtx, r.tabCancel = nil, nil
		return NewRenderError(ErrCodeRenderFailed, "failed to clear raster surface", err)
	}
	return nil
}

// Close releases the tab and the browser
func (r *ChromedpRasterizer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	if r.tabCancel != nil {
		r.tabCancel()
	}
	if r.allocCancel != nil {
		r.allocCancel()
	}
	return nil
}

func validate(req *Request) error {
	if req == nil {
		return NewRenderError(ErrCodeInvalidHTML, "raster request is nil", nil)
	}
	if strings.TrimSpace(req.HTML) == "" {
		return NewRenderError(ErrCodeInvalidHTML, "HTML content is empty", nil)
	}
	if req.WidthMM <= 0 || req.HeightMM <= 0 {
		return NewRenderError(ErrCodeInvalidSize,
			fmt.Sprintf("invalid page size %.1fx%.1fmm", req.WidthMM, req.HeightMM), nil)
	}
	return nil
}

// withBackground injects the background color so transparent areas come out
// white in the capture
func withBackground(doc, background string) string {
	style := "<style>html,body{background:" + background + "}</style>"
	if i := strings.Index(strings.ToLower(doc), "</head>"); i >= 0 {
		return doc[:i] + style + doc[i:]
	}
	return style + doc
}

func decode(data []byte) (*Image, error) {
	if len(data) == 0 {
		return nil, NewRenderError(ErrCodeRenderFailed, "captured image is empty", nil)
	}
	cfg, err := png.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, NewRenderError(ErrCodeRenderFailed, "captured image is not a PNG", err)
	}
	return &Image{PNG: data, WidthPx: cfg.Width, HeightPx: cfg.Height}, nil
}

// Ensure ChromedpRasterizer implements Rasterizer
var _ Rasterizer = (*ChromedpRasterizer)(nil)
