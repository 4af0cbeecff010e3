package export

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"os/exec"
	"strings"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/chromedp"
)

// containerSelector is the element every container template must provide.
const containerSelector = "#export-root"

// chromeCandidates are looked up on PATH when no explicit binary is configured.
var chromeCandidates = []string{"chromium-browser", "chromium", "google-chrome", "headless-shell"}

// ChromeRenderer lays containers out in headless Chrome.
type ChromeRenderer struct {
	execPath string
}

// NewChromeRenderer returns a renderer that launches execPath, or the first
// Chrome binary found on PATH when execPath is empty.
func NewChromeRenderer(execPath string) *ChromeRenderer {
	return &ChromeRenderer{execPath: execPath}
}

func (r *ChromeRenderer) lookPath() (string, error) {
	if r.execPath != "" {
		if path, err := exec.LookPath(r.execPath); err == nil {
			return path, nil
		}
		return "", fmt.Errorf("%w: %s not found", ErrPDFDependencyMissing, r.execPath)
	}
	for _, name := range chromeCandidates {
		if path, err := exec.LookPath(name); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("%w: chromium not installed", ErrPDFDependencyMissing)
}

func (r *ChromeRenderer) Acquire(ctx context.Context, canvas Canvas) (Surface, error) {
	path, err := r.lookPath()
	if err != nil {
		return nil, err
	}

	// Chrome options for headless mode in container
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.ExecPath(path),
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-setuid-sandbox", true),
		chromedp.Flag("hide-scrollbars", true),
	)

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	taskCtx, cancelTask := chromedp.NewContext(allocCtx)

	surface := &chromeSurface{
		ctx:    taskCtx,
		canvas: canvas,
		cancel: func() {
			cancelTask()
			cancelAlloc()
		},
	}
	// starts the browser so launch failures surface here
	if err := chromedp.Run(taskCtx); err != nil {
		surface.Release()
		return nil, fmt.Errorf("start chrome: %w", err)
	}
	return surface, nil
}

type chromeSurface struct {
	ctx    context.Context
	canvas Canvas
	cancel context.CancelFunc
}

func (s *chromeSurface) Mount(ctx context.Context, html string) error {
	// Encode HTML as data URL using proper percent-encoding
	// url.QueryEscape uses + for spaces which is wrong for data URLs
	dataURL := "data:text/html;charset=utf-8," + percentEncodeForDataURL(html)

	return s.run(ctx,
		chromedp.EmulateViewport(int64(s.canvas.WidthPx), 1123),
		// opaque white so page slices never carry transparency
		emulation.SetDefaultBackgroundColorOverride().WithColor(&cdp.RGBA{R: 255, G: 255, B: 255, A: 1}),
		chromedp.Navigate(dataURL),
		chromedp.WaitReady(containerSelector, chromedp.ByQuery),
	)
}

func (s *chromeSurface) Capture(ctx context.Context) (image.Image, error) {
	scale := s.canvas.Scale
	if scale <= 0 {
		scale = 1
	}
	var buf []byte
	if err := s.run(ctx, chromedp.ScreenshotScale(containerSelector, scale, &buf, chromedp.ByQuery)); err != nil {
		return nil, fmt.Errorf("capture container: %w", err)
	}
	img, err := png.Decode(bytes.NewReader(buf))
	if err != nil {
		return nil, fmt.Errorf("decode capture: %w", err)
	}
	return img, nil
}

func (s *chromeSurface) Release() {
	s.cancel()
}

// run executes actions on the tab while honouring the caller's deadline.
func (s *chromeSurface) run(ctx context.Context, actions ...chromedp.Action) error {
	done := make(chan error, 1)
	go func() {
		done <- chromedp.Run(s.ctx, actions...)
	}()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		s.cancel()
		<-done
		return ctx.Err()
	}
}

// percentEncodeForDataURL encodes a string for use in a data URL
// Unlike url.QueryEscape, this properly encodes spaces as %20 for data URLs
func percentEncodeForDataURL(s string) string {
	var result strings.Builder
	for _, b := range []byte(s) {
		switch {
		case b >= 'a' && b <= 'z',
			b >= 'A' && b <= 'Z',
			b >= '0' && b <= '9',
			b == '-', b == '_', b == '.', b == '~':
			// Unreserved characters per RFC 3986
			result.WriteByte(b)
		case b == ' ':
			result.WriteString("%20")
		default:
			fmt.Fprintf(&result, "%%%02X", b)
		}
	}
	return result.String()
}
