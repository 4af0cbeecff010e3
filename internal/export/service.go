package export

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

const (
	defaultSettle  = 300 * time.Millisecond
	defaultTimeout = 30 * time.Second
	rasterScale    = 2
)

// Sink receives every successful export. Sink failures are logged and never
// fail the export.
type Sink interface {
	ExportCompleted(ctx context.Context, userID string, doc Document, res *Result) error
}

// Options configures a Service. Zero values fall back to defaults.
type Options struct {
	Renderer Renderer
	DOCX     DOCXEncoder
	Settle   time.Duration
	Timeout  time.Duration
	Sinks    []Sink
	Now      func() time.Time
}

// Service provides document export functionality
type Service struct {
	renderer Renderer
	docx     DOCXEncoder
	settle   time.Duration
	timeout  time.Duration
	sinks    []Sink
	now      func() time.Time
	busy     *Busy
}

// NewService creates a new export service
func NewService(opts Options) *Service {
	s := &Service{
		renderer: opts.Renderer,
		docx:     opts.DOCX,
		settle:   opts.Settle,
		timeout:  opts.Timeout,
		sinks:    opts.Sinks,
		now:      opts.Now,
		busy:     NewBusy(),
	}
	if s.docx == nil {
		s.docx = NativeDOCXEncoder{}
	}
	if s.settle <= 0 {
		s.settle = defaultSettle
	}
	if s.timeout <= 0 {
		s.timeout = defaultTimeout
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Export generates an export in the requested format. Rejections before any
// rendering are *ValidationError or ErrBusy; failures afterwards are
// *RenderingError.
func (s *Service) Export(ctx context.Context, req Request) (*Result, error) {
	if err := Validate(req.Document); err != nil {
		return nil, err
	}
	if req.Format != FormatPDF && req.Format != FormatDOCX {
		return nil, &ValidationError{Message: fmt.Sprintf("unsupported format: %s", req.Format)}
	}

	release, ok := s.busy.Acquire(req.UserID)
	if !ok {
		return nil, ErrBusy
	}
	defer release()

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	started := time.Now()
	var (
		res *Result
		err error
	)
	switch req.Format {
	case FormatPDF:
		res, err = s.exportPDF(ctx, req.Document)
	case FormatDOCX:
		res, err = s.exportDOCX(ctx, req.Document)
	}
	logger := zerolog.Ctx(ctx).With().Str("format", string(req.Format)).Str("user_id", req.UserID).Logger()
	if err != nil {
		logger.Error().Err(err).Dur("elapsed", time.Since(started)).Msg("export failed")
		return nil, &RenderingError{Format: req.Format, Err: err}
	}
	logger.Info().Str("filename", res.Filename).Int("bytes", len(res.Data)).Dur("elapsed", time.Since(started)).Msg("export completed")

	for _, sink := range s.sinks {
		if err := sink.ExportCompleted(ctx, req.UserID, req.Document, res); err != nil {
			logger.Warn().Err(err).Msg("export sink failed")
		}
	}
	return res, nil
}

func (s *Service) exportPDF(ctx context.Context, doc Document) (*Result, error) {
	if s.renderer == nil {
		return nil, fmt.Errorf("%w: no renderer configured", ErrPDFDependencyMissing)
	}

	html, err := RenderDocumentHTML(newTemplateData(doc, s.now()))
	if err != nil {
		return nil, fmt.Errorf("render template: %w", err)
	}

	surface, err := s.renderer.Acquire(ctx, Canvas{WidthPx: ContainerWidthPx, Scale: rasterScale})
	if err != nil {
		return nil, fmt.Errorf("acquire surface: %w", err)
	}
	defer surface.Release()

	if err := surface.Mount(ctx, html); err != nil {
		return nil, fmt.Errorf("mount container: %w", err)
	}

	// layout settle before rasterizing
	select {
	case <-time.After(s.settle):
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	raster, err := surface.Capture(ctx)
	if err != nil {
		return nil, err
	}

	data, pages, err := assemblePDF(raster, doc.Title)
	if err != nil {
		return nil, err
	}
	return &Result{
		Data:     data,
		Filename: sanitizeFilename(doc.Title) + ".pdf",
		MimeType: mimePDF,
		Pages:    pages,
	}, nil
}

func (s *Service) exportDOCX(ctx context.Context, doc Document) (*Result, error) {
	data, err := s.docx.Encode(ctx, buildWordDocument(doc, s.now()))
	if err != nil {
		return nil, fmt.Errorf("encode docx: %w", err)
	}
	return &Result{
		Data:     data,
		Filename: sanitizeFilename(doc.Title) + ".docx",
		MimeType: mimeDOCX,
	}, nil
}

// IsDependencyMissing reports whether err comes from a missing runtime tool.
func IsDependencyMissing(err error) bool {
	return errors.Is(err, ErrPDFDependencyMissing) || errors.Is(err, ErrDOCXDependencyMissing)
}
