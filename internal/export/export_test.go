package export

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"io"
	"strings"
	"sync"
	"testing"
	"time"
)

type fakeRenderer struct {
	mu        sync.Mutex
	width     int
	height    int
	acquired  int
	released  int
	mounted   []string
	mountErr  error
	captErr   error
	mountHook func()
}

func (r *fakeRenderer) Acquire(_ context.Context, canvas Canvas) (Surface, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.acquired++
	return &fakeSurface{r: r, canvas: canvas}, nil
}

type fakeSurface struct {
	r      *fakeRenderer
	canvas Canvas
}

func (s *fakeSurface) Mount(_ context.Context, html string) error {
	if s.r.mountHook != nil {
		s.r.mountHook()
	}
	s.r.mu.Lock()
	defer s.r.mu.Unlock()
	s.r.mounted = append(s.r.mounted, html)
	return s.r.mountErr
}

func (s *fakeSurface) Capture(context.Context) (image.Image, error) {
	if s.r.captErr != nil {
		return nil, s.r.captErr
	}
	img := image.NewRGBA(image.Rect(0, 0, s.r.width, s.r.height))
	for y := 0; y < s.r.height; y += 10 {
		img.Set(0, y, color.Black)
	}
	return img, nil
}

func (s *fakeSurface) Release() {
	s.r.mu.Lock()
	defer s.r.mu.Unlock()
	s.r.released++
}

type recordingSink struct {
	calls []string
	err   error
}

func (s *recordingSink) ExportCompleted(_ context.Context, userID string, _ Document, res *Result) error {
	s.calls = append(s.calls, userID+":"+res.Filename)
	return s.err
}

func sampleDocument() Document {
	return Document{
		Title: "Backend Engineer",
		Questions: []Question{
			{Title: "Motivation", Subtitle: "Why us", Content: "I like Go.\nA lot."},
			{Title: "Skipped", Content: "   "},
			{Title: "", Content: "Untitled answer"},
		},
	}
}

func fixedNow() time.Time {
	return time.Date(2026, time.May, 1, 10, 0, 0, 0, time.UTC)
}

func newTestService(r Renderer, sinks ...Sink) *Service {
	return NewService(Options{
		Renderer: r,
		Settle:   time.Millisecond,
		Timeout:  5 * time.Second,
		Sinks:    sinks,
		Now:      fixedNow,
	})
}

func TestExportRejectsMissingTitle(t *testing.T) {
	renderer := &fakeRenderer{width: 420, height: 100}
	svc := newTestService(renderer)

	doc := sampleDocument()
	doc.Title = "  "
	for _, format := range []Format{FormatPDF, FormatDOCX} {
		_, err := svc.Export(context.Background(), Request{Document: doc, Format: format})
		var verr *ValidationError
		if !errors.As(err, &verr) {
			t.Fatalf("%s: expected validation error, got %v", format, err)
		}
	}
	if renderer.acquired != 0 {
		t.Fatalf("renderer acquired %d times, want 0", renderer.acquired)
	}
}

func TestExportRejectsBlankAnswers(t *testing.T) {
	renderer := &fakeRenderer{width: 420, height: 100}
	svc := newTestService(renderer)

	doc := Document{Title: "Intro", Questions: []Question{{Title: "a", Content: ""}, {Title: "b", Content: "\n\t "}}}
	_, err := svc.Export(context.Background(), Request{Document: doc, Format: FormatPDF})
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if renderer.acquired != 0 {
		t.Fatalf("renderer acquired %d times, want 0", renderer.acquired)
	}
}

func TestExportRejectsUnknownFormat(t *testing.T) {
	svc := newTestService(&fakeRenderer{})
	_, err := svc.Export(context.Background(), Request{Document: sampleDocument(), Format: "odt"})
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestExportPDFPaginatesAndReleases(t *testing.T) {
	// 2 px per mm, content 2.5 pages of 295mm
	renderer := &fakeRenderer{width: 420, height: 1475}
	sink := &recordingSink{}
	svc := newTestService(renderer, sink)

	res, err := svc.Export(context.Background(), Request{Document: sampleDocument(), Format: FormatPDF, UserID: "u-1"})
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if res.Pages != 3 {
		t.Fatalf("pages = %d, want 3", res.Pages)
	}
	if res.Filename != "Backend Engineer.pdf" {
		t.Fatalf("filename = %q", res.Filename)
	}
	if res.MimeType != mimePDF {
		t.Fatalf("mime = %q", res.MimeType)
	}
	if !bytes.HasPrefix(res.Data, []byte("%PDF-")) {
		t.Fatalf("output is not a pdf")
	}
	if renderer.acquired != 1 || renderer.released != 1 {
		t.Fatalf("acquired %d released %d, want 1/1", renderer.acquired, renderer.released)
	}

	html := renderer.mounted[0]
	if !strings.Contains(html, `id="export-root"`) {
		t.Fatalf("container missing from mounted html")
	}
	if !strings.Contains(html, "Motivation") || strings.Contains(html, "Skipped") {
		t.Fatalf("mounted html should only carry answered questions")
	}
	if len(sink.calls) != 1 || sink.calls[0] != "u-1:Backend Engineer.pdf" {
		t.Fatalf("sink calls = %v", sink.calls)
	}
}

func TestExportReleasesSurfaceOnFailure(t *testing.T) {
	cases := []struct {
		name     string
		renderer *fakeRenderer
	}{
		{name: "mount", renderer: &fakeRenderer{width: 420, height: 10, mountErr: errors.New("navigate failed")}},
		{name: "capture", renderer: &fakeRenderer{width: 420, height: 10, captErr: errors.New("screenshot failed")}},
		{name: "empty raster", renderer: &fakeRenderer{width: 0, height: 0}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := newTestService(tc.renderer)
			_, err := svc.Export(context.Background(), Request{Document: sampleDocument(), Format: FormatPDF})
			var rerr *RenderingError
			if !errors.As(err, &rerr) {
				t.Fatalf("expected rendering error, got %v", err)
			}
			if rerr.Format != FormatPDF {
				t.Fatalf("format = %q", rerr.Format)
			}
			if tc.renderer.released != 1 {
				t.Fatalf("released %d times, want 1", tc.renderer.released)
			}
		})
	}
}

func TestExportReleasesSurfaceOnTimeout(t *testing.T) {
	renderer := &fakeRenderer{width: 420, height: 10}
	svc := NewService(Options{Renderer: renderer, Settle: time.Hour, Timeout: 20 * time.Millisecond, Now: fixedNow})

	_, err := svc.Export(context.Background(), Request{Document: sampleDocument(), Format: FormatPDF})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if renderer.released != 1 {
		t.Fatalf("released %d times, want 1", renderer.released)
	}
}

func TestExportSinkFailureDoesNotFailExport(t *testing.T) {
	sink := &recordingSink{err: errors.New("bucket unavailable")}
	svc := newTestService(&fakeRenderer{width: 420, height: 100}, sink)

	if _, err := svc.Export(context.Background(), Request{Document: sampleDocument(), Format: FormatDOCX}); err != nil {
		t.Fatalf("export: %v", err)
	}
	if len(sink.calls) != 1 {
		t.Fatalf("sink calls = %d, want 1", len(sink.calls))
	}
}

func TestExportBusyGuard(t *testing.T) {
	entered := make(chan struct{})
	unblock := make(chan struct{})
	renderer := &fakeRenderer{width: 420, height: 100}
	renderer.mountHook = func() {
		close(entered)
		<-unblock
	}
	svc := newTestService(renderer)

	done := make(chan error, 1)
	go func() {
		_, err := svc.Export(context.Background(), Request{Document: sampleDocument(), Format: FormatPDF, UserID: "u-1"})
		done <- err
	}()
	<-entered

	_, err := svc.Export(context.Background(), Request{Document: sampleDocument(), Format: FormatDOCX, UserID: "u-1"})
	if !errors.Is(err, ErrBusy) {
		t.Fatalf("expected ErrBusy, got %v", err)
	}
	// other users are not blocked
	if _, err := svc.Export(context.Background(), Request{Document: sampleDocument(), Format: FormatDOCX, UserID: "u-2"}); err != nil {
		t.Fatalf("other user export: %v", err)
	}

	close(unblock)
	if err := <-done; err != nil {
		t.Fatalf("first export: %v", err)
	}
	if _, err := svc.Export(context.Background(), Request{Document: sampleDocument(), Format: FormatDOCX, UserID: "u-1"}); err != nil {
		t.Fatalf("export after release: %v", err)
	}
}

func TestExportPDFWithoutRenderer(t *testing.T) {
	svc := NewService(Options{Now: fixedNow})
	_, err := svc.Export(context.Background(), Request{Document: sampleDocument(), Format: FormatPDF})
	if !errors.Is(err, ErrPDFDependencyMissing) {
		t.Fatalf("expected dependency error, got %v", err)
	}
	if !IsDependencyMissing(err) {
		t.Fatalf("IsDependencyMissing = false")
	}
}

func TestExportDOCX(t *testing.T) {
	svc := newTestService(nil)

	res, err := svc.Export(context.Background(), Request{Document: sampleDocument(), Format: FormatDOCX})
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if res.Filename != "Backend Engineer.docx" || res.MimeType != mimeDOCX {
		t.Fatalf("unexpected result %q %q", res.Filename, res.MimeType)
	}

	zr, err := zip.NewReader(bytes.NewReader(res.Data), int64(len(res.Data)))
	if err != nil {
		t.Fatalf("open docx: %v", err)
	}
	files := map[string]string{}
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("open %s: %v", f.Name, err)
		}
		body, _ := io.ReadAll(rc)
		rc.Close()
		files[f.Name] = string(body)
	}
	for _, name := range []string{"[Content_Types].xml", "_rels/.rels", "word/document.xml", "word/_rels/document.xml.rels", "word/footer1.xml"} {
		if _, ok := files[name]; !ok {
			t.Fatalf("missing part %s", name)
		}
	}

	body := files["word/document.xml"]
	for _, want := range []string{"Backend Engineer", "2026-05-01", "1. Motivation", "Why us", "I like Go.", "<w:br/>", "Question 2", "Untitled answer"} {
		if !strings.Contains(body, want) {
			t.Fatalf("document.xml missing %q", want)
		}
	}
	if strings.Contains(body, "Skipped") {
		t.Fatalf("blank question rendered")
	}
	if !strings.Contains(files["word/footer1.xml"], footerText) {
		t.Fatalf("footer text missing")
	}
}

func TestDocumentXMLEscapesText(t *testing.T) {
	wd := buildWordDocument(Document{Title: "R&D <team>", Questions: []Question{{Title: "a", Content: "x < y"}}}, fixedNow())
	body := documentXML(wd)
	if !strings.Contains(body, "R&amp;D &lt;team&gt;") || !strings.Contains(body, "x &lt; y") {
		t.Fatalf("text not escaped: %s", body)
	}
}

func TestPageOffsets(t *testing.T) {
	cases := []struct {
		name      string
		contentMM float64
		want      int
	}{
		{name: "half page", contentMM: 100, want: 1},
		{name: "two and a half pages", contentMM: 2.5 * pageStepMM, want: 3},
		{name: "exact page adds trailing page", contentMM: pageStepMM, want: 2},
		{name: "just under one page", contentMM: pageStepMM - 1, want: 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			offsets := pageOffsets(tc.contentMM, pageStepMM)
			if len(offsets) != tc.want {
				t.Fatalf("pages = %d (%v), want %d", len(offsets), offsets, tc.want)
			}
			for i, off := range offsets {
				if off != float64(i)*pageStepMM {
					t.Fatalf("offset[%d] = %v, want %v", i, off, float64(i)*pageStepMM)
				}
			}
		})
	}
}

func TestSanitizeFilename(t *testing.T) {
	cases := map[string]string{
		"a/b:c*d":         "a_b_c_d",
		`x\y?"z"<>|`:      "x_y__z____",
		"":                "document",
		"   ":             "document",
		"  My Resume  ":   "My Resume",
		"자기소개서 2026": "자기소개서 2026",
	}
	for input, want := range cases {
		if got := sanitizeFilename(input); got != want {
			t.Fatalf("sanitizeFilename(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestRenderDocumentHTML(t *testing.T) {
	html, err := RenderDocumentHTML(newTemplateData(sampleDocument(), fixedNow()))
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	for _, want := range []string{"Backend Engineer", "2026-05-01", "1. Motivation", "Why us", "Question 2", "Untitled answer", "794px"} {
		if !strings.Contains(html, want) {
			t.Fatalf("html missing %q", want)
		}
	}
	if strings.Contains(html, "Skipped") {
		t.Fatalf("blank question rendered")
	}
}

func TestQuestionLabelsMatchAcrossFormats(t *testing.T) {
	doc := sampleDocument()
	html, err := RenderDocumentHTML(newTemplateData(doc, fixedNow()))
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	var headings []string
	for _, block := range buildWordDocument(doc, fixedNow()).Blocks {
		if block.Kind == blockHeading {
			headings = append(headings, block.Text)
		}
	}
	if len(headings) != 2 || headings[1] != "Question 2" {
		t.Fatalf("unexpected headings %q", headings)
	}
	for _, heading := range headings {
		if !strings.Contains(html, ">"+heading+"<") {
			t.Fatalf("pdf container missing label %q", heading)
		}
	}
	if strings.Contains(html, "2. <") {
		t.Fatalf("untitled question rendered with empty label")
	}
}

func TestParagraphs(t *testing.T) {
	got := paragraphs("first\nline\r\n\r\n\n second \n\n")
	if len(got) != 2 || got[0] != "first\nline" || got[1] != "second" {
		t.Fatalf("paragraphs = %q", got)
	}
}

func TestBusyAcquire(t *testing.T) {
	b := NewBusy()
	release, ok := b.Acquire("u")
	if !ok {
		t.Fatalf("first acquire failed")
	}
	if _, ok := b.Acquire("u"); ok {
		t.Fatalf("second acquire should fail")
	}
	release()
	if _, ok := b.Acquire("u"); !ok {
		t.Fatalf("acquire after release failed")
	}
}

func TestChromeRendererMissingBinary(t *testing.T) {
	r := NewChromeRenderer("/nonexistent/chrome-binary")
	_, err := r.Acquire(context.Background(), Canvas{WidthPx: ContainerWidthPx, Scale: 2})
	if !errors.Is(err, ErrPDFDependencyMissing) {
		t.Fatalf("expected ErrPDFDependencyMissing, got %v", err)
	}
}

func TestPercentEncodeForDataURL(t *testing.T) {
	cases := []struct {
		input    string
		expected string
	}{
		{"hello", "hello"},
		{"hello world", "hello%20world"},
		{"<p>", "%3Cp%3E"},
		{"a&b", "a%26b"},
		{"100%", "100%25"},
		{"안", "%EC%95%88"},
	}
	for _, tc := range cases {
		if got := percentEncodeForDataURL(tc.input); got != tc.expected {
			t.Errorf("percentEncodeForDataURL(%q) = %q, want %q", tc.input, got, tc.expected)
		}
	}
}
