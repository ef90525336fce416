package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/joseph-ayodele/invoice-extractor/internal/common"
)

// Methods reported in AcquisitionResult.Method.
const (
	MethodPDFText = "pdf-text"
	MethodPDFOCR  = "pdf-ocr"
	MethodNone    = "none"
)

type Config struct {
	Pdftoppm  string // binary name or absolute path; if empty -> "pdftoppm"
	Tesseract string // binary name or absolute path; if empty -> "tesseract"

	TesseractLang string // default "eng"
	DPI           int    // rasterization DPI for scanned PDFs, default 300
	MaxPages      int    // 0 = no limit
	TessdataDir   string

	PSM int // 6 = uniform block of text
	OEM int // 1 = LSTM
}

type AcquisitionResult struct {
	Text     string
	Pages    int
	Method   string // MethodPDFText | MethodPDFOCR | MethodNone
	Duration time.Duration
	Warnings []string
}

// Extractor returns the best-effort text of a PDF: the native text layer first,
// rasterize + preprocess + OCR when the layer is blank.
type Extractor struct {
	cfg       Config
	runner    Runner
	textLayer TextLayer
	logger    *slog.Logger
}

type Option func(*Extractor)

// WithRunner replaces the exec runner used for pdftoppm and tesseract.
func WithRunner(r Runner) Option {
	return func(e *Extractor) {
		if r != nil {
			e.runner = r
		}
	}
}

// WithTextLayer replaces the native text-layer reader.
func WithTextLayer(t TextLayer) Option {
	return func(e *Extractor) {
		if t != nil {
			e.textLayer = t
		}
	}
}

func NewExtractor(cfg Config, logger *slog.Logger, opts ...Option) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Pdftoppm == "" {
		cfg.Pdftoppm = "pdftoppm"
	}
	if cfg.Tesseract == "" {
		cfg.Tesseract = "tesseract"
	}
	if cfg.TesseractLang == "" {
		cfg.TesseractLang = "eng"
	}
	if cfg.DPI <= 0 {
		cfg.DPI = 300
	}
	e := &Extractor{
		cfg:       cfg,
		runner:    execRunner{logger: logger},
		textLayer: pdfTextLayer{},
		logger:    logger,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Acquire never fails because of a single page. It returns an error wrapping
// common.ErrAcquisitionEmpty when neither path produced any text.
func (e *Extractor) Acquire(ctx context.Context, path string) (AcquisitionResult, error) {
	start := time.Now()
	e.logger.Debug("ocr.acquire.start", "path", path)

	text, pages, warns := e.directText(path)
	res := AcquisitionResult{Text: text, Pages: pages, Method: MethodPDFText, Warnings: warns}

	if strings.TrimSpace(text) == "" {
		e.logger.Info("ocr.acquire.fallback", "path", path, "reason", "empty text layer")
		text, pages, warns = e.ocrText(ctx, path)
		res.Text = text
		res.Method = MethodPDFOCR
		res.Warnings = append(res.Warnings, warns...)
		if pages > 0 {
			res.Pages = pages
		}
	}
	res.Duration = time.Since(start)

	if strings.TrimSpace(res.Text) == "" {
		res.Method = MethodNone
		e.logger.Warn("ocr.acquire.empty", "path", path, "warnings", len(res.Warnings), "elapsed_ms", res.Duration.Milliseconds())
		return res, fmt.Errorf("%s: %w", path, common.ErrAcquisitionEmpty)
	}

	e.logger.Info("ocr.acquire.ok",
		"path", path,
		"method", res.Method,
		"pages", res.Pages,
		"bytes", len(res.Text),
		"elapsed_ms", res.Duration.Milliseconds(),
	)
	return res, nil
}

// directText joins the non-empty pages of the text layer. A failing page is logged
// and contributes nothing.
func (e *Extractor) directText(path string) (string, int, []string) {
	pages, err := e.textLayer.Pages(path)
	if err != nil {
		e.logger.Warn("ocr.text_layer.open_failed", "path", path, "error", err)
		return "", 0, []string{err.Error()}
	}

	var b strings.Builder
	var warns []string
	for i, p := range pages {
		if p.Err != nil {
			e.logger.Warn("ocr.text_layer.page_failed", "path", path, "page", i+1, "error", p.Err)
			warns = append(warns, p.Err.Error())
			continue
		}
		if p.Text == "" {
			continue
		}
		b.WriteString(p.Text)
		b.WriteString("\n")
	}
	return b.String(), len(pages), warns
}

// ocrText rasterizes every page, preprocesses it and runs tesseract on the result.
func (e *Extractor) ocrText(ctx context.Context, path string) (string, int, []string) {
	images, cleanup, err := e.rasterize(ctx, path)
	if cleanup != nil {
		defer cleanup()
	}
	if err != nil {
		e.logger.Warn("ocr.rasterize.failed", "path", path, "error", err)
		return "", 0, []string{err.Error()}
	}

	var b strings.Builder
	var warns []string
	for i, img := range images {
		txt, err := e.ocrPage(ctx, img)
		if err != nil {
			e.logger.Warn("ocr.page.failed", "path", path, "page", i+1, "error", err)
			warns = append(warns, err.Error())
			continue
		}
		b.WriteString(txt)
		b.WriteString("\n")
	}
	return b.String(), len(images), warns
}

func (e *Extractor) ocrPage(ctx context.Context, img string) (string, error) {
	prepared, err := preprocessFile(img)
	if err != nil {
		return "", err
	}
	txt, err := e.tesseract(ctx, prepared)
	if err != nil {
		return "", err
	}
	return Normalize(txt), nil
}
