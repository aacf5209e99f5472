// Package pdfsource turns PDF documents into content-pool entries so an
// extraction batch can mix web and document sources transparently. Documents
// come from direct uploads, a local document directory, or a manufacturer
// FTP mirror. Each document is processed in isolation: one corrupt or
// password-protected file never affects the others.
package pdfsource

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/prodex-cli/internal/config"
	"github.com/sells-group/prodex-cli/internal/model"
	"github.com/sells-group/prodex-cli/internal/monitoring"
)

// Extractor extracts text content from PDF files.
type Extractor interface {
	ExtractText(ctx context.Context, pdfPath string) (string, error)
}

// NewExtractor creates an Extractor based on config.
func NewExtractor(cfg config.PDFConfig) (Extractor, error) {
	switch cfg.Provider {
	case "purego", "":
		return NewPureGo(), nil
	case "pdftotext":
		return NewPdfToText(cfg.PdfToTextPath), nil
	default:
		return nil, eris.Errorf("pdfsource: unknown provider %q", cfg.Provider)
	}
}

// docError classifies a per-document failure.
type docError struct {
	kind model.PdfErrorKind
	err  error
}

func (e *docError) Error() string { return string(e.kind) + ": " + e.err.Error() }

func (e *docError) Unwrap() error { return e.err }

func newDocError(kind model.PdfErrorKind, err error) *docError {
	return &docError{kind: kind, err: err}
}

// classifyDocError maps an extraction error to a PdfErrorKind.
func classifyDocError(err error) model.PdfErrorKind {
	var de *docError
	if errors.As(err, &de) {
		return de.kind
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "encrypt") || strings.Contains(msg, "password") {
		return model.PdfErrPasswordProtected
	}
	if strings.Contains(msg, "encoding") || strings.Contains(msg, "unsupported") {
		return model.PdfErrUnsupported
	}
	return model.PdfErrCorrupt
}

// Adapter gathers matching documents and extracts their text.
type Adapter struct {
	extractor Extractor
	cfg       config.PDFConfig
	mirror    *mirrorClient // nil when no FTP mirror is configured
}

// NewAdapter builds an Adapter from config.
func NewAdapter(cfg config.PDFConfig) (*Adapter, error) {
	ex, err := NewExtractor(cfg)
	if err != nil {
		return nil, err
	}
	a := &Adapter{extractor: ex, cfg: cfg}
	if cfg.FTPMirror != "" {
		m, err := newMirrorClient(cfg.FTPMirror)
		if err != nil {
			return nil, err
		}
		a.mirror = m
	}
	return a, nil
}

// Collect resolves all matching documents to FetchResult-shaped entries
// tagged with the PDF origin tier. uploads are explicit paths supplied by
// the caller; the document directory and FTP mirror are searched by
// filename heuristics against the product identifiers.
func (a *Adapter) Collect(ctx context.Context, articleNumber, productName string, uploads []string) []model.FetchResult {
	paths := append([]string(nil), uploads...)

	if a.cfg.DocumentDir != "" {
		discovered, err := discoverLocal(a.cfg.DocumentDir, articleNumber, productName)
		if err != nil {
			zap.L().Warn("pdfsource: document dir scan failed",
				zap.String("dir", a.cfg.DocumentDir),
				zap.Error(err),
			)
		}
		paths = append(paths, discovered...)
	}

	if a.mirror != nil {
		fetched, err := a.mirror.fetchMatching(ctx, articleNumber, productName)
		if err != nil {
			zap.L().Warn("pdfsource: ftp mirror fetch failed", zap.Error(err))
		}
		paths = append(paths, fetched...)
	}

	results := make([]model.FetchResult, 0, len(paths))
	for _, p := range paths {
		results = append(results, a.extractOne(ctx, p))
	}
	return results
}

// extractOne processes a single document; failures are isolated here.
func (a *Adapter) extractOne(ctx context.Context, path string) model.FetchResult {
	start := time.Now()
	src := model.Source{
		URL:            "file://" + path,
		Title:          filepath.Base(path),
		DomainCategory: model.DomainNeutral,
	}

	text, err := a.extractor.ExtractText(ctx, path)
	if err != nil {
		kind := classifyDocError(err)
		zap.L().Warn("pdfsource: document failed",
			zap.String("path", path),
			zap.String("kind", string(kind)),
			zap.Error(err),
		)
		monitoring.PDFDocuments.WithLabelValues("failure").Inc()
		return model.FetchResult{
			Source:   src,
			TierUsed: model.TierPDF,
			// The PDF taxonomy rides in the same field; values never collide
			// with web fetch kinds.
			ErrorKind:  model.FetchErrorKind(kind),
			DurationMs: time.Since(start).Milliseconds(),
		}
	}

	monitoring.PDFDocuments.WithLabelValues("success").Inc()
	return model.FetchResult{
		Source:        src,
		TierUsed:      model.TierPDF,
		RawContent:    text,
		ContentLength: len(text),
		Success:       true,
		DurationMs:    time.Since(start).Milliseconds(),
	}
}
