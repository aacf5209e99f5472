package pdfsource

import (
	"bytes"
	"context"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/rotisserie/eris"

	"github.com/sells-group/prodex-cli/internal/model"
)

// PureGo extracts PDF text in-process, with no external binary dependency.
type PureGo struct{}

// NewPureGo creates a pure-Go PDF text extractor.
func NewPureGo() *PureGo {
	return &PureGo{}
}

// ExtractText reads the whole document's plain text.
func (p *PureGo) ExtractText(ctx context.Context, pdfPath string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	f, r, err := pdf.Open(pdfPath)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "encrypt") {
			return "", newDocError(model.PdfErrPasswordProtected, err)
		}
		return "", newDocError(model.PdfErrCorrupt, eris.Wrapf(err, "pdfsource: open %s", pdfPath))
	}
	defer func() { _ = f.Close() }()

	reader, err := r.GetPlainText()
	if err != nil {
		return "", newDocError(model.PdfErrUnsupported, eris.Wrapf(err, "pdfsource: plain text %s", pdfPath))
	}

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(reader); err != nil {
		return "", newDocError(model.PdfErrUnsupported, eris.Wrapf(err, "pdfsource: read text %s", pdfPath))
	}

	return buf.String(), nil
}
