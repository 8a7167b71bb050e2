// Package pdftext extracts per-page text and hyperlinks from PDF documents.
package pdftext

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/dds-finder/internal/config"
)

// Extractor extracts the text of each page of a PDF, in page order.
type Extractor interface {
	ExtractPages(ctx context.Context, data []byte) ([]string, error)
}

// LinkExtractor is implemented by extractors that can also read the URI
// link annotations of each page.
type LinkExtractor interface {
	ExtractLinks(ctx context.Context, data []byte) ([][]string, error)
}

// NewExtractor creates an Extractor based on config.
func NewExtractor(cfg config.PDFConfig) (Extractor, error) {
	switch cfg.Extractor {
	case "native", "":
		return NewNative(), nil
	case "pdftotext":
		return NewPdfToText(cfg.PdfToTextPath), nil
	default:
		return nil, eris.Errorf("pdftext: unknown extractor %q", cfg.Extractor)
	}
}
