package pdftext

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"strings"

	"github.com/rotisserie/eris"
)

// PdfToText extracts text from PDFs using the pdftotext CLI tool.
type PdfToText struct {
	binPath string
}

// NewPdfToText creates a PdfToText extractor. If binPath is empty, "pdftotext" is used.
func NewPdfToText(binPath string) *PdfToText {
	if binPath == "" {
		binPath = "pdftotext"
	}
	return &PdfToText{binPath: binPath}
}

// ExtractPages writes data to a temp file, runs pdftotext -layout on it and
// splits the output on form feeds, which pdftotext emits after every page.
func (p *PdfToText) ExtractPages(ctx context.Context, data []byte) ([]string, error) {
	f, err := os.CreateTemp("", "dds-*.pdf")
	if err != nil {
		return nil, eris.Wrap(err, "pdftext: create temp file")
	}
	defer os.Remove(f.Name()) //nolint:errcheck

	if _, err := f.Write(data); err != nil {
		f.Close() //nolint:errcheck
		return nil, eris.Wrap(err, "pdftext: write temp file")
	}
	if err := f.Close(); err != nil {
		return nil, eris.Wrap(err, "pdftext: close temp file")
	}

	cmd := exec.CommandContext(ctx, p.binPath, "-layout", f.Name(), "-")

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, eris.Wrapf(err, "pdftext: pdftotext failed: %s", stderr.String())
	}

	pages := strings.Split(stdout.String(), "\f")
	if n := len(pages); n > 0 && strings.TrimSpace(pages[n-1]) == "" {
		pages = pages[:n-1]
	}
	return pages, nil
}
