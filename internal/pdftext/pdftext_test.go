package pdftext

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/dds-finder/internal/config"
)

func TestNewExtractor_Native(t *testing.T) {
	ext, err := NewExtractor(config.PDFConfig{Extractor: "native"})
	require.NoError(t, err)
	assert.IsType(t, &Native{}, ext)
}

func TestNewExtractor_Default(t *testing.T) {
	ext, err := NewExtractor(config.PDFConfig{})
	require.NoError(t, err)
	assert.IsType(t, &Native{}, ext)
}

func TestNewExtractor_PdfToText(t *testing.T) {
	ext, err := NewExtractor(config.PDFConfig{Extractor: "pdftotext", PdfToTextPath: "/usr/bin/pdftotext"})
	require.NoError(t, err)
	require.IsType(t, &PdfToText{}, ext)
	assert.Equal(t, "/usr/bin/pdftotext", ext.(*PdfToText).binPath)
}

func TestNewExtractor_Unknown(t *testing.T) {
	_, err := NewExtractor(config.PDFConfig{Extractor: "ocr"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown extractor "ocr"`)
}

func TestPdfToText_BinPath(t *testing.T) {
	p := NewPdfToText("")
	assert.Equal(t, "pdftotext", p.binPath)

	p = NewPdfToText("/custom/pdftotext")
	assert.Equal(t, "/custom/pdftotext", p.binPath)
}

func writeScript(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts not supported")
	}
	path := filepath.Join(t.TempDir(), "pdftotext")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755))
	return path
}

func TestPdfToText_SplitsPages(t *testing.T) {
	bin := writeScript(t, `printf 'page one\nline two\fpage two\f'`)

	pages, err := NewPdfToText(bin).ExtractPages(context.Background(), []byte("%PDF-1.4"))
	require.NoError(t, err)
	assert.Equal(t, []string{"page one\nline two", "page two"}, pages)
}

func TestPdfToText_Failure(t *testing.T) {
	bin := writeScript(t, `echo "Syntax Error: broken" >&2; exit 3`)

	_, err := NewPdfToText(bin).ExtractPages(context.Background(), []byte("junk"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pdftotext failed")
	assert.Contains(t, err.Error(), "Syntax Error")
}

func TestPdfToText_MissingBinary(t *testing.T) {
	_, err := NewPdfToText(filepath.Join(t.TempDir(), "nope")).ExtractPages(context.Background(), nil)
	require.Error(t, err)
}

func TestNative_RejectsGarbage(t *testing.T) {
	n := NewNative()

	_, err := n.ExtractPages(context.Background(), []byte("not a pdf at all"))
	require.Error(t, err)

	_, err = n.ExtractLinks(context.Background(), nil)
	require.Error(t, err)
}

// buildLinkPDF assembles a one-page PDF whose only content is a URI link
// annotation, computing the xref offsets as it goes.
func buildLinkPDF(uri string) []byte {
	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Annots [4 0 R 5 0 R] >>",
		"<< /Type /Annot /Subtype /Link /Rect [0 0 100 20] /A << /S /URI /URI (" + uri + ") >> >>",
		"<< /Type /Annot /Subtype /Text /Rect [0 0 10 10] /Contents (note) >>",
	}

	var b strings.Builder
	b.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = b.Len()
		fmt.Fprintf(&b, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}
	xref := b.Len()
	fmt.Fprintf(&b, "xref\n0 %d\n", len(objects)+1)
	b.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&b, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&b, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)
	return []byte(b.String())
}

func TestNative_ExtractLinks(t *testing.T) {
	data := buildLinkPDF("https://portal.ct.gov/-/media/DDS/QSR/acme_qsr.pdf")

	links, err := NewNative().ExtractLinks(context.Background(), data)
	require.NoError(t, err)
	require.Len(t, links, 1)
	assert.Equal(t, []string{"https://portal.ct.gov/-/media/DDS/QSR/acme_qsr.pdf"}, links[0])
}

func TestNative_ExtractLinks_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewNative().ExtractLinks(ctx, buildLinkPDF("https://portal.ct.gov/qsr.pdf"))
	require.ErrorIs(t, err, context.Canceled)
}
