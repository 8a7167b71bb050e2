package pdftext

import (
	"bytes"
	"context"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/rotisserie/eris"
)

// Native extracts text with the pure-Go ledongthuc/pdf reader.
type Native struct{}

// NewNative creates a Native extractor.
func NewNative() *Native {
	return &Native{}
}

var _ LinkExtractor = (*Native)(nil)

// ExtractPages returns the text of each page with one line per text row.
func (n *Native) ExtractPages(ctx context.Context, data []byte) (pages []string, err error) {
	r, err := open(data)
	if err != nil {
		return nil, err
	}
	defer recoverMalformed(&err)

	for i := 1; i <= r.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		p := r.Page(i)
		if p.V.IsNull() {
			pages = append(pages, "")
			continue
		}
		rows, err := p.GetTextByRow()
		if err != nil {
			return nil, eris.Wrapf(err, "pdftext: read page %d", i)
		}
		pages = append(pages, rowsToText(rows))
	}
	return pages, nil
}

// ExtractLinks returns the URI link annotations of each page.
func (n *Native) ExtractLinks(ctx context.Context, data []byte) (links [][]string, err error) {
	r, err := open(data)
	if err != nil {
		return nil, err
	}
	defer recoverMalformed(&err)

	for i := 1; i <= r.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var pageLinks []string
		annots := r.Page(i).V.Key("Annots")
		for j := 0; j < annots.Len(); j++ {
			a := annots.Index(j)
			if a.Key("Subtype").Name() != "Link" {
				continue
			}
			if uri := a.Key("A").Key("URI").RawString(); uri != "" {
				pageLinks = append(pageLinks, uri)
			}
		}
		links = append(links, pageLinks)
	}
	return links, nil
}

func open(data []byte) (r *pdf.Reader, err error) {
	defer recoverMalformed(&err)
	r, err = pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, eris.Wrap(err, "pdftext: open pdf")
	}
	return r, nil
}

// recoverMalformed converts the reader's panics on corrupt input into an
// error.
func recoverMalformed(err *error) {
	if r := recover(); r != nil {
		*err = eris.Errorf("pdftext: malformed pdf: %v", r)
	}
}

// rowsToText joins the glyph runs of each row, inserting a space where the
// horizontal gap between runs is wider than a fraction of the font size.
func rowsToText(rows pdf.Rows) string {
	var b strings.Builder
	for _, row := range rows {
		var prev *pdf.Text
		for k := range row.Content {
			t := &row.Content[k]
			if prev != nil && gap(prev, t) {
				b.WriteByte(' ')
			}
			b.WriteString(t.S)
			prev = t
		}
		b.WriteByte('\n')
	}
	return b.String()
}

func gap(prev, cur *pdf.Text) bool {
	if strings.HasSuffix(prev.S, " ") || strings.HasPrefix(cur.S, " ") {
		return false
	}
	return cur.X-(prev.X+prev.W) > prev.FontSize*0.2
}
