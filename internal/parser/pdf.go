package parser

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/dgallion1/docoutline/internal/outline"
	pdflib "github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"golang.org/x/text/unicode/norm"
)

// PDFParser handles PDF files. Bookmarks come from pdfcpu, which also
// rejects unreadable files up front; text spans come from ledongthuc/pdf,
// which exposes per-glyph font and position data.
type PDFParser struct{}

func (p *PDFParser) Parse(r io.Reader, filename string) (outline.Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, openError(filename, fmt.Errorf("read: %w", err))
	}

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	ctx, err := api.ReadValidateAndOptimize(bytes.NewReader(data), conf)
	if err != nil {
		return nil, openError(filename, fmt.Errorf("pdfcpu read: %w", err))
	}

	reader, err := pdflib.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, openError(filename, fmt.Errorf("pdf reader: %w", err))
	}

	return &PDFDocument{ctx: ctx, reader: reader}, nil
}

// PDFDocument is an opened PDF.
type PDFDocument struct {
	ctx    *model.Context
	reader *pdflib.Reader
}

// NativeOutline flattens the bookmark tree depth-first; a bookmark's level
// is its depth and its page is the page its destination starts on.
// A missing or unwalkable outline yields no entries.
func (d *PDFDocument) NativeOutline() ([]outline.NativeEntry, error) {
	bms, err := pdfcpu.Bookmarks(d.ctx)
	if err != nil || len(bms) == 0 {
		return nil, nil
	}
	var out []outline.NativeEntry
	flattenBookmarks(bms, 1, &out)
	return out, nil
}

func flattenBookmarks(bms []pdfcpu.Bookmark, level int, out *[]outline.NativeEntry) {
	for _, bm := range bms {
		*out = append(*out, outline.NativeEntry{
			Level: level,
			Text:  bm.Title,
			Page:  bm.PageFrom,
		})
		flattenBookmarks(bm.Kids, level+1, out)
	}
}

// TextSpans merges each page's glyphs into spans. Pages whose content
// stream cannot be decoded are skipped.
func (d *PDFDocument) TextSpans() ([]outline.TextSpan, error) {
	var spans []outline.TextSpan
	numPages := d.reader.NumPage()
	for i := 1; i <= numPages; i++ {
		page := d.reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		glyphs, err := pageGlyphs(page)
		if err != nil {
			continue
		}
		spans = append(spans, mergeGlyphs(glyphs, i, pageTop(page))...)
	}
	return spans, nil
}

// pageGlyphs recovers from the panics ledongthuc/pdf raises on malformed
// content streams.
func pageGlyphs(page pdflib.Page) (glyphs []pdflib.Text, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("page content: %v", r)
		}
	}()
	return page.Content().Text, nil
}

// baselineTolerance is how far, in points, two glyphs' baselines may differ
// and still belong to one span.
const baselineTolerance = 1.0

// mergeGlyphs joins consecutive glyphs sharing font, size and baseline.
// A horizontal gap wider than a quarter of the font size becomes a space.
func mergeGlyphs(glyphs []pdflib.Text, page int, top float64) []outline.TextSpan {
	var (
		spans   []outline.TextSpan
		sb      strings.Builder
		font    string
		size    float64
		base    float64
		lastEnd float64
		open    bool
	)

	flush := func() {
		if !open {
			return
		}
		text := strings.TrimSpace(norm.NFKC.String(sb.String()))
		if text != "" {
			name := baseFontName(font)
			spans = append(spans, outline.TextSpan{
				Text:  text,
				Size:  outline.RoundSize(size),
				Font:  name,
				Flags: fontFlags(name),
				Page:  page,
				Y:     top - base,
			})
		}
		sb.Reset()
		open = false
	}

	for _, g := range glyphs {
		if open && (g.Font != font || g.FontSize != size || math.Abs(g.Y-base) > baselineTolerance) {
			flush()
		}
		if !open {
			font, size, base, open = g.Font, g.FontSize, g.Y, true
		} else if g.X-lastEnd > size/4 && !strings.HasSuffix(sb.String(), " ") && !strings.HasPrefix(g.S, " ") {
			sb.WriteByte(' ')
		}
		sb.WriteString(g.S)
		lastEnd = g.X + g.W
	}
	flush()
	return spans
}

// pageTop returns the upper edge of the page's MediaBox, following inherited
// boxes up the page tree. It returns 0 when no box is found, which still
// keeps top-down ordering of the converted positions.
func pageTop(page pdflib.Page) float64 {
	v := page.V
	for depth := 0; depth < 32 && !v.IsNull(); depth++ {
		box := v.Key("MediaBox")
		if box.Kind() == pdflib.Array && box.Len() == 4 {
			return box.Index(3).Float64()
		}
		v = v.Key("Parent")
	}
	return 0
}

// baseFontName strips the subset tag from names like "ABCDEF+Helvetica-Bold".
func baseFontName(name string) string {
	if i := strings.IndexByte(name, '+'); i == 6 {
		return name[i+1:]
	}
	return name
}

func fontFlags(name string) int {
	lower := strings.ToLower(name)
	flags := 0
	if strings.Contains(lower, "bold") || strings.Contains(lower, "black") || strings.Contains(lower, "heavy") {
		flags |= outline.FlagBold
	}
	if strings.Contains(lower, "italic") || strings.Contains(lower, "oblique") {
		flags |= outline.FlagItalic
	}
	return flags
}
