package parser

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/dgallion1/docoutline/internal/outline"
)

// ErrUnsupported is returned for file extensions no parser handles.
var ErrUnsupported = errors.New("unsupported file extension")

// Parser opens raw document bytes as an outline.Document.
type Parser interface {
	Parse(r io.Reader, filename string) (outline.Document, error)
}

// SupportedExtensions lists file extensions this service can handle.
var SupportedExtensions = map[string]bool{
	".pdf":      true,
	".md":       true,
	".markdown": true,
	".html":     true,
	".htm":      true,
	".docx":     true,
	".txt":      true,
}

// ForFile returns the appropriate parser for a filename.
func ForFile(filename string) (Parser, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".pdf":
		return &PDFParser{}, nil
	case ".md", ".markdown":
		return &MarkdownParser{}, nil
	case ".html", ".htm":
		return &HTMLParser{}, nil
	case ".docx":
		return &DOCXParser{}, nil
	case ".txt":
		return &TextParser{}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, ext)
	}
}

// IsSupportedExtension checks if a file extension is supported.
func IsSupportedExtension(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return SupportedExtensions[ext]
}

// Open picks the parser for filename and parses r with it.
func Open(r io.Reader, filename string) (outline.Document, error) {
	p, err := ForFile(filename)
	if err != nil {
		return nil, err
	}
	return p.Parse(r, filename)
}

// bodySize is the nominal point size given to text from formats that carry
// no font metrics.
const bodySize = 12

// staticDocument is a Document whose outline and spans were built at parse time.
type staticDocument struct {
	native []outline.NativeEntry
	spans  []outline.TextSpan
}

func (d *staticDocument) NativeOutline() ([]outline.NativeEntry, error) {
	return d.native, nil
}

func (d *staticDocument) TextSpans() ([]outline.TextSpan, error) {
	return d.spans, nil
}

// addSpan appends a span on page 1 positioned after every earlier span.
func (d *staticDocument) addSpan(text string, size float64, flags int) {
	d.spans = append(d.spans, outline.TextSpan{
		Text:  text,
		Size:  outline.RoundSize(size),
		Flags: flags,
		Page:  1,
		Y:     float64(len(d.spans)),
	})
}

func openError(filename string, err error) error {
	return &outline.DocumentOpenError{Name: filename, Err: err}
}
