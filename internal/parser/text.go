package parser

import (
	"bufio"
	"io"
	"strings"

	"github.com/dgallion1/docoutline/internal/outline"
)

// TextParser handles plain text files. Every non-blank line is a span of
// the same size, so only numbered lines stand out; a form feed starts a
// new page.
type TextParser struct{}

func (p *TextParser) Parse(r io.Reader, filename string) (outline.Document, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	d := &staticDocument{}
	page, row := 1, 0
	for scanner.Scan() {
		line := scanner.Text()
		for {
			before, after, found := strings.Cut(line, "\f")
			if t := strings.TrimSpace(before); t != "" {
				d.spans = append(d.spans, outline.TextSpan{
					Text: t,
					Size: bodySize,
					Page: page,
					Y:    float64(row),
				})
				row++
			}
			if !found {
				break
			}
			page++
			row = 0
			line = after
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, openError(filename, err)
	}
	return d, nil
}
