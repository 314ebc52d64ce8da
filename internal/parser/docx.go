package parser

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/dgallion1/docoutline/internal/outline"
	"github.com/fumiama/go-docx"
)

// docxDefaultSize is Word's default body size in points.
const docxDefaultSize = 11

// DOCXParser handles .docx files. Paragraphs styled "Heading N" form the
// native outline; every paragraph is also a span sized from its first run,
// so documents formatted by hand still get a heuristic outline.
type DOCXParser struct{}

func (p *DOCXParser) Parse(r io.Reader, filename string) (outline.Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, openError(filename, err)
	}

	doc, err := docx.Parse(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, openError(filename, fmt.Errorf("parse docx: %w", err))
	}

	d := &staticDocument{}
	for _, item := range doc.Document.Body.Items {
		para, ok := item.(*docx.Paragraph)
		if !ok {
			continue
		}
		text := docxParagraphText(para)
		if text == "" {
			continue
		}
		if level := docxHeadingLevel(para); level > 0 {
			d.native = append(d.native, outline.NativeEntry{Level: level, Text: text, Page: 1})
		}
		size, flags := docxRunStyle(para)
		d.addSpan(text, size, flags)
	}
	return d, nil
}

func docxHeadingLevel(para *docx.Paragraph) int {
	if para.Properties == nil || para.Properties.Style == nil {
		return 0
	}
	style := strings.ToLower(strings.ReplaceAll(para.Properties.Style.Val, " ", ""))
	if !strings.HasPrefix(style, "heading") {
		return 0
	}
	n, err := strconv.Atoi(strings.TrimPrefix(style, "heading"))
	if err != nil || n < 1 || n > 9 {
		return 0
	}
	return n
}

// docxRunStyle reads size and weight from the paragraph's first run.
// w:sz is in half-points.
func docxRunStyle(para *docx.Paragraph) (float64, int) {
	for _, child := range para.Children {
		run, ok := child.(*docx.Run)
		if !ok || run.RunProperties == nil {
			continue
		}
		rp := run.RunProperties
		size := float64(docxDefaultSize)
		if rp.Size != nil {
			if half, err := strconv.ParseFloat(rp.Size.Val, 64); err == nil && half > 0 {
				size = half / 2
			}
		}
		flags := 0
		if rp.Bold != nil {
			flags |= outline.FlagBold
		}
		if rp.Italic != nil {
			flags |= outline.FlagItalic
		}
		return size, flags
	}
	return docxDefaultSize, 0
}

func docxParagraphText(para *docx.Paragraph) string {
	var buf strings.Builder
	for _, child := range para.Children {
		run, ok := child.(*docx.Run)
		if !ok {
			continue
		}
		for _, rc := range run.Children {
			if t, ok := rc.(*docx.Text); ok {
				buf.WriteString(t.Text)
			}
		}
	}
	return strings.TrimSpace(buf.String())
}
