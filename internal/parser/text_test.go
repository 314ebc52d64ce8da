package parser

import (
	"strings"
	"testing"

	"github.com/dgallion1/docoutline/internal/outline"
)

func TestTextParser_LinesBecomeSpans(t *testing.T) {
	input := "Quarterly Review\n\n1. Revenue\nRevenue grew.\n   \n2. Costs\n"
	p := &TextParser{}
	doc, err := p.Parse(strings.NewReader(input), "notes.txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	spans, _ := doc.TextSpans()
	want := []string{"Quarterly Review", "1. Revenue", "Revenue grew.", "2. Costs"}
	if len(spans) != len(want) {
		t.Fatalf("expected %d spans, got %d", len(want), len(spans))
	}
	for i, w := range want {
		if spans[i].Text != w {
			t.Errorf("span[%d]: expected %q, got %q", i, w, spans[i].Text)
		}
	}

	rec, method, err := outline.Extract(doc, outline.Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if method != outline.MethodHeuristic {
		t.Errorf("expected heuristic method, got %q", method)
	}
	if rec.Title != "Quarterly Review" {
		t.Errorf("expected first line as title, got %q", rec.Title)
	}
	if rec.Outline[1].Level != "H2" || rec.Outline[0].Level != "H1" {
		t.Errorf("expected numbered lines at H2 and plain lines at H1, got %+v", rec.Outline)
	}
}

func TestTextParser_FormFeedStartsNewPage(t *testing.T) {
	input := "Page one text\fPage two text\nMore on two\n\f\fPage four text"
	p := &TextParser{}
	doc, err := p.Parse(strings.NewReader(input), "paged.txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	spans, _ := doc.TextSpans()
	pages := []int{}
	for _, s := range spans {
		pages = append(pages, s.Page)
	}
	want := []int{1, 2, 2, 4}
	if len(pages) != len(want) {
		t.Fatalf("expected pages %v, got %v", want, pages)
	}
	for i := range want {
		if pages[i] != want[i] {
			t.Errorf("expected pages %v, got %v", want, pages)
			break
		}
	}
}

func TestTextParser_EmptyInput(t *testing.T) {
	p := &TextParser{}
	doc, err := p.Parse(strings.NewReader(""), "empty.txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	spans, _ := doc.TextSpans()
	if len(spans) != 0 {
		t.Errorf("expected 0 spans for empty input, got %d", len(spans))
	}
}
