package parser

import (
	"reflect"
	"strings"
	"testing"

	"github.com/dgallion1/docoutline/internal/outline"
)

func TestHTMLParser_HeadingsAreNativeOutline(t *testing.T) {
	input := `<html><head><title>Ignored</title></head><body>
<nav><h1>Site Menu</h1></nav>
<h1>Guide</h1>
<p>Welcome   to the
guide.</p>
<h2>Install <em>now</em></h2>
<ul><li>Step one</li></ul>
<h5>Fine print</h5>
<script>var x = "<h1>no</h1>";</script>
</body></html>`

	p := &HTMLParser{}
	doc, err := p.Parse(strings.NewReader(input), "guide.html")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	native, _ := doc.NativeOutline()
	want := []outline.NativeEntry{
		{Level: 1, Text: "Guide", Page: 1},
		{Level: 2, Text: "Install now", Page: 1},
		{Level: 5, Text: "Fine print", Page: 1},
	}
	if !reflect.DeepEqual(native, want) {
		t.Errorf("expected %+v, got %+v", want, native)
	}

	spans, _ := doc.TextSpans()
	if len(spans) != 2 || spans[0].Text != "Welcome to the guide." || spans[1].Text != "Step one" {
		t.Errorf("unexpected spans %+v", spans)
	}
}

func TestHTMLParser_NoHeadingsFallsBack(t *testing.T) {
	input := `<body><p>Plain page text</p><p>II. Second part</p></body>`
	doc, err := (&HTMLParser{}).Parse(strings.NewReader(input), "plain.htm")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	rec, method, err := outline.Extract(doc, outline.Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if method != outline.MethodHeuristic {
		t.Errorf("expected heuristic method, got %q", method)
	}
	if rec.Title != "Plain page text" {
		t.Errorf("unexpected title %q", rec.Title)
	}
	if rec.Outline[1].Level != "H2" {
		t.Errorf("expected roman heading at H2, got %+v", rec.Outline[1])
	}
}

func TestHeadingLevel(t *testing.T) {
	tests := map[string]int{"h1": 1, "h3": 3, "h6": 6, "h7": 0, "hr": 0, "p": 0, "header": 0}
	for tag, want := range tests {
		if got := headingLevel(tag); got != want {
			t.Errorf("headingLevel(%q) = %d, want %d", tag, got, want)
		}
	}
}
