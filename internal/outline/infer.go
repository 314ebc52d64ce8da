package outline

import (
	"sort"
	"strings"
	"unicode/utf8"
)

// minTextLen is the longest span text that is still discarded.
const minTextLen = 3

// Options tunes the heuristic path.
type Options struct {
	// DepthAwarePatterns levels numbered headings by their numbering depth
	// ("1" → H1, "1.2" → H2, "1.2.3" → H3) instead of forcing them to H2.
	DepthAwarePatterns bool
}

type candidate struct {
	TextSpan
	heading bool
	level   int
}

// Infer builds a Record from text spans alone. Spans are levelled by
// clustering their font sizes into at most three bands, numbered headings
// override the size-derived level, and the title is the largest span on the
// first page.
func Infer(spans []TextSpan, opts Options) Record {
	cands := collect(spans)
	if len(cands) == 0 {
		return emptyRecord()
	}

	sizes := make([]float64, len(cands))
	for i, c := range cands {
		sizes[i] = c.Size
	}
	bands := clusterSizes(sizes, MaxLevel)
	levels := rankBands(sizes, bands)

	kept := make([]candidate, 0, len(cands))
	for _, c := range cands {
		c.level = levels[bands[c.Size]]
		if c.level > MaxLevel {
			continue
		}
		if c.heading {
			c.level = 2
			if opts.DepthAwarePatterns {
				c.level = patternLevel(c.Text)
			}
		}
		kept = append(kept, c)
	}

	rec := Record{
		Title:   selectTitle(cands),
		Outline: make([]Entry, 0, len(kept)),
	}
	for _, c := range kept {
		rec.Outline = append(rec.Outline, Entry{
			Level: LevelName(c.level),
			Text:  c.Text,
			Page:  c.Page,
		})
	}
	rec.Outline = Dedup(rec.Outline)
	return rec
}

// collect trims every span, drops those of minTextLen runes or fewer and
// marks the ones carrying a heading number.
func collect(spans []TextSpan) []candidate {
	out := make([]candidate, 0, len(spans))
	for _, s := range spans {
		s.Text = strings.TrimSpace(s.Text)
		if utf8.RuneCountInString(s.Text) <= minTextLen {
			continue
		}
		s.Size = RoundSize(s.Size)
		out = append(out, candidate{TextSpan: s, heading: IsHeading(s.Text)})
	}
	return out
}

// selectTitle picks the largest span on page 1, the topmost among equals.
func selectTitle(cands []candidate) string {
	var first []candidate
	for _, c := range cands {
		if c.Page == 1 {
			first = append(first, c)
		}
	}
	if len(first) == 0 {
		return UntitledDocument
	}
	sort.SliceStable(first, func(i, j int) bool {
		if first[i].Size != first[j].Size {
			return first[i].Size > first[j].Size
		}
		return first[i].Y < first[j].Y
	})
	return first[0].Text
}

type entryKey struct {
	text  string
	level string
	page  int
}

// Dedup drops every entry whose (text, level, page) already appeared,
// keeping the first occurrence and the original order.
func Dedup(entries []Entry) []Entry {
	seen := make(map[entryKey]bool, len(entries))
	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		k := entryKey{text: e.Text, level: e.Level, page: e.Page}
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, e)
	}
	return out
}
