package outline

import "strings"

// FromBookmarks maps a native outline onto a Record. Entries deeper than
// MaxLevel are dropped; order is preserved and nothing is deduplicated.
// The title is the first kept entry's text.
func FromBookmarks(native []NativeEntry) Record {
	rec := emptyRecord()
	for _, n := range native {
		if n.Level > MaxLevel || n.Level < 1 {
			continue
		}
		rec.Outline = append(rec.Outline, Entry{
			Level: LevelName(n.Level),
			Text:  strings.TrimSpace(n.Text),
			Page:  n.Page,
		})
	}

	if len(rec.Outline) > 0 && rec.Outline[0].Text != "" {
		rec.Title = rec.Outline[0].Text
	}
	return rec
}
