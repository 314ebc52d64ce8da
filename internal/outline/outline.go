// Package outline infers a document's title and H1–H3 heading outline,
// either from the document's native bookmarks or, when none exist, from the
// font sizes and numbering of its text spans.
package outline

import (
	"errors"
	"fmt"
	"strconv"
)

// UntitledDocument is the title used when no candidate title exists.
const UntitledDocument = "Untitled Document"

// MaxLevel is the deepest heading level kept in an outline.
const MaxLevel = 3

// TextSpan is a run of text rendered with a single font and size.
type TextSpan struct {
	Text  string
	Size  float64 // points, rounded to 2 decimals
	Font  string
	Flags int     // style bitmask: bold=16, italic=2
	Page  int     // 1-based
	Y     float64 // top-down baseline; ordering tie-break only
}

// Font style bits carried in TextSpan.Flags.
const (
	FlagItalic = 2
	FlagBold   = 16
)

// NativeEntry is one node of a document's embedded outline, flattened
// depth-first. Level is 1-based.
type NativeEntry struct {
	Level int
	Text  string
	Page  int
}

// Entry is one heading in the produced outline.
type Entry struct {
	Level string `json:"level"`
	Text  string `json:"text"`
	Page  int    `json:"page"`
}

// Record is the extraction result for one document.
type Record struct {
	Title   string  `json:"title"`
	Outline []Entry `json:"outline"`
}

// Document is the view of an opened document the extractor needs.
type Document interface {
	// NativeOutline returns the embedded bookmarks, or nil when there are none.
	NativeOutline() ([]NativeEntry, error)
	// TextSpans returns every span ordered by page, then extraction order.
	TextSpans() ([]TextSpan, error)
}

// Method reports which strategy produced a Record.
type Method string

const (
	MethodBookmarks Method = "bookmarks"
	MethodHeuristic Method = "heuristic"
)

// DocumentOpenError reports input that cannot be read as a document.
type DocumentOpenError struct {
	Name string
	Err  error
}

func (e *DocumentOpenError) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("open document: %v", e.Err)
	}
	return fmt.Sprintf("open document %s: %v", e.Name, e.Err)
}

func (e *DocumentOpenError) Unwrap() error {
	return e.Err
}

// IsDocumentOpenError reports whether err is or wraps a *DocumentOpenError.
func IsDocumentOpenError(err error) bool {
	var openErr *DocumentOpenError
	return errors.As(err, &openErr)
}

// LevelName returns the label for a 1-based heading depth, e.g. "H2".
func LevelName(level int) string {
	return "H" + strconv.Itoa(level)
}

func emptyRecord() Record {
	return Record{Title: UntitledDocument, Outline: []Entry{}}
}
