package outline

// Extract produces the Record for doc. The native outline is authoritative:
// when the document carries any bookmarks the span heuristic never runs.
func Extract(doc Document, opts Options) (Record, Method, error) {
	native, err := doc.NativeOutline()
	if err != nil {
		return Record{}, "", asOpenError(err)
	}
	if len(native) > 0 {
		return FromBookmarks(native), MethodBookmarks, nil
	}

	spans, err := doc.TextSpans()
	if err != nil {
		return Record{}, "", asOpenError(err)
	}
	return Infer(spans, opts), MethodHeuristic, nil
}

func asOpenError(err error) error {
	if IsDocumentOpenError(err) {
		return err
	}
	return &DocumentOpenError{Err: err}
}
