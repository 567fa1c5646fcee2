package chunk

import (
	"regexp"
	"strings"
)

// Structural markers that should start a fresh piece rather than be
// swallowed mid-window. Day and date markers cover the bilingual
// itinerary convention ("Day 3", "Día 3", "12/03/2025").
var (
	headerRe   = regexp.MustCompile(`^#{1,6}\s+\S`)
	dayRe      = regexp.MustCompile(`(?i)^(day|d[ií]a)\s+\d+`)
	numberedRe = regexp.MustCompile(`^\d+[.)]\s+\S`)
	dateRe     = regexp.MustCompile(`^\d{1,2}[/-]\d{1,2}[/-]\d{2,4}\b`)
)

// SplitStructured splits text the way Split does, but first partitions it
// at structural markers and isolates table-like lines (pipe- or
// tab-delimited) into dedicated pieces tagged Table=true. Table pieces
// bypass sentence-boundary snapping.
func SplitStructured(text string, opts Options) ([]Piece, error) {
	opts = opts.withDefaults()
	if err := opts.validate(); err != nil {
		return nil, err
	}
	normalized := Normalize(text)
	if normalized == "" {
		return nil, nil
	}

	var pieces []Piece
	for _, seg := range segment(normalized) {
		segPieces, err := slide(normalized[seg.start:seg.end], seg.start, opts, !seg.table)
		if err != nil {
			return nil, err
		}
		if seg.table {
			for i := range segPieces {
				segPieces[i].Table = true
			}
		}
		pieces = append(pieces, segPieces...)
	}
	return pieces, nil
}

type span struct {
	start, end int
	table      bool
}

// segment partitions text into line-aligned spans: runs of table lines
// become table spans, structural markers open a new text span, and
// everything else accumulates into the current text span.
func segment(text string) []span {
	var spans []span
	cur := span{start: 0, end: 0}
	flush := func(at int) {
		if cur.end > cur.start {
			spans = append(spans, cur)
		}
		cur = span{start: at, end: at, table: false}
	}

	lineStart := 0
	for lineStart <= len(text) {
		lineEnd := strings.IndexByte(text[lineStart:], '\n')
		if lineEnd < 0 {
			lineEnd = len(text)
		} else {
			lineEnd += lineStart
		}
		line := text[lineStart:lineEnd]

		switch {
		case isTableLine(line):
			if !cur.table {
				flush(lineStart)
				cur.table = true
			}
		case isStructuralMarker(line):
			flush(lineStart)
		case cur.table && strings.TrimSpace(line) != "":
			// non-table content ends a table run
			flush(lineStart)
		}

		// extend the current span past this line and its newline
		cur.end = lineEnd
		if lineEnd < len(text) {
			cur.end = lineEnd + 1
		}
		lineStart = lineEnd + 1
	}
	if cur.end > cur.start {
		spans = append(spans, cur)
	}
	return spans
}

// isTableLine reports whether a line looks like a table row:
// at least two pipe separators or a tab delimiter.
func isTableLine(line string) bool {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return false
	}
	if strings.Count(trimmed, "|") >= 2 {
		return true
	}
	return strings.ContainsRune(trimmed, '\t')
}

func isStructuralMarker(line string) bool {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return false
	}
	return headerRe.MatchString(trimmed) ||
		dayRe.MatchString(trimmed) ||
		numberedRe.MatchString(trimmed) ||
		dateRe.MatchString(trimmed)
}
