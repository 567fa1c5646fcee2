package chunk

import (
	"errors"
	"strings"
)

const (
	// DefaultChunkSize is the sliding-window width in characters.
	DefaultChunkSize = 1000
	// DefaultOverlap is how many characters consecutive chunks share.
	DefaultOverlap = 200
)

var (
	// ErrOverlapTooLarge is returned when overlap >= chunkSize, which
	// would prevent the window from advancing.
	ErrOverlapTooLarge = errors.New("overlap must be strictly less than chunk size")

	// ErrNoProgress is returned when a window iteration fails to advance.
	ErrNoProgress = errors.New("chunking made no progress")
)

// Piece is one slice of the normalized input text.
// Text == normalized[Start:End].
type Piece struct {
	Text  string
	Start int
	End   int
	Table bool
}

// Options configures the sliding window.
// Zero values fall back to the defaults; a window without overlap is
// not supported, use a small Overlap instead.
type Options struct {
	ChunkSize int
	Overlap   int
}

func (o Options) withDefaults() Options {
	if o.ChunkSize <= 0 {
		o.ChunkSize = DefaultChunkSize
	}
	if o.Overlap <= 0 {
		o.Overlap = DefaultOverlap
	}
	return o
}

func (o Options) validate() error {
	if o.Overlap >= o.ChunkSize {
		return ErrOverlapTooLarge
	}
	return nil
}

// Split normalizes whitespace and slices the text into overlapping pieces.
// Windows whose end falls mid-text snap backward to the nearest sentence
// terminator or newline, provided one exists within ChunkSize/2 of the
// window end. The window advances by ChunkSize-Overlap per iteration.
func Split(text string, opts Options) ([]Piece, error) {
	opts = opts.withDefaults()
	if err := opts.validate(); err != nil {
		return nil, err
	}
	normalized := Normalize(text)
	if normalized == "" {
		return nil, nil
	}
	return slide(normalized, 0, opts, true)
}

// slide applies the sliding window to text, reporting spans offset by base.
// When snap is false (table pieces), sentence-boundary snapping is skipped.
func slide(text string, base int, opts Options, snap bool) ([]Piece, error) {
	if len(text) <= opts.ChunkSize {
		return []Piece{{Text: text, Start: base, End: base + len(text)}}, nil
	}

	var pieces []Piece
	start := 0
	for start < len(text) {
		end := start + opts.ChunkSize
		if end >= len(text) {
			pieces = append(pieces, Piece{Text: text[start:], Start: base + start, End: base + len(text)})
			break
		}

		if snap {
			if boundary := sentenceBoundary(text, start, end, opts.ChunkSize/2); boundary > start {
				end = boundary
			}
		}

		pieces = append(pieces, Piece{Text: text[start:end], Start: base + start, End: base + end})

		next := end - opts.Overlap
		if next <= start {
			return nil, ErrNoProgress
		}
		start = next
	}
	return pieces, nil
}

// sentenceBoundary searches backward from end for the nearest sentence
// terminator or newline, at most maxBack characters away.
// Returns the position just after the terminator, or -1.
func sentenceBoundary(text string, start, end, maxBack int) int {
	limit := end - maxBack
	if limit < start {
		limit = start
	}
	for i := end; i > limit; i-- {
		switch text[i-1] {
		case '.', '!', '?', '\n':
			return i
		}
	}
	return -1
}

// Normalize canonicalizes whitespace: CRLF/CR become LF, runs of spaces
// and tabs collapse to a single character (a tab when the run contained
// one, so tab-delimited tables stay detectable), and runs of three or
// more newlines collapse to two. The result is trimmed.
func Normalize(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	var b strings.Builder
	b.Grow(len(text))
	horizRun := false
	horizTab := false
	newlines := 0
	flushHoriz := func() {
		if !horizRun {
			return
		}
		if horizTab {
			b.WriteByte('\t')
		} else {
			b.WriteByte(' ')
		}
		horizRun = false
		horizTab = false
	}
	for _, r := range text {
		switch r {
		case ' ', '\t':
			horizRun = true
			horizTab = horizTab || r == '\t'
		case '\n':
			horizRun = false
			horizTab = false
			newlines++
			if newlines <= 2 {
				b.WriteByte('\n')
			}
		default:
			flushHoriz()
			newlines = 0
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}
