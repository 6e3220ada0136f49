// Package splitter segments raw document text into bounded, overlapping
// chunks suitable for embedding and retrieval.
package splitter

import "strings"

// separators are tried in strict priority order; a level is never mixed with
// another within one split.
var separators = []string{"\n\n", "\n", ". ", " "}

const (
	DefaultChunkSize = 1000
	DefaultOverlap   = 200
)

// Segment is one produced chunk. Text already carries the overlap prefix;
// Offset is the byte offset of the chunk's core within the original text.
type Segment struct {
	Text   string
	Offset int
}

// Splitter splits text recursively by separator priority, greedily packing
// pieces up to the chunk size.
type Splitter struct {
	chunkSize int
	overlap   int
}

// New creates a Splitter. Non-positive sizes fall back to defaults and the
// overlap is clamped below the chunk size.
func New(chunkSize, overlap int) *Splitter {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= chunkSize {
		overlap = chunkSize - 1
	}
	return &Splitter{chunkSize: chunkSize, overlap: overlap}
}

// Split segments text into chunks whose core length is at most the chunk
// size (only the final chunk may be shorter than a full pack), then prefixes
// every chunk after the first with the trailing overlap of its predecessor's
// core. Concatenating the cores reproduces the input byte for byte. Empty
// input yields no segments; a single-segment result skips the overlap pass.
func (s *Splitter) Split(text string) []Segment {
	if text == "" {
		return nil
	}
	cores := s.split(text, 0)
	segs := make([]Segment, len(cores))
	off := 0
	for i, core := range cores {
		segs[i] = Segment{Text: core, Offset: off}
		off += len(core)
	}
	if s.overlap > 0 && len(segs) > 1 {
		for i := len(segs) - 1; i > 0; i-- {
			prev := cores[i-1]
			o := s.overlap
			if o > len(prev) {
				o = len(prev)
			}
			segs[i].Text = prev[len(prev)-o:] + cores[i]
		}
	}
	return segs
}

// split returns chunk cores for text using the separator at level, recursing
// into the next level for any single piece that still exceeds the chunk size.
func (s *Splitter) split(text string, level int) []string {
	if text == "" {
		return nil
	}
	if len(text) <= s.chunkSize {
		return []string{text}
	}
	if level >= len(separators) {
		return s.hardSplit(text)
	}
	pieces := strings.SplitAfter(text, separators[level])
	if len(pieces) == 1 {
		return s.split(text, level+1)
	}
	var out []string
	var buf strings.Builder
	flush := func() {
		if buf.Len() > 0 {
			out = append(out, buf.String())
			buf.Reset()
		}
	}
	for _, p := range pieces {
		if p == "" {
			continue
		}
		if len(p) > s.chunkSize {
			flush()
			out = append(out, s.split(p, level+1)...)
			continue
		}
		if buf.Len()+len(p) > s.chunkSize {
			flush()
		}
		buf.WriteString(p)
	}
	flush()
	return out
}

func (s *Splitter) hardSplit(text string) []string {
	var out []string
	for len(text) > s.chunkSize {
		out = append(out, text[:s.chunkSize])
		text = text[s.chunkSize:]
	}
	if text != "" {
		out = append(out, text)
	}
	return out
}
