package chunker

import (
	"strings"
	"unicode/utf8"
)

// Splitter is a recursive length-bounded text splitter. It tries separators
// in order, preferring paragraph and sentence boundaries over mid-word cuts,
// and merges the resulting pieces into chunks of at most chunkSize with
// overlap carried between consecutive chunks. Sizes are byte lengths.
type Splitter struct {
	chunkSize  int
	overlap    int
	separators []string
}

func NewSplitter(chunkSize, overlap int, separators []string) *Splitter {
	if chunkSize <= 0 {
		chunkSize = 1000
	}
	if overlap < 0 || overlap >= chunkSize {
		overlap = 0
	}
	if len(separators) == 0 {
		separators = []string{"\n\n", "\n", ".", "?", "!", " ", ""}
	}
	return &Splitter{chunkSize: chunkSize, overlap: overlap, separators: separators}
}

// Split breaks text into chunks. Output is deterministic for a given input.
func (s *Splitter) Split(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if len(text) <= s.chunkSize {
		return []string{text}
	}
	return s.split(text, s.separators)
}

func (s *Splitter) split(text string, seps []string) []string {
	// Pick the first separator actually present; the empty separator means a
	// hard cut at chunkSize.
	sep := ""
	var rest []string
	for i, sp := range seps {
		if sp == "" {
			sep = ""
			rest = nil
			break
		}
		if strings.Contains(text, sp) {
			sep = sp
			rest = seps[i+1:]
			break
		}
	}

	var parts []string
	if sep == "" {
		parts = cutEvery(text, s.chunkSize)
	} else {
		parts = strings.SplitAfter(text, sep)
	}

	var chunks []string
	var pending []string
	for _, p := range parts {
		if p == "" {
			continue
		}
		// A hard-cut piece can exceed chunkSize only when a single rune does;
		// re-cutting would never make progress on it.
		if len(p) <= s.chunkSize || sep == "" {
			pending = append(pending, p)
			continue
		}
		chunks = append(chunks, s.merge(pending)...)
		pending = nil
		chunks = append(chunks, s.split(p, rest)...)
	}
	chunks = append(chunks, s.merge(pending)...)
	return chunks
}

// merge greedily packs pieces into chunks, seeding each new chunk with the
// tail pieces of the previous one up to the overlap budget.
func (s *Splitter) merge(parts []string) []string {
	var chunks []string
	var window []string
	total := 0
	for _, p := range parts {
		if total+len(p) > s.chunkSize && total > 0 {
			if c := strings.TrimSpace(strings.Join(window, "")); c != "" {
				chunks = append(chunks, c)
			}
			for total > s.overlap || (total+len(p) > s.chunkSize && total > 0) {
				total -= len(window[0])
				window = window[1:]
			}
		}
		window = append(window, p)
		total += len(p)
	}
	if c := strings.TrimSpace(strings.Join(window, "")); c != "" {
		chunks = append(chunks, c)
	}
	return chunks
}

// cutEvery hard-cuts text into pieces of at most n bytes, backing each cut
// up to the nearest rune boundary so multi-byte text never splits mid-rune.
func cutEvery(text string, n int) []string {
	var out []string
	for start := 0; start < len(text); {
		end := start + n
		if end >= len(text) {
			out = append(out, text[start:])
			break
		}
		for end > start && !utf8.RuneStart(text[end]) {
			end--
		}
		if end == start {
			_, size := utf8.DecodeRuneInString(text[start:])
			end = start + size
		}
		out = append(out, text[start:end])
		start = end
	}
	return out
}
