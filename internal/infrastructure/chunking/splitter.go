package chunking

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Splitter cuts knowledge article bodies into chunks of at most ChunkSize
// runes. Paragraphs are packed whole; a paragraph longer than ChunkSize is cut
// at word boundaries and neighbouring pieces share about Overlap runes.
type Splitter struct {
	ChunkSize int
	Overlap   int
}

func NewSplitter(chunkSize, overlap int) *Splitter {
	if chunkSize <= 0 {
		chunkSize = 900
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= chunkSize {
		overlap = chunkSize / 4
	}
	return &Splitter{
		ChunkSize: chunkSize,
		Overlap:   overlap,
	}
}

func (s *Splitter) Split(text string) []string {
	paragraphs := splitParagraphs(text)
	if len(paragraphs) == 0 {
		return nil
	}

	var out []string
	var current strings.Builder
	currentLen := 0
	flush := func() {
		if currentLen > 0 {
			out = append(out, current.String())
			current.Reset()
			currentLen = 0
		}
	}

	for _, para := range paragraphs {
		n := utf8.RuneCountInString(para)
		if n > s.ChunkSize {
			flush()
			out = append(out, s.window(para)...)
			continue
		}
		if currentLen > 0 && currentLen+2+n > s.ChunkSize {
			flush()
		}
		if currentLen > 0 {
			current.WriteString("\n\n")
			currentLen += 2
		}
		current.WriteString(para)
		currentLen += n
	}
	flush()
	return out
}

// window slides over one oversized paragraph.
func (s *Splitter) window(para string) []string {
	runes := []rune(para)
	var out []string
	for start := 0; start < len(runes); {
		end := start + s.ChunkSize
		if end >= len(runes) {
			end = len(runes)
		} else if cut := lastSpace(runes, start+s.ChunkSize/2, end); cut > start {
			end = cut
		}

		if piece := strings.TrimSpace(string(runes[start:end])); piece != "" {
			out = append(out, piece)
		}
		if end == len(runes) {
			break
		}

		next := end - s.Overlap
		if next <= start {
			next = end
		}
		for next < end && !unicode.IsSpace(runes[next-1]) {
			next++
		}
		start = next
	}
	return out
}

func lastSpace(runes []rune, from, to int) int {
	for i := to; i > from; i-- {
		if unicode.IsSpace(runes[i-1]) {
			return i
		}
	}
	return -1
}

func splitParagraphs(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	raw := strings.Split(text, "\n\n")
	out := make([]string, 0, len(raw))
	for _, para := range raw {
		if para = strings.TrimSpace(para); para != "" {
			out = append(out, para)
		}
	}
	return out
}
