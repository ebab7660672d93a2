// Package chunker splits extracted document text into overlapping
// fixed-size windows for embedding.
package chunker

import (
	"fmt"
	"iter"

	"github.com/ziadkadry99/docchat/internal/apperr"
)

const (
	DefaultChunkSize = 1000
	DefaultOverlap   = 200
)

// Splitter cuts text into windows of ChunkSize runes, each starting
// ChunkSize-Overlap runes after the previous one. Text is never trimmed,
// so the windows reconstruct the input exactly.
type Splitter struct {
	chunkSize int
	overlap   int
}

// New returns a Splitter, or ErrInvalidConfig unless 0 <= overlap < chunkSize.
func New(chunkSize, overlap int) (*Splitter, error) {
	if chunkSize <= 0 {
		return nil, apperr.New(apperr.ErrInvalidConfig, "chunker.New", fmt.Sprintf("chunk size %d must be positive", chunkSize))
	}
	if overlap < 0 || overlap >= chunkSize {
		return nil, apperr.New(apperr.ErrInvalidConfig, "chunker.New", fmt.Sprintf("overlap %d must be in [0, %d)", overlap, chunkSize))
	}
	return &Splitter{chunkSize: chunkSize, overlap: overlap}, nil
}

// Default returns a Splitter with the default 1000/200 parameters.
func Default() *Splitter {
	return &Splitter{chunkSize: DefaultChunkSize, overlap: DefaultOverlap}
}

// ChunkSize returns the window length in runes.
func (s *Splitter) ChunkSize() int { return s.chunkSize }

// Overlap returns the number of runes shared by consecutive windows.
func (s *Splitter) Overlap() int { return s.overlap }

// Chunks yields the windows of text lazily. The sequence may be ranged over
// any number of times. Empty text yields nothing.
func (s *Splitter) Chunks(text string) iter.Seq[string] {
	return func(yield func(string) bool) {
		runes := []rune(text)
		step := s.chunkSize - s.overlap
		for start := 0; start < len(runes); start += step {
			end := min(start+s.chunkSize, len(runes))
			if !yield(string(runes[start:end])) {
				return
			}
			if end == len(runes) {
				return
			}
		}
	}
}

// Split collects Chunks into a slice.
func (s *Splitter) Split(text string) []string {
	var out []string
	for c := range s.Chunks(text) {
		out = append(out, c)
	}
	return out
}
