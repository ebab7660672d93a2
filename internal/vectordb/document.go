package vectordb

import (
	"fmt"
	"strconv"
)

// Chunk is a piece of extracted document text ready for embedding.
type Chunk struct {
	Text       string
	DocumentID string
	Filename   string
	Page       int // 1-based
	Index      int // position within the page
}

// ID is the stable entry identifier for the chunk.
func (c Chunk) ID() string {
	return fmt.Sprintf("%s#p%d-c%d", c.DocumentID, c.Page, c.Index)
}

// Source identifies where a retrieved chunk came from.
type Source struct {
	DocumentID string `json:"document_id"`
	Filename   string `json:"filename"`
	Page       int    `json:"page"`
	Chunk      int    `json:"chunk"`
}

// Result is a chunk returned by a similarity search.
type Result struct {
	ID     string
	Text   string
	Score  float32
	Source Source
}

func chunkMetadata(c Chunk) map[string]string {
	return map[string]string{
		"document_id": c.DocumentID,
		"filename":    c.Filename,
		"page":        strconv.Itoa(c.Page),
		"chunk":       strconv.Itoa(c.Index),
	}
}

func sourceFromMetadata(m map[string]string) Source {
	page, _ := strconv.Atoi(m["page"])
	chunk, _ := strconv.Atoi(m["chunk"])
	return Source{
		DocumentID: m["document_id"],
		Filename:   m["filename"],
		Page:       page,
		Chunk:      chunk,
	}
}
