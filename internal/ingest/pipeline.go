// Package ingest turns an uploaded PDF into indexed chunks.
package ingest

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/ziadkadry99/docchat/internal/apperr"
	"github.com/ziadkadry99/docchat/internal/chunker"
	"github.com/ziadkadry99/docchat/internal/documents"
	"github.com/ziadkadry99/docchat/internal/pdftext"
	"github.com/ziadkadry99/docchat/internal/vectordb"
)

// Indexer adds chunks to the embedding index and persists it.
type Indexer interface {
	Ingest(ctx context.Context, chunks []vectordb.Chunk) error
	DeleteDocument(ctx context.Context, documentID string) error
}

// Recorder receives ingestion metrics.
type Recorder interface {
	RecordIngest(status string, chunks int)
}

// Result describes one successful upload.
type Result struct {
	Document *documents.Document `json:"document"`
	Pages    int                 `json:"pages"`
	Chunks   int                 `json:"chunks"`
}

// Pipeline stores, extracts, chunks and indexes documents.
type Pipeline struct {
	docs     *documents.Store
	index    Indexer
	splitter *chunker.Splitter
	recorder Recorder
	logger   *zap.Logger
}

// NewPipeline wires a Pipeline. recorder may be nil.
func NewPipeline(docs *documents.Store, index Indexer, splitter *chunker.Splitter, recorder Recorder, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		docs:     docs,
		index:    index,
		splitter: splitter,
		recorder: recorder,
		logger:   logger,
	}
}

// Upload stores r as filename and indexes its text. When indexing fails the
// upload is rolled back: the file, its metadata row and any indexed chunks
// are removed so the same name can be uploaded again. The error carries
// ErrIndexingFailed along with the underlying kind.
func (p *Pipeline) Upload(ctx context.Context, r io.Reader, filename, title, author string) (Result, error) {
	if !documents.IsPDFName(filename) {
		p.record("rejected", 0)
		return Result{}, apperr.New(apperr.ErrInvalidType, "ingest.Upload", fmt.Sprintf("%q is not a .pdf file", filename))
	}

	var buf bytes.Buffer
	doc, err := p.docs.Store(ctx, io.TeeReader(r, &buf), filename, title, author)
	if err != nil {
		p.record("rejected", 0)
		return Result{}, err
	}

	log := p.logger.With(zap.String("document_id", doc.ID), zap.String("filename", doc.Filename))

	res, indexed, err := p.indexDocument(ctx, doc, buf.Bytes())
	if err != nil {
		log.Error("indexing failed", zap.Error(err))
		p.rollback(doc, indexed, log)
		p.record("failed", 0)
		return Result{}, apperr.Wrap(apperr.ErrIndexingFailed, "ingest.Upload", err)
	}

	log.Info("document indexed", zap.Int("pages", res.Pages), zap.Int("chunks", res.Chunks))
	p.record("indexed", res.Chunks)
	return res, nil
}

// rollback undoes a stored upload. It runs on a fresh context so a
// cancelled request still cleans up.
func (p *Pipeline) rollback(doc *documents.Document, indexed bool, log *zap.Logger) {
	ctx := context.Background()
	if indexed {
		if err := p.index.DeleteDocument(ctx, doc.ID); err != nil {
			log.Error("removing indexed chunks", zap.Error(err))
		}
	}
	if err := p.docs.Remove(ctx, doc.ID); err != nil {
		log.Error("removing stored document", zap.Error(err))
	}
}

// indexDocument reports whether chunks reached the index even when it
// fails afterwards.
func (p *Pipeline) indexDocument(ctx context.Context, doc *documents.Document, data []byte) (Result, bool, error) {
	pages, err := pdftext.ExtractPages(data)
	if err != nil {
		return Result{}, false, err
	}

	chunks := p.chunk(doc, pages)
	if len(chunks) > 0 {
		if err := p.index.Ingest(ctx, chunks); err != nil {
			return Result{}, false, err
		}
	}
	indexed := len(chunks) > 0

	if err := p.docs.RecordIndexing(ctx, doc.ID, len(pages), len(chunks)); err != nil {
		return Result{}, indexed, err
	}
	doc.Pages = len(pages)
	doc.Chunks = len(chunks)
	return Result{Document: doc, Pages: len(pages), Chunks: len(chunks)}, indexed, nil
}

// chunk splits every page, dropping whitespace-only pieces.
func (p *Pipeline) chunk(doc *documents.Document, pages []string) []vectordb.Chunk {
	var chunks []vectordb.Chunk
	for i, text := range pages {
		n := 0
		for piece := range p.splitter.Chunks(text) {
			if strings.TrimSpace(piece) == "" {
				continue
			}
			chunks = append(chunks, vectordb.Chunk{
				Text:       piece,
				DocumentID: doc.ID,
				Filename:   doc.Filename,
				Page:       i + 1,
				Index:      n,
			})
			n++
		}
	}
	return chunks
}

// IngestFile uploads a file from disk, using its base name as the filename.
func (p *Pipeline) IngestFile(ctx context.Context, path, title, author string) (Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return Result{}, apperr.Wrap(apperr.ErrIOFailure, "ingest.IngestFile", err)
	}
	defer f.Close()

	if title == "" {
		title = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return p.Upload(ctx, f, filepath.Base(path), title, author)
}

func (p *Pipeline) record(status string, chunks int) {
	if p.recorder != nil {
		p.recorder.RecordIngest(status, chunks)
	}
}
