// Package vectordb is the persistent embedding index over document chunks.
package vectordb

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	chromem "github.com/philippgille/chromem-go"
	"go.uber.org/zap"

	"github.com/ziadkadry99/docchat/internal/apperr"
	"github.com/ziadkadry99/docchat/internal/embeddings"
)

const (
	collectionName = "documents"
	snapshotName   = "index.gob.gz"
)

// Index stores chunk embeddings in a chromem-go collection and persists
// them as a compressed snapshot. Writers are serialised; searches run
// concurrently with a write and see either the old or the new entries.
type Index struct {
	dir      string
	embedder embeddings.Embedder
	logger   *zap.Logger

	db         *chromem.DB
	collection *chromem.Collection

	writeMu sync.Mutex
}

// Open loads the snapshot in dir if one exists, otherwise starts empty.
// An empty index is a valid state.
func Open(ctx context.Context, dir string, embedder embeddings.Embedder, logger *zap.Logger) (*Index, error) {
	const op = "vectordb.Open"
	if logger == nil {
		logger = zap.NewNop()
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, apperr.Wrap(apperr.ErrIOFailure, op, err)
	}

	ix := &Index{
		dir:      dir,
		embedder: embedder,
		logger:   logger,
		db:       chromem.NewDB(),
	}
	ef := queryEmbeddingFunc(embedder)

	path := ix.SnapshotPath()
	if _, err := os.Stat(path); err == nil {
		if err := ix.db.ImportFromFile(path, ""); err != nil {
			return nil, apperr.Wrap(apperr.ErrIOFailure, op, fmt.Errorf("import %s: %w", path, err))
		}
	} else if !os.IsNotExist(err) {
		return nil, apperr.Wrap(apperr.ErrIOFailure, op, err)
	}

	col, err := ix.db.GetOrCreateCollection(collectionName, nil, ef)
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrIOFailure, op, fmt.Errorf("create collection: %w", err))
	}
	ix.collection = col

	logger.Info("embedding index opened",
		zap.String("snapshot", path),
		zap.Int("entries", col.Count()),
		zap.String("embedder", embedder.Name()),
	)
	return ix, nil
}

// SnapshotPath is the file the index is persisted to.
func (ix *Index) SnapshotPath() string {
	return filepath.Join(ix.dir, snapshotName)
}

// Count returns the number of stored entries.
func (ix *Index) Count() int {
	return ix.collection.Count()
}

// AddDocuments embeds chunks and inserts them. Nothing is inserted when
// embedding fails; the error carries ErrEmbeddingUnavailable.
func (ix *Index) AddDocuments(ctx context.Context, chunks []Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	ix.writeMu.Lock()
	defer ix.writeMu.Unlock()
	return ix.addLocked(ctx, chunks)
}

func (ix *Index) addLocked(ctx context.Context, chunks []Chunk) error {
	const op = "vectordb.AddDocuments"

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	vecs, err := ix.embedder.Embed(ctx, texts)
	if err != nil {
		if apperr.IsKind(err, apperr.ErrEmbeddingUnavailable) {
			return err
		}
		return apperr.Wrap(apperr.ErrEmbeddingUnavailable, op, err)
	}
	if len(vecs) != len(chunks) {
		return apperr.New(apperr.ErrEmbeddingUnavailable, op, fmt.Sprintf("got %d embeddings for %d chunks", len(vecs), len(chunks)))
	}

	docs := make([]chromem.Document, len(chunks))
	for i, c := range chunks {
		docs[i] = chromem.Document{
			ID:        c.ID(),
			Content:   c.Text,
			Embedding: vecs[i],
			Metadata:  chunkMetadata(c),
		}
	}
	if err := ix.collection.AddDocuments(ctx, docs, 1); err != nil {
		return apperr.Wrap(apperr.ErrIOFailure, op, err)
	}
	return nil
}

// Save writes the snapshot atomically: readers of the snapshot path see
// either the previous file or the complete new one.
func (ix *Index) Save(ctx context.Context) error {
	ix.writeMu.Lock()
	defer ix.writeMu.Unlock()
	return ix.saveLocked(ctx)
}

func (ix *Index) saveLocked(ctx context.Context) error {
	const op = "vectordb.Save"
	if err := ctx.Err(); err != nil {
		return err
	}

	// chromem picks compression from the .gz suffix.
	tmp := filepath.Join(ix.dir, ".index-"+uuid.NewString()+".gob.gz")
	if err := ix.db.ExportToFile(tmp, true, ""); err != nil {
		os.Remove(tmp)
		return apperr.Wrap(apperr.ErrIOFailure, op, err)
	}
	if err := os.Rename(tmp, ix.SnapshotPath()); err != nil {
		os.Remove(tmp)
		return apperr.Wrap(apperr.ErrIOFailure, op, err)
	}
	ix.logger.Debug("embedding index saved", zap.Int("entries", ix.collection.Count()))
	return nil
}

// Ingest adds chunks and persists the snapshot as one serialised step.
// If saving fails the chunks are removed again, so the index holds either
// all of them or none.
func (ix *Index) Ingest(ctx context.Context, chunks []Chunk) error {
	ix.writeMu.Lock()
	defer ix.writeMu.Unlock()

	if err := ix.addLocked(ctx, chunks); err != nil {
		return err
	}
	if err := ix.saveLocked(ctx); err != nil {
		ids := make([]string, len(chunks))
		for i, c := range chunks {
			ids[i] = c.ID()
		}
		if derr := ix.collection.Delete(context.Background(), nil, nil, ids...); derr != nil {
			ix.logger.Error("removing unsaved chunks", zap.Error(derr))
		}
		return err
	}
	return nil
}

// DeleteDocument removes every chunk of documentID and persists the result.
func (ix *Index) DeleteDocument(ctx context.Context, documentID string) error {
	ix.writeMu.Lock()
	defer ix.writeMu.Unlock()

	where := map[string]string{"document_id": documentID}
	if err := ix.collection.Delete(ctx, where, nil); err != nil {
		return apperr.Wrap(apperr.ErrIOFailure, "vectordb.DeleteDocument", err)
	}
	return ix.saveLocked(ctx)
}

// Search embeds query and returns up to k nearest chunks.
func (ix *Index) Search(ctx context.Context, query string, k int) ([]Result, error) {
	if k <= 0 || ix.Count() == 0 {
		return []Result{}, nil
	}
	vecs, err := ix.embedder.Embed(ctx, []string{query})
	if err != nil {
		if apperr.IsKind(err, apperr.ErrEmbeddingUnavailable) {
			return nil, err
		}
		return nil, apperr.Wrap(apperr.ErrEmbeddingUnavailable, "vectordb.Search", err)
	}
	if len(vecs) != 1 {
		return nil, apperr.New(apperr.ErrEmbeddingUnavailable, "vectordb.Search", "no query embedding returned")
	}
	return ix.SearchVector(ctx, vecs[0], k)
}

// SearchVector returns up to k entries ordered by descending cosine
// similarity to vector. k is clamped to the entry count.
func (ix *Index) SearchVector(ctx context.Context, vector []float32, k int) ([]Result, error) {
	count := ix.Count()
	if k <= 0 || count == 0 {
		return []Result{}, nil
	}
	k = min(k, count)

	matches, err := ix.collection.QueryEmbedding(ctx, vector, k, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("chromem query: %w", err)
	}

	results := make([]Result, len(matches))
	for i, m := range matches {
		results[i] = Result{
			ID:     m.ID,
			Text:   m.Content,
			Score:  m.Similarity,
			Source: sourceFromMetadata(m.Metadata),
		}
	}
	return results, nil
}

// queryEmbeddingFunc adapts embedder to chromem's single-text signature.
// Chunks arrive pre-embedded and Search embeds queries itself, so chromem
// only falls back to it for documents added without a vector.
func queryEmbeddingFunc(e embeddings.Embedder) chromem.EmbeddingFunc {
	return func(ctx context.Context, text string) ([]float32, error) {
		vecs, err := e.Embed(ctx, []string{text})
		if err != nil {
			return nil, err
		}
		if len(vecs) != 1 || len(vecs[0]) == 0 {
			return nil, apperr.New(apperr.ErrEmbeddingUnavailable, "vectordb.embed", e.Name()+" returned no embedding")
		}
		return vecs[0], nil
	}
}
