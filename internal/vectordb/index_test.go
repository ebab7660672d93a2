package vectordb

import (
	"context"
	"errors"
	"hash/fnv"
	"math"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/ziadkadry99/docchat/internal/apperr"
)

// mockEmbedder hashes lowercase words into a fixed number of buckets, so
// texts sharing words get similar vectors.
type mockEmbedder struct {
	dims int
	err  error
}

func newMockEmbedder(dims int) *mockEmbedder {
	return &mockEmbedder{dims: dims}
}

func (m *mockEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	if m.err != nil {
		return nil, m.err
	}
	results := make([][]float32, len(texts))
	for i, text := range texts {
		results[i] = m.vector(text)
	}
	return results, nil
}

func (m *mockEmbedder) Dimensions() int { return m.dims }
func (m *mockEmbedder) Name() string    { return "mock" }

func (m *mockEmbedder) vector(text string) []float32 {
	vec := make([]float32, m.dims)
	for _, w := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New32a()
		h.Write([]byte(strings.Trim(w, ".,?!")))
		vec[h.Sum32()%uint32(m.dims)] += 1
	}
	vec[m.dims-1] += 0.01
	var norm float64
	for _, v := range vec {
		norm += float64(v * v)
	}
	norm = math.Sqrt(norm)
	for i := range vec {
		vec[i] = float32(float64(vec[i]) / norm)
	}
	return vec
}

func testChunks() []Chunk {
	return []Chunk{
		{Text: "The refund window is 30 days from purchase", DocumentID: "d1", Filename: "policy.pdf", Page: 1, Index: 0},
		{Text: "Shipping usually takes five business days", DocumentID: "d1", Filename: "policy.pdf", Page: 2, Index: 0},
		{Text: "Our office is closed on public holidays", DocumentID: "d2", Filename: "hours.pdf", Page: 1, Index: 0},
	}
}

func openTestIndex(t *testing.T, dir string, e *mockEmbedder) *Index {
	t.Helper()
	ix, err := Open(context.Background(), dir, e, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return ix
}

func TestOpenEmptyIndex(t *testing.T) {
	ix := openTestIndex(t, t.TempDir(), newMockEmbedder(64))

	if ix.Count() != 0 {
		t.Fatalf("expected empty index, got %d entries", ix.Count())
	}
	results, err := ix.Search(context.Background(), "anything", 4)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if results == nil || len(results) != 0 {
		t.Errorf("expected empty non-nil slice, got %#v", results)
	}
}

func TestAddAndSearch(t *testing.T) {
	ctx := context.Background()
	ix := openTestIndex(t, t.TempDir(), newMockEmbedder(128))

	if err := ix.AddDocuments(ctx, testChunks()); err != nil {
		t.Fatalf("AddDocuments: %v", err)
	}
	if ix.Count() != 3 {
		t.Fatalf("Count = %d, want 3", ix.Count())
	}

	results, err := ix.Search(ctx, "What is the refund window?", 2)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if !strings.Contains(results[0].Text, "refund window") {
		t.Errorf("top result = %q", results[0].Text)
	}
	if results[0].Score < results[1].Score {
		t.Error("results not ordered by descending similarity")
	}
	want := Source{DocumentID: "d1", Filename: "policy.pdf", Page: 1, Chunk: 0}
	if results[0].Source != want {
		t.Errorf("source = %+v, want %+v", results[0].Source, want)
	}
}

func TestSearchClampsK(t *testing.T) {
	ctx := context.Background()
	ix := openTestIndex(t, t.TempDir(), newMockEmbedder(64))
	if err := ix.AddDocuments(ctx, testChunks()[:2]); err != nil {
		t.Fatal(err)
	}
	results, err := ix.Search(ctx, "refund", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 2 {
		t.Errorf("expected 2 results, got %d", len(results))
	}
	if results, _ := ix.Search(ctx, "refund", 0); len(results) != 0 {
		t.Errorf("k=0 should return nothing, got %d", len(results))
	}
}

func TestSaveAndReloadPreservesOrdering(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	e := newMockEmbedder(128)

	ix := openTestIndex(t, dir, e)
	if err := ix.Ingest(ctx, testChunks()); err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	query := e.vector("refund shipping holidays")
	before, err := ix.SearchVector(ctx, query, 3)
	if err != nil {
		t.Fatal(err)
	}

	reloaded := openTestIndex(t, dir, e)
	if reloaded.Count() != 3 {
		t.Fatalf("reloaded Count = %d, want 3", reloaded.Count())
	}
	after, err := reloaded.SearchVector(ctx, query, 3)
	if err != nil {
		t.Fatal(err)
	}
	assertSameResults(t, before, after)
}

func TestDoubleSaveIsEquivalent(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	e := newMockEmbedder(128)

	ix := openTestIndex(t, dir, e)
	if err := ix.Ingest(ctx, testChunks()); err != nil {
		t.Fatal(err)
	}
	query := e.vector("refund window")
	once, _ := openTestIndex(t, dir, e).SearchVector(ctx, query, 3)

	if err := ix.Save(ctx); err != nil {
		t.Fatalf("second Save: %v", err)
	}
	twice, _ := openTestIndex(t, dir, e).SearchVector(ctx, query, 3)
	assertSameResults(t, once, twice)

	// No temp files are left behind.
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Name() != snapshotName {
		var names []string
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Errorf("unexpected files in index dir: %v", names)
	}
}

func assertSameResults(t *testing.T, a, b []Result) {
	t.Helper()
	if len(a) != len(b) {
		t.Fatalf("result count differs: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i].ID != b[i].ID || a[i].Text != b[i].Text || a[i].Source != b[i].Source {
			t.Errorf("result %d differs: %+v vs %+v", i, a[i], b[i])
		}
		if math.Abs(float64(a[i].Score-b[i].Score)) > 1e-6 {
			t.Errorf("result %d score differs: %f vs %f", i, a[i].Score, b[i].Score)
		}
	}
}

func TestOpenCorruptSnapshot(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(dir+"/"+snapshotName, []byte("garbage"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := Open(context.Background(), dir, newMockEmbedder(8), nil)
	if !apperr.IsKind(err, apperr.ErrIOFailure) {
		t.Fatalf("expected ErrIOFailure, got %v", err)
	}
}

func TestEmbeddingFailure(t *testing.T) {
	ctx := context.Background()
	e := newMockEmbedder(16)
	ix := openTestIndex(t, t.TempDir(), e)

	e.err = errors.New("connection refused")
	err := ix.AddDocuments(ctx, testChunks())
	if !apperr.IsKind(err, apperr.ErrEmbeddingUnavailable) {
		t.Fatalf("expected ErrEmbeddingUnavailable, got %v", err)
	}
	if ix.Count() != 0 {
		t.Errorf("nothing should be inserted, got %d", ix.Count())
	}

	e.err = nil
	if err := ix.AddDocuments(ctx, testChunks()); err != nil {
		t.Fatal(err)
	}
	e.err = errors.New("timeout")
	if _, err := ix.Search(ctx, "refund", 2); !apperr.IsKind(err, apperr.ErrEmbeddingUnavailable) {
		t.Fatalf("expected ErrEmbeddingUnavailable from Search, got %v", err)
	}
}

func TestConcurrentSearchDuringIngest(t *testing.T) {
	ctx := context.Background()
	e := newMockEmbedder(64)
	ix := openTestIndex(t, t.TempDir(), e)
	if err := ix.AddDocuments(ctx, testChunks()[:1]); err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				if _, err := ix.Search(ctx, "refund", 3); err != nil {
					t.Errorf("Search: %v", err)
					return
				}
			}
		}()
	}
	for i := 0; i < 3; i++ {
		c := testChunks()[1]
		c.Index = i + 1
		if err := ix.Ingest(ctx, []Chunk{c}); err != nil {
			t.Fatalf("Ingest: %v", err)
		}
	}
	wg.Wait()

	if ix.Count() != 4 {
		t.Errorf("Count = %d, want 4", ix.Count())
	}
}

func TestSources(t *testing.T) {
	results := []Result{
		{Source: Source{DocumentID: "d1", Page: 1}},
		{Source: Source{DocumentID: "d1", Page: 1, Chunk: 1}},
		{Source: Source{DocumentID: "d2", Page: 3}},
	}
	if got := Sources(results); len(got) != 2 {
		t.Errorf("expected 2 distinct sources, got %+v", got)
	}
	if FormatResults(nil) != "No results found." {
		t.Error("unexpected empty format")
	}
}

func TestQueryEmbeddingFunc(t *testing.T) {
	e := newMockEmbedder(8)
	vec, err := queryEmbeddingFunc(e)(context.Background(), "refund window")
	if err != nil || len(vec) != 8 {
		t.Fatalf("vec=%v err=%v", vec, err)
	}

	e.err = errors.New("down")
	if _, err := queryEmbeddingFunc(e)(context.Background(), "x"); err == nil {
		t.Error("expected embedder error to propagate")
	}
}

func TestDeleteDocument(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	e := newMockEmbedder(32)
	ix := openTestIndex(t, dir, e)

	if err := ix.Ingest(ctx, testChunks()); err != nil {
		t.Fatal(err)
	}
	if err := ix.DeleteDocument(ctx, "d1"); err != nil {
		t.Fatalf("DeleteDocument: %v", err)
	}
	if ix.Count() != 1 {
		t.Fatalf("Count = %d, want 1", ix.Count())
	}

	reopened := openTestIndex(t, dir, e)
	results, err := reopened.Search(ctx, "refund window", 3)
	if err != nil {
		t.Fatal(err)
	}
	for _, r := range results {
		if r.Source.DocumentID == "d1" {
			t.Errorf("deleted chunk survived the snapshot: %+v", r)
		}
	}
}

func TestIngestSaveFailureLeavesNothing(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir() + "/index"
	ix := openTestIndex(t, dir, newMockEmbedder(16))

	if err := os.RemoveAll(dir); err != nil {
		t.Fatal(err)
	}
	if err := ix.Ingest(ctx, testChunks()); !apperr.IsKind(err, apperr.ErrIOFailure) {
		t.Fatalf("expected ErrIOFailure, got %v", err)
	}
	if ix.Count() != 0 {
		t.Errorf("unsaved chunks should be removed, Count = %d", ix.Count())
	}
}
