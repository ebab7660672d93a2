package documents

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ziadkadry99/docchat/internal/apperr"
	"github.com/ziadkadry99/docchat/internal/db"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	database, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return NewStore(database, filepath.Join(t.TempDir(), "pdfs"))
}

func TestStoreWritesFileAndMetadata(t *testing.T) {
	ctx := WithUploader(context.Background(), "u1")
	s := testStore(t)

	doc, err := s.Store(ctx, strings.NewReader("%PDF-1.4 body"), "handbook.pdf", " Handbook ", "HR")
	if err != nil {
		t.Fatalf("Store: %v", err)
	}
	if doc.Filename != "handbook.pdf" || doc.Title != "Handbook" || doc.Author != "HR" || doc.UploadedBy != "u1" {
		t.Errorf("unexpected document %+v", doc)
	}
	if doc.SizeBytes != int64(len("%PDF-1.4 body")) {
		t.Errorf("SizeBytes = %d", doc.SizeBytes)
	}
	if doc.UploadedAt.Location() != time.UTC {
		t.Error("UploadedAt must be UTC")
	}

	data, err := os.ReadFile(filepath.Join(s.Dir(), "handbook.pdf"))
	if err != nil || string(data) != "%PDF-1.4 body" {
		t.Errorf("stored file = %q, %v", data, err)
	}

	got, err := s.Get(ctx, doc.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Filename != doc.Filename || !got.UploadedAt.Equal(doc.UploadedAt) {
		t.Errorf("Get = %+v", got)
	}
}

func TestStoreRejectsNonPDF(t *testing.T) {
	s := testStore(t)
	for _, name := range []string{"notes.txt", "pdf", "archive.pdf.zip", "", ".pdf", "uploads/.pdf", ".hidden.pdf", " .pdf"} {
		if _, err := s.Store(context.Background(), strings.NewReader("x"), name, "", ""); !apperr.IsKind(err, apperr.ErrInvalidType) {
			t.Errorf("%q: expected ErrInvalidType, got %v", name, err)
		}
	}
	if _, err := s.Store(context.Background(), strings.NewReader("x"), "REPORT.PDF", "", ""); err != nil {
		t.Errorf("uppercase extension rejected: %v", err)
	}
}

func TestStoreStripsPathComponents(t *testing.T) {
	s := testStore(t)
	doc, err := s.Store(context.Background(), strings.NewReader("x"), "../../etc/evil.pdf", "", "")
	if err != nil {
		t.Fatalf("Store: %v", err)
	}
	if doc.Filename != "evil.pdf" {
		t.Errorf("Filename = %q", doc.Filename)
	}
	if _, err := os.Stat(filepath.Join(s.Dir(), "evil.pdf")); err != nil {
		t.Errorf("file not in storage dir: %v", err)
	}
}

func TestStoreRejectsCollision(t *testing.T) {
	ctx := context.Background()
	s := testStore(t)

	if _, err := s.Store(ctx, strings.NewReader("first"), "a.pdf", "", ""); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Store(ctx, strings.NewReader("second"), "dir/a.pdf", "", ""); !apperr.IsKind(err, apperr.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}

	data, _ := os.ReadFile(filepath.Join(s.Dir(), "a.pdf"))
	if string(data) != "first" {
		t.Errorf("original file overwritten: %q", data)
	}
	if n, _ := s.Count(ctx); n != 1 {
		t.Errorf("Count = %d, want 1", n)
	}
}

func TestStoreConcurrentSameName(t *testing.T) {
	ctx := context.Background()
	s := testStore(t)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		success int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.Store(ctx, strings.NewReader("x"), "same.pdf", "", ""); err == nil {
				mu.Lock()
				success++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if success != 1 {
		t.Errorf("expected exactly one successful store, got %d", success)
	}
}

func TestStoreNoTempFilesLeft(t *testing.T) {
	s := testStore(t)
	s.Store(context.Background(), strings.NewReader("x"), "a.pdf", "", "")

	entries, _ := os.ReadDir(s.Dir())
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".upload-") {
			t.Errorf("temp file left behind: %s", e.Name())
		}
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, io.ErrUnexpectedEOF }

func TestStoreReadFailure(t *testing.T) {
	s := testStore(t)
	if _, err := s.Store(context.Background(), failingReader{}, "a.pdf", "", ""); !apperr.IsKind(err, apperr.ErrIOFailure) {
		t.Errorf("expected ErrIOFailure, got %v", err)
	}
	if _, err := os.Stat(filepath.Join(s.Dir(), "a.pdf")); !os.IsNotExist(err) {
		t.Error("partial file visible under final name")
	}
}

func TestListCountAndRecordIndexing(t *testing.T) {
	ctx := context.Background()
	s := testStore(t)

	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	var ids []string
	for i, name := range []string{"a.pdf", "b.pdf", "c.pdf"} {
		s.now = func() time.Time { return base.Add(time.Duration(i) * time.Minute) }
		doc, err := s.Store(ctx, strings.NewReader(name), name, "", "")
		if err != nil {
			t.Fatal(err)
		}
		ids = append(ids, doc.ID)
	}

	docs, err := s.List(ctx, 2, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(docs) != 2 || docs[0].Filename != "c.pdf" || docs[1].Filename != "b.pdf" {
		t.Errorf("unexpected first page %+v", docs)
	}
	docs, _ = s.List(ctx, 2, 2)
	if len(docs) != 1 || docs[0].Filename != "a.pdf" {
		t.Errorf("unexpected second page %+v", docs)
	}

	if n, _ := s.Count(ctx); n != 3 {
		t.Errorf("Count = %d", n)
	}

	if err := s.RecordIndexing(ctx, ids[0], 4, 17); err != nil {
		t.Fatal(err)
	}
	doc, _ := s.Get(ctx, ids[0])
	if doc.Pages != 4 || doc.Chunks != 17 {
		t.Errorf("counts not recorded: %+v", doc)
	}
	if err := s.RecordIndexing(ctx, "missing", 1, 1); !apperr.IsKind(err, apperr.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestOpen(t *testing.T) {
	s := testStore(t)
	s.Store(context.Background(), bytes.NewReader([]byte("content")), "a.pdf", "", "")

	f, err := s.Open("a.pdf")
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	data, _ := io.ReadAll(f)
	if string(data) != "content" {
		t.Errorf("Open read %q", data)
	}

	if _, err := s.Open("missing.pdf"); !apperr.IsKind(err, apperr.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if _, err := s.Get(context.Background(), "nope"); !apperr.IsKind(err, apperr.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestRemoveFreesTheName(t *testing.T) {
	ctx := context.Background()
	s := testStore(t)

	doc, err := s.Store(ctx, strings.NewReader("first"), "policy.pdf", "", "")
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Remove(ctx, doc.ID); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, err := s.Get(ctx, doc.ID); !apperr.IsKind(err, apperr.ErrNotFound) {
		t.Errorf("row should be gone, got %v", err)
	}
	if _, err := os.Stat(filepath.Join(s.Dir(), "policy.pdf")); !os.IsNotExist(err) {
		t.Errorf("file should be gone, stat err = %v", err)
	}

	again, err := s.Store(ctx, strings.NewReader("second"), "policy.pdf", "", "")
	if err != nil {
		t.Fatalf("name should be reusable after Remove: %v", err)
	}
	if again.ID == doc.ID {
		t.Error("expected a new id")
	}

	if err := s.Remove(ctx, "missing"); !apperr.IsKind(err, apperr.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
