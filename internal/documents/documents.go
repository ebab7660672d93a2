// Package documents stores uploaded PDF files and their metadata.
package documents

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/ziadkadry99/docchat/internal/apperr"
	"github.com/ziadkadry99/docchat/internal/db"
)

// Document is the metadata recorded for one uploaded file.
type Document struct {
	ID         string    `json:"id"`
	Filename   string    `json:"filename"`
	Title      string    `json:"title,omitempty"`
	Author     string    `json:"author,omitempty"`
	SizeBytes  int64     `json:"size_bytes"`
	Pages      int       `json:"pages"`
	Chunks     int       `json:"chunks"`
	UploadedBy string    `json:"uploaded_by,omitempty"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// Store writes files under dir and metadata rows to the database.
type Store struct {
	db  *db.DB
	dir string
	now func() time.Time
}

// NewStore creates a Store keeping files in dir.
func NewStore(database *db.DB, dir string) *Store {
	return &Store{db: database, dir: dir, now: time.Now}
}

// Dir returns the storage directory.
func (s *Store) Dir() string {
	return s.dir
}

var columns = []string{"id", "filename", "title", "author", "size_bytes", "pages", "chunks", "uploaded_by", "uploaded_at"}

// IsPDFName reports whether the base of name ends in .pdf, ignoring case,
// after a non-empty stem. Names starting with a dot are rejected.
func IsPDFName(name string) bool {
	base := filepath.Base(name)
	ext := filepath.Ext(base)
	if strings.HasPrefix(base, ".") || strings.TrimSpace(strings.TrimSuffix(base, ext)) == "" {
		return false
	}
	return strings.EqualFold(ext, ".pdf")
}

type uploaderKey struct{}

// WithUploader tags ctx with the id of the uploading user.
func WithUploader(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, uploaderKey{}, userID)
}

// Store persists r under the base name of declaredFilename and records its
// metadata. Existing files are never overwritten.
func (s *Store) Store(ctx context.Context, r io.Reader, declaredFilename, title, author string) (*Document, error) {
	const op = "documents.Store"

	name := filepath.Base(filepath.Clean("/" + strings.ReplaceAll(declaredFilename, "\\", "/")))
	if name == "/" || name == "." || !IsPDFName(name) {
		return nil, apperr.New(apperr.ErrInvalidType, op, fmt.Sprintf("%q is not a .pdf file", declaredFilename))
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return nil, apperr.Wrap(apperr.ErrIOFailure, op, fmt.Errorf("creating %s: %w", s.dir, err))
	}

	size, err := s.writeExclusive(name, r)
	if err != nil {
		return nil, err
	}

	uploader, _ := ctx.Value(uploaderKey{}).(string)
	doc := &Document{
		ID:         uuid.NewString(),
		Filename:   name,
		Title:      strings.TrimSpace(title),
		Author:     strings.TrimSpace(author),
		SizeBytes:  size,
		UploadedBy: uploader,
		UploadedAt: s.now().UTC(),
	}

	query, args, err := squirrel.Insert("documents").
		Columns(columns...).
		Values(doc.ID, doc.Filename, doc.Title, doc.Author, doc.SizeBytes, 0, 0, doc.UploadedBy, db.FormatTime(doc.UploadedAt)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building insert: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		os.Remove(filepath.Join(s.dir, name))
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return nil, apperr.Wrap(apperr.ErrDuplicate, op, err)
		}
		return nil, apperr.Wrap(apperr.ErrIOFailure, op, err)
	}
	return doc, nil
}

// writeExclusive copies r to a temp file and links it to name only if name
// does not exist yet.
func (s *Store) writeExclusive(name string, r io.Reader) (int64, error) {
	const op = "documents.Store"

	final := filepath.Join(s.dir, name)
	if _, err := os.Stat(final); err == nil {
		return 0, apperr.New(apperr.ErrDuplicate, op, fmt.Sprintf("%q already exists", name))
	}

	tmp, err := os.CreateTemp(s.dir, ".upload-*.tmp")
	if err != nil {
		return 0, apperr.Wrap(apperr.ErrIOFailure, op, err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	size, err := io.Copy(tmp, r)
	if err == nil {
		err = tmp.Sync()
	}
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return 0, apperr.Wrap(apperr.ErrIOFailure, op, fmt.Errorf("writing upload: %w", err))
	}

	// Link fails with EEXIST if another upload claimed the name meanwhile.
	if err := os.Link(tmpPath, final); err != nil {
		if errors.Is(err, os.ErrExist) {
			return 0, apperr.Wrap(apperr.ErrDuplicate, op, err)
		}
		if err := copyExclusive(tmpPath, final); err != nil {
			return 0, err
		}
	}
	return size, nil
}

// copyExclusive is used where hard links are unsupported.
func copyExclusive(src, dst string) error {
	const op = "documents.Store"

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if errors.Is(err, os.ErrExist) {
		return apperr.Wrap(apperr.ErrDuplicate, op, err)
	}
	if err != nil {
		return apperr.Wrap(apperr.ErrIOFailure, op, err)
	}
	in, err := os.Open(src)
	if err != nil {
		out.Close()
		os.Remove(dst)
		return apperr.Wrap(apperr.ErrIOFailure, op, err)
	}
	defer in.Close()

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return apperr.Wrap(apperr.ErrIOFailure, op, err)
	}
	return out.Close()
}

// Open returns a reader over the stored file.
func (s *Store) Open(filename string) (*os.File, error) {
	f, err := os.Open(filepath.Join(s.dir, filepath.Base(filename)))
	if errors.Is(err, os.ErrNotExist) {
		return nil, apperr.Wrap(apperr.ErrNotFound, "documents.Open", err)
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrIOFailure, "documents.Open", err)
	}
	return f, nil
}

// Get returns the document with id.
func (s *Store) Get(ctx context.Context, id string) (*Document, error) {
	query, args, err := squirrel.Select(columns...).From("documents").Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("building select: %w", err)
	}
	doc, err := scanDocument(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.Wrap(apperr.ErrNotFound, "documents.Get", err)
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrIOFailure, "documents.Get", err)
	}
	return doc, nil
}

// List returns documents newest first.
func (s *Store) List(ctx context.Context, limit, offset int) ([]Document, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	query, args, err := squirrel.Select(columns...).
		From("documents").
		OrderBy("uploaded_at DESC", "filename").
		Limit(uint64(limit)).
		Offset(uint64(offset)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building select: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrIOFailure, "documents.List", err)
	}
	defer rows.Close()

	docs := []Document{}
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, apperr.Wrap(apperr.ErrIOFailure, "documents.List", err)
		}
		docs = append(docs, *doc)
	}
	return docs, rows.Err()
}

// Count returns the number of stored documents.
func (s *Store) Count(ctx context.Context) (int, error) {
	query, args, err := squirrel.Select("COUNT(*)").From("documents").ToSql()
	if err != nil {
		return 0, fmt.Errorf("building count: %w", err)
	}
	var n int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, apperr.Wrap(apperr.ErrIOFailure, "documents.Count", err)
	}
	return n, nil
}

// RecordIndexing stores the page and chunk counts after a successful index.
func (s *Store) RecordIndexing(ctx context.Context, id string, pages, chunks int) error {
	query, args, err := squirrel.Update("documents").
		Set("pages", pages).
		Set("chunks", chunks).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("building update: %w", err)
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return apperr.Wrap(apperr.ErrIOFailure, "documents.RecordIndexing", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.New(apperr.ErrNotFound, "documents.RecordIndexing", fmt.Sprintf("document %s", id))
	}
	return nil
}

// Remove deletes the metadata row and the stored file of id. A file that is
// already gone is not an error.
func (s *Store) Remove(ctx context.Context, id string) error {
	const op = "documents.Remove"

	doc, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	query, args, err := squirrel.Delete("documents").Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return fmt.Errorf("building delete: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return apperr.Wrap(apperr.ErrIOFailure, op, err)
	}
	if err := os.Remove(filepath.Join(s.dir, doc.Filename)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return apperr.Wrap(apperr.ErrIOFailure, op, err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDocument(row scanner) (*Document, error) {
	var (
		d          Document
		uploadedAt string
	)
	if err := row.Scan(&d.ID, &d.Filename, &d.Title, &d.Author, &d.SizeBytes, &d.Pages, &d.Chunks, &d.UploadedBy, &uploadedAt); err != nil {
		return nil, err
	}
	t, err := db.ParseTime(uploadedAt)
	if err != nil {
		return nil, fmt.Errorf("parsing uploaded_at: %w", err)
	}
	d.UploadedAt = t
	return &d, nil
}
