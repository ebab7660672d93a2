// Package querylog records every answered question and reports on them.
package querylog

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/ziadkadry99/docchat/internal/apperr"
	"github.com/ziadkadry99/docchat/internal/db"
)

// Source tags which answerer produced a response.
type Source string

const (
	SourceDocument Source = "pdf"
	SourceFallback Source = "google"
)

// Valid reports whether s is one of the known tags.
func (s Source) Valid() bool {
	return s == SourceDocument || s == SourceFallback
}

// DefaultPageSize is the number of entries per history page.
const DefaultPageSize = 10

// Entry is one logged question and its answer.
type Entry struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Question  string    `json:"user_query"`
	Answer    string    `json:"response"`
	Source    Source    `json:"source"`
	Timestamp time.Time `json:"timestamp"`
}

// Report aggregates entry counts across all users.
type Report struct {
	Total    int            `json:"total"`
	BySource map[Source]int `json:"by_source"`
}

// Store persists query log entries.
type Store struct {
	db  *db.DB
	now func() time.Time
}

// NewStore creates a query log Store.
func NewStore(database *db.DB) *Store {
	return &Store{db: database, now: time.Now}
}

// Append records one entry and returns its id.
func (s *Store) Append(ctx context.Context, userID, question, answer string, source Source) (string, error) {
	const op = "querylog.Append"

	if strings.TrimSpace(question) == "" {
		return "", apperr.New(apperr.ErrInvalidInput, op, "question is empty")
	}
	if !source.Valid() {
		return "", apperr.New(apperr.ErrInvalidInput, op, fmt.Sprintf("unknown source %q", source))
	}

	id := uuid.NewString()
	query, args, err := squirrel.Insert("query_logs").
		Columns("id", "user_id", "question", "answer", "source", "timestamp").
		Values(id, userID, question, answer, string(source), db.FormatTime(s.now())).
		ToSql()
	if err != nil {
		return "", fmt.Errorf("building insert: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return "", apperr.Wrap(apperr.ErrIOFailure, op, err)
	}
	return id, nil
}

// Page returns one page of userID's entries, newest first, and the total
// number of pages. Pages are 1-based; page < 1 is treated as 1.
func (s *Store) Page(ctx context.Context, userID string, page, size int) ([]Entry, int, error) {
	const op = "querylog.Page"

	if page < 1 {
		page = 1
	}
	if size <= 0 {
		size = DefaultPageSize
	}

	countSQL, countArgs, err := squirrel.Select("COUNT(*)").
		From("query_logs").
		Where(squirrel.Eq{"user_id": userID}).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("building count: %w", err)
	}
	var total int
	if err := s.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, apperr.Wrap(apperr.ErrIOFailure, op, err)
	}
	totalPages := (total + size - 1) / size

	entries := []Entry{}
	if (page-1)*size >= total {
		return entries, totalPages, nil
	}

	query, args, err := squirrel.Select("id", "user_id", "question", "answer", "source", "timestamp").
		From("query_logs").
		Where(squirrel.Eq{"user_id": userID}).
		OrderBy("timestamp DESC", "rowid DESC").
		Limit(uint64(size)).
		Offset(uint64((page - 1) * size)).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("building select: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, apperr.Wrap(apperr.ErrIOFailure, op, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			e      Entry
			source string
			ts     string
		)
		if err := rows.Scan(&e.ID, &e.UserID, &e.Question, &e.Answer, &source, &ts); err != nil {
			return nil, 0, apperr.Wrap(apperr.ErrIOFailure, op, err)
		}
		e.Source = Source(source)
		if e.Timestamp, err = db.ParseTime(ts); err != nil {
			return nil, 0, apperr.Wrap(apperr.ErrIOFailure, op, err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, apperr.Wrap(apperr.ErrIOFailure, op, err)
	}
	return entries, totalPages, nil
}

// CountsBySource totals entries across all users.
func (s *Store) CountsBySource(ctx context.Context) (Report, error) {
	const op = "querylog.CountsBySource"

	report := Report{BySource: map[Source]int{SourceDocument: 0, SourceFallback: 0}}

	query, args, err := squirrel.Select("source", "COUNT(*)").
		From("query_logs").
		GroupBy("source").
		ToSql()
	if err != nil {
		return report, fmt.Errorf("building select: %w", err)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return report, apperr.Wrap(apperr.ErrIOFailure, op, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			source string
			n      int
		)
		if err := rows.Scan(&source, &n); err != nil {
			return report, apperr.Wrap(apperr.ErrIOFailure, op, err)
		}
		report.BySource[Source(source)] = n
		report.Total += n
	}
	if err := rows.Err(); err != nil {
		return report, apperr.Wrap(apperr.ErrIOFailure, op, err)
	}
	return report, nil
}
