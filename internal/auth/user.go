// Package auth holds user accounts, password hashing, signed session tokens
// and the HTTP middleware that enforces them.
package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/ziadkadry99/docchat/internal/apperr"
	"github.com/ziadkadry99/docchat/internal/db"
)

// Role is a closed set of access levels.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// ParseRole validates s as a Role.
func ParseRole(s string) (Role, error) {
	switch r := Role(strings.ToLower(strings.TrimSpace(s))); r {
	case RoleUser, RoleAdmin:
		return r, nil
	default:
		return "", apperr.New(apperr.ErrInvalidInput, "auth.ParseRole", fmt.Sprintf("unknown role %q", s))
	}
}

// User is an account that can log in.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}

// IsAdmin reports whether the user holds the admin role.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// Store persists users.
type Store struct {
	db *db.DB
}

// NewStore creates a user Store.
func NewStore(database *db.DB) *Store {
	return &Store{db: database}
}

var userColumns = []string{"id", "username", "password_hash", "role", "created_at"}

// Create adds a user with a bcrypt hash of password.
func (s *Store) Create(ctx context.Context, username, password string, role Role) (*User, error) {
	const op = "auth.Create"

	username = strings.TrimSpace(username)
	if username == "" {
		return nil, apperr.New(apperr.ErrInvalidInput, op, "username is required")
	}
	if _, err := ParseRole(string(role)); err != nil {
		return nil, err
	}
	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}

	u := &User{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: hash,
		Role:         role,
		CreatedAt:    time.Now().UTC(),
	}

	query, args, err := squirrel.Insert("users").
		Columns(userColumns...).
		Values(u.ID, u.Username, u.PasswordHash, string(u.Role), db.FormatTime(u.CreatedAt)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building insert: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		if isUniqueViolation(err) {
			return nil, apperr.Wrap(apperr.ErrDuplicate, op, fmt.Errorf("user %q: %w", username, err))
		}
		return nil, apperr.Wrap(apperr.ErrIOFailure, op, err)
	}
	return u, nil
}

// GetByUsername looks a user up by name.
func (s *Store) GetByUsername(ctx context.Context, username string) (*User, error) {
	return s.getOne(ctx, squirrel.Eq{"username": username})
}

// GetByID looks a user up by id.
func (s *Store) GetByID(ctx context.Context, id string) (*User, error) {
	return s.getOne(ctx, squirrel.Eq{"id": id})
}

func (s *Store) getOne(ctx context.Context, where squirrel.Eq) (*User, error) {
	const op = "auth.Get"

	query, args, err := squirrel.Select(userColumns...).From("users").Where(where).ToSql()
	if err != nil {
		return nil, fmt.Errorf("building select: %w", err)
	}

	var (
		u         User
		role      string
		createdAt string
	)
	err = s.db.QueryRowContext(ctx, query, args...).Scan(&u.ID, &u.Username, &u.PasswordHash, &role, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.Wrap(apperr.ErrNotFound, op, err)
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrIOFailure, op, err)
	}
	u.Role = Role(role)
	u.CreatedAt, _ = db.ParseTime(createdAt)
	return &u, nil
}

// SetPassword replaces the password hash for username.
func (s *Store) SetPassword(ctx context.Context, username, password string) error {
	const op = "auth.SetPassword"

	hash, err := HashPassword(password)
	if err != nil {
		return err
	}
	query, args, err := squirrel.Update("users").
		Set("password_hash", hash).
		Where(squirrel.Eq{"username": username}).
		ToSql()
	if err != nil {
		return fmt.Errorf("building update: %w", err)
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return apperr.Wrap(apperr.ErrIOFailure, op, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.New(apperr.ErrNotFound, op, fmt.Sprintf("user %q", username))
	}
	return nil
}

// List returns all users ordered by name.
func (s *Store) List(ctx context.Context) ([]User, error) {
	query, args, err := squirrel.Select(userColumns...).From("users").OrderBy("username").ToSql()
	if err != nil {
		return nil, fmt.Errorf("building select: %w", err)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrIOFailure, "auth.List", err)
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		var (
			u               User
			role, createdAt string
		)
		if err := rows.Scan(&u.ID, &u.Username, &u.PasswordHash, &role, &createdAt); err != nil {
			return nil, apperr.Wrap(apperr.ErrIOFailure, "auth.List", err)
		}
		u.Role = Role(role)
		u.CreatedAt, _ = db.ParseTime(createdAt)
		users = append(users, u)
	}
	return users, rows.Err()
}

// Authenticate checks username and password. Unknown users and wrong
// passwords both yield ErrUnauthorized.
func (s *Store) Authenticate(ctx context.Context, username, password string) (*User, error) {
	u, err := s.GetByUsername(ctx, username)
	if apperr.IsKind(err, apperr.ErrNotFound) {
		return nil, apperr.New(apperr.ErrUnauthorized, "auth.Authenticate", "invalid credentials")
	}
	if err != nil {
		return nil, err
	}
	if !CheckPasswordHash(password, u.PasswordHash) {
		return nil, apperr.New(apperr.ErrUnauthorized, "auth.Authenticate", "invalid credentials")
	}
	return u, nil
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
