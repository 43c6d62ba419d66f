package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/ALT-F4-LLC/treeport/internal/model"
)

const userColumns = `id, username, COALESCE(email, ''), COALESCE(name, ''), admin, ghost`

func scanUser(sc scanner) (*model.User, error) {
	var u model.User
	var admin, ghost int
	if err := sc.Scan(&u.ID, &u.Username, &u.Email, &u.Name, &admin, &ghost); err != nil {
		return nil, err
	}
	u.Admin = admin != 0
	u.Ghost = ghost != 0
	return &u, nil
}

// CreateUser inserts a destination user.
func (s *Store) CreateUser(ctx context.Context, u *model.User) (int64, error) {
	if err := check("user", u); err != nil {
		return 0, err
	}
	id, err := s.insert(ctx, "user",
		`INSERT INTO users (username, email, name, admin, ghost) VALUES (?, ?, ?, ?, ?)`,
		u.Username, nullString(strings.ToLower(u.Email)), nullString(u.Name),
		boolInt(u.Admin), boolInt(u.Ghost),
	)
	if err != nil {
		return 0, err
	}
	u.ID = id
	return id, nil
}

// GetUserByUsername returns the user with the given username.
func (s *Store) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	u, ok, err := s.LookupUser(ctx, "", username)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("user %q: %w", username, ErrNotFound)
	}
	return u, nil
}

// LookupUser resolves a user by email first and username second. Both
// comparisons are case-insensitive. Ghost users never match.
func (s *Store) LookupUser(ctx context.Context, email, username string) (*model.User, bool, error) {
	if email != "" {
		u, err := scanUser(s.q.QueryRowContext(ctx,
			`SELECT `+userColumns+` FROM users WHERE lower(email) = lower(?) AND ghost = 0`, email))
		if err == nil {
			return u, true, nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, false, fmt.Errorf("looking up user by email: %w", err)
		}
	}
	if username != "" {
		u, err := scanUser(s.q.QueryRowContext(ctx,
			`SELECT `+userColumns+` FROM users WHERE username = ? COLLATE NOCASE AND ghost = 0`, username))
		if err == nil {
			return u, true, nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, false, fmt.Errorf("looking up user by username: %w", err)
		}
	}
	return nil, false, nil
}

// EnsureGhostUser returns the id of the system ghost user, creating it when
// absent.
func (s *Store) EnsureGhostUser(ctx context.Context) (int64, error) {
	var id int64
	err := s.q.QueryRowContext(ctx,
		`SELECT id FROM users WHERE ghost = 1 ORDER BY id LIMIT 1`).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("looking up ghost user: %w", err)
	}
	return s.CreateUser(ctx, &model.User{
		Username: model.GhostUsername,
		Name:     "Ghost User",
		Ghost:    true,
	})
}

// ListUsers returns all users ordered by id.
func (s *Store) ListUsers(ctx context.Context) ([]*model.User, error) {
	rows, err := s.q.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	defer rows.Close()

	var users []*model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}
