package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/larkin-dev/chatline/internal/models"
)

// userColumns is the canonical user projection; avatar_path is nullable.
const userColumns = "id, username, email, password_hash, COALESCE(avatar_path, '') AS avatar_path, is_active, created_at"

// CreateUser inserts a new active user. Username and email collisions map to
// distinct sentinel errors so the API can report which field is taken.
func (s *Postgres) CreateUser(ctx context.Context, username, email, passwordHash string) (*models.User, error) {
	query, args, err := psql.Insert("users").
		Columns("username", "email", "password_hash").
		Values(username, email, passwordHash).
		Suffix("RETURNING " + userColumns).
		ToSql()
	if err != nil {
		return nil, err
	}

	var user models.User
	err = s.db.GetContext(ctx, &user, query, args...)
	switch constraintName(err) {
	case usersUsernameKey:
		return nil, ErrUsernameTaken
	case usersEmailKey:
		return nil, ErrEmailTaken
	}
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	return &user, nil
}

// GetUserByUsername retrieves a user by exact username.
func (s *Postgres) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.getUser(ctx, sq.Eq{"username": username})
}

// GetUserByID retrieves a user by id.
func (s *Postgres) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	return s.getUser(ctx, sq.Eq{"id": id})
}

func (s *Postgres) getUser(ctx context.Context, pred sq.Sqlizer) (*models.User, error) {
	query, args, err := psql.Select(userColumns).
		From("users").
		Where(pred).
		ToSql()
	if err != nil {
		return nil, err
	}

	var user models.User
	err = s.db.GetContext(ctx, &user, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}

	return &user, nil
}

// SearchUsers returns active users whose username contains the query
// (case-insensitive), excluding the searching user.
func (s *Postgres) SearchUsers(ctx context.Context, query string, excludeID int64, limit int) ([]*models.User, error) {
	sqlStr, args, err := psql.Select(userColumns).
		From("users").
		Where(sq.ILike{"username": "%" + query + "%"}).
		Where(sq.NotEq{"id": excludeID}).
		Where(sq.Eq{"is_active": true}).
		OrderBy("username").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, err
	}

	users := make([]*models.User, 0)
	if err := s.db.SelectContext(ctx, &users, sqlStr, args...); err != nil {
		return nil, fmt.Errorf("search users: %w", err)
	}

	return users, nil
}

// UpdateAvatar points the user's avatar at a stored blob path.
func (s *Postgres) UpdateAvatar(ctx context.Context, userID int64, path string) error {
	query, args, err := psql.Update("users").
		Set("avatar_path", path).
		Where(sq.Eq{"id": userID}).
		ToSql()
	if err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update avatar: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrUserNotFound
	}

	return nil
}
