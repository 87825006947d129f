// Package store owns all persistent state: user identities, the chat
// directory (chats and their participants) and the message ledger. It is
// backed by Postgres; every multi-row operation that has to be atomic runs
// in a single transaction.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"github.com/larkin-dev/chatline/internal/logger"
	"github.com/larkin-dev/chatline/internal/models"
)

var (
	ErrUserNotFound   = errors.New("user not found")
	ErrUsernameTaken  = errors.New("username already taken")
	ErrEmailTaken     = errors.New("email already registered")
	ErrSelfChat       = errors.New("cannot create chat with yourself")
	ErrChatNotFound   = errors.New("chat not found")
	ErrNotParticipant = errors.New("not a participant of this chat")
)

// Unique constraints the store translates into sentinel errors.
const (
	usersUsernameKey = "users_username_key"
	usersEmailKey    = "users_email_key"
)

// Store is the persistence boundary consumed by the API layer.
type Store interface {
	// Identity
	CreateUser(ctx context.Context, username, email, passwordHash string) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
	SearchUsers(ctx context.Context, query string, excludeID int64, limit int) ([]*models.User, error)
	UpdateAvatar(ctx context.Context, userID int64, path string) error

	// Chat directory
	CreatePrivateChat(ctx context.Context, creatorID, targetID int64) (chatID int64, created bool, err error)
	CreateGroupChat(ctx context.Context, creatorID int64, name string, memberIDs []int64) (int64, error)
	GetParticipant(ctx context.Context, chatID, userID int64) (*models.ChatParticipant, error)
	ListChats(ctx context.Context, userID int64) ([]*models.ChatSummary, error)

	// Message ledger
	CreateMessage(ctx context.Context, chatID, senderID int64, content, filePath, fileType string) (*models.MessageResponse, error)
	ListMessages(ctx context.Context, chatID, viewerID int64, offset, limit int, markRead bool) ([]*models.MessageResponse, error)
	CountUnread(ctx context.Context, chatID, userID int64) (int, error)

	Close() error
}

// psql builds queries with Postgres placeholders.
var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// Postgres implements Store over a sqlx connection pool.
type Postgres struct {
	db  *sqlx.DB
	log *logrus.Entry
}

// NewPostgres connects to the given database URL, verifies the connection
// and applies any pending schema migrations.
func NewPostgres(databaseURL string) (*Postgres, error) {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	if err := Migrate(db.DB); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply migrations: %w", err)
	}

	return &Postgres{db: db, log: logger.New("store")}, nil
}

func (s *Postgres) Close() error {
	return s.db.Close()
}

// withTx runs fn inside a transaction, rolling back on error or panic.
func (s *Postgres) withTx(ctx context.Context, fn func(tx *sqlx.Tx) error) (err error) {
	tx, err := s.db.BeginTxx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				err = fmt.Errorf("rollback caused by error %q failed: %v", err, rbErr)
			}
		} else {
			err = tx.Commit()
		}
	}()

	err = fn(tx)
	return err
}

// constraintName extracts the violated constraint from a pq unique-violation
// error, or returns "" for anything else.
func constraintName(err error) string {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
		return pqErr.Constraint
	}
	return ""
}
