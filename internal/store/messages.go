package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"github.com/larkin-dev/chatline/internal/models"
)

// messageColumnsM is the message projection joined with its sender.
const messageColumnsM = "m.id, m.chat_id, m.sender_id, m.content, " +
	"COALESCE(m.file_path, '') AS file_path, COALESCE(m.file_type, '') AS file_type, " +
	"m.is_read, m.is_edited, m.created_at, " +
	"u.username AS sender_username, u.email AS sender_email, " +
	"COALESCE(u.avatar_path, '') AS sender_avatar"

// messageRow is the scan target for message+sender joins.
type messageRow struct {
	ID             int64     `db:"id"`
	ChatID         int64     `db:"chat_id"`
	SenderID       int64     `db:"sender_id"`
	Content        string    `db:"content"`
	FilePath       string    `db:"file_path"`
	FileType       string    `db:"file_type"`
	IsRead         bool      `db:"is_read"`
	IsEdited       bool      `db:"is_edited"`
	CreatedAt      time.Time `db:"created_at"`
	SenderUsername string    `db:"sender_username"`
	SenderEmail    string    `db:"sender_email"`
	SenderAvatar   string    `db:"sender_avatar"`
}

func (r *messageRow) toResponse() *models.MessageResponse {
	return &models.MessageResponse{
		ID:        r.ID,
		ChatID:    r.ChatID,
		SenderID:  r.SenderID,
		Content:   r.Content,
		FilePath:  r.FilePath,
		FileType:  r.FileType,
		IsRead:    r.IsRead,
		IsEdited:  r.IsEdited,
		CreatedAt: r.CreatedAt,
		Sender: &models.UserResponse{
			ID:         r.SenderID,
			Username:   r.SenderUsername,
			Email:      r.SenderEmail,
			AvatarPath: r.SenderAvatar,
		},
	}
}

// CreateMessage inserts a message and bumps the chat's updated_at in the
// same transaction, which is what moves the chat to the top of the chat
// list. Attachment blobs must already be durable before this is called.
func (s *Postgres) CreateMessage(ctx context.Context, chatID, senderID int64, content, filePath, fileType string) (*models.MessageResponse, error) {
	builder := psql.Insert("messages").
		Columns("chat_id", "sender_id", "content", "file_path", "file_type").
		Values(chatID, senderID, content, nullable(filePath), nullable(fileType)).
		Suffix("RETURNING id, created_at")

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, err
	}

	msg := &models.MessageResponse{
		ChatID:   chatID,
		SenderID: senderID,
		Content:  content,
		FilePath: filePath,
		FileType: fileType,
	}

	err = s.withTx(ctx, func(tx *sqlx.Tx) error {
		row := tx.QueryRowxContext(ctx, query, args...)
		if err := row.Scan(&msg.ID, &msg.CreatedAt); err != nil {
			return fmt.Errorf("create message: %w", err)
		}

		res, err := tx.ExecContext(ctx,
			"UPDATE chats SET updated_at = now() WHERE id = $1 AND is_active", chatID)
		if err != nil {
			return fmt.Errorf("bump chat: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			return ErrChatNotFound
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sender, err := s.GetUserByID(ctx, senderID)
	if err != nil {
		return nil, err
	}
	msg.Sender = sender.ToResponse()

	return msg, nil
}

// ListMessages returns one page of a chat's history ordered oldest-first.
// Paging windows are taken over the newest-first ordering (offset 0 is the
// most recent page) and the page is reversed before returning. When markRead
// is set, every unread message in the chat not sent by the viewer is marked
// read in the same transaction as the page fetch, so two participants
// reading concurrently cannot double-apply or miss the transition.
func (s *Postgres) ListMessages(ctx context.Context, chatID, viewerID int64, offset, limit int, markRead bool) ([]*models.MessageResponse, error) {
	query, args, err := psql.Select(messageColumnsM).
		From("messages m").
		Join("users u ON u.id = m.sender_id").
		Where(sq.Eq{"m.chat_id": chatID}).
		OrderBy("m.created_at DESC", "m.id DESC").
		Offset(uint64(offset)).
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, err
	}

	rows := make([]*messageRow, 0)
	err = s.withTx(ctx, func(tx *sqlx.Tx) error {
		if err := tx.SelectContext(ctx, &rows, query, args...); err != nil {
			return fmt.Errorf("list messages: %w", err)
		}

		if !markRead {
			return nil
		}

		// The whole chat is marked read, not just the fetched page.
		_, err := tx.ExecContext(ctx,
			"UPDATE messages SET is_read = TRUE, updated_at = now() "+
				"WHERE chat_id = $1 AND sender_id <> $2 AND is_read = FALSE",
			chatID, viewerID)
		if err != nil {
			return fmt.Errorf("mark read: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Chronological order for display.
	messages := make([]*models.MessageResponse, 0, len(rows))
	for i := len(rows) - 1; i >= 0; i-- {
		messages = append(messages, rows[i].toResponse())
	}

	return messages, nil
}

// CountUnread counts messages in the chat that the user has not seen:
// authored by someone else and not yet marked read. Pure read.
func (s *Postgres) CountUnread(ctx context.Context, chatID, userID int64) (int, error) {
	query, args, err := psql.Select("COUNT(*)").
		From("messages").
		Where(sq.Eq{"chat_id": chatID, "is_read": false}).
		Where(sq.NotEq{"sender_id": userID}).
		ToSql()
	if err != nil {
		return 0, err
	}

	var count int
	if err := s.db.GetContext(ctx, &count, query, args...); err != nil {
		return 0, fmt.Errorf("count unread: %w", err)
	}

	return count, nil
}

// lastMessage returns the newest message of a chat, or nil when empty.
// Created-at ties break by id, so the result is stable.
func (s *Postgres) lastMessage(ctx context.Context, chatID int64) (*models.MessageResponse, error) {
	query, args, err := psql.Select(messageColumnsM).
		From("messages m").
		Join("users u ON u.id = m.sender_id").
		Where(sq.Eq{"m.chat_id": chatID}).
		OrderBy("m.created_at DESC", "m.id DESC").
		Limit(1).
		ToSql()
	if err != nil {
		return nil, err
	}

	var row messageRow
	err = s.db.GetContext(ctx, &row, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("last message: %w", err)
	}

	return row.toResponse(), nil
}

// nullable maps "" to NULL for optional text columns.
func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
