package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"github.com/larkin-dev/chatline/internal/models"
)

// Chat and user projections qualified for joins; name, avatar and creator
// are nullable in the schema.
const (
	chatColumnsC = "c.id, c.chat_type, COALESCE(c.chat_name, '') AS chat_name, " +
		"COALESCE(c.chat_avatar, '') AS chat_avatar, COALESCE(c.creator_id, 0) AS creator_id, " +
		"c.is_active, c.created_at, c.updated_at"
	userColumnsU = "u.id, u.username, u.email, u.password_hash, " +
		"COALESCE(u.avatar_path, '') AS avatar_path, u.is_active, u.created_at"
)

// privatePairKey builds the identity of an unordered user pair, e.g. "3:17".
// The partial unique index on chats(pair_key) makes this the enforcement
// point for the one-private-chat-per-pair invariant.
func privatePairKey(a, b int64) string {
	if a > b {
		a, b = b, a
	}
	return fmt.Sprintf("%d:%d", a, b)
}

// CreatePrivateChat returns the existing active private chat between the two
// users, or creates one. Idempotent: calling it twice, from either side and
// concurrently, yields the same single chat. The race between two concurrent
// creators is resolved by ON CONFLICT on the pair index: the loser's insert
// becomes a no-op and the winner's chat is returned.
func (s *Postgres) CreatePrivateChat(ctx context.Context, creatorID, targetID int64) (int64, bool, error) {
	if targetID == creatorID {
		return 0, false, ErrSelfChat
	}

	target, err := s.GetUserByID(ctx, targetID)
	if err != nil {
		return 0, false, err
	}
	if !target.IsActive {
		return 0, false, ErrUserNotFound
	}

	pairKey := privatePairKey(creatorID, targetID)

	var chatID int64
	created := false

	err = s.withTx(ctx, func(tx *sqlx.Tx) error {
		err := tx.GetContext(ctx, &chatID,
			"SELECT id FROM chats WHERE chat_type = 'private' AND pair_key = $1 AND is_active", pairKey)
		if err == nil {
			return nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return err
		}

		query, args, err := psql.Insert("chats").
			Columns("chat_type", "creator_id", "pair_key").
			Values(models.ChatTypePrivate, creatorID, pairKey).
			Suffix("ON CONFLICT (pair_key) WHERE chat_type = 'private' AND is_active DO NOTHING RETURNING id").
			ToSql()
		if err != nil {
			return err
		}

		err = tx.GetContext(ctx, &chatID, query, args...)
		if errors.Is(err, sql.ErrNoRows) {
			// Lost the creation race; the winner's chat is committed by now.
			return tx.GetContext(ctx, &chatID,
				"SELECT id FROM chats WHERE chat_type = 'private' AND pair_key = $1 AND is_active", pairKey)
		}
		if err != nil {
			return err
		}

		created = true
		return s.insertParticipants(ctx, tx, chatID, []participantSpec{
			{userID: creatorID},
			{userID: targetID},
		})
	})
	if err != nil {
		return 0, false, err
	}

	return chatID, created, nil
}

// CreateGroupChat creates a named group chat with the creator as admin plus
// the given members. Any unresolvable member aborts the whole operation.
func (s *Postgres) CreateGroupChat(ctx context.Context, creatorID int64, name string, memberIDs []int64) (int64, error) {
	members := make([]int64, 0, len(memberIDs))
	seen := map[int64]bool{creatorID: true}
	for _, id := range memberIDs {
		if !seen[id] {
			seen[id] = true
			members = append(members, id)
		}
	}

	if err := s.checkUsersActive(ctx, memberIDs); err != nil {
		return 0, err
	}

	var chatID int64
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		query, args, err := psql.Insert("chats").
			Columns("chat_type", "chat_name", "creator_id").
			Values(models.ChatTypeGroup, name, creatorID).
			Suffix("RETURNING id").
			ToSql()
		if err != nil {
			return err
		}

		if err := tx.GetContext(ctx, &chatID, query, args...); err != nil {
			return fmt.Errorf("create group chat: %w", err)
		}

		specs := []participantSpec{{userID: creatorID, isAdmin: true}}
		for _, id := range members {
			specs = append(specs, participantSpec{userID: id})
		}
		return s.insertParticipants(ctx, tx, chatID, specs)
	})
	if err != nil {
		return 0, err
	}

	return chatID, nil
}

type participantSpec struct {
	userID  int64
	isAdmin bool
}

func (s *Postgres) insertParticipants(ctx context.Context, tx *sqlx.Tx, chatID int64, specs []participantSpec) error {
	builder := psql.Insert("chat_participants").
		Columns("chat_id", "user_id", "is_admin")
	for _, spec := range specs {
		builder = builder.Values(chatID, spec.userID, spec.isAdmin)
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("add participants: %w", err)
	}
	return nil
}

// checkUsersActive verifies every id resolves to an active user.
func (s *Postgres) checkUsersActive(ctx context.Context, ids []int64) error {
	distinct := make(map[int64]bool, len(ids))
	for _, id := range ids {
		distinct[id] = true
	}

	query, args, err := psql.Select("COUNT(*)").
		From("users").
		Where(sq.Eq{"id": ids, "is_active": true}).
		ToSql()
	if err != nil {
		return err
	}

	var count int
	if err := s.db.GetContext(ctx, &count, query, args...); err != nil {
		return err
	}
	if count != len(distinct) {
		return ErrUserNotFound
	}
	return nil
}

// GetParticipant is the authorization gate for every chat and message
// operation. A missing membership row is reported as ErrNotParticipant
// regardless of whether the chat exists, so non-members cannot probe for
// chat ids.
func (s *Postgres) GetParticipant(ctx context.Context, chatID, userID int64) (*models.ChatParticipant, error) {
	query, args, err := psql.Select("id", "chat_id", "user_id", "is_admin", "joined_at").
		From("chat_participants").
		Where(sq.Eq{"chat_id": chatID, "user_id": userID}).
		ToSql()
	if err != nil {
		return nil, err
	}

	var p models.ChatParticipant
	err = s.db.GetContext(ctx, &p, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotParticipant
	}
	if err != nil {
		return nil, fmt.Errorf("get participant: %w", err)
	}

	return &p, nil
}

// ListChats returns the user's active chats, most recently updated first,
// each enriched with its last message, the viewer's unread count, the
// participant roster and a resolved display name.
func (s *Postgres) ListChats(ctx context.Context, userID int64) ([]*models.ChatSummary, error) {
	query, args, err := psql.Select(chatColumnsC).
		From("chats c").
		Join("chat_participants cp ON cp.chat_id = c.id").
		Where(sq.Eq{"cp.user_id": userID, "c.is_active": true}).
		OrderBy("c.updated_at DESC").
		ToSql()
	if err != nil {
		return nil, err
	}

	chats := make([]*models.Chat, 0)
	if err := s.db.SelectContext(ctx, &chats, query, args...); err != nil {
		return nil, fmt.Errorf("list chats: %w", err)
	}

	summaries := make([]*models.ChatSummary, 0, len(chats))
	for _, chat := range chats {
		last, err := s.lastMessage(ctx, chat.ID)
		if err != nil {
			return nil, err
		}

		unread, err := s.CountUnread(ctx, chat.ID, userID)
		if err != nil {
			return nil, err
		}

		participants, err := s.chatParticipants(ctx, chat.ID)
		if err != nil {
			return nil, err
		}

		// Private chats display the counterpart's username.
		name := chat.ChatName
		if chat.ChatType == models.ChatTypePrivate {
			for _, p := range participants {
				if p.ID != userID {
					name = p.Username
					break
				}
			}
		}

		summaries = append(summaries, &models.ChatSummary{
			ID:           chat.ID,
			ChatType:     chat.ChatType,
			ChatName:     name,
			ChatAvatar:   chat.ChatAvatar,
			LastMessage:  last,
			UnreadCount:  unread,
			Participants: participants,
			CreatedAt:    chat.CreatedAt,
			UpdatedAt:    chat.UpdatedAt,
		})
	}

	return summaries, nil
}

// chatParticipants returns the roster of a chat in join order.
func (s *Postgres) chatParticipants(ctx context.Context, chatID int64) ([]*models.UserResponse, error) {
	query, args, err := psql.Select(userColumnsU).
		From("users u").
		Join("chat_participants cp ON cp.user_id = u.id").
		Where(sq.Eq{"cp.chat_id": chatID}).
		OrderBy("cp.joined_at", "cp.id").
		ToSql()
	if err != nil {
		return nil, err
	}

	users := make([]*models.User, 0)
	if err := s.db.SelectContext(ctx, &users, query, args...); err != nil {
		return nil, fmt.Errorf("chat participants: %w", err)
	}

	roster := make([]*models.UserResponse, 0, len(users))
	for _, u := range users {
		roster = append(roster, u.ToResponse())
	}
	return roster, nil
}
