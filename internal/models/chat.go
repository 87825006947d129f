package models

import (
	"time"
)

// ChatType distinguishes 1:1 chats from group chats. Immutable after creation.
type ChatType string

const (
	ChatTypePrivate ChatType = "private"
	ChatTypeGroup   ChatType = "group"
)

// Chat is a conversation container. UpdatedAt is bumped on every new message
// and drives ordering in the chat list.
type Chat struct {
	ID         int64     `json:"id" db:"id"`
	ChatType   ChatType  `json:"chat_type" db:"chat_type"`
	ChatName   string    `json:"chat_name,omitempty" db:"chat_name"`
	ChatAvatar string    `json:"chat_avatar,omitempty" db:"chat_avatar"`
	CreatorID  int64     `json:"creator_id" db:"creator_id"`
	IsActive   bool      `json:"is_active" db:"is_active"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"`
}

// ChatParticipant links a user to a chat. Its existence is the sole
// authorization primitive for every chat and message operation.
type ChatParticipant struct {
	ID       int64     `json:"id" db:"id"`
	ChatID   int64     `json:"chat_id" db:"chat_id"`
	UserID   int64     `json:"user_id" db:"user_id"`
	IsAdmin  bool      `json:"is_admin" db:"is_admin"`
	JoinedAt time.Time `json:"joined_at" db:"joined_at"`
}

// CreatePrivateChatRequest asks for a 1:1 chat with another user
type CreatePrivateChatRequest struct {
	TargetUserID int64 `json:"target_user_id" binding:"required"`
}

// CreateGroupChatRequest asks for a named group chat with initial members
type CreateGroupChatRequest struct {
	Name    string  `json:"name" binding:"required,max=100"`
	UserIDs []int64 `json:"user_ids" binding:"required,min=1"`
}

// ChatSummary is one entry in a user's chat list: the chat enriched with the
// last message, the viewer's unread count, the resolved display name
// (counterpart's username for private chats) and the participant roster.
type ChatSummary struct {
	ID           int64            `json:"id"`
	ChatType     ChatType         `json:"chat_type"`
	ChatName     string           `json:"chat_name,omitempty"`
	ChatAvatar   string           `json:"chat_avatar,omitempty"`
	LastMessage  *MessageResponse `json:"last_message,omitempty"`
	UnreadCount  int              `json:"unread_count"`
	Participants []*UserResponse  `json:"participants"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
}
