package models

import (
	"time"
)

// Message belongs to exactly one chat and one sender. FilePath/FileType are
// set when the message carries an attachment.
type Message struct {
	ID        int64     `json:"id" db:"id"`
	ChatID    int64     `json:"chat_id" db:"chat_id"`
	SenderID  int64     `json:"sender_id" db:"sender_id"`
	Content   string    `json:"content" db:"content"`
	FilePath  string    `json:"file_path,omitempty" db:"file_path"`
	FileType  string    `json:"file_type,omitempty" db:"file_type"`
	IsRead    bool      `json:"is_read" db:"is_read"`
	IsEdited  bool      `json:"is_edited" db:"is_edited"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// MessageResponse is what we return to clients, with the sender resolved
type MessageResponse struct {
	ID        int64         `json:"id"`
	ChatID    int64         `json:"chat_id"`
	SenderID  int64         `json:"sender_id"`
	Content   string        `json:"content"`
	FilePath  string        `json:"file_path,omitempty"`
	FileType  string        `json:"file_type,omitempty"`
	IsRead    bool          `json:"is_read"`
	IsEdited  bool          `json:"is_edited"`
	CreatedAt time.Time     `json:"created_at"`
	Sender    *UserResponse `json:"sender,omitempty"`
}
