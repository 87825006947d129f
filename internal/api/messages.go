package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/larkin-dev/chatline/internal/blob"
	"github.com/larkin-dev/chatline/internal/store"
)

const (
	defaultPageSize = 50
	maxPageSize     = 100
)

// MessageHandler handles sending and listing chat messages
type MessageHandler struct {
	Store store.Store
	Blobs *blob.Store

	// MarkReadOnList preserves the behavior of marking the whole chat read
	// when its message list is fetched.
	MarkReadOnList bool
}

// NewMessageHandler creates a new message handler
func NewMessageHandler(s store.Store, b *blob.Store, markReadOnList bool) *MessageHandler {
	return &MessageHandler{Store: s, Blobs: b, MarkReadOnList: markReadOnList}
}

// Send creates a message in a chat, with an optional file attachment sent as
// multipart form data. The attachment is stored durably before the message
// row is committed, so a stored message never carries a dangling reference.
func (h *MessageHandler) Send(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	chatID, err := strconv.ParseInt(c.PostForm("chat_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid chat ID"})
		return
	}
	content := c.PostForm("content")

	// Membership is the sole authorization boundary.
	if _, err := h.Store.GetParticipant(c.Request.Context(), chatID, userID); err != nil {
		writeStoreError(c, err)
		return
	}

	var filePath, fileType string
	if file, err := c.FormFile("file"); err == nil {
		src, err := file.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read uploaded file"})
			return
		}
		defer src.Close()

		// Attachment failure is fatal to the whole send.
		filePath, err = h.Blobs.Save(src, "", file.Filename)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store attachment"})
			return
		}
		fileType = file.Header.Get("Content-Type")
	}

	message, err := h.Store.CreateMessage(c.Request.Context(), chatID, userID, content, filePath, fileType)
	if err != nil {
		writeStoreError(c, err)
		return
	}

	c.JSON(http.StatusCreated, message)
}

// ListChatMessages returns one chronological page of a chat's messages. As a
// side effect (unless disabled), fetching marks every unread message in the
// chat read for the viewer.
func (h *MessageHandler) ListChatMessages(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	chatID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid chat ID"})
		return
	}

	if _, err := h.Store.GetParticipant(c.Request.Context(), chatID, userID); err != nil {
		writeStoreError(c, err)
		return
	}

	skip := parseIntDefault(c.Query("skip"), 0)
	if skip < 0 {
		skip = 0
	}

	// Out-of-range limits are clamped rather than rejected.
	limit := parseIntDefault(c.Query("limit"), defaultPageSize)
	if limit < 1 {
		limit = 1
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}

	messages, err := h.Store.ListMessages(c.Request.Context(), chatID, userID, skip, limit, h.MarkReadOnList)
	if err != nil {
		writeStoreError(c, err)
		return
	}

	c.JSON(http.StatusOK, messages)
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}
