package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/larkin-dev/chatline/internal/models"
	"github.com/larkin-dev/chatline/internal/store"
)

// ChatHandler handles chat creation and listing
type ChatHandler struct {
	Store store.Store
}

// NewChatHandler creates a new chat handler
func NewChatHandler(s store.Store) *ChatHandler {
	return &ChatHandler{Store: s}
}

// CreatePrivate finds or creates the 1:1 chat with the target user.
// Idempotent: a repeat call returns the existing chat with is_new=false.
func (h *ChatHandler) CreatePrivate(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req models.CreatePrivateChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	chatID, created, err := h.Store.CreatePrivateChat(c.Request.Context(), userID, req.TargetUserID)
	if err != nil {
		writeStoreError(c, err)
		return
	}

	message := "Chat already exists"
	if created {
		message = "Private chat created"
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"chat_id": chatID,
		"is_new":  created,
		"message": message,
	})
}

// CreateGroup creates a named group chat with the requester as admin
func (h *ChatHandler) CreateGroup(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req models.CreateGroupChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	chatID, err := h.Store.CreateGroupChat(c.Request.Context(), userID, req.Name, req.UserIDs)
	if err != nil {
		writeStoreError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"chat_id": chatID,
		"message": "Group chat created",
	})
}

// List returns the user's chat summaries, most recently active first
func (h *ChatHandler) List(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	chats, err := h.Store.ListChats(c.Request.Context(), userID)
	if err != nil {
		writeStoreError(c, err)
		return
	}

	c.JSON(http.StatusOK, chats)
}
