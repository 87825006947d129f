package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/larkin-dev/chatline/internal/store"
)

// writeStoreError maps store sentinel errors onto the API's status taxonomy:
// 400 validation, 403 not-a-participant (membership failures never leak chat
// existence as 404), 404 missing entity, 500 anything else.
func writeStoreError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, store.ErrUsernameTaken),
		errors.Is(err, store.ErrEmailTaken),
		errors.Is(err, store.ErrSelfChat):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, store.ErrNotParticipant):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, store.ErrUserNotFound),
		errors.Is(err, store.ErrChatNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
