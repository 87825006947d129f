package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/larkin-dev/chatline/internal/blob"
	"github.com/larkin-dev/chatline/internal/models"
	"github.com/larkin-dev/chatline/internal/store"
)

const searchLimit = 20

// allowedAvatarTypes restricts avatar uploads to images.
var allowedAvatarTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

// UserHandler handles user search, profiles and avatar upload
type UserHandler struct {
	Store store.Store
	Blobs *blob.Store
}

// NewUserHandler creates a new user handler
func NewUserHandler(s store.Store, b *blob.Store) *UserHandler {
	return &UserHandler{Store: s, Blobs: b}
}

// Search returns up to 20 active users matching the query, excluding the
// searching user
func (h *UserHandler) Search(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	query := c.Query("q")
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Query parameter 'q' is required"})
		return
	}

	users, err := h.Store.SearchUsers(c.Request.Context(), query, userID, searchLimit)
	if err != nil {
		writeStoreError(c, err)
		return
	}

	results := make([]*models.UserResponse, 0, len(users))
	for _, u := range users {
		results = append(results, u.ToResponse())
	}

	c.JSON(http.StatusOK, results)
}

// GetMe returns the authenticated user's profile
func (h *UserHandler) GetMe(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	user, err := h.Store.GetUserByID(c.Request.Context(), userID)
	if err != nil {
		writeStoreError(c, err)
		return
	}

	c.JSON(http.StatusOK, user.ToResponse())
}

// GetByID returns another user's profile. Inactive users are reported as
// not found.
func (h *UserHandler) GetByID(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
		return
	}

	user, err := h.Store.GetUserByID(c.Request.Context(), id)
	if errors.Is(err, store.ErrUserNotFound) || (err == nil && !user.IsActive) {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}
	if err != nil {
		writeStoreError(c, err)
		return
	}

	c.JSON(http.StatusOK, user.ToResponse())
}

// UploadAvatar stores an image blob and points the user's profile at it.
// The blob is durable before the profile row references it.
func (h *UserHandler) UploadAvatar(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Image file is required"})
		return
	}

	if !allowedAvatarTypes[file.Header.Get("Content-Type")] {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid file type. Only images are allowed"})
		return
	}

	src, err := file.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read uploaded file"})
		return
	}
	defer src.Close()

	path, err := h.Blobs.Save(src, fmt.Sprintf("avatar_%d_", userID), file.Filename)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store avatar"})
		return
	}

	if err := h.Store.UpdateAvatar(c.Request.Context(), userID, path); err != nil {
		writeStoreError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"avatar_path": path,
		"message":     "Avatar uploaded successfully",
	})
}
