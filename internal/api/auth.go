package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/larkin-dev/chatline/internal/auth"
	"github.com/larkin-dev/chatline/internal/models"
	"github.com/larkin-dev/chatline/internal/store"
)

// AuthHandler handles registration and login
type AuthHandler struct {
	Store store.Store
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(s store.Store) *AuthHandler {
	return &AuthHandler{Store: s}
}

// Register handles user registration
func (h *AuthHandler) Register(c *gin.Context) {
	var input models.UserRegistration

	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	hashedPassword, err := auth.HashPassword(input.Password)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process password"})
		return
	}

	user, err := h.Store.CreateUser(c.Request.Context(), input.Username, input.Email, hashedPassword)
	if err != nil {
		writeStoreError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"user_id": user.ID,
		"message": "Registration successful",
	})
}

// Login verifies credentials and issues a session token
func (h *AuthHandler) Login(c *gin.Context) {
	var input models.UserLogin

	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.Store.GetUserByUsername(c.Request.Context(), input.Username)
	if errors.Is(err, store.ErrUserNotFound) {
		// Same response for unknown user and wrong password.
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid username or password"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve user"})
		return
	}

	if !auth.CheckPasswordHash(input.Password, user.PasswordHash) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid username or password"})
		return
	}

	if !user.IsActive {
		c.JSON(http.StatusForbidden, gin.H{"error": "Account is disabled"})
		return
	}

	token, expiry, err := auth.GenerateToken(user)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"access_token": token,
		"token_type":   "bearer",
		"expiry":       expiry,
		"user":         user.ToResponse(),
	})
}
