package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/larkin-dev/chatline/internal/api"
	"github.com/larkin-dev/chatline/internal/auth"
	"github.com/larkin-dev/chatline/internal/blob"
	"github.com/larkin-dev/chatline/internal/config"
	"github.com/larkin-dev/chatline/internal/logger"
	"github.com/larkin-dev/chatline/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.New("main").WithError(err).Fatal("invalid configuration")
	}

	logger.Init(cfg.LogLevel, cfg.LogJSON)
	log := logger.New("main")

	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	auth.InitJWTKey([]byte(cfg.JWTSecret))

	db, err := store.NewPostgres(cfg.DatabaseURL)
	if err != nil {
		log.WithError(err).Fatal("failed to connect to database")
	}
	defer db.Close()
	log.Info("connected to database, schema up to date")

	blobs, err := blob.New(cfg.UploadDir)
	if err != nil {
		log.WithError(err).Fatal("failed to prepare upload directory")
	}

	router := gin.Default()

	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	authHandler := api.NewAuthHandler(db)
	userHandler := api.NewUserHandler(db, blobs)
	chatHandler := api.NewChatHandler(db)
	messageHandler := api.NewMessageHandler(db, blobs, cfg.MarkReadOnList)

	// Uploaded blobs (attachments, avatars) are served statically.
	router.Static("/uploads", blobs.Dir())

	// Public routes
	router.POST("/api/register", authHandler.Register)
	router.POST("/api/login", authHandler.Login)
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "service": "messenger-api"})
	})

	// Protected routes
	authorized := router.Group("/api")
	authorized.Use(api.AuthMiddleware())
	{
		authorized.GET("/users/search", userHandler.Search)
		authorized.GET("/users/me", userHandler.GetMe)
		authorized.GET("/users/:id", userHandler.GetByID)
		authorized.POST("/users/avatar", userHandler.UploadAvatar)

		authorized.POST("/chats/private", chatHandler.CreatePrivate)
		authorized.POST("/chats/group", chatHandler.CreateGroup)
		authorized.GET("/chats", chatHandler.List)
		authorized.GET("/chats/:id/messages", messageHandler.ListChatMessages)

		authorized.POST("/messages", messageHandler.Send)
	}

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Infof("server starting on port %s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.WithError(err).Fatal("server forced to shutdown")
	}

	log.Info("server exited properly")
}
