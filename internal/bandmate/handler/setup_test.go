package handler

import (
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Grimothy/BandMatev2-sub001/internal/bandmate/realtime"
	"github.com/Grimothy/BandMatev2-sub001/internal/bandmate/repository"
	"github.com/Grimothy/BandMatev2-sub001/internal/bandmate/service"
	"github.com/Grimothy/BandMatev2-sub001/internal/bandmate/storage"
	"github.com/Grimothy/BandMatev2-sub001/internal/bandmate/testutil"
	"github.com/Grimothy/BandMatev2-sub001/internal/config"
)

// setupAPI builds the full API surface against an isolated test schema.
func setupAPI(t *testing.T) (*gin.Engine, *gorm.DB, *realtime.Hub) {
	t.Helper()
	db := testutil.SetupTestDB(t)

	cfg := &config.Config{}
	cfg.Server.BaseURL = "http://localhost:8080"
	cfg.JWT.Secret = testutil.JWTSecret
	cfg.JWT.AccessTokenExpire = time.Hour
	cfg.JWT.RefreshTokenExpire = 24 * time.Hour
	cfg.JWT.Issuer = "bandmate"
	cfg.Storage.MaxUpload = 64 << 20

	store, err := storage.NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("local store: %v", err)
	}

	hub := realtime.NewHub(zap.NewNop())
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:6379"})
	repos := repository.NewRepositories(db)
	services := service.NewServices(repos, rdb, cfg, hub, store, zap.NewNop())
	handlers := NewHandlers(services, repos, cfg, hub)

	router := testutil.SetupRouter()
	api := testutil.AuthGroup(router, "/api")

	projects := api.Group("/projects")
	{
		projects.GET("", handlers.Project.List)
		projects.POST("", handlers.Project.Create)
		projects.GET("/:id", handlers.Project.Get)
		projects.PUT("/:id", handlers.Project.Update)
		projects.DELETE("/:id", handlers.Project.Delete)
		projects.GET("/:id/members", handlers.Project.ListMembers)
		projects.POST("/:id/members", handlers.Project.AddMember)
		projects.DELETE("/:id/members/:userId", handlers.Project.RemoveMember)
		projects.GET("/:id/vibes", handlers.Vibe.ListVibes)
		projects.POST("/:id/vibes", handlers.Vibe.CreateVibe)
	}
	vibes := api.Group("/vibes")
	{
		vibes.GET("/:id", handlers.Vibe.GetVibe)
		vibes.PUT("/:id", handlers.Vibe.UpdateVibe)
		vibes.DELETE("/:id", handlers.Vibe.DeleteVibe)
		vibes.POST("/:id/cuts", handlers.Vibe.CreateCut)
	}
	cuts := api.Group("/cuts")
	{
		cuts.GET("/:id", handlers.Vibe.GetCut)
		cuts.PUT("/:id", handlers.Vibe.UpdateCut)
		cuts.DELETE("/:id", handlers.Vibe.DeleteCut)
		cuts.POST("/:id/move", handlers.Vibe.MoveCut)
		cuts.PUT("/:id/lyrics", handlers.Vibe.UpdateLyrics)
		cuts.GET("/:id/comments", handlers.Comment.List)
		cuts.POST("/:id/comments", handlers.Comment.Create)
		cuts.GET("/:id/files", handlers.File.List)
		cuts.POST("/:id/files", handlers.File.Upload)
	}
	files := api.Group("/files")
	{
		files.GET("/:id/download", handlers.File.Download)
		files.POST("/:id/share", handlers.File.Share)
		files.DELETE("/:id/share", handlers.File.Unshare)
		files.DELETE("/:id", handlers.File.Delete)
	}
	router.GET("/api/shared/:token", handlers.File.DownloadShared)
	comments := api.Group("/comments")
	{
		comments.PUT("/:id", handlers.Comment.Update)
		comments.DELETE("/:id", handlers.Comment.Delete)
	}
	activities := api.Group("/activities")
	{
		activities.GET("", handlers.Activity.List)
		activities.GET("/unread-count", handlers.Activity.UnreadCount)
		activities.PATCH("/read-all", handlers.Activity.MarkAllRead)
		activities.PATCH("/:id/read", handlers.Activity.MarkRead)
		activities.PATCH("/:id/undismiss", handlers.Activity.Undismiss)
		activities.DELETE("/:id", handlers.Activity.Dismiss)
		activities.DELETE("", handlers.Activity.DismissAll)
	}
	notifications := api.Group("/notifications")
	{
		notifications.GET("", handlers.Notification.List)
		notifications.GET("/unread-count", handlers.Notification.UnreadCount)
		notifications.PATCH("/read-all", handlers.Notification.MarkAllRead)
		notifications.PATCH("/:id/read", handlers.Notification.MarkRead)
		notifications.DELETE("/:id", handlers.Notification.Delete)
	}

	return router, db, hub
}
