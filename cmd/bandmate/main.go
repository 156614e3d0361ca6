package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/Grimothy/BandMatev2-sub001/internal/bandmate/entity"
	"github.com/Grimothy/BandMatev2-sub001/internal/bandmate/handler"
	"github.com/Grimothy/BandMatev2-sub001/internal/bandmate/realtime"
	"github.com/Grimothy/BandMatev2-sub001/internal/bandmate/repository"
	"github.com/Grimothy/BandMatev2-sub001/internal/bandmate/service"
	"github.com/Grimothy/BandMatev2-sub001/internal/bandmate/storage"
	"github.com/Grimothy/BandMatev2-sub001/internal/config"
	"github.com/Grimothy/BandMatev2-sub001/internal/middleware"
)

// 构建时通过 -ldflags 注入
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	// 加载 .env 文件
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found, using environment variables")
	}

	// 加载配置
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 初始化日志
	zapLogger, err := initLogger(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer zapLogger.Sync()

	zapLogger.Info("Starting bandmate service",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
	)

	// 初始化数据库
	db, err := initDatabase(cfg.Database)
	if err != nil {
		zapLogger.Fatal("Failed to connect to database", zap.Error(err))
	}

	// 迁移表结构
	if err := db.AutoMigrate(
		&entity.User{},
		&entity.RefreshToken{},
		&entity.Project{},
		&entity.ProjectMember{},
		&entity.Invitation{},
		&entity.Vibe{},
		&entity.Cut{},
		&entity.CutFile{},
		&entity.Comment{},
		&entity.Activity{},
		&entity.ActivityRead{},
		&entity.ActivityDismiss{},
		&entity.Notification{},
	); err != nil {
		zapLogger.Fatal("Failed to migrate database", zap.Error(err))
	}

	// 动态流查询热点索引（AutoMigrate 不建复合索引）
	db.Exec("CREATE INDEX IF NOT EXISTS idx_activities_project_created ON activities (project_id, created_at DESC)")
	db.Exec("CREATE INDEX IF NOT EXISTS idx_notifications_recipient_read ON notifications (recipient_id, is_read)")

	// 初始化Redis
	rdb := initRedis(cfg.Redis)
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		zapLogger.Warn("Redis unreachable, OAuth state and rate limiting degraded", zap.Error(err))
	}

	// 初始化文件存储
	store, err := initStorage(cfg.Storage)
	if err != nil {
		zapLogger.Fatal("Failed to init storage", zap.Error(err))
	}

	// 初始化实时Hub与依赖
	hub := realtime.NewHub(zapLogger)
	repos := repository.NewRepositories(db)
	services := service.NewServices(repos, rdb, cfg, hub, store, zapLogger)
	handlers := handler.NewHandlers(services, repos, cfg, hub)

	// 后台清理任务
	retentionCtx, stopRetention := context.WithCancel(context.Background())
	defer stopRetention()
	retention := service.NewRetentionWorker(services, cfg.Retention, zapLogger)
	go retention.Run(retentionCtx)

	// 设置Gin模式
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	// 创建路由
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.Logger(zapLogger))
	router.Use(middleware.CORS())
	router.Use(middleware.RequestID())
	router.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/api/ws"})))

	// 注册路由
	registerRoutes(router, handlers, cfg, rdb)

	// 创建HTTP服务器
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: 0, // Disable for WebSocket long-lived connections
	}

	// 启动服务器
	go func() {
		zapLogger.Info("Server starting", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLogger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// 优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLogger.Info("Shutting down server...")
	stopRetention()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		zapLogger.Error("Server forced to shutdown", zap.Error(err))
	}

	zapLogger.Info("Server exited")
}

func initLogger(cfg config.LogConfig) (*zap.Logger, error) {
	var zapCfg zap.Config

	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}

	switch cfg.Level {
	case "debug":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "info":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	case "warn":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	}

	return zapCfg.Build()
}

func initDatabase(cfg config.DatabaseConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode,
	)

	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	}

	db, err := gorm.Open(postgres.Open(dsn), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	return db, nil
}

func initRedis(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
}

func initStorage(cfg config.StorageConfig) (storage.BlobStore, error) {
	switch cfg.Backend {
	case "minio":
		store, err := storage.NewMinioStore(cfg.Endpoint, cfg.AccessKey, cfg.SecretKey, cfg.Bucket, cfg.UseSSL)
		if err != nil {
			return nil, err
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := store.EnsureBucket(ctx); err != nil {
			return nil, err
		}
		return store, nil
	default:
		return storage.NewLocalStore(cfg.LocalDir)
	}
}

func registerRoutes(r *gin.Engine, h *handler.Handlers, cfg *config.Config, rdb *redis.Client) {
	// 健康检查
	r.GET("/health/live", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/health/ready", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// 版本信息
	r.GET("/version", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"version":    Version,
			"build_time": BuildTime,
		})
	})

	api := r.Group("/api")
	{
		// 认证 (无需登录，登录注册限流)
		auth := api.Group("/auth")
		{
			auth.POST("/register", middleware.RateLimit(rdb, 10, time.Minute), h.Auth.Register)
			auth.POST("/login", middleware.RateLimit(rdb, 10, time.Minute), h.Auth.Login)
			auth.GET("/google/login", h.Auth.GoogleLogin)
			auth.GET("/google/callback", h.Auth.GoogleCallback)
			auth.POST("/refresh", h.Auth.Refresh)
		}

		// 分享链接下载（无需登录）
		api.GET("/shared/:token", h.File.DownloadShared)

		// 需要认证的接口
		authorized := api.Group("")
		authorized.Use(middleware.JWTAuth(cfg.JWT.Secret))
		{
			authorized.POST("/auth/logout", h.Auth.Logout)
			authorized.GET("/auth/me", h.User.Me)

			// WebSocket 实时连接（支持 query param token）
			authorized.GET("/ws", h.WS.Connect)

			// 用户
			users := authorized.Group("/users")
			{
				users.GET("", h.User.List)
				users.GET("/search", h.User.Search)
				users.GET("/me", h.User.Me)
				users.PUT("/me", h.User.UpdateMe)
				users.GET("/:id", h.User.Get)
			}

			// 项目与成员
			projects := authorized.Group("/projects")
			{
				projects.GET("", h.Project.List)
				projects.POST("", h.Project.Create)
				projects.GET("/:id", h.Project.Get)
				projects.PUT("/:id", h.Project.Update)
				projects.DELETE("/:id", h.Project.Delete)
				projects.GET("/:id/members", h.Project.ListMembers)
				projects.POST("/:id/members", h.Project.AddMember)
				projects.DELETE("/:id/members/:userId", h.Project.RemoveMember)
				projects.GET("/:id/vibes", h.Vibe.ListVibes)
				projects.POST("/:id/vibes", h.Vibe.CreateVibe)
				projects.GET("/:id/invitations", h.Invitation.ListByProject)
				projects.POST("/:id/invitations", h.Invitation.Invite)
			}

			// Vibe与Cut
			vibes := authorized.Group("/vibes")
			{
				vibes.GET("/:id", h.Vibe.GetVibe)
				vibes.PUT("/:id", h.Vibe.UpdateVibe)
				vibes.DELETE("/:id", h.Vibe.DeleteVibe)
				vibes.POST("/:id/cuts", h.Vibe.CreateCut)
			}
			cuts := authorized.Group("/cuts")
			{
				cuts.GET("/:id", h.Vibe.GetCut)
				cuts.PUT("/:id", h.Vibe.UpdateCut)
				cuts.DELETE("/:id", h.Vibe.DeleteCut)
				cuts.POST("/:id/move", h.Vibe.MoveCut)
				cuts.PUT("/:id/lyrics", h.Vibe.UpdateLyrics)
				cuts.GET("/:id/files", h.File.List)
				cuts.POST("/:id/files", h.File.Upload)
				cuts.GET("/:id/comments", h.Comment.List)
				cuts.POST("/:id/comments", h.Comment.Create)
			}

			// 文件
			files := authorized.Group("/files")
			{
				files.GET("/:id/download", h.File.Download)
				files.POST("/:id/share", h.File.Share)
				files.DELETE("/:id/share", h.File.Unshare)
				files.DELETE("/:id", h.File.Delete)
			}

			// 评论
			comments := authorized.Group("/comments")
			{
				comments.PUT("/:id", h.Comment.Update)
				comments.DELETE("/:id", h.Comment.Delete)
			}

			// 邀请
			invitations := authorized.Group("/invitations")
			{
				invitations.POST("/:token/accept", h.Invitation.Accept)
				invitations.POST("/:token/decline", h.Invitation.Decline)
			}

			// 动态流
			activities := authorized.Group("/activities")
			{
				activities.GET("", h.Activity.List)
				activities.GET("/unread-count", h.Activity.UnreadCount)
				activities.PATCH("/read-all", h.Activity.MarkAllRead)
				activities.PATCH("/:id/read", h.Activity.MarkRead)
				activities.PATCH("/:id/undismiss", h.Activity.Undismiss)
				activities.DELETE("/:id", h.Activity.Dismiss)
				activities.DELETE("", h.Activity.DismissAll)
			}

			// 通知
			notifications := authorized.Group("/notifications")
			{
				notifications.GET("", h.Notification.List)
				notifications.GET("/unread-count", h.Notification.UnreadCount)
				notifications.PATCH("/read-all", h.Notification.MarkAllRead)
				notifications.PATCH("/:id/read", h.Notification.MarkRead)
				notifications.DELETE("/:id", h.Notification.Delete)
			}
		}
	}
}
