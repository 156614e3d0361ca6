package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/Grimothy/BandMatev2-sub001/internal/config"
)

// RetentionWorker 周期清理过期活动、已读通知和失效refresh token
type RetentionWorker struct {
	services *Services
	cfg      config.RetentionConfig
	logger   *zap.Logger
}

// NewRetentionWorker 创建清理worker
func NewRetentionWorker(services *Services, cfg config.RetentionConfig, logger *zap.Logger) *RetentionWorker {
	return &RetentionWorker{
		services: services,
		cfg:      cfg,
		logger:   logger,
	}
}

// Run 阻塞运行直到ctx取消，启动时先跑一轮
func (w *RetentionWorker) Run(ctx context.Context) {
	w.sweep(ctx)

	ticker := time.NewTicker(w.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

func (w *RetentionWorker) sweep(ctx context.Context) {
	if w.cfg.ActivityMaxAge > 0 {
		if _, err := w.services.Activity.CleanupOlderThan(ctx, w.cfg.ActivityMaxAge); err != nil {
			w.logger.Error("activity cleanup failed", zap.Error(err))
		}
	}
	if w.cfg.NotificationMaxAge > 0 {
		if _, err := w.services.Notification.CleanupReadOlderThan(ctx, w.cfg.NotificationMaxAge); err != nil {
			w.logger.Error("notification cleanup failed", zap.Error(err))
		}
	}
	if _, err := w.services.Auth.CleanupExpiredTokens(ctx); err != nil {
		w.logger.Error("refresh token cleanup failed", zap.Error(err))
	}
}
