package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Grimothy/BandMatev2-sub001/internal/bandmate/entity"
	"github.com/Grimothy/BandMatev2-sub001/internal/bandmate/realtime"
	"github.com/Grimothy/BandMatev2-sub001/internal/bandmate/repository"
	"github.com/Grimothy/BandMatev2-sub001/internal/bandmate/testutil"
)

type fakeSender struct {
	sent []string // recipient emails
	fail bool
}

func (f *fakeSender) SendNotificationEmail(to, title, message, link string) error {
	if f.fail {
		return errors.New("smtp down")
	}
	f.sent = append(f.sent, to)
	return nil
}

func setupNotificationService(t *testing.T) (*NotificationService, *realtime.Hub, *fakeSender, *gorm.DB) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	repos := repository.NewRepositories(db)
	hub := realtime.NewHub(zap.NewNop())
	sender := &fakeSender{}
	svc := NewNotificationService(repos.Notification, repos.User, hub, sender, zap.NewNop())
	return svc, hub, sender, db
}

// connect registers a fake live connection for the user.
func connect(hub *realtime.Hub, userID string) *realtime.Client {
	c := realtime.NewClient(hub, nil, userID, false, nil)
	hub.Register(c)
	return c
}

func TestNotifyOfflineFallsBackToEmail(t *testing.T) {
	svc, _, sender, db := setupNotificationService(t)
	ctx := context.Background()

	testutil.SeedUser(t, db, "u1", "User One", entity.RoleMember)

	n, err := svc.Notify(ctx, &NotifyRequest{
		RecipientID: "u1",
		Title:       "New reply",
		Message:     "Someone replied to your comment",
	})
	if err != nil {
		t.Fatalf("notify: %v", err)
	}
	if len(sender.sent) != 1 || sender.sent[0] != "u1@test.com" {
		t.Fatalf("expected email fallback for offline recipient, sent=%v", sender.sent)
	}
	if !n.EmailSent {
		t.Fatal("notification should be flagged email_sent")
	}

	var stored entity.Notification
	if err := db.First(&stored, "id = ?", n.ID).Error; err != nil {
		t.Fatalf("load notification: %v", err)
	}
	if !stored.EmailSent {
		t.Fatal("email_sent flag should be persisted")
	}
}

func TestNotifyOnlineSkipsEmail(t *testing.T) {
	svc, hub, sender, db := setupNotificationService(t)
	ctx := context.Background()

	testutil.SeedUser(t, db, "u1", "User One", entity.RoleMember)
	connect(hub, "u1")

	if _, err := svc.Notify(ctx, &NotifyRequest{RecipientID: "u1", Title: "Hello"}); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if len(sender.sent) != 0 {
		t.Fatalf("online delivery should not trigger email, sent=%v", sender.sent)
	}
}

func TestNotifyForceEmailAlwaysSends(t *testing.T) {
	svc, hub, sender, db := setupNotificationService(t)
	ctx := context.Background()

	testutil.SeedUser(t, db, "u1", "User One", entity.RoleMember)
	connect(hub, "u1")

	if _, err := svc.Notify(ctx, &NotifyRequest{
		RecipientID: "u1",
		Title:       "Added to project",
		ForceEmail:  true,
	}); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if len(sender.sent) != 1 {
		t.Fatalf("force email should send even when online, sent=%v", sender.sent)
	}
}

func TestNotifyEmailFailureStillPersists(t *testing.T) {
	svc, _, sender, db := setupNotificationService(t)
	ctx := context.Background()
	sender.fail = true

	testutil.SeedUser(t, db, "u1", "User One", entity.RoleMember)

	n, err := svc.Notify(ctx, &NotifyRequest{RecipientID: "u1", Title: "Hello"})
	if err != nil {
		t.Fatalf("email failure must not fail the notify call: %v", err)
	}
	if n.EmailSent {
		t.Fatal("failed email must not set email_sent")
	}

	var count int64
	db.Model(&entity.Notification{}).Where("recipient_id = ?", "u1").Count(&count)
	if count != 1 {
		t.Fatal("notification should be persisted regardless of email outcome")
	}
}

func TestNotifyRejectsUnknownType(t *testing.T) {
	svc, _, _, db := setupNotificationService(t)
	testutil.SeedUser(t, db, "u1", "User One", entity.RoleMember)

	_, err := svc.Notify(context.Background(), &NotifyRequest{
		RecipientID: "u1",
		Type:        "SHOUT",
		Title:       "Hello",
	})
	if !errors.Is(err, ErrInvalid) {
		t.Fatalf("expected ErrInvalid, got %v", err)
	}
}

func TestNotificationReadLifecycle(t *testing.T) {
	svc, _, _, db := setupNotificationService(t)
	ctx := context.Background()

	testutil.SeedUser(t, db, "u1", "User One", entity.RoleMember)
	testutil.SeedUser(t, db, "u2", "User Two", entity.RoleMember)

	var ids []string
	for i := 0; i < 3; i++ {
		n, err := svc.Notify(ctx, &NotifyRequest{RecipientID: "u1", Title: "Hello"})
		if err != nil {
			t.Fatalf("notify: %v", err)
		}
		ids = append(ids, n.ID)
	}

	if n, _ := svc.UnreadCount(ctx, "u1"); n != 3 {
		t.Fatalf("expected 3 unread, got %d", n)
	}

	// Another user cannot touch u1's notifications.
	if err := svc.MarkRead(ctx, ids[0], "u2"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("foreign mark read should be not-found, got %v", err)
	}
	if err := svc.Delete(ctx, ids[0], "u2"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("foreign delete should be not-found, got %v", err)
	}

	if err := svc.MarkRead(ctx, ids[0], "u1"); err != nil {
		t.Fatalf("mark read: %v", err)
	}
	if n, _ := svc.UnreadCount(ctx, "u1"); n != 2 {
		t.Fatalf("expected 2 unread after read, got %d", n)
	}

	items, total, err := svc.List(ctx, "u1", true, 10, 0)
	if err != nil {
		t.Fatalf("list unread: %v", err)
	}
	if total != 2 || len(items) != 2 {
		t.Fatalf("unread filter: got %d/%d", len(items), total)
	}

	marked, err := svc.MarkAllRead(ctx, "u1")
	if err != nil || marked != 2 {
		t.Fatalf("mark all read: marked=%d err=%v", marked, err)
	}

	if err := svc.Delete(ctx, ids[0], "u1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, total, _ := svc.List(ctx, "u1", false, 10, 0); total != 2 {
		t.Fatalf("expected 2 notifications after delete, got %d", total)
	}
}

func TestNotificationCleanupKeepsUnread(t *testing.T) {
	svc, _, _, db := setupNotificationService(t)
	ctx := context.Background()

	testutil.SeedUser(t, db, "u1", "User One", entity.RoleMember)

	read, err := svc.Notify(ctx, &NotifyRequest{RecipientID: "u1", Title: "old read"})
	if err != nil {
		t.Fatalf("notify: %v", err)
	}
	if _, err := svc.Notify(ctx, &NotifyRequest{RecipientID: "u1", Title: "old unread"}); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if err := svc.MarkRead(ctx, read.ID, "u1"); err != nil {
		t.Fatalf("mark read: %v", err)
	}

	db.Model(&entity.Notification{}).Where("recipient_id = ?", "u1").
		Update("created_at", gorm.Expr("now() - interval '60 days'"))

	deleted, err := svc.CleanupReadOlderThan(ctx, 30*24*time.Hour)
	if err != nil || deleted != 1 {
		t.Fatalf("cleanup: deleted=%d err=%v", deleted, err)
	}

	var count int64
	db.Model(&entity.Notification{}).Where("recipient_id = ?", "u1").Count(&count)
	if count != 1 {
		t.Fatalf("unread notification must survive cleanup, remaining=%d", count)
	}
}

func TestNotifyManyPartialFailure(t *testing.T) {
	svc, _, _, db := setupNotificationService(t)
	ctx := context.Background()

	testutil.SeedUser(t, db, "u1", "User One", entity.RoleMember)
	testutil.SeedUser(t, db, "u2", "User Two", entity.RoleMember)

	// The middle recipient overflows the 32-char id column and fails
	// its insert; the surrounding recipients still get their rows.
	bad := strings.Repeat("x", 40)
	err := svc.NotifyMany(ctx, []string{"u1", bad, "u2"}, &NotifyRequest{
		Title:   "Session tonight",
		Message: "Studio booked at 8pm",
	})
	if err != nil {
		t.Fatalf("notify many: %v", err)
	}

	var total int64
	db.Model(&entity.Notification{}).Count(&total)
	if total != 2 {
		t.Fatalf("expected 2 notifications, got %d", total)
	}
	for _, id := range []string{"u1", "u2"} {
		var count int64
		db.Model(&entity.Notification{}).Where("recipient_id = ?", id).Count(&count)
		if count != 1 {
			t.Fatalf("expected a row for %s, got %d", id, count)
		}
	}
}
