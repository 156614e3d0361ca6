package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/gorm"

	"github.com/Grimothy/BandMatev2-sub001/internal/bandmate/entity"
	"github.com/Grimothy/BandMatev2-sub001/internal/bandmate/realtime"
	"github.com/Grimothy/BandMatev2-sub001/internal/bandmate/repository"
	"github.com/Grimothy/BandMatev2-sub001/internal/bandmate/testutil"
)

func setupActivityService(t *testing.T) (*ActivityService, *repository.Repositories, *gorm.DB) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	repos := repository.NewRepositories(db)
	hub := realtime.NewHub(zap.NewNop())
	svc := NewActivityService(repos.Activity, repos.Project, hub, zap.NewNop())
	return svc, repos, db
}

func recordActivity(t *testing.T, svc *ActivityService, actorID, projectID string) *entity.Activity {
	t.Helper()
	a, err := svc.Record(context.Background(), actorID, projectID,
		entity.VibeCreatedMeta{VibeName: "demo", ProjectName: "p"}, "/projects/"+projectID)
	if err != nil {
		t.Fatalf("record activity: %v", err)
	}
	return a
}

func TestActivityVisibilityFollowsMembership(t *testing.T) {
	svc, _, db := setupActivityService(t)
	ctx := context.Background()

	testutil.SeedUser(t, db, "owner", "Owner", entity.RoleMember)
	testutil.SeedUser(t, db, "member", "Member", entity.RoleMember)
	testutil.SeedUser(t, db, "outsider", "Outsider", entity.RoleMember)
	testutil.SeedUser(t, db, "admin", "Admin", entity.RoleAdmin)
	testutil.SeedProject(t, db, "p1", "Project One", "owner")
	testutil.SeedMember(t, db, "p1", "member")

	recordActivity(t, svc, "owner", "p1")

	for _, tc := range []struct {
		userID string
		role   entity.Role
		want   int
	}{
		{"member", entity.RoleMember, 1},
		{"outsider", entity.RoleMember, 0},
		{"admin", entity.RoleAdmin, 1},
	} {
		items, total, err := svc.List(ctx, tc.userID, tc.role, repository.ActivityFilter{Limit: 10})
		if err != nil {
			t.Fatalf("list for %s: %v", tc.userID, err)
		}
		if len(items) != tc.want || total != int64(tc.want) {
			t.Errorf("%s: got %d items (total %d), want %d", tc.userID, len(items), total, tc.want)
		}
	}
}

func TestActivityNonMemberProjectFilterReturnsEmpty(t *testing.T) {
	svc, _, db := setupActivityService(t)
	ctx := context.Background()

	testutil.SeedUser(t, db, "owner", "Owner", entity.RoleMember)
	testutil.SeedUser(t, db, "outsider", "Outsider", entity.RoleMember)
	testutil.SeedProject(t, db, "p1", "Project One", "owner")
	recordActivity(t, svc, "owner", "p1")

	items, total, err := svc.List(ctx, "outsider", entity.RoleMember,
		repository.ActivityFilter{ProjectID: "p1", Limit: 10})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != 0 || total != 0 {
		t.Fatalf("non-member filtering by project should get an empty page, got %d/%d", len(items), total)
	}
}

func TestActivityMarkReadIdempotent(t *testing.T) {
	svc, _, db := setupActivityService(t)
	ctx := context.Background()

	testutil.SeedUser(t, db, "owner", "Owner", entity.RoleMember)
	testutil.SeedProject(t, db, "p1", "Project One", "owner")
	a := recordActivity(t, svc, "owner", "p1")

	if n, err := svc.UnreadCount(ctx, "owner", entity.RoleMember); err != nil || n != 1 {
		t.Fatalf("unread count before read: %d, %v", n, err)
	}

	if err := svc.MarkRead(ctx, a.ID, "owner", entity.RoleMember); err != nil {
		t.Fatalf("mark read: %v", err)
	}
	// Second mark is a no-op, not an error.
	if err := svc.MarkRead(ctx, a.ID, "owner", entity.RoleMember); err != nil {
		t.Fatalf("repeat mark read: %v", err)
	}

	if n, err := svc.UnreadCount(ctx, "owner", entity.RoleMember); err != nil || n != 0 {
		t.Fatalf("unread count after read: %d, %v", n, err)
	}

	items, _, err := svc.List(ctx, "owner", entity.RoleMember, repository.ActivityFilter{Limit: 10})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != 1 || !items[0].IsRead {
		t.Fatal("listed activity should carry is_read=true")
	}
}

func TestActivityMarkReadDeniedForOutsider(t *testing.T) {
	svc, _, db := setupActivityService(t)
	ctx := context.Background()

	testutil.SeedUser(t, db, "owner", "Owner", entity.RoleMember)
	testutil.SeedUser(t, db, "outsider", "Outsider", entity.RoleMember)
	testutil.SeedProject(t, db, "p1", "Project One", "owner")
	a := recordActivity(t, svc, "owner", "p1")

	err := svc.MarkRead(ctx, a.ID, "outsider", entity.RoleMember)
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestActivityMarkAllRead(t *testing.T) {
	svc, _, db := setupActivityService(t)
	ctx := context.Background()

	testutil.SeedUser(t, db, "owner", "Owner", entity.RoleMember)
	testutil.SeedProject(t, db, "p1", "Project One", "owner")
	for i := 0; i < 3; i++ {
		recordActivity(t, svc, "owner", "p1")
	}

	marked, err := svc.MarkAllRead(ctx, "owner", entity.RoleMember)
	if err != nil || marked != 3 {
		t.Fatalf("mark all read: marked=%d err=%v", marked, err)
	}

	// Everything already read: second sweep marks nothing.
	marked, err = svc.MarkAllRead(ctx, "owner", entity.RoleMember)
	if err != nil || marked != 0 {
		t.Fatalf("repeat mark all read: marked=%d err=%v", marked, err)
	}
}

func TestActivityDismissAndUndismiss(t *testing.T) {
	svc, _, db := setupActivityService(t)
	ctx := context.Background()

	testutil.SeedUser(t, db, "owner", "Owner", entity.RoleMember)
	testutil.SeedProject(t, db, "p1", "Project One", "owner")
	a := recordActivity(t, svc, "owner", "p1")

	if err := svc.MarkRead(ctx, a.ID, "owner", entity.RoleMember); err != nil {
		t.Fatalf("mark read: %v", err)
	}
	if err := svc.Dismiss(ctx, a.ID, "owner", entity.RoleMember); err != nil {
		t.Fatalf("dismiss: %v", err)
	}

	items, total, err := svc.List(ctx, "owner", entity.RoleMember, repository.ActivityFilter{Limit: 10})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != 0 || total != 0 {
		t.Fatal("dismissed activity must not appear in the feed")
	}
	if n, _ := svc.UnreadCount(ctx, "owner", entity.RoleMember); n != 0 {
		t.Fatal("dismissed activity must not count as unread")
	}

	if err := svc.Undismiss(ctx, a.ID, "owner"); err != nil {
		t.Fatalf("undismiss: %v", err)
	}
	items, _, err = svc.List(ctx, "owner", entity.RoleMember, repository.ActivityFilter{Limit: 10})
	if err != nil {
		t.Fatalf("list after undismiss: %v", err)
	}
	if len(items) != 1 {
		t.Fatal("undismissed activity should reappear")
	}
	// Read state survives the dismiss round-trip.
	if !items[0].IsRead {
		t.Fatal("read mark should survive dismiss and undismiss")
	}

	// Undismissing an activity that was never dismissed is a not-found.
	err = svc.Undismiss(ctx, a.ID, "owner")
	if !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestActivityDismissIsPerUser(t *testing.T) {
	svc, _, db := setupActivityService(t)
	ctx := context.Background()

	testutil.SeedUser(t, db, "owner", "Owner", entity.RoleMember)
	testutil.SeedUser(t, db, "member", "Member", entity.RoleMember)
	testutil.SeedProject(t, db, "p1", "Project One", "owner")
	testutil.SeedMember(t, db, "p1", "member")
	a := recordActivity(t, svc, "owner", "p1")

	if err := svc.Dismiss(ctx, a.ID, "owner", entity.RoleMember); err != nil {
		t.Fatalf("dismiss: %v", err)
	}

	items, _, err := svc.List(ctx, "member", entity.RoleMember, repository.ActivityFilter{Limit: 10})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != 1 {
		t.Fatal("one user's dismissal must not hide the activity from others")
	}
}

func TestActivityDismissAll(t *testing.T) {
	svc, _, db := setupActivityService(t)
	ctx := context.Background()

	testutil.SeedUser(t, db, "owner", "Owner", entity.RoleMember)
	testutil.SeedProject(t, db, "p1", "Project One", "owner")
	for i := 0; i < 4; i++ {
		recordActivity(t, svc, "owner", "p1")
	}

	dismissed, err := svc.DismissAll(ctx, "owner", entity.RoleMember)
	if err != nil || dismissed != 4 {
		t.Fatalf("dismiss all: dismissed=%d err=%v", dismissed, err)
	}
	if _, total, _ := svc.List(ctx, "owner", entity.RoleMember, repository.ActivityFilter{Limit: 10}); total != 0 {
		t.Fatal("feed should be empty after dismiss all")
	}
}

func TestActivityReadStateSurvivesMembershipChange(t *testing.T) {
	svc, _, db := setupActivityService(t)
	ctx := context.Background()

	testutil.SeedUser(t, db, "owner", "Owner", entity.RoleMember)
	testutil.SeedUser(t, db, "member", "Member", entity.RoleMember)
	testutil.SeedProject(t, db, "p1", "Project One", "owner")
	testutil.SeedMember(t, db, "p1", "member")
	a := recordActivity(t, svc, "owner", "p1")

	if err := svc.MarkRead(ctx, a.ID, "member", entity.RoleMember); err != nil {
		t.Fatalf("mark read: %v", err)
	}

	// Remove and re-add: visibility is computed live, read marks stay.
	db.Where("project_id = ? AND user_id = ?", "p1", "member").Delete(&entity.ProjectMember{})
	if _, total, _ := svc.List(ctx, "member", entity.RoleMember, repository.ActivityFilter{Limit: 10}); total != 0 {
		t.Fatal("removed member should no longer see project activity")
	}

	testutil.SeedMember(t, db, "p1", "member")
	items, _, err := svc.List(ctx, "member", entity.RoleMember, repository.ActivityFilter{Limit: 10})
	if err != nil {
		t.Fatalf("list after re-add: %v", err)
	}
	if len(items) != 1 || !items[0].IsRead {
		t.Fatal("read mark should survive removal and re-add")
	}
}

func TestActivityPagination(t *testing.T) {
	svc, _, db := setupActivityService(t)
	ctx := context.Background()

	testutil.SeedUser(t, db, "owner", "Owner", entity.RoleMember)
	testutil.SeedProject(t, db, "p1", "Project One", "owner")
	for i := 0; i < 5; i++ {
		recordActivity(t, svc, "owner", "p1")
	}

	seen := make(map[string]bool)
	for offset := 0; offset < 5; offset += 2 {
		items, total, err := svc.List(ctx, "owner", entity.RoleMember,
			repository.ActivityFilter{Limit: 2, Offset: offset})
		if err != nil {
			t.Fatalf("list offset %d: %v", offset, err)
		}
		if total != 5 {
			t.Fatalf("expected total 5, got %d", total)
		}
		for _, a := range items {
			if seen[a.ID] {
				t.Fatalf("activity %s appeared on two pages", a.ID)
			}
			seen[a.ID] = true
		}
	}
	if len(seen) != 5 {
		t.Fatalf("pages should cover all 5 activities, covered %d", len(seen))
	}
}

func TestActivityUnreadFilter(t *testing.T) {
	svc, _, db := setupActivityService(t)
	ctx := context.Background()

	testutil.SeedUser(t, db, "owner", "Owner", entity.RoleMember)
	testutil.SeedProject(t, db, "p1", "Project One", "owner")
	var ids []string
	for i := 0; i < 3; i++ {
		ids = append(ids, recordActivity(t, svc, "owner", "p1").ID)
	}
	if err := svc.MarkRead(ctx, ids[0], "owner", entity.RoleMember); err != nil {
		t.Fatalf("mark read: %v", err)
	}

	items, total, err := svc.List(ctx, "owner", entity.RoleMember,
		repository.ActivityFilter{Unread: true, Limit: 10})
	if err != nil {
		t.Fatalf("list unread: %v", err)
	}
	if total != 2 || len(items) != 2 {
		t.Fatalf("expected 2 unread, got %d/%d", len(items), total)
	}
	for _, a := range items {
		if a.ID == ids[0] {
			t.Fatal("read activity leaked into unread filter")
		}
	}
}

func TestActivityCleanupOlderThan(t *testing.T) {
	svc, _, db := setupActivityService(t)
	ctx := context.Background()

	testutil.SeedUser(t, db, "owner", "Owner", entity.RoleMember)
	testutil.SeedProject(t, db, "p1", "Project One", "owner")
	a := recordActivity(t, svc, "owner", "p1")
	if err := svc.MarkRead(ctx, a.ID, "owner", entity.RoleMember); err != nil {
		t.Fatalf("mark read: %v", err)
	}

	// Age the row past the cutoff.
	db.Model(&entity.Activity{}).Where("id = ?", a.ID).
		Update("created_at", gorm.Expr("now() - interval '48 hours'"))

	deleted, err := svc.CleanupOlderThan(ctx, 24*time.Hour)
	if err != nil || deleted != 1 {
		t.Fatalf("cleanup: deleted=%d err=%v", deleted, err)
	}

	// Read marks go with the activity.
	var marks int64
	db.Model(&entity.ActivityRead{}).Where("activity_id = ?", a.ID).Count(&marks)
	if marks != 0 {
		t.Fatalf("expected read marks to be cascaded, found %d", marks)
	}
}

func TestRecordFailureIsLogged(t *testing.T) {
	_, repos, db := setupActivityService(t)
	testutil.SeedUser(t, db, "owner", "Owner", entity.RoleMember)
	testutil.SeedProject(t, db, "p1", "Project One", "owner")

	core, logs := observer.New(zap.WarnLevel)
	hub := realtime.NewHub(zap.NewNop())
	svc := NewActivityService(repos.Activity, repos.Project, hub, zap.New(core))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := svc.Record(ctx, "owner", "p1",
		entity.VibeCreatedMeta{VibeName: "demo", ProjectName: "p"}, "/projects/p1"); err == nil {
		t.Fatal("expected an error from the canceled context")
	}
	if logs.FilterMessage("record activity failed").Len() != 1 {
		t.Fatalf("expected one failure log entry, got %d entries", logs.Len())
	}
}
