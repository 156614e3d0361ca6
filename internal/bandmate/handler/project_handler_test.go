package handler

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/Grimothy/BandMatev2-sub001/internal/bandmate/entity"
	"github.com/Grimothy/BandMatev2-sub001/internal/bandmate/testutil"
)

func createProject(t *testing.T, router *gin.Engine, token, name string) map[string]interface{} {
	t.Helper()
	w := testutil.DoRequest(router, "POST", "/api/projects", map[string]string{"name": name}, token)
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", w.Code, w.Body.String())
	}
	resp := testutil.ParseResponse(w)
	return resp["data"].(map[string]interface{})
}

func TestProjectCreate(t *testing.T) {
	router, db, _ := setupAPI(t)
	testutil.SeedUser(t, db, "u1", "User One", entity.RoleMember)
	token := testutil.MemberToken("u1")

	project := createProject(t, router, token, "Summer EP")

	if project["id"] == nil || project["id"] == "" {
		t.Error("Expected non-empty id")
	}
	if project["name"] != "Summer EP" {
		t.Errorf("Expected name 'Summer EP', got %v", project["name"])
	}
	if project["slug"] != "summer-ep" {
		t.Errorf("Expected slug 'summer-ep', got %v", project["slug"])
	}
	if project["owner_id"] != "u1" {
		t.Errorf("Expected owner u1, got %v", project["owner_id"])
	}
}

func TestProjectListScopedToMembership(t *testing.T) {
	router, db, _ := setupAPI(t)
	testutil.SeedUser(t, db, "u1", "User One", entity.RoleMember)
	testutil.SeedUser(t, db, "u2", "User Two", entity.RoleMember)
	testutil.SeedUser(t, db, "admin", "Admin", entity.RoleAdmin)

	createProject(t, router, testutil.MemberToken("u1"), "Mine")
	createProject(t, router, testutil.MemberToken("u2"), "Theirs")

	w := testutil.DoRequest(router, "GET", "/api/projects", nil, testutil.MemberToken("u1"))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	data := testutil.ParseResponse(w)["data"].(map[string]interface{})
	if total := data["total"].(float64); total != 1 {
		t.Errorf("member should see only own projects, got total %v", total)
	}

	// Global admin sees everything.
	w = testutil.DoRequest(router, "GET", "/api/projects", nil, testutil.AdminToken("admin"))
	data = testutil.ParseResponse(w)["data"].(map[string]interface{})
	if total := data["total"].(float64); total != 2 {
		t.Errorf("admin should see all projects, got total %v", total)
	}
}

func TestProjectGetDeniedForOutsider(t *testing.T) {
	router, db, _ := setupAPI(t)
	testutil.SeedUser(t, db, "u1", "User One", entity.RoleMember)
	testutil.SeedUser(t, db, "u2", "User Two", entity.RoleMember)

	project := createProject(t, router, testutil.MemberToken("u1"), "Private")
	id := project["id"].(string)

	w := testutil.DoRequest(router, "GET", "/api/projects/"+id, nil, testutil.MemberToken("u2"))
	if w.Code != http.StatusForbidden {
		t.Fatalf("Expected 403, got %d: %s", w.Code, w.Body.String())
	}
}

func TestProjectMembers(t *testing.T) {
	router, db, _ := setupAPI(t)
	testutil.SeedUser(t, db, "u1", "User One", entity.RoleMember)
	testutil.SeedUser(t, db, "u2", "User Two", entity.RoleMember)
	ownerToken := testutil.MemberToken("u1")

	project := createProject(t, router, ownerToken, "Band")
	id := project["id"].(string)

	w := testutil.DoRequest(router, "POST", "/api/projects/"+id+"/members",
		map[string]string{"user_id": "u2"}, ownerToken)
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", w.Code, w.Body.String())
	}

	// Adding twice conflicts.
	w = testutil.DoRequest(router, "POST", "/api/projects/"+id+"/members",
		map[string]string{"user_id": "u2"}, ownerToken)
	if w.Code != http.StatusConflict {
		t.Fatalf("Expected 409 on duplicate member, got %d: %s", w.Code, w.Body.String())
	}

	w = testutil.DoRequest(router, "GET", "/api/projects/"+id+"/members", nil, ownerToken)
	data := testutil.ParseResponse(w)["data"].(map[string]interface{})
	if items := data["items"].([]interface{}); len(items) != 2 {
		t.Errorf("expected 2 members, got %d", len(items))
	}

	// The owner cannot be removed.
	w = testutil.DoRequest(router, "DELETE", "/api/projects/"+id+"/members/u1", nil, ownerToken)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400 removing owner, got %d: %s", w.Code, w.Body.String())
	}

	// A member may leave on their own.
	w = testutil.DoRequest(router, "DELETE", "/api/projects/"+id+"/members/u2", nil, testutil.MemberToken("u2"))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
}

func TestProjectDeleteOwnerOnly(t *testing.T) {
	router, db, _ := setupAPI(t)
	testutil.SeedUser(t, db, "u1", "User One", entity.RoleMember)
	testutil.SeedUser(t, db, "u2", "User Two", entity.RoleMember)
	ownerToken := testutil.MemberToken("u1")

	project := createProject(t, router, ownerToken, "Doomed")
	id := project["id"].(string)

	w := testutil.DoRequest(router, "POST", "/api/projects/"+id+"/members",
		map[string]string{"user_id": "u2"}, ownerToken)
	if w.Code != http.StatusCreated {
		t.Fatalf("add member: %d", w.Code)
	}

	w = testutil.DoRequest(router, "DELETE", "/api/projects/"+id, nil, testutil.MemberToken("u2"))
	if w.Code != http.StatusForbidden {
		t.Fatalf("Expected 403 for non-owner delete, got %d: %s", w.Code, w.Body.String())
	}

	w = testutil.DoRequest(router, "DELETE", "/api/projects/"+id, nil, ownerToken)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	w = testutil.DoRequest(router, "GET", "/api/projects/"+id, nil, ownerToken)
	if w.Code != http.StatusNotFound {
		t.Fatalf("Expected 404 after delete, got %d: %s", w.Code, w.Body.String())
	}
}
