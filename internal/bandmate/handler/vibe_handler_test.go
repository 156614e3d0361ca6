package handler

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/Grimothy/BandMatev2-sub001/internal/bandmate/entity"
	"github.com/Grimothy/BandMatev2-sub001/internal/bandmate/testutil"
)

func createVibe(t *testing.T, router *gin.Engine, token, projectID, name string) map[string]interface{} {
	t.Helper()
	w := testutil.DoRequest(router, "POST", "/api/projects/"+projectID+"/vibes",
		map[string]string{"name": name}, token)
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", w.Code, w.Body.String())
	}
	return testutil.ParseResponse(w)["data"].(map[string]interface{})
}

func createCut(t *testing.T, router *gin.Engine, token, vibeID, name string) map[string]interface{} {
	t.Helper()
	w := testutil.DoRequest(router, "POST", "/api/vibes/"+vibeID+"/cuts",
		map[string]string{"name": name}, token)
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", w.Code, w.Body.String())
	}
	return testutil.ParseResponse(w)["data"].(map[string]interface{})
}

func TestVibeCreateAndList(t *testing.T) {
	router, db, _ := setupAPI(t)
	testutil.SeedUser(t, db, "u1", "User One", entity.RoleMember)
	token := testutil.MemberToken("u1")

	project := createProject(t, router, token, "Album")
	projectID := project["id"].(string)

	vibe := createVibe(t, router, token, projectID, "Chill Groove")
	if vibe["slug"] != "chill-groove" {
		t.Errorf("Expected slug 'chill-groove', got %v", vibe["slug"])
	}

	// Same name in the same project gets a suffixed slug.
	dup := createVibe(t, router, token, projectID, "Chill Groove")
	if dup["slug"] == vibe["slug"] {
		t.Error("duplicate vibe name should get a distinct slug")
	}

	w := testutil.DoRequest(router, "GET", "/api/projects/"+projectID+"/vibes", nil, token)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	data := testutil.ParseResponse(w)["data"].(map[string]interface{})
	if items := data["items"].([]interface{}); len(items) != 2 {
		t.Errorf("expected 2 vibes, got %d", len(items))
	}
}

func TestCutSequenceAssignment(t *testing.T) {
	router, db, _ := setupAPI(t)
	testutil.SeedUser(t, db, "u1", "User One", entity.RoleMember)
	token := testutil.MemberToken("u1")

	project := createProject(t, router, token, "Album")
	vibe := createVibe(t, router, token, project["id"].(string), "Groove")
	vibeID := vibe["id"].(string)

	first := createCut(t, router, token, vibeID, "Take 1")
	second := createCut(t, router, token, vibeID, "Take 2")

	if first["sequence"].(float64) >= second["sequence"].(float64) {
		t.Errorf("cut sequences should increase: %v then %v", first["sequence"], second["sequence"])
	}
}

func TestCutLyrics(t *testing.T) {
	router, db, _ := setupAPI(t)
	testutil.SeedUser(t, db, "u1", "User One", entity.RoleMember)
	token := testutil.MemberToken("u1")

	project := createProject(t, router, token, "Album")
	vibe := createVibe(t, router, token, project["id"].(string), "Groove")
	cut := createCut(t, router, token, vibe["id"].(string), "Take 1")
	cutID := cut["id"].(string)

	w := testutil.DoRequest(router, "PUT", "/api/cuts/"+cutID+"/lyrics",
		map[string]string{"lyrics": "la la la"}, token)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	w = testutil.DoRequest(router, "GET", "/api/cuts/"+cutID, nil, token)
	data := testutil.ParseResponse(w)["data"].(map[string]interface{})
	if data["lyrics"] != "la la la" {
		t.Errorf("Expected lyrics to persist, got %v", data["lyrics"])
	}
}

func TestCutMoveWithinProject(t *testing.T) {
	router, db, _ := setupAPI(t)
	testutil.SeedUser(t, db, "u1", "User One", entity.RoleMember)
	token := testutil.MemberToken("u1")

	project := createProject(t, router, token, "Album")
	projectID := project["id"].(string)
	src := createVibe(t, router, token, projectID, "Source")
	dst := createVibe(t, router, token, projectID, "Target")
	cut := createCut(t, router, token, src["id"].(string), "Take 1")
	cutID := cut["id"].(string)

	w := testutil.DoRequest(router, "POST", "/api/cuts/"+cutID+"/move",
		map[string]string{"to_vibe_id": dst["id"].(string)}, token)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	data := testutil.ParseResponse(w)["data"].(map[string]interface{})
	if data["vibe_id"] != dst["id"] {
		t.Errorf("cut should now live in target vibe, got %v", data["vibe_id"])
	}
}

func TestCutMoveAcrossProjectsRejected(t *testing.T) {
	router, db, _ := setupAPI(t)
	testutil.SeedUser(t, db, "u1", "User One", entity.RoleMember)
	token := testutil.MemberToken("u1")

	p1 := createProject(t, router, token, "Album A")
	p2 := createProject(t, router, token, "Album B")
	src := createVibe(t, router, token, p1["id"].(string), "Source")
	foreign := createVibe(t, router, token, p2["id"].(string), "Elsewhere")
	cut := createCut(t, router, token, src["id"].(string), "Take 1")

	w := testutil.DoRequest(router, "POST", "/api/cuts/"+cut["id"].(string)+"/move",
		map[string]string{"to_vibe_id": foreign["id"].(string)}, token)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400 for cross-project move, got %d: %s", w.Code, w.Body.String())
	}
}

func TestVibeDeleteOnlyCreatorOrOwner(t *testing.T) {
	router, db, _ := setupAPI(t)
	testutil.SeedUser(t, db, "u1", "User One", entity.RoleMember)
	testutil.SeedUser(t, db, "u2", "User Two", entity.RoleMember)
	ownerToken := testutil.MemberToken("u1")

	project := createProject(t, router, ownerToken, "Album")
	projectID := project["id"].(string)
	w := testutil.DoRequest(router, "POST", "/api/projects/"+projectID+"/members",
		map[string]string{"user_id": "u2"}, ownerToken)
	if w.Code != http.StatusCreated {
		t.Fatalf("add member: %d", w.Code)
	}

	vibe := createVibe(t, router, ownerToken, projectID, "Groove")
	vibeID := vibe["id"].(string)

	w = testutil.DoRequest(router, "DELETE", "/api/vibes/"+vibeID, nil, testutil.MemberToken("u2"))
	if w.Code != http.StatusForbidden {
		t.Fatalf("Expected 403 for plain member delete, got %d: %s", w.Code, w.Body.String())
	}

	w = testutil.DoRequest(router, "DELETE", "/api/vibes/"+vibeID, nil, ownerToken)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	w = testutil.DoRequest(router, "GET", "/api/vibes/"+vibeID, nil, ownerToken)
	if w.Code != http.StatusNotFound {
		t.Fatalf("Expected 404 after delete, got %d: %s", w.Code, w.Body.String())
	}
}
