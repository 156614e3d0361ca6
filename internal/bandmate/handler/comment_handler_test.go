package handler

import (
	"net/http"
	"testing"

	"github.com/Grimothy/BandMatev2-sub001/internal/bandmate/entity"
	"github.com/Grimothy/BandMatev2-sub001/internal/bandmate/testutil"
)

func TestCommentCreateAndThread(t *testing.T) {
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
	cut := createCut(t, router, ownerToken, vibe["id"].(string), "Take 1")
	cutID := cut["id"].(string)

	w = testutil.DoRequest(router, "POST", "/api/cuts/"+cutID+"/comments",
		map[string]interface{}{"body": "Love the bridge", "timestamp": 42.5}, ownerToken)
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", w.Code, w.Body.String())
	}
	top := testutil.ParseResponse(w)["data"].(map[string]interface{})
	topID := top["id"].(string)

	// Reply from the other member.
	w = testutil.DoRequest(router, "POST", "/api/cuts/"+cutID+"/comments",
		map[string]interface{}{"body": "Agreed", "parent_id": topID}, testutil.MemberToken("u2"))
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected 201 for reply, got %d: %s", w.Code, w.Body.String())
	}
	reply := testutil.ParseResponse(w)["data"].(map[string]interface{})

	// Replying to a reply flattens to the top-level parent.
	w = testutil.DoRequest(router, "POST", "/api/cuts/"+cutID+"/comments",
		map[string]interface{}{"body": "Same", "parent_id": reply["id"]}, ownerToken)
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", w.Code, w.Body.String())
	}
	nested := testutil.ParseResponse(w)["data"].(map[string]interface{})
	if nested["parent_id"] != topID {
		t.Errorf("reply to a reply should attach to the top-level comment, got parent %v", nested["parent_id"])
	}

	w = testutil.DoRequest(router, "GET", "/api/cuts/"+cutID+"/comments", nil, ownerToken)
	data := testutil.ParseResponse(w)["data"].(map[string]interface{})
	items := data["items"].([]interface{})
	if len(items) != 1 {
		t.Fatalf("expected 1 top-level comment, got %d", len(items))
	}
	thread := items[0].(map[string]interface{})
	if replies := thread["replies"].([]interface{}); len(replies) != 2 {
		t.Errorf("expected 2 replies under the thread, got %d", len(replies))
	}
}

func TestCommentUpdateAuthorOnly(t *testing.T) {
	router, db, _ := setupAPI(t)
	testutil.SeedUser(t, db, "u1", "User One", entity.RoleMember)
	testutil.SeedUser(t, db, "u2", "User Two", entity.RoleMember)
	ownerToken := testutil.MemberToken("u1")

	project := createProject(t, router, ownerToken, "Album")
	projectID := project["id"].(string)
	testutil.DoRequest(router, "POST", "/api/projects/"+projectID+"/members",
		map[string]string{"user_id": "u2"}, ownerToken)

	vibe := createVibe(t, router, ownerToken, projectID, "Groove")
	cut := createCut(t, router, ownerToken, vibe["id"].(string), "Take 1")

	w := testutil.DoRequest(router, "POST", "/api/cuts/"+cut["id"].(string)+"/comments",
		map[string]string{"body": "original"}, testutil.MemberToken("u2"))
	comment := testutil.ParseResponse(w)["data"].(map[string]interface{})
	commentID := comment["id"].(string)

	// Not the author: project owner still may not edit.
	w = testutil.DoRequest(router, "PUT", "/api/comments/"+commentID,
		map[string]string{"body": "hijacked"}, ownerToken)
	if w.Code != http.StatusForbidden {
		t.Fatalf("Expected 403, got %d: %s", w.Code, w.Body.String())
	}

	w = testutil.DoRequest(router, "PUT", "/api/comments/"+commentID,
		map[string]string{"body": "edited"}, testutil.MemberToken("u2"))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	updated := testutil.ParseResponse(w)["data"].(map[string]interface{})
	if updated["body"] != "edited" {
		t.Errorf("Expected edited body, got %v", updated["body"])
	}
}

func TestCommentDeleteCascadesReplies(t *testing.T) {
	router, db, _ := setupAPI(t)
	testutil.SeedUser(t, db, "u1", "User One", entity.RoleMember)
	ownerToken := testutil.MemberToken("u1")

	project := createProject(t, router, ownerToken, "Album")
	vibe := createVibe(t, router, ownerToken, project["id"].(string), "Groove")
	cut := createCut(t, router, ownerToken, vibe["id"].(string), "Take 1")
	cutID := cut["id"].(string)

	w := testutil.DoRequest(router, "POST", "/api/cuts/"+cutID+"/comments",
		map[string]string{"body": "top"}, ownerToken)
	top := testutil.ParseResponse(w)["data"].(map[string]interface{})
	topID := top["id"].(string)
	testutil.DoRequest(router, "POST", "/api/cuts/"+cutID+"/comments",
		map[string]interface{}{"body": "reply", "parent_id": topID}, ownerToken)

	w = testutil.DoRequest(router, "DELETE", "/api/comments/"+topID, nil, ownerToken)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var count int64
	db.Model(&entity.Comment{}).Where("cut_id = ?", cutID).Count(&count)
	if count != 0 {
		t.Fatalf("deleting a thread should remove its replies, %d rows left", count)
	}
}
