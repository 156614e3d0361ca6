package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/Grimothy/BandMatev2-sub001/internal/bandmate/realtime"
	"github.com/Grimothy/BandMatev2-sub001/internal/bandmate/repository"
)

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Browser clients connect from arbitrary origins behind the reverse
	// proxy; auth happens via JWT before the upgrade.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// WSHandler upgrades authenticated requests to realtime connections.
type WSHandler struct {
	hub         *realtime.Hub
	projectRepo *repository.ProjectRepository
}

func NewWSHandler(hub *realtime.Hub, projectRepo *repository.ProjectRepository) *WSHandler {
	return &WSHandler{hub: hub, projectRepo: projectRepo}
}

// Connect 建立WebSocket连接
// GET /api/ws
func (h *WSHandler) Connect(c *gin.Context) {
	userID := GetUserID(c)
	isAdmin := GetUserRole(c).IsAdmin()

	conn, err := wsUpgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade already wrote the error response.
		return
	}

	// The request context dies once this handler returns, but join checks
	// happen for the lifetime of the connection.
	canJoin := func(projectID string) bool {
		if isAdmin {
			return true
		}
		ok, err := h.projectRepo.IsMember(context.Background(), projectID, userID)
		return err == nil && ok
	}

	client := realtime.NewClient(h.hub, conn, userID, isAdmin, canJoin)
	client.Start()

	// Admin connections receive every project event through the hub's
	// admin set, no explicit rooms needed.
	if !isAdmin {
		ids, err := h.projectRepo.ListProjectIDs(c.Request.Context(), userID)
		if err == nil {
			for _, projectID := range ids {
				h.hub.JoinRoom(client, projectID)
			}
		}
	}
}
