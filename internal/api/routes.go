package api

import (
	"github.com/gin-gonic/gin"
	"github.com/pokerjest/aria2deck/internal/event"
	"github.com/pokerjest/aria2deck/internal/service"
	"github.com/pokerjest/aria2deck/internal/session"
	"gorm.io/gorm"
)

// Deps are the collaborators the handlers work against.
type Deps struct {
	Session  *session.Session
	Profiles *service.ProfileStore
	DB       *gorm.DB
	Bus      event.Bus
}

type handlers struct {
	*Deps
}

func InitRoutes(r *gin.Engine, d *Deps) {
	h := &handlers{Deps: d}

	r.Use(RequestLogger())

	apiGroup := r.Group("/api")
	{
		apiGroup.GET("/status", h.StatusHandler)
		apiGroup.POST("/sync", h.SyncHandler)
		apiGroup.GET("/events", h.SSEHandler)

		// Tasks
		apiGroup.GET("/tasks", h.ListTasksHandler)
		apiGroup.POST("/tasks/add/uri", h.AddURIHandler)
		apiGroup.POST("/tasks/add/torrent", h.AddTorrentHandler)
		apiGroup.POST("/tasks/add/metalink", h.AddMetalinkHandler)
		apiGroup.POST("/tasks/status/:method", h.ChangeTaskStatusHandler)
		apiGroup.POST("/tasks/purge", h.PurgeTasksHandler)
		apiGroup.GET("/history", h.HistoryHandler)

		// Settings
		apiGroup.GET("/options", h.GetOptionsHandler)
		apiGroup.PUT("/server", h.SetServerHandler)
		apiGroup.GET("/profiles", h.ListProfilesHandler)
	}
}
