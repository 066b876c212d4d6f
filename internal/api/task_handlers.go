package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pokerjest/aria2deck/internal/session"
)

type addURIRequest struct {
	URIs    []string `json:"uris" binding:"required,min=1"`
	Seeding bool     `json:"seeding"`
}

type gidsRequest struct {
	GIDs []string `json:"gids" binding:"required,min=1"`
}

func (h *handlers) AddURIHandler(c *gin.Context) {
	var req addURIRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	gid, err := h.Session.AddURI(c.Request.Context(), req.URIs, req.Seeding)
	if err != nil {
		daemonError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"gid": gid})
}

// readUpload returns the multipart "file" field and the "seeding" flag.
func readUpload(c *gin.Context) ([]byte, bool, error) {
	fh, err := c.FormFile("file")
	if err != nil {
		return nil, false, err
	}
	f, err := fh.Open()
	if err != nil {
		return nil, false, err
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, false, err
	}
	if len(data) == 0 {
		return nil, false, errors.New("uploaded file is empty")
	}
	return data, c.PostForm("seeding") == "true", nil
}

func (h *handlers) AddTorrentHandler(c *gin.Context) {
	data, seeding, err := readUpload(c)
	if err != nil {
		badRequest(c, err)
		return
	}

	gid, err := h.Session.AddTorrent(c.Request.Context(), data, seeding)
	if err != nil {
		daemonError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"gid": gid})
}

func (h *handlers) AddMetalinkHandler(c *gin.Context) {
	data, seeding, err := readUpload(c)
	if err != nil {
		badRequest(c, err)
		return
	}

	gids, err := h.Session.AddMetalink(c.Request.Context(), data, seeding)
	if err != nil {
		daemonError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"gids": gids})
}

func (h *handlers) ChangeTaskStatusHandler(c *gin.Context) {
	method := c.Param("method")
	switch method {
	case session.MethodPause, session.MethodUnpause, session.MethodRemove:
	default:
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown method " + method})
		return
	}

	var req gidsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := h.Session.ChangeTaskStatus(c.Request.Context(), method, req.GIDs); err != nil {
		daemonError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *handlers) PurgeTasksHandler(c *gin.Context) {
	var req gidsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := h.Session.PurgeTasks(c.Request.Context(), req.GIDs); err != nil {
		daemonError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
