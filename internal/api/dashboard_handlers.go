package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/pokerjest/aria2deck/internal/session"
	"github.com/pokerjest/aria2deck/internal/worker"
	"github.com/rs/zerolog/log"
)

type StatusData struct {
	Name         string  `json:"name"`
	RPC          rpcView `json:"rpc"`
	Connected    bool    `json:"connected"`
	Downloading  bool    `json:"downloading"`
	ActiveNumber int     `json:"activeNumber"`
}

// StatusHandler answers from the cached state; it never calls the daemon.
func (h *handlers) StatusHandler(c *gin.Context) {
	s := h.Session
	c.JSON(http.StatusOK, StatusData{
		Name:         s.Name(),
		RPC:          viewRPC(s.RPC()),
		Connected:    s.Connected(),
		Downloading:  s.IsDownloading(),
		ActiveNumber: s.ActiveNumber(),
	})
}

func filterTasks(tasks []session.Task, q string) []session.Task {
	out := make([]session.Task, 0, len(tasks))
	for _, t := range tasks {
		if fuzzy.MatchFold(q, t.Name) {
			out = append(out, t)
		}
	}
	return out
}

// ListTasksHandler returns the cached buckets, optionally fuzzy-filtered by name with ?q=.
func (h *handlers) ListTasksHandler(c *gin.Context) {
	tasks := h.Session.Tasks()
	if q := strings.TrimSpace(c.Query("q")); q != "" {
		tasks = session.Buckets{
			Active:  filterTasks(tasks.Active, q),
			Waiting: filterTasks(tasks.Waiting, q),
			Paused:  filterTasks(tasks.Paused, q),
			Stopped: filterTasks(tasks.Stopped, q),
		}
	}
	c.JSON(http.StatusOK, tasks)
}

// SyncHandler refreshes tasks and options right away instead of waiting for the scheduler.
func (h *handlers) SyncHandler(c *gin.Context) {
	ctx := c.Request.Context()
	if err := h.Session.SyncTasks(ctx); err != nil {
		daemonError(c, err)
		return
	}
	if err := h.Session.SyncOptions(ctx); err != nil {
		daemonError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.Session.Tasks())
}

func (h *handlers) HistoryHandler(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "100"))
	if err != nil || limit < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
		return
	}
	logs, err := worker.History(h.DB, limit)
	if err != nil {
		log.Error().Err(err).Msg("Error fetching history")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, logs)
}
