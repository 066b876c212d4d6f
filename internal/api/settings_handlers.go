package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pokerjest/aria2deck/internal/downloader"
	"github.com/pokerjest/aria2deck/internal/service"
	"github.com/pokerjest/aria2deck/internal/session"
	"github.com/rs/zerolog/log"
)

type setServerRequest struct {
	Name      string              `json:"name"`
	RPC       downloader.Endpoint `json:"rpc" binding:"required"`
	Options   *session.Options    `json:"options"`   // defaults to session.DefaultOptions()
	IgnoreDir *bool               `json:"ignoreDir"` // defaults to true
}

type profileView struct {
	Name    string          `json:"name"`
	RPC     rpcView         `json:"rpc"`
	Options session.Options `json:"options"`
}

func (h *handlers) GetOptionsHandler(c *gin.Context) {
	c.JSON(http.StatusOK, h.Session.Options())
}

// SetServerHandler reconfigures the session, stores the result as the active profile and
// pushes the options to the daemon. Tasks are not resynced here.
func (h *handlers) SetServerHandler(c *gin.Context) {
	var req setServerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if req.RPC.Address == "" || req.RPC.Port <= 0 || req.RPC.Port > 65535 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "rpc address and port are required"})
		return
	}
	opts := session.DefaultOptions()
	if req.Options != nil {
		opts = *req.Options
	}
	// 校验失败时会话和已保存的配置都不改变
	if err := opts.Validate(); err != nil {
		badRequest(c, err)
		return
	}
	ignoreDir := true
	if req.IgnoreDir != nil {
		ignoreDir = *req.IgnoreDir
	}

	pushErr := h.Session.SetServer(c.Request.Context(), req.Name, req.RPC, opts, ignoreDir)

	// 本地配置已经替换，无论推送是否成功都保存
	snap := h.Session.Snapshot()
	if h.Profiles != nil {
		profile := service.ToProfile(snap.Name, snap.RPC, snap.Options)
		if err := h.Profiles.Save(&profile); err != nil {
			log.Error().Err(err).Str("profile", snap.Name).Msg("Error saving profile")
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		if err := h.Profiles.Activate(snap.Name); err != nil {
			log.Error().Err(err).Str("profile", snap.Name).Msg("Error activating profile")
		}
	}

	if pushErr != nil {
		daemonError(c, pushErr)
		return
	}
	c.JSON(http.StatusOK, profileView{Name: snap.Name, RPC: viewRPC(snap.RPC), Options: snap.Options})
}

func (h *handlers) ListProfilesHandler(c *gin.Context) {
	profiles, err := h.Profiles.List()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	views := make([]profileView, 0, len(profiles))
	for _, p := range profiles {
		name, ep, opts := service.FromProfile(p)
		views = append(views, profileView{Name: name, RPC: viewRPC(ep), Options: opts})
	}
	c.JSON(http.StatusOK, views)
}
