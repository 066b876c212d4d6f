package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pokerjest/aria2deck/internal/downloader"
	"github.com/pokerjest/aria2deck/internal/session"
)

// rpcView is an endpoint with the secret masked.
type rpcView struct {
	Address  string `json:"address"`
	Port     int    `json:"port"`
	HasToken bool   `json:"hasToken"`
	HTTPS    bool   `json:"httpsEnabled"`
}

func viewRPC(ep downloader.Endpoint) rpcView {
	return rpcView{Address: ep.Address, Port: ep.Port, HasToken: ep.Token != "", HTTPS: ep.HTTPS}
}

// daemonError answers with 502 for anything that went wrong talking to aria2.
func daemonError(c *gin.Context, err error) {
	body := gin.H{"error": err.Error()}
	var rpcErr *downloader.RPCError
	if errors.As(err, &rpcErr) {
		body["code"] = rpcErr.Code
	}
	var decodeErr *session.DecodeError
	if errors.As(err, &decodeErr) {
		body["field"] = decodeErr.Field
	}
	c.JSON(http.StatusBadGateway, body)
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}
