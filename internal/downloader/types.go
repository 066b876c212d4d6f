package downloader

import (
	"fmt"
	"net"
	"strconv"
)

// Endpoint describes where the aria2 JSON-RPC interface listens.
type Endpoint struct {
	Address string `json:"address" mapstructure:"address"`
	Port    int    `json:"port" mapstructure:"port"`
	Token   string `json:"token" mapstructure:"token"`
	HTTPS   bool   `json:"httpsEnabled" mapstructure:"https"`
}

// DefaultEndpoint returns the endpoint of a locally started aria2c with no secret.
func DefaultEndpoint() Endpoint {
	return Endpoint{Address: "127.0.0.1", Port: 6800}
}

// URL returns the JSON-RPC URL for the endpoint.
func (e Endpoint) URL() string {
	scheme := "http"
	if e.HTTPS {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s/jsonrpc", scheme, net.JoinHostPort(e.Address, strconv.Itoa(e.Port)))
}

// Status is the response of aria2.tellStatus and the tell* list methods.
// aria2 serializes every number as a string.
type Status struct {
	Gid             string      `json:"gid"`
	Status          string      `json:"status"` // active, waiting, paused, error, complete, removed
	TotalLength     string      `json:"totalLength"`
	CompletedLength string      `json:"completedLength"`
	UploadLength    string      `json:"uploadLength"`
	DownloadSpeed   string      `json:"downloadSpeed"`
	UploadSpeed     string      `json:"uploadSpeed"`
	Connections     string      `json:"connections"`
	InfoHash        string      `json:"infoHash,omitempty"`
	ErrorCode       string      `json:"errorCode,omitempty"`
	ErrorMessage    string      `json:"errorMessage,omitempty"`
	Dir             string      `json:"dir"`
	Files           []File      `json:"files"`
	BitTorrent      *BitTorrent `json:"bittorrent,omitempty"` // BitTorrent downloads only
}

// File is an element of Status.Files.
type File struct {
	Index           string `json:"index"`
	Path            string `json:"path"`
	Length          string `json:"length"`
	CompletedLength string `json:"completedLength"`
	Selected        string `json:"selected"`
	URIs            []URI  `json:"uris,omitempty"`
}

type URI struct {
	URI    string `json:"uri"`
	Status string `json:"status"` // used or waiting
}

// BitTorrent carries the torrent metadata. Info is nil until the metadata of a magnet link is known.
type BitTorrent struct {
	AnnounceList [][]string      `json:"announceList,omitempty"`
	Comment      string          `json:"comment,omitempty"`
	CreationDate int64           `json:"creationDate,omitempty"`
	Mode         string          `json:"mode,omitempty"` // single or multi
	Info         *BitTorrentInfo `json:"info,omitempty"`
}

type BitTorrentInfo struct {
	Name string `json:"name"`
}

// Version is the response of aria2.getVersion.
type Version struct {
	Version         string   `json:"version"`
	EnabledFeatures []string `json:"enabledFeatures"`
}

// Method is an element of the system.multicall parameter list.
type Method struct {
	Name   string        `json:"methodName"`
	Params []interface{} `json:"params"`
}

// RPCError is a fault reported by the daemon.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("aria2 error %d: %s", e.Code, e.Message)
}
