package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/pokerjest/aria2deck/internal/db"
	"github.com/pokerjest/aria2deck/internal/downloader"
	"github.com/pokerjest/aria2deck/internal/event"
	"github.com/pokerjest/aria2deck/internal/model"
	"github.com/pokerjest/aria2deck/internal/service"
	"github.com/pokerjest/aria2deck/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubDaemon is an in-process downloader.Handler.
type stubDaemon struct {
	mu       sync.Mutex
	ep       downloader.Endpoint
	active   []downloader.Status
	options  map[string]string
	changed  map[string]string
	paused   []string
	torrent  []byte
	failWith error
}

func (d *stubDaemon) AddURI(context.Context, []string, map[string]string) (string, error) {
	return "gid-uri", d.failWith
}
func (d *stubDaemon) AddTorrent(_ context.Context, t []byte, _ map[string]string) (string, error) {
	d.mu.Lock()
	d.torrent = t
	d.mu.Unlock()
	return "gid-torrent", d.failWith
}
func (d *stubDaemon) AddMetalink(context.Context, []byte, map[string]string) ([]string, error) {
	return []string{"gid-m1", "gid-m2"}, d.failWith
}
func (d *stubDaemon) Pause(_ context.Context, gids []string) error {
	d.mu.Lock()
	d.paused = append(d.paused, gids...)
	d.mu.Unlock()
	return d.failWith
}
func (d *stubDaemon) Unpause(context.Context, []string) error              { return d.failWith }
func (d *stubDaemon) Remove(context.Context, []string) error               { return d.failWith }
func (d *stubDaemon) RemoveDownloadResult(context.Context, []string) error { return d.failWith }
func (d *stubDaemon) TellActive(context.Context) ([]downloader.Status, error) {
	return d.active, d.failWith
}
func (d *stubDaemon) TellWaiting(context.Context) ([]downloader.Status, error) {
	return nil, d.failWith
}
func (d *stubDaemon) TellStopped(context.Context) ([]downloader.Status, error) {
	return nil, d.failWith
}
func (d *stubDaemon) GetGlobalOption(context.Context) (map[string]string, error) {
	return d.options, d.failWith
}
func (d *stubDaemon) ChangeGlobalOption(_ context.Context, o map[string]string) error {
	d.mu.Lock()
	d.changed = o
	d.mu.Unlock()
	return d.failWith
}
func (d *stubDaemon) GetVersion(context.Context) (downloader.Version, error) {
	return downloader.Version{Version: "1.37.0"}, d.failWith
}
func (d *stubDaemon) SetRPC(ep downloader.Endpoint) { d.ep = ep }
func (d *stubDaemon) Endpoint() downloader.Endpoint { return d.ep }

func activeTask(gid, name string) downloader.Status {
	return downloader.Status{
		Gid:             gid,
		Status:          "active",
		TotalLength:     "100",
		CompletedLength: "10",
		UploadLength:    "0",
		DownloadSpeed:   "5",
		UploadSpeed:     "0",
		Connections:     "1",
		Dir:             "/dl",
		Files:           []downloader.File{{Index: "1", Path: "/dl/" + name, Length: "100"}},
	}
}

func setupRouter(t *testing.T, daemon *stubDaemon) (*gin.Engine, *Deps) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	conn, err := db.Open(filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := conn.DB(); err == nil {
			sqlDB.Close()
		}
	})

	bus := event.NewInMemoryBus()
	d := &Deps{
		Session:  session.New("nas", downloader.Endpoint{Address: "nas.local", Port: 6800, Token: "secret"}, session.DefaultOptions(), session.WithHandler(daemon), session.WithBus(bus)),
		Profiles: service.NewProfileStore(conn),
		DB:       conn,
		Bus:      bus,
	}
	r := gin.New()
	InitRoutes(r, d)
	return r, d
}

func doJSON(r *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req, _ := http.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestStatusHandler_MasksToken(t *testing.T) {
	r, _ := setupRouter(t, &stubDaemon{})

	w := doJSON(r, "GET", "/api/status", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "secret")

	var resp StatusData
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "nas", resp.Name)
	assert.True(t, resp.RPC.HasToken)
	assert.False(t, resp.Downloading)
}

func TestSyncAndListTasks(t *testing.T) {
	daemon := &stubDaemon{
		active: []downloader.Status{
			activeTask("a1", "ubuntu-24.04.iso"),
			activeTask("a2", "debian-12.iso"),
		},
		options: map[string]string{
			"dir":                        "/dl",
			"max-concurrent-downloads":   "3",
			"max-overall-download-limit": "0",
			"max-overall-upload-limit":   "1024",
		},
	}
	r, d := setupRouter(t, daemon)

	w := doJSON(r, "POST", "/api/sync", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 2, d.Session.ActiveNumber())
	assert.Equal(t, 3, d.Session.Options().MaxConcurrentDownloads)

	w = doJSON(r, "GET", "/api/tasks?q=ubnt", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var buckets session.Buckets
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &buckets))
	require.Len(t, buckets.Active, 1)
	assert.Equal(t, "ubuntu-24.04.iso", buckets.Active[0].Name)
	assert.Empty(t, buckets.Waiting)
}

func TestSync_DaemonError(t *testing.T) {
	daemon := &stubDaemon{failWith: &downloader.RPCError{Code: 1, Message: "Unauthorized"}}
	r, _ := setupRouter(t, daemon)

	w := doJSON(r, "POST", "/api/sync", nil)
	assert.Equal(t, http.StatusBadGateway, w.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.EqualValues(t, 1, body["code"])
}

func TestAddURIHandler(t *testing.T) {
	r, _ := setupRouter(t, &stubDaemon{})

	w := doJSON(r, "POST", "/api/tasks/add/uri", gin.H{"uris": []string{"http://example.com/a.iso"}})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "gid-uri")

	w = doJSON(r, "POST", "/api/tasks/add/uri", gin.H{"uris": []string{}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAddTorrentHandler_Multipart(t *testing.T) {
	daemon := &stubDaemon{}
	r, _ := setupRouter(t, daemon)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "a.torrent")
	require.NoError(t, err)
	_, _ = fw.Write([]byte("d4:infod4:name1:aee"))
	require.NoError(t, mw.WriteField("seeding", "true"))
	require.NoError(t, mw.Close())

	req, _ := http.NewRequest("POST", "/api/tasks/add/torrent", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "gid-torrent")
	assert.Equal(t, []byte("d4:infod4:name1:aee"), daemon.torrent)

	// 没有文件字段
	w = doJSON(r, "POST", "/api/tasks/add/torrent", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestChangeTaskStatusHandler(t *testing.T) {
	daemon := &stubDaemon{}
	r, _ := setupRouter(t, daemon)

	w := doJSON(r, "POST", "/api/tasks/status/pause", gin.H{"gids": []string{"a1", "a2"}})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"a1", "a2"}, daemon.paused)

	w = doJSON(r, "POST", "/api/tasks/status/explode", gin.H{"gids": []string{"a1"}})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(r, "POST", "/api/tasks/status/pause", gin.H{"gids": []string{}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPurgeTasksHandler_Error(t *testing.T) {
	daemon := &stubDaemon{failWith: errors.New("connection refused")}
	r, _ := setupRouter(t, daemon)

	w := doJSON(r, "POST", "/api/tasks/purge", gin.H{"gids": []string{"s1"}})
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, w.Body.String(), "connection refused")
}

func TestSetServerHandler_PersistsProfile(t *testing.T) {
	daemon := &stubDaemon{}
	r, d := setupRouter(t, daemon)

	w := doJSON(r, "PUT", "/api/server", gin.H{
		"name":    "laptop",
		"rpc":     gin.H{"address": "10.0.0.2", "port": 6801, "token": "tok"},
		"options": gin.H{"dir": "/ignored", "max-concurrent-downloads": 2},
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "tok\"")

	assert.Equal(t, "laptop", d.Session.Name())
	assert.Equal(t, "10.0.0.2", daemon.Endpoint().Address)
	assert.Equal(t, "2", daemon.changed["max-concurrent-downloads"])
	assert.NotContains(t, daemon.changed, "dir")

	active, err := d.Profiles.Active()
	require.NoError(t, err)
	assert.Equal(t, "laptop", active.Name)
	assert.Equal(t, 6801, active.Port)

	w = doJSON(r, "GET", "/api/profiles", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "laptop")
}

func TestSetServerHandler_Validation(t *testing.T) {
	r, _ := setupRouter(t, &stubDaemon{})

	w := doJSON(r, "PUT", "/api/server", gin.H{"rpc": gin.H{"address": "", "port": 6800}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSetServerHandler_OmittedOptionsUseDefaults(t *testing.T) {
	daemon := &stubDaemon{}
	r, d := setupRouter(t, daemon)

	w := doJSON(r, "PUT", "/api/server", gin.H{
		"name": "laptop",
		"rpc":  gin.H{"address": "10.0.0.2", "port": 6801},
	})
	require.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, session.DefaultOptions(), d.Session.Options())
	assert.Equal(t, "5", daemon.changed["max-concurrent-downloads"])

	active, err := d.Profiles.Active()
	require.NoError(t, err)
	assert.Equal(t, 5, active.MaxConcurrentDownloads)
	assert.EqualValues(t, 262144, active.MaxOverallUploadLimit)
}

func TestSetServerHandler_RejectsInvalidOptions(t *testing.T) {
	cases := map[string]gin.H{
		"zero concurrency":        {"max-concurrent-downloads": 0},
		"negative download limit": {"max-concurrent-downloads": 3, "max-overall-download-limit": -1},
		"negative upload limit":   {"max-concurrent-downloads": 3, "max-overall-upload-limit": -5},
	}
	for name, opts := range cases {
		t.Run(name, func(t *testing.T) {
			daemon := &stubDaemon{}
			r, d := setupRouter(t, daemon)

			w := doJSON(r, "PUT", "/api/server", gin.H{
				"name":    "laptop",
				"rpc":     gin.H{"address": "10.0.0.2", "port": 6801},
				"options": opts,
			})
			assert.Equal(t, http.StatusBadRequest, w.Code)

			// nothing changed, nothing pushed, nothing saved
			assert.Equal(t, "nas", d.Session.Name())
			assert.Equal(t, session.DefaultOptions(), d.Session.Options())
			assert.Nil(t, daemon.changed)
			_, err := d.Profiles.Active()
			assert.ErrorIs(t, err, service.ErrNoActiveProfile)
			profiles, err := d.Profiles.List()
			require.NoError(t, err)
			assert.Empty(t, profiles)
		})
	}
}

func TestHistoryHandler(t *testing.T) {
	r, d := setupRouter(t, &stubDaemon{})
	require.NoError(t, d.DB.Create(&model.DownloadLog{Server: "nas", GID: "s1", Name: "done.iso", Status: "complete"}).Error)

	w := doJSON(r, "GET", "/api/history", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "done.iso")

	w = doJSON(r, "GET", "/api/history?limit=abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
