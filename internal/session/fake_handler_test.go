package session

import (
	"context"
	"sync"

	"github.com/pokerjest/aria2deck/internal/downloader"
)

// fakeHandler is an in-memory downloader.Handler. Unset list funcs return empty lists.
type fakeHandler struct {
	mu sync.Mutex

	endpoint downloader.Endpoint
	calls    []string

	addOptions    map[string]string
	changeOptions map[string]string
	gids          []string

	addErr     error
	commandErr error
	versionErr error
	active     func() ([]downloader.Status, error)
	waiting    func() ([]downloader.Status, error)
	stopped    func() ([]downloader.Status, error)
	global     map[string]string
}

var _ downloader.Handler = (*fakeHandler)(nil)

func (f *fakeHandler) record(call string) {
	f.mu.Lock()
	f.calls = append(f.calls, call)
	f.mu.Unlock()
}

func (f *fakeHandler) called(call string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == call {
			n++
		}
	}
	return n
}

func (f *fakeHandler) AddURI(_ context.Context, uris []string, options map[string]string) (string, error) {
	f.record("addUri")
	f.mu.Lock()
	f.addOptions = options
	f.mu.Unlock()
	return "gid-uri", f.addErr
}

func (f *fakeHandler) AddTorrent(_ context.Context, _ []byte, options map[string]string) (string, error) {
	f.record("addTorrent")
	f.mu.Lock()
	f.addOptions = options
	f.mu.Unlock()
	return "gid-torrent", f.addErr
}

func (f *fakeHandler) AddMetalink(_ context.Context, _ []byte, options map[string]string) ([]string, error) {
	f.record("addMetalink")
	f.mu.Lock()
	f.addOptions = options
	f.mu.Unlock()
	return []string{"gid-m1", "gid-m2"}, f.addErr
}

func (f *fakeHandler) command(name string, gids []string) error {
	f.record(name)
	f.mu.Lock()
	f.gids = gids
	f.mu.Unlock()
	return f.commandErr
}

func (f *fakeHandler) Pause(_ context.Context, gids []string) error   { return f.command("pause", gids) }
func (f *fakeHandler) Unpause(_ context.Context, gids []string) error { return f.command("unpause", gids) }
func (f *fakeHandler) Remove(_ context.Context, gids []string) error  { return f.command("remove", gids) }
func (f *fakeHandler) RemoveDownloadResult(_ context.Context, gids []string) error {
	return f.command("removeDownloadResult", gids)
}

func list(fn func() ([]downloader.Status, error)) ([]downloader.Status, error) {
	if fn == nil {
		return nil, nil
	}
	return fn()
}

func (f *fakeHandler) TellActive(context.Context) ([]downloader.Status, error) {
	f.record("tellActive")
	return list(f.active)
}

func (f *fakeHandler) TellWaiting(context.Context) ([]downloader.Status, error) {
	f.record("tellWaiting")
	return list(f.waiting)
}

func (f *fakeHandler) TellStopped(context.Context) ([]downloader.Status, error) {
	f.record("tellStopped")
	return list(f.stopped)
}

func (f *fakeHandler) GetGlobalOption(context.Context) (map[string]string, error) {
	f.record("getGlobalOption")
	return f.global, nil
}

func (f *fakeHandler) ChangeGlobalOption(_ context.Context, options map[string]string) error {
	f.record("changeGlobalOption")
	f.mu.Lock()
	f.changeOptions = options
	f.mu.Unlock()
	return nil
}

func (f *fakeHandler) GetVersion(context.Context) (downloader.Version, error) {
	f.record("getVersion")
	f.mu.Lock()
	defer f.mu.Unlock()
	return downloader.Version{Version: "1.37.0"}, f.versionErr
}

func (f *fakeHandler) SetRPC(ep downloader.Endpoint) {
	f.mu.Lock()
	f.endpoint = ep
	f.mu.Unlock()
}

func (f *fakeHandler) Endpoint() downloader.Endpoint {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.endpoint
}

func rawTask(gid, status, total, completed string, paths ...string) downloader.Status {
	files := make([]downloader.File, 0, len(paths))
	for _, p := range paths {
		files = append(files, downloader.File{Path: p})
	}
	return downloader.Status{
		Gid:             gid,
		Status:          status,
		TotalLength:     total,
		CompletedLength: completed,
		UploadLength:    "0",
		DownloadSpeed:   "0",
		UploadSpeed:     "0",
		Connections:     "0",
		Dir:             "/dl",
		Files:           files,
	}
}

func static(tasks ...downloader.Status) func() ([]downloader.Status, error) {
	return func() ([]downloader.Status, error) { return tasks, nil }
}
