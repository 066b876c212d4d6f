package downloader

import "context"

// Handler 定义 aria2 RPC 调用的通用接口
// 所有调用都阻塞直到守护进程响应或 ctx 结束，失败以 error 返回
type Handler interface {
	// AddURI 添加 HTTP/FTP/磁力链任务，返回 GID
	AddURI(ctx context.Context, uris []string, options map[string]string) (string, error)
	// AddTorrent 上传种子文件内容 (原始字节，内部做 base64)
	AddTorrent(ctx context.Context, torrent []byte, options map[string]string) (string, error)
	// AddMetalink 上传 metalink 文件内容，一个 metalink 可能产生多个任务
	AddMetalink(ctx context.Context, metalink []byte, options map[string]string) ([]string, error)

	Pause(ctx context.Context, gids []string) error
	Unpause(ctx context.Context, gids []string) error
	Remove(ctx context.Context, gids []string) error
	// RemoveDownloadResult 从结果历史中清除已完成/出错/已删除的任务
	RemoveDownloadResult(ctx context.Context, gids []string) error

	TellActive(ctx context.Context) ([]Status, error)
	TellWaiting(ctx context.Context) ([]Status, error)
	TellStopped(ctx context.Context) ([]Status, error)

	GetGlobalOption(ctx context.Context) (map[string]string, error)
	ChangeGlobalOption(ctx context.Context, options map[string]string) error
	// GetVersion 也用作轻量的连通性测试
	GetVersion(ctx context.Context) (Version, error)

	// SetRPC 将客户端重新绑定到新的端点
	SetRPC(ep Endpoint)
	Endpoint() Endpoint
}
