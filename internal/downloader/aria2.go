package downloader

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

const defaultPageSize = 1000

type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      string        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

type rpcResponse struct {
	ID     string          `json:"id"`
	Result json.RawMessage `json:"result"`
	Error  *RPCError       `json:"error"`
}

// Aria2Client 通过 JSON-RPC over HTTP 调用 aria2
type Aria2Client struct {
	client   *resty.Client
	limiter  *rate.Limiter
	pageSize int

	mu       sync.RWMutex
	endpoint Endpoint
}

var _ Handler = (*Aria2Client)(nil)

type ClientOption func(*Aria2Client)

// WithTimeout sets the per-request HTTP timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Aria2Client) {
		if d > 0 {
			c.client.SetTimeout(d)
		}
	}
}

// WithRateLimit paces outgoing calls. rps <= 0 disables pacing.
func WithRateLimit(rps float64) ClientOption {
	return func(c *Aria2Client) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		}
	}
}

// WithPageSize sets how many records tellWaiting / tellStopped request.
func WithPageSize(n int) ClientOption {
	return func(c *Aria2Client) {
		if n > 0 {
			c.pageSize = n
		}
	}
}

func NewAria2Client(ep Endpoint, opts ...ClientOption) *Aria2Client {
	client := resty.New().
		SetTimeout(10*time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeader("User-Agent", "aria2deck")

	client.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		if body, ok := req.Body.(rpcRequest); ok {
			log.Debug().Str("url", req.URL).Str("method", body.Method).Str("id", body.ID).Msg("aria2 rpc request")
		}
		return nil
	})

	c := &Aria2Client{
		client:   client,
		limiter:  rate.NewLimiter(rate.Inf, 0),
		pageSize: defaultPageSize,
		endpoint: ep,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Aria2Client) SetRPC(ep Endpoint) {
	c.mu.Lock()
	c.endpoint = ep
	c.mu.Unlock()
}

func (c *Aria2Client) Endpoint() Endpoint {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.endpoint
}

// tokenParams prepends the secret token when one is configured.
func tokenParams(token string, params ...interface{}) []interface{} {
	if token == "" {
		return params
	}
	return append([]interface{}{"token:" + token}, params...)
}

// call issues one JSON-RPC request and decodes the result into out (which may be nil).
func (c *Aria2Client) call(ctx context.Context, method string, params []interface{}, out interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	ep := c.Endpoint()
	if strings.HasPrefix(method, "aria2.") {
		params = tokenParams(ep.Token, params...)
	}
	if params == nil {
		params = []interface{}{}
	}

	req := rpcRequest{
		JSONRPC: "2.0",
		ID:      uuid.NewString(),
		Method:  method,
		Params:  params,
	}

	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(req).
		Post(ep.URL())
	if err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}

	var res rpcResponse
	if err := json.Unmarshal(resp.Body(), &res); err != nil {
		if resp.IsError() {
			return fmt.Errorf("%s: unexpected status %s", method, resp.Status())
		}
		return fmt.Errorf("%s: decode response: %w", method, err)
	}
	if res.Error != nil {
		return res.Error
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(res.Result, out); err != nil {
		return fmt.Errorf("%s: decode result: %w", method, err)
	}
	return nil
}

// multicall runs the same single-gid method for every gid in one system.multicall round trip.
func (c *Aria2Client) multicall(ctx context.Context, method string, gids []string) error {
	if len(gids) == 0 {
		return nil
	}
	token := c.Endpoint().Token
	methods := make([]Method, 0, len(gids))
	for _, gid := range gids {
		methods = append(methods, Method{Name: method, Params: tokenParams(token, gid)})
	}

	var results []json.RawMessage
	if err := c.call(ctx, "system.multicall", []interface{}{methods}, &results); err != nil {
		return err
	}

	var errs []error
	for i, raw := range results {
		// 成功项是 [result]，失败项是 {code, message}
		if len(raw) > 0 && raw[0] == '{' {
			var fault RPCError
			if err := json.Unmarshal(raw, &fault); err != nil {
				errs = append(errs, fmt.Errorf("%s %s: %w", method, gids[i], err))
				continue
			}
			errs = append(errs, fmt.Errorf("%s %s: %w", method, gids[i], &fault))
		}
	}
	return errors.Join(errs...)
}

func (c *Aria2Client) AddURI(ctx context.Context, uris []string, options map[string]string) (string, error) {
	var gid string
	err := c.call(ctx, "aria2.addUri", []interface{}{uris, optionsOrEmpty(options)}, &gid)
	return gid, err
}

func (c *Aria2Client) AddTorrent(ctx context.Context, torrent []byte, options map[string]string) (string, error) {
	var gid string
	payload := base64.StdEncoding.EncodeToString(torrent)
	err := c.call(ctx, "aria2.addTorrent", []interface{}{payload, []string{}, optionsOrEmpty(options)}, &gid)
	return gid, err
}

func (c *Aria2Client) AddMetalink(ctx context.Context, metalink []byte, options map[string]string) ([]string, error) {
	var gids []string
	payload := base64.StdEncoding.EncodeToString(metalink)
	err := c.call(ctx, "aria2.addMetalink", []interface{}{payload, optionsOrEmpty(options)}, &gids)
	return gids, err
}

func (c *Aria2Client) Pause(ctx context.Context, gids []string) error {
	return c.multicall(ctx, "aria2.pause", gids)
}

func (c *Aria2Client) Unpause(ctx context.Context, gids []string) error {
	return c.multicall(ctx, "aria2.unpause", gids)
}

func (c *Aria2Client) Remove(ctx context.Context, gids []string) error {
	return c.multicall(ctx, "aria2.remove", gids)
}

func (c *Aria2Client) RemoveDownloadResult(ctx context.Context, gids []string) error {
	return c.multicall(ctx, "aria2.removeDownloadResult", gids)
}

func (c *Aria2Client) TellActive(ctx context.Context) ([]Status, error) {
	var tasks []Status
	err := c.call(ctx, "aria2.tellActive", nil, &tasks)
	return tasks, err
}

func (c *Aria2Client) TellWaiting(ctx context.Context) ([]Status, error) {
	var tasks []Status
	err := c.call(ctx, "aria2.tellWaiting", []interface{}{0, c.pageSize}, &tasks)
	return tasks, err
}

func (c *Aria2Client) TellStopped(ctx context.Context) ([]Status, error) {
	var tasks []Status
	err := c.call(ctx, "aria2.tellStopped", []interface{}{0, c.pageSize}, &tasks)
	return tasks, err
}

func (c *Aria2Client) GetGlobalOption(ctx context.Context) (map[string]string, error) {
	options := map[string]string{}
	err := c.call(ctx, "aria2.getGlobalOption", nil, &options)
	return options, err
}

func (c *Aria2Client) ChangeGlobalOption(ctx context.Context, options map[string]string) error {
	return c.call(ctx, "aria2.changeGlobalOption", []interface{}{optionsOrEmpty(options)}, nil)
}

func (c *Aria2Client) GetVersion(ctx context.Context) (Version, error) {
	var v Version
	err := c.call(ctx, "aria2.getVersion", nil, &v)
	return v, err
}

func optionsOrEmpty(options map[string]string) map[string]string {
	if options == nil {
		return map[string]string{}
	}
	return options
}
