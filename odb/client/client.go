// Package client 实现面向文档数据库 REST 接口的请求分发。
//
// Client 本身无状态，每次 Do 恰好发送一个 HTTP 请求。连接参数由调用方
// 通过 Params 逐次传入，因此多个会话可以安全地共享同一个 Client。
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hatlonely/odbx/cfg"
	"github.com/hatlonely/odbx/log"
	"github.com/hatlonely/odbx/log/logger"
	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
	"github.com/pkg/errors"
)

type ClientOptions struct {
	// Timeout 单个请求的超时时间
	Timeout time.Duration `cfg:"timeout" def:"5m"`

	// EnableMetrics 是否启用 prometheus 指标
	EnableMetrics bool `cfg:"enableMetrics"`

	// EnableTracing 是否启用 opentelemetry 追踪
	EnableTracing bool `cfg:"enableTracing"`

	// Name 组件名称，作为指标前缀和 tracer 名称
	Name string `cfg:"name" def:"odbx" validate:"required"`

	// Logger 为空时使用全局默认日志器
	Logger *logger.SLogOptions `cfg:"logger"`
}

type Client struct {
	httpClient *http.Client
	observer   *observer
	logger     logger.Logger
}

// Request 一次请求的描述，Action 的每一段单独转义后以 / 连接
type Request struct {
	Method string
	Action []string
	Query  url.Values
	// Body 为 nil 时不发送请求体
	Body []byte
}

func NewRequest(method string, action ...string) *Request {
	return &Request{Method: method, Action: action}
}

// WithQuery 追加一个查询参数
func (r *Request) WithQuery(key, value string) *Request {
	if r.Query == nil {
		r.Query = url.Values{}
	}
	r.Query.Add(key, value)
	return r
}

func (r *Request) WithBody(body []byte) *Request {
	r.Body = body
	return r
}

// Path 返回转义后的请求路径，不含查询参数
func (r *Request) Path() string {
	segments := make([]string, len(r.Action))
	for i, segment := range r.Action {
		segments[i] = url.PathEscape(segment)
	}
	return "/" + strings.Join(segments, "/")
}

// URL 返回请求在指定服务器上的完整地址
func (r *Request) URL(server Server) string {
	u := server.BaseURL() + r.Path()
	if len(r.Query) > 0 {
		u += "?" + r.Query.Encode()
	}
	return u
}

// name 请求的动作名，取第一段，用于日志和指标，避免高基数标签
func (r *Request) name() string {
	if len(r.Action) == 0 || r.Action[0] == "" {
		return "root"
	}
	return r.Action[0]
}

func NewClient() *Client {
	c, err := NewClientWithOptions(&ClientOptions{})
	if err != nil {
		panic(err)
	}
	return c
}

func NewClientWithOptions(options *ClientOptions) (*Client, error) {
	if options == nil {
		return nil, errors.New("options is nil")
	}
	if err := cfg.SetDefaults(options); err != nil {
		return nil, errors.WithMessage(err, "failed to set default options")
	}
	if err := cfg.Validate(options); err != nil {
		return nil, errors.WithMessage(err, "invalid client options")
	}

	l, err := log.NewLoggerWithOptions(options.Logger)
	if err != nil {
		return nil, errors.WithMessage(err, "failed to create logger")
	}
	l = l.WithGroup("client").With("component", options.Name)

	obs, err := newObserver(options, l)
	if err != nil {
		return nil, err
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: options.Timeout,
			Transport: &http.Transport{
				Proxy:              http.ProxyFromEnvironment,
				DisableKeepAlives:  true,
				DisableCompression: true,
			},
		},
		observer: obs,
		logger:   l,
	}, nil
}

// Do 发送请求并返回解压后的响应体
//
// 401 返回满足 errors.Is(err, ErrUnauthorized) 的错误，其他非 2xx 状态返回
// *StatusError，传输层错误会附带请求方法和路径。
func (c *Client) Do(ctx context.Context, params Params, req *Request) ([]byte, error) {
	if req == nil {
		return nil, ErrNilRequest
	}
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	var data []byte
	err := c.observer.observe(ctx, method, req.name(), func(ctx context.Context) (int, error) {
		var body io.Reader
		if req.Body != nil {
			body = bytes.NewReader(req.Body)
		}
		httpReq, err := http.NewRequestWithContext(ctx, method, req.URL(params.Server), body)
		if err != nil {
			return 0, errors.Wrapf(err, "build request %s %s", method, req.Path())
		}
		httpReq.Header.Set("Content-Type", "application/json")
		httpReq.Header.Set("Accept-Encoding", "gzip, deflate")
		httpReq.Close = true
		if params.Credentials != nil {
			httpReq.SetBasicAuth(params.Credentials.Name, params.Credentials.Password)
		}

		resp, err := c.httpClient.Do(httpReq)
		if err != nil {
			return 0, errors.Wrapf(err, "%s %s", method, req.Path())
		}
		defer resp.Body.Close()

		raw, err := io.ReadAll(resp.Body)
		if err != nil {
			return resp.StatusCode, errors.Wrapf(err, "read response of %s %s", method, req.Path())
		}
		decoded, err := decodeBody(resp.Header.Get("Content-Encoding"), raw)
		if err != nil {
			return resp.StatusCode, errors.WithMessagef(err, "decode response of %s %s", method, req.Path())
		}

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return resp.StatusCode, &StatusError{
				Method:     method,
				Path:       req.Path(),
				StatusCode: resp.StatusCode,
				Status:     resp.Status,
				Body:       strings.TrimSpace(string(decoded)),
			}
		}

		data = decoded
		return resp.StatusCode, nil
	})
	if err != nil {
		return nil, err
	}
	return data, nil
}

// Call 发送请求并将 JSON 响应解码为 T，响应体为空时返回 T 的零值
func Call[T any](ctx context.Context, c *Client, params Params, req *Request) (T, error) {
	var out T
	data, err := c.Do(ctx, params, req)
	if err != nil {
		return out, err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return out, errors.Wrapf(err, "unmarshal response of %s", req.Path())
	}
	return out, nil
}

func decodeBody(encoding string, raw []byte) ([]byte, error) {
	if len(raw) == 0 {
		return raw, nil
	}

	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "", "identity":
		return raw, nil
	case "gzip", "x-gzip":
		zr, err := gzip.NewReader(bytes.NewReader(raw))
		if err != nil {
			return nil, errors.Wrap(err, "gzip")
		}
		defer zr.Close()
		data, err := io.ReadAll(zr)
		return data, errors.Wrap(err, "gzip")
	case "deflate":
		// 兼容带 zlib 头和裸 deflate 两种格式
		if zr, err := zlib.NewReader(bytes.NewReader(raw)); err == nil {
			defer zr.Close()
			data, err := io.ReadAll(zr)
			return data, errors.Wrap(err, "deflate")
		}
		fr := flate.NewReader(bytes.NewReader(raw))
		defer fr.Close()
		data, err := io.ReadAll(fr)
		return data, errors.Wrap(err, "deflate")
	default:
		return nil, errors.Errorf("unsupported content encoding %q", encoding)
	}
}
