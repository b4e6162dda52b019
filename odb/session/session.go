// Package session 实现面向单个服务器和数据库的逻辑会话。
//
// 会话持有连接参数、连接标志和类结构缓存。除 Connect、Disconnect 和
// CreateTransaction 外，所有访问服务端的操作都先检查连接标志，未连接时直接
// 返回 NotConnected，不发出任何请求。所有操作都以 result.Result 返回失败，
// 不会返回 error。
package session

import (
	"context"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/hatlonely/odbx/cfg"
	"github.com/hatlonely/odbx/log"
	"github.com/hatlonely/odbx/log/logger"
	"github.com/hatlonely/odbx/odb/client"
	"github.com/hatlonely/odbx/odb/result"
	"github.com/hatlonely/odbx/odb/schema"
	"github.com/pkg/errors"
)

const (
	DefaultQueryLimit = 100000
	DefaultFetchPlan  = "*:-1"
)

// Session 一个逻辑连接，可以被多个 goroutine 并发使用
type Session struct {
	id         string
	client     *client.Client
	logger     logger.Logger
	queryLimit int
	fetchPlan  string
	schemas    *schema.Cache

	mu        sync.RWMutex
	params    client.Params
	connected bool
}

func NewSessionWithOptions(options *Options) (*Session, error) {
	if options == nil {
		return nil, errors.New("options is nil")
	}
	if err := cfg.SetDefaults(options); err != nil {
		return nil, errors.WithMessage(err, "failed to set default options")
	}
	if err := cfg.Validate(options); err != nil {
		return nil, errors.WithMessage(err, "invalid session options")
	}

	c, err := client.NewClientWithOptions(&options.Client)
	if err != nil {
		return nil, errors.WithMessage(err, "failed to create client")
	}
	l, err := log.NewLoggerWithOptions(options.Logger)
	if err != nil {
		return nil, errors.WithMessage(err, "failed to create logger")
	}

	s := NewSession(options.Params(), c, l)
	s.queryLimit = options.QueryLimit
	s.fetchPlan = options.FetchPlan
	return s, nil
}

func MustNewSessionWithOptions(options *Options) *Session {
	s, err := NewSessionWithOptions(options)
	if err != nil {
		panic(err)
	}
	return s
}

// NewSession 由已构造好的组件创建会话，c 或 l 为 nil 时使用默认值
func NewSession(params client.Params, c *client.Client, l logger.Logger) *Session {
	if c == nil {
		c = client.NewClient()
	}
	if l == nil {
		l = log.Default()
	}
	id := uuid.NewString()
	return &Session{
		id:         id,
		client:     c,
		logger:     l.WithGroup("session").With("session", id, "database", params.Database),
		queryLimit: DefaultQueryLimit,
		fetchPlan:  DefaultFetchPlan,
		schemas:    schema.NewCache(),
		params:     params,
	}
}

func (s *Session) ID() string {
	return s.id
}

func (s *Session) Params() client.Params {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.params
}

func (s *Session) IsConnected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.connected
}

// Connect 探测 connect/<db>，已连接时直接返回 OK
func (s *Session) Connect(ctx context.Context) result.Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.connected {
		return result.OK()
	}

	_, err := s.client.Do(ctx, s.params, client.NewRequest(http.MethodGet, "connect", s.params.Database))
	if err != nil {
		s.logger.WarnContext(ctx, "connect failed", "server", s.params.Server.BaseURL(), "error", err.Error())
		return failure(err)
	}

	s.connected = true
	s.logger.InfoContext(ctx, "session connected", "server", s.params.Server.BaseURL())
	return result.OK()
}

// Disconnect 以不带鉴权信息的请求探测 disconnect，未连接时直接返回 OK
//
// 会话的连接参数保持不变，断开后可以再次 Connect。
//
// 服务端以 401 响应 disconnect 是正常行为，视为成功。其他失败保持连接标志不变。
func (s *Session) Disconnect(ctx context.Context) result.Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.connected {
		return result.OK()
	}

	params := s.params.WithoutCredentials()
	_, err := s.client.Do(ctx, params, client.NewRequest(http.MethodGet, "disconnect"))
	if err != nil && !client.IsUnauthorized(err) {
		s.logger.WarnContext(ctx, "disconnect failed", "error", err.Error())
		return result.GenericError(err)
	}

	s.connected = false
	s.logger.InfoContext(ctx, "session disconnected")
	return result.OK()
}

// Close 断开连接，结果非 OK 时返回 error
func (s *Session) Close() error {
	return s.Disconnect(context.Background()).Err()
}

// gate 返回当前连接参数，未连接时 ok 为 false
func (s *Session) gate() (params client.Params, ok bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.params, s.connected
}

// failure 将请求错误转换为结果，401 在任何操作中都视为鉴权失败
func failure(err error) result.Result {
	if client.IsUnauthorized(err) {
		return result.Fail(result.CodeAuthError, "authentication error: "+err.Error())
	}
	return result.GenericError(err)
}
