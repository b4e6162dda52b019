package session

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/hatlonely/odbx/odb/client"
	"github.com/hatlonely/odbx/odb/result"
	"github.com/pkg/errors"
)

// envelope 查询和命令的响应格式
type envelope struct {
	Result []json.RawMessage `json:"result"`
}

type queryOptions struct {
	limit     int
	fetchPlan string
}

type QueryOption func(*queryOptions)

// WithLimit 覆盖默认的最大返回记录数
func WithLimit(limit int) QueryOption {
	return func(o *queryOptions) {
		o.limit = limit
	}
}

// WithFetchPlan 覆盖默认的 fetch plan，例如 "*:0"
func WithFetchPlan(fetchPlan string) QueryOption {
	return func(o *queryOptions) {
		o.fetchPlan = fetchPlan
	}
}

// Query 执行只读 SQL，每条记录独立解码为 T
func Query[T any](ctx context.Context, s *Session, sql string, opts ...QueryOption) result.Value[[]T] {
	params, ok := s.gate()
	if !ok {
		return result.FailValue[[]T](result.NotConnected())
	}

	o := queryOptions{limit: s.queryLimit, fetchPlan: s.fetchPlan}
	for _, opt := range opts {
		opt(&o)
	}
	switch {
	case strings.TrimSpace(sql) == "":
		return result.FailValue[[]T](result.ParametersError("sql statement must not be empty"))
	case o.limit < 1:
		return result.FailValue[[]T](result.ParametersError("limit must be positive"))
	case strings.TrimSpace(o.fetchPlan) == "":
		return result.FailValue[[]T](result.ParametersError("fetch plan must not be empty"))
	}

	req := client.NewRequest(http.MethodGet, "query", params.Database, "sql", sql, strconv.Itoa(o.limit), o.fetchPlan)
	return records[T](ctx, s, params, req)
}

// Command 执行可写 SQL，命令文本作为请求体发送
func Command[T any](ctx context.Context, s *Session, sql string) result.Value[[]T] {
	params, ok := s.gate()
	if !ok {
		return result.FailValue[[]T](result.NotConnected())
	}
	if strings.TrimSpace(sql) == "" {
		return result.FailValue[[]T](result.ParametersError("sql command must not be empty"))
	}

	req := client.NewRequest(http.MethodPost, "command", params.Database, "sql").WithBody([]byte(sql))
	return records[T](ctx, s, params, req)
}

func records[T any](ctx context.Context, s *Session, params client.Params, req *client.Request) result.Value[[]T] {
	env, err := client.Call[envelope](ctx, s.client, params, req)
	if err != nil {
		return result.FailValue[[]T](failure(err))
	}

	docs := make([]T, 0, len(env.Result))
	for i, raw := range env.Result {
		var doc T
		if err := json.Unmarshal(raw, &doc); err != nil {
			return result.FailValue[[]T](result.GenericError(errors.Wrapf(err, "unmarshal record %d", i)))
		}
		docs = append(docs, doc)
	}
	return result.Of(docs)
}

type databaseList struct {
	Databases []string `json:"databases"`
}

// ListDatabases 列出服务器上的数据库，不需要会话
func ListDatabases(ctx context.Context, c *client.Client, server client.Server, creds *client.Credentials) result.Value[[]string] {
	if c == nil {
		c = client.NewClient()
	}

	out, err := client.Call[databaseList](ctx, c, client.Params{Server: server, Credentials: creds}, client.NewRequest(http.MethodGet, "listDatabases"))
	if err != nil {
		return result.FailValue[[]string](failure(err))
	}
	if out.Databases == nil {
		out.Databases = []string{}
	}
	return result.Of(out.Databases)
}
