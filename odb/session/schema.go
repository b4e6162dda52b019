package session

import (
	"context"
	"net/http"
	"strings"

	"github.com/hatlonely/odbx/odb/client"
	"github.com/hatlonely/odbx/odb/result"
	"github.com/hatlonely/odbx/odb/schema"
)

// GetSchema 返回类结构，命中缓存时不发请求
//
// 缓存在会话生命周期内不会失效，服务端结构变更后需要调用 RefreshSchema。
func (s *Session) GetSchema(ctx context.Context, name string) result.Value[*schema.Class] {
	params, ok := s.gate()
	if !ok {
		return result.FailValue[*schema.Class](result.NotConnected())
	}
	if strings.TrimSpace(name) == "" {
		return result.FailValue[*schema.Class](result.ParametersError("class name must not be empty"))
	}
	if class, ok := s.schemas.Get(name); ok {
		return result.Of(class)
	}

	class, r := s.fetchSchema(ctx, params, name)
	if !r.IsOK() {
		return result.FailValue[*schema.Class](r)
	}
	return result.Of(s.schemas.Add(class))
}

// RefreshSchema 重新获取类结构并覆盖缓存
func (s *Session) RefreshSchema(ctx context.Context, name string) result.Value[*schema.Class] {
	params, ok := s.gate()
	if !ok {
		return result.FailValue[*schema.Class](result.NotConnected())
	}
	if strings.TrimSpace(name) == "" {
		return result.FailValue[*schema.Class](result.ParametersError("class name must not be empty"))
	}

	class, r := s.fetchSchema(ctx, params, name)
	if !r.IsOK() {
		return result.FailValue[*schema.Class](r)
	}
	s.schemas.Replace(class)
	return result.Of(class)
}

// CachedSchemas 返回已缓存的类结构，按 names 的顺序，未缓存的跳过
func (s *Session) CachedSchemas(names ...string) []*schema.Class {
	return s.schemas.Lookup(names...)
}

func (s *Session) fetchSchema(ctx context.Context, params client.Params, name string) (*schema.Class, result.Result) {
	data, err := s.client.Do(ctx, params, client.NewRequest(http.MethodGet, "class", params.Database, name))
	if err != nil {
		s.logger.DebugContext(ctx, "fetch schema failed", "class", name, "error", err.Error())
		return nil, failure(err)
	}
	class, err := schema.Decode(data)
	if err != nil {
		return nil, result.GenericError(err)
	}
	// 以请求的名称作为缓存键
	class.Name = name
	return class, result.OK()
}
