package session

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/hatlonely/odbx/odb/client"
	"github.com/hatlonely/odbx/odb/result"
	"github.com/pkg/errors"
)

// UpdateMode 更新方式，full 替换整个文档，partial 只合并提交的字段
type UpdateMode string

const (
	UpdateModeFull    UpdateMode = "full"
	UpdateModePartial UpdateMode = "partial"
)

// Identified 可更新的文档需要提供自己的记录 id，例如 "#12:0"
type Identified interface {
	RecordID() string
}

// pathRID 去掉记录 id 的 # 前缀，用于 URL 路径
func pathRID(rid string) string {
	return strings.TrimPrefix(strings.TrimSpace(rid), "#")
}

// GetByID 读取单个文档
func GetByID[T any](ctx context.Context, s *Session, rid string) result.Value[T] {
	params, ok := s.gate()
	if !ok {
		return result.FailValue[T](result.NotConnected())
	}
	if pathRID(rid) == "" {
		return result.FailValue[T](result.ParametersError("record id must not be empty"))
	}

	doc, err := client.Call[T](ctx, s.client, params, client.NewRequest(http.MethodGet, "document", params.Database, pathRID(rid)))
	if err != nil {
		return result.FailValue[T](failure(err))
	}
	return result.Of(doc)
}

// Exists 判断文档是否存在，服务端返回 404 或 500 时视为不存在
func (s *Session) Exists(ctx context.Context, rid string) result.Value[bool] {
	params, ok := s.gate()
	if !ok {
		return result.FailValue[bool](result.NotConnected())
	}
	if pathRID(rid) == "" {
		return result.FailValue[bool](result.ParametersError("record id must not be empty"))
	}

	_, err := s.client.Do(ctx, params, client.NewRequest(http.MethodHead, "document", params.Database, pathRID(rid)))
	if err != nil {
		switch client.StatusCode(err) {
		case http.StatusNotFound, http.StatusInternalServerError:
			return result.Of(false)
		}
		return result.FailValue[bool](failure(err))
	}
	return result.Of(true)
}

// Delete 删除单个文档
func (s *Session) Delete(ctx context.Context, rid string) result.Result {
	params, ok := s.gate()
	if !ok {
		return result.NotConnected()
	}
	if pathRID(rid) == "" {
		return result.ParametersError("record id must not be empty")
	}

	if _, err := s.client.Do(ctx, params, client.NewRequest(http.MethodDelete, "document", params.Database, pathRID(rid))); err != nil {
		return failure(err)
	}
	return result.OK()
}

// Insert 新建文档，返回服务端保存后的副本，包含 @rid 和 @version
func Insert[T any](ctx context.Context, s *Session, doc T) result.Value[T] {
	params, ok := s.gate()
	if !ok {
		return result.FailValue[T](result.NotConnected())
	}
	body, err := json.Marshal(doc)
	if err != nil {
		return result.FailValue[T](result.ParametersError(errors.Wrap(err, "marshal document").Error()))
	}

	saved, err := client.Call[T](ctx, s.client, params, client.NewRequest(http.MethodPost, "document", params.Database).WithBody(body))
	if err != nil {
		return result.FailValue[T](failure(err))
	}
	return result.Of(saved)
}

// Update 更新文档，记录 id 取自 doc 的 RecordID 方法
//
// 服务端未返回文档内容时，负载为传入的 doc。
func Update[T any](ctx context.Context, s *Session, doc T, mode UpdateMode) result.Value[T] {
	params, ok := s.gate()
	if !ok {
		return result.FailValue[T](result.NotConnected())
	}

	rid := recordID(&doc)
	if rid == "" {
		return result.FailValue[T](result.ParametersError("document has no record id"))
	}
	if mode != UpdateModePartial {
		mode = UpdateModeFull
	}
	body, err := json.Marshal(doc)
	if err != nil {
		return result.FailValue[T](result.ParametersError(errors.Wrap(err, "marshal document").Error()))
	}

	req := client.NewRequest(http.MethodPut, "document", params.Database, rid).
		WithQuery("updateMode", string(mode)).
		WithBody(body)
	data, err := s.client.Do(ctx, params, req)
	if err != nil {
		return result.FailValue[T](failure(err))
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return result.Of(doc)
	}

	var updated T
	if err := json.Unmarshal(data, &updated); err != nil {
		return result.FailValue[T](result.GenericError(errors.Wrap(err, "unmarshal updated document")))
	}
	return result.Of(updated)
}

// recordID 值接收者和指针接收者的 RecordID 都支持
func recordID[T any](doc *T) string {
	if identified, ok := any(*doc).(Identified); ok {
		return pathRID(identified.RecordID())
	}
	if identified, ok := any(doc).(Identified); ok {
		return pathRID(identified.RecordID())
	}
	return ""
}
