// Package query 按 FROM → WHERE → SELECT/COUNT/DELETE 的顺序组装 SQL。
//
// 自动投影只包含服务端类结构中存在的字段：文档类型通过 Mapper 声明字段名，
// 形如 Class.Field 的名称要求 Class 出现在 FROM 中且其类结构包含 Field，
// 不带类名的字段只要任一 FROM 类包含即可。其余字段被忽略。
package query

import (
	"context"
	"encoding/json"
	"reflect"
	"strings"

	"github.com/hatlonely/odbx/odb/batch"
	"github.com/hatlonely/odbx/odb/result"
	"github.com/hatlonely/odbx/odb/schema"
	"github.com/hatlonely/odbx/odb/session"
)

// Mapper 文档类型声明参与自动投影的字段名
type Mapper interface {
	FieldMap() []string
}

// Stage 可以执行终止操作的构建阶段，由 FromStage 和 WhereStage 实现
type Stage interface {
	Result() result.Result
	base() *builder
}

type builder struct {
	session *session.Session
	result  result.Result
	classes []string
	from    string
	where   string
}

// FromStage FROM 子句之后的阶段
type FromStage struct {
	*builder
}

// WhereStage WHERE 子句之后的阶段
type WhereStage struct {
	*builder
}

// From 开始一次查询，classes 中未缓存的类结构会先被获取，获取失败不影响查询
//
// 未连接或类名为空时返回的阶段仍可链式调用，但 Result 非 OK，所有终止操作直接返回该结果。
func From(ctx context.Context, s *session.Session, classes ...string) FromStage {
	b := &builder{session: s, result: result.OK()}

	if !s.IsConnected() {
		b.result = result.NotConnected()
		return FromStage{b}
	}

	names := make([]string, 0, len(classes))
	for _, class := range classes {
		class = strings.TrimSpace(class)
		if class == "" {
			names = nil
			break
		}
		names = append(names, class)
	}
	if len(names) == 0 {
		b.result = result.ParametersError("at least one class must be specified and class names must not be empty")
		return FromStage{b}
	}

	for _, class := range names {
		// 失败的类只是不参与自动投影
		s.GetSchema(ctx, class)
	}

	b.classes = names
	b.from = "FROM " + strings.Join(names, ", ")
	return FromStage{b}
}

// FromList 同 From，类名以逗号分隔
func FromList(ctx context.Context, s *session.Session, classes string) FromStage {
	return From(ctx, s, strings.Split(classes, ",")...)
}

// Where 追加条件，conditions 不包含 WHERE 关键字，为空时不生成 WHERE 子句
func (f FromStage) Where(conditions string) WhereStage {
	b := *f.builder
	b.where = ""
	if strings.TrimSpace(conditions) != "" {
		b.where = "WHERE " + conditions
	}
	return WhereStage{&b}
}

func (b *builder) Result() result.Result {
	return b.result
}

func (b *builder) base() *builder {
	return b
}

// Classes FROM 中的类名
func (b *builder) Classes() []string {
	return append([]string(nil), b.classes...)
}

// Projection 根据字段名列表生成投影，selectAll 为 true 时返回 *
func (b *builder) Projection(mapping []string, selectAll bool) string {
	if selectAll {
		return "*"
	}

	parts := make([]string, 0, len(b.classes)+len(mapping))
	for _, class := range b.classes {
		parts = append(parts, "@rid as "+class+"_rid")
	}

	schemas := b.session.CachedSchemas(b.classes...)
	for _, name := range mapping {
		if projectable(name, schemas) {
			parts = append(parts, name)
		}
	}
	return strings.Join(parts, ", ")
}

func projectable(name string, schemas []*schema.Class) bool {
	if className, field, ok := strings.Cut(name, "."); ok {
		for _, class := range schemas {
			if class.Name == className {
				return class.HasProperty(field)
			}
		}
		return false
	}
	for _, class := range schemas {
		if class.HasProperty(name) {
			return true
		}
	}
	return false
}

// SelectSQL 返回完整的 SELECT 语句
func (b *builder) SelectSQL(mapping []string, selectAll bool) string {
	return b.statement("SELECT " + b.Projection(mapping, selectAll))
}

func (b *builder) CountSQL() string {
	return b.statement("SELECT COUNT(*) as Result")
}

func (b *builder) DeleteSQL() string {
	return b.statement("DELETE")
}

func (b *builder) statement(head string) string {
	sql := head + " " + b.from
	if b.where != "" {
		sql += " " + b.where
	}
	return sql
}

type countRow struct {
	Result int `json:"Result"`
}

// Count 返回满足条件的记录数，服务端未返回记录时为 GenericError
func (b *builder) Count(ctx context.Context) result.Int {
	if !b.result.IsOK() {
		return result.FailValue[int](b.result)
	}
	rows := session.Query[countRow](ctx, b.session, b.CountSQL())
	if !rows.IsOK() {
		return result.FailValue[int](rows.Result)
	}
	if len(rows.Value) == 0 {
		return result.FailValue[int](result.Fail(result.CodeGenericError, "count returned no rows"))
	}
	return result.Of(rows.Value[0].Result)
}

// Delete 删除满足条件的记录
func (b *builder) Delete(ctx context.Context) result.Result {
	if !b.result.IsOK() {
		return b.result
	}
	return session.Command[json.RawMessage](ctx, b.session, b.DeleteSQL()).Result
}

// DeleteToTransaction 返回与 Delete 相同语句的批量命令操作，不访问服务端
func (b *builder) DeleteToTransaction() result.Value[batch.Operation] {
	if !b.result.IsOK() {
		return result.FailValue[batch.Operation](b.result)
	}
	return result.Of(batch.Operation{
		Type:     batch.KindCommand,
		Language: batch.LanguageSQL,
		Command:  b.DeleteSQL(),
	})
}

// Select 执行查询并将每条记录解码为 T，投影字段来自 T 的 FieldMap
func Select[T any](ctx context.Context, stage Stage, selectAll bool) result.Value[[]T] {
	b := stage.base()
	if !b.result.IsOK() {
		return result.FailValue[[]T](b.result)
	}
	return session.Query[T](ctx, b.session, b.SelectSQL(FieldMap[T](), selectAll))
}

// FieldMap 返回 T 声明的字段名，T 未实现 Mapper 时返回 nil
func FieldMap[T any]() []string {
	if m, ok := any(new(T)).(Mapper); ok {
		return m.FieldMap()
	}
	var zero T
	if t := reflect.TypeOf(zero); t != nil && t.Kind() == reflect.Pointer {
		if m, ok := reflect.New(t.Elem()).Interface().(Mapper); ok {
			return m.FieldMap()
		}
	}
	return nil
}
