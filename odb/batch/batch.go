// Package batch 组装一次提交的多个操作，由服务端按追加顺序执行。
package batch

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/hatlonely/odbx/odb/result"
)

// Kind 操作类型
type Kind string

const (
	KindCreate  Kind = "c"
	KindUpdate  Kind = "u"
	KindDelete  Kind = "d"
	KindCommand Kind = "cmd"
	KindScript  Kind = "script"
)

// Language 命令和脚本的语言
type Language string

const (
	LanguageSQL        Language = "sql"
	LanguageJavaScript Language = "javascript"
)

// Operation 批量请求中的一个操作
type Operation struct {
	Type     Kind        `json:"type"`
	Record   interface{} `json:"record,omitempty"`
	Language Language    `json:"language,omitempty"`
	Command  string      `json:"command,omitempty"`
	Script   string      `json:"script,omitempty"`
}

// Submitter 负责把批量请求发送到服务端，通常由会话实现
type Submitter interface {
	SubmitBatch(ctx context.Context, b *Batch) result.Result
}

// Batch 有序的操作列表
//
// transaction 为 true 时服务端在一个事务中执行全部操作，否则逐个提交。
// 成功执行过的 Batch 不能再次执行。
type Batch struct {
	mu          sync.Mutex
	transaction bool
	operations  []Operation
	submitter   Submitter
	executing   bool
	executed    bool
}

func New(transaction bool, submitter Submitter) *Batch {
	return &Batch{transaction: transaction, submitter: submitter}
}

func (b *Batch) Transaction() bool {
	return b.transaction
}

// Append 追加操作，返回 b 以便链式调用
func (b *Batch) Append(ops ...Operation) *Batch {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.operations = append(b.operations, ops...)
	return b
}

func (b *Batch) Insert(doc interface{}) *Batch {
	return b.Append(Operation{Type: KindCreate, Record: doc})
}

func (b *Batch) Update(doc interface{}) *Batch {
	return b.Append(Operation{Type: KindUpdate, Record: doc})
}

func (b *Batch) Delete(doc interface{}) *Batch {
	return b.Append(Operation{Type: KindDelete, Record: doc})
}

// DeleteByID 按记录 id 删除，记录体为 {"@rid": rid}
func (b *Batch) DeleteByID(rid string) *Batch {
	return b.Delete(map[string]string{"@rid": rid})
}

func (b *Batch) Command(text string) *Batch {
	return b.CommandWithLanguage(text, LanguageSQL)
}

func (b *Batch) CommandWithLanguage(text string, language Language) *Batch {
	return b.Append(Operation{Type: KindCommand, Language: normalize(language, LanguageSQL), Command: text})
}

func (b *Batch) Script(text string) *Batch {
	return b.ScriptWithLanguage(text, LanguageJavaScript)
}

func (b *Batch) ScriptWithLanguage(text string, language Language) *Batch {
	return b.Append(Operation{Type: KindScript, Language: normalize(language, LanguageJavaScript), Script: text})
}

// normalize 只接受 sql 和 javascript，其他值回退到 fallback
func normalize(language Language, fallback Language) Language {
	switch language {
	case LanguageSQL, LanguageJavaScript:
		return language
	default:
		return fallback
	}
}

func (b *Batch) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.operations)
}

// Operations 返回操作列表的副本
func (b *Batch) Operations() []Operation {
	b.mu.Lock()
	defer b.mu.Unlock()
	ops := make([]Operation, len(b.operations))
	copy(ops, b.operations)
	return ops
}

type payload struct {
	Transaction bool        `json:"transaction"`
	Operations  []Operation `json:"operations"`
}

func (b *Batch) MarshalJSON() ([]byte, error) {
	return json.Marshal(payload{Transaction: b.transaction, Operations: b.Operations()})
}

// Execute 提交全部操作
//
// 空列表直接返回 OK 且不发送请求；提交失败后可以重试，成功后再次执行返回参数错误。
func (b *Batch) Execute(ctx context.Context) result.Result {
	b.mu.Lock()
	switch {
	case b.executed:
		b.mu.Unlock()
		return result.ParametersError("batch has already been executed")
	case b.executing:
		b.mu.Unlock()
		return result.ParametersError("batch is being executed")
	case len(b.operations) == 0:
		b.mu.Unlock()
		return result.OK()
	case b.submitter == nil:
		b.mu.Unlock()
		return result.ParametersError("batch has no submitter")
	}
	b.executing = true
	b.mu.Unlock()

	r := b.submitter.SubmitBatch(ctx, b)

	b.mu.Lock()
	b.executing = false
	b.executed = r.IsOK()
	b.mu.Unlock()
	return r
}
