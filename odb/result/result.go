// Package result 定义所有公开操作的返回值模型。
//
// 预期内的失败（鉴权失败、参数错误、未连接、服务端或解码错误）不以 error
// 的形式返回，而是通过 Result 的 Code 字段表达。调用方在使用 Value 之前
// 必须先检查 Code，只有 CodeOK 时 Value 才有意义。
package result

import (
	"fmt"

	"github.com/pkg/errors"
)

// Code 操作结果状态码
type Code int

const (
	CodeOK Code = iota
	CodeAuthError
	CodeGenericError
	CodeParametersError
	CodeNotConnected
)

func (c Code) String() string {
	switch c {
	case CodeOK:
		return "OK"
	case CodeAuthError:
		return "AuthError"
	case CodeGenericError:
		return "GenericError"
	case CodeParametersError:
		return "ParametersError"
	case CodeNotConnected:
		return "NotConnected"
	default:
		return fmt.Sprintf("Code(%d)", int(c))
	}
}

// MessageNotConnected 会话未连接时的提示信息
const MessageNotConnected = "current connection is not open"

// Result 基础结果，Code 非 CodeOK 时 Message 说明失败原因
type Result struct {
	Code    Code
	Message string
}

func (r Result) IsOK() bool {
	return r.Code == CodeOK
}

// Err 将非 OK 的结果转换为 error，OK 时返回 nil
func (r Result) Err() error {
	if r.IsOK() {
		return nil
	}
	if r.Message == "" {
		return errors.New(r.Code.String())
	}
	return errors.Errorf("%s: %s", r.Code, r.Message)
}

func (r Result) String() string {
	if r.Message == "" {
		return r.Code.String()
	}
	return r.Code.String() + ": " + r.Message
}

// Value 携带一个负载字段的结果
type Value[T any] struct {
	Result
	Value T
}

type (
	Bool    = Value[bool]
	Strings = Value[[]string]
	Int     = Value[int]
)

func OK() Result {
	return Result{Code: CodeOK}
}

func Fail(code Code, message string) Result {
	return Result{Code: code, Message: message}
}

func NotConnected() Result {
	return Fail(CodeNotConnected, MessageNotConnected)
}

func ParametersError(message string) Result {
	return Fail(CodeParametersError, message)
}

func GenericError(err error) Result {
	return Fail(CodeGenericError, err.Error())
}

// Of 构造 OK 状态并携带负载的结果
func Of[T any](v T) Value[T] {
	return Value[T]{Result: OK(), Value: v}
}

// FailValue 将失败的基础结果提升为 Value，负载为零值
func FailValue[T any](r Result) Value[T] {
	return Value[T]{Result: r}
}
