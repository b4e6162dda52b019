package client

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrUnauthorized 服务端返回 401，鉴权被拒绝
	ErrUnauthorized = errors.New("unauthorized")
	ErrNilRequest   = errors.New("request is nil")
)

// StatusError 服务端返回了非 2xx 状态码
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	Status     string
	Body       string
}

func (e *StatusError) Error() string {
	msg := fmt.Sprintf("%s %s: %s", e.Method, e.Path, e.Status)
	if e.Body != "" {
		msg += ": " + e.Body
	}
	return msg
}

// Is 使 401 响应满足 errors.Is(err, ErrUnauthorized)
func (e *StatusError) Is(target error) bool {
	return target == ErrUnauthorized && e.StatusCode == 401
}

// IsUnauthorized 判断错误是否为鉴权失败
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}

// StatusCode 返回错误对应的 HTTP 状态码，非 StatusError 时返回 0
func StatusCode(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode
	}
	return 0
}
