package client

import (
	"net"
	"strconv"
	"strings"
)

// Server 数据库服务器的网络位置
type Server struct {
	// Scheme 协议，http 或 https，为空时使用 http
	Scheme string `cfg:"scheme" def:"http" validate:"omitempty,oneof=http https"`
	Host   string `cfg:"host" validate:"required"`
	// Port 为 0 表示不指定端口
	Port int `cfg:"port" validate:"omitempty,min=1,max=65535"`
}

// BaseURL 返回不带结尾斜杠的服务地址，例如 http://localhost:2480
func (s Server) BaseURL() string {
	scheme := s.Scheme
	if scheme == "" {
		scheme = "http"
	}
	host := s.Host
	if s.Port > 0 {
		host = net.JoinHostPort(strings.Trim(s.Host, "[]"), strconv.Itoa(s.Port))
	}
	return scheme + "://" + host
}

// Credentials HTTP Basic 鉴权信息
type Credentials struct {
	Name     string `cfg:"name"`
	Password string `cfg:"password"`
}

func (c *Credentials) String() string {
	if c == nil {
		return "<anonymous>"
	}
	return c.Name + ":******"
}

// Params 一次会话的连接参数，按值传递，构造后不应修改
type Params struct {
	Server      Server
	Credentials *Credentials
	Database    string
}

// WithoutCredentials 返回去掉鉴权信息的副本，原值不变
func (p Params) WithoutCredentials() Params {
	p.Credentials = nil
	return p
}

func (p Params) String() string {
	return p.Server.BaseURL() + "/" + p.Database + " (" + p.Credentials.String() + ")"
}
