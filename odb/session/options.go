package session

import (
	"github.com/hatlonely/odbx/cfg"
	"github.com/hatlonely/odbx/log/logger"
	"github.com/hatlonely/odbx/odb/client"
	"github.com/pkg/errors"
)

type Options struct {
	Server client.Server `cfg:"server"`

	// Credentials 为空时不发送鉴权头
	Credentials *client.Credentials `cfg:"credentials"`

	Database string `cfg:"database" validate:"required"`

	// QueryLimit Query 默认返回的最大记录数
	QueryLimit int `cfg:"queryLimit" def:"100000" validate:"min=1"`

	// FetchPlan Query 默认的 fetch plan
	FetchPlan string `cfg:"fetchPlan" def:"*:-1"`

	Client client.ClientOptions `cfg:"client"`

	// Logger 为空时使用全局默认日志器
	Logger *logger.SLogOptions `cfg:"logger"`
}

// Params 返回选项对应的连接参数
func (o *Options) Params() client.Params {
	var creds *client.Credentials
	if o.Credentials != nil {
		c := *o.Credentials
		creds = &c
	}
	return client.Params{
		Server:      o.Server,
		Credentials: creds,
		Database:    o.Database,
	}
}

// LoadOptions 从 yaml/toml/ini/json 文件加载会话选项
func LoadOptions(path string) (*Options, error) {
	var options Options
	if err := cfg.LoadFile(path, &options); err != nil {
		return nil, errors.WithMessage(err, "failed to load session options")
	}
	return &options, nil
}
