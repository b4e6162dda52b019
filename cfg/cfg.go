// Package cfg 从配置文件加载选项结构体。
//
// 加载分三步：按扩展名选择解码器把文件解析为 map，按 cfg tag 绑定到结构体，
// 再用 def tag 补齐零值字段，最后按 validate tag 校验。
package cfg

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// LoadFile 读取配置文件并填充 object，格式由文件扩展名决定
func LoadFile(path string, object interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "read config file %s", path)
	}
	format := strings.TrimPrefix(filepath.Ext(path), ".")
	if err := Load(data, format, object); err != nil {
		return errors.WithMessagef(err, "load config file %s", path)
	}
	return nil
}

// Load 按指定格式解析 data 并填充 object
func Load(data []byte, format string, object interface{}) error {
	decoder, err := NewDecoder(format)
	if err != nil {
		return err
	}
	tree, err := decoder.Decode(data)
	if err != nil {
		return err
	}
	if err := Bind(tree, object); err != nil {
		return errors.WithMessage(err, "bind config")
	}
	if err := SetDefaults(object); err != nil {
		return errors.WithMessage(err, "set defaults")
	}
	return Validate(object)
}
