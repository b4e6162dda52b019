// Package schema 描述服务端返回的类结构，并提供会话级的类结构缓存。
package schema

import (
	"bytes"
	"encoding/json"
	"strconv"

	"github.com/pkg/errors"
)

// Class 服务端存储类的结构
type Class struct {
	Name           string     `json:"name"`
	SuperClass     string     `json:"superClass,omitempty"`
	Alias          string     `json:"alias,omitempty"`
	Abstract       bool       `json:"abstract"`
	StrictMode     bool       `json:"strictMode"`
	Clusters       []int      `json:"clusters,omitempty"`
	DefaultCluster int        `json:"defaultCluster"`
	Records        int64      `json:"records"`
	Properties     []Property `json:"properties,omitempty"`
}

// Property 类中的一个字段
type Property struct {
	Name       string `json:"name"`
	Type       string `json:"type,omitempty"`
	LinkedType string `json:"linkedType,omitempty"`
	Mandatory  bool   `json:"mandatory"`
	Readonly   bool   `json:"readonly"`
	NotNull    bool   `json:"notNull"`
	Min        *Bound `json:"min,omitempty"`
	Max        *Bound `json:"max,omitempty"`
	Collate    string `json:"collate,omitempty"`
}

// HasProperty 判断类是否声明了指定名称的字段，名称区分大小写
func (c *Class) HasProperty(name string) bool {
	if c == nil {
		return false
	}
	for _, p := range c.Properties {
		if p.Name == name {
			return true
		}
	}
	return false
}

// Property 按名称查找字段
func (c *Class) Property(name string) (Property, bool) {
	if c != nil {
		for _, p := range c.Properties {
			if p.Name == name {
				return p, true
			}
		}
	}
	return Property{}, false
}

// Bound 字段的上下界，服务端可能以数字或数字字符串返回
type Bound int64

func (b *Bound) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return errors.Wrap(err, "bound")
		}
		data = []byte(s)
	}
	v, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return errors.Wrapf(err, "invalid bound %q", data)
	}
	*b = Bound(v)
	return nil
}

// Decode 解析服务端返回的类结构
func Decode(data []byte) (*Class, error) {
	var class Class
	if err := json.Unmarshal(data, &class); err != nil {
		return nil, errors.Wrap(err, "decode class schema")
	}
	if class.Name == "" {
		return nil, errors.New("decode class schema: missing class name")
	}
	return &class, nil
}
