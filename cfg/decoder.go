package cfg

import (
	"encoding/json"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
	"gopkg.in/ini.v1"
	"gopkg.in/yaml.v3"
)

// Decoder 将配置文件内容解析为通用的 map 结构
type Decoder interface {
	Decode(data []byte) (map[string]interface{}, error)
}

// DecoderFunc 函数适配器
type DecoderFunc func(data []byte) (map[string]interface{}, error)

func (f DecoderFunc) Decode(data []byte) (map[string]interface{}, error) {
	return f(data)
}

var decoders = map[string]Decoder{
	"yaml": DecoderFunc(decodeYaml),
	"yml":  DecoderFunc(decodeYaml),
	"toml": DecoderFunc(decodeToml),
	"ini":  DecoderFunc(decodeIni),
	"json": DecoderFunc(decodeJson),
}

// NewDecoder 根据格式名（yaml/yml/toml/ini/json）返回解码器
func NewDecoder(format string) (Decoder, error) {
	decoder, ok := decoders[strings.ToLower(format)]
	if !ok {
		return nil, errors.Errorf("unsupported config format %q", format)
	}
	return decoder, nil
}

func decodeYaml(data []byte) (map[string]interface{}, error) {
	result := map[string]interface{}{}
	if err := yaml.Unmarshal(data, &result); err != nil {
		return nil, errors.Wrap(err, "failed to decode YAML")
	}
	return result, nil
}

func decodeToml(data []byte) (map[string]interface{}, error) {
	result := map[string]interface{}{}
	if err := toml.Unmarshal(data, &result); err != nil {
		return nil, errors.Wrap(err, "failed to decode TOML")
	}
	return result, nil
}

func decodeJson(data []byte) (map[string]interface{}, error) {
	result := map[string]interface{}{}
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, errors.Wrap(err, "failed to decode JSON")
	}
	return result, nil
}

// decodeIni 默认 section 的键位于顶层，section 名按 . 拆分为嵌套层级，
// 所有值保持字符串，由 Bind 按目标类型转换
func decodeIni(data []byte) (map[string]interface{}, error) {
	file, err := ini.LoadSources(ini.LoadOptions{
		AllowBooleanKeys:         true,
		SpaceBeforeInlineComment: true,
	}, data)
	if err != nil {
		return nil, errors.Wrap(err, "failed to decode INI")
	}

	result := map[string]interface{}{}
	for _, section := range file.Sections() {
		node := result
		if section.Name() != ini.DefaultSection {
			for _, part := range strings.Split(section.Name(), ".") {
				child, ok := node[part].(map[string]interface{})
				if !ok {
					child = map[string]interface{}{}
					node[part] = child
				}
				node = child
			}
		}
		for _, key := range section.Keys() {
			node[key.Name()] = key.String()
		}
	}
	return result, nil
}
