package cfg

import (
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

var (
	durationType = reflect.TypeOf(time.Duration(0))
	timeType     = reflect.TypeOf(time.Time{})
)

// Bind 将解码后的 map 按 cfg tag 绑定到 object 指向的结构体
//
// 字段名匹配不区分大小写，没有 cfg tag 时使用字段名，cfg:"-" 的字段被忽略。
// 字符串会按目标类型解析，便于 INI 这类只有字符串值的格式。
func Bind(tree map[string]interface{}, object interface{}) error {
	rv := reflect.ValueOf(object)
	if rv.Kind() != reflect.Ptr || rv.IsNil() {
		return errors.New("object must be a non-nil pointer")
	}
	return bindValue(tree, rv.Elem(), "")
}

func bindValue(src interface{}, dst reflect.Value, path string) error {
	if src == nil {
		return nil
	}

	if dst.Kind() == reflect.Ptr {
		if dst.IsNil() {
			dst.Set(reflect.New(dst.Type().Elem()))
		}
		return bindValue(src, dst.Elem(), path)
	}

	sv := reflect.ValueOf(src)
	if dst.Type() == durationType {
		return bindDuration(sv, dst, path)
	}
	if dst.Type() == timeType {
		return bindTime(sv, dst, path)
	}

	switch dst.Kind() {
	case reflect.Struct:
		return bindStruct(sv, dst, path)
	case reflect.Map:
		return bindMap(sv, dst, path)
	case reflect.Slice:
		return bindSlice(sv, dst, path)
	case reflect.Interface:
		if dst.Type().NumMethod() == 0 {
			dst.Set(sv)
			return nil
		}
	}

	if sv.Kind() == reflect.String && dst.Kind() != reflect.String {
		return bindScalarString(sv.String(), dst, path)
	}
	if sv.Type().AssignableTo(dst.Type()) {
		dst.Set(sv)
		return nil
	}
	if isNumber(sv.Kind()) && isNumber(dst.Kind()) {
		dst.Set(sv.Convert(dst.Type()))
		return nil
	}
	if sv.Kind() == dst.Kind() && sv.Type().ConvertibleTo(dst.Type()) {
		dst.Set(sv.Convert(dst.Type()))
		return nil
	}
	return errors.Errorf("%s: cannot convert %v to %v", pathName(path), sv.Type(), dst.Type())
}

func bindStruct(sv reflect.Value, dst reflect.Value, path string) error {
	if sv.Kind() != reflect.Map {
		return errors.Errorf("%s: expect a map for %v, got %v", pathName(path), dst.Type(), sv.Type())
	}

	keys := make(map[string]reflect.Value, sv.Len())
	for _, key := range sv.MapKeys() {
		keys[strings.ToLower(key.String())] = key
	}

	rt := dst.Type()
	for i := 0; i < rt.NumField(); i++ {
		field := rt.Field(i)
		fieldValue := dst.Field(i)
		if !fieldValue.CanSet() {
			continue
		}
		name := field.Tag.Get("cfg")
		if name == "-" {
			continue
		}
		if name == "" {
			name = field.Name
		}
		key, ok := keys[strings.ToLower(name)]
		if !ok {
			continue
		}
		if err := bindValue(sv.MapIndex(key).Interface(), fieldValue, joinPath(path, name)); err != nil {
			return err
		}
	}
	return nil
}

func bindMap(sv reflect.Value, dst reflect.Value, path string) error {
	if sv.Kind() != reflect.Map {
		return errors.Errorf("%s: expect a map, got %v", pathName(path), sv.Type())
	}
	if dst.Type().Key().Kind() != reflect.String {
		return errors.Errorf("%s: map key must be string", pathName(path))
	}
	if dst.IsNil() {
		dst.Set(reflect.MakeMap(dst.Type()))
	}
	for _, key := range sv.MapKeys() {
		name := key.String()
		item := reflect.New(dst.Type().Elem()).Elem()
		if err := bindValue(sv.MapIndex(key).Interface(), item, joinPath(path, name)); err != nil {
			return err
		}
		dst.SetMapIndex(reflect.ValueOf(name).Convert(dst.Type().Key()), item)
	}
	return nil
}

func bindSlice(sv reflect.Value, dst reflect.Value, path string) error {
	// INI 中的列表以逗号分隔
	if sv.Kind() == reflect.String {
		parts := strings.Split(sv.String(), ",")
		items := make([]interface{}, 0, len(parts))
		for _, part := range parts {
			if part = strings.TrimSpace(part); part != "" {
				items = append(items, part)
			}
		}
		sv = reflect.ValueOf(items)
	}
	if sv.Kind() != reflect.Slice && sv.Kind() != reflect.Array {
		return errors.Errorf("%s: expect a list, got %v", pathName(path), sv.Type())
	}

	slice := reflect.MakeSlice(dst.Type(), sv.Len(), sv.Len())
	for i := 0; i < sv.Len(); i++ {
		if err := bindValue(sv.Index(i).Interface(), slice.Index(i), joinPath(path, strconv.Itoa(i))); err != nil {
			return err
		}
	}
	dst.Set(slice)
	return nil
}

func bindDuration(sv reflect.Value, dst reflect.Value, path string) error {
	switch {
	case sv.Kind() == reflect.String:
		d, err := time.ParseDuration(sv.String())
		if err != nil {
			return errors.Wrapf(err, "%s: invalid duration", pathName(path))
		}
		dst.SetInt(int64(d))
	case sv.CanInt():
		dst.SetInt(sv.Int())
	case sv.CanFloat():
		// 浮点数按秒处理
		dst.SetInt(int64(sv.Float() * float64(time.Second)))
	default:
		return errors.Errorf("%s: cannot convert %v to duration", pathName(path), sv.Type())
	}
	return nil
}

func bindTime(sv reflect.Value, dst reflect.Value, path string) error {
	if t, ok := sv.Interface().(time.Time); ok {
		dst.Set(reflect.ValueOf(t))
		return nil
	}
	if sv.Kind() != reflect.String {
		return errors.Errorf("%s: cannot convert %v to time", pathName(path), sv.Type())
	}
	t, err := time.Parse(time.RFC3339, sv.String())
	if err != nil {
		return errors.Wrapf(err, "%s: invalid time", pathName(path))
	}
	dst.Set(reflect.ValueOf(t))
	return nil
}

func bindScalarString(s string, dst reflect.Value, path string) error {
	var err error
	switch {
	case dst.Kind() == reflect.Bool:
		var v bool
		if v, err = strconv.ParseBool(s); err == nil {
			dst.SetBool(v)
		}
	case dst.CanInt():
		var v int64
		if v, err = strconv.ParseInt(s, 0, dst.Type().Bits()); err == nil {
			dst.SetInt(v)
		}
	case dst.CanUint():
		var v uint64
		if v, err = strconv.ParseUint(s, 0, dst.Type().Bits()); err == nil {
			dst.SetUint(v)
		}
	case dst.CanFloat():
		var v float64
		if v, err = strconv.ParseFloat(s, dst.Type().Bits()); err == nil {
			dst.SetFloat(v)
		}
	default:
		return errors.Errorf("%s: cannot convert string to %v", pathName(path), dst.Type())
	}
	return errors.Wrapf(err, "%s: invalid value %q", pathName(path), s)
}

func isNumber(kind reflect.Kind) bool {
	switch kind {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

func joinPath(path, name string) string {
	if path == "" {
		return name
	}
	return path + "." + name
}

func pathName(path string) string {
	if path == "" {
		return "<root>"
	}
	return path
}
