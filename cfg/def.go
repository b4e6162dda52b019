package cfg

import (
	"reflect"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// SetDefaults 为零值字段设置 def tag 指定的默认值
//
// 嵌套结构体递归处理；值为 nil 的结构体指针保持 nil，表示该子配置未提供，
// 由使用方决定回退行为。
func SetDefaults(object interface{}) error {
	rv := reflect.ValueOf(object)
	if !rv.IsValid() || rv.Kind() != reflect.Ptr || rv.IsNil() {
		return errors.New("object must be a non-nil pointer")
	}
	return setDefaults(rv.Elem())
}

func setDefaults(rv reflect.Value) error {
	if rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct || rv.Type() == timeType {
		return nil
	}

	rt := rv.Type()
	for i := 0; i < rt.NumField(); i++ {
		field := rt.Field(i)
		fieldValue := rv.Field(i)
		if !fieldValue.CanSet() {
			continue
		}

		if err := setDefaults(fieldValue); err != nil {
			return errors.WithMessagef(err, "field %s", field.Name)
		}

		defTag, ok := field.Tag.Lookup("def")
		if !ok || defTag == "" || !fieldValue.IsZero() {
			continue
		}

		if fieldValue.Kind() == reflect.Ptr {
			fieldValue.Set(reflect.New(fieldValue.Type().Elem()))
			fieldValue = fieldValue.Elem()
		}
		if err := setDefaultValue(fieldValue, defTag); err != nil {
			return errors.WithMessagef(err, "field %s", field.Name)
		}
	}

	return nil
}

func setDefaultValue(rv reflect.Value, defValue string) error {
	if rv.Type() == durationType {
		d, err := time.ParseDuration(defValue)
		if err != nil {
			return errors.Wrapf(err, "invalid duration value %q", defValue)
		}
		rv.SetInt(int64(d))
		return nil
	}
	if rv.Type() == timeType {
		t, err := time.Parse(time.RFC3339, defValue)
		if err != nil {
			return errors.Wrapf(err, "invalid time value %q", defValue)
		}
		rv.Set(reflect.ValueOf(t))
		return nil
	}

	switch rv.Kind() {
	case reflect.String:
		rv.SetString(defValue)
		return nil
	case reflect.Slice:
		// 逗号分隔的列表
		parts := strings.Split(defValue, ",")
		slice := reflect.MakeSlice(rv.Type(), len(parts), len(parts))
		for i, part := range parts {
			if err := setDefaultValue(slice.Index(i), strings.TrimSpace(part)); err != nil {
				return errors.WithMessagef(err, "element %d", i)
			}
		}
		rv.Set(slice)
		return nil
	case reflect.Bool, reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return bindScalarString(defValue, rv, "def")
	}

	return errors.Errorf("unsupported default value type %v", rv.Type())
}
