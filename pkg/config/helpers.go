package config

import (
	"encoding"
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/glorpus-work/gotx/pkg/emitter"
)

// SetValue sets a scalar or list setting by its configuration key. Lists are
// given comma separated.
func (c *Config) SetValue(key, value string) error {
	field, ok := settingField(&c.Settings, key)
	if !ok {
		return fmt.Errorf("unknown configuration key: %s", key)
	}

	if u, ok := field.Addr().Interface().(encoding.TextUnmarshaler); ok {
		return u.UnmarshalText([]byte(value))
	}
	switch field.Kind() {
	case reflect.String:
		field.SetString(value)
	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean value for %s: %s", key, value)
		}
		field.SetBool(b)
	case reflect.Pointer:
		if field.Type().Elem().Kind() != reflect.Bool {
			return fmt.Errorf("configuration key %s cannot be set", key)
		}
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean value for %s: %s", key, value)
		}
		field.Set(reflect.ValueOf(&b))
	case reflect.Int:
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid integer value for %s: %s", key, value)
		}
		field.SetInt(int64(n))
	case reflect.Slice:
		var items []string
		for _, s := range strings.Split(value, ",") {
			if s = strings.TrimSpace(s); s != "" {
				items = append(items, s)
			}
		}
		field.Set(reflect.ValueOf(items))
	default:
		return fmt.Errorf("configuration key %s cannot be set", key)
	}
	return nil
}

// GetValue returns a setting by its configuration key.
func (c *Config) GetValue(key string) (string, error) {
	field, ok := settingField(&c.Settings, key)
	if !ok {
		return "", fmt.Errorf("unknown configuration key: %s", key)
	}
	return formatValue(field), nil
}

// ToMap returns every setting keyed by its configuration key.
// This is useful for displaying the configuration.
func (c *Config) ToMap() map[string]string {
	result := make(map[string]string)
	v := reflect.ValueOf(&c.Settings).Elem()
	for i := 0; i < v.NumField(); i++ {
		if key := yamlKey(v.Type().Field(i)); key != "" {
			result[key] = formatValue(v.Field(i))
		}
	}
	return result
}

// Keys returns the configuration keys in sorted order.
func (c *Config) Keys() []string {
	m := c.ToMap()
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func settingField(s *Settings, key string) (reflect.Value, bool) {
	v := reflect.ValueOf(s).Elem()
	for i := 0; i < v.NumField(); i++ {
		if yamlKey(v.Type().Field(i)) == key {
			return v.Field(i), true
		}
	}
	return reflect.Value{}, false
}

// yamlKey handles yaml tags with options (e.g., "cache_dir,omitempty").
func yamlKey(f reflect.StructField) string {
	tag := f.Tag.Get("yaml")
	if tag == "" || tag == "-" {
		return ""
	}
	return strings.Split(tag, ",")[0]
}

func formatValue(v reflect.Value) string {
	switch val := v.Interface().(type) {
	case Duration:
		return time.Duration(val).String()
	case *bool:
		if val == nil {
			return ""
		}
		return strconv.FormatBool(*val)
	case []string:
		return strings.Join(val, ",")
	case emitter.MailSettings:
		if val.Host == "" {
			return ""
		}
		return fmt.Sprintf("%s:%d from=%s to=%s", val.Host, val.Port, val.From, strings.Join(val.To, ","))
	}

	switch v.Kind() {
	case reflect.Bool:
		return strconv.FormatBool(v.Bool())
	case reflect.Int:
		return strconv.FormatInt(v.Int(), 10)
	case reflect.String:
		return v.String()
	case reflect.Struct:
		return fmt.Sprintf("%+v", v.Interface())
	default:
		return fmt.Sprintf("%v", v.Interface())
	}
}
