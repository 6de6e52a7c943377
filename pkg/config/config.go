package config

import (
	"fmt"
	"os"
	"reflect"
	"strings"

	"github.com/mcuadros/go-defaults"
	"gopkg.in/yaml.v3"
)

const EnvPrefix = "OMAF"

// Parse fills conf (a pointer to a struct) from, lowest priority first:
// `default` struct tags, the yaml document, and environment variables named
// PREFIX_FIELD_SUBFIELD in upper case.
func Parse(conf any, doc []byte, prefix ...string) error {
	v := reflect.ValueOf(conf)
	if v.Kind() != reflect.Pointer || v.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("config: need a pointer to struct, got %T", conf)
	}
	defaults.SetDefaults(conf)
	if len(doc) > 0 {
		if err := yaml.Unmarshal(doc, conf); err != nil {
			return fmt.Errorf("config: %w", err)
		}
	}
	if len(prefix) == 0 {
		prefix = []string{EnvPrefix}
	}
	return parseEnv(v.Elem(), prefix)
}

// ParseFile is Parse with the yaml document read from path. An empty path
// leaves only defaults and environment.
func ParseFile(conf any, path string, prefix ...string) error {
	var doc []byte
	if path != "" {
		var err error
		if doc, err = os.ReadFile(path); err != nil {
			return fmt.Errorf("config: %w", err)
		}
	}
	return Parse(conf, doc, prefix...)
}

func parseEnv(v reflect.Value, prefix []string) error {
	t := v.Type()
	for i := range t.NumField() {
		ft, fv := t.Field(i), v.Field(i)
		if !ft.IsExported() || ft.Tag.Get("yaml") == "-" {
			continue
		}
		path := append(prefix[:len(prefix):len(prefix)], strings.ToUpper(ft.Name))
		if ft.Type.Kind() == reflect.Struct {
			if err := parseEnv(fv, path); err != nil {
				return err
			}
			continue
		}
		name := strings.Join(path, "_")
		env, ok := os.LookupEnv(name)
		if !ok {
			continue
		}
		// yaml already knows how to turn "2s", "true" or "[a, b]" into the field type
		if err := yaml.Unmarshal([]byte(env), fv.Addr().Interface()); err != nil {
			return fmt.Errorf("config: %s=%q: %w", name, env, err)
		}
	}
	return nil
}
