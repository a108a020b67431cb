package server

import (
	"os"

	"gopkg.in/yaml.v3"
)

// load storefront config from a file.
//
// args:
//   - filepath: filepath refers a config file.
//
// returns *Config, error:
//
//	When loading success, returns `(*Config, nil)`.
//	Otherwise, returns `(nil, error)`.
//
// It panics on misconfiguration, as TrySeal does.
func LoadConfig(filepath string) (*Config, error) {
	content, err := os.ReadFile(filepath)
	if err != nil {
		return nil, err
	}
	return Unmarshal(content)
}

// Unmarshal parses yaml after `${NAME}` are replaced with environment variables.
func Unmarshal(conf []byte) (out *Config, err error) {
	expanded := os.ExpandEnv(string(conf))

	var _out *ConfigMarshall
	if err := yaml.Unmarshal([]byte(expanded), &_out); err != nil {
		return nil, err
	}
	if _out == nil {
		_out = &ConfigMarshall{}
	}
	out = TrySeal(_out)
	return out, nil
}
