package config

import (
	"bytes"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/timescale-go/timescale/pkg/errors"
)

// EnvPrefix prefixes environment overrides: TIMESCALE_ALIGN_METHOD sets
// align.method.
const EnvPrefix = "TIMESCALE"

// NewViper returns a viper instance reading TIMESCALE_* variables.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// BindFlags binds every flag of fs named in keys to its configuration key.
// Only flags set on the command line take precedence over the environment
// and the file.
func BindFlags(v *viper.Viper, fs *pflag.FlagSet, keys map[string]string) error {
	var err error
	fs.VisitAll(func(f *pflag.Flag) {
		key, ok := keys[f.Name]
		if !ok || err != nil {
			return
		}
		if berr := v.BindPFlag(key, f); berr != nil {
			err = errors.Wrap(berr, errors.ErrorTypeConfig, "failed to bind flag").
				WithDetail("flag", f.Name)
		}
	})
	return err
}

// Resolve builds the effective configuration: defaults, then the file at
// path (if any), then TIMESCALE_* variables, then flags bound to v. The
// result is validated.
func Resolve(v *viper.Viper, path string) (*Config, error) {
	base := NewDefault()
	if path != "" {
		if err := Load(path, base); err != nil {
			return nil, err
		}
	}

	// Feeding the file layer through viper registers every key, so
	// AutomaticEnv can override keys the file never mentions.
	data, err := yaml.Marshal(base)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to marshal configuration")
	}
	v.SetConfigType("yaml")
	if err := v.ReadConfig(bytes.NewReader(data)); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to read configuration")
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to decode configuration")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
