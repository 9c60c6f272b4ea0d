package config

import (
	_ "embed"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix marks environment variables that override settings. Nested keys
// are separated by a double underscore: PROVISION_AUR_HELPER__NAME=paru.
const EnvPrefix = "PROVISION_"

//go:embed embedded/defaults.yaml
var defaultConfig []byte

// rawBytesProvider feeds embedded bytes to koanf.
type rawBytesProvider struct{ bytes []byte }

func (r *rawBytesProvider) ReadBytes() ([]byte, error) { return r.bytes, nil }
func (r *rawBytesProvider) Read() (map[string]any, error) {
	return nil, errors.New("not implemented")
}

// LoadOptions selects the optional layers on top of the embedded defaults.
type LoadOptions struct {
	// File is an optional user settings file (.yaml, .yml or .toml).
	File string
	// Overrides are dotted keys set from the command line; they win over
	// everything else.
	Overrides map[string]any
}

// LoadConfig builds Settings from, in increasing priority: embedded defaults,
// the user file, PROVISION_* environment variables and explicit overrides.
func LoadConfig(opts LoadOptions) (*Settings, error) {
	k := koanf.New(".") // "." separates nested keys, e.g. aur_helper.name

	// 1. Embedded defaults
	if err := k.Load(&rawBytesProvider{bytes: defaultConfig}, yaml.Parser()); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. User file
	if opts.File != "" {
		parser, err := parserFor(opts.File)
		if err != nil {
			return nil, err
		}
		if err := k.Load(file.Provider(opts.File), parser); err != nil {
			return nil, fmt.Errorf("failed to load config from %s: %w", opts.File, err)
		}
	}

	// 3. Environment: PROVISION_AUR_HELPER__NAME becomes aur_helper.name
	err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "__", ".")
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Command line
	if len(opts.Overrides) > 0 {
		if err := k.Load(confmap.Provider(opts.Overrides, "."), nil); err != nil {
			return nil, fmt.Errorf("failed to load overrides: %w", err)
		}
	}

	// Decode the merged tree; comma separated env values become lists
	var cfg Settings
	unmarshalConf := koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			Result:           &cfg,
			WeaklyTypedInput: true,
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToSliceHookFunc(","),
			),
		},
	}
	if err := k.UnmarshalWithConf("", &cfg, unmarshalConf); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the run cannot work with.
func (s *Settings) Validate() error {
	var problems []string
	if s.Dotfiles.Dir == "" {
		problems = append(problems, "dotfiles.dir is required")
	}
	if s.Dotfiles.Manifest == "" {
		problems = append(problems, "dotfiles.manifest is required")
	}
	if s.Repository.Name == "" {
		problems = append(problems, "repository.name is required")
	}
	if s.Repository.Key == "" {
		problems = append(problems, "repository.key is required")
	}
	if s.Repository.ConfigFile == "" {
		problems = append(problems, "repository.config_file is required")
	}
	if s.AURHelper.Name == "" {
		problems = append(problems, "aur_helper.name is required")
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

func parserFor(path string) (koanf.Parser, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Parser(), nil
	case ".toml":
		return toml.Parser(), nil
	default:
		return nil, fmt.Errorf("unsupported config format: %s", path)
	}
}
