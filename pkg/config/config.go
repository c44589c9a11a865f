package config

import (
	"encoding/json"
	"path/filepath"
	"strings"

	"github.com/arthur-debert/npkg/pkg/errors"
	"github.com/arthur-debert/npkg/pkg/logging"
	"github.com/arthur-debert/npkg/pkg/paths"
	"github.com/arthur-debert/npkg/pkg/types"
	"github.com/go-viper/mapstructure/v2"
	kjson "github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
	"github.com/rs/zerolog"
)

// EnvPrefix prefixes environment overrides, e.g. NPKG_FLAKE
const EnvPrefix = "NPKG_"

// Config holds the preferences of one invocation
type Config struct {
	SystemConfig string `koanf:"systemconfig" json:"systemconfig"`
	HomeConfig   string `koanf:"homeconfig" json:"homeconfig"`
	Flake        string `koanf:"flake" json:"flake,omitempty"`
	Channel      string `koanf:"channel" json:"channel,omitempty"`
	Elevate      string `koanf:"elevate" json:"elevate,omitempty"`

	// Source is the preference file that was read, empty when none was
	Source string `koanf:"-" json:"-"`
}

// Locator returns the document locations of c
func (c *Config) Locator() types.Locator {
	return types.Locator{
		SystemConfig: c.SystemConfig,
		UserConfig:   c.HomeConfig,
		Flake:        c.Flake,
	}
}

// Load reads the preferences. It only fails when the built-in defaults
// themselves cannot be loaded.
func Load(fsys types.FS, p paths.Paths) (*Config, error) {
	logger := logging.GetLogger("config")

	k, err := defaults(p)
	if err != nil {
		return nil, err
	}

	source := preferenceFile(fsys, p, logger)
	if source != "" {
		if err := loadFile(k, fsys, source); err != nil {
			logger.Warn().Err(err).Str("path", source).Msg("Failed to parse config, using default values")
			source = ""
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	}), nil); err != nil {
		return nil, errors.Wrap(err, errors.ErrConfigLoad, "failed to load environment overrides")
	}

	cfg, err := unmarshal(k)
	if err != nil {
		return nil, err
	}
	cfg.Source = source
	cfg.SystemConfig = paths.ExpandHome(cfg.SystemConfig)
	cfg.HomeConfig = paths.ExpandHome(cfg.HomeConfig)

	if _, err := fsys.Stat(cfg.SystemConfig); err != nil {
		logger.Warn().
			Str("systemconfig", cfg.SystemConfig).
			Msg("Config file is invalid, using default values")
		base, err := defaults(p)
		if err != nil {
			return nil, err
		}
		def, err := unmarshal(base)
		if err != nil {
			return nil, err
		}
		cfg.SystemConfig = def.SystemConfig
		cfg.HomeConfig = def.HomeConfig
	}

	logger.Debug().
		Str("source", cfg.Source).
		Str("systemconfig", cfg.SystemConfig).
		Str("homeconfig", cfg.HomeConfig).
		Str("flake", cfg.Flake).
		Msg("Preferences loaded")
	return cfg, nil
}

// defaults builds the embedded and computed default layers
func defaults(p paths.Paths) (*koanf.Koanf, error) {
	k := koanf.New(".")
	if err := k.Load(&rawBytesProvider{bytes: defaultConfig}, toml.Parser()); err != nil {
		return nil, errors.Wrap(err, errors.ErrConfigLoad, "failed to load built-in defaults")
	}
	computed := map[string]interface{}{
		"homeconfig": p.DefaultHomeConfig(),
	}
	if err := k.Load(confmap.Provider(computed, "."), nil); err != nil {
		return nil, errors.Wrap(err, errors.ErrConfigLoad, "failed to load computed defaults")
	}
	return k, nil
}

func loadFile(k *koanf.Koanf, fsys types.FS, path string) error {
	data, err := fsys.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, errors.ErrConfigLoad, "failed to read %s", path)
	}
	fk := koanf.New(".")
	if err := fk.Load(&rawBytesProvider{bytes: data}, kjson.Parser()); err != nil {
		return errors.Wrapf(err, errors.ErrConfigParse, "failed to parse %s", path).
			WithDetail(errors.DetailPath, path)
	}
	return k.Merge(fk)
}

func unmarshal(k *koanf.Koanf) (*Config, error) {
	var cfg Config
	err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			Result:           &cfg,
			WeaklyTypedInput: true,
			TagName:          "koanf",
		},
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrConfigParse, "failed to decode preferences")
	}
	return &cfg, nil
}

// preferenceFile returns the file to read: the user's, else the system's.
// When neither exists a user file holding the defaults is created.
func preferenceFile(fsys types.FS, p paths.Paths, logger zerolog.Logger) string {
	user := p.UserPreferenceFile()
	if _, err := fsys.Stat(user); err == nil {
		return user
	}
	if _, err := fsys.Stat(p.SystemPreferenceFile()); err == nil {
		return p.SystemPreferenceFile()
	}

	if err := writeDefaults(fsys, p, user); err != nil {
		logger.Warn().Err(err).Str("path", user).Msg("Failed to create config file")
		return ""
	}
	logger.Info().Str("path", user).Msg("Created config file")
	return user
}

func writeDefaults(fsys types.FS, p paths.Paths, path string) error {
	base, err := defaults(p)
	if err != nil {
		return err
	}
	cfg, err := unmarshal(base)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(map[string]string{
		"systemconfig": cfg.SystemConfig,
		"homeconfig":   cfg.HomeConfig,
	}, "", "  ")
	if err != nil {
		return errors.Wrap(err, errors.ErrInternal, "failed to encode default config")
	}
	if err := fsys.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.Wrapf(err, errors.ErrConfigLoad, "failed to create %s", filepath.Dir(path))
	}
	if err := fsys.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return errors.Wrapf(err, errors.ErrConfigLoad, "failed to write %s", path)
	}
	return nil
}
