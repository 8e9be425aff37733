package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/go-viper/mapstructure/v2"
	tomlparser "github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

var (
	// ErrInvalidTOML is returned when the TOML file cannot be parsed.
	ErrInvalidTOML = errors.New("invalid TOML")

	// ErrInvalidPermissions is returned when config file has insecure permissions.
	ErrInvalidPermissions = errors.New("config file has insecure permissions")
)

const (
	// ConfigFileName is the name of the configuration file.
	ConfigFileName = "config.toml"

	// ConfigDirName is the directory under the user config dir.
	ConfigDirName = "jouleup"

	// EnvPrefix is the prefix for configuration environment variables.
	EnvPrefix = "JOULEUP_"
)

// Loader loads Settings from layered sources using koanf.
// Precedence order (highest to lowest):
// 1. CLI flags
// 2. Environment variables (JOULEUP_*)
// 3. Config file (~/.config/jouleup/config.toml or --config override)
// 4. Defaults
type Loader struct {
	k          *koanf.Koanf
	configPath string
}

// NewLoader creates a Loader using the default config file location.
func NewLoader() (*Loader, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return nil, errors.Wrap(err, "resolving user config directory")
	}

	return NewLoaderWithPath(filepath.Join(configDir, ConfigDirName, ConfigFileName)), nil
}

// NewLoaderWithPath creates a Loader reading the given config file path.
func NewLoaderWithPath(configPath string) *Loader {
	return &Loader{
		k:          koanf.New("."),
		configPath: configPath,
	}
}

// Load loads and validates settings from all sources with precedence.
func (l *Loader) Load(flags map[string]any) (Settings, error) {
	settings, err := l.LoadWithoutValidation(flags)
	if err != nil {
		return Settings{}, err
	}

	if err := settings.Validate(); err != nil {
		return Settings{}, errors.Wrap(err, "invalid configuration")
	}

	return settings, nil
}

// LoadWithoutValidation loads settings without running validation.
func (l *Loader) LoadWithoutValidation(flags map[string]any) (Settings, error) {
	// Fresh koanf instance so repeated loads don't accumulate state.
	l.k = koanf.New(".")

	if err := l.k.Load(confmap.Provider(defaultsToMap(), "."), nil); err != nil {
		return Settings{}, errors.Wrap(err, "loading defaults")
	}

	if err := l.loadTOMLFile(l.configPath); err != nil && !os.IsNotExist(err) {
		return Settings{}, errors.Wrap(err, "loading config file")
	}

	envOpt := env.Opt{
		Prefix:        EnvPrefix,
		TransformFunc: envTransform,
	}

	if err := l.k.Load(env.Provider(".", envOpt), nil); err != nil {
		return Settings{}, errors.Wrap(err, "loading env vars")
	}

	if len(flags) > 0 {
		if err := l.k.Load(confmap.Provider(flags, "."), nil); err != nil {
			return Settings{}, errors.Wrap(err, "loading flags")
		}
	}

	var settings Settings

	unmarshalConf := koanf.UnmarshalConf{
		Tag:           "koanf",
		DecoderConfig: decoderConfig(&settings),
	}

	if err := l.k.UnmarshalWithConf("", &settings, unmarshalConf); err != nil {
		return Settings{}, errors.Wrap(err, "unmarshaling settings")
	}

	return settings, nil
}

// loadTOMLFile loads a TOML config file into the koanf instance.
func (l *Loader) loadTOMLFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}

	// Reject world-writable files: the config names the directory we
	// escalate privileges for.
	if info.Mode().Perm()&0o002 != 0 {
		return errors.Wrapf(
			ErrInvalidPermissions,
			"%s is world-writable (mode: %s)",
			path,
			info.Mode().Perm(),
		)
	}

	if err := l.k.Load(file.Provider(path), tomlparser.Parser()); err != nil {
		return errors.Wrapf(ErrInvalidTOML, "%s: %v", path, err)
	}

	return nil
}

// envTransform maps environment variable names to flat config keys.
// JOULEUP_INSTALL_DIR → install_dir. Keys stay flat (underscores are part
// of the key, not a nesting separator).
func envTransform(key, value string) (string, any) {
	key = strings.TrimPrefix(key, EnvPrefix)
	key = strings.ToLower(key)

	return key, value
}

// decoderConfig returns a mapstructure decoder config with a duration hook
// so "5m" in TOML/env decodes into time.Duration.
func decoderConfig(result any) *mapstructure.DecoderConfig {
	return &mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			stringToDurationHookFunc(),
			mapstructure.StringToTimeDurationHookFunc(),
		),
		WeaklyTypedInput: true,
		Result:           result,
	}
}

// stringToDurationHookFunc converts strings and numbers to time.Duration.
//
//nolint:ireturn // required by mapstructure.DecodeHookFunc interface
func stringToDurationHookFunc() mapstructure.DecodeHookFunc {
	return func(
		_ reflect.Type,
		t reflect.Type,
		data any,
	) (any, error) {
		if t != reflect.TypeFor[time.Duration]() {
			return data, nil
		}

		switch v := data.(type) {
		case string:
			d, err := time.ParseDuration(v)
			if err != nil {
				return nil, err
			}

			return d, nil

		case int64:
			return time.Duration(v), nil

		case float64:
			return time.Duration(v), nil

		default:
			return data, nil
		}
	}
}
