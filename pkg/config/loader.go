package config

import (
	"os"
	"path/filepath"
	"reflect"

	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"

	"github.com/dotty-sh/dotty/pkg/errors"
	"github.com/dotty-sh/dotty/pkg/logging"
	"github.com/dotty-sh/dotty/pkg/paths"
)

// Load reads the config file at path, resolves its module imports
// recursively, and returns the merged configuration. File sources are
// resolved to absolute paths relative to the file declaring them.
func Load(path string) (*Config, error) {
	visited := make(map[string]bool)
	cfg, err := load(path, visited)
	if err != nil {
		return nil, err
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func load(path string, visited map[string]bool) (*Config, error) {
	logger := logging.GetLogger("config")

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrConfigLoad, "resolving %s", path)
	}
	if visited[abs] {
		return nil, errors.Newf(errors.ErrConfigValid, "import cycle through %s", abs)
	}
	visited[abs] = true

	if _, err := os.Stat(abs); err != nil {
		return nil, errors.Wrapf(err, errors.ErrConfigLoad, "config file %s", abs)
	}

	k := koanf.New(".")
	if err := k.Load(file.Provider(abs), toml.Parser()); err != nil {
		return nil, errors.Wrapf(err, errors.ErrConfigParse, "parsing %s", abs)
	}

	cfg, err := unmarshal(k)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrConfigParse, "decoding %s", abs)
	}

	// A disabled module contributes nothing, imports included.
	if cfg.Module.Disable {
		logger.Debug().Str("path", abs).Msg("Module disabled, skipping")
		return New(), nil
	}

	dir := filepath.Dir(abs)
	resolveSources(cfg, dir)

	merged := New()
	if err := Merge(merged, cfg); err != nil {
		return nil, errors.Wrapf(err, errors.ErrConfigValid, "in %s", abs)
	}

	for _, imp := range cfg.Module.Import {
		impPath := imp
		if !filepath.IsAbs(impPath) {
			impPath = filepath.Join(dir, impPath)
		}
		logger.Debug().Str("path", impPath).Msg("Loading module import")
		sub, err := load(impPath, visited)
		if err != nil {
			return nil, err
		}
		if err := Merge(merged, sub); err != nil {
			return nil, errors.Wrapf(err, errors.ErrConfigValid, "merging import %s", imp)
		}
	}

	merged.Module = Module{}
	return merged, nil
}

// LoadBytes parses a config from raw TOML, used for embedded defaults
// and tests. No module imports are followed.
func LoadBytes(data []byte) (*Config, error) {
	k := koanf.New(".")
	if err := k.Load(rawbytes.Provider(data), toml.Parser()); err != nil {
		return nil, errors.Wrap(err, errors.ErrConfigParse, "parsing config bytes")
	}
	return unmarshal(k)
}

func unmarshal(k *koanf.Koanf) (*Config, error) {
	cfg := New()
	conf := koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			Result:           cfg,
			WeaklyTypedInput: true,
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
				shorthandHookFunc(),
			),
		},
	}
	if err := k.UnmarshalWithConf("", cfg, conf); err != nil {
		return nil, err
	}
	return cfg, nil
}

// shorthandHookFunc lets files and hooks be declared as bare strings:
// a string file value is its source, a string hook value its command.
func shorthandHookFunc() mapstructure.DecodeHookFunc {
	fileType := reflect.TypeOf(File{})
	hookType := reflect.TypeOf(Hook{})

	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if from.Kind() != reflect.String {
			return data, nil
		}
		s := data.(string)
		switch to {
		case fileType:
			return File{Source: s}, nil
		case hookType:
			return Hook{Command: s}, nil
		}
		return data, nil
	}
}

// resolveSources makes file sources absolute relative to the config dir
func resolveSources(cfg *Config, dir string) {
	for dest, f := range cfg.Files {
		if f.Source == "" {
			continue
		}
		f.Source = paths.ExpandHome(f.Source)
		if !filepath.IsAbs(f.Source) {
			f.Source = filepath.Join(dir, f.Source)
		}
		cfg.Files[dest] = f
	}
}
