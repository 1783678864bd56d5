package main

import (
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/wippyai/fieldoffsets/errors"
)

const defaultConfigFile = ".fieldoffsets.yaml"

// fileConfig is the on-disk configuration. Flags set on the command line
// take precedence over it.
type fileConfig struct {
	Method string   `yaml:"method"`
	Output string   `yaml:"output"`
	Tags   []string `yaml:"tags"`
	Types  []string `yaml:"types"`
	GOARCH string   `yaml:"goarch"`
}

// loadConfig reads path, or the default config file when path is empty.
// A missing default file yields an empty config.
func loadConfig(path string) (*fileConfig, error) {
	explicit := path != ""
	if !explicit {
		path = defaultConfigFile
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !explicit {
			return &fileConfig{}, nil
		}
		return nil, errors.Wrap(errors.PhaseConfig, errors.KindNotFound, err, "read config file")
	}

	var cfg fileConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.New(errors.PhaseConfig, errors.KindInvalidData).
			Path(path).
			Cause(err).
			Detail("parse YAML").
			Build()
	}
	logger.Debug("loaded config", zap.String("path", path))
	return &cfg, nil
}

// applyConfig fills every flag the user did not set from the config file
func applyConfig(cmd *cobra.Command) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	values := map[string]string{
		"method": cfg.Method,
		"output": cfg.Output,
		"tags":   strings.Join(cfg.Tags, ","),
		"type":   strings.Join(cfg.Types, ","),
		"goarch": cfg.GOARCH,
	}
	flags := cmd.Flags()
	for name, v := range values {
		f := flags.Lookup(name)
		if v == "" || f == nil || f.Changed {
			continue
		}
		if err := flags.Set(name, v); err != nil {
			return errors.Wrap(errors.PhaseConfig, errors.KindInvalidData, err, "apply config value "+name)
		}
	}
	return nil
}
