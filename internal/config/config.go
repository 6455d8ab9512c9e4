// Package config merges probekit.yaml with CLI flags; flags win.
package config

import (
	"fmt"
	"os"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/cobra"
)

type Config struct {
	Spec      string         `koanf:"spec"`
	App       string         `koanf:"app"`
	OutputDir string         `koanf:"output-dir"`
	Env       string         `koanf:"env"`
	Templates TemplateConfig `koanf:"templates"`
	Update    UpdateConfig   `koanf:"update"`
}

type TemplateConfig struct {
	Dir string `koanf:"dir"`
}

type UpdateConfig struct {
	Tags          []string `koanf:"tags"`
	Endpoints     []string `koanf:"endpoints"`
	AddNewClasses bool     `koanf:"add-new-classes"`
	RemoveMissing bool     `koanf:"remove-missing"`
}

// BindCommonFlags binds the flags both commands share.
func BindCommonFlags(cmd *cobra.Command) {
	flags := cmd.Flags()

	flags.StringP("config", "c", "", "Config file path (default: probekit.yaml)")
	flags.StringP("spec", "s", "", "OpenAPI document path or URL")
	flags.StringP("app", "n", "", "Client application name")
	flags.StringP("output-dir", "o", "", "Output directory (default: current directory)")
	flags.String("env", "", "Environment name for the document's first server URL (default: dev)")
	flags.String("templates", "", "Custom templates directory")
}

func Load(cmd *cobra.Command) (*Config, error) {
	k := koanf.New(".")

	configFile, _ := cmd.Flags().GetString("config")
	if configFile == "" {
		if _, err := os.Stat("probekit.yaml"); err == nil {
			configFile = "probekit.yaml"
		}
	}

	if configFile != "" {
		if err := k.Load(file.Provider(configFile), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	flagsMap := buildFlagsMap(cmd)
	if len(flagsMap) > 0 {
		if err := k.Load(confmap.Provider(flagsMap, "."), nil); err != nil {
			return nil, fmt.Errorf("loading flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if cfg.OutputDir == "" {
		cfg.OutputDir = "."
	}
	if cfg.Env == "" {
		cfg.Env = "dev"
	}
	if cfg.App == "" {
		return nil, fmt.Errorf("client application name is required")
	}

	return &cfg, nil
}

func buildFlagsMap(cmd *cobra.Command) map[string]any {
	m := make(map[string]any)

	getString := func(name string) string {
		v, err := cmd.Flags().GetString(name)
		if err != nil {
			return ""
		}
		return v
	}
	getStringSlice := func(name string) []string {
		v, err := cmd.Flags().GetStringSlice(name)
		if err != nil {
			return nil
		}
		return v
	}
	getBool := func(name string) bool {
		v, _ := cmd.Flags().GetBool(name)
		return v
	}

	if v := getString("spec"); v != "" {
		m["spec"] = v
	}
	if v := getString("app"); v != "" {
		m["app"] = v
	}
	if v := getString("output-dir"); v != "" {
		m["output-dir"] = v
	}
	if v := getString("env"); v != "" {
		m["env"] = v
	}
	if v := getString("templates"); v != "" {
		m["templates.dir"] = v
	}
	if v := getStringSlice("tag"); len(v) > 0 {
		m["update.tags"] = v
	}
	if v := getStringSlice("endpoint"); len(v) > 0 {
		m["update.endpoints"] = v
	}
	if cmd.Flags().Changed("add-new-classes") {
		m["update.add-new-classes"] = getBool("add-new-classes")
	}
	if cmd.Flags().Changed("remove-missing") {
		m["update.remove-missing"] = getBool("remove-missing")
	}

	return m
}
