package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/fleetops/dispatchd/core/engine"
	"github.com/fleetops/dispatchd/core/metrics"
	"github.com/fleetops/dispatchd/infra/notify"
)

type Config struct {
	Storage StorageConfig  `json:"storage"`
	Audit   AuditConfig    `json:"audit"`
	Engine  engine.Config  `json:"engine"`
	Metrics metrics.Config `json:"metrics"`
	Notify  notify.Config  `json:"notify"`
	API     APIConfig      `json:"api"`
}

// Load reads the configuration file at path and applies FD_* environment
// overrides, e.g. FD_STORAGE__BACKEND=sqlite.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	ext := strings.ToLower(filepath.Ext(path))
	var parser koanf.Parser
	switch ext {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		return nil, fmt.Errorf("unsupported config format: %s", ext)
	}
	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, err
	}
	// Optional environment overrides
	if err := k.Load(env.Provider("FD_", "__", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), "fd_")
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.Storage.SetDefaults()
	cfg.Audit.SetDefaults()
	cfg.Engine.SetDefaults()
	cfg.API.SetDefaults()
	cfg.Notify.SetDefaults()
	if err := cfg.Storage.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Audit.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Notify.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
