package config

import (
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/stevedore-sh/stevedore/pkg/consts"
	"github.com/stevedore-sh/stevedore/pkg/provision"
	"gopkg.in/yaml.v3"
)

type (
	// ClickHouse holds connection settings for the target deployment.
	ClickHouse struct {
		// URL is the connection string ("host:port" or a clickhouse:// DSN)
		URL string `yaml:"url,omitempty"`

		// Cluster is the cluster name for distributed DDL, if any
		Cluster string `yaml:"cluster,omitempty"`

		// CAFile, CertFile and KeyFile enable mutual TLS when all are set
		CAFile   string `yaml:"cafile,omitempty"`
		CertFile string `yaml:"certfile,omitempty"`
		KeyFile  string `yaml:"keyfile,omitempty"`
	}

	// Defaults are the batch option defaults applied when a flag or
	// directive does not override them.
	Defaults struct {
		SourceNamespace  string `yaml:"source_namespace,omitempty"`
		Namespace        string `yaml:"namespace,omitempty"`
		Promote          bool   `yaml:"promote,omitempty"`
		Persist          bool   `yaml:"persist,omitempty"`
		Append           string `yaml:"append,omitempty"`
		PreserveLabels   bool   `yaml:"preserve_labels,omitempty"`
		LowercaseColumns bool   `yaml:"lowercase_columns,omitempty"`
		FastPromote      bool   `yaml:"fast_promote,omitempty"`
		WidenText        bool   `yaml:"widen_text,omitempty"`
		WidenThreshold   int    `yaml:"widen_threshold,omitempty"`
	}

	// Config is the project configuration loaded from stevedore.yaml.
	Config struct {
		ClickHouse ClickHouse `yaml:"clickhouse"`
		Defaults   Defaults   `yaml:"defaults"`
	}
)

// LoadConfig parses a configuration from the provided io.Reader and fills
// in defaults for unset values.
//
// Example:
//
//	cfg, err := config.LoadConfig(strings.NewReader(yamlData))
//	if err != nil {
//	    return err
//	}
func LoadConfig(r io.Reader) (*Config, error) {
	var cfg Config
	if err := yaml.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}

	cfg.applyDefaults()
	return &cfg, nil
}

// LoadConfigFile loads a configuration from the specified file path.
func LoadConfigFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open file: %s", path)
	}
	defer func() { _ = f.Close() }()

	return LoadConfig(f)
}

// Default returns the configuration used when no stevedore.yaml exists.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.ClickHouse.URL == "" {
		c.ClickHouse.URL = consts.DefaultURL
	}
	if c.Defaults.Namespace == "" {
		c.Defaults.Namespace = consts.DefaultNamespace
	}
	if c.Defaults.SourceNamespace == "" {
		c.Defaults.SourceNamespace = c.Defaults.Namespace
	}
	if c.Defaults.Append == "" {
		c.Defaults.Append = "none"
	}
	if c.Defaults.WidenThreshold == 0 {
		c.Defaults.WidenThreshold = consts.DefaultWidenThreshold
	}
}

// BatchOptions converts the configured defaults into provisioning options.
func (c *Config) BatchOptions() (provision.Options, error) {
	mode, err := provision.ParseAppendMode(c.Defaults.Append)
	if err != nil {
		return provision.Options{}, err
	}

	return provision.Options{
		SourceNamespace:  c.Defaults.SourceNamespace,
		Namespace:        c.Defaults.Namespace,
		Promote:          c.Defaults.Promote,
		Persist:          c.Defaults.Persist,
		Append:           mode,
		PreserveLabels:   c.Defaults.PreserveLabels,
		LowercaseColumns: c.Defaults.LowercaseColumns,
		FastPromote:      c.Defaults.FastPromote,
		WidenText:        c.Defaults.WidenText,
		WidenThreshold:   c.Defaults.WidenThreshold,
	}, nil
}
