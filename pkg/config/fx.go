package config

import (
	"os"

	"github.com/stevedore-sh/stevedore/pkg/consts"
	"go.uber.org/fx"
)

var Module = fx.Module("config", fx.Provide(
	// Loads stevedore.yaml from the working directory when present, and
	// falls back to built-in defaults so the CLI works without a project
	// file.
	func() (*Config, error) {
		if _, err := os.Stat(consts.ConfigFile); os.IsNotExist(err) {
			return Default(), nil
		}

		return LoadConfigFile(consts.ConfigFile)
	},
))
