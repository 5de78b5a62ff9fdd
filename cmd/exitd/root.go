package main

import (
	"fmt"
	"strings"

	"github.com/childchain/exitd/internal/config"
	"github.com/spf13/viper"
	"github.com/urfave/cli/v2"
)

// EnvReplacer replaces `-` to `_`.
// This is used to map flag like `--my-param` to environment variables like `MY_PARAM`.
var envReplacer = strings.NewReplacer("-", "_")

func init() {
	viper.SetEnvPrefix("EXITD")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(envReplacer)
}

// loadConfigFile fills every global flag not set on the command line or the
// environment with the value found in the given config file.
func loadConfigFile(c *cli.Context) error {
	path := c.String(configFlagName)
	if path == "" {
		return nil
	}

	viper.SetConfigFile(path)
	if err := viper.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read config file %s: %s", path, err)
	}

	for _, flag := range config.Flags {
		for _, name := range flag.Names() {
			if c.IsSet(name) || !viper.IsSet(name) {
				continue
			}
			if err := c.Set(name, viper.GetString(name)); err != nil {
				return fmt.Errorf("invalid value for %s in config file: %s", name, err)
			}
		}
	}
	return nil
}
