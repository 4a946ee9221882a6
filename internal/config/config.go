package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

func init() {
	viper.SetConfigName("linelogger")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("/etc/linelogger")
	viper.SetEnvPrefix("linelogger")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	viper.SetDefault("name", "sensor")
	viper.SetDefault("log.level", "info")
	viper.SetDefault("stats.interval", "60s")
}

// Load reads the config file if there is one. A missing file leaves the
// registered defaults and environment overrides in place. An explicit path
// must exist.
func Load(path string) (string, error) {
	if path != "" {
		viper.SetConfigFile(path)
	}
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path == "" && errors.As(err, &notFound) {
			return "", nil
		}
		return "", fmt.Errorf("can't read config file: %w", err)
	}
	return viper.ConfigFileUsed(), nil
}
