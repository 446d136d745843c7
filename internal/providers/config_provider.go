package providers

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"gsd/internal/structures"
)

func NewConfigProvider(flags *structures.CliFlags) (*structures.Config, error) {
	var conf structures.Config

	filename := filepath.Base(flags.ConfigPath)
	viper.AddConfigPath(filepath.Dir(flags.ConfigPath))
	viper.SetConfigName(strings.TrimSuffix(filename, filepath.Ext(filename)))
	viper.SetConfigType("yaml")

	viper.BindEnv("logger.level", "GSD_LOG_LEVEL")
	viper.BindEnv("monitor.sourceUrl", "GSD_SOURCE_URL")
	viper.BindEnv("monitor.flushInterval", "GSD_FLUSH_INTERVAL")
	viper.BindEnv("monitor.backupInterval", "GSD_BACKUP_INTERVAL")
	viper.BindEnv("cache.enabled", "GSD_CACHE_ENABLED")
	viper.BindEnv("cache.size", "GSD_CACHE_SIZE")

	err := viper.ReadInConfig()
	if err != nil {
		return nil, err
	}

	err = viper.Unmarshal(&conf)
	if err != nil {
		return nil, fmt.Errorf("unable to decode into config struct: %w", err)
	}

	cnfValidator := NewCnfValidator(&conf)
	err = cnfValidator.Validate()
	if err != nil {
		return nil, err
	}

	conf.AppName = "GiftSnifferDaemon"
	conf.Path = flags.ConfigPath
	conf.Debug = flags.DebugMode

	return &conf, nil
}
