package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"admin-bot/model"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const defaultConfigPath = "data/admin_config.yaml"

var validate = validator.New()

// Load loads the configuration from the .env file, the environment and the
// admin config file named by CONFIG_PATH.
func Load() (*model.Config, error) {
	dotEnv := godotenv.Load() == nil

	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = defaultConfigPath
	}
	cfg, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	cfg.DotEnv = dotEnv
	return cfg, nil
}

// LoadFile reads the config file at path. A missing file is not an error;
// everything can then come from the environment.
func LoadFile(path string) (*model.Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range []string{"bot_token", "app_id", "log_level", "development", "database_path", "redis_url", "guard_ttl", "log_channel_id",
		"expiry.start_delay", "expiry.call_timeout", "expiry.retry_interval"} {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("failed to bind env for %s: %w", key, err)
		}
	}

	v.SetConfigFile(path)
	readFile := path
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		readFile = ""
	}

	cfg := &model.Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if ids := os.Getenv("DEVELOPER_USER_IDS"); ids != "" {
		cfg.DeveloperUserIDs = strings.Split(ids, ",")
	}
	if cfg.Guilds == nil {
		cfg.Guilds = make(map[string]model.GuildConfig)
	}
	cfg.LogLevel = strings.ToLower(strings.TrimSpace(cfg.LogLevel))
	cfg.ConfigFile = readFile

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log_level", "info")
	v.SetDefault("development", false)
	v.SetDefault("database_path", "data/infractions.db")
	v.SetDefault("guard_ttl", 10*time.Minute)
	v.SetDefault("expiry.start_delay", 5*time.Second)
	v.SetDefault("expiry.call_timeout", 10*time.Second)
	v.SetDefault("expiry.retry_interval", time.Minute)
}
