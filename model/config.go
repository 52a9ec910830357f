package model

import "time"

// PersistConfig controls which parts of a member's state are restored on rejoin.
type PersistConfig struct {
	Roles    bool     `mapstructure:"roles"`
	Nickname bool     `mapstructure:"nickname"`
	Voice    bool     `mapstructure:"voice"`
	RoleIDs  []string `mapstructure:"role_ids"` // optional allow-list
}

// GuildConfig holds the admin settings of a single guild.
type GuildConfig struct {
	Name           string         `mapstructure:"name"`
	ConfirmActions bool           `mapstructure:"confirm_actions"`
	MuteRole       string         `mapstructure:"mute_role"`
	TempMuteRole   string         `mapstructure:"temp_mute_role"`
	ModlogChannel  string         `mapstructure:"modlog_channel"`
	ModRoleIDs     []string       `mapstructure:"mod_role_ids"`
	AdminRoleIDs   []string       `mapstructure:"admin_role_ids"`
	Persist        *PersistConfig `mapstructure:"persist"`
}

// MuteRoles returns the configured mute roles, skipping unset ones.
func (g GuildConfig) MuteRoles() []string {
	roles := make([]string, 0, 2)
	if g.MuteRole != "" {
		roles = append(roles, g.MuteRole)
	}
	if g.TempMuteRole != "" && g.TempMuteRole != g.MuteRole {
		roles = append(roles, g.TempMuteRole)
	}
	return roles
}

// ExpiryConfig tunes the infraction expiry scheduler.
type ExpiryConfig struct {
	StartDelay    time.Duration `mapstructure:"start_delay" validate:"min=0"`
	CallTimeout   time.Duration `mapstructure:"call_timeout" validate:"required"`
	RetryInterval time.Duration `mapstructure:"retry_interval" validate:"required"`
}

// Config stores the application configuration.
type Config struct {
	BotToken         string                 `mapstructure:"bot_token" validate:"required"`
	AppID            string                 `mapstructure:"app_id"`
	LogLevel         string                 `mapstructure:"log_level" validate:"oneof=debug info warn error"`
	Development      bool                   `mapstructure:"development"`
	DatabasePath     string                 `mapstructure:"database_path" validate:"required"`
	RedisURL         string                 `mapstructure:"redis_url" validate:"omitempty,url"`
	GuardTTL         time.Duration          `mapstructure:"guard_ttl" validate:"required"`
	LogChannelID     string                 `mapstructure:"log_channel_id"`
	DeveloperUserIDs []string               `mapstructure:"developer_user_ids"`
	Expiry           ExpiryConfig           `mapstructure:"expiry"`
	Guilds           map[string]GuildConfig `mapstructure:"guilds"`

	// Filled in by the loader. ConfigFile is empty when no file was read.
	ConfigFile string `mapstructure:"-"`
	DotEnv     bool   `mapstructure:"-"`
}

// Guild returns the configuration for guildID.
func (c *Config) Guild(guildID string) (GuildConfig, bool) {
	g, ok := c.Guilds[guildID]
	return g, ok
}
