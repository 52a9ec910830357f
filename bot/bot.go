package bot

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"admin-bot/commands"
	"admin-bot/config"
	"admin-bot/model"
	"admin-bot/moderation"
	"admin-bot/tasks/expiry"
	"admin-bot/utils"
	"admin-bot/utils/database/backups"
	"admin-bot/utils/database/infractions"

	"github.com/bwmarrin/discordgo"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

const apiTimeout = 15 * time.Second

type Bot struct {
	Session         *discordgo.Session
	config          atomic.Value // *model.Config
	CommandHandlers map[string]func(s *discordgo.Session, i *discordgo.InteractionCreate)
	DB              *sqlx.DB
	Logger          *zap.Logger
	StartedAt       time.Time

	Moderation *moderation.Service
	ModLog     *utils.ModLog
	Expiry     *expiry.Scheduler
	Guard      utils.Guard

	scheduler *Scheduler
	redis     *utils.RedisGuard
	commands  guildCommands
}

func (b *Bot) GetConfig() *model.Config {
	return b.config.Load().(*model.Config)
}

// SetConfig replaces the active configuration.
func (b *Bot) SetConfig(cfg *model.Config) {
	b.config.Store(cfg)
}

// CommandCount is the number of slash commands registered across guilds.
func (b *Bot) CommandCount() int {
	return b.commands.count()
}

// GuildConfig returns the admin settings of guildID.
func (b *Bot) GuildConfig(guildID string) (model.GuildConfig, bool) {
	return b.GetConfig().Guild(guildID)
}

// New builds the session and wires the moderation stack around it.
func New(ctx context.Context, cfg *model.Config, db *sqlx.DB, logger *zap.Logger) (*Bot, error) {
	dg, err := discordgo.New("Bot " + cfg.BotToken)
	if err != nil {
		return nil, err
	}
	dg.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMembers |
		discordgo.IntentsGuildBans |
		discordgo.IntentsGuildVoiceStates |
		discordgo.IntentsGuildMessages

	b := &Bot{
		Session: dg,
		DB:      db,
		Logger:  logger,
	}
	b.config.Store(cfg)

	b.Guard = utils.NewOpGuard()
	if cfg.RedisURL != "" {
		rg, err := utils.NewRedisGuardFromURL(ctx, cfg.RedisURL, cfg.GuardTTL)
		if err != nil {
			return nil, err
		}
		b.redis = rg
		b.Guard = rg
	}

	api := utils.NewSessionAPI(dg, apiTimeout)
	store := infractions.NewStore(db)
	backupStore := backups.NewStore(db)
	members := utils.NewKeyedMutex[string]()

	b.ModLog = utils.NewModLog(dg, func(guildID string) string {
		g, _ := b.GuildConfig(guildID)
		return g.ModlogChannel
	}, logger)

	reverser := expiry.NewReverser(api, backupStore, members, logger)
	b.Expiry = expiry.NewScheduler(store, reverser, b.ModLog, logger, expiry.Options{
		StartDelay:    cfg.Expiry.StartDelay,
		CallTimeout:   cfg.Expiry.CallTimeout,
		RetryInterval: cfg.Expiry.RetryInterval,
	})
	b.Moderation = moderation.New(moderation.Deps{
		Store:     store,
		Backups:   backupStore,
		API:       api,
		Guard:     b.Guard,
		ModLog:    b.ModLog,
		Scheduler: b.Expiry,
		Members:   members,
		Logger:    logger,
	})
	b.scheduler = NewScheduler(b.Expiry, b.ModLog, logger)
	return b, nil
}

func (b *Bot) Close() {
	b.Logger.Info("gracefully shutting down")
	b.scheduler.Stop()
	if err := b.Session.Close(); err != nil {
		b.Logger.Warn("failed to close session", zap.Error(err))
	}
	if b.redis != nil {
		if err := b.redis.Close(); err != nil {
			b.Logger.Warn("failed to close redis", zap.Error(err))
		}
	}
}

// RefreshCommands overwrites the slash commands of one configured guild.
func (b *Bot) RefreshCommands(guildID string) error {
	guildCfg, ok := b.GuildConfig(guildID)
	if !ok {
		return fmt.Errorf("no config for guild %s", guildID)
	}

	cmds := commands.GenerateCommands(guildCfg)
	b.Logger.Info("registering commands", zap.String("guild_id", guildID), zap.Int("count", len(cmds)))
	registered, err := b.Session.ApplicationCommandBulkOverwrite(b.appID(), guildID, cmds)
	if err != nil {
		return fmt.Errorf("cannot update commands for guild %s: %w", guildID, err)
	}
	b.commands.set(guildID, registered)
	return nil
}

func (b *Bot) appID() string {
	if id := b.GetConfig().AppID; id != "" {
		return id
	}
	return b.Session.State.User.ID
}

// ReloadConfig re-reads the configuration and refreshes guild commands.
// Process-level settings such as the token and database path need a restart.
func (b *Bot) ReloadConfig() error {
	b.Logger.Info("reloading configuration")
	newCfg, err := config.Load()
	if err != nil {
		return err
	}
	b.config.Store(newCfg)
	b.Logger.Info("configuration reloaded", zap.String("path", newCfg.ConfigFile), zap.Int("guilds", len(newCfg.Guilds)))

	for guildID := range newCfg.Guilds {
		go func(guildID string) {
			if err := b.RefreshCommands(guildID); err != nil {
				b.Logger.Error("failed to refresh commands", zap.String("guild_id", guildID), zap.Error(err))
			}
		}(guildID)
	}
	return nil
}
