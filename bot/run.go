package bot

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
)

// Run opens the gateway, registers guild commands and starts the background
// tasks. It blocks until SIGINT or SIGTERM.
func (b *Bot) Run(ctx context.Context) error {
	if err := b.Session.Open(); err != nil {
		return fmt.Errorf("error opening connection: %w", err)
	}
	b.StartedAt = time.Now()

	b.Logger.Info("registering commands for configured guilds")
	for guildID := range b.GetConfig().Guilds {
		if err := b.RefreshCommands(guildID); err != nil {
			b.Logger.Error("failed to register commands", zap.String("guild_id", guildID), zap.Error(err))
		}
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	defer stop()

	b.scheduler.Start(ctx)

	b.Logger.Info("bot is now running, press CTRL-C to exit")
	if channelID := b.GetConfig().LogChannelID; channelID != "" {
		if _, err := b.Session.ChannelMessageSend(channelID, "✅ Bot has started successfully."); err != nil {
			b.Logger.Warn("failed to send startup log", zap.Error(err))
		}
	}
	<-ctx.Done()
	return nil
}
