package admin

import (
	"context"

	"admin-bot/bot"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

func HandleRestore(s *discordgo.Session, i *discordgo.InteractionCreate, b *bot.Bot) {
	logger := b.Logger.With(zap.String("command", "restore"), zap.String("guild_id", i.GuildID))
	cfg, ok := b.GuildConfig(i.GuildID)
	if !ok || cfg.Persist == nil {
		respondError(s, i, logger, "此服务器未启用成员数据恢复。")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	_, opts := commandOptions(i)
	userID := opts.userID(s)
	restored, err := b.Moderation.Restore(ctx, cfg, i.GuildID, userID)
	if err != nil {
		logger.Info("restore failed", zap.String("user_id", userID), zap.Error(err))
		respondError(s, i, logger, errorMessage(err))
		return
	}
	if !restored {
		respondSimple(s, i, logger, "没有需要恢复的内容。")
		return
	}
	respondSimple(s, i, logger, "✅ 已恢复 <@"+userID+"> 的成员数据。")
}
