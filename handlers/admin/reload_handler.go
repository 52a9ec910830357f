package admin

import (
	"fmt"

	"admin-bot/bot"
	"admin-bot/utils"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

func HandleReloadConfig(s *discordgo.Session, i *discordgo.InteractionCreate, b *bot.Bot) {
	logger := b.Logger.With(zap.String("command", "reload-config"))
	if err := b.ReloadConfig(); err != nil {
		logger.Error("config reload failed", zap.Error(err))
		respondError(s, i, logger, fmt.Sprintf("配置重载失败: %v", err))
		return
	}
	if err := utils.SendSimpleResponse(s, i, "✅ 配置已成功重载！"); err != nil {
		logger.Warn("failed to respond", zap.Error(err))
	}
}
