package admin

import (
	"context"
	"fmt"
	"time"

	"admin-bot/bot"
	"admin-bot/moderation"
	"admin-bot/utils"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

func HandleClean(s *discordgo.Session, i *discordgo.InteractionCreate, b *bot.Bot) {
	logger := b.Logger.With(zap.String("command", "clean"), zap.String("channel_id", i.ChannelID))
	if err := utils.DeferResponse(s, i, true); err != nil {
		logger.Warn("failed to defer interaction", zap.Error(err))
		return
	}

	sub, opts := commandOptions(i)
	req := moderation.CleanRequest{
		GuildID:   i.GuildID,
		ChannelID: i.ChannelID,
		ActorID:   actorID(i),
		Mode:      moderation.CleanMode(sub),
		Size:      moderation.DefaultCleanSize,
	}
	if size, ok := opts.int("size"); ok {
		req.Size = int(size)
	}
	if req.Mode == moderation.CleanUser {
		req.UserID = opts.userID(s)
	}

	// Large cleans get a longer deadline.
	ctx, cancel := context.WithTimeout(context.Background(), cleanTimeout(req.Size))
	defer cancel()

	deleted, err := b.Moderation.Clean(ctx, req)
	if err != nil {
		logger.Info("clean failed", zap.Error(err))
		followUpError(s, i, logger, errorMessage(err))
		return
	}
	if err := utils.SendFollowUp(s, i.Interaction, fmt.Sprintf("✅ 已删除 %d 条消息。", deleted)); err != nil {
		logger.Warn("failed to send follow-up", zap.Error(err))
	}
}

func cleanTimeout(size int) time.Duration {
	return commandTimeout + time.Duration(size/100)*5*time.Second
}
