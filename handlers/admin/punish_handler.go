package admin

import (
	"context"
	"fmt"
	"time"

	"admin-bot/bot"
	"admin-bot/model"
	"admin-bot/moderation"
	"admin-bot/utils"

	"github.com/bwmarrin/discordgo"
	"github.com/dustin/go-humanize"
	"go.uber.org/zap"
)

const commandTimeout = 30 * time.Second

type punishFunc func(ctx context.Context, cfg model.GuildConfig, t moderation.Target, opts options) (*model.Infraction, error)

func HandleMute(s *discordgo.Session, i *discordgo.InteractionCreate, b *bot.Bot) {
	runPunish(s, i, b, "禁言", func(ctx context.Context, cfg model.GuildConfig, t moderation.Target, _ options) (*model.Infraction, error) {
		return b.Moderation.Mute(ctx, cfg, t)
	})
}

func HandleTempMute(s *discordgo.Session, i *discordgo.InteractionCreate, b *bot.Bot) {
	runPunish(s, i, b, "限时禁言", func(ctx context.Context, cfg model.GuildConfig, t moderation.Target, opts options) (*model.Infraction, error) {
		d, err := utils.ParseDuration(opts.string("duration"))
		if err != nil {
			return nil, moderation.ErrInvalidDuration
		}
		return b.Moderation.TempMute(ctx, cfg, t, d)
	})
}

func HandleKick(s *discordgo.Session, i *discordgo.InteractionCreate, b *bot.Bot) {
	runPunish(s, i, b, "踢出", func(ctx context.Context, _ model.GuildConfig, t moderation.Target, _ options) (*model.Infraction, error) {
		return b.Moderation.Kick(ctx, t)
	})
}

func HandleBan(s *discordgo.Session, i *discordgo.InteractionCreate, b *bot.Bot) {
	runPunish(s, i, b, "封禁", func(ctx context.Context, _ model.GuildConfig, t moderation.Target, _ options) (*model.Infraction, error) {
		return b.Moderation.Ban(ctx, t)
	})
}

func HandleForceBan(s *discordgo.Session, i *discordgo.InteractionCreate, b *bot.Bot) {
	runPunish(s, i, b, "封禁", func(ctx context.Context, _ model.GuildConfig, t moderation.Target, _ options) (*model.Infraction, error) {
		return b.Moderation.ForceBan(ctx, t)
	})
}

func HandleSoftBan(s *discordgo.Session, i *discordgo.InteractionCreate, b *bot.Bot) {
	runPunish(s, i, b, "软封禁", func(ctx context.Context, _ model.GuildConfig, t moderation.Target, _ options) (*model.Infraction, error) {
		return b.Moderation.SoftBan(ctx, t)
	})
}

func HandleTempBan(s *discordgo.Session, i *discordgo.InteractionCreate, b *bot.Bot) {
	runPunish(s, i, b, "限时封禁", func(ctx context.Context, _ model.GuildConfig, t moderation.Target, opts options) (*model.Infraction, error) {
		d, err := utils.ParseDuration(opts.string("duration"))
		if err != nil {
			return nil, moderation.ErrInvalidDuration
		}
		return b.Moderation.TempBan(ctx, t, d)
	})
}

func HandleUnban(s *discordgo.Session, i *discordgo.InteractionCreate, b *bot.Bot) {
	runPunish(s, i, b, "解封", func(ctx context.Context, _ model.GuildConfig, t moderation.Target, _ options) (*model.Infraction, error) {
		return b.Moderation.Unban(ctx, t)
	})
}

func HandleWarn(s *discordgo.Session, i *discordgo.InteractionCreate, b *bot.Bot) {
	runPunish(s, i, b, "警告", func(ctx context.Context, _ model.GuildConfig, t moderation.Target, _ options) (*model.Infraction, error) {
		return b.Moderation.Warn(ctx, t)
	})
}

func HandleUnmute(s *discordgo.Session, i *discordgo.InteractionCreate, b *bot.Bot) {
	runPunish(s, i, b, "解除禁言", func(ctx context.Context, cfg model.GuildConfig, t moderation.Target, _ options) (*model.Infraction, error) {
		return nil, b.Moderation.Unmute(ctx, cfg, t)
	})
}

func runPunish(s *discordgo.Session, i *discordgo.InteractionCreate, b *bot.Bot, verb string, fn punishFunc) {
	logger := b.Logger.With(zap.String("command", i.ApplicationCommandData().Name), zap.String("guild_id", i.GuildID))
	if err := utils.DeferResponse(s, i, true); err != nil {
		logger.Warn("failed to defer interaction", zap.Error(err))
		return
	}

	cfg, ok := b.GuildConfig(i.GuildID)
	if !ok {
		followUpError(s, i, logger, "此服务器未配置管理功能。")
		return
	}
	_, opts := commandOptions(i)
	t := target(s, i, opts)
	if t.UserID == "" {
		followUpError(s, i, logger, "请指定用户。")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()
	inf, err := fn(ctx, cfg, t, opts)
	if err != nil {
		logger.Info("moderation action failed", zap.String("user_id", t.UserID), zap.Error(err))
		followUpError(s, i, logger, errorMessage(err))
		return
	}

	msg := fmt.Sprintf("✅ 已%s <@%s>", verb, t.UserID)
	if inf != nil {
		msg += fmt.Sprintf(" (处罚 #%d)", inf.ID)
		if expires, ok := inf.Expiry(); ok {
			msg += "，" + humanize.Time(expires) + "到期"
		}
	}
	if t.Reason != "" {
		msg += "\n原因: " + t.Reason
	}
	if err := utils.SendFollowUp(s, i.Interaction, msg); err != nil {
		logger.Warn("failed to send follow-up", zap.Error(err))
	}
	if cfg.ConfirmActions {
		if _, err := s.ChannelMessageSend(i.ChannelID, msg); err != nil {
			logger.Warn("failed to send confirmation", zap.Error(err))
		}
	}
}

func followUpError(s *discordgo.Session, i *discordgo.InteractionCreate, logger *zap.Logger, msg string) {
	if err := utils.SendFollowUpError(s, i.Interaction, msg); err != nil {
		logger.Warn("failed to send follow-up error", zap.Error(err))
	}
}
