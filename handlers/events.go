package handlers

import (
	"context"
	"time"

	"admin-bot/bot"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

const eventTimeout = 30 * time.Second

func onMemberAdd(b *bot.Bot, m *discordgo.GuildMemberAdd) {
	cfg, ok := b.GuildConfig(m.GuildID)
	if !ok || cfg.Persist == nil || m.User == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), eventTimeout)
	defer cancel()

	if _, err := b.Moderation.MemberJoined(ctx, cfg, m.GuildID, m.User.ID); err != nil {
		b.Logger.Error("failed to restore member",
			zap.String("guild_id", m.GuildID), zap.String("user_id", m.User.ID), zap.Error(err))
	}
}

// onGuildCreate backs up the members delivered with the guild. It reports
// whether the guild is configured for restores, in which case the caller
// requests the full member list.
func onGuildCreate(b *bot.Bot, g *discordgo.GuildCreate) bool {
	if g.Guild == nil || g.Unavailable {
		return false
	}
	cfg, ok := b.GuildConfig(g.ID)
	if !ok || cfg.Persist == nil {
		return false
	}
	snapshotMembers(b, g.ID, g.Members)
	return true
}

func onMembersChunk(b *bot.Bot, c *discordgo.GuildMembersChunk) {
	cfg, ok := b.GuildConfig(c.GuildID)
	if !ok || cfg.Persist == nil {
		return
	}
	snapshotMembers(b, c.GuildID, c.Members)
}

func snapshotMembers(b *bot.Bot, guildID string, members []*discordgo.Member) {
	if len(members) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), eventTimeout)
	defer cancel()

	saved, err := b.Moderation.SnapshotMembers(ctx, guildID, members)
	if err != nil {
		b.Logger.Error("failed to back up members", zap.String("guild_id", guildID), zap.Error(err))
	}
	b.Logger.Debug("members backed up", zap.String("guild_id", guildID), zap.Int("count", saved))
}

func onMemberUpdate(b *bot.Bot, m *discordgo.GuildMemberUpdate) {
	if _, ok := b.GuildConfig(m.GuildID); !ok || m.Member == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), eventTimeout)
	defer cancel()

	if err := b.Moderation.MemberUpdated(ctx, m.Member); err != nil {
		b.Logger.Error("failed to record member update", zap.String("guild_id", m.GuildID), zap.Error(err))
	}
}

func onVoiceStateUpdate(b *bot.Bot, v *discordgo.VoiceStateUpdate) {
	if v.VoiceState == nil {
		return
	}
	cfg, ok := b.GuildConfig(v.GuildID)
	if !ok || cfg.Persist == nil || !cfg.Persist.Voice {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), eventTimeout)
	defer cancel()

	if err := b.Moderation.SnapshotVoice(ctx, v.GuildID, v.UserID, v.Mute, v.Deaf); err != nil {
		b.Logger.Error("failed to record voice state",
			zap.String("guild_id", v.GuildID), zap.String("user_id", v.UserID), zap.Error(err))
	}
}

func onBanRemove(b *bot.Bot, e *discordgo.GuildBanRemove) {
	if e.User == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), eventTimeout)
	defer cancel()

	if err := b.Moderation.BanRemoved(ctx, e.GuildID, e.User.ID); err != nil {
		b.Logger.Error("failed to close ban infractions",
			zap.String("guild_id", e.GuildID), zap.String("user_id", e.User.ID), zap.Error(err))
	}
}
