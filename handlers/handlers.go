package handlers

import (
	"strings"

	"admin-bot/bot"
	"admin-bot/handlers/admin"
	"admin-bot/utils"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

type command struct {
	level   string
	handler func(s *discordgo.Session, i *discordgo.InteractionCreate, b *bot.Bot)
}

var commandTable = map[string]command{
	"mute":          {utils.ModPermission, admin.HandleMute},
	"tempmute":      {utils.ModPermission, admin.HandleTempMute},
	"unmute":        {utils.ModPermission, admin.HandleUnmute},
	"kick":          {utils.ModPermission, admin.HandleKick},
	"ban":           {utils.ModPermission, admin.HandleBan},
	"forceban":      {utils.AdminPermission, admin.HandleForceBan},
	"softban":       {utils.ModPermission, admin.HandleSoftBan},
	"tempban":       {utils.ModPermission, admin.HandleTempBan},
	"unban":         {utils.ModPermission, admin.HandleUnban},
	"warn":          {utils.ModPermission, admin.HandleWarn},
	"infraction":    {utils.ModPermission, admin.HandleInfraction},
	"reason":        {utils.ModPermission, admin.HandleReason},
	"roles":         {utils.ModPermission, admin.HandleRoles},
	"restore":       {utils.AdminPermission, admin.HandleRestore},
	"clean":         {utils.ModPermission, admin.HandleClean},
	"system-info":   {utils.ModPermission, SystemInfoHandler},
	"reload-config": {utils.DeveloperPermission, admin.HandleReloadConfig},
}

func Register(b *bot.Bot) {
	b.CommandHandlers = commandHandlers(b)
	addHandlers(b)
}

func commandHandlers(b *bot.Bot) map[string]func(s *discordgo.Session, i *discordgo.InteractionCreate) {
	handlers := make(map[string]func(s *discordgo.Session, i *discordgo.InteractionCreate), len(commandTable))
	for name, cmd := range commandTable {
		handlers[name] = func(s *discordgo.Session, i *discordgo.InteractionCreate) {
			if !allowed(b, i, cmd.level) {
				if err := utils.SendErrorResponse(s, i, "You do not have permission to use this command."); err != nil {
					b.Logger.Warn("failed to send permission error", zap.Error(err))
				}
				return
			}
			cmd.handler(s, i, b)
		}
	}
	return handlers
}

func allowed(b *bot.Bot, i *discordgo.InteractionCreate, required string) bool {
	if i.Member == nil || i.Member.User == nil {
		return false
	}
	cfg := b.GetConfig()
	guildCfg, _ := cfg.Guild(i.GuildID)
	level := utils.CheckPermission(i.Member.Roles, i.Member.User.ID, guildCfg.ModRoleIDs, guildCfg.AdminRoleIDs, cfg.DeveloperUserIDs)
	return utils.HasPermission(level, required)
}

func addHandlers(b *bot.Bot) {
	b.Session.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) {
		b.Logger.Info("logged in", zap.String("user", r.User.Username), zap.Int("guilds", len(r.Guilds)))
	})
	b.Session.AddHandler(func(s *discordgo.Session, i *discordgo.InteractionCreate) {
		switch i.Type {
		case discordgo.InteractionApplicationCommand:
			if h, ok := b.CommandHandlers[i.ApplicationCommandData().Name]; ok {
				h(s, i)
			}
		case discordgo.InteractionMessageComponent:
			if strings.HasPrefix(i.MessageComponentData().CustomID, "infraction_page:") && allowed(b, i, utils.ModPermission) {
				admin.HandleInfractionPage(s, i, b)
			}
		}
	})
	b.Session.AddHandler(func(s *discordgo.Session, g *discordgo.GuildCreate) {
		if !onGuildCreate(b, g) {
			return
		}
		if err := s.RequestGuildMembers(g.ID, "", 0, "", false); err != nil {
			b.Logger.Warn("failed to request guild members", zap.String("guild_id", g.ID), zap.Error(err))
		}
	})
	b.Session.AddHandler(func(s *discordgo.Session, c *discordgo.GuildMembersChunk) {
		onMembersChunk(b, c)
	})
	b.Session.AddHandler(func(s *discordgo.Session, m *discordgo.GuildMemberAdd) {
		onMemberAdd(b, m)
	})
	b.Session.AddHandler(func(s *discordgo.Session, m *discordgo.GuildMemberUpdate) {
		onMemberUpdate(b, m)
	})
	b.Session.AddHandler(func(s *discordgo.Session, v *discordgo.VoiceStateUpdate) {
		onVoiceStateUpdate(b, v)
	})
	b.Session.AddHandler(func(s *discordgo.Session, e *discordgo.GuildBanRemove) {
		onBanRemove(b, e)
	})
}
